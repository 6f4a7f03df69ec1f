package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/rpc"
)

// #region serve
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the governance gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}

			gov, store, err := openGovernor(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			lis, err := net.Listen("tcp", cfg.Server.Address)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Server.Address, err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cfg)
			logger.Info("[GOVERNOR] starting", "store", cfg.Store.Path, "addr", cfg.Server.Address)
			return rpc.NewServer(gov, logger).Serve(ctx, lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

// #endregion serve
