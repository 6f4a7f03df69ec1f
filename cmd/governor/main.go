package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/rpc"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

var Version = "dev"

// #region flags
type globalFlags struct {
	configPath string
	dbPath     string
	remote     string
	logLevel   string
}

var flags globalFlags

// #endregion flags

// #region main
func main() {
	rootCmd := &cobra.Command{
		Use:           "governor",
		Short:         "Loop governor: health, drift and pre-run risk checks for agent loops",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "governor.yaml", "config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite store path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&flags.remote, "remote", "", "send requests to a running governor at this address instead of the local store")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(signalCmd())
	rootCmd.AddCommand(driftCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// #endregion main

// #region backend
// backend is the governance surface shared by the in-process governor and
// the gRPC client.
type backend interface {
	ComposeReport(ctx context.Context, req governor.ReportRequest) (governor.ReportResponse, error)
	ValidateStructure(ctx context.Context, req governor.StructureRequest) (sanity.Result, error)
	EvaluateRisk(ctx context.Context, req governor.RiskRequest) (pessimist.Result, error)
	RecordCEO(ctx context.Context, r memory.CEOReview) (memory.CEOReview, error)
	RecordHistorian(ctx context.Context, r memory.HistorianReview) (memory.HistorianReview, error)
	RecordPessimist(ctx context.Context, r memory.PessimistReview) (memory.PessimistReview, error)
	GenerateDrift(ctx context.Context, req governor.DriftRequest) (governor.DriftResponse, error)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.dbPath != "" {
		cfg.Store.Path = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return governor.NewLogger(os.Stderr, cfg.LogLevel)
}

func openGovernor(cfg config.Config) (*governor.Governor, *memory.Store, error) {
	store, err := memory.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return governor.New(cfg, store, newLogger(cfg)), store, nil
}

// withBackend runs fn against the remote governor when --remote is set and
// against a local store otherwise.
func withBackend(ctx context.Context, fn func(ctx context.Context, b backend) error) error {
	if flags.remote != "" {
		client, err := rpc.NewClient(flags.remote)
		if err != nil {
			return err
		}
		defer client.Close()
		return fn(ctx, client)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gov, store, err := openGovernor(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, gov)
}

// #endregion backend

// #region io
func readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion io
