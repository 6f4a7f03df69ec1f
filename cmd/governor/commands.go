package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
)

// #region post-run
func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <request.json>",
		Short: "Score a finished loop and emit its CTO report",
		Long: `Reads a report request ({loop, plan, summary, agent_logs, config?})
and prints {report, loop} with the loop's health score filled in.
Use "-" to read the request from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req governor.ReportRequest
			if err := readJSON(args[0], &req); err != nil {
				return err
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				resp, err := b.ComposeReport(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(resp)
			})
		},
	}
}

// #endregion post-run

// #region pre-run
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request.json>",
		Short: "Check a loop definition's agents, schema and loop bound",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req governor.StructureRequest
			if err := readJSON(args[0], &req); err != nil {
				return err
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				res, err := b.ValidateStructure(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <request.json>",
		Short: "Evaluate the risks of a loop plan before it runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req governor.RiskRequest
			if err := readJSON(args[0], &req); err != nil {
				return err
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				res, err := b.EvaluateRisk(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

// #endregion pre-run

// #region signals
func signalCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "signal <review.json>",
		Short: "Record an upstream CEO, historian or pessimist review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readRaw(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				out, err := recordSignal(ctx, b, kind, data)
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "ceo, historian or pessimist")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func recordSignal(ctx context.Context, b backend, kind string, data []byte) (any, error) {
	switch strings.ToLower(kind) {
	case "ceo", memory.KindCEOReview:
		var r memory.CEOReview
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse ceo review: %w", err)
		}
		return b.RecordCEO(ctx, r)
	case "historian", memory.KindHistorianReview:
		var r memory.HistorianReview
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse historian review: %w", err)
		}
		return b.RecordHistorian(ctx, r)
	case "pessimist", memory.KindPessimistReview:
		var r memory.PessimistReview
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse pessimist review: %w", err)
		}
		return b.RecordPessimist(ctx, r)
	default:
		return nil, fmt.Errorf("unknown signal kind %q (want ceo, historian or pessimist)", kind)
	}
}

func readRaw(path string) ([]byte, error) {
	var raw json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// #endregion signals

// #region drift
func driftCmd() *cobra.Command {
	var overrides string
	cmd := &cobra.Command{
		Use:   "drift <loop-id>",
		Short: "Aggregate the stored signals of a loop into a drift summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := governor.DriftRequest{LoopID: args[0]}
			if overrides != "" {
				raw, err := os.ReadFile(overrides)
				if err != nil {
					return fmt.Errorf("read overrides: %w", err)
				}
				req.Config = raw
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				resp, err := b.GenerateDrift(ctx, req)
				if err != nil {
					return err
				}
				if err := printJSON(resp); err != nil {
					return err
				}
				if resp.Warning != nil {
					fmt.Fprintf(os.Stderr, "WARNING %s: %s\n", resp.Warning.WarningID, resp.Warning.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&overrides, "thresholds", "", "JSON file overriding drift thresholds for this call")
	return cmd
}

// #endregion drift
