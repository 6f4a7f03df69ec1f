package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/replay"
)

// #region replay
func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Replay a fixture of loops through the gate, report and drift stages",
		Long: `Runs every loop in the fixture against a throwaway in-memory store and
compares the action taken (accept, flag, reset or gate_reject) with the
fixture's expected results. Exits 1 when any loop diverges.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			cfg, err = f.ToConfig(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Fixture: %s\n", f.Description)
			fmt.Printf("Loops: %d\n\n", len(f.Loops))

			results, err := replay.Replay(cmd.Context(), f.Loops, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			if n := printComparison(results, f.ExpectedResults); n > 0 {
				fmt.Fprintf(os.Stderr, "%d loops diverged from the fixture\n", n)
				os.Exit(1)
			}
			return nil
		},
	}
}

// printComparison renders expected vs replayed actions and returns the
// number of loops that diverged.
func printComparison(results []replay.Result, expected []replay.FixtureExpectedResult) int {
	want := make(map[string]string, len(expected))
	for _, e := range expected {
		want[e.LoopID] = e.Action
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Loop", "Expected", "Replayed", "Match", "Reason"})
	for _, r := range results {
		exp, ok := want[r.LoopID]
		match := "OK"
		switch {
		case !ok:
			exp, match = "-", "-"
		case exp != r.Action:
			match = "DIFF"
		}
		tw.AppendRow(table.Row{r.LoopID, exp, r.Action, match, r.Reason})
	}
	tw.Render()

	mismatches := replay.Check(results, expected)
	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d accept, %d flag, %d reset, %d gate_reject; %d diverge\n",
		s.TotalLoops, s.Accepted, s.Flagged, s.Resets, s.GateRejects, len(mismatches))
	return len(mismatches)
}

// #endregion replay
