package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

func historyCmd(a *app) *cobra.Command {
	var (
		last    int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			snaps, err := store.History(last)
			if err != nil {
				return err
			}
			if jsonOut {
				return a.emit("history", apperr.ExitFavorable, snaps, "")
			}
			return printHistory(a, snaps)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show the N most recent snapshots")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output a JSON document instead of a table")
	return cmd
}

// printHistory renders snapshots oldest first.
func printHistory(a *app, snaps []runner.RunSnapshot) error {
	if len(snaps) == 0 {
		fmt.Fprintln(a.stderr, "no snapshots found")
		return nil
	}
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSNAPSHOT\tθ\tPASSED\tPASS%\tNEWFAIL%\tFLAKY%\tROOT CAUSE")
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d/%d\t%.1f\t%.1f\t%.1f\t%s\n",
			s.Timestamp.Format("2006-01-02 15:04"),
			shortID(s.SnapshotID),
			s.Threshold,
			s.PassedCount, s.Total,
			s.WeightedPassRate, s.NewFailRatio, s.FlakyRate,
			strings.Join(s.RootCauseTags, ","),
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
