package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

type rescorePayload struct {
	SnapshotID string `json:"snapshot_id"`
	runner.RescoreReport
}

func rescoreCmd(a *app) *cobra.Command {
	var fixtures string
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Re-evaluate the latest stored predictions; exits 1 on drift",
		Long: `rescore replays the predictions stored with the latest snapshot through the
current evaluator and fixtures without calling the backend, and lists every
case whose verdict changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			latest, err := store.LatestRun()
			if err != nil {
				return err
			}
			cases, err := a.loadCases(fixtures)
			if err != nil {
				return err
			}
			rep := runner.Rescore(eval.NewEvaluator(a.cfg.Match), cases, latest.Results, latest.Snapshot.Threshold)
			payload := rescorePayload{SnapshotID: latest.Snapshot.SnapshotID, RescoreReport: rep}
			return a.emit("rescore", report.ExitCodeFor(len(rep.Drifts) == 0), payload, latest.Snapshot.SnapshotID)
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "Golden case file (default from config)")
	return cmd
}
