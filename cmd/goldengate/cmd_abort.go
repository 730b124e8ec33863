package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/gate"
	"github.com/danielpatrickdp/golden-gate/internal/report"
)

func abortCmd(a *app) *cobra.Command {
	var passRate, newFailRatio float64
	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Check an experimental run against the hard abort limits",
		Long: `abort trips when the pass rate falls below the hard floor or the new-failure
ratio exceeds the hard ceiling. Metrics come from the latest snapshot unless
both are given as flags. It exits 1 when the run must abort.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			given, otherGiven := cmd.Flags().Changed("pass-rate"), cmd.Flags().Changed("new-fail-ratio")
			if given != otherGiven {
				return apperr.NewValidationError("incomplete_metrics", "--pass-rate and --new-fail-ratio must be given together")
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}

			var (
				m          gate.Metrics
				snapshotID string
			)
			if given {
				m = gate.Metrics{PassRate: passRate, NewFailRatio: newFailRatio}
			} else {
				latest, err := store.LatestRun()
				if err != nil {
					return err
				}
				m = gate.MetricsFromSnapshot(latest.Snapshot)
				snapshotID = latest.Snapshot.SnapshotID
			}

			verdict := gate.NewGuard(a.cfg.Guard).Evaluate(m)
			return a.emit("abort", report.ExitCodeFor(!verdict.Abort), verdict, snapshotID)
		},
	}
	cmd.Flags().Float64Var(&passRate, "pass-rate", 0, "Pass rate in percent (with --new-fail-ratio)")
	cmd.Flags().Float64Var(&newFailRatio, "new-fail-ratio", 0, "New-failure ratio in percent (with --pass-rate)")
	return cmd
}
