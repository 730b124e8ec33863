package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

func windowCmd(a *app) *cobra.Command {
	var (
		flags     windowFlags
		candidate float64
	)
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Evaluate the canary window",
		Long: `window aggregates the observations of the last days and decides promote,
continue_canary or insufficient_data. Only promote exits 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			cand := optionalFloat(cmd, "candidate", candidate)
			if cand == nil {
				st, err := store.Lifecycle()
				if err != nil && !errors.Is(err, state.ErrNotInitialized) {
					return err
				}
				if err == nil && st.Candidate != nil {
					cand = st.Candidate
				}
			}
			ev, err := a.evaluateWindow(cmd, &flags, store, cand)
			if err != nil {
				return err
			}
			return a.emit("window", report.ExitCodeFor(ev.Decision == canary.DecisionPromote), ev, "")
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&candidate, "candidate", 0, "Only count observations at this threshold (default: running canary)")
	return cmd
}
