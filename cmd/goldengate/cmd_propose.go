package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/promotion"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

type proposePayload struct {
	ThresholdState state.ThresholdState        `json:"threshold_state"`
	Snapshot       runner.RunSnapshot          `json:"snapshot"`
	Decision       promotion.PromotionDecision `json:"decision"`
	TargetCheck    *targetCheck                `json:"target_check,omitempty"`
}

// targetCheck is the unclamped verdict on an explicit --target.
type targetCheck struct {
	Target     float64  `json:"target"`
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

// decisionFlags are shared by propose and lifecycle open-canary.
type decisionFlags struct {
	shadow float64
	naive  float64
}

func (f *decisionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.shadow, "shadow-threshold", 0, "Threshold the shadow report assumed was configured")
	cmd.Flags().Float64Var(&f.naive, "naive-target", 0, "Explicit target proposed by the shadow report")
}

func (f *decisionFlags) request(cmd *cobra.Command, current float64) promotion.Request {
	return promotion.Request{
		Current:     current,
		ShadowValue: optionalFloat(cmd, "shadow-threshold", f.shadow),
		NaiveTarget: optionalFloat(cmd, "naive-target", f.naive),
	}
}

func proposeCmd(a *app) *cobra.Command {
	var (
		flags  decisionFlags
		target float64
	)
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose and validate the next threshold",
		Long: `propose computes the next staged threshold from the stored config value and
the latest snapshot. It exits 0 for a valid decision and 1 otherwise; the
threshold itself only moves through the lifecycle commands. With --target the
given target is also checked as is, without clamping, and must be valid too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			th, err := store.Threshold()
			if err != nil {
				return err
			}
			latest, err := store.LatestRun()
			if err != nil {
				return err
			}
			decision, err := promotion.Decide(a.cfg.Policy, flags.request(cmd, th.ConfigValue))
			if err != nil {
				return err
			}
			payload := proposePayload{ThresholdState: th, Snapshot: latest.Snapshot, Decision: decision}
			favorable := decision.Valid
			if cmd.Flags().Changed("target") {
				violations, err := promotion.Validate(a.cfg.Policy, th.ConfigValue, target)
				if err != nil {
					return err
				}
				payload.TargetCheck = &targetCheck{Target: target, Valid: len(violations) == 0, Violations: violations}
				favorable = favorable && payload.TargetCheck.Valid
			}
			return a.emit("propose", report.ExitCodeFor(favorable), payload, latest.Snapshot.SnapshotID)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&target, "target", 0, "Check this explicit target against the policy without clamping")
	return cmd
}
