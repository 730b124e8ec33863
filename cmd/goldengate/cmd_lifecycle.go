package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/promotion"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

// lifecyclePayload is the body of every lifecycle document. Escalated is
// repeated at the top level so dispatchers cannot miss it.
type lifecyclePayload struct {
	Lifecycle   lifecycle.State              `json:"lifecycle"`
	Threshold   state.ThresholdState         `json:"threshold_state"`
	Escalated   bool                         `json:"escalated"`
	Transitions []lifecycle.Transition       `json:"transitions"`
	Decision    *promotion.PromotionDecision `json:"decision,omitempty"`
	Evaluation  *canary.WindowEvaluation     `json:"evaluation,omitempty"`
}

func lifecycleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Inspect and drive the STABLE/CANARY/PROMOTED/ROLLED_BACK state machine",
	}
	cmd.AddCommand(
		lifecycleStatusCmd(a),
		lifecycleOpenCanaryCmd(a),
		lifecycleObserveCmd(a),
		lifecycleAckCmd(a),
	)
	return cmd
}

// lifecyclePayload reads back the persisted state for a lifecycle document.
func (a *app) lifecyclePayload(store *state.Store, transitions []lifecycle.Transition) (lifecyclePayload, error) {
	st, err := store.Lifecycle()
	if err != nil {
		return lifecyclePayload{}, err
	}
	th, err := store.Threshold()
	if err != nil {
		return lifecyclePayload{}, err
	}
	if transitions == nil {
		transitions = []lifecycle.Transition{}
	}
	return lifecyclePayload{Lifecycle: st, Threshold: th, Escalated: st.Escalated, Transitions: transitions}, nil
}

func lifecycleStatusCmd(a *app) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the lifecycle; exits 1 while an escalation is outstanding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			recent, err := store.Transitions(last)
			if err != nil {
				return err
			}
			payload, err := a.lifecyclePayload(store, recent)
			if err != nil {
				return err
			}
			return a.emit("lifecycle", report.ExitCodeFor(!payload.Escalated), payload, "")
		},
	}
	cmd.Flags().IntVar(&last, "last", 10, "Include the N most recent transitions")
	return cmd
}

func lifecycleOpenCanaryCmd(a *app) *cobra.Command {
	var flags decisionFlags
	cmd := &cobra.Command{
		Use:   "open-canary",
		Short: "Move STABLE(θ) to CANARY(θ, θ_next) using a valid promotion decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			th, err := store.Threshold()
			if err != nil {
				return err
			}
			st, err := store.Lifecycle()
			if err != nil {
				return err
			}
			decision, err := promotion.Decide(a.cfg.Policy, flags.request(cmd, th.ConfigValue))
			if err != nil {
				return err
			}
			next, tr, err := lifecycle.OpenCanary(st, decision, a.now())
			if err != nil {
				return err
			}
			if err := store.SaveLifecycle(next, []lifecycle.Transition{tr}); err != nil {
				return err
			}
			a.logger.Info("canary opened", slog.Float64("from", decision.Current), slog.Float64("to", decision.Target))

			payload, err := a.lifecyclePayload(store, []lifecycle.Transition{tr})
			if err != nil {
				return err
			}
			payload.Decision = &decision
			return a.emit("lifecycle", apperr.ExitFavorable, payload, "")
		},
	}
	flags.register(cmd)
	return cmd
}

func lifecycleObserveCmd(a *app) *cobra.Command {
	var flags windowFlags
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Apply a canary window evaluation; exits 0 only when promoted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			st, err := store.Lifecycle()
			if err != nil {
				return err
			}
			candidate, err := canaryCandidate(st)
			if err != nil {
				return err
			}
			ev, err := a.evaluateWindow(cmd, &flags, store, &candidate)
			if err != nil {
				return err
			}
			next, transitions, err := lifecycle.Observe(st, ev, a.now(), a.cfg.Lifecycle)
			if err != nil {
				return err
			}
			if ev.Decision != canary.DecisionInsufficientData {
				if err := store.SaveLifecycle(next, transitions); err != nil {
					return err
				}
			}
			for _, tr := range transitions {
				a.logger.Info("lifecycle transition",
					slog.String("from", string(tr.From)),
					slog.String("to", string(tr.To)),
					slog.String("reason", tr.Reason),
				)
			}

			payload, err := a.lifecyclePayload(store, transitions)
			if err != nil {
				return err
			}
			payload.Evaluation = &ev
			return a.emit("lifecycle", report.ExitCodeFor(next.LastOutcome == lifecycle.PhasePromoted && len(transitions) > 0), payload, "")
		},
	}
	flags.register(cmd)
	return cmd
}

func lifecycleAckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ack-escalation",
		Short: "Acknowledge an outstanding escalation after human review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			st, err := store.Lifecycle()
			if err != nil {
				return err
			}
			reason := st.EscalationReason
			next, err := lifecycle.AckEscalation(st, a.now())
			if err != nil {
				return err
			}
			if err := store.SaveLifecycle(next, nil); err != nil {
				return err
			}
			a.logger.Info("escalation acknowledged", slog.String("reason", reason))

			payload, err := a.lifecyclePayload(store, nil)
			if err != nil {
				return err
			}
			return a.emit("lifecycle", apperr.ExitFavorable, payload, "")
		},
	}
}
