package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/promotion"
)

// Validation codes for refused transitions.
const (
	CodeIllegalTransition     = "illegal_transition"
	CodeEscalationOutstanding = "escalation_outstanding"
	CodeInvalidDecision       = "invalid_decision"
	CodeStaleDecision         = "stale_decision"
	CodeCandidateMismatch     = "candidate_mismatch"
	CodeNoEscalation          = "no_escalation"
)

// #region initial
// Initial returns a STABLE lifecycle at threshold.
func Initial(threshold float64, now time.Time) State {
	return State{Phase: PhaseStable, Threshold: threshold, UpdatedAt: now.UTC()}
}

// #endregion initial

// #region open-canary
// OpenCanary moves STABLE(θ) to CANARY(θ, target). The decision must be valid
// and computed from the current θ, and no escalation may be outstanding.
func OpenCanary(s State, d promotion.PromotionDecision, now time.Time) (State, Transition, error) {
	if s.Phase != PhaseStable {
		return s, Transition{}, apperr.NewValidationError(CodeIllegalTransition, "cannot open a canary from %s", s.Phase)
	}
	if s.Escalated {
		return s, Transition{}, apperr.NewValidationError(CodeEscalationOutstanding,
			"escalation outstanding (%s); acknowledge it first", s.EscalationReason)
	}
	if !d.Valid {
		return s, Transition{}, apperr.NewValidationError(CodeInvalidDecision, "decision is not valid: %s", d.Reason)
	}
	if !sameThreshold(d.Current, s.Threshold) {
		return s, Transition{}, apperr.NewValidationError(CodeStaleDecision,
			"decision was computed from %.4f but the threshold is %.4f", d.Current, s.Threshold)
	}

	next := s
	target := d.Target
	started := now.UTC()
	next.Phase = PhaseCanary
	next.Candidate = &target
	next.CanaryStartedAt = &started
	next.LastObservedAt = nil
	next.ConsecutiveFailures = 0
	next.UpdatedAt = started

	return next, Transition{
		From:      PhaseStable,
		To:        PhaseCanary,
		Threshold: target,
		Reason:    fmt.Sprintf("canary opened %.2f -> %.2f", s.Threshold, target),
		At:        started,
	}, nil
}

// #endregion open-canary

// #region observe
// Observe applies one window evaluation to a running canary. promote settles
// into STABLE(θ_next); continue_canary counts a failed cycle and rolls back at
// the escalation count or past the max duration; insufficient_data changes
// nothing. A continue_canary whose newest observation was already counted is
// the same cycle seen again and changes nothing either.
func Observe(s State, ev canary.WindowEvaluation, now time.Time, cfg Config) (State, []Transition, error) {
	if s.Phase != PhaseCanary || s.Candidate == nil {
		return s, nil, apperr.NewValidationError(CodeIllegalTransition, "no canary is running (phase %s)", s.Phase)
	}
	if ev.Candidate != nil && !sameThreshold(*ev.Candidate, *s.Candidate) {
		return s, nil, apperr.NewValidationError(CodeCandidateMismatch,
			"evaluation is for %.4f but the canary is %.4f", *ev.Candidate, *s.Candidate)
	}
	if cfg.EscalationCount <= 0 {
		cfg.EscalationCount = DefaultConfig().EscalationCount
	}
	if cfg.MaxCanaryDuration <= 0 {
		cfg.MaxCanaryDuration = DefaultConfig().MaxCanaryDuration
	}
	at := now.UTC()

	switch ev.Decision {
	case canary.DecisionInsufficientData:
		return s, nil, nil

	case canary.DecisionPromote:
		promoted := *s.Candidate
		next := settle(s, promoted, PhasePromoted, at)
		return next, []Transition{
			{From: PhaseCanary, To: PhasePromoted, Threshold: promoted, Reason: ev.DecisionReason, At: at},
			{From: PhasePromoted, To: PhaseStable, Threshold: promoted, Reason: "promotion settled", At: at},
		}, nil

	case canary.DecisionContinueCanary:
		latest := ev.Period.Latest
		if latest != nil && s.LastObservedAt != nil && !latest.After(*s.LastObservedAt) {
			return s, nil, nil
		}
		next := s
		next.ConsecutiveFailures++
		next.UpdatedAt = at
		if latest != nil {
			l := latest.UTC()
			next.LastObservedAt = &l
		}

		var reason string
		switch {
		case next.ConsecutiveFailures >= cfg.EscalationCount:
			reason = fmt.Sprintf("%d consecutive failed windows: %s", next.ConsecutiveFailures, ev.DecisionReason)
			next.Escalated = true
			next.EscalationReason = reason
		case s.CanaryStartedAt != nil && at.Sub(*s.CanaryStartedAt) > cfg.MaxCanaryDuration:
			reason = fmt.Sprintf("canary exceeded max duration %s: %s", cfg.MaxCanaryDuration, ev.DecisionReason)
		default:
			return next, nil, nil
		}

		rolled := settle(next, s.Threshold, PhaseRolledBack, at)
		return rolled, []Transition{
			{From: PhaseCanary, To: PhaseRolledBack, Threshold: s.Threshold, Reason: reason, At: at},
			{From: PhaseRolledBack, To: PhaseStable, Threshold: s.Threshold, Reason: "rollback settled", At: at},
		}, nil

	default:
		return s, nil, apperr.DataErrorf("unknown window decision %q", ev.Decision)
	}
}

// settle ends a canary in outcome and returns to STABLE at threshold.
func settle(s State, threshold float64, outcome Phase, at time.Time) State {
	s.Phase = PhaseStable
	s.Threshold = threshold
	s.Candidate = nil
	s.CanaryStartedAt = nil
	s.LastObservedAt = nil
	s.ConsecutiveFailures = 0
	s.LastOutcome = outcome
	s.UpdatedAt = at
	return s
}

// #endregion observe

// #region ack
// AckEscalation clears an outstanding escalation after human review.
func AckEscalation(s State, now time.Time) (State, error) {
	if !s.Escalated {
		return s, apperr.NewValidationError(CodeNoEscalation, "no escalation is outstanding")
	}
	s.Escalated = false
	s.EscalationReason = ""
	s.UpdatedAt = now.UTC()
	return s, nil
}

// #endregion ack

func sameThreshold(a, b float64) bool {
	return math.Round(a*10000) == math.Round(b*10000)
}
