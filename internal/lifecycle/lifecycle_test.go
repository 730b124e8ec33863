package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/promotion"
)

var t0 = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func validDecision(current, target float64) promotion.PromotionDecision {
	return promotion.PromotionDecision{Current: current, Target: target, Valid: true, Reason: promotion.ReasonOK}
}

func window(decision string) canary.WindowEvaluation {
	return canary.WindowEvaluation{Decision: decision, DecisionReason: "reason for " + decision}
}

func openedCanary(t *testing.T) State {
	t.Helper()
	s, tr, err := OpenCanary(Initial(0.70, t0), validDecision(0.70, 0.72), t0)
	require.NoError(t, err)
	assert.Equal(t, PhaseStable, tr.From)
	assert.Equal(t, PhaseCanary, tr.To)
	return s
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	require.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Code
}

func TestOpenCanary(t *testing.T) {
	s := openedCanary(t)

	assert.Equal(t, PhaseCanary, s.Phase)
	assert.Equal(t, 0.70, s.Threshold)
	require.NotNil(t, s.Candidate)
	assert.Equal(t, 0.72, *s.Candidate)
	require.NotNil(t, s.CanaryStartedAt)
	assert.Equal(t, t0, *s.CanaryStartedAt)
}

func TestOpenCanaryRefusals(t *testing.T) {
	stable := Initial(0.70, t0)

	_, _, err := OpenCanary(stable, promotion.PromotionDecision{Current: 0.70, Target: 0.80, Reason: promotion.ReasonOvershoot}, t0)
	assert.Equal(t, CodeInvalidDecision, codeOf(t, err))

	_, _, err = OpenCanary(stable, validDecision(0.68, 0.70), t0)
	assert.Equal(t, CodeStaleDecision, codeOf(t, err))

	escalated := stable
	escalated.Escalated = true
	_, _, err = OpenCanary(escalated, validDecision(0.70, 0.72), t0)
	assert.Equal(t, CodeEscalationOutstanding, codeOf(t, err))

	_, _, err = OpenCanary(openedCanary(t), validDecision(0.70, 0.72), t0)
	assert.Equal(t, CodeIllegalTransition, codeOf(t, err))
}

func TestObservePromoteSettlesToStable(t *testing.T) {
	s := openedCanary(t)

	next, trs, err := Observe(s, window(canary.DecisionPromote), t0.Add(24*time.Hour), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, PhaseStable, next.Phase)
	assert.Equal(t, 0.72, next.Threshold)
	assert.Nil(t, next.Candidate)
	assert.Equal(t, PhasePromoted, next.LastOutcome)
	require.Len(t, trs, 2)
	assert.Equal(t, PhasePromoted, trs[0].To)
	assert.Equal(t, PhaseStable, trs[1].To)
}

func TestObserveInsufficientDataNeverTransitions(t *testing.T) {
	s := openedCanary(t)

	next, trs, err := Observe(s, window(canary.DecisionInsufficientData), t0.Add(30*24*time.Hour), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, trs)
	assert.Equal(t, s, next)
}

func TestObserveRollsBackAfterConsecutiveFailures(t *testing.T) {
	s := openedCanary(t)

	s, trs, err := Observe(s, window(canary.DecisionContinueCanary), t0.Add(24*time.Hour), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, trs)
	assert.Equal(t, PhaseCanary, s.Phase)
	assert.Equal(t, 1, s.ConsecutiveFailures)
	assert.False(t, s.Escalated)

	s, trs, err = Observe(s, window(canary.DecisionContinueCanary), t0.Add(48*time.Hour), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, PhaseRolledBack, trs[0].To)
	assert.Equal(t, PhaseStable, s.Phase)
	assert.Equal(t, 0.70, s.Threshold, "rollback keeps the previous threshold")
	assert.Equal(t, PhaseRolledBack, s.LastOutcome)
	assert.True(t, s.Escalated)
	assert.Contains(t, s.EscalationReason, "2 consecutive failed windows")

	_, _, err = OpenCanary(s, validDecision(0.70, 0.72), t0.Add(72*time.Hour))
	assert.Equal(t, CodeEscalationOutstanding, codeOf(t, err))

	s, err = AckEscalation(s, t0.Add(72*time.Hour))
	require.NoError(t, err)
	assert.False(t, s.Escalated)

	_, _, err = OpenCanary(s, validDecision(0.70, 0.72), t0.Add(72*time.Hour))
	assert.NoError(t, err)
}

func windowAt(decision string, latest time.Time) canary.WindowEvaluation {
	ev := window(decision)
	ev.Period.Latest = &latest
	return ev
}

func TestObserveSameWindowCountsOnce(t *testing.T) {
	cfg := DefaultConfig()
	s := openedCanary(t)
	day1 := t0.Add(24 * time.Hour)

	s, trs, err := Observe(s, windowAt(canary.DecisionContinueCanary, day1), day1.Add(time.Hour), cfg)
	require.NoError(t, err)
	assert.Empty(t, trs)
	assert.Equal(t, 1, s.ConsecutiveFailures)
	require.NotNil(t, s.LastObservedAt)
	assert.Equal(t, day1, *s.LastObservedAt)

	// re-running over unchanged data is not a new cycle
	again, trs, err := Observe(s, windowAt(canary.DecisionContinueCanary, day1), day1.Add(2*time.Hour), cfg)
	require.NoError(t, err)
	assert.Empty(t, trs)
	assert.Equal(t, s, again)

	day2 := day1.Add(24 * time.Hour)
	s, trs, err = Observe(again, windowAt(canary.DecisionContinueCanary, day2), day2.Add(time.Hour), cfg)
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, PhaseRolledBack, trs[0].To)
	assert.True(t, s.Escalated)
	assert.Nil(t, s.LastObservedAt)
}

func TestObserveRollsBackPastMaxDuration(t *testing.T) {
	s := openedCanary(t)

	next, trs, err := Observe(s, window(canary.DecisionContinueCanary), t0.Add(15*24*time.Hour), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, PhaseStable, next.Phase)
	assert.False(t, next.Escalated)
	assert.Contains(t, trs[0].Reason, "exceeded max duration")
}

func TestObserveRefusals(t *testing.T) {
	_, _, err := Observe(Initial(0.70, t0), window(canary.DecisionPromote), t0, DefaultConfig())
	assert.Equal(t, CodeIllegalTransition, codeOf(t, err))

	ev := window(canary.DecisionPromote)
	other := 0.74
	ev.Candidate = &other
	_, _, err = Observe(openedCanary(t), ev, t0, DefaultConfig())
	assert.Equal(t, CodeCandidateMismatch, codeOf(t, err))

	_, _, err = Observe(openedCanary(t), window("ship_it"), t0, DefaultConfig())
	assert.True(t, apperr.IsData(err))
}

func TestAckWithoutEscalation(t *testing.T) {
	_, err := AckEscalation(Initial(0.70, t0), t0)
	assert.Equal(t, CodeNoEscalation, codeOf(t, err))
}

func TestPhaseValid(t *testing.T) {
	assert.True(t, PhaseRolledBack.Valid())
	assert.False(t, Phase("PAUSED").Valid())
}
