package state

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/promotion"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func outcome(id string, at time.Time, passRate float64) *runner.Outcome {
	return &runner.Outcome{
		Snapshot: runner.RunSnapshot{
			SnapshotID:       id,
			Timestamp:        at,
			Threshold:        0.7,
			Total:            2,
			PassedCount:      1,
			WeightedPassRate: passRate,
			NewFailRatio:     100,
			FlakyRate:        50,
			RootCauseTags:    []string{"math"},
		},
		Results: []runner.CaseResult{
			{CaseID: "a", Prediction: "Paris", Score: 1, Passed: true, Repeats: 3, PassedRepeats: 3, Tags: []string{"geo"}},
			{CaseID: "b", Prediction: "5", Score: 0, IsNewFailure: true, IsFlaky: true, Repeats: 3, PassedRepeats: 1, Tags: []string{"math"}},
		},
	}
}

func TestInitAndThreshold(t *testing.T) {
	s := tempDB(t)

	_, err := s.Threshold()
	assert.True(t, apperr.IsData(err), "uninitialized store is a data error")

	st, err := s.Init(0.70, now)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PhaseStable, st.Phase)

	th, err := s.Threshold()
	require.NoError(t, err)
	assert.Equal(t, 0.70, th.ConfigValue)
	assert.Equal(t, "init", th.Source)
	assert.Equal(t, now, th.UpdatedAt)

	_, err = s.Init(0.72, now)
	assert.True(t, apperr.IsValidation(err))

	_, err = tempDB(t).Init(1.5, now)
	assert.True(t, apperr.IsValidation(err))
}

func TestCommitAndReadRun(t *testing.T) {
	s := tempDB(t)

	_, err := s.LatestRun()
	assert.ErrorIs(t, err, ErrNoSnapshots)
	baseline, err := s.Baseline()
	require.NoError(t, err)
	assert.Nil(t, baseline)

	require.NoError(t, s.CommitRun(outcome("s1", now.Add(-time.Hour), 50)))
	require.NoError(t, s.CommitRun(outcome("s2", now, 60)))

	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "s2", latest.Snapshot.SnapshotID)
	assert.Equal(t, now, latest.Snapshot.Timestamp)
	assert.Equal(t, []string{"math"}, latest.Snapshot.RootCauseTags)
	require.Len(t, latest.Results, 2)
	assert.Equal(t, outcome("s2", now, 60).Results, latest.Results)

	baseline, err = s.Baseline()
	require.NoError(t, err)
	assert.Equal(t, runner.Baseline{"a": true, "b": false}, baseline)

	hist, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "s2", hist[0].SnapshotID)
	assert.Equal(t, "s1", hist[1].SnapshotID)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	s := tempDB(t)
	require.NoError(t, s.CommitRun(outcome("s1", now, 50)))

	_, err := s.db.Exec(`UPDATE run_snapshots SET weighted_pass_rate = 99`)
	assert.ErrorContains(t, err, "append-only")
	_, err = s.db.Exec(`DELETE FROM run_snapshots`)
	assert.ErrorContains(t, err, "append-only")
	_, err = s.db.Exec(`UPDATE case_results SET passed = 1`)
	assert.ErrorContains(t, err, "append-only")

	// duplicate snapshot ids are rejected and nothing partial is written
	assert.Error(t, s.CommitRun(outcome("s1", now, 70)))
	hist, err := s.History(10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestCommitRunRefusesInvalidRows(t *testing.T) {
	s := tempDB(t)
	require.NoError(t, s.CommitRun(outcome("good", now.Add(-time.Hour), 50)))

	for _, th := range []float64{5, -0.1, math.NaN()} {
		bad := outcome(fmt.Sprintf("bad-%v", th), now, 50)
		bad.Snapshot.Threshold = th
		err := s.CommitRun(bad)
		assert.True(t, apperr.IsData(err), "threshold %v: %v", th, err)
	}

	badCase := outcome("bad-case", now, 50)
	badCase.Results[1].PassedRepeats = 4
	assert.True(t, apperr.IsData(s.CommitRun(badCase)))

	// the history stays readable
	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "good", latest.Snapshot.SnapshotID)
	hist, err := s.History(10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	_, err = s.db.Exec(`INSERT INTO run_snapshots (snapshot_id, created_at, threshold, total, passed_count,
		weighted_pass_rate, new_fail_ratio, flaky_rate, root_cause_tags)
		VALUES ('raw', '2026-10-17T09:00:00.000000000Z', 5, 1, 1, 50, 0, 0, '[]')`)
	assert.ErrorContains(t, err, "CHECK")
}

func TestCorruptRowsAreDataErrors(t *testing.T) {
	s := tempDB(t)
	_, err := s.db.Exec(`INSERT INTO run_snapshots (snapshot_id, created_at, threshold, total, passed_count,
		weighted_pass_rate, new_fail_ratio, flaky_rate, root_cause_tags)
		VALUES ('bad', '2026-10-17T09:00:00.000000000Z', 0.7, 1, 1, 250, 0, 0, '[]')`)
	require.NoError(t, err)

	_, err = s.LatestRun()
	assert.True(t, apperr.IsData(err), "rate out of range: %v", err)

	s2 := tempDB(t)
	_, err = s2.db.Exec(`INSERT INTO run_snapshots (snapshot_id, created_at, threshold, total, passed_count,
		weighted_pass_rate, new_fail_ratio, flaky_rate, root_cause_tags)
		VALUES ('bad', 'yesterday', 0.7, 1, 1, 50, 0, 0, '[]')`)
	require.NoError(t, err)
	_, err = s2.History(5)
	assert.True(t, apperr.IsData(err), "corrupt timestamp: %v", err)
}

func TestObservationsFromSnapshots(t *testing.T) {
	s := tempDB(t)
	require.NoError(t, s.CommitRun(outcome("old", now.AddDate(0, 0, -9), 40)))
	require.NoError(t, s.CommitRun(outcome("d2", now.AddDate(0, 0, -2), 88)))
	require.NoError(t, s.CommitRun(outcome("d1", now.AddDate(0, 0, -1), 92)))

	obs, err := s.Observations(now, 7)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 88.0, obs[0].PassRate)
	assert.Equal(t, 92.0, obs[1].PassRate)
	require.NotNil(t, obs[0].FlakyRate)
	assert.Equal(t, 50.0, *obs[0].FlakyRate)

	ev, err := canary.Evaluate(obs, now, canary.DefaultCriteria(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Period.Observations)
	require.NotNil(t, ev.Period.Latest)
	assert.Equal(t, now.AddDate(0, 0, -1), *ev.Period.Latest)
}

func TestLifecycleRoundTrip(t *testing.T) {
	s := tempDB(t)
	st, err := s.Init(0.70, now)
	require.NoError(t, err)

	opened, tr, err := lifecycle.OpenCanary(st, promotion.PromotionDecision{Current: 0.70, Target: 0.72, Valid: true}, now)
	require.NoError(t, err)
	require.NoError(t, s.SaveLifecycle(opened, []lifecycle.Transition{tr}))

	got, err := s.Lifecycle()
	require.NoError(t, err)
	assert.Equal(t, opened, got)

	th, err := s.Threshold()
	require.NoError(t, err)
	assert.Equal(t, 0.70, th.ConfigValue, "opening a canary does not move the threshold")

	promoted, trs, err := lifecycle.Observe(got, canary.WindowEvaluation{Decision: canary.DecisionPromote, DecisionReason: "all conditions met"},
		now.Add(24*time.Hour), lifecycle.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.SaveLifecycle(promoted, trs))

	th, err = s.Threshold()
	require.NoError(t, err)
	assert.Equal(t, 0.72, th.ConfigValue)
	assert.Equal(t, "lifecycle:PROMOTED", th.Source)

	history, err := s.Transitions(10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, lifecycle.PhaseStable, history[0].To)
	assert.Equal(t, lifecycle.PhaseCanary, history[2].To)
}

func TestLifecycleKeepsLastObservation(t *testing.T) {
	s := tempDB(t)
	st, err := s.Init(0.70, now)
	require.NoError(t, err)
	opened, tr, err := lifecycle.OpenCanary(st, promotion.PromotionDecision{Current: 0.70, Target: 0.72, Valid: true}, now)
	require.NoError(t, err)
	require.NoError(t, s.SaveLifecycle(opened, []lifecycle.Transition{tr}))

	observed := now.Add(20 * time.Hour)
	ev := canary.WindowEvaluation{Decision: canary.DecisionContinueCanary, Period: canary.Period{Latest: &observed}}
	failed, trs, err := lifecycle.Observe(opened, ev, now.Add(24*time.Hour), lifecycle.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.SaveLifecycle(failed, trs))

	got, err := s.Lifecycle()
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConsecutiveFailures)
	require.NotNil(t, got.LastObservedAt)
	assert.Equal(t, observed, *got.LastObservedAt)

	// the same window read back from the store is not counted again
	again, trs, err := lifecycle.Observe(got, ev, now.Add(25*time.Hour), lifecycle.DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, trs)
	assert.Equal(t, 1, again.ConsecutiveFailures)
}

func TestCorruptLifecyclePhase(t *testing.T) {
	s := tempDB(t)
	_, err := s.Init(0.70, now)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE lifecycle_state SET phase = 'PAUSED' WHERE id = 1`)
	require.NoError(t, err)

	_, err = s.Lifecycle()
	assert.True(t, apperr.IsData(err))
}
