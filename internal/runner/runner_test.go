package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
)

var testCases = []golden.TestCase{
	{ID: "c-capital", Input: "capital of France?", Reference: "Paris", Tags: []string{"geo"}},
	{ID: "a-boil", Input: "water boils at?", Reference: "100 °C", Tags: []string{"science"}},
	{ID: "b-sum", Input: "2+2?", Reference: "4", Tags: []string{"math"}},
}

// scripted answers per input; each call to an input consumes the next answer,
// the last answer repeats.
type scriptedGenerator struct {
	mu      sync.Mutex
	answers map[string][]string
	errs    map[string][]error
	calls   map[string]int
}

func newScripted() *scriptedGenerator {
	return &scriptedGenerator{answers: map[string][]string{}, errs: map[string][]error{}, calls: map[string]int{}}
}

func (g *scriptedGenerator) Generate(ctx context.Context, input string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.calls[input]
	g.calls[input]++
	if errs := g.errs[input]; n < len(errs) && errs[n] != nil {
		return "", errs[n]
	}
	answers := g.answers[input]
	if len(answers) == 0 {
		return "", errors.New("no answer scripted")
	}
	if n >= len(answers) {
		n = len(answers) - 1
	}
	return answers[n], nil
}

func (g *scriptedGenerator) callCount(input string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[input]
}

func correctScript() *scriptedGenerator {
	g := newScripted()
	for _, c := range testCases {
		g.answers[c.Input] = []string{c.Reference}
	}
	return g
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newTestRunner(gen Generator, cfg Config, opts ...Option) *Runner {
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewRunner(gen, eval.NewEvaluator(eval.DefaultMatchConfig()), cfg, opts...)
}

func TestRunAllPass(t *testing.T) {
	r := newTestRunner(correctScript(), fastConfig())

	out, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)

	snap := out.Snapshot
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3, snap.PassedCount)
	assert.Equal(t, 100.0, snap.WeightedPassRate)
	assert.Equal(t, 0.0, snap.FlakyRate)
	assert.Equal(t, 0.0, snap.NewFailRatio)
	assert.Empty(t, snap.RootCauseTags)
	assert.Equal(t, fixedNow, snap.Timestamp)
	assert.NotEmpty(t, snap.SnapshotID)

	require.Len(t, out.Results, 3)
	assert.Equal(t, "a-boil", out.Results[0].CaseID)
	assert.Equal(t, "b-sum", out.Results[1].CaseID)
	assert.Equal(t, "c-capital", out.Results[2].CaseID)
	for _, res := range out.Results {
		assert.Equal(t, 3, res.Repeats)
		assert.Equal(t, 3, res.PassedRepeats)
	}
}

func TestRunFlakyMajority(t *testing.T) {
	g := correctScript()
	g.answers["2+2?"] = []string{"9", "4", "4"}
	r := newTestRunner(g, fastConfig())

	out, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)

	res := out.Results[1]
	assert.Equal(t, "b-sum", res.CaseID)
	assert.True(t, res.Passed)
	assert.True(t, res.IsFlaky)
	assert.Equal(t, 2, res.PassedRepeats)
	// the representative repeat agrees with the majority
	assert.Equal(t, "4", res.Prediction)
	assert.InDelta(t, 100.0/3.0, out.Snapshot.FlakyRate, 1e-9)
}

func TestRunFlakyMinorityFailure(t *testing.T) {
	g := correctScript()
	g.answers["2+2?"] = []string{"4", "9", "9"}
	r := newTestRunner(g, fastConfig())

	out, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)

	res := out.Results[1]
	assert.False(t, res.Passed)
	assert.True(t, res.IsFlaky)
	assert.Equal(t, "9", res.Prediction)
}

func TestRunNewFailures(t *testing.T) {
	g := correctScript()
	g.answers["2+2?"] = []string{"9"}
	g.answers["capital of France?"] = []string{"Lyon"}
	r := newTestRunner(g, fastConfig())

	baseline := Baseline{"b-sum": true, "c-capital": false, "a-boil": true}
	out, err := r.Run(context.Background(), testCases, 0.72, baseline)
	require.NoError(t, err)

	assert.True(t, out.Results[1].IsNewFailure, "b-sum passed last run")
	assert.False(t, out.Results[2].IsNewFailure, "c-capital already failed last run")
	assert.Equal(t, 50.0, out.Snapshot.NewFailRatio)
	assert.Equal(t, []string{"geo", "math"}, out.Snapshot.RootCauseTags)
	assert.InDelta(t, 100.0/3.0, out.Snapshot.WeightedPassRate, 1e-9)
}

func TestRunPermanentErrorIsFailingResult(t *testing.T) {
	g := correctScript()
	g.errs["2+2?"] = []error{errors.New("invalid argument"), errors.New("invalid argument"), errors.New("invalid argument")}
	r := newTestRunner(g, fastConfig())

	out, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)

	res := out.Results[1]
	assert.False(t, res.Passed)
	assert.Contains(t, res.Error, "generation failed for case b-sum")
	// no retries for permanent errors: one call per repeat
	assert.Equal(t, 3, g.callCount("2+2?"))
}

func TestRunRetriesTransientErrors(t *testing.T) {
	g := correctScript()
	transient := apperr.NewTransientError(errors.New("unavailable"))
	g.errs["2+2?"] = []error{transient, transient}
	r := newTestRunner(g, fastConfig())

	out, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)

	res := out.Results[1]
	assert.True(t, res.Passed)
	assert.False(t, res.IsFlaky)
	// 2 transient failures + 1 success on the first repeat, then 1 call each
	assert.Equal(t, 5, g.callCount("2+2?"))
}

func TestRunTimeoutIsFailingResult(t *testing.T) {
	cfg := fastConfig()
	cfg.AttemptTimeout = 10 * time.Millisecond
	cfg.MaxAttempts = 1
	cfg.Repeats = 1
	gen := GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r := newTestRunner(gen, cfg)

	out, err := r.Run(context.Background(), testCases[:1], 0.72, nil)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.False(t, out.Results[0].Passed)
	assert.Contains(t, out.Results[0].Error, "deadline exceeded")
	assert.Equal(t, 0.0, out.Snapshot.WeightedPassRate)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestRunner(correctScript(), fastConfig())

	out, err := r.Run(ctx, testCases, 0.72, nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrRunCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "cancelled", apperr.Class(err))
}

func TestRunEvenRepeatsRoundedUp(t *testing.T) {
	cfg := fastConfig()
	cfg.Repeats = 2
	r := newTestRunner(correctScript(), cfg)

	out, err := r.Run(context.Background(), testCases[:1], 0.72, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Results[0].Repeats)
}

type countingObserver struct {
	calls, cases atomic.Int64
}

func (o *countingObserver) ObserveCall(time.Duration, error) { o.calls.Add(1) }
func (o *countingObserver) ObserveCase(CaseResult)           { o.cases.Add(1) }

func TestRunReportsToObserver(t *testing.T) {
	obs := &countingObserver{}
	r := newTestRunner(correctScript(), fastConfig(), WithObserver(obs))

	_, err := r.Run(context.Background(), testCases, 0.72, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), obs.cases.Load())
	assert.Equal(t, int64(9), obs.calls.Load())
}

func TestRecordedGenerator(t *testing.T) {
	gen := NewRecordedGenerator(Recording{
		Version: "1",
		Predictions: []RecordedPrediction{
			{Input: "capital of France?", Prediction: "Paris"},
		},
	})

	out, err := gen.Generate(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)

	_, err = gen.Generate(context.Background(), "unknown")
	assert.True(t, apperr.IsData(err))
	assert.False(t, apperr.IsTransient(err))
}

func TestRescoreDetectsDrift(t *testing.T) {
	stored := []CaseResult{
		{CaseID: "c-capital", Prediction: "Paris", Score: 1, Passed: true},
		{CaseID: "b-sum", Prediction: "4", Score: 1, Passed: true},
		{CaseID: "gone", Prediction: "x", Score: 1, Passed: true},
		{CaseID: "a-boil", Error: "generation failed for case a-boil: timeout"},
	}
	cases := []golden.TestCase{
		{ID: "c-capital", Reference: "Paris"},
		{ID: "b-sum", Reference: "9"},
		{ID: "a-boil", Reference: "100 °C"},
	}

	report := Rescore(eval.NewEvaluator(eval.DefaultMatchConfig()), cases, stored, 0.72)

	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Drifts, 2)
	assert.Equal(t, "b-sum", report.Drifts[0].CaseID)
	assert.False(t, report.Drifts[0].Passed)
	assert.Equal(t, "gone", report.Drifts[1].CaseID)
	assert.Equal(t, "case missing from fixtures", report.Drifts[1].Reason)
}
