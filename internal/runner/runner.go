package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
)

// #region runner
// Runner executes golden cases against a generator and scores them.
type Runner struct {
	gen       Generator
	evaluator *eval.Evaluator
	config    Config
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithObserver attaches run telemetry.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner. Non-positive config fields fall back to defaults;
// an even repeat count is rounded up so a majority always exists.
func NewRunner(gen Generator, evaluator *eval.Evaluator, config Config, opts ...Option) *Runner {
	def := DefaultConfig()
	if config.Repeats <= 0 {
		config.Repeats = def.Repeats
	}
	if config.Repeats%2 == 0 {
		config.Repeats++
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = def.AttemptTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	r := &Runner{
		gen:       gen,
		evaluator: evaluator,
		config:    config,
		observer:  nopObserver{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "runner"))
	return r
}

// Run executes every case and aggregates a snapshot at the given threshold.
// Per-case generation failures become failing results; only cancellation
// aborts the run, in which case ErrRunCancelled is returned.
func (r *Runner) Run(ctx context.Context, cases []golden.TestCase, threshold float64, baseline Baseline) (*Outcome, error) {
	results := make([]CaseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, c := range cases {
		if ctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runCase(gctx, c, threshold, baseline)
			r.observer.ObserveCase(results[i])
			return nil
		})
	}
	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		r.logger.Warn("run cancelled, discarding results", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}
	if waitErr != nil {
		return nil, waitErr
	}

	snap := Aggregate(results, threshold, r.config.TagWeights)
	snap.SnapshotID = uuid.New().String()
	snap.Timestamp = r.now().UTC()

	r.logger.Info("run complete",
		slog.String("snapshot_id", snap.SnapshotID),
		slog.Int("total", snap.Total),
		slog.Int("passed", snap.PassedCount),
		slog.Float64("weighted_pass_rate", snap.WeightedPassRate),
		slog.Float64("flaky_rate", snap.FlakyRate),
	)

	return &Outcome{Snapshot: snap, Results: sortedByID(results)}, nil
}

// #endregion runner

// #region case
type repeatResult struct {
	prediction string
	score      float64
	passed     bool
	errText    string
}

// runCase runs the repeats of one case sequentially and applies majority vote.
func (r *Runner) runCase(ctx context.Context, c golden.TestCase, threshold float64, baseline Baseline) CaseResult {
	repeats := make([]repeatResult, 0, r.config.Repeats)
	passes := 0
	for k := 0; k < r.config.Repeats; k++ {
		rep := r.runRepeat(ctx, c, threshold)
		if rep.passed {
			passes++
		}
		repeats = append(repeats, rep)
	}

	majority := passes*2 > len(repeats)
	rep := repeats[0]
	for _, candidate := range repeats {
		if candidate.passed == majority {
			rep = candidate
			break
		}
	}

	res := CaseResult{
		CaseID:        c.ID,
		Prediction:    rep.prediction,
		Score:         rep.score,
		Passed:        majority,
		IsNewFailure:  !majority && baseline[c.ID],
		IsFlaky:       passes != 0 && passes != len(repeats),
		Repeats:       len(repeats),
		PassedRepeats: passes,
		Tags:          append([]string(nil), c.Tags...),
		Error:         rep.errText,
	}
	if !res.Passed {
		r.logger.Debug("case failed",
			slog.String("case_id", c.ID),
			slog.Float64("score", res.Score),
			slog.Bool("flaky", res.IsFlaky),
			slog.String("error", res.Error),
		)
	}
	return res
}

func (r *Runner) runRepeat(ctx context.Context, c golden.TestCase, threshold float64) repeatResult {
	prediction, err := r.generate(ctx, c.Input)
	if err != nil {
		return repeatResult{errText: apperr.NewGenerationError(c.ID, err).Error()}
	}
	m := r.evaluator.Match(c.Reference, prediction)
	return repeatResult{
		prediction: prediction,
		score:      m.Score,
		passed:     m.Error == "" && m.Score >= threshold,
		errText:    m.Error,
	}
}

// #endregion case

// #region retry
// generate calls the backend with a per-attempt timeout, retrying transient
// failures with exponential backoff.
func (r *Runner) generate(ctx context.Context, input string) (string, error) {
	attempt := func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
		defer cancel()

		start := time.Now()
		out, err := r.gen.Generate(attemptCtx, input)
		r.observer.ObserveCall(time.Since(start), err)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", backoff.Permanent(ctxErr)
		}
		if apperr.IsTransient(err) {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.config.InitialBackoff
	expo.MaxInterval = r.config.MaxBackoff
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(r.config.MaxAttempts-1)), ctx)

	return backoff.RetryWithData(attempt, policy)
}

// #endregion retry
