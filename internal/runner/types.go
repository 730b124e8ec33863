package runner

import (
	"context"
	"errors"
	"time"
)

// ErrRunCancelled is returned when the run context is cancelled before every
// case finished. A cancelled run produces no snapshot and nothing is committed.
var ErrRunCancelled = errors.New("run cancelled")

// #region generator
// Generator produces a prediction for one case input. Implementations must be
// safe for concurrent use. Errors wrapped with apperr.NewTransientError (or
// deadline errors) are retried; anything else fails the repeat immediately.
type Generator interface {
	Generate(ctx context.Context, input string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, input string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// #endregion generator

// #region config
// Config controls repeats, concurrency and retry behavior of a run.
type Config struct {
	Repeats        int                `yaml:"repeats"`         // odd, majority vote across repeats
	Workers        int                `yaml:"workers"`         // bounded worker pool size
	AttemptTimeout time.Duration      `yaml:"attempt_timeout"` // per generation attempt
	MaxAttempts    int                `yaml:"max_attempts"`    // including the first attempt
	InitialBackoff time.Duration      `yaml:"initial_backoff"`
	MaxBackoff     time.Duration      `yaml:"max_backoff"`
	TagWeights     map[string]float64 `yaml:"tag_weights"` // case weight = max weight of its tags, default 1
}

// DefaultConfig returns the standard runner settings.
func DefaultConfig() Config {
	return Config{
		Repeats:        3,
		Workers:        4,
		AttemptTimeout: 30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// #endregion config

// #region results
// CaseResult is the immutable outcome of one case in one run.
type CaseResult struct {
	CaseID        string   `json:"case_id"`
	Prediction    string   `json:"prediction"`
	Score         float64  `json:"score"`
	Passed        bool     `json:"passed"`
	IsNewFailure  bool     `json:"is_new_failure"`
	IsFlaky       bool     `json:"is_flaky"`
	Repeats       int      `json:"repeats"`
	PassedRepeats int      `json:"passed_repeats"`
	Tags          []string `json:"tags,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// RunSnapshot summarizes one run. Rates are percentages in [0,100].
type RunSnapshot struct {
	SnapshotID       string    `json:"snapshot_id"`
	Timestamp        time.Time `json:"timestamp"`
	Threshold        float64   `json:"threshold"`
	Total            int       `json:"total"`
	PassedCount      int       `json:"passed_count"`
	WeightedPassRate float64   `json:"weighted_pass_rate"`
	NewFailRatio     float64   `json:"new_fail_ratio"`
	FlakyRate        float64   `json:"flaky_rate"`
	RootCauseTags    []string  `json:"root_cause_tags"`
}

// Outcome is a finished run: the snapshot plus every case result, ordered by case ID.
type Outcome struct {
	Snapshot RunSnapshot  `json:"snapshot"`
	Results  []CaseResult `json:"results"`
}

// Baseline maps case IDs to their pass status in the last committed snapshot.
// A nil baseline means there is no prior run and no case is a new failure.
type Baseline map[string]bool

// #endregion results

// #region observer
// Observer receives run telemetry. The metrics package provides the
// Prometheus-backed implementation.
type Observer interface {
	ObserveCall(elapsed time.Duration, err error)
	ObserveCase(result CaseResult)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(time.Duration, error) {}
func (nopObserver) ObserveCase(CaseResult)           {}

// #endregion observer
