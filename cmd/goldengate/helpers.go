package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/codec"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

// optionalFloat returns the flag value only when the user set it.
func optionalFloat(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

// generator picks the recorded backend when a recording is configured,
// otherwise dials the gRPC backend.
func (a *app) generator(recording string) (runner.Generator, func(), error) {
	if recording == "" {
		recording = a.cfg.Backend.Recording
	}
	if recording != "" {
		gen, err := runner.LoadRecording(recording)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug("using recorded backend", slog.String("path", recording))
		return gen, func() {}, nil
	}

	client, err := codec.NewClient(a.cfg.Backend.Addr, codec.WithRateLimit(a.cfg.Backend.RatePerSecond, a.cfg.Backend.Burst))
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("using grpc backend", slog.String("addr", a.cfg.Backend.Addr))
	return client, func() { client.Close() }, nil
}

func (a *app) loadCases(path string) ([]golden.TestCase, error) {
	if path == "" {
		path = a.cfg.Fixtures
	}
	set, err := golden.LoadCases(path)
	if err != nil {
		return nil, err
	}
	return set.Cases, nil
}

// windowFlags are shared by window and lifecycle observe.
type windowFlags struct {
	observations string
	days         int
	shadowFlaky  float64
	shadowNew    float64
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.observations, "observations", "", "Read observations from this JSON log instead of the run history")
	cmd.Flags().IntVar(&f.days, "days", 0, "Window length in days (default from config)")
	cmd.Flags().Float64Var(&f.shadowFlaky, "shadow-flaky-rate", 0, "Latest shadow flaky rate, percent")
	cmd.Flags().Float64Var(&f.shadowNew, "shadow-new-fail-ratio", 0, "Latest shadow new-failure ratio, percent")
}

func (f *windowFlags) shadow(cmd *cobra.Command) (*canary.ShadowMetrics, error) {
	flaky, newFail := cmd.Flags().Changed("shadow-flaky-rate"), cmd.Flags().Changed("shadow-new-fail-ratio")
	if flaky != newFail {
		return nil, apperr.NewValidationError("incomplete_shadow", "--shadow-flaky-rate and --shadow-new-fail-ratio must be given together")
	}
	if !flaky {
		return nil, nil
	}
	return &canary.ShadowMetrics{FlakyRate: f.shadowFlaky, NewFailRatio: f.shadowNew}, nil
}

// evaluateWindow gathers observations and runs the canary window evaluation.
func (a *app) evaluateWindow(cmd *cobra.Command, f *windowFlags, store *state.Store, candidate *float64) (canary.WindowEvaluation, error) {
	criteria := a.cfg.Canary
	if f.days > 0 {
		criteria.WindowDays = f.days
	}
	shadow, err := f.shadow(cmd)
	if err != nil {
		return canary.WindowEvaluation{}, err
	}

	var observations []canary.WindowObservation
	if f.observations != "" {
		log, err := canary.LoadObservations(f.observations)
		if err != nil {
			return canary.WindowEvaluation{}, err
		}
		observations = log.Observations
	} else {
		observations, err = store.Observations(a.now(), criteria.WindowDays)
		if err != nil {
			return canary.WindowEvaluation{}, err
		}
	}
	return canary.Evaluate(observations, a.now(), criteria, candidate, shadow)
}

// canaryCandidate returns the running canary's candidate threshold.
func canaryCandidate(st lifecycle.State) (float64, error) {
	if st.Phase != lifecycle.PhaseCanary || st.Candidate == nil {
		return 0, apperr.NewValidationError(lifecycle.CodeIllegalTransition, "no canary is running (phase %s)", st.Phase)
	}
	return *st.Candidate, nil
}
