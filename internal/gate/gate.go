package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

// #region guard
// Guard is the fast single-run circuit breaker for experimental PRs. It is
// more permissive than the canary window and has no side effects.
type Guard struct {
	config GuardConfig
}

// NewGuard creates a guard with the given limits.
func NewGuard(config GuardConfig) *Guard {
	return &Guard{config: config}
}

// Evaluate checks the metrics against the configured limits.
func (g *Guard) Evaluate(m Metrics) AbortVerdict {
	return Check(m, g.config)
}

// Check is the pure form of the guard: abort when the pass rate is below the
// floor or the new-failure ratio above the ceiling. Non-finite metrics always
// abort.
func Check(m Metrics, config GuardConfig) AbortVerdict {
	var signals []AbortSignal

	// 1. Non-finite input cannot be judged; fail safe.
	for _, v := range []struct {
		name  string
		value float64
	}{{"pass_rate", m.PassRate}, {"new_fail_ratio", m.NewFailRatio}} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			signals = append(signals, AbortSignal{
				Type:   SignalNonFinite,
				Reason: fmt.Sprintf("%s is not finite (%v)", v.name, v.value),
			})
		}
	}

	// 2. Pass rate floor
	if m.PassRate < config.HardMinPassRate {
		signals = append(signals, AbortSignal{
			Type:   SignalPassRateFloor,
			Reason: fmt.Sprintf("Pass Rate %.1f%% < %s%%", m.PassRate, formatLimit(config.HardMinPassRate)),
		})
	}

	// 3. New failure ceiling
	if m.NewFailRatio > config.HardMaxNewFailRatio {
		signals = append(signals, AbortSignal{
			Type:   SignalNewFailCeiling,
			Reason: fmt.Sprintf("New Fail Ratio %.1f%% > %s%%", m.NewFailRatio, formatLimit(config.HardMaxNewFailRatio)),
		})
	}

	if len(signals) > 0 {
		reasons := make([]string, len(signals))
		for i, s := range signals {
			reasons[i] = s.Reason
		}
		return AbortVerdict{
			Abort:   true,
			Reason:  strings.Join(reasons, "; "),
			Signals: signals,
			Metrics: m,
		}
	}

	return AbortVerdict{
		Abort: false,
		Reason: fmt.Sprintf("Pass Rate %.1f%% >= %s%%, New Fail Ratio %.1f%% <= %s%%",
			m.PassRate, formatLimit(config.HardMinPassRate),
			m.NewFailRatio, formatLimit(config.HardMaxNewFailRatio)),
		Signals: []AbortSignal{},
		Metrics: m,
	}
}

// MetricsFromSnapshot extracts the guard inputs from a run snapshot.
func MetricsFromSnapshot(s runner.RunSnapshot) Metrics {
	return Metrics{PassRate: s.WeightedPassRate, NewFailRatio: s.NewFailRatio}
}

// #endregion guard

// #region helpers
// formatLimit prints limits without trailing zeros: 65 not 65.0.
func formatLimit(v float64) string {
	return fmt.Sprintf("%g", v)
}

// #endregion helpers
