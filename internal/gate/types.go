package gate

// #region signal-type
// SignalType enumerates abort categories.
type SignalType string

const (
	SignalPassRateFloor  SignalType = "pass_rate_floor"
	SignalNewFailCeiling SignalType = "new_fail_ceiling"
	SignalNonFinite      SignalType = "non_finite_metric"
)

// #endregion signal-type

// #region abort-signal
// AbortSignal represents one tripped abort condition.
type AbortSignal struct {
	Type   SignalType `json:"type"`
	Reason string     `json:"reason"`
}

// #endregion abort-signal

// #region guard-config
// GuardConfig holds the hard limits for experimental runs. Rates are percentages.
type GuardConfig struct {
	HardMinPassRate     float64 `yaml:"hard_min_pass_rate"`      // abort below this pass rate
	HardMaxNewFailRatio float64 `yaml:"hard_max_new_fail_ratio"` // abort above this new-failure ratio
}

// DefaultGuardConfig returns the standard experimental-PR limits.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		HardMinPassRate:     65,
		HardMaxNewFailRatio: 70,
	}
}

// #endregion guard-config

// #region metrics
// Metrics are the single-run values the guard inspects.
type Metrics struct {
	PassRate     float64 `json:"pass_rate"`
	NewFailRatio float64 `json:"new_fail_ratio"`
}

// #endregion metrics

// #region verdict
// AbortVerdict is the output of the guard.
type AbortVerdict struct {
	Abort   bool          `json:"abort"`
	Reason  string        `json:"reason"`
	Signals []AbortSignal `json:"signals"` // non-empty if aborted
	Metrics Metrics       `json:"metrics"`
}

// #endregion verdict
