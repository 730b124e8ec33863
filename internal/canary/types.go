package canary

import "time"

// #region decisions
const (
	DecisionPromote          = "promote"
	DecisionContinueCanary   = "continue_canary"
	DecisionInsufficientData = "insufficient_data"
)

// #endregion decisions

// #region criteria
// Criteria are the promotion conditions and window bounds. Rates are percentages.
type Criteria struct {
	MinAvgPassRate     float64 `yaml:"min_avg_pass_rate"`      // avg_pass_rate >= this
	MinPassRate        float64 `yaml:"min_pass_rate"`          // min_pass_rate >= this
	MaxAvgFlakyRate    float64 `yaml:"max_avg_flaky_rate"`     // avg_flaky_rate < this (strict)
	MaxAvgNewFailRatio float64 `yaml:"max_avg_new_fail_ratio"` // avg_new_fail_ratio <= this
	WindowDays         int     `yaml:"window_days"`
	MinObservations    int     `yaml:"min_observations"`
}

// DefaultCriteria returns the standard canary window criteria.
func DefaultCriteria() Criteria {
	return Criteria{
		MinAvgPassRate:     85,
		MinPassRate:        80,
		MaxAvgFlakyRate:    5,
		MaxAvgNewFailRatio: 60,
		WindowDays:         7,
		MinObservations:    1,
	}
}

// #endregion criteria

// #region observation
// WindowObservation is one day's canary result at a candidate threshold.
// FlakyRate and NewFailRatio are optional per observation.
type WindowObservation struct {
	Date         time.Time `json:"date" validate:"required"`
	PassRate     float64   `json:"pass_rate" validate:"gte=0,lte=100"`
	Passed       int       `json:"passed" validate:"gte=0,ltefield=Total"`
	Total        int       `json:"total" validate:"gte=0"`
	Threshold    float64   `json:"threshold" validate:"gte=0,lte=1"`
	FlakyRate    *float64  `json:"flaky_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	NewFailRatio *float64  `json:"new_fail_ratio,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ObservationLog is the on-disk observation document.
type ObservationLog struct {
	Version      string              `json:"version" validate:"required"`
	Observations []WindowObservation `json:"observations" validate:"dive"`
}

// ShadowMetrics are the latest shadow-run flaky and new-failure rates.
type ShadowMetrics struct {
	FlakyRate    float64 `json:"flaky_rate"`
	NewFailRatio float64 `json:"new_fail_ratio"`
}

// #endregion observation

// #region evaluation
// Period describes the evaluated window.
type Period struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Days         int       `json:"days"`
	Observations int       `json:"observations"`
	// Latest is the newest observation counted, nil for an empty window.
	Latest *time.Time `json:"latest,omitempty"`
}

// Metrics are the window aggregates. The sample counts show how many values
// backed each optional average; a zero count means the average defaulted to 0.
type Metrics struct {
	AvgPassRate         float64 `json:"avg_pass_rate"`
	MinPassRate         float64 `json:"min_pass_rate"`
	AvgFlakyRate        float64 `json:"avg_flaky_rate"`
	AvgNewFailRatio     float64 `json:"avg_new_fail_ratio"`
	FlakySamples        int     `json:"flaky_samples"`
	NewFailRatioSamples int     `json:"new_fail_ratio_samples"`
}

// Conditions records each promotion condition.
type Conditions struct {
	AvgPassRateOK     bool `json:"avg_pass_rate_ok"`
	MinPassRateOK     bool `json:"min_pass_rate_ok"`
	AvgFlakyRateOK    bool `json:"avg_flaky_rate_ok"`
	AvgNewFailRatioOK bool `json:"avg_new_fail_ratio_ok"`
}

// WindowEvaluation is the canary verdict for one window.
type WindowEvaluation struct {
	Period           Period     `json:"period"`
	Candidate        *float64   `json:"candidate_threshold,omitempty"`
	Metrics          Metrics    `json:"metrics"`
	Conditions       Conditions `json:"conditions"`
	Decision         string     `json:"decision"`
	DecisionReason   string     `json:"decision_reason"`
	FailedConditions []string   `json:"failed_conditions"`
}

// #endregion evaluation
