package promotion

// #region reason-codes
// Reason codes for policy violations, listed in the order they are checked.
const (
	ReasonOvershoot        = "overshoot"
	ReasonUnderstep        = "understep"
	ReasonOffGrid          = "off_grid"
	ReasonPreferredIgnored = "preferred_target_not_honored"
	ReasonCeilingExceeded  = "ceiling_exceeded"
	ReasonOK               = "ok"
)

// #endregion reason-codes

// #region policy
// PreferredTarget pins the next target for one current value.
type PreferredTarget struct {
	From float64 `yaml:"from" json:"from"`
	To   float64 `yaml:"to" json:"to"`
}

// Policy bounds how far one promotion may move the threshold.
type Policy struct {
	MinStep             float64           `yaml:"min_step"`
	MaxStep             float64           `yaml:"max_step"`
	Grid                float64           `yaml:"grid"`
	Ceiling             float64           `yaml:"ceiling"`
	DivergenceTolerance float64           `yaml:"divergence_tolerance"` // max |config - shadow| before the shadow is discarded
	Preferred           []PreferredTarget `yaml:"preferred"`
}

// DefaultPolicy returns the standard staged-promotion policy.
func DefaultPolicy() Policy {
	return Policy{
		MinStep:             0.02,
		MaxStep:             0.05,
		Grid:                0.02,
		Ceiling:             1.0,
		DivergenceTolerance: 0.01,
	}
}

// #endregion policy

// #region request
// Request carries the inputs of one promotion decision. Current is the
// authoritative config value; ShadowValue is what a shadow report assumed it
// was; NaiveTarget is an explicit proposal to use instead of the grid step.
type Request struct {
	Current     float64
	ShadowValue *float64
	NaiveTarget *float64
}

// #endregion request

// #region decision
// PromotionDecision is the validated proposal. Valid=false is a normal outcome.
type PromotionDecision struct {
	Current            float64  `json:"current"`
	Target             float64  `json:"target"`
	Step               float64  `json:"step"`
	Valid              bool     `json:"valid"`
	Reason             string   `json:"reason"`
	Violations         []string `json:"violations"`
	NaiveTarget        float64  `json:"naive_target"`
	PreferredTarget    *float64 `json:"preferred_target,omitempty"`
	ClampingApplied    bool     `json:"clamping_applied"`
	DivergenceDetected bool     `json:"divergence_detected"`
	ShadowValue        *float64 `json:"shadow_value,omitempty"`
	ActualUsed         float64  `json:"actual_used"`
}

// #endregion decision
