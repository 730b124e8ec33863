package lifecycle

import "time"

// #region phase
// Phase is a lifecycle phase of the acceptance threshold.
type Phase string

const (
	PhaseStable     Phase = "STABLE"
	PhaseCanary     Phase = "CANARY"
	PhasePromoted   Phase = "PROMOTED"
	PhaseRolledBack Phase = "ROLLED_BACK"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseStable, PhaseCanary, PhasePromoted, PhaseRolledBack:
		return true
	}
	return false
}

// #endregion phase

// #region config
// Config bounds how long a canary may run before it is rolled back.
type Config struct {
	EscalationCount   int           `yaml:"escalation_count"`    // consecutive continue_canary cycles before rollback + escalation
	MaxCanaryDuration time.Duration `yaml:"max_canary_duration"` // a canary older than this is rolled back
}

// DefaultConfig returns the standard lifecycle limits.
func DefaultConfig() Config {
	return Config{
		EscalationCount:   2,
		MaxCanaryDuration: 14 * 24 * time.Hour,
	}
}

// #endregion config

// #region state
// State is the persisted lifecycle record. PROMOTED and ROLLED_BACK are
// transient: they settle into STABLE within the same transition and are kept
// in LastOutcome.
type State struct {
	Phase               Phase      `json:"phase"`
	Threshold           float64    `json:"threshold"`
	Candidate           *float64   `json:"candidate,omitempty"`
	CanaryStartedAt     *time.Time `json:"canary_started_at,omitempty"`
	LastObservedAt      *time.Time `json:"last_observed_at,omitempty"` // newest observation counted as a failed cycle
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Escalated           bool       `json:"escalated"`
	EscalationReason    string     `json:"escalation_reason,omitempty"`
	LastOutcome         Phase      `json:"last_outcome,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Transition is one recorded phase change.
type Transition struct {
	From      Phase     `json:"from"`
	To        Phase     `json:"to"`
	Threshold float64   `json:"threshold"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// #endregion state
