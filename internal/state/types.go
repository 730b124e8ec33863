package state

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNoSnapshots is wrapped in a DataError when the history is empty.
var ErrNoSnapshots = errors.New("no run snapshots recorded")

// ErrNotInitialized is wrapped in a DataError when init has not been run.
var ErrNotInitialized = errors.New("store not initialized; run init first")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// #region threshold-state
// ThresholdState is the authoritative acceptance threshold.
type ThresholdState struct {
	ConfigValue float64   `json:"config_value"`
	Source      string    `json:"source"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// #endregion threshold-state

// #region rows
type thresholdRow struct {
	ConfigValue float64 `db:"config_value" validate:"gte=0,lte=1"`
	Source      string  `db:"source"`
	UpdatedAt   string  `db:"updated_at" validate:"required"`
}

type snapshotRow struct {
	Seq              int64   `db:"seq"`
	SnapshotID       string  `db:"snapshot_id" validate:"required"`
	CreatedAt        string  `db:"created_at" validate:"required"`
	Threshold        float64 `db:"threshold" validate:"gte=0,lte=1"`
	Total            int     `db:"total" validate:"gte=0"`
	PassedCount      int     `db:"passed_count" validate:"gte=0,ltefield=Total"`
	WeightedPassRate float64 `db:"weighted_pass_rate" validate:"gte=0,lte=100"`
	NewFailRatio     float64 `db:"new_fail_ratio" validate:"gte=0,lte=100"`
	FlakyRate        float64 `db:"flaky_rate" validate:"gte=0,lte=100"`
	RootCauseTags    string  `db:"root_cause_tags"`
}

type caseRow struct {
	SnapshotID    string  `db:"snapshot_id"`
	CaseID        string  `db:"case_id" validate:"required"`
	Prediction    string  `db:"prediction"`
	Score         float64 `db:"score" validate:"gte=0,lte=1"`
	Passed        bool    `db:"passed"`
	IsNewFailure  bool    `db:"is_new_failure"`
	IsFlaky       bool    `db:"is_flaky"`
	Repeats       int     `db:"repeats" validate:"gte=0"`
	PassedRepeats int     `db:"passed_repeats" validate:"gte=0,ltefield=Repeats"`
	Tags          string  `db:"tags"`
	Error         string  `db:"error"`
}

type lifecycleRow struct {
	Phase               string          `db:"phase" validate:"required"`
	Threshold           float64         `db:"threshold" validate:"gte=0,lte=1"`
	Candidate           sql.NullFloat64 `db:"candidate"`
	CanaryStartedAt     sql.NullString  `db:"canary_started_at"`
	LastObservedAt      sql.NullString  `db:"last_observed_at"`
	ConsecutiveFailures int             `db:"consecutive_failures" validate:"gte=0"`
	Escalated           bool            `db:"escalated"`
	EscalationReason    string          `db:"escalation_reason"`
	LastOutcome         string          `db:"last_outcome"`
	UpdatedAt           string          `db:"updated_at" validate:"required"`
}

type transitionRow struct {
	FromPhase string  `db:"from_phase"`
	ToPhase   string  `db:"to_phase"`
	Threshold float64 `db:"threshold"`
	Reason    string  `db:"reason"`
	CreatedAt string  `db:"created_at"`
}

// #endregion rows
