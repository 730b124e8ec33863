package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS threshold_state (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	config_value  REAL NOT NULL,
	source        TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_snapshots (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id         TEXT NOT NULL UNIQUE,
	created_at          TEXT NOT NULL,
	threshold           REAL NOT NULL CHECK (threshold BETWEEN 0 AND 1),
	total               INTEGER NOT NULL,
	passed_count        INTEGER NOT NULL,
	weighted_pass_rate  REAL NOT NULL,
	new_fail_ratio      REAL NOT NULL,
	flaky_rate          REAL NOT NULL,
	root_cause_tags     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS case_results (
	snapshot_id     TEXT NOT NULL,
	case_id         TEXT NOT NULL,
	prediction      TEXT NOT NULL,
	score           REAL NOT NULL,
	passed          INTEGER NOT NULL,
	is_new_failure  INTEGER NOT NULL,
	is_flaky        INTEGER NOT NULL,
	repeats         INTEGER NOT NULL,
	passed_repeats  INTEGER NOT NULL,
	tags            TEXT NOT NULL,
	error           TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, case_id),
	FOREIGN KEY (snapshot_id) REFERENCES run_snapshots(snapshot_id)
);

CREATE TABLE IF NOT EXISTS lifecycle_state (
	id                    INTEGER PRIMARY KEY CHECK (id = 1),
	phase                 TEXT NOT NULL,
	threshold             REAL NOT NULL,
	candidate             REAL,
	canary_started_at     TEXT,
	last_observed_at      TEXT,
	consecutive_failures  INTEGER NOT NULL,
	escalated             INTEGER NOT NULL,
	escalation_reason     TEXT NOT NULL,
	last_outcome          TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lifecycle_transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	from_phase  TEXT NOT NULL,
	to_phase    TEXT NOT NULL,
	threshold   REAL NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	kind         TEXT NOT NULL,
	exit_code    INTEGER NOT NULL,
	snapshot_id  TEXT,
	document     TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TRIGGER IF NOT EXISTS run_snapshots_no_update BEFORE UPDATE ON run_snapshots
BEGIN SELECT RAISE(ABORT, 'run_snapshots is append-only'); END;
CREATE TRIGGER IF NOT EXISTS run_snapshots_no_delete BEFORE DELETE ON run_snapshots
BEGIN SELECT RAISE(ABORT, 'run_snapshots is append-only'); END;
CREATE TRIGGER IF NOT EXISTS case_results_no_update BEFORE UPDATE ON case_results
BEGIN SELECT RAISE(ABORT, 'case_results is append-only'); END;
CREATE TRIGGER IF NOT EXISTS case_results_no_delete BEFORE DELETE ON case_results
BEGIN SELECT RAISE(ABORT, 'case_results is append-only'); END;
CREATE TRIGGER IF NOT EXISTS lifecycle_transitions_no_update BEFORE UPDATE ON lifecycle_transitions
BEGIN SELECT RAISE(ABORT, 'lifecycle_transitions is append-only'); END;
CREATE TRIGGER IF NOT EXISTS lifecycle_transitions_no_delete BEFORE DELETE ON lifecycle_transitions
BEGIN SELECT RAISE(ABORT, 'lifecycle_transitions is append-only'); END;
CREATE TRIGGER IF NOT EXISTS decision_log_no_update BEFORE UPDATE ON decision_log
BEGIN SELECT RAISE(ABORT, 'decision_log is append-only'); END;
CREATE TRIGGER IF NOT EXISTS decision_log_no_delete BEFORE DELETE ON decision_log
BEGIN SELECT RAISE(ABORT, 'decision_log is append-only'); END;
`

// #endregion schema

// #region store-struct
// Store persists the threshold, run history and lifecycle in SQLite.
type Store struct {
	db *sqlx.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps pragmas and :memory: databases consistent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the decision ledger.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// #endregion constructor

// #region init
// Init seeds the threshold and a STABLE lifecycle. It refuses to run twice.
func (s *Store) Init(threshold float64, now time.Time) (lifecycle.State, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return lifecycle.State{}, apperr.NewValidationError("invalid_threshold", "threshold %v outside [0,1]", threshold)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return lifecycle.State{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.Get(&existing, `SELECT COUNT(*) FROM threshold_state`); err != nil {
		return lifecycle.State{}, fmt.Errorf("check threshold: %w", err)
	}
	if existing > 0 {
		return lifecycle.State{}, apperr.NewValidationError("already_initialized", "threshold state already exists")
	}

	st := lifecycle.Initial(threshold, now)
	if _, err := tx.Exec(
		`INSERT INTO threshold_state (id, config_value, source, updated_at) VALUES (1, ?, ?, ?)`,
		threshold, "init", formatTime(st.UpdatedAt),
	); err != nil {
		return lifecycle.State{}, fmt.Errorf("insert threshold: %w", err)
	}
	if err := putLifecycle(tx, st); err != nil {
		return lifecycle.State{}, err
	}
	if err := tx.Commit(); err != nil {
		return lifecycle.State{}, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

// #endregion init

// #region threshold
// Threshold reads the authoritative config_value.
func (s *Store) Threshold() (ThresholdState, error) {
	var row thresholdRow
	err := s.db.Get(&row, `SELECT config_value, source, updated_at FROM threshold_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return ThresholdState{}, apperr.NewDataError(ErrNotInitialized)
	}
	if err != nil {
		return ThresholdState{}, fmt.Errorf("get threshold: %w", err)
	}
	if err := golden.Validate(row); err != nil {
		return ThresholdState{}, fmt.Errorf("threshold_state: %w", err)
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return ThresholdState{}, err
	}
	return ThresholdState{ConfigValue: row.ConfigValue, Source: row.Source, UpdatedAt: updated}, nil
}

// #endregion threshold

// #region commit-run
// CommitRun appends a snapshot and its case results in one transaction.
// Rows are validated before anything is written; a refused run leaves the
// history untouched.
func (s *Store) CommitRun(out *runner.Outcome) error {
	snap := out.Snapshot
	tags, err := json.Marshal(nonNil(snap.RootCauseTags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	snapRow := snapshotRow{
		SnapshotID:       snap.SnapshotID,
		CreatedAt:        formatTime(snap.Timestamp),
		Threshold:        snap.Threshold,
		Total:            snap.Total,
		PassedCount:      snap.PassedCount,
		WeightedPassRate: snap.WeightedPassRate,
		NewFailRatio:     snap.NewFailRatio,
		FlakyRate:        snap.FlakyRate,
		RootCauseTags:    string(tags),
	}
	if err := golden.Validate(snapRow); err != nil {
		return fmt.Errorf("refuse snapshot %s: %w", snap.SnapshotID, err)
	}

	caseRows := make([]caseRow, 0, len(out.Results))
	for _, r := range out.Results {
		caseTags, err := json.Marshal(nonNil(r.Tags))
		if err != nil {
			return fmt.Errorf("marshal case tags: %w", err)
		}
		row := caseRow{
			SnapshotID:    snap.SnapshotID,
			CaseID:        r.CaseID,
			Prediction:    r.Prediction,
			Score:         r.Score,
			Passed:        r.Passed,
			IsNewFailure:  r.IsNewFailure,
			IsFlaky:       r.IsFlaky,
			Repeats:       r.Repeats,
			PassedRepeats: r.PassedRepeats,
			Tags:          string(caseTags),
			Error:         r.Error,
		}
		if err := golden.Validate(row); err != nil {
			return fmt.Errorf("refuse case %s: %w", r.CaseID, err)
		}
		caseRows = append(caseRows, row)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(
		`INSERT INTO run_snapshots (snapshot_id, created_at, threshold, total, passed_count,
		 weighted_pass_rate, new_fail_ratio, flaky_rate, root_cause_tags)
		 VALUES (:snapshot_id, :created_at, :threshold, :total, :passed_count,
		 :weighted_pass_rate, :new_fail_ratio, :flaky_rate, :root_cause_tags)`,
		snapRow,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for _, row := range caseRows {
		_, err = tx.NamedExec(
			`INSERT INTO case_results (snapshot_id, case_id, prediction, score, passed, is_new_failure,
			 is_flaky, repeats, passed_repeats, tags, error)
			 VALUES (:snapshot_id, :case_id, :prediction, :score, :passed, :is_new_failure,
			 :is_flaky, :repeats, :passed_repeats, :tags, :error)`,
			row,
		)
		if err != nil {
			return fmt.Errorf("insert case %s: %w", row.CaseID, err)
		}
	}

	return tx.Commit()
}

// #endregion commit-run

// #region read-history
const snapshotColumns = `seq, snapshot_id, created_at, threshold, total, passed_count,
	weighted_pass_rate, new_fail_ratio, flaky_rate, root_cause_tags`

// LatestRun returns the most recently committed snapshot with its case results.
// An empty history is a DataError wrapping ErrNoSnapshots.
func (s *Store) LatestRun() (*runner.Outcome, error) {
	var row snapshotRow
	err := s.db.Get(&row, `SELECT `+snapshotColumns+` FROM run_snapshots ORDER BY seq DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewDataError(ErrNoSnapshots)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	snap, err := row.snapshot()
	if err != nil {
		return nil, err
	}
	results, err := s.CaseResults(snap.SnapshotID)
	if err != nil {
		return nil, err
	}
	return &runner.Outcome{Snapshot: snap, Results: results}, nil
}

// Baseline returns pass status per case from the latest snapshot, or nil when
// no run has been committed yet.
func (s *Store) Baseline() (runner.Baseline, error) {
	out, err := s.LatestRun()
	if errors.Is(err, ErrNoSnapshots) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return runner.BaselineFrom(out.Results), nil
}

// History returns up to limit snapshots, newest first.
func (s *Store) History(limit int) ([]runner.RunSnapshot, error) {
	var rows []snapshotRow
	if err := s.db.Select(&rows, `SELECT `+snapshotColumns+` FROM run_snapshots ORDER BY seq DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots(rows)
}

// SnapshotsSince returns snapshots taken after since, oldest first.
func (s *Store) SnapshotsSince(since time.Time) ([]runner.RunSnapshot, error) {
	var rows []snapshotRow
	if err := s.db.Select(&rows,
		`SELECT `+snapshotColumns+` FROM run_snapshots WHERE created_at > ? ORDER BY created_at, seq`,
		formatTime(since),
	); err != nil {
		return nil, fmt.Errorf("list snapshots since: %w", err)
	}
	return snapshots(rows)
}

// Observations turns the snapshots of the last days before now into canary
// window observations.
func (s *Store) Observations(now time.Time, days int) ([]canary.WindowObservation, error) {
	snaps, err := s.SnapshotsSince(now.AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	out := make([]canary.WindowObservation, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, ObservationFrom(snap))
	}
	return out, nil
}

// ObservationFrom converts one snapshot into a window observation.
func ObservationFrom(snap runner.RunSnapshot) canary.WindowObservation {
	flaky, newFail := snap.FlakyRate, snap.NewFailRatio
	return canary.WindowObservation{
		Date:         snap.Timestamp,
		PassRate:     snap.WeightedPassRate,
		Passed:       snap.PassedCount,
		Total:        snap.Total,
		Threshold:    snap.Threshold,
		FlakyRate:    &flaky,
		NewFailRatio: &newFail,
	}
}

// CaseResults returns the results stored for one snapshot, ordered by case ID.
func (s *Store) CaseResults(snapshotID string) ([]runner.CaseResult, error) {
	var rows []caseRow
	if err := s.db.Select(&rows,
		`SELECT snapshot_id, case_id, prediction, score, passed, is_new_failure, is_flaky,
		 repeats, passed_repeats, tags, error
		 FROM case_results WHERE snapshot_id = ? ORDER BY case_id`, snapshotID,
	); err != nil {
		return nil, fmt.Errorf("list case results: %w", err)
	}

	results := make([]runner.CaseResult, 0, len(rows))
	for _, row := range rows {
		if err := golden.Validate(row); err != nil {
			return nil, fmt.Errorf("case_results %s/%s: %w", snapshotID, row.CaseID, err)
		}
		var tags []string
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			return nil, apperr.DataErrorf("case_results %s/%s: corrupt tags: %v", snapshotID, row.CaseID, err)
		}
		results = append(results, runner.CaseResult{
			CaseID:        row.CaseID,
			Prediction:    row.Prediction,
			Score:         row.Score,
			Passed:        row.Passed,
			IsNewFailure:  row.IsNewFailure,
			IsFlaky:       row.IsFlaky,
			Repeats:       row.Repeats,
			PassedRepeats: row.PassedRepeats,
			Tags:          tags,
			Error:         row.Error,
		})
	}
	return results, nil
}

func snapshots(rows []snapshotRow) ([]runner.RunSnapshot, error) {
	out := make([]runner.RunSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (row snapshotRow) snapshot() (runner.RunSnapshot, error) {
	if err := golden.Validate(row); err != nil {
		return runner.RunSnapshot{}, fmt.Errorf("run_snapshots seq %d: %w", row.Seq, err)
	}
	ts, err := parseTime(row.CreatedAt)
	if err != nil {
		return runner.RunSnapshot{}, err
	}
	var tags []string
	if err := json.Unmarshal([]byte(row.RootCauseTags), &tags); err != nil {
		return runner.RunSnapshot{}, apperr.DataErrorf("run_snapshots %s: corrupt root_cause_tags: %v", row.SnapshotID, err)
	}
	return runner.RunSnapshot{
		SnapshotID:       row.SnapshotID,
		Timestamp:        ts,
		Threshold:        row.Threshold,
		Total:            row.Total,
		PassedCount:      row.PassedCount,
		WeightedPassRate: row.WeightedPassRate,
		NewFailRatio:     row.NewFailRatio,
		FlakyRate:        row.FlakyRate,
		RootCauseTags:    nonNil(tags),
	}, nil
}

// #endregion read-history

// #region lifecycle
// Lifecycle reads the persisted lifecycle record.
func (s *Store) Lifecycle() (lifecycle.State, error) {
	var row lifecycleRow
	err := s.db.Get(&row,
		`SELECT phase, threshold, candidate, canary_started_at, last_observed_at, consecutive_failures, escalated,
		 escalation_reason, last_outcome, updated_at FROM lifecycle_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return lifecycle.State{}, apperr.NewDataError(ErrNotInitialized)
	}
	if err != nil {
		return lifecycle.State{}, fmt.Errorf("get lifecycle: %w", err)
	}
	return row.state()
}

// SaveLifecycle writes next and appends its transitions. A changed threshold
// is written through to threshold_state in the same transaction.
func (s *Store) SaveLifecycle(next lifecycle.State, transitions []lifecycle.Transition) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current float64
	err = tx.Get(&current, `SELECT config_value FROM threshold_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewDataError(ErrNotInitialized)
	}
	if err != nil {
		return fmt.Errorf("get threshold: %w", err)
	}
	if current != next.Threshold {
		if _, err := tx.Exec(
			`UPDATE threshold_state SET config_value = ?, source = ?, updated_at = ? WHERE id = 1`,
			next.Threshold, "lifecycle:"+string(next.LastOutcome), formatTime(next.UpdatedAt),
		); err != nil {
			return fmt.Errorf("update threshold: %w", err)
		}
	}

	if err := putLifecycle(tx, next); err != nil {
		return err
	}
	for _, tr := range transitions {
		if _, err := tx.NamedExec(
			`INSERT INTO lifecycle_transitions (from_phase, to_phase, threshold, reason, created_at)
			 VALUES (:from_phase, :to_phase, :threshold, :reason, :created_at)`,
			transitionRow{
				FromPhase: string(tr.From),
				ToPhase:   string(tr.To),
				Threshold: tr.Threshold,
				Reason:    tr.Reason,
				CreatedAt: formatTime(tr.At),
			},
		); err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}
	return tx.Commit()
}

// Transitions returns up to limit lifecycle transitions, newest first.
func (s *Store) Transitions(limit int) ([]lifecycle.Transition, error) {
	var rows []transitionRow
	if err := s.db.Select(&rows,
		`SELECT from_phase, to_phase, threshold, reason, created_at
		 FROM lifecycle_transitions ORDER BY id DESC LIMIT ?`, limit,
	); err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	out := make([]lifecycle.Transition, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, lifecycle.Transition{
			From:      lifecycle.Phase(row.FromPhase),
			To:        lifecycle.Phase(row.ToPhase),
			Threshold: row.Threshold,
			Reason:    row.Reason,
			At:        at,
		})
	}
	return out, nil
}

func putLifecycle(tx *sqlx.Tx, st lifecycle.State) error {
	row := lifecycleRow{
		Phase:               string(st.Phase),
		Threshold:           st.Threshold,
		ConsecutiveFailures: st.ConsecutiveFailures,
		Escalated:           st.Escalated,
		EscalationReason:    st.EscalationReason,
		LastOutcome:         string(st.LastOutcome),
		UpdatedAt:           formatTime(st.UpdatedAt),
	}
	if st.Candidate != nil {
		row.Candidate = sql.NullFloat64{Float64: *st.Candidate, Valid: true}
	}
	if st.CanaryStartedAt != nil {
		row.CanaryStartedAt = sql.NullString{String: formatTime(*st.CanaryStartedAt), Valid: true}
	}
	if st.LastObservedAt != nil {
		row.LastObservedAt = sql.NullString{String: formatTime(*st.LastObservedAt), Valid: true}
	}
	_, err := tx.NamedExec(
		`INSERT INTO lifecycle_state (id, phase, threshold, candidate, canary_started_at, last_observed_at,
		 consecutive_failures, escalated, escalation_reason, last_outcome, updated_at)
		 VALUES (1, :phase, :threshold, :candidate, :canary_started_at, :last_observed_at, :consecutive_failures,
		 :escalated, :escalation_reason, :last_outcome, :updated_at)
		 ON CONFLICT(id) DO UPDATE SET
		 phase = excluded.phase, threshold = excluded.threshold, candidate = excluded.candidate,
		 canary_started_at = excluded.canary_started_at, last_observed_at = excluded.last_observed_at,
		 consecutive_failures = excluded.consecutive_failures,
		 escalated = excluded.escalated, escalation_reason = excluded.escalation_reason,
		 last_outcome = excluded.last_outcome, updated_at = excluded.updated_at`,
		row,
	)
	if err != nil {
		return fmt.Errorf("put lifecycle: %w", err)
	}
	return nil
}

func (row lifecycleRow) state() (lifecycle.State, error) {
	if err := golden.Validate(row); err != nil {
		return lifecycle.State{}, fmt.Errorf("lifecycle_state: %w", err)
	}
	phase := lifecycle.Phase(row.Phase)
	if !phase.Valid() {
		return lifecycle.State{}, apperr.DataErrorf("lifecycle_state: unknown phase %q", row.Phase)
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return lifecycle.State{}, err
	}
	st := lifecycle.State{
		Phase:               phase,
		Threshold:           row.Threshold,
		ConsecutiveFailures: row.ConsecutiveFailures,
		Escalated:           row.Escalated,
		EscalationReason:    row.EscalationReason,
		LastOutcome:         lifecycle.Phase(row.LastOutcome),
		UpdatedAt:           updated,
	}
	if row.Candidate.Valid {
		c := row.Candidate.Float64
		st.Candidate = &c
	}
	if row.CanaryStartedAt.Valid {
		started, err := parseTime(row.CanaryStartedAt.String)
		if err != nil {
			return lifecycle.State{}, err
		}
		st.CanaryStartedAt = &started
	}
	if row.LastObservedAt.Valid {
		observed, err := parseTime(row.LastObservedAt.String)
		if err != nil {
			return lifecycle.State{}, err
		}
		st.LastObservedAt = &observed
	}
	if st.Phase == lifecycle.PhaseCanary && st.Candidate == nil {
		return lifecycle.State{}, apperr.DataErrorf("lifecycle_state: canary without candidate")
	}
	return st, nil
}

// #endregion lifecycle

// #region helpers
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, apperr.DataErrorf("corrupt timestamp %q: %v", s, err)
	}
	return t.UTC(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// #endregion helpers
