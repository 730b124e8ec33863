package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision appends an emitted decision document to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Kind == "" {
		return fmt.Errorf("log decision: empty kind")
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (kind, exit_code, snapshot_id, document, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Kind,
		entry.ExitCode,
		nullIfEmpty(entry.SnapshotID),
		entry.Document,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
