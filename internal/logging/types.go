package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table: one emitted
// decision document.
type DecisionEntry struct {
	Kind       string // "run" | "propose" | "window" | "abort" | "lifecycle" | "rescore" | "error"
	ExitCode   int
	SnapshotID string
	Document   string // the JSON document as written to stdout
	CreatedAt  time.Time
}

// #endregion decision-entry
