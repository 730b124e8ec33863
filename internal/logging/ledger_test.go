package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE decision_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT NOT NULL,
		exit_code   INTEGER NOT NULL,
		snapshot_id TEXT,
		document    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{
		Kind:       "propose",
		ExitCode:   0,
		SnapshotID: "snap-1",
		Document:   `{"kind":"propose"}`,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM decision_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var kind, doc string
	db.QueryRow("SELECT kind, document FROM decision_log").Scan(&kind, &doc)
	if kind != "propose" {
		t.Errorf("expected kind 'propose', got %q", kind)
	}
	if doc != `{"kind":"propose"}` {
		t.Errorf("unexpected document %q", doc)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC().Add(-time.Second)
	if err := LogDecision(db, DecisionEntry{Kind: "abort", ExitCode: 1, Document: "{}"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM decision_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptySnapshotIsNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, DecisionEntry{Kind: "window", Document: "{}"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshotID sql.NullString
	db.QueryRow("SELECT snapshot_id FROM decision_log").Scan(&snapshotID)
	if snapshotID.Valid {
		t.Error("expected NULL snapshot_id for empty string")
	}
}

func TestLogDecision_EmptyKind(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, DecisionEntry{Document: "{}"}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogDecision(db, DecisionEntry{Kind: "run", Document: "{}"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
