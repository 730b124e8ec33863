package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/config"
	"github.com/danielpatrickdp/golden-gate/internal/logging"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

// app carries the per-invocation state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	nowFlag    string

	stdout io.Writer
	stderr io.Writer
	clock  func() time.Time

	cfg      *config.Config
	logger   *slog.Logger
	store    *state.Store
	exitCode int
}

// #region setup
// setup resolves configuration: defaults, file, .env, environment, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	bootstrap := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.NewLoader(bootstrap).Load(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(slog.String("component", "cli"), slog.String("command", cmd.Name()))

	if a.nowFlag != "" {
		at, err := time.Parse(time.RFC3339, a.nowFlag)
		if err != nil {
			return fmt.Errorf("parse --now: %w", err)
		}
		a.clock = func() time.Time { return at }
	}
	return nil
}

func (a *app) now() time.Time {
	return a.clock().UTC()
}

// openStore opens the state database once per invocation.
func (a *app) openStore() (*state.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := state.NewStore(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Store.Path, err)
	}
	a.store = s
	return s, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// #endregion setup

// #region emit
// emit writes a decision document and appends it to the decision ledger.
func (a *app) emit(kind string, exitCode int, payload any, snapshotID string) error {
	doc := report.New(kind, exitCode, payload, a.now())
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if _, err := a.stdout.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	a.exitCode = exitCode
	a.record(kind, exitCode, snapshotID, data)
	return nil
}

// fail writes an error document and returns the operational exit code.
func (a *app) fail(err error) int {
	doc := report.FromError(err, a.now())
	data, encErr := doc.Encode()
	if encErr != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return doc.ExitCode
	}
	if _, werr := a.stdout.Write(append(data, '\n')); werr != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	a.record(doc.Kind, doc.ExitCode, "", data)
	if a.logger != nil {
		a.logger.Error("command failed", slog.String("class", apperr.Class(err)), slog.String("error", err.Error()))
	}
	return doc.ExitCode
}

func (a *app) record(kind string, exitCode int, snapshotID string, document []byte) {
	if a.store == nil {
		return
	}
	err := logging.LogDecision(a.store.DB(), logging.DecisionEntry{
		Kind:       kind,
		ExitCode:   exitCode,
		SnapshotID: snapshotID,
		Document:   string(document),
		CreatedAt:  a.now(),
	})
	if err != nil {
		a.logger.Warn("decision ledger write failed", slog.String("error", err.Error()))
	}
}

// #endregion emit
