package main

import (
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/metrics"
	"github.com/danielpatrickdp/golden-gate/internal/report"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

type runPayload struct {
	Snapshot  runner.RunSnapshot  `json:"snapshot"`
	Failures  []runner.CaseResult `json:"failures"`
	Committed bool                `json:"committed"`
	Canary    bool                `json:"canary"`
}

func runCmd(a *app) *cobra.Command {
	var (
		fixtures  string
		recording string
		threshold float64
		canaryRun bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the golden cases and commit a snapshot",
		Long: `run executes every golden case against the backend, scores it at the
current threshold and appends the snapshot to the history. It exits 1 when
the run produced new failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			th, err := store.Threshold()
			if err != nil {
				return err
			}
			at := th.ConfigValue
			switch {
			case canaryRun && cmd.Flags().Changed("threshold"):
				return apperr.NewValidationError("conflicting_flags", "--canary and --threshold are exclusive")
			case canaryRun:
				st, err := store.Lifecycle()
				if err != nil {
					return err
				}
				if at, err = canaryCandidate(st); err != nil {
					return err
				}
			case cmd.Flags().Changed("threshold"):
				if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
					return apperr.NewValidationError("invalid_threshold", "--threshold %v outside [0,1]", threshold)
				}
				at = threshold
			}

			cases, err := a.loadCases(fixtures)
			if err != nil {
				return err
			}
			baseline, err := store.Baseline()
			if err != nil {
				return err
			}
			gen, closeGen, err := a.generator(recording)
			if err != nil {
				return err
			}
			defer closeGen()

			recorder := metrics.NewRecorder()
			r := runner.NewRunner(gen, eval.NewEvaluator(a.cfg.Match), a.cfg.Runner,
				runner.WithObserver(recorder),
				runner.WithLogger(a.logger),
				runner.WithClock(a.now),
			)
			out, err := r.Run(cmd.Context(), cases, at, baseline)
			if err != nil {
				return err
			}

			if !dryRun {
				if err := store.CommitRun(out); err != nil {
					return err
				}
			}
			recorder.ObserveSnapshot(out.Snapshot)
			if a.cfg.Metrics.Textfile != "" {
				if err := recorder.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
					a.logger.Warn("metrics export failed", slog.String("error", err.Error()))
				}
			}

			failures := []runner.CaseResult{}
			newFailures := 0
			for _, res := range out.Results {
				if !res.Passed {
					failures = append(failures, res)
				}
				if res.IsNewFailure {
					newFailures++
				}
			}
			payload := runPayload{Snapshot: out.Snapshot, Failures: failures, Committed: !dryRun, Canary: canaryRun}
			return a.emit("run", report.ExitCodeFor(newFailures == 0), payload, out.Snapshot.SnapshotID)
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "Golden case file, JSON or YAML (default from config)")
	cmd.Flags().StringVar(&recording, "recording", "", "Replay predictions from this recording instead of the backend")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Score at this threshold instead of the stored config value")
	cmd.Flags().BoolVar(&canaryRun, "canary", false, "Score at the running canary's candidate threshold")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not commit the snapshot")
	return cmd
}
