// Package main provides the goldengate binary: a golden-test quality gate and
// staged threshold promotion engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "goldengate"
)

// #region main
func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, clock: time.Now}
	root := rootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	defer a.close()
	if err := root.ExecuteContext(ctx); err != nil {
		return a.fail(err)
	}
	return a.exitCode
}

// #endregion main

// #region root
func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Golden-test quality gate and staged threshold promotion",
		Long: `goldengate runs golden test cases against a generation backend, scores them
with a normalizing fuzzy matcher and decides whether the acceptance threshold
may be promoted, must be rolled back, or whether an experimental run aborts.

Every decision command prints one JSON document on stdout and exits
0 (favorable), 1 (unfavorable) or 2 (operational error).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "goldengate.yaml", "Config file path (YAML)")
	flags.StringVar(&a.dbPath, "db", "", "SQLite state database (overrides config and GOLDENGATE_DB)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&a.nowFlag, "now", "", "Evaluate as of this RFC3339 time instead of the wall clock")
	_ = flags.MarkHidden("now")

	cmd.AddCommand(
		initCmd(a),
		runCmd(a),
		proposeCmd(a),
		windowCmd(a),
		abortCmd(a),
		lifecycleCmd(a),
		historyCmd(a),
		exportObservationsCmd(a),
		rescoreCmd(a),
		serveRecordingCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// #endregion root
