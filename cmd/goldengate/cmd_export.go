package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/canary"
)

type exportPayload struct {
	Path         string `json:"path"`
	Days         int    `json:"days"`
	Observations int    `json:"observations"`
}

func exportObservationsCmd(a *app) *cobra.Command {
	var (
		out  string
		days int
	)
	cmd := &cobra.Command{
		Use:   "export-observations",
		Short: "Write recent snapshots as a window observation log",
		Long: `export-observations converts the snapshots of the last days into the
observation log format read by window --observations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = a.cfg.Canary.WindowDays
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			observations, err := store.Observations(a.now(), days)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(canary.ObservationLog{Version: "1", Observations: observations}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal observations: %w", err)
			}
			if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return a.emit("export", apperr.ExitFavorable, exportPayload{Path: out, Days: days, Observations: len(observations)}, "")
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().IntVar(&days, "days", 0, "Export the last N days (default: canary window)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
