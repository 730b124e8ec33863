package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/state"
)

type initPayload struct {
	Threshold state.ThresholdState `json:"threshold_state"`
	Lifecycle lifecycle.State      `json:"lifecycle"`
	Config    string               `json:"config_written,omitempty"`
}

func initCmd(a *app) *cobra.Command {
	var (
		threshold   float64
		writeConfig string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed the threshold and a STABLE lifecycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			st, err := store.Init(threshold, a.now())
			if err != nil {
				return err
			}
			th, err := store.Threshold()
			if err != nil {
				return err
			}
			if writeConfig != "" {
				if err := a.cfg.SaveToFile(writeConfig); err != nil {
					return err
				}
			}
			a.logger.Info("store initialized", slog.Float64("threshold", threshold), slog.String("db", a.cfg.Store.Path))
			return a.emit("init", apperr.ExitFavorable, initPayload{Threshold: th, Lifecycle: st, Config: writeConfig}, "")
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Initial acceptance threshold in [0,1]")
	cmd.Flags().StringVar(&writeConfig, "write-config", "", "Also write the effective configuration to this YAML file")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}
