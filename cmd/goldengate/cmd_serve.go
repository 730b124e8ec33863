package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/golden-gate/internal/codec"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

func serveRecordingCmd(a *app) *cobra.Command {
	var (
		recording string
		listen    string
	)
	cmd := &cobra.Command{
		Use:   "serve-recording",
		Short: "Serve a prediction recording as a gRPC generation backend",
		Long: `serve-recording exposes goldengate.v1.Generator backed by a recording file,
for pipeline rehearsals without the real model. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := runner.LoadRecording(recording)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}

			srv := grpc.NewServer()
			codec.RegisterGeneratorServer(srv, codec.NewGeneratorServer(gen))

			errc := make(chan error, 1)
			go func() { errc <- srv.Serve(lis) }()
			a.logger.Info("serving recording", slog.String("addr", lis.Addr().String()), slog.String("recording", recording))

			select {
			case <-cmd.Context().Done():
				srv.GracefulStop()
				return nil
			case err := <-errc:
				return fmt.Errorf("serve: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&recording, "recording", "", "Recording file (JSON or YAML)")
	cmd.Flags().StringVar(&listen, "listen", "localhost:50051", "Listen address")
	_ = cmd.MarkFlagRequired("recording")
	return cmd
}
