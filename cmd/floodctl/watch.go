package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mr1hm/flood-alerts/internal/features"
	internalgrpc "github.com/mr1hm/flood-alerts/internal/grpc"
)

func newWatchCmd(a *app) *cobra.Command {
	var addr, minLevel, sensorType string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live alerts from a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = fmt.Sprintf("localhost:%d", a.cfg.GRPC.Port)
			}
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("error dialing %s: %w", addr, err)
			}
			defer conn.Close()

			filter := map[string]any{}
			if minLevel != "" {
				filter["min_level"] = minLevel
			}
			if sensorType != "" {
				st, ok := features.ParseSensorType(sensorType)
				if !ok {
					return fmt.Errorf("unknown sensor type %q", sensorType)
				}
				filter["type"] = string(st)
			}
			req, err := structpb.NewStruct(filter)
			if err != nil {
				return err
			}

			stream, err := internalgrpc.NewAlertServiceClient(conn).StreamAlerts(cmd.Context(), req)
			if err != nil {
				return err
			}
			for {
				msg, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				alert, err := internalgrpc.AlertFromStruct(msg)
				if err != nil {
					return err
				}
				if err := a.printJSON(alert); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address, defaults to localhost:GRPC_PORT")
	cmd.Flags().StringVar(&minLevel, "min-level", "", "lowest alert level to show")
	cmd.Flags().StringVar(&sensorType, "type", "", "only show alerts for this sensor type")
	return cmd
}
