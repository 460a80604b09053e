package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/ingestion"
	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/observability"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

var defaultSensors = []models.Sensor{
	{Type: models.SensorTypeWaterLevel, Location: "Rio Tietê - Ponte A", Description: "river gauge"},
	{Type: models.SensorTypeRainGauge, Location: "Centro", Description: "rain gauge"},
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		cycles int
		step   time.Duration
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write simulated monitoring cycles ending now",
		Long: "simulate runs the monitoring cycle against a clock that starts cycles*step in the past, " +
			"so the store ends up with history a forecast can be trained on. Sensors are created when none exist.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cycles < 1 {
				return fmt.Errorf("cycles must be at least 1, got %d", cycles)
			}
			if step <= 0 {
				return fmt.Errorf("step must be positive, got %s", step)
			}
			ctx := cmd.Context()

			clock := clockwork.NewFakeClockAt(time.Now().UTC().Add(-time.Duration(cycles) * step))
			db, err := a.openDB(clock)
			if err != nil {
				return err
			}
			defer db.Close()

			sensors, err := ensureSensors(ctx, db)
			if err != nil {
				return err
			}

			metrics := observability.NewMetrics()
			proc := ingestion.NewProcessor(db, alerting.NewRecorder(db, clock), metrics, ingestion.WithClock(clock))
			sim := ingestion.NewSimulator(seed, clock)

			alerts := 0
			for i := 0; i < cycles; i++ {
				for _, s := range sensors {
					r := sim.Reading(s)
					alert, err := proc.Process(ctx, &r)
					if err != nil {
						return err
					}
					if alert != nil {
						alerts++
					}
				}
				clock.Advance(step)
			}

			slog.Info("simulation complete", "cycles", cycles, "sensors", len(sensors), "alerts", alerts)
			return a.printJSON(map[string]any{
				"cycles":   cycles,
				"sensors":  len(sensors),
				"readings": cycles * len(sensors),
				"alerts":   alerts,
			})
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 72, "number of monitoring cycles")
	cmd.Flags().DurationVar(&step, "step", time.Hour, "simulated time between cycles")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed, 0 picks one")
	return cmd
}

// ensureSensors returns the active sensors, registering the defaults when
// the store has none.
func ensureSensors(ctx context.Context, db *repository.DB) ([]models.Sensor, error) {
	sensors, err := db.ListSensors(ctx)
	if err != nil {
		return nil, err
	}
	if len(sensors) == 0 {
		for _, s := range defaultSensors {
			if err := db.AddSensor(ctx, &s); err != nil {
				return nil, err
			}
			sensors = append(sensors, s)
		}
	}

	active := sensors[:0]
	for _, s := range sensors {
		if s.Status == models.SensorStatusActive {
			active = append(active, s)
		}
	}
	return active, nil
}
