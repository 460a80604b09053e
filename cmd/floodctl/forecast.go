package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/forecast"
)

type trainFlags struct {
	periodDays   int
	cadenceHours int
}

func (f *trainFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.periodDays, "period-days", 0, "training window in days, defaults to FORECAST_PERIOD_DAYS")
	cmd.Flags().IntVar(&f.cadenceHours, "cadence-hours", 0, "resampling cadence, defaults to FORECAST_CADENCE_HOURS")
}

func (a *app) train(cmd *cobra.Command, f trainFlags) (*forecast.ModelBundle, error) {
	if f.periodDays == 0 {
		f.periodDays = a.cfg.Forecast.PeriodDays
	}
	if f.cadenceHours == 0 {
		f.cadenceHours = a.cfg.Forecast.CadenceHours
	}

	db, err := a.openDB(nil)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return forecast.TrainFromSource(cmd.Context(), db, f.periodDays, f.cadenceHours)
}

func newTrainCmd(a *app) *cobra.Command {
	var f trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the forecast candidates on stored readings and report their scores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.train(cmd, f)
			if err != nil {
				return err
			}

			type result struct {
				Model   string           `json:"model"`
				Metrics forecast.Metrics `json:"metrics"`
				Error   string           `json:"error,omitempty"`
			}
			results := make([]result, 0, len(b.Results))
			for _, r := range b.Results {
				res := result{Model: r.Name, Metrics: r.Metrics}
				if r.Err != nil {
					res.Error = r.Err.Error()
				}
				results = append(results, res)
			}
			def, _ := b.DefaultModel()
			return a.printJSON(map[string]any{
				"target_column": b.TargetColumn,
				"features":      b.FeatureNames,
				"train_size":    b.TrainSize,
				"test_size":     b.TestSize,
				"default_model": def,
				"results":       results,
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newScenarioCmd(a *app) *cobra.Command {
	var (
		f                                trainFlags
		model                            string
		rainfall, duration, initialLevel float64
	)
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Train on stored readings and forecast a hypothetical storm",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.train(cmd, f)
			if err != nil {
				return err
			}
			sf, err := forecast.SimulateScenario(b, model, rainfall, duration, initialLevel)
			if err != nil {
				return err
			}
			return a.printJSON(sf)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&model, "model", "", "model name, defaults to the first successful candidate")
	cmd.Flags().Float64Var(&rainfall, "rainfall", 50, "total rainfall in mm")
	cmd.Flags().Float64Var(&duration, "duration", 6, "storm duration in hours")
	cmd.Flags().Float64Var(&initialLevel, "initial-level", 3, "water level in m when the storm starts")
	return cmd
}

func newClassifyCmd(a *app) *cobra.Command {
	var sensorType string
	cmd := &cobra.Command{
		Use:   "classify VALUE",
		Short: "Classify a reading value against the alert thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if _, err := fmt.Sscan(args[0], &value); err != nil {
				return fmt.Errorf("invalid value %q: %w", args[0], err)
			}
			st, ok := features.ParseSensorType(sensorType)
			if !ok {
				return fmt.Errorf("unknown sensor type %q", sensorType)
			}
			level := alerting.ClassifySensor(value, st)
			return a.printJSON(map[string]any{
				"sensor_type":    st,
				"value":          value,
				"level":          level,
				"recommendation": alerting.Recommendation(level),
			})
		},
	}
	cmd.Flags().StringVar(&sensorType, "type", "WATER_LEVEL", "sensor type or label")
	return cmd
}
