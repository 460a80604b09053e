package forecast

import (
	"fmt"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/models"
)

type Forecast struct {
	Model          string            `json:"model"`
	Level          float64           `json:"level"`
	Risk           models.AlertLevel `json:"risk"`
	Recommendation string            `json:"recommendation"`
}

// Scenario and raster overrides are uncalibrated placeholder policy.
const (
	scenarioAcc3Share  = 0.25
	scenarioAcc6Share  = 0.5
	scenarioAcc12Share = 1.0

	ndwiWaterScale = 10.0
	ndwiRainScale  = 50.0
)

// ClassifyForecast grades a predicted water level with the same thresholds
// used for live readings.
func ClassifyForecast(level float64) (models.AlertLevel, string) {
	risk := alerting.Classify(level, alerting.WaterLevelThresholds)
	return risk, alerting.Recommendation(risk)
}

// Predict normalizes a raw feature vector with the bundle's scaler and
// evaluates the named model, or the default model when name is empty. Risk is
// graded on the unrounded output; only Level is rounded.
func Predict(b *ModelBundle, name string, vector []float64) (Forecast, error) {
	if len(vector) != len(b.FeatureNames) {
		return Forecast{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(vector), len(b.FeatureNames))
	}
	name, model, err := b.Model(name)
	if err != nil {
		return Forecast{}, err
	}

	x, err := b.Scaler.Transform(vector)
	if err != nil {
		return Forecast{}, err
	}

	raw := model.Predict(x)
	risk, rec := ClassifyForecast(raw)
	return Forecast{
		Model:          name,
		Level:          round2(raw),
		Risk:           risk,
		Recommendation: rec,
	}, nil
}

// VectorFrom starts from the last known raw feature vector and applies
// overrides by feature name.
func (b *ModelBundle) VectorFrom(overrides map[string]float64) ([]float64, error) {
	vec := append([]float64(nil), b.LastKnown...)
	for name, v := range overrides {
		i := b.featureIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		vec[i] = v
	}
	return vec, nil
}

func (b *ModelBundle) featureIndex(name string) int {
	for i, n := range b.FeatureNames {
		if n == name {
			return i
		}
	}
	return -1
}

type ScenarioForecast struct {
	Forecast
	RainfallTotal float64 `json:"rainfall_total"`
	DurationHours float64 `json:"duration_hours"`
	InitialLevel  float64 `json:"initial_level"`
}

// SimulateScenario predicts the water level for a hypothetical storm. Every
// water level feature is set to initialLevel and the rain accumulations to
// fixed shares of rainfallTotal. The duration is validated and echoed but
// does not change the synthesized inputs.
func SimulateScenario(b *ModelBundle, name string, rainfallTotal, durationHours, initialLevel float64) (ScenarioForecast, error) {
	if rainfallTotal < 0 {
		return ScenarioForecast{}, fmt.Errorf("%w: rainfall must be non-negative, got %v", ErrInvalidScenario, rainfallTotal)
	}
	if durationHours <= 0 {
		return ScenarioForecast{}, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidScenario, durationHours)
	}

	vec := append([]float64(nil), b.LastKnown...)
	for i, spec := range b.Specs {
		switch {
		case spec.SensorType == models.SensorTypeWaterLevel:
			vec[i] = initialLevel
		case spec.SensorType == models.SensorTypeRainGauge && spec.Kind == features.KindRollingSum:
			switch spec.Window {
			case 3:
				vec[i] = scenarioAcc3Share * rainfallTotal
			case 6:
				vec[i] = scenarioAcc6Share * rainfallTotal
			case 12:
				vec[i] = scenarioAcc12Share * rainfallTotal
			}
		}
	}

	f, err := Predict(b, name, vec)
	if err != nil {
		return ScenarioForecast{}, err
	}
	return ScenarioForecast{
		Forecast:      f,
		RainfallTotal: rainfallTotal,
		DurationHours: durationHours,
		InitialLevel:  initialLevel,
	}, nil
}

// EstimateFromRaster maps a mean NDWI over a region onto water level and
// rainfall inputs by linear scaling. The result is an unvalidated
// approximation.
func EstimateFromRaster(b *ModelBundle, name string, meanNDWI float64) (Forecast, error) {
	vec := append([]float64(nil), b.LastKnown...)
	for i, spec := range b.Specs {
		switch spec.SensorType {
		case models.SensorTypeWaterLevel:
			vec[i] = meanNDWI * ndwiWaterScale
		case models.SensorTypeRainGauge:
			vec[i] = meanNDWI * ndwiRainScale
		}
	}
	return Predict(b, name, vec)
}
