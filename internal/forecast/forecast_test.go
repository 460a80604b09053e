package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// stormReadings is two days of hourly water level and rain where the river
// responds to rain a few hours later.
func stormReadings() []models.SensorReading {
	var out []models.SensorReading
	level := 2.0
	for i := 0; i < 48; i++ {
		ts := t0.Add(time.Duration(i) * time.Hour)
		rain := 0.0
		if i%12 >= 3 && i%12 < 6 {
			rain = 15 + float64(i%5)*4
		}
		level = 0.9*level + 0.2 + rain*0.02
		out = append(out,
			models.SensorReading{SensorType: models.SensorTypeWaterLevel, Location: "Ponte A", Value: math.Round(level*100) / 100, Unit: "m", Timestamp: ts},
			models.SensorReading{SensorType: models.SensorTypeRainGauge, Location: "Centro", Value: rain, Unit: "mm/h", Timestamp: ts},
		)
	}
	return out
}

func stormFeatures(t *testing.T) *features.FeatureSet {
	t.Helper()
	fs, err := features.Build(stormReadings(), 1)
	require.NoError(t, err)
	return fs
}

type sumRegressor struct {
	last []float64
}

func (s *sumRegressor) Fit(X [][]float64, y []float64) error { return nil }

func (s *sumRegressor) Predict(x []float64) float64 {
	s.last = append(s.last[:0], x...)
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}

// constRegressor ignores its input.
type constRegressor float64

func (c constRegressor) Fit(X [][]float64, y []float64) error { return nil }
func (c constRegressor) Predict(x []float64) float64 { return float64(c) }

type failingRegressor struct{}

func (failingRegressor) Fit(X [][]float64, y []float64) error { return errors.New("diverged") }
func (failingRegressor) Predict(x []float64) float64 { return 0 }

type panickyRegressor struct{}

func (panickyRegressor) Fit(X [][]float64, y []float64) error { panic("index out of range") }
func (panickyRegressor) Predict(x []float64) float64 { return 0 }

func rawFrom(b *ModelBundle, x []float64) []float64 {
	raw := make([]float64, len(x))
	for i, v := range x {
		raw[i] = v*b.Scaler.Scale[i] + b.Scaler.Mean[i]
	}
	return raw
}

func TestTrain_InsufficientData(t *testing.T) {
	fs := &features.FeatureSet{X: [][]float64{{1}}, Y: []float64{1}}
	_, err := Train(fs)
	assert.ErrorIs(t, err, features.ErrInsufficientData)

	_, err = Train(nil)
	assert.ErrorIs(t, err, features.ErrInsufficientData)
}

func TestTrain_TwoSamplesSucceeds(t *testing.T) {
	fs := &features.FeatureSet{
		X:            [][]float64{{-1}, {1}},
		Y:            []float64{2, 3},
		FeatureNames: []string{"water_level_a_lag1"},
		Scaler:       &features.Scaler{Mean: []float64{2.5}, Scale: []float64{0.5}},
		Rows:         []features.FeatureRow{{Values: []float64{2}}, {Values: []float64{3}}},
	}

	b, err := Train(fs)
	require.NoError(t, err)
	assert.Equal(t, 1, b.TrainSize)
	assert.Equal(t, 1, b.TestSize)
	require.Len(t, b.Results, 3)
	for _, r := range b.Results {
		if r.OK() {
			assert.True(t, math.IsNaN(r.Metrics.R2), r.Name)
		}
	}
}

func TestTrain_AllCandidates(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	fs := stormFeatures(t)
	b, err := Train(fs)
	require.NoError(t, err)

	require.Len(t, b.Results, 3)
	assert.Equal(t, ModelRandomForest, b.Results[0].Name)
	assert.Equal(t, ModelGradientBoosting, b.Results[1].Name)
	assert.Equal(t, ModelSVR, b.Results[2].Name)
	for _, r := range b.Results {
		require.NoError(t, r.Err, r.Name)
		assert.False(t, math.IsNaN(r.Metrics.MAE), r.Name)
		assert.Equal(t, math.Round(r.Metrics.MAE*100)/100, r.Metrics.MAE)
	}

	assert.Equal(t, fake.Now(), b.TrainedAt)
	assert.Equal(t, len(fs.X), b.TrainSize+b.TestSize)
	assert.Equal(t, fs.LastKnown(), b.LastKnown)
	assert.Equal(t, []string{ModelRandomForest, ModelGradientBoosting, ModelSVR}, b.ModelNames())

	name, err := b.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, ModelRandomForest, name)

	f, err := Predict(b, "", b.LastKnown)
	require.NoError(t, err)
	assert.Equal(t, ModelRandomForest, f.Model)
	assert.False(t, math.IsNaN(f.Level))
	assert.False(t, math.IsInf(f.Level, 0))
}

func TestTrain_Deterministic(t *testing.T) {
	fs := stormFeatures(t)
	a, err := Train(fs)
	require.NoError(t, err)
	b, err := Train(fs)
	require.NoError(t, err)

	for i := range a.Results {
		assert.Equal(t, a.Results[i].Metrics, b.Results[i].Metrics)
	}
}

func TestTrain_IsolatesCandidateFailures(t *testing.T) {
	stub := &sumRegressor{}
	candidates := []Candidate{
		{Name: "broken", New: func() Regressor { return failingRegressor{} }},
		{Name: "panicky", New: func() Regressor { return panickyRegressor{} }},
		{Name: "stub", New: func() Regressor { return stub }},
	}

	b, err := TrainCandidates(stormFeatures(t), candidates)
	require.NoError(t, err)
	require.Len(t, b.Results, 3)

	var te *TrainingError
	require.ErrorAs(t, b.Results[0].Err, &te)
	assert.Equal(t, "broken", te.Model)
	assert.EqualError(t, te.Err, "diverged")

	require.ErrorAs(t, b.Results[1].Err, &te)
	assert.Equal(t, "panicky", te.Model)
	assert.Contains(t, te.Error(), "index out of range")
	assert.True(t, math.IsNaN(b.Results[1].Metrics.MAE))

	assert.True(t, b.Results[2].OK())
	name, err := b.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "stub", name)

	_, _, err = b.Model("broken")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestPredict_NoUsableModel(t *testing.T) {
	b, err := TrainCandidates(stormFeatures(t), []Candidate{
		{Name: "broken", New: func() Regressor { return failingRegressor{} }},
	})
	require.NoError(t, err)

	_, err = Predict(b, "", b.LastKnown)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestPredict_VectorLength(t *testing.T) {
	stub := &sumRegressor{}
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return stub }}})
	require.NoError(t, err)

	_, err = Predict(b, "", []float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureCount)
}

func TestPredict_NormalizesAndClassifies(t *testing.T) {
	stub := &sumRegressor{}
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return stub }}})
	require.NoError(t, err)

	vec := b.LastKnown
	f, err := Predict(b, "stub", vec)
	require.NoError(t, err)

	want, err := b.Scaler.Transform(vec)
	require.NoError(t, err)
	assert.Equal(t, want, stub.last)

	risk, rec := ClassifyForecast(stub.Predict(want))
	assert.Equal(t, risk, f.Risk)
	assert.Equal(t, rec, f.Recommendation)
}

func TestPredict_GradesUnroundedLevel(t *testing.T) {
	tests := []struct {
		out   float64
		level float64
		risk  models.AlertLevel
	}{
		{6.497, 6.5, models.AlertLevelHigh},
		{6.5, 6.5, models.AlertLevelCritical},
		{4.996, 5.0, models.AlertLevelMedium},
		{1.999, 2.0, models.AlertLevelSafe},
	}
	for _, tt := range tests {
		b, err := TrainCandidates(stormFeatures(t), []Candidate{
			{Name: "const", New: func() Regressor { return constRegressor(tt.out) }},
		})
		require.NoError(t, err)

		f, err := Predict(b, "", b.LastKnown)
		require.NoError(t, err)
		assert.Equal(t, tt.level, f.Level, "output %v", tt.out)
		assert.Equal(t, tt.risk, f.Risk, "output %v", tt.out)

		sf, err := SimulateScenario(b, "", 10, 3, 2)
		require.NoError(t, err)
		assert.Equal(t, tt.risk, sf.Risk, "scenario output %v", tt.out)
	}
}

func TestClassifyForecast(t *testing.T) {
	risk, rec := ClassifyForecast(5.8)
	assert.Equal(t, models.AlertLevelHigh, risk)
	assert.NotEmpty(t, rec)

	risk, _ = ClassifyForecast(6.5)
	assert.Equal(t, models.AlertLevelCritical, risk)

	risk, _ = ClassifyForecast(1.0)
	assert.Equal(t, models.AlertLevelSafe, risk)
}

func TestVectorFrom(t *testing.T) {
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return &sumRegressor{} }}})
	require.NoError(t, err)

	vec, err := b.VectorFrom(map[string]float64{"water_level_ponte_a_lag1": 4.2})
	require.NoError(t, err)
	i := b.featureIndex("water_level_ponte_a_lag1")
	assert.Equal(t, 4.2, vec[i])
	assert.NotEqual(t, 4.2, b.LastKnown[i])

	_, err = b.VectorFrom(map[string]float64{"wind_lag1": 1})
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestSimulateScenario_Overrides(t *testing.T) {
	stub := &sumRegressor{}
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return stub }}})
	require.NoError(t, err)

	s, err := SimulateScenario(b, "", 80, 6, 3.1)
	require.NoError(t, err)
	assert.Equal(t, 80.0, s.RainfallTotal)
	assert.Equal(t, 6.0, s.DurationHours)
	assert.Equal(t, 3.1, s.InitialLevel)

	raw := rawFrom(b, stub.last)
	want := map[string]float64{
		"rain_gauge_centro_acc3":   20,
		"rain_gauge_centro_acc6":   40,
		"rain_gauge_centro_acc12":  80,
		"water_level_ponte_a_lag1": 3.1,
		"water_level_ponte_a_lag3": 3.1,
		"water_level_ponte_a_lag6": 3.1,
	}
	for name, v := range want {
		assert.InDelta(t, v, raw[b.featureIndex(name)], 1e-9, name)
	}
}

func TestSimulateScenario_MonotonicInRainfall(t *testing.T) {
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return &sumRegressor{} }}})
	require.NoError(t, err)

	dry, err := SimulateScenario(b, "", 0, 12, 2.0)
	require.NoError(t, err)
	wet, err := SimulateScenario(b, "", 200, 12, 2.0)
	require.NoError(t, err)

	assert.LessOrEqual(t, dry.Level, wet.Level)
}

func TestSimulateScenario_RandomForestFinite(t *testing.T) {
	b, err := Train(stormFeatures(t))
	require.NoError(t, err)

	s, err := SimulateScenario(b, ModelRandomForest, 200, 12, 2.0)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(s.Level))
	assert.Equal(t, ModelRandomForest, s.Model)
}

func TestSimulateScenario_Validation(t *testing.T) {
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return &sumRegressor{} }}})
	require.NoError(t, err)

	_, err = SimulateScenario(b, "", 10, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidScenario)
	_, err = SimulateScenario(b, "", -1, 3, 2)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestEstimateFromRaster(t *testing.T) {
	stub := &sumRegressor{}
	b, err := TrainCandidates(stormFeatures(t), []Candidate{{Name: "stub", New: func() Regressor { return stub }}})
	require.NoError(t, err)

	_, err = EstimateFromRaster(b, "", 0.3)
	require.NoError(t, err)

	raw := rawFrom(b, stub.last)
	for i, spec := range b.Specs {
		switch spec.SensorType {
		case models.SensorTypeWaterLevel:
			assert.InDelta(t, 3.0, raw[i], 1e-9, spec.Name)
		case models.SensorTypeRainGauge:
			assert.InDelta(t, 15.0, raw[i], 1e-9, spec.Name)
		}
	}
}
