package features

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mr1hm/flood-alerts/internal/models"
)

type Kind string

const (
	KindLag        Kind = "lag"
	KindRollingSum Kind = "rolling_sum"
)

// FeatureSpec describes how one model input is derived from a series column.
type FeatureSpec struct {
	Name       string            `json:"name"`
	Column     string            `json:"column"`
	SensorType models.SensorType `json:"sensor_type"`
	Kind       Kind              `json:"kind"`
	Window     int               `json:"window"`
}

type FeatureRow struct {
	Timestamp time.Time
	Values    []float64 // ordered as FeatureSet.FeatureNames
	Target    float64
}

type FeatureSet struct {
	X            [][]float64 // normalized
	Y            []float64
	FeatureNames []string
	Specs        []FeatureSpec
	TargetColumn string
	Rows         []FeatureRow // pre-normalization
	Scaler       *Scaler
	Cadence      time.Duration
}

var (
	waterLags  = []int{1, 3, 6}
	rainWindow = []int{3, 6, 12}
	soilLags   = []int{1}
)

// Build turns raw readings into a supervised table predicting the target
// water level one cadence step ahead. The readings are processed in
// timestamp order; the result depends only on the readings and cadence.
func Build(readings []models.SensorReading, cadenceHours int) (*FeatureSet, error) {
	if cadenceHours <= 0 {
		return nil, fmt.Errorf("%w: got %d hours", ErrInvalidCadence, cadenceHours)
	}
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	cadence := time.Duration(cadenceHours) * time.Hour

	reg := NewColumnRegistry()
	g := resample(readings, cadence, reg)

	waterCols := reg.ColumnsOf(models.SensorTypeWaterLevel)
	if len(waterCols) == 0 {
		return nil, ErrNoTargetSensor
	}
	targetCol := waterCols[0]

	specs := specsFor(reg)
	derived := make([][]float64, len(specs))
	for i, spec := range specs {
		derived[i] = derive(g.values[spec.Column], spec)
	}
	target := shiftLead(g.values[targetCol])

	rows := assembleRows(g.times, derived, target)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no complete rows after windowing %d buckets", ErrInsufficientData, len(g.times))
	}

	raw := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		raw[i] = r.Values
		y[i] = r.Target
	}
	scaler := FitScaler(raw)
	X, err := scaler.TransformAll(raw)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}

	return &FeatureSet{
		X:            X,
		Y:            y,
		FeatureNames: names,
		Specs:        specs,
		TargetColumn: targetCol,
		Rows:         rows,
		Scaler:       scaler,
		Cadence:      cadence,
	}, nil
}

// LastKnown returns a copy of the most recent raw feature vector.
func (fs *FeatureSet) LastKnown() []float64 {
	if len(fs.Rows) == 0 {
		return nil
	}
	last := fs.Rows[len(fs.Rows)-1].Values
	out := make([]float64, len(last))
	copy(out, last)
	return out
}

func specsFor(reg *ColumnRegistry) []FeatureSpec {
	var specs []FeatureSpec
	for _, col := range reg.Columns() {
		st, _ := reg.Lookup(col)
		switch st {
		case models.SensorTypeWaterLevel:
			for _, k := range waterLags {
				specs = append(specs, lagSpec(col, st, k))
			}
		case models.SensorTypeRainGauge:
			for _, w := range rainWindow {
				specs = append(specs, FeatureSpec{
					Name:       col + "_acc" + strconv.Itoa(w),
					Column:     col,
					SensorType: st,
					Kind:       KindRollingSum,
					Window:     w,
				})
			}
		case models.SensorTypeSoilMoisture:
			for _, k := range soilLags {
				specs = append(specs, lagSpec(col, st, k))
			}
		}
	}
	return specs
}

func lagSpec(col string, st models.SensorType, k int) FeatureSpec {
	return FeatureSpec{
		Name:       col + "_lag" + strconv.Itoa(k),
		Column:     col,
		SensorType: st,
		Kind:       KindLag,
		Window:     k,
	}
}

func derive(vals []float64, spec FeatureSpec) []float64 {
	switch spec.Kind {
	case KindLag:
		return shiftLag(vals, spec.Window)
	case KindRollingSum:
		return shiftedRollingSum(vals, spec.Window)
	default:
		panic("features: unknown kind " + string(spec.Kind))
	}
}

// shiftLag exposes vals[i-k] at position i.
func shiftLag(vals []float64, k int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		if i < k {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i-k]
	}
	return out
}

// shiftedRollingSum sums the up to w values strictly before position i.
func shiftedRollingSum(vals []float64, w int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := max(0, i-w); j < i; j++ {
			sum += vals[j]
		}
		out[i] = sum
	}
	return out
}

// shiftLead exposes vals[i+1] at position i.
func shiftLead(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		if i+1 >= len(vals) {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i+1]
	}
	return out
}

// assembleRows keeps a time step only when every derived input and the
// target are present there.
func assembleRows(times []time.Time, derived [][]float64, target []float64) []FeatureRow {
	var rows []FeatureRow
	for i, ts := range times {
		if math.IsNaN(target[i]) {
			continue
		}
		values := make([]float64, len(derived))
		complete := true
		for j, col := range derived {
			if math.IsNaN(col[i]) {
				complete = false
				break
			}
			values[j] = col[i]
		}
		if !complete {
			continue
		}
		rows = append(rows, FeatureRow{Timestamp: ts, Values: values, Target: target[i]})
	}
	return rows
}
