package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance using the
// population standard deviation. Constant features keep a scale of 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

const zeroScale = 10 * 2.220446049250313e-16

func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	nFeatures := len(X[0])
	s := &Scaler{
		Mean:  make([]float64, nFeatures),
		Scale: make([]float64, nFeatures),
	}

	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		std := math.Sqrt(variance)
		if std < zeroScale {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("feature vector has %d values, scaler expects %d", len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
