package forecast

import (
	"encoding/json"
	"math"
	"math/rand/v2"
)

// testSize holds out 20% of n rounded up, and never fewer than one sample.
func testSize(n int) int {
	return max(1, (n+4)/5)
}

// splitIndexes shuffles 0..n-1 with a fixed seed and returns the held-out
// indexes first.
func splitIndexes(n int, seed int64) (train, test []int) {
	perm := newRand(seed).Perm(n)
	nTest := testSize(n)
	return perm[nTest:], perm[:nTest]
}

// newRand returns a PCG stream fully determined by seed.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// Metrics are rounded to two decimals. R2 is NaN when fewer than two
// samples were held out.
type Metrics struct {
	MAE float64
	R2  float64
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	type wire struct {
		MAE *float64 `json:"mae"`
		R2  *float64 `json:"r2"`
	}
	finite := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(wire{MAE: finite(m.MAE), R2: finite(m.R2)})
}

func evaluate(yTrue, yPred []float64) Metrics {
	return Metrics{
		MAE: round2(meanAbsoluteError(yTrue, yPred)),
		R2:  round2(r2Score(yTrue, yPred)),
	}
}

func meanAbsoluteError(yTrue, yPred []float64) float64 {
	var s float64
	for i := range yTrue {
		s += math.Abs(yTrue[i] - yPred[i])
	}
	return s / float64(len(yTrue))
}

// r2Score follows the usual convention for a constant target: 1 for a
// perfect fit, 0 otherwise.
func r2Score(yTrue, yPred []float64) float64 {
	if len(yTrue) < 2 {
		return math.NaN()
	}
	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i, v := range yTrue {
		ssRes += (v - yPred[i]) * (v - yPred[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
