package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		v := -1.6 + 3.2*float64(i)/float64(n-1)
		X[i] = []float64{v}
		y[i] = v
	}
	return X, y
}

func step(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		v := -1 + 2*float64(i)/float64(n-1)
		X[i] = []float64{v}
		if v >= 0 {
			y[i] = 1
		}
	}
	return X, y
}

func trainingMAE(t *testing.T, r Regressor, X [][]float64, y []float64) float64 {
	t.Helper()
	require.NoError(t, r.Fit(X, y))
	pred := make([]float64, len(X))
	for i, x := range X {
		pred[i] = r.Predict(x)
	}
	return meanAbsoluteError(y, pred)
}

func TestRegressionTree_FitsStepExactly(t *testing.T) {
	X, y := step(20)
	tree := newRegressionTree(treeConfig{}, nil)
	tree.fit(X, y, allRows(len(X)))

	assert.Equal(t, 0.0, tree.predict([]float64{-0.9}))
	assert.Equal(t, 1.0, tree.predict([]float64{0.9}))
}

func TestRegressionTree_MaxDepth(t *testing.T) {
	X, y := line(32)
	tree := newRegressionTree(treeConfig{maxDepth: 1}, nil)
	tree.fit(X, y, allRows(len(X)))

	seen := map[float64]bool{}
	for _, x := range X {
		seen[tree.predict(x)] = true
	}
	assert.Len(t, seen, 2)
}

func TestRandomForest_Step(t *testing.T) {
	X, y := step(40)
	rf := NewRandomForest()
	require.NoError(t, rf.Fit(X, y))

	assert.Less(t, rf.Predict([]float64{-0.8}), 0.5)
	assert.Greater(t, rf.Predict([]float64{0.8}), 0.5)
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := line(30)
	a, b := NewRandomForest(), NewRandomForest()
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	for _, x := range [][]float64{{-1.2}, {0.1}, {1.5}} {
		assert.Equal(t, a.Predict(x), b.Predict(x))
	}
}

func TestGradientBoosting_BeatsMeanBaseline(t *testing.T) {
	X, y := line(30)
	baseline := meanAbsoluteError(y, make([]float64, len(y))) // mean of y is 0

	mae := trainingMAE(t, NewGradientBoosting(), X, y)
	assert.Less(t, mae, baseline/5)
}

func TestKernelSVR_BeatsMeanBaseline(t *testing.T) {
	X, y := line(30)
	baseline := meanAbsoluteError(y, make([]float64, len(y)))

	mae := trainingMAE(t, NewKernelSVR(), X, y)
	assert.Less(t, mae, baseline/2)
}

func TestKernelSVR_ScaleGamma(t *testing.T) {
	X := [][]float64{{1, -1}, {-1, 1}}
	assert.InDelta(t, 0.5, scaleGamma(X), 1e-12)
	assert.Equal(t, 1.0, scaleGamma([][]float64{{2, 2}, {2, 2}}))
}

func TestRegressors_RejectEmpty(t *testing.T) {
	for _, c := range DefaultCandidates() {
		err := c.New().Fit(nil, nil)
		assert.Error(t, err, c.Name)
	}
}

func TestEvaluate(t *testing.T) {
	m := evaluate([]float64{1, 2, 3}, []float64{1, 2, 4})
	assert.Equal(t, 0.33, m.MAE)
	assert.Equal(t, 0.5, m.R2)

	single := evaluate([]float64{4}, []float64{3})
	assert.Equal(t, 1.0, single.MAE)
	assert.True(t, math.IsNaN(single.R2))

	assert.Equal(t, 1.0, r2Score([]float64{2, 2}, []float64{2, 2}))
	assert.Equal(t, 0.0, r2Score([]float64{2, 2}, []float64{2, 3}))
}

func TestMetrics_MarshalNaN(t *testing.T) {
	b, err := Metrics{MAE: 0.25, R2: math.NaN()}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"mae":0.25,"r2":null}`, string(b))
}

func TestSplit(t *testing.T) {
	for n, want := range map[int]int{2: 1, 3: 1, 4: 1, 5: 1, 6: 2, 10: 2, 11: 3, 100: 20} {
		assert.Equal(t, want, testSize(n), "n=%d", n)
	}

	train, test := splitIndexes(10, DefaultSeed)
	assert.Len(t, test, 2)
	assert.Len(t, train, 8)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 10)

	train2, test2 := splitIndexes(10, DefaultSeed)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}
