package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Regressor is a fitted model mapping a normalized feature vector to a
// water level.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Candidate names a model family and builds a fresh, unfitted instance.
type Candidate struct {
	Name string
	New  func() Regressor
}

const (
	ModelRandomForest     = "Random Forest"
	ModelGradientBoosting = "Gradient Boosting"
	ModelSVR              = "SVR"

	DefaultSeed = 42
)

// DefaultCandidates are trained in this order; the first one that succeeds
// becomes the bundle's default model.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: ModelRandomForest, New: func() Regressor { return NewRandomForest() }},
		{Name: ModelGradientBoosting, New: func() Regressor { return NewGradientBoosting() }},
		{Name: ModelSVR, New: func() Regressor { return NewKernelSVR() }},
	}
}

var errEmptyTrainingSet = errors.New("empty training set")

func checkShape(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errEmptyTrainingSet
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d rows but %d targets", len(X), len(y))
	}
	return nil
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

type RandomForest struct {
	NTrees      int
	MaxFeatures int // 0 means all features at every split
	Seed        int64

	trees []*regressionTree
}

func NewRandomForest() *RandomForest {
	return &RandomForest{NTrees: 100, Seed: DefaultSeed}
}

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	rng := newRand(f.Seed)
	n := len(X)

	f.trees = make([]*regressionTree, f.NTrees)
	for t := range f.trees {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		tree := newRegressionTree(treeConfig{maxFeatures: f.MaxFeatures}, rng)
		tree.fit(X, y, sample)
		f.trees[t] = tree
	}
	return nil
}

func (f *RandomForest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

type GradientBoosting struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int

	init  float64
	trees []*regressionTree
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3}
}

func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	n := len(X)
	idx := allRows(n)

	g.init = stat.Mean(y, nil)
	current := make([]float64, n)
	for i := range current {
		current[i] = g.init
	}

	residual := make([]float64, n)
	g.trees = make([]*regressionTree, 0, g.NEstimators)
	for m := 0; m < g.NEstimators; m++ {
		for i := range residual {
			residual[i] = y[i] - current[i]
		}
		tree := newRegressionTree(treeConfig{maxDepth: g.MaxDepth}, nil)
		tree.fit(X, residual, idx)
		for i := range current {
			current[i] += g.LearningRate * tree.predict(X[i])
		}
		g.trees = append(g.trees, tree)
	}
	return nil
}

func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.init
	for _, t := range g.trees {
		out += g.LearningRate * t.predict(x)
	}
	return out
}

// KernelSVR is an RBF kernel support-vector regressor in its least-squares
// form: the dual is a single linear system instead of a quadratic program.
type KernelSVR struct {
	C     float64
	Gamma float64 // 0 means 1 / (n_features * var(X))

	gamma   float64
	support [][]float64
	alpha   []float64
	bias    float64
}

func NewKernelSVR() *KernelSVR {
	return &KernelSVR{C: 1}
}

func (s *KernelSVR) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	if s.C <= 0 {
		return fmt.Errorf("C must be positive, got %v", s.C)
	}
	n := len(X)

	s.gamma = s.Gamma
	if s.gamma <= 0 {
		s.gamma = scaleGamma(X)
	}

	// [0  1ᵀ        ] [b]   [0]
	// [1  K + I/C   ] [α] = [y]
	a := mat.NewDense(n+1, n+1, nil)
	rhs := mat.NewVecDense(n+1, nil)
	for i := 0; i < n; i++ {
		a.Set(0, i+1, 1)
		a.Set(i+1, 0, 1)
		rhs.SetVec(i+1, y[i])
		for j := i; j < n; j++ {
			k := rbf(X[i], X[j], s.gamma)
			if i == j {
				k += 1 / s.C
			}
			a.Set(i+1, j+1, k)
			a.Set(j+1, i+1, k)
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return fmt.Errorf("solving dual system: %w", err)
		}
	}

	s.bias = sol.AtVec(0)
	s.alpha = make([]float64, n)
	for i := range s.alpha {
		s.alpha[i] = sol.AtVec(i + 1)
	}
	s.support = make([][]float64, n)
	for i, row := range X {
		s.support[i] = append([]float64(nil), row...)
	}
	return nil
}

func (s *KernelSVR) Predict(x []float64) float64 {
	out := s.bias
	for i, sv := range s.support {
		out += s.alpha[i] * rbf(sv, x, s.gamma)
	}
	return out
}

func rbf(a, b []float64, gamma float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

func scaleGamma(X [][]float64) float64 {
	nFeatures := len(X[0])
	flat := make([]float64, 0, len(X)*nFeatures)
	for _, row := range X {
		flat = append(flat, row...)
	}
	_, variance := stat.PopMeanVariance(flat, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(nFeatures) * variance)
}
