package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mr1hm/flood-alerts/internal/features"
)

// ModelResult is the outcome of one candidate: metrics on success, a
// *TrainingError otherwise.
type ModelResult struct {
	Name    string
	Metrics Metrics
	Err     error
}

func (r ModelResult) OK() bool {
	return r.Err == nil
}

// ModelBundle is everything needed to predict: fitted models, the feature
// schema they were trained on, and the normalizer for raw inputs. Bundles
// are not modified after Train returns.
type ModelBundle struct {
	ID           string
	Results      []ModelResult // candidate order
	Specs        []features.FeatureSpec
	FeatureNames []string
	TargetColumn string
	Scaler       *features.Scaler
	LastKnown    []float64 // raw, pre-normalization
	TrainSize    int
	TestSize     int
	TrainedAt    time.Time

	models map[string]Regressor
}

// Train fits and evaluates the default candidates on a feature set.
func Train(fs *features.FeatureSet) (*ModelBundle, error) {
	return TrainCandidates(fs, DefaultCandidates())
}

// TrainCandidates fits every candidate on the same deterministic split. A
// candidate that errors or panics is recorded and skipped; the pass only
// fails when the data cannot support a split at all.
func TrainCandidates(fs *features.FeatureSet, candidates []Candidate) (*ModelBundle, error) {
	if fs == nil || len(fs.X) < 2 {
		n := 0
		if fs != nil {
			n = len(fs.X)
		}
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", features.ErrInsufficientData, n)
	}

	trainIdx, testIdx := splitIndexes(len(fs.X), DefaultSeed)
	xTrain, yTrain := subset(fs.X, fs.Y, trainIdx)
	xTest, yTest := subset(fs.X, fs.Y, testIdx)

	bundle := &ModelBundle{
		Specs:        fs.Specs,
		FeatureNames: fs.FeatureNames,
		TargetColumn: fs.TargetColumn,
		Scaler:       fs.Scaler,
		LastKnown:    fs.LastKnown(),
		TrainSize:    len(trainIdx),
		TestSize:     len(testIdx),
		TrainedAt:    clock.Now().UTC(),
		models:       make(map[string]Regressor, len(candidates)),
	}

	for _, c := range candidates {
		model, metrics, err := fitCandidate(c, xTrain, yTrain, xTest, yTest)
		if err != nil {
			bundle.Results = append(bundle.Results, ModelResult{
				Name:    c.Name,
				Metrics: Metrics{MAE: math.NaN(), R2: math.NaN()},
				Err:     err,
			})
			continue
		}
		bundle.models[c.Name] = model
		bundle.Results = append(bundle.Results, ModelResult{Name: c.Name, Metrics: metrics})
	}

	return bundle, nil
}

func fitCandidate(c Candidate, xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64) (model Regressor, metrics Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = &TrainingError{Model: c.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	model = c.New()
	if err := model.Fit(xTrain, yTrain); err != nil {
		return nil, Metrics{}, &TrainingError{Model: c.Name, Err: err}
	}

	pred := make([]float64, len(xTest))
	for i, x := range xTest {
		pred[i] = model.Predict(x)
		if math.IsNaN(pred[i]) || math.IsInf(pred[i], 0) {
			return nil, Metrics{}, &TrainingError{Model: c.Name, Err: errors.New("non-finite prediction")}
		}
	}
	return model, evaluate(yTest, pred), nil
}

// DefaultModel is the first candidate, in training order, that succeeded.
func (b *ModelBundle) DefaultModel() (string, error) {
	for _, r := range b.Results {
		if r.OK() {
			return r.Name, nil
		}
	}
	return "", ErrNoModel
}

// Model resolves a model by name; an empty name selects the default.
func (b *ModelBundle) Model(name string) (string, Regressor, error) {
	if name == "" {
		var err error
		if name, err = b.DefaultModel(); err != nil {
			return "", nil, err
		}
	}
	m, ok := b.models[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrNoModel, name)
	}
	return name, m, nil
}

func (b *ModelBundle) ModelNames() []string {
	var names []string
	for _, r := range b.Results {
		if r.OK() {
			names = append(names, r.Name)
		}
	}
	return names
}
