package forecast

import (
	"errors"
	"fmt"
)

var (
	ErrNoModel         = errors.New("no trained model available")
	ErrUnknownFeature  = errors.New("unknown feature")
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrFeatureCount    = errors.New("feature vector length mismatch")
)

// TrainingError records why one candidate failed to fit or evaluate. Other
// candidates in the same training pass are unaffected.
type TrainingError struct {
	Model string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training %s: %v", e.Model, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}
