package features

import "errors"

var (
	ErrNoData           = errors.New("no readings in the requested window")
	ErrNoTargetSensor   = errors.New("no water level sensor found")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidCadence   = errors.New("cadence must be positive")
)
