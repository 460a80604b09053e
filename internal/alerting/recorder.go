package alerting

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/flood-alerts/internal/models"
)

var ErrPersistence = errors.New("alert persistence failed")

type AlertStore interface {
	AddAlert(ctx context.Context, a *models.Alert) error
}

// Recorder turns non-safe readings into persisted alerts. Every qualifying
// reading yields a new alert; repeated readings at the same level are not
// suppressed.
type Recorder struct {
	store AlertStore
	clock clockwork.Clock
}

func NewRecorder(store AlertStore, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		store: store,
		clock: clock,
	}
}

// RecordIfNeeded classifies the reading and records an alert when the level
// is above SAFE. It returns nil, nil for safe readings.
func (r *Recorder) RecordIfNeeded(ctx context.Context, reading models.SensorReading) (*models.Alert, error) {
	return r.Record(ctx, reading, ClassifySensor(reading.Value, reading.SensorType))
}

// Record persists an alert for an already classified reading. On store
// failure the alert is dropped and the error wraps ErrPersistence.
func (r *Recorder) Record(ctx context.Context, reading models.SensorReading, level models.AlertLevel) (*models.Alert, error) {
	if level == models.AlertLevelSafe {
		return nil, nil
	}

	rec := Recommendation(level)
	alert := &models.Alert{
		ID:             uuid.NewString(),
		Type:           reading.SensorType,
		Level:          level,
		Value:          reading.Value,
		Unit:           reading.Unit,
		Location:       reading.Location,
		Timestamp:      r.clock.Now().UTC(),
		Recommendation: rec,
		Description:    Describe(reading, level, rec),
		Status:         models.AlertStatusActive,
	}

	if err := r.store.AddAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return alert, nil
}

// Describe renders the full alert text shown to operators.
func Describe(reading models.SensorReading, level models.AlertLevel, recommendation string) string {
	value := strconv.FormatFloat(reading.Value, 'f', -1, 64)
	if reading.Unit != "" {
		value += " " + reading.Unit
	}
	return fmt.Sprintf("%s alert - level %s: %s detected at %s. %s",
		reading.SensorType.Label(), level, value, reading.Location, recommendation)
}
