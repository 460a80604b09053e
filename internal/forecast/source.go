package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

type ReadingSource interface {
	ListReadings(ctx context.Context, opts repository.ReadingFilter) ([]models.SensorReading, error)
}

// TrainFromSource loads the last periodDays of readings, builds features at
// the given cadence and trains the default candidates.
func TrainFromSource(ctx context.Context, src ReadingSource, periodDays, cadenceHours int) (*ModelBundle, error) {
	if periodDays < 1 {
		return nil, fmt.Errorf("%w: period must be at least 1 day, got %d", features.ErrInsufficientData, periodDays)
	}

	now := clock.Now().UTC()
	since := now.Add(-time.Duration(periodDays) * 24 * time.Hour)
	readings, err := src.ListReadings(ctx, repository.ReadingFilter{Since: &since, Until: &now})
	if err != nil {
		return nil, fmt.Errorf("loading readings: %w", err)
	}

	fs, err := features.Build(readings, cadenceHours)
	if err != nil {
		return nil, err
	}
	return Train(fs)
}
