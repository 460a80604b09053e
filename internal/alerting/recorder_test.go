package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/flood-alerts/internal/models"
)

type memoryAlertStore struct {
	mu     sync.Mutex
	alerts []*models.Alert
	err    error
}

func (m *memoryAlertStore) AddAlert(ctx context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func waterReading(value float64) models.SensorReading {
	return models.SensorReading{
		ID:         "r1",
		SensorID:   "s1",
		SensorType: models.SensorTypeWaterLevel,
		Location:   "Rio Tietê - Ponte A",
		Value:      value,
		Unit:       "m",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecorder_SafeReadingProducesNothing(t *testing.T) {
	store := &memoryAlertStore{}
	rec := NewRecorder(store, clockwork.NewFakeClock())

	alert, err := rec.RecordIfNeeded(context.Background(), waterReading(1.2))
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, store.alerts)
}

func TestRecorder_RecordsActiveAlert(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	store := &memoryAlertStore{}
	rec := NewRecorder(store, clockwork.NewFakeClockAt(now))

	alert, err := rec.RecordIfNeeded(context.Background(), waterReading(5.8))
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, models.AlertLevelHigh, alert.Level)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, models.SensorTypeWaterLevel, alert.Type)
	assert.Equal(t, now, alert.Timestamp)
	assert.Equal(t, 5.8, alert.Value)
	assert.Equal(t, "m", alert.Unit)
	assert.Equal(t, Recommendation(models.AlertLevelHigh), alert.Recommendation)
	assert.Equal(t,
		"Water Level alert - level HIGH: 5.8 m detected at Rio Tietê - Ponte A. "+Recommendation(models.AlertLevelHigh),
		alert.Description)
	assert.NotEmpty(t, alert.ID)
	require.Len(t, store.alerts, 1)
	assert.Same(t, alert, store.alerts[0])
}

func TestRecorder_NoDeduplication(t *testing.T) {
	store := &memoryAlertStore{}
	rec := NewRecorder(store, clockwork.NewFakeClock())

	for i := 0; i < 3; i++ {
		_, err := rec.RecordIfNeeded(context.Background(), waterReading(4.0))
		require.NoError(t, err)
	}

	require.Len(t, store.alerts, 3)
	assert.NotEqual(t, store.alerts[0].ID, store.alerts[1].ID)
}

func TestRecorder_ExactlyOnePerNonSafeReading(t *testing.T) {
	store := &memoryAlertStore{}
	rec := NewRecorder(store, clockwork.NewFakeClock())

	values := []float64{0.5, 2.0, 1.9, 3.5, 6.6, -4}
	want := 0
	for _, v := range values {
		if ClassifySensor(v, models.SensorTypeWaterLevel) != models.AlertLevelSafe {
			want++
		}
		_, err := rec.RecordIfNeeded(context.Background(), waterReading(v))
		require.NoError(t, err)
	}

	assert.Len(t, store.alerts, want)
}

func TestRecorder_PersistenceFailure(t *testing.T) {
	cause := errors.New("disk full")
	store := &memoryAlertStore{err: cause}
	rec := NewRecorder(store, clockwork.NewFakeClock())

	alert, err := rec.RecordIfNeeded(context.Background(), waterReading(7.0))
	require.Error(t, err)
	assert.Nil(t, alert)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}

func TestRecorder_ExplicitLevel(t *testing.T) {
	store := &memoryAlertStore{}
	rec := NewRecorder(store, nil)

	alert, err := rec.Record(context.Background(), waterReading(0.1), models.AlertLevelCritical)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertLevelCritical, alert.Level)

	alert, err = rec.Record(context.Background(), waterReading(9), models.AlertLevelSafe)
	require.NoError(t, err)
	assert.Nil(t, alert)
}
