// Package ingestion records sensor readings and raises alerts from them,
// either on demand or from the simulated monitoring cycle.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	internalgrpc "github.com/mr1hm/flood-alerts/internal/grpc"
	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/notify"
	"github.com/mr1hm/flood-alerts/internal/observability"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

// Processor persists a reading, records an alert when the reading is above
// SAFE and fans the alert out to stream subscribers and Redis.
type Processor struct {
	readings    repository.ReadingRepository
	recorder    *alerting.Recorder
	broadcaster *internalgrpc.Broadcaster
	publisher   *notify.AlertPublisher
	metrics     *observability.Metrics
	clock       clockwork.Clock
}

type ProcessorOption func(*Processor)

func WithBroadcaster(b *internalgrpc.Broadcaster) ProcessorOption {
	return func(p *Processor) { p.broadcaster = b }
}

func WithPublisher(pub *notify.AlertPublisher) ProcessorOption {
	return func(p *Processor) { p.publisher = pub }
}

func WithClock(c clockwork.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

func NewProcessor(readings repository.ReadingRepository, recorder *alerting.Recorder, metrics *observability.Metrics, opts ...ProcessorOption) *Processor {
	p := &Processor{
		readings: readings,
		recorder: recorder,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns the alert raised for the reading, or nil when the reading
// is safe. Store failures wrap alerting.ErrPersistence. Publish failures are
// logged and never fail the reading.
func (p *Processor) Process(ctx context.Context, r *models.SensorReading) (*models.Alert, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = p.clock.Now().UTC()
	}
	if r.Unit == "" {
		r.Unit = r.SensorType.Unit()
	}

	if err := p.readings.AddReading(ctx, r); err != nil {
		p.metrics.PersistenceFailures.Inc()
		return nil, fmt.Errorf("%w: reading %s: %w", alerting.ErrPersistence, r.ID, err)
	}
	p.metrics.ReadingsRecorded.WithLabelValues(string(r.SensorType)).Inc()

	alert, err := p.recorder.RecordIfNeeded(ctx, *r)
	if err != nil {
		p.metrics.PersistenceFailures.Inc()
		return nil, err
	}
	if alert == nil {
		return nil, nil
	}
	p.metrics.AlertsRaised.WithLabelValues(alert.Level.String()).Inc()

	if p.broadcaster != nil {
		p.broadcaster.Broadcast(alert)
	}
	if p.publisher.Enabled() {
		if _, err := p.publisher.Publish(ctx, alert); err != nil {
			slog.Warn("alert publish failed", "id", alert.ID, "error", err)
		} else {
			p.metrics.AlertsPublished.Inc()
		}
	}

	slog.Info("alert raised", "id", alert.ID, "type", alert.Type, "level", alert.Level, "location", alert.Location, "value", alert.Value)
	return alert, nil
}
