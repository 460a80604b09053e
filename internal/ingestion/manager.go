package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/flood-alerts/internal/config"
	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/observability"
	"github.com/mr1hm/flood-alerts/internal/repository"
	"github.com/mr1hm/flood-alerts/internal/worker"
)

// Manager runs the monitoring cycle: on every tick it simulates one reading
// per active sensor and hands them to the worker pool.
type Manager struct {
	cfg       *config.Config
	sensors   repository.SensorRepository
	processor *Processor
	simulator *Simulator
	metrics   *observability.Metrics
	clock     clockwork.Clock
	pool      *worker.Pool[models.SensorReading]
	wg        sync.WaitGroup
}

func NewManager(cfg *config.Config, sensors repository.SensorRepository, processor *Processor, metrics *observability.Metrics, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		cfg:       cfg,
		sensors:   sensors,
		processor: processor,
		simulator: NewSimulator(cfg.Monitor.Seed, clock),
		metrics:   metrics,
		clock:     clock,
	}
}

func (m *Manager) Start(ctx context.Context) {
	process := func(ctx context.Context, r models.SensorReading) error {
		_, err := m.processor.Process(ctx, &r)
		return err
	}

	m.pool = worker.NewPool("readings", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, process)
	m.pool.Start(ctx)

	if m.cfg.Monitor.Enabled {
		m.wg.Add(1)
		go m.run(ctx)
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting monitor", "interval", m.cfg.Monitor.Interval)

	ticker := m.clock.NewTicker(m.cfg.Monitor.Interval)
	defer ticker.Stop()

	m.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor shutting down")
			return
		case <-ticker.Chan():
			m.Cycle(ctx)
		}
	}
}

// Cycle simulates and submits one reading per active sensor. It returns the
// number of readings submitted.
func (m *Manager) Cycle(ctx context.Context) int {
	sensors, err := m.sensors.ListSensors(ctx)
	if err != nil {
		slog.Error("listing sensors failed", "error", err)
		return 0
	}

	submitted := 0
	for _, s := range sensors {
		if s.Status != models.SensorStatusActive {
			continue
		}
		if err := m.Submit(ctx, m.simulator.Reading(s)); err != nil {
			slog.Warn("monitor cycle interrupted", "error", err)
			break
		}
		submitted++
	}

	m.metrics.MonitorCycles.Inc()
	slog.Debug("monitor cycle complete", "sensors", len(sensors), "submitted", submitted)
	return submitted
}

// Submit queues a reading for asynchronous processing.
func (m *Manager) Submit(ctx context.Context, r models.SensorReading) error {
	return m.pool.Submit(ctx, r)
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}
