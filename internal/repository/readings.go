package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mr1hm/flood-alerts/internal/models"
)

func (d *DB) AddSensor(ctx context.Context, s *models.Sensor) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.SensorStatusActive
	}
	if s.InstalledAt.IsZero() {
		s.InstalledAt = d.clock.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO sensors (id, type, description, location, status, installed_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, string(s.Type), s.Description, s.Location, string(s.Status), s.InstalledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting sensor: %w", err)
	}
	return nil
}

func (d *DB) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(`
		SELECT id, type, description, location, status, installed_at
		FROM sensors WHERE id = ?`), id)

	s, err := scanSensor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sensor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying sensor: %w", err)
	}
	return s, nil
}

func (d *DB) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, type, description, location, status, installed_at
		FROM sensors ORDER BY location, type`)
	if err != nil {
		return nil, fmt.Errorf("error querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning sensor: %w", err)
		}
		sensors = append(sensors, *s)
	}
	return sensors, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSensor(sc scanner) (*models.Sensor, error) {
	var s models.Sensor
	var typ, status string
	if err := sc.Scan(&s.ID, &typ, &s.Description, &s.Location, &status, &s.InstalledAt); err != nil {
		return nil, err
	}
	s.Type = models.SensorType(typ)
	s.Status = models.SensorStatus(status)
	s.InstalledAt = s.InstalledAt.UTC()
	return &s, nil
}

func (d *DB) AddReading(ctx context.Context, r *models.SensorReading) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = d.clock.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO sensor_readings (id, sensor_id, sensor_type, location, value, unit, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.SensorID, string(r.SensorType), r.Location, r.Value, r.Unit, r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting reading: %w", err)
	}
	return nil
}

// ListReadings returns readings in timestamp order, oldest first unless
// Descending is set.
func (d *DB) ListReadings(ctx context.Context, opts ReadingFilter) ([]models.SensorReading, error) {
	var w where
	if opts.SensorType != nil {
		w.add("sensor_type = ?", string(*opts.SensorType))
	}
	if opts.SensorID != nil {
		w.add("sensor_id = ?", *opts.SensorID)
	}
	if opts.Location != nil {
		w.add("location = ?", *opts.Location)
	}
	if opts.Since != nil {
		w.add("timestamp >= ?", opts.Since.UTC())
	}
	if opts.Until != nil {
		w.add("timestamp <= ?", opts.Until.UTC())
	}

	query := `SELECT id, sensor_id, sensor_type, location, value, unit, timestamp FROM sensor_readings` + w.String()
	if opts.Descending {
		query += " ORDER BY timestamp DESC, id DESC"
	} else {
		query += " ORDER BY timestamp ASC, id ASC"
	}
	args := w.args
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying readings: %w", err)
	}
	defer rows.Close()

	var readings []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		var typ string
		if err := rows.Scan(&r.ID, &r.SensorID, &typ, &r.Location, &r.Value, &r.Unit, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning reading: %w", err)
		}
		r.SensorType = models.SensorType(typ)
		r.Timestamp = r.Timestamp.UTC()
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
