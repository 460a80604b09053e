package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mr1hm/flood-alerts/internal/models"
)

func (d *DB) AddAlert(ctx context.Context, a *models.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO alerts (id, type, level, value, unit, location, timestamp, recommendation, description, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, string(a.Type), int(a.Level), a.Value, a.Unit, a.Location, a.Timestamp.UTC(),
		a.Recommendation, a.Description, string(a.Status),
	)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

// ListAlerts returns alerts newest first.
func (d *DB) ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error) {
	var w where
	if opts.Level != nil {
		w.add("level = ?", int(*opts.Level))
	}
	if opts.MinLevel != nil {
		w.add("level >= ?", int(*opts.MinLevel))
	}
	if opts.Status != nil {
		w.add("status = ?", string(*opts.Status))
	}
	if opts.Type != nil {
		w.add("type = ?", string(*opts.Type))
	}
	if opts.Since != nil {
		w.add("timestamp >= ?", opts.Since.UTC())
	}

	query := `SELECT id, type, level, value, unit, location, timestamp, recommendation, description, status
		FROM alerts` + w.String() + ` ORDER BY timestamp DESC, id DESC`
	args := w.args
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var typ, status string
		var level int
		if err := rows.Scan(&a.ID, &typ, &level, &a.Value, &a.Unit, &a.Location, &a.Timestamp,
			&a.Recommendation, &a.Description, &status); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		a.Type = models.SensorType(typ)
		a.Level = models.AlertLevel(level)
		a.Status = models.AlertStatus(status)
		a.Timestamp = a.Timestamp.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ResolveAlert moves an alert to RESOLVED. Resolving an already resolved
// alert is a no-op.
func (d *DB) ResolveAlert(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`UPDATE alerts SET status = ? WHERE id = ?`),
		string(models.AlertStatusResolved), id)
	if err != nil {
		return fmt.Errorf("error resolving alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error resolving alert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}
