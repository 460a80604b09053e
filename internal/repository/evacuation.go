package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mr1hm/flood-alerts/internal/models"
)

func (d *DB) AddRoute(ctx context.Context, r *models.EvacuationRoute) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO evacuation_routes (id, name, description, key_points, status, associated_risk)
		VALUES (?, ?, ?, ?, ?, ?)`),
		r.ID, r.Name, r.Description, r.KeyPoints, r.Status, r.AssociatedRisk,
	)
	if err != nil {
		return fmt.Errorf("error inserting route: %w", err)
	}
	return nil
}

func (d *DB) ListRoutes(ctx context.Context) ([]models.EvacuationRoute, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, description, key_points, status, associated_risk
		FROM evacuation_routes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying routes: %w", err)
	}
	defer rows.Close()

	var routes []models.EvacuationRoute
	for rows.Next() {
		var r models.EvacuationRoute
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.KeyPoints, &r.Status, &r.AssociatedRisk); err != nil {
			return nil, fmt.Errorf("error scanning route: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (d *DB) AddShelter(ctx context.Context, s *models.Shelter) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO shelters (id, name, location, max_capacity, current_capacity, address, contact, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.Name, s.Location, s.MaxCapacity, s.CurrentCapacity, s.Address, s.Contact, s.Status,
	)
	if err != nil {
		return fmt.Errorf("error inserting shelter: %w", err)
	}
	return nil
}

func (d *DB) ListShelters(ctx context.Context) ([]models.Shelter, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, location, max_capacity, current_capacity, address, contact, status
		FROM shelters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying shelters: %w", err)
	}
	defer rows.Close()

	var shelters []models.Shelter
	for rows.Next() {
		var s models.Shelter
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.MaxCapacity, &s.CurrentCapacity,
			&s.Address, &s.Contact, &s.Status); err != nil {
			return nil, fmt.Errorf("error scanning shelter: %w", err)
		}
		shelters = append(shelters, s)
	}
	return shelters, rows.Err()
}

func (d *DB) AddMobility(ctx context.Context, m *models.MobilityData) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = d.clock.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO mobility_data (id, location, traffic_level, estimated_travel_minutes, timestamp)
		VALUES (?, ?, ?, ?, ?)`),
		m.ID, m.Location, m.TrafficLevel, m.EstimatedTravelMinutes, m.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting mobility data: %w", err)
	}
	return nil
}

func (d *DB) LatestMobility(ctx context.Context, limit int) ([]models.MobilityData, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, location, traffic_level, estimated_travel_minutes, timestamp
		FROM mobility_data ORDER BY timestamp DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying mobility data: %w", err)
	}
	defer rows.Close()

	var out []models.MobilityData
	for rows.Next() {
		var m models.MobilityData
		if err := rows.Scan(&m.ID, &m.Location, &m.TrafficLevel, &m.EstimatedTravelMinutes, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning mobility data: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
