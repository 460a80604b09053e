package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/flood-alerts/internal/models"
)

func (d *DB) AddCommunity(ctx context.Context, c *models.Community) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO communities (id, name, location, estimated_population, main_contact)
		VALUES (?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Location, c.EstimatedPopulation, c.MainContact,
	)
	if err != nil {
		return fmt.Errorf("error inserting community: %w", err)
	}
	return nil
}

func (d *DB) ListCommunities(ctx context.Context) ([]models.Community, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, location, estimated_population, main_contact
		FROM communities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying communities: %w", err)
	}
	defer rows.Close()

	var out []models.Community
	for rows.Next() {
		var c models.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.EstimatedPopulation, &c.MainContact); err != nil {
			return nil, fmt.Errorf("error scanning community: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddAidRequest registers a new request as PENDING.
func (d *DB) AddAidRequest(ctx context.Context, r *models.AidRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := d.clock.Now().UTC()
	r.Status = models.RequestStatusPending
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO aid_requests (id, community_id, aid_type, description, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.CommunityID, r.AidType, r.Description, string(r.Status), string(r.Priority), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting aid request: %w", err)
	}
	return nil
}

const aidRequestColumns = `
	SELECT r.id, r.community_id, COALESCE(c.name, ''), r.aid_type, r.description,
		r.status, r.priority, r.created_at, r.updated_at
	FROM aid_requests r
	LEFT JOIN communities c ON c.id = r.community_id`

func scanAidRequest(sc scanner) (*models.AidRequest, error) {
	var r models.AidRequest
	var status, priority string
	if err := sc.Scan(&r.ID, &r.CommunityID, &r.CommunityName, &r.AidType, &r.Description,
		&status, &priority, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.RequestStatus(status)
	r.Priority = models.Priority(priority)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (d *DB) GetAidRequest(ctx context.Context, id string) (*models.AidRequest, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(aidRequestColumns+` WHERE r.id = ?`), id)
	r, err := scanAidRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("aid request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying aid request: %w", err)
	}
	return r, nil
}

// ListAidRequests returns requests newest first, optionally filtered by
// status and creation time.
func (d *DB) ListAidRequests(ctx context.Context, status *models.RequestStatus, since *time.Time) ([]models.AidRequest, error) {
	var w where
	if status != nil {
		w.add("r.status = ?", string(*status))
	}
	if since != nil {
		w.add("r.created_at >= ?", since.UTC())
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(aidRequestColumns+w.String()+` ORDER BY r.created_at DESC, r.id`), w.args...)
	if err != nil {
		return nil, fmt.Errorf("error querying aid requests: %w", err)
	}
	defer rows.Close()

	var out []models.AidRequest
	for rows.Next() {
		r, err := scanAidRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning aid request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (d *DB) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid request status %q", status)
	}
	res, err := d.db.ExecContext(ctx, d.rebind(`
		UPDATE aid_requests SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), d.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error updating aid request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating aid request: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("aid request %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *DB) AddResource(ctx context.Context, r *models.Resource) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO resources (id, name, type, available_quantity, unit, storage_location)
		VALUES (?, ?, ?, ?, ?, ?)`),
		r.ID, r.Name, r.Type, r.AvailableQuantity, r.Unit, r.StorageLocation,
	)
	if err != nil {
		return fmt.Errorf("error inserting resource: %w", err)
	}
	return nil
}

func (d *DB) ListResources(ctx context.Context) ([]models.Resource, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, type, available_quantity, unit, storage_location
		FROM resources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying resources: %w", err)
	}
	defer rows.Close()

	var out []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.AvailableQuantity, &r.Unit, &r.StorageLocation); err != nil {
			return nil, fmt.Errorf("error scanning resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Allocate records an allocation and decrements the resource stock in one
// transaction. The stock never goes negative.
func (d *DB) Allocate(ctx context.Context, requestID, resourceID string, quantity float64) (*models.Allocation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting allocation: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM aid_requests WHERE id = ?`), requestID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("aid request %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying aid request: %w", err)
	}

	a := &models.Allocation{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		ResourceID:  resourceID,
		Quantity:    quantity,
		AllocatedAt: d.clock.Now().UTC(),
		Status:      models.AllocationStatusPending,
	}
	err = tx.QueryRowContext(ctx, d.rebind(`SELECT name, unit FROM resources WHERE id = ?`), resourceID).
		Scan(&a.ResourceName, &a.Unit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying resource: %w", err)
	}

	res, err := tx.ExecContext(ctx, d.rebind(`
		UPDATE resources SET available_quantity = available_quantity - ?
		WHERE id = ? AND available_quantity >= ?`),
		quantity, resourceID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error updating stock: %w", err)
	}
	if n == 0 {
		return nil, ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, d.rebind(`
		INSERT INTO allocations (id, request_id, resource_id, quantity, allocated_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.RequestID, a.ResourceID, a.Quantity, a.AllocatedAt, string(a.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting allocation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing allocation: %w", err)
	}
	return a, nil
}

const allocationColumns = `
	SELECT a.id, a.request_id, a.resource_id, COALESCE(r.name, ''), a.quantity,
		COALESCE(r.unit, ''), a.allocated_at, a.status
	FROM allocations a
	LEFT JOIN resources r ON r.id = a.resource_id`

func (d *DB) ListAllocations(ctx context.Context, requestID string) ([]models.Allocation, error) {
	return d.queryAllocations(ctx, allocationColumns+` WHERE a.request_id = ? ORDER BY a.allocated_at DESC`, requestID)
}

func (d *DB) ListAllocationsSince(ctx context.Context, since time.Time) ([]models.Allocation, error) {
	return d.queryAllocations(ctx, allocationColumns+` WHERE a.allocated_at >= ? ORDER BY a.allocated_at ASC`, since.UTC())
}

func (d *DB) queryAllocations(ctx context.Context, query string, args ...any) ([]models.Allocation, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying allocations: %w", err)
	}
	defer rows.Close()

	var out []models.Allocation
	for rows.Next() {
		var a models.Allocation
		var status string
		if err := rows.Scan(&a.ID, &a.RequestID, &a.ResourceID, &a.ResourceName, &a.Quantity,
			&a.Unit, &a.AllocatedAt, &status); err != nil {
			return nil, fmt.Errorf("error scanning allocation: %w", err)
		}
		a.Status = models.AllocationStatus(status)
		a.AllocatedAt = a.AllocatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
