package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/flood-alerts/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient resource stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

type ReadingFilter struct {
	SensorType *models.SensorType
	SensorID   *string
	Location   *string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Descending bool // newest first; default is oldest first
}

type AlertFilter struct {
	Level    *models.AlertLevel
	MinLevel *models.AlertLevel // >= this level (e.g., HIGH includes HIGH and CRITICAL)
	Status   *models.AlertStatus
	Type     *models.SensorType
	Since    *time.Time
	Limit    int
}

type SensorRepository interface {
	AddSensor(ctx context.Context, s *models.Sensor) error
	GetSensor(ctx context.Context, id string) (*models.Sensor, error)
	ListSensors(ctx context.Context) ([]models.Sensor, error)
}

type ReadingRepository interface {
	AddReading(ctx context.Context, r *models.SensorReading) error
	ListReadings(ctx context.Context, opts ReadingFilter) ([]models.SensorReading, error)
}

type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, id string) error
}

type EvacuationRepository interface {
	AddRoute(ctx context.Context, r *models.EvacuationRoute) error
	ListRoutes(ctx context.Context) ([]models.EvacuationRoute, error)
	AddShelter(ctx context.Context, s *models.Shelter) error
	ListShelters(ctx context.Context) ([]models.Shelter, error)
	AddMobility(ctx context.Context, m *models.MobilityData) error
	LatestMobility(ctx context.Context, limit int) ([]models.MobilityData, error)
}

type CommunityRepository interface {
	AddCommunity(ctx context.Context, c *models.Community) error
	ListCommunities(ctx context.Context) ([]models.Community, error)
	AddAidRequest(ctx context.Context, r *models.AidRequest) error
	GetAidRequest(ctx context.Context, id string) (*models.AidRequest, error)
	ListAidRequests(ctx context.Context, status *models.RequestStatus, since *time.Time) ([]models.AidRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus) error
	AddResource(ctx context.Context, r *models.Resource) error
	ListResources(ctx context.Context) ([]models.Resource, error)
	Allocate(ctx context.Context, requestID, resourceID string, quantity float64) (*models.Allocation, error)
	ListAllocations(ctx context.Context, requestID string) ([]models.Allocation, error)
	ListAllocationsSince(ctx context.Context, since time.Time) ([]models.Allocation, error)
}

// Store is the full persistence surface used by the HTTP API.
type Store interface {
	SensorRepository
	ReadingRepository
	AlertRepository
	EvacuationRepository
	CommunityRepository
	Ping(ctx context.Context) error
}
