package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/flood-alerts/internal/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*DB, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	db, err := NewSQLiteDB(":memory:", WithClock(clock))
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b >= $2 LIMIT $3", pg.rebind("SELECT * FROM t WHERE a = ? AND b >= ? LIMIT ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestDB_Sensors(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	s := &models.Sensor{Type: models.SensorTypeWaterLevel, Location: "Ponte A", Description: "ultrasonic"}
	require.NoError(t, db.AddSensor(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, models.SensorStatusActive, s.Status)

	got, err := db.GetSensor(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SensorTypeWaterLevel, got.Type)
	assert.Equal(t, "Ponte A", got.Location)
	assert.True(t, got.InstalledAt.Equal(t0))

	_, err = db.GetSensor(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.AddSensor(ctx, &models.Sensor{Type: models.SensorTypeRainGauge, Location: "Centro"}))
	list, err := db.ListSensors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Centro", list[0].Location)
}

func TestDB_ReadingsOrderAndFilter(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	// inserted out of order
	for _, h := range []int{3, 1, 2, 0} {
		require.NoError(t, db.AddReading(ctx, &models.SensorReading{
			SensorID:   "s1",
			SensorType: models.SensorTypeWaterLevel,
			Location:   "Ponte A",
			Value:      float64(h),
			Unit:       "m",
			Timestamp:  t0.Add(time.Duration(h) * time.Hour),
		}))
	}
	require.NoError(t, db.AddReading(ctx, &models.SensorReading{
		SensorID:   "s2",
		SensorType: models.SensorTypeRainGauge,
		Location:   "Centro",
		Value:      12,
		Unit:       "mm/h",
		Timestamp:  t0.Add(90 * time.Minute),
	}))

	all, err := db.ListReadings(ctx, ReadingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp))
	}

	water := models.SensorTypeWaterLevel
	since := t0.Add(time.Hour)
	until := t0.Add(2 * time.Hour)
	got, err := db.ListReadings(ctx, ReadingFilter{SensorType: &water, Since: &since, Until: &until})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Value)
	assert.Equal(t, 2.0, got[1].Value)
	assert.True(t, got[0].Timestamp.Equal(since))

	latest, err := db.ListReadings(ctx, ReadingFilter{Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 3.0, latest[0].Value)
	assert.Equal(t, 2.0, latest[1].Value)

	loc := "Centro"
	rain, err := db.ListReadings(ctx, ReadingFilter{Location: &loc})
	require.NoError(t, err)
	require.Len(t, rain, 1)
	assert.Equal(t, models.SensorTypeRainGauge, rain[0].SensorType)
	assert.Equal(t, "mm/h", rain[0].Unit)
}

func TestDB_Alerts(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	levels := []models.AlertLevel{models.AlertLevelLow, models.AlertLevelHigh, models.AlertLevelCritical}
	var ids []string
	for i, lvl := range levels {
		a := &models.Alert{
			Type:           models.SensorTypeWaterLevel,
			Level:          lvl,
			Value:          float64(i + 2),
			Unit:           "m",
			Location:       "Ponte A",
			Timestamp:      t0.Add(time.Duration(i) * time.Hour),
			Recommendation: "rec",
			Description:    "desc",
		}
		require.NoError(t, db.AddAlert(ctx, a))
		assert.Equal(t, models.AlertStatusActive, a.Status)
		ids = append(ids, a.ID)
	}

	all, err := db.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.AlertLevelCritical, all[0].Level, "newest first")

	high := models.AlertLevelHigh
	severe, err := db.ListAlerts(ctx, AlertFilter{MinLevel: &high})
	require.NoError(t, err)
	assert.Len(t, severe, 2)

	exact, err := db.ListAlerts(ctx, AlertFilter{Level: &high})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, ids[1], exact[0].ID)

	require.NoError(t, db.ResolveAlert(ctx, ids[0]))
	require.NoError(t, db.ResolveAlert(ctx, ids[0]))
	assert.ErrorIs(t, db.ResolveAlert(ctx, "missing"), ErrNotFound)

	active := models.AlertStatusActive
	open, err := db.ListAlerts(ctx, AlertFilter{Status: &active})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	limited, err := db.ListAlerts(ctx, AlertFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDB_ListAlerts_TypeBeforeLimit(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// two old rain alerts buried under three newer water level alerts
	types := []models.SensorType{
		models.SensorTypeRainGauge, models.SensorTypeRainGauge,
		models.SensorTypeWaterLevel, models.SensorTypeWaterLevel, models.SensorTypeWaterLevel,
	}
	for i, st := range types {
		require.NoError(t, db.AddAlert(ctx, &models.Alert{
			Type:      st,
			Level:     models.AlertLevelHigh,
			Value:     float64(i),
			Unit:      st.Unit(),
			Location:  "Centro",
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
		}))
	}

	rain := models.SensorTypeRainGauge
	got, err := db.ListAlerts(ctx, AlertFilter{Type: &rain, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, a := range got {
		assert.Equal(t, models.SensorTypeRainGauge, a.Type)
	}
	assert.True(t, got[0].Timestamp.After(got[1].Timestamp))
}

func TestDB_Evacuation(t *testing.T) {
	db, clock := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddRoute(ctx, &models.EvacuationRoute{Name: "Rota Norte", Status: "OPEN", AssociatedRisk: "flood"}))
	routes, err := db.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "Rota Norte", routes[0].Name)

	require.NoError(t, db.AddShelter(ctx, &models.Shelter{
		Name:        "Ginásio Municipal",
		Location:    "Lat:-23.55, Lon:-46.63",
		MaxCapacity: 300,
		Status:      "OPEN",
	}))
	shelters, err := db.ListShelters(ctx)
	require.NoError(t, err)
	require.Len(t, shelters, 1)
	assert.Equal(t, 300, shelters[0].MaxCapacity)

	for i := 0; i < 12; i++ {
		require.NoError(t, db.AddMobility(ctx, &models.MobilityData{
			Location:               "Av. Marginal",
			TrafficLevel:           "HIGH",
			EstimatedTravelMinutes: i,
		}))
		clock.Advance(time.Minute)
	}
	latest, err := db.LatestMobility(ctx, 0)
	require.NoError(t, err)
	require.Len(t, latest, 10)
	assert.Equal(t, 11, latest[0].EstimatedTravelMinutes)
}

func seedCommunity(t *testing.T, db *DB) (*models.AidRequest, *models.Resource) {
	t.Helper()
	ctx := context.Background()

	c := &models.Community{Name: "Vila Esperança", EstimatedPopulation: 1200}
	require.NoError(t, db.AddCommunity(ctx, c))

	req := &models.AidRequest{CommunityID: c.ID, AidType: "Drinking Water", Priority: models.PriorityUrgent}
	require.NoError(t, db.AddAidRequest(ctx, req))

	res := &models.Resource{Name: "Water bottles", Type: "water", AvailableQuantity: 100, Unit: "L"}
	require.NoError(t, db.AddResource(ctx, res))
	return req, res
}

func TestDB_AidRequests(t *testing.T) {
	db, clock := setupTestDB(t)
	ctx := context.Background()
	req, _ := seedCommunity(t, db)

	assert.Equal(t, models.RequestStatusPending, req.Status)

	got, err := db.GetAidRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vila Esperança", got.CommunityName)
	assert.Equal(t, models.PriorityUrgent, got.Priority)

	clock.Advance(time.Hour)
	require.NoError(t, db.UpdateRequestStatus(ctx, req.ID, models.RequestStatusInProgress))
	got, err = db.GetAidRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))
	assert.True(t, got.CreatedAt.Equal(t0))

	assert.ErrorIs(t, db.UpdateRequestStatus(ctx, "missing", models.RequestStatusFulfilled), ErrNotFound)
	assert.Error(t, db.UpdateRequestStatus(ctx, req.ID, "DONE"))

	pending := models.RequestStatusPending
	list, err := db.ListAidRequests(ctx, &pending, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = db.ListAidRequests(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = db.GetAidRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_Allocate(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	req, res := seedCommunity(t, db)

	a, err := db.Allocate(ctx, req.ID, res.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, "Water bottles", a.ResourceName)
	assert.Equal(t, models.AllocationStatusPending, a.Status)

	resources, err := db.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, 60.0, resources[0].AvailableQuantity)

	_, err = db.Allocate(ctx, req.ID, res.ID, 61)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = db.Allocate(ctx, req.ID, res.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = db.Allocate(ctx, "missing", res.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.Allocate(ctx, req.ID, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	resources, err = db.ListResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60.0, resources[0].AvailableQuantity, "failed allocations leave stock untouched")

	allocs, err := db.ListAllocations(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, 40.0, allocs[0].Quantity)
	assert.Equal(t, "L", allocs[0].Unit)

	since, err := db.ListAllocationsSince(ctx, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, since, 1)
}
