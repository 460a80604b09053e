package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/config"
	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/forecast"
	"github.com/mr1hm/flood-alerts/internal/ingestion"
	"github.com/mr1hm/flood-alerts/internal/observability"
	"github.com/mr1hm/flood-alerts/internal/raster"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

const dateLayout = "2006-01-02"

type Deps struct {
	Store     repository.Store
	Processor *ingestion.Processor
	Bundles   *forecast.Registry
	Metrics   *observability.Metrics
	Forecast  config.ForecastConfig
	Clock     clockwork.Clock
}

type Handler struct {
	store     repository.Store
	processor *ingestion.Processor
	bundles   *forecast.Registry
	metrics   *observability.Metrics
	forecast  config.ForecastConfig
	clock     clockwork.Clock
}

func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return &Handler{
		store:     d.Store,
		processor: d.Processor,
		bundles:   d.Bundles,
		metrics:   d.Metrics,
		forecast:  d.Forecast,
		clock:     d.Clock,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.GET("/sensors", h.listSensors)
	api.POST("/sensors", h.createSensor)
	api.GET("/readings", h.listReadings)
	api.POST("/readings", h.createReading)
	api.GET("/alerts", h.listAlerts)
	api.POST("/alerts/:id/resolve", h.resolveAlert)
	api.POST("/classify", h.classify)

	fc := api.Group("/forecast")
	fc.POST("/train", h.train)
	fc.POST("/predict", h.predict)
	fc.POST("/scenario", h.scenario)
	fc.POST("/raster", h.rasterEstimate)

	api.GET("/routes", h.listRoutes)
	api.POST("/routes", h.createRoute)
	api.GET("/shelters", h.listShelters)
	api.POST("/shelters", h.createShelter)
	api.GET("/mobility", h.listMobility)
	api.POST("/mobility", h.createMobility)

	api.GET("/communities", h.listCommunities)
	api.POST("/communities", h.createCommunity)
	api.GET("/aid-types", h.listAidTypes)
	api.GET("/aid-requests", h.listAidRequests)
	api.POST("/aid-requests", h.createAidRequest)
	api.PATCH("/aid-requests/:id/status", h.updateAidRequestStatus)
	api.GET("/aid-requests/:id/allocations", h.listAllocations)
	api.POST("/aid-requests/:id/allocations", h.allocate)
	api.GET("/resources", h.listResources)
	api.POST("/resources", h.createResource)

	an := api.Group("/analytics")
	an.GET("/alerts", h.alertAnalytics)
	an.GET("/readings", h.readingAnalytics)
	an.GET("/allocations", h.allocationAnalytics)
	an.GET("/requests", h.requestAnalytics)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var trainErr *forecast.TrainingError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, features.ErrNoData),
		errors.Is(err, features.ErrNoTargetSensor),
		errors.Is(err, features.ErrInsufficientData),
		errors.Is(err, forecast.ErrNoModel),
		errors.Is(err, repository.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, features.ErrInvalidCadence),
		errors.Is(err, forecast.ErrUnknownFeature),
		errors.Is(err, forecast.ErrFeatureCount),
		errors.Is(err, forecast.ErrInvalidScenario),
		errors.Is(err, repository.ErrInvalidQuantity),
		errors.Is(err, raster.ErrMalformed),
		errors.Is(err, raster.ErrNoValid):
		return http.StatusBadRequest
	case errors.As(err, &trainErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		msg := "internal error"
		if errors.Is(err, alerting.ErrPersistence) {
			msg = "failed to persist data"
		}
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryLimit parses ?limit= within (0, ceiling], falling back to def.
func queryLimit(c *gin.Context, def, ceiling int) int {
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= ceiling {
			return lim
		}
	}
	return def
}

// queryTime accepts RFC 3339 or a plain date.
func queryTime(c *gin.Context, key string) (*time.Time, bool) {
	s := c.Query(key)
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, true
	}
	return nil, false
}

// queryDays returns the start of a ?days= lookback window.
func (h *Handler) queryDays(c *gin.Context, def int) (time.Time, bool) {
	days := def
	if d := c.Query("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > 3650 {
			return time.Time{}, false
		}
		days = n
	}
	return h.clock.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour), true
}
