package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

const (
	defaultReadingLimit = 100
	defaultAlertLimit   = 50
	maxListLimit        = 1000
)

// parseSensorType accepts enum names and free-form labels such as
// "Nível de Água" or "rain gauge".
func parseSensorType(s string) (models.SensorType, bool) {
	return features.ParseSensorType(s)
}

type createSensorRequest struct {
	Type        string `json:"type" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"required"`
}

func (h *Handler) listSensors(c *gin.Context) {
	sensors, err := h.store.ListSensors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensors": nonNil(sensors)})
}

func (h *Handler) createSensor(c *gin.Context) {
	var req createSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, ok := parseSensorType(req.Type)
	if !ok {
		badRequest(c, "unknown sensor type: "+req.Type)
		return
	}

	s := &models.Sensor{
		Type:        st,
		Description: req.Description,
		Location:    req.Location,
		Status:      models.SensorStatusActive,
		InstalledAt: h.clock.Now().UTC(),
	}
	if err := h.store.AddSensor(c.Request.Context(), s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) listReadings(c *gin.Context) {
	filter := repository.ReadingFilter{
		Limit:      queryLimit(c, defaultReadingLimit, maxListLimit),
		Descending: true,
	}
	if t := c.Query("type"); t != "" {
		st, ok := parseSensorType(t)
		if !ok {
			badRequest(c, "unknown sensor type: "+t)
			return
		}
		filter.SensorType = &st
	}
	if id := c.Query("sensor_id"); id != "" {
		filter.SensorID = &id
	}
	if loc := c.Query("location"); loc != "" {
		filter.Location = &loc
	}
	var ok bool
	if filter.Since, ok = queryTime(c, "since"); !ok {
		badRequest(c, "invalid since")
		return
	}
	if filter.Until, ok = queryTime(c, "until"); !ok {
		badRequest(c, "invalid until")
		return
	}

	readings, err := h.store.ListReadings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"readings": nonNil(readings)})
}

type createReadingRequest struct {
	SensorID   string     `json:"sensor_id"`
	SensorType string     `json:"sensor_type"`
	Location   string     `json:"location"`
	Value      *float64   `json:"value" binding:"required"`
	Timestamp  *time.Time `json:"timestamp"`
}

// createReading records a reading and classifies it. The response carries
// the alert when one was raised.
func (h *Handler) createReading(c *gin.Context) {
	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	r := &models.SensorReading{
		SensorID: req.SensorID,
		Location: req.Location,
		Value:    *req.Value,
	}
	if req.SensorType != "" {
		st, ok := parseSensorType(req.SensorType)
		if !ok {
			badRequest(c, "unknown sensor type: "+req.SensorType)
			return
		}
		r.SensorType = st
	}
	if req.SensorID != "" {
		s, err := h.store.GetSensor(ctx, req.SensorID)
		if err != nil {
			respondError(c, err)
			return
		}
		if r.SensorType == "" {
			r.SensorType = s.Type
		}
		if r.Location == "" {
			r.Location = s.Location
		}
	}
	if r.SensorType == "" || r.Location == "" {
		badRequest(c, "sensor_type and location are required without a registered sensor_id")
		return
	}
	if req.Timestamp != nil {
		r.Timestamp = req.Timestamp.UTC()
	}

	alert, err := h.processor.Process(ctx, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reading": r,
		"level":   alerting.ClassifySensor(r.Value, r.SensorType),
		"alert":   alert,
	})
}

func (h *Handler) listAlerts(c *gin.Context) {
	filter := repository.AlertFilter{
		Limit: queryLimit(c, defaultAlertLimit, maxListLimit),
	}
	if l := c.Query("level"); l != "" {
		level, ok := models.ParseAlertLevel(l)
		if !ok {
			badRequest(c, "unknown level: "+l)
			return
		}
		filter.Level = &level
	}
	if l := c.Query("min_level"); l != "" {
		level, ok := models.ParseAlertLevel(l)
		if !ok {
			badRequest(c, "unknown min_level: "+l)
			return
		}
		filter.MinLevel = &level
	}
	if s := c.Query("status"); s != "" {
		st := models.AlertStatus(s)
		if st != models.AlertStatusActive && st != models.AlertStatusResolved {
			badRequest(c, "unknown status: "+s)
			return
		}
		filter.Status = &st
	}
	if t := c.Query("type"); t != "" {
		st, ok := parseSensorType(t)
		if !ok {
			badRequest(c, "unknown sensor type: "+t)
			return
		}
		filter.Type = &st
	}
	var ok bool
	if filter.Since, ok = queryTime(c, "since"); !ok {
		badRequest(c, "invalid since")
		return
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": nonNil(alerts)})
}

func (h *Handler) resolveAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.ResolveAlert(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": models.AlertStatusResolved})
}

type classifyRequest struct {
	Value      *float64 `json:"value" binding:"required"`
	SensorType string   `json:"sensor_type" binding:"required"`
}

func (h *Handler) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, ok := parseSensorType(req.SensorType)
	if !ok {
		badRequest(c, "unknown sensor type: "+req.SensorType)
		return
	}

	level := alerting.ClassifySensor(*req.Value, st)
	resp := gin.H{
		"sensor_type":    st,
		"value":          *req.Value,
		"level":          level,
		"recommendation": alerting.Recommendation(level),
	}
	if t, ok := alerting.ThresholdsFor(st); ok {
		resp["thresholds"] = t
	}
	c.JSON(http.StatusOK, resp)
}

// nonNil keeps empty lists rendering as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
