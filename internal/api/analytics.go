package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/flood-alerts/internal/analytics"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

const defaultAnalyticsDays = 30

func (h *Handler) alertAnalytics(c *gin.Context) {
	since, ok := h.queryDays(c, defaultAnalyticsDays)
	if !ok {
		badRequest(c, "days must be between 1 and 3650")
		return
	}
	alerts, err := h.store.ListAlerts(c.Request.Context(), repository.AlertFilter{Since: &since})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":  since,
		"total":  len(alerts),
		"series": analytics.AlertsByDay(alerts),
	})
}

func (h *Handler) readingAnalytics(c *gin.Context) {
	since, ok := h.queryDays(c, defaultAnalyticsDays)
	if !ok {
		badRequest(c, "days must be between 1 and 3650")
		return
	}
	filter := repository.ReadingFilter{Since: &since}
	if t := c.Query("type"); t != "" {
		st, ok := parseSensorType(t)
		if !ok {
			badRequest(c, "unknown sensor type: "+t)
			return
		}
		filter.SensorType = &st
	}

	readings, err := h.store.ListReadings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":  since,
		"series": analytics.ReadingsByDay(readings),
	})
}

func (h *Handler) allocationAnalytics(c *gin.Context) {
	since, ok := h.queryDays(c, defaultAnalyticsDays)
	if !ok {
		badRequest(c, "days must be between 1 and 3650")
		return
	}
	allocs, err := h.store.ListAllocationsSince(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":  since,
		"series": analytics.AllocationsByDay(allocs),
	})
}

func (h *Handler) requestAnalytics(c *gin.Context) {
	since, ok := h.queryDays(c, defaultAnalyticsDays)
	if !ok {
		badRequest(c, "days must be between 1 and 3650")
		return
	}
	reqs, err := h.store.ListAidRequests(c.Request.Context(), nil, &since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":     since,
		"total":     len(reqs),
		"by_status": analytics.RequestsBy(reqs, analytics.ByStatus),
		"by_type":   analytics.RequestsBy(reqs, analytics.ByAidType),
	})
}
