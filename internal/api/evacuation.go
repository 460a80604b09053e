package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/flood-alerts/internal/models"
)

const defaultMobilityLimit = 10

type createRouteRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	KeyPoints      string `json:"key_points"`
	Status         string `json:"status"`
	AssociatedRisk string `json:"associated_risk"`
}

func (h *Handler) listRoutes(c *gin.Context) {
	routes, err := h.store.ListRoutes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": nonNil(routes)})
}

func (h *Handler) createRoute(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r := &models.EvacuationRoute{
		Name:           req.Name,
		Description:    req.Description,
		KeyPoints:      req.KeyPoints,
		Status:         defaultString(req.Status, "Open"),
		AssociatedRisk: req.AssociatedRisk,
	}
	if err := h.store.AddRoute(c.Request.Context(), r); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

type createShelterRequest struct {
	Name            string `json:"name" binding:"required"`
	Location        string `json:"location" binding:"required"`
	MaxCapacity     int    `json:"max_capacity" binding:"gte=0"`
	CurrentCapacity int    `json:"current_capacity" binding:"gte=0"`
	Address         string `json:"address"`
	Contact         string `json:"contact"`
	Status          string `json:"status"`
}

func (h *Handler) listShelters(c *gin.Context) {
	shelters, err := h.store.ListShelters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, sheltersToGeoJSON(shelters))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelters": nonNil(shelters)})
}

func (h *Handler) createShelter(c *gin.Context) {
	var req createShelterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := models.ParseCoordinates(req.Location); !ok {
		badRequest(c, `location must look like "Lat:-23.55, Lon:-46.63"`)
		return
	}
	if req.CurrentCapacity > req.MaxCapacity {
		badRequest(c, "current_capacity exceeds max_capacity")
		return
	}
	s := &models.Shelter{
		Name:            req.Name,
		Location:        req.Location,
		MaxCapacity:     req.MaxCapacity,
		CurrentCapacity: req.CurrentCapacity,
		Address:         req.Address,
		Contact:         req.Contact,
		Status:          defaultString(req.Status, "Open"),
	}
	if err := h.store.AddShelter(c.Request.Context(), s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

type createMobilityRequest struct {
	Location               string `json:"location" binding:"required"`
	TrafficLevel           string `json:"traffic_level" binding:"required"`
	EstimatedTravelMinutes int    `json:"estimated_travel_minutes" binding:"gte=0"`
}

func (h *Handler) listMobility(c *gin.Context) {
	limit := queryLimit(c, defaultMobilityLimit, maxListLimit)
	data, err := h.store.LatestMobility(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mobility": nonNil(data)})
}

func (h *Handler) createMobility(c *gin.Context) {
	var req createMobilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m := &models.MobilityData{
		Location:               req.Location,
		TrafficLevel:           req.TrafficLevel,
		EstimatedTravelMinutes: req.EstimatedTravelMinutes,
		Timestamp:              h.clock.Now().UTC(),
	}
	if err := h.store.AddMobility(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
