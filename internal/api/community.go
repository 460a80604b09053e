package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

type createCommunityRequest struct {
	Name                string `json:"name" binding:"required"`
	Location            string `json:"location"`
	EstimatedPopulation int    `json:"estimated_population" binding:"gte=0"`
	MainContact         string `json:"main_contact"`
}

func (h *Handler) listCommunities(c *gin.Context) {
	communities, err := h.store.ListCommunities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": nonNil(communities)})
}

func (h *Handler) createCommunity(c *gin.Context) {
	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cm := &models.Community{
		Name:                req.Name,
		Location:            req.Location,
		EstimatedPopulation: req.EstimatedPopulation,
		MainContact:         req.MainContact,
	}
	if err := h.store.AddCommunity(c.Request.Context(), cm); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) listAidTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"aid_types": models.AidTypes})
}

func (h *Handler) listAidRequests(c *gin.Context) {
	var status *models.RequestStatus
	if s := c.Query("status"); s != "" {
		st := models.RequestStatus(strings.ToUpper(s))
		if !st.Valid() {
			badRequest(c, "unknown status: "+s)
			return
		}
		status = &st
	}
	since, ok := queryTime(c, "since")
	if !ok {
		badRequest(c, "invalid since")
		return
	}

	reqs, err := h.store.ListAidRequests(c.Request.Context(), status, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aid_requests": nonNil(reqs)})
}

type createAidRequestRequest struct {
	CommunityID string `json:"community_id" binding:"required"`
	AidType     string `json:"aid_type" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (h *Handler) createAidRequest(c *gin.Context) {
	var req createAidRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !slices.Contains(models.AidTypes, req.AidType) {
		badRequest(c, "unknown aid type: "+req.AidType)
		return
	}
	priority := models.Priority(strings.ToUpper(req.Priority))
	if priority != "" && !priority.Valid() {
		badRequest(c, "unknown priority: "+req.Priority)
		return
	}

	ctx := c.Request.Context()
	communities, err := h.store.ListCommunities(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if !slices.ContainsFunc(communities, func(cm models.Community) bool { return cm.ID == req.CommunityID }) {
		respondError(c, fmt.Errorf("community %s: %w", req.CommunityID, repository.ErrNotFound))
		return
	}

	ar := &models.AidRequest{
		CommunityID: req.CommunityID,
		AidType:     req.AidType,
		Description: req.Description,
		Priority:    priority,
	}
	if err := h.store.AddAidRequest(ctx, ar); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ar)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateAidRequestStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st := models.RequestStatus(strings.ToUpper(req.Status))
	if !st.Valid() {
		badRequest(c, "unknown status: "+req.Status)
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.store.UpdateRequestStatus(ctx, id, st); err != nil {
		respondError(c, err)
		return
	}
	ar, err := h.store.GetAidRequest(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ar)
}

type allocateRequest struct {
	ResourceID string  `json:"resource_id" binding:"required"`
	Quantity   float64 `json:"quantity"`
}

func (h *Handler) allocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.store.Allocate(c.Request.Context(), c.Param("id"), req.ResourceID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) listAllocations(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.GetAidRequest(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	allocs, err := h.store.ListAllocations(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": nonNil(allocs)})
}

type createResourceRequest struct {
	Name              string  `json:"name" binding:"required"`
	Type              string  `json:"type"`
	AvailableQuantity float64 `json:"available_quantity" binding:"gte=0"`
	Unit              string  `json:"unit"`
	StorageLocation   string  `json:"storage_location"`
}

func (h *Handler) listResources(c *gin.Context) {
	resources, err := h.store.ListResources(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": nonNil(resources)})
}

func (h *Handler) createResource(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r := &models.Resource{
		Name:              req.Name,
		Type:              req.Type,
		AvailableQuantity: req.AvailableQuantity,
		Unit:              req.Unit,
		StorageLocation:   req.StorageLocation,
	}
	if err := h.store.AddResource(c.Request.Context(), r); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
