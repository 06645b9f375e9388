package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadedteafinder/backend/internal/claims"
	"github.com/loadedteafinder/backend/internal/database"
)

// AdminClaimHandler handles the admin review workflow
type AdminClaimHandler struct {
	service *claims.Service
}

// NewAdminClaimHandler creates a new admin claim handler
func NewAdminClaimHandler(service *claims.Service) *AdminClaimHandler {
	return &AdminClaimHandler{service: service}
}

// ReviewNotesRequest carries optional notes for a review action
type ReviewNotesRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest carries the required rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AddStepRequest adds a verification step to a claim
type AddStepRequest struct {
	Method  string `json:"method" binding:"required"`
	Details string `json:"details"`
}

// AdvanceStepRequest updates a verification step's status
type AdvanceStepRequest struct {
	Status  string `json:"status" binding:"required"`
	Details string `json:"details"`
}

// ListQueue returns active claims ordered by priority then age
func (h *AdminClaimHandler) ListQueue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.service.ListQueue(c.Request.Context(), actor)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"claims": result})
}

// BeginReview moves a pending claim into review
func (h *AdminClaimHandler) BeginReview(c *gin.Context) {
	h.transition(c, func(actor claims.Actor, claimID uuid.UUID, _ ReviewNotesRequest) (*claims.Result, error) {
		return h.service.BeginReview(c.Request.Context(), actor, claimID)
	})
}

// RequestInfo asks the claimant for more documentation
func (h *AdminClaimHandler) RequestInfo(c *gin.Context) {
	h.transition(c, func(actor claims.Actor, claimID uuid.UUID, req ReviewNotesRequest) (*claims.Result, error) {
		return h.service.RequestMoreInfo(c.Request.Context(), actor, claimID, req.Notes)
	})
}

// Approve approves a claim
func (h *AdminClaimHandler) Approve(c *gin.Context) {
	h.transition(c, func(actor claims.Actor, claimID uuid.UUID, req ReviewNotesRequest) (*claims.Result, error) {
		return h.service.Approve(c.Request.Context(), actor, claimID, req.Notes)
	})
}

// Reject rejects a claim with a reason
func (h *AdminClaimHandler) Reject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Reject(c.Request.Context(), actor, claimID, req.Reason)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddStep appends a verification step to a claim
func (h *AdminClaimHandler) AddStep(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	var req AddStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.service.AddStep(c.Request.Context(), actor, claimID, database.StepMethod(req.Method), req.Details)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusCreated, step)
}

// AdvanceStep updates the status of a claim's verification step
func (h *AdminClaimHandler) AdvanceStep(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	var req AdvanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.AdvanceStep(
		c.Request.Context(),
		actor,
		claimID,
		database.StepMethod(c.Param("method")),
		database.StepStatus(req.Status),
		req.Details,
	)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AdminClaimHandler) transition(c *gin.Context, op func(claims.Actor, uuid.UUID, ReviewNotesRequest) (*claims.Result, error)) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	var req ReviewNotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := op(actor, claimID, req)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
