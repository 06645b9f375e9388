package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadedteafinder/backend/internal/services/rewards"
)

// RewardsHandler handles rewards program requests
type RewardsHandler struct {
	service *rewards.Service
}

// NewRewardsHandler creates a new rewards handler
func NewRewardsHandler(service *rewards.Service) *RewardsHandler {
	return &RewardsHandler{service: service}
}

// CheckInRequest records a purchase check-in
type CheckInRequest struct {
	BusinessID string `json:"business_id" binding:"required"`
	Note       string `json:"note"`
}

// CheckIn credits points for a purchase
func (h *RewardsHandler) CheckIn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business ID"})
		return
	}

	account, err := h.service.CheckIn(c.Request.Context(), actor.UserID, businessID, req.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record check-in"})
		return
	}

	c.JSON(http.StatusCreated, account)
}

// Balance returns the caller's point balance at a business
func (h *RewardsHandler) Balance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	businessID, err := uuid.Parse(c.Param("businessID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business ID"})
		return
	}

	account, err := h.service.Balance(c.Request.Context(), actor.UserID, businessID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	c.JSON(http.StatusOK, account)
}

// Redeem spends points for a reward
func (h *RewardsHandler) Redeem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	businessID, err := uuid.Parse(c.Param("businessID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business ID"})
		return
	}

	account, err := h.service.Redeem(c.Request.Context(), actor.UserID, businessID)
	if err != nil {
		if errors.Is(err, rewards.ErrInsufficientPoints) {
			c.JSON(http.StatusConflict, gin.H{"error": "Not enough points to redeem"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem points"})
		return
	}

	c.JSON(http.StatusOK, account)
}
