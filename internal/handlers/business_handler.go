package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loadedteafinder/backend/internal/services/business"
)

// BusinessHandler handles directory listing requests
type BusinessHandler struct {
	service *business.Service
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(service *business.Service) *BusinessHandler {
	return &BusinessHandler{service: service}
}

// CreateBusinessRequest represents the request body for a new listing
type CreateBusinessRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address"`
	City        string `json:"city" binding:"required"`
	State       string `json:"state" binding:"required"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
}

// Create adds a new listing
func (h *BusinessHandler) Create(c *gin.Context) {
	var req CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Create(c.Request.Context(), business.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Zip:         req.Zip,
		Phone:       req.Phone,
		Website:     req.Website,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create business"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Search finds listings by city, state, and name
func (h *BusinessHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.service.Search(c.Request.Context(), business.SearchParams{
		City:  c.Query("city"),
		State: c.Query("state"),
		Query: c.Query("q"),
		Limit: limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"businesses": result})
}

// GetBySlug returns a single listing
func (h *BusinessHandler) GetBySlug(c *gin.Context) {
	result, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}

	c.JSON(http.StatusOK, result)
}
