package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadedteafinder/backend/internal/claims"
)

// currentActor builds the caller identity from the auth middleware context
func currentActor(c *gin.Context) (claims.Actor, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return claims.Actor{}, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return claims.Actor{}, false
	}

	return claims.Actor{UserID: userID, IsAdmin: c.GetBool("is_admin")}, true
}

// respondClaimError maps claim service errors to HTTP responses
func respondClaimError(c *gin.Context, err error) {
	var (
		validationErr   *claims.ValidationError
		duplicateErr    *claims.DuplicateClaimError
		transitionErr   *claims.InvalidTransitionError
		notFoundErr     *claims.NotFoundError
		stepNotFoundErr *claims.StepNotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{"error": duplicateErr.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &stepNotFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": stepNotFoundErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
