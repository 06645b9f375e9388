package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadedteafinder/backend/internal/claims"
	"github.com/loadedteafinder/backend/internal/database"
)

// maxDocumentSize limits individual uploaded documents to 10 MB
const maxDocumentSize = 10 << 20

// ClaimHandler handles claimant-facing claim requests
type ClaimHandler struct {
	service *claims.Service
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(service *claims.Service) *ClaimHandler {
	return &ClaimHandler{service: service}
}

// Submit handles a claim submission with document uploads
func (h *ClaimHandler) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxDocumentSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
		return
	}

	businessID, err := uuid.Parse(c.PostForm("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid business_id is required"})
		return
	}

	input := claims.SubmitInput{
		BusinessID: businessID,
		Priority:   database.ClaimPriority(c.PostForm("priority")),
	}

	// Each required kind maps to a form file field of the same name. The
	// service reports which kinds are missing.
	for _, kind := range database.RequiredDocumentKinds {
		fileHeader, err := c.FormFile(string(kind))
		if err != nil {
			continue
		}
		doc, err := readUpload(fileHeader, kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file: " + string(kind)})
			return
		}
		input.Documents = append(input.Documents, doc)
	}

	if form := c.Request.MultipartForm; form != nil {
		for _, fileHeader := range form.File["extra"] {
			doc, err := readUpload(fileHeader, database.DocumentKindExtra)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
				return
			}
			input.Documents = append(input.Documents, doc)
		}
	}

	result, err := h.service.Submit(c.Request.Context(), actor, input)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListMine returns the caller's claims
func (h *ClaimHandler) ListMine(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.service.ListByClaimant(c.Request.Context(), actor)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"claims": result})
}

// Get returns one claim visible to the caller
func (h *ClaimHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	claim, err := h.service.Get(c.Request.Context(), actor, claimID)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, claim)
}

// Cancel withdraws the caller's pending claim
func (h *ClaimHandler) Cancel(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim ID"})
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), actor, claimID)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func readUpload(fileHeader *multipart.FileHeader, kind database.DocumentKind) (claims.DocumentUpload, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return claims.DocumentUpload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize))
	if err != nil {
		return claims.DocumentUpload{}, err
	}

	return claims.DocumentUpload{
		Kind:        kind,
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}, nil
}
