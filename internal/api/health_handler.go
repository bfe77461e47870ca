package api

import (
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthService service.HealthService
}

func NewHealthHandler(healthService service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// --- DTOs ---

type CreateHealthRecordRequest struct {
	Type        string    `json:"type" binding:"required,oneof=vaccination farrier vet dental other"`
	Date        time.Time `json:"date" binding:"required"`
	Description string    `json:"description"`
}

type HealthRecordResponse struct {
	ID            string    `json:"id"`
	HorseID       string    `json:"horseId"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description,omitempty"`
	HasAttachment bool      `json:"hasAttachment"`
	CreatedAt     time.Time `json:"createdAt"`
}

func MapHealthRecordToResponse(r *domain.HealthRecord) HealthRecordResponse {
	if r == nil {
		return HealthRecordResponse{}
	}
	return HealthRecordResponse{
		ID:            r.ID.Hex(),
		HorseID:       r.HorseID.Hex(),
		Type:          string(r.Type),
		Date:          r.Date,
		Description:   r.Description,
		HasAttachment: r.AttachmentObjectKey != "",
		CreatedAt:     r.CreatedAt,
	}
}

func MapHealthRecordsToResponse(records []domain.HealthRecord) []HealthRecordResponse {
	responses := make([]HealthRecordResponse, len(records))
	for i, r := range records {
		responses[i] = MapHealthRecordToResponse(&r)
	}
	return responses
}

func mapHealthError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrHealthRecordNotFound), errors.Is(err, service.ErrHorseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrHorseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// --- Handler Methods ---

// CreateRecord adds a dated health event (vaccination, farrier visit, ...) to a horse.
func (h *HealthHandler) CreateRecord(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req CreateHealthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	record, err := h.healthService.CreateRecord(c.Request.Context(), ownerID, horseID, domain.HealthRecordType(req.Type), req.Date, req.Description)
	if err != nil {
		mapHealthError(c, err, "Failed to create health record.")
		return
	}
	c.JSON(http.StatusCreated, MapHealthRecordToResponse(record))
}

func (h *HealthHandler) GetRecords(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	records, err := h.healthService.GetRecordsForHorse(c.Request.Context(), userID, horseID)
	if err != nil {
		mapHealthError(c, err, "Failed to retrieve health records.")
		return
	}
	if records == nil {
		c.JSON(http.StatusOK, []HealthRecordResponse{})
		return
	}
	c.JSON(http.StatusOK, MapHealthRecordsToResponse(records))
}

func (h *HealthHandler) DeleteRecord(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}

	if err := h.healthService.DeleteRecord(c.Request.Context(), ownerID, recordID); err != nil {
		mapHealthError(c, err, "Failed to delete health record.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Health record deleted successfully"})
}

// GenerateAttachmentUploadURL returns a presigned PUT URL for a record's
// scanned document (invoice, certificate).
func (h *HealthHandler) GenerateAttachmentUploadURL(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.healthService.GenerateAttachmentUploadURL(c.Request.Context(), ownerID, recordID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadURLError) {
			abortWithError(c, http.StatusInternalServerError, "Could not generate upload URL.")
		} else {
			mapHealthError(c, err, "Failed to generate upload URL.")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) ConfirmAttachmentUpload(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	record, err := h.healthService.ConfirmAttachmentUpload(c.Request.Context(), ownerID, recordID, req.ObjectKey, req.FileName, req.Size, req.ContentType)
	if err != nil {
		mapHealthError(c, err, "Failed to confirm attachment upload.")
		return
	}
	c.JSON(http.StatusOK, MapHealthRecordToResponse(record))
}

func (h *HealthHandler) GetAttachmentDownloadURL(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}

	url, err := h.healthService.GetAttachmentDownloadURL(c.Request.Context(), userID, recordID)
	if err != nil {
		mapHealthError(c, err, "Failed to get attachment download URL.")
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}
