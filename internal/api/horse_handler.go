package api

import (
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HorseHandler struct {
	horseService service.HorseService
}

func NewHorseHandler(horseService service.HorseService) *HorseHandler {
	return &HorseHandler{horseService: horseService}
}

// --- DTOs ---

type HorseRequest struct {
	Name        string `json:"name" binding:"required"`
	Breed       string `json:"breed"`
	Sex         string `json:"sex" binding:"omitempty,oneof=mare gelding stallion"`
	YearOfBirth int    `json:"yearOfBirth" binding:"omitempty,min=1980,max=2100"`
	Notes       string `json:"notes"`
}

type HorseResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Breed       string    `json:"breed,omitempty"`
	Sex         string    `json:"sex,omitempty"`
	YearOfBirth int       `json:"yearOfBirth,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	HasPhoto    bool      `json:"hasPhoto"`
	RiderIDs    []string  `json:"riderIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ShareHorseRequest struct {
	RiderEmail string `json:"riderEmail" binding:"required,email"`
}

type GenerateUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

func MapHorseToResponse(h *domain.Horse) HorseResponse {
	if h == nil {
		return HorseResponse{}
	}
	resp := HorseResponse{
		ID:          h.ID.Hex(),
		OwnerID:     h.OwnerID.Hex(),
		Name:        h.Name,
		Breed:       h.Breed,
		Sex:         h.Sex,
		YearOfBirth: h.YearOfBirth,
		Notes:       h.Notes,
		HasPhoto:    h.PhotoObjectKey != "",
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
	if len(h.RiderIDs) > 0 {
		resp.RiderIDs = make([]string, len(h.RiderIDs))
		for i, id := range h.RiderIDs {
			resp.RiderIDs[i] = id.Hex()
		}
	}
	return resp
}

func MapHorsesToResponse(horses []domain.Horse) []HorseResponse {
	responses := make([]HorseResponse, len(horses))
	for i, h := range horses {
		responses[i] = MapHorseToResponse(&h)
	}
	return responses
}

// callerID extracts and parses the authenticated user's ObjectID.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses an ObjectID path parameter, aborting with 400 on garbage.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format in URL path.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// mapHorseError translates horse service errors into HTTP responses.
func mapHorseError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrHorseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrHorseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// --- Handler Methods ---

// CreateHorse registers a new horse owned by the authenticated manager.
func (h *HorseHandler) CreateHorse(c *gin.Context) {
	var req HorseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	ownerID, ok := callerID(c)
	if !ok {
		return
	}

	horse, err := h.horseService.CreateHorse(c.Request.Context(), ownerID, req.Name, req.Breed, req.Sex, req.Notes, req.YearOfBirth)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create horse.")
		return
	}
	c.JSON(http.StatusCreated, MapHorseToResponse(horse))
}

// GetHorses lists the caller's horses: owned for managers, shared for riders.
func (h *HorseHandler) GetHorses(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user role from token.")
		return
	}

	horses, err := h.horseService.GetHorsesForUser(c.Request.Context(), &domain.User{ID: userID, Role: role})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve horses.")
		return
	}
	if horses == nil {
		c.JSON(http.StatusOK, []HorseResponse{})
		return
	}
	c.JSON(http.StatusOK, MapHorsesToResponse(horses))
}

func (h *HorseHandler) GetHorse(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	horse, err := h.horseService.GetHorse(c.Request.Context(), userID, horseID)
	if err != nil {
		mapHorseError(c, err, "Failed to retrieve horse.")
		return
	}
	c.JSON(http.StatusOK, MapHorseToResponse(horse))
}

func (h *HorseHandler) UpdateHorse(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req HorseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	horse := &domain.Horse{
		ID:          horseID,
		OwnerID:     ownerID,
		Name:        req.Name,
		Breed:       req.Breed,
		Sex:         req.Sex,
		YearOfBirth: req.YearOfBirth,
		Notes:       req.Notes,
	}
	updated, err := h.horseService.UpdateHorse(c.Request.Context(), ownerID, horse)
	if err != nil {
		mapHorseError(c, err, "Failed to update horse.")
		return
	}
	c.JSON(http.StatusOK, MapHorseToResponse(updated))
}

func (h *HorseHandler) DeleteHorse(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	if err := h.horseService.DeleteHorse(c.Request.Context(), ownerID, horseID); err != nil {
		mapHorseError(c, err, "Failed to delete horse.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Horse deleted successfully"})
}

// ShareHorse grants a rider (looked up by email) access to the horse.
func (h *HorseHandler) ShareHorse(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req ShareHorseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	rider, err := h.horseService.ShareHorseWithRider(c.Request.Context(), ownerID, horseID, req.RiderEmail)
	if err != nil {
		if errors.Is(err, service.ErrRiderNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrRiderNotRole) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			mapHorseError(c, err, "Failed to share horse.")
		}
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(rider))
}

// --- Photo handling ---

// GeneratePhotoUploadURL returns a presigned PUT URL for the horse's photo.
func (h *HorseHandler) GeneratePhotoUploadURL(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.horseService.GeneratePhotoUploadURL(c.Request.Context(), ownerID, horseID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadURLError) {
			abortWithError(c, http.StatusInternalServerError, "Could not generate upload URL.")
		} else {
			mapHorseError(c, err, "Failed to generate upload URL.")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmPhotoUpload records a completed photo upload against the horse.
func (h *HorseHandler) ConfirmPhotoUpload(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	horse, err := h.horseService.ConfirmPhotoUpload(c.Request.Context(), ownerID, horseID, req.ObjectKey, req.FileName, req.Size, req.ContentType)
	if err != nil {
		mapHorseError(c, err, "Failed to confirm photo upload.")
		return
	}
	c.JSON(http.StatusOK, MapHorseToResponse(horse))
}

// GetPhotoDownloadURL returns a presigned GET URL for the horse's photo.
func (h *HorseHandler) GetPhotoDownloadURL(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	url, err := h.horseService.GetPhotoDownloadURL(c.Request.Context(), userID, horseID)
	if err != nil {
		mapHorseError(c, err, "Failed to get photo download URL.")
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}
