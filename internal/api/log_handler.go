package api

import (
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type LogHandler struct {
	logService service.LogService
}

func NewLogHandler(logService service.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// --- DTOs ---

type LogSessionRequest struct {
	DurationMinutes *int   `json:"durationMinutes" binding:"omitempty,min=0"`
	Rpe             *int   `json:"rpe" binding:"omitempty,min=1,max=10"`
	Notes           string `json:"notes"`
}

type LogUnscheduledRequest struct {
	Date            string `json:"date" binding:"required"` // YYYY-MM-DD
	DurationMinutes *int   `json:"durationMinutes" binding:"omitempty,min=0"`
	Rpe             *int   `json:"rpe" binding:"omitempty,min=1,max=10"`
	Notes           string `json:"notes"`
}

type SessionLogResponse struct {
	ID               string    `json:"id"`
	HorseID          string    `json:"horseId"`
	RiderID          string    `json:"riderId"`
	CalendarRecordID *string   `json:"calendarRecordId,omitempty"`
	Date             string    `json:"date"` // YYYY-MM-DD
	DurationMinutes  *int      `json:"durationMinutes,omitempty"`
	Rpe              *int      `json:"rpe,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func MapSessionLogToResponse(l *domain.SessionLog) SessionLogResponse {
	if l == nil {
		return SessionLogResponse{}
	}
	resp := SessionLogResponse{
		ID:              l.ID.Hex(),
		HorseID:         l.HorseID.Hex(),
		RiderID:         l.RiderID.Hex(),
		Date:            l.Date.Format(dateLayout),
		DurationMinutes: l.DurationMinutes,
		Rpe:             l.Rpe,
		Notes:           l.Notes,
		CreatedAt:       l.CreatedAt,
	}
	if l.CalendarRecordID != nil {
		hex := l.CalendarRecordID.Hex()
		resp.CalendarRecordID = &hex
	}
	return resp
}

func mapLogError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrCalendarRecordNotFound), errors.Is(err, service.ErrHorseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrHorseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// --- Handler Methods ---

// LogSession files an execution log against a scheduled calendar record. With
// ?fillPlanned=true the planned duration/RPE midpoints pre-fill fields the
// rider left empty.
func (h *LogHandler) LogSession(c *gin.Context) {
	riderID, ok := callerID(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req LogSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	fillPlanned := c.Query("fillPlanned") == "1" || c.Query("fillPlanned") == "true"

	input := service.LogInput{
		DurationMinutes: req.DurationMinutes,
		Rpe:             req.Rpe,
		Notes:           req.Notes,
	}
	log, err := h.logService.LogSession(c.Request.Context(), riderID, recordID, input, fillPlanned)
	if err != nil {
		mapLogError(c, err, "Failed to log session.")
		return
	}
	c.JSON(http.StatusCreated, MapSessionLogToResponse(log))
}

// LogUnscheduledSession files an ad-hoc log not tied to any plan.
func (h *LogHandler) LogUnscheduledSession(c *gin.Context) {
	riderID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	var req LogUnscheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	date, ok := parseDateParam(c, req.Date, "date")
	if !ok {
		return
	}

	input := service.LogInput{
		DurationMinutes: req.DurationMinutes,
		Rpe:             req.Rpe,
		Notes:           req.Notes,
	}
	log, err := h.logService.LogUnscheduledSession(c.Request.Context(), riderID, horseID, date, input)
	if err != nil {
		mapLogError(c, err, "Failed to log session.")
		return
	}
	c.JSON(http.StatusCreated, MapSessionLogToResponse(log))
}

// GetLogsForHorse lists a horse's session logs for any user with access.
func (h *LogHandler) GetLogsForHorse(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	logs, err := h.logService.GetLogsForHorse(c.Request.Context(), userID, horseID)
	if err != nil {
		mapLogError(c, err, "Failed to retrieve session logs.")
		return
	}
	responses := make([]SessionLogResponse, len(logs))
	for i := range logs {
		responses[i] = MapSessionLogToResponse(&logs[i])
	}
	c.JSON(http.StatusOK, responses)
}
