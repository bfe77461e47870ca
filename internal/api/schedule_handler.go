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

const dateLayout = "2006-01-02"

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// --- DTOs ---

type ParseScheduleRequest struct {
	Raw string `json:"raw" binding:"required"`
}

type ParseScheduleResponse struct {
	Entries     []domain.DayEntry `json:"entries"`
	NumWeeks    int               `json:"numWeeks"`
	Diagnostics []string          `json:"diagnostics"`
}

type CreateScheduleRequest struct {
	Name string `json:"name" binding:"required"`
	Raw  string `json:"raw" binding:"required"`
}

type ScheduleResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      int               `json:"version"`
	Status       string            `json:"status"`
	NumWeeks     int               `json:"numWeeks"`
	Entries      []domain.DayEntry `json:"entries,omitempty"`
	ForkedFromID *string           `json:"forkedFromId,omitempty"`
	HasSource    bool              `json:"hasSource"` // An archived source sheet exists
	CreatedAt    time.Time         `json:"createdAt"`
	Warnings     []string          `json:"warnings,omitempty"` // Parse diagnostics, set on creation only
}

type ApplyScheduleRequest struct {
	HorseID   string `json:"horseId" binding:"required"`
	StartDate string `json:"startDate" binding:"required"` // YYYY-MM-DD
}

type RepeatPlanRequest struct {
	StartDate string `json:"startDate" binding:"required"` // YYYY-MM-DD
	Amended   bool   `json:"amended"`
}

type ApplyResultResponse struct {
	PlanID                string `json:"planId"`
	WorkItemCount         int    `json:"workItemCount"`
	ForkedScheduleVersion int    `json:"forkedScheduleVersion,omitempty"`
}

type SetPlanStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed cancelled"`
}

type PlanResponse struct {
	ID              string    `json:"id"`
	HorseID         string    `json:"horseId"`
	ScheduleID      string    `json:"scheduleId"`
	ScheduleVersion int       `json:"scheduleVersion"`
	SourcePlanID    *string   `json:"sourcePlanId,omitempty"`
	StartDate       string    `json:"startDate"` // YYYY-MM-DD
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

type WorkItemResponse struct {
	ID            string          `json:"id"`
	PlanID        string          `json:"planId"`
	Week          int             `json:"week"`
	Day           int             `json:"day"`
	ScheduledDate *string         `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	Slot          string          `json:"slot"`
	IsRest        bool            `json:"isRest"`
	BaselineData  domain.DayEntry `json:"baselineData"`
	CurrentData   domain.DayEntry `json:"currentData"`
	Edited        bool            `json:"edited"`
}

type CalendarRecordResponse struct {
	ID              string  `json:"id"`
	HorseID         string  `json:"horseId"`
	PlanID          *string `json:"planId,omitempty"`
	WorkItemID      *string `json:"workItemId,omitempty"`
	Date            string  `json:"date"` // YYYY-MM-DD
	Slot            string  `json:"slot"`
	Label           string  `json:"label"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	IntensityRpe    *int    `json:"intensityRpe,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

func MapScheduleToResponse(s *domain.Schedule, includeEntries bool) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	resp := ScheduleResponse{
		ID:        s.ID.Hex(),
		Name:      s.Name,
		Version:   s.Version,
		Status:    string(s.Status),
		NumWeeks:  s.NumWeeks,
		HasSource: s.SourceObjectKey != "",
		CreatedAt: s.CreatedAt,
	}
	if includeEntries {
		resp.Entries = s.Entries
	}
	if s.ForkedFromID != nil {
		hex := s.ForkedFromID.Hex()
		resp.ForkedFromID = &hex
	}
	return resp
}

func MapPlanToResponse(p *domain.AppliedPlan) PlanResponse {
	if p == nil {
		return PlanResponse{}
	}
	resp := PlanResponse{
		ID:              p.ID.Hex(),
		HorseID:         p.HorseID.Hex(),
		ScheduleID:      p.ScheduleID.Hex(),
		ScheduleVersion: p.ScheduleVersion,
		StartDate:       p.StartDate.Format(dateLayout),
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt,
	}
	if p.SourcePlanID != nil {
		hex := p.SourcePlanID.Hex()
		resp.SourcePlanID = &hex
	}
	return resp
}

func MapWorkItemToResponse(item *domain.WorkItem) WorkItemResponse {
	if item == nil {
		return WorkItemResponse{}
	}
	resp := WorkItemResponse{
		ID:           item.ID.Hex(),
		PlanID:       item.PlanID.Hex(),
		Week:         item.Week,
		Day:          item.Day,
		Slot:         string(item.Slot),
		IsRest:       item.IsRest,
		BaselineData: item.BaselineData,
		CurrentData:  item.CurrentData,
		Edited:       !entriesEqual(item.BaselineData, item.CurrentData),
	}
	if item.ScheduledDate != nil {
		date := item.ScheduledDate.Format(dateLayout)
		resp.ScheduledDate = &date
	}
	return resp
}

func MapCalendarRecordToResponse(r *domain.CalendarRecord) CalendarRecordResponse {
	if r == nil {
		return CalendarRecordResponse{}
	}
	resp := CalendarRecordResponse{
		ID:              r.ID.Hex(),
		HorseID:         r.HorseID.Hex(),
		Date:            r.Date.Format(dateLayout),
		Slot:            string(r.Slot),
		Label:           r.Label,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		IntensityRpe:    r.IntensityRpe,
		Notes:           r.Notes,
	}
	if r.PlanID != nil {
		hex := r.PlanID.Hex()
		resp.PlanID = &hex
	}
	if r.WorkItemID != nil {
		hex := r.WorkItemID.Hex()
		resp.WorkItemID = &hex
	}
	return resp
}

// entriesEqual compares the editable content of two day entries.
func entriesEqual(a, b domain.DayEntry) bool {
	if a.Title != b.Title || a.Category != b.Category ||
		a.IntensityLabel != b.IntensityLabel ||
		a.Substitution != b.Substitution || a.ManualRef != b.ManualRef {
		return false
	}
	if !intPtrEqual(a.DurationMin, b.DurationMin) || !intPtrEqual(a.DurationMax, b.DurationMax) ||
		!intPtrEqual(a.IntensityRpeMin, b.IntensityRpeMin) || !intPtrEqual(a.IntensityRpeMax, b.IntensityRpeMax) {
		return false
	}
	if len(a.Blocks) != len(b.Blocks) {
		return false
	}
	for i := range a.Blocks {
		if a.Blocks[i] != b.Blocks[i] {
			return false
		}
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mapScheduleError translates scheduler service errors into HTTP responses.
// A ScheduleConflictError becomes 409 with the exact double-booked dates.
func mapScheduleError(c *gin.Context, err error, fallback string) {
	var conflict *service.ScheduleConflictError
	switch {
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":         "schedule conflicts with existing calendar records",
			"conflictDates": conflict.Dates,
		})
	case errors.Is(err, service.ErrScheduleNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrWorkItemNotFound),
		errors.Is(err, service.ErrHorseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScheduleAccessDenied),
		errors.Is(err, service.ErrHorseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrScheduleNotPublished),
		errors.Is(err, service.ErrScheduleNotDraft),
		errors.Is(err, service.ErrEmptySchedule),
		errors.Is(err, service.ErrPlanNotActive),
		errors.Is(err, service.ErrPlanHasNoWorkItems),
		errors.Is(err, service.ErrInvalidPlanStatus):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

func parseDateParam(c *gin.Context, value, name string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+": expected YYYY-MM-DD.")
		return time.Time{}, false
	}
	return t, true
}

// --- Handler Methods: parsing and schedule versions ---

// ParseSchedule is the dry-run endpoint the planner UI calls while the manager
// pastes spreadsheet text. Fatal diagnostics produce 422 with the full list.
func (h *ScheduleHandler) ParseSchedule(c *gin.Context) {
	var req ParseScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result := h.scheduleService.ParseSchedule(req.Raw)
	if !result.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"diagnostics": result.Diagnostics})
		return
	}
	c.JSON(http.StatusOK, ParseScheduleResponse{
		Entries:     result.Entries,
		NumWeeks:    result.NumWeeks,
		Diagnostics: result.Diagnostics,
	})
}

// CreateSchedule parses the raw sheet and stores it as a draft schedule.
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	schedule, result, err := h.scheduleService.CreateSchedule(c.Request.Context(), managerID, req.Name, req.Raw)
	if err != nil {
		if errors.Is(err, service.ErrScheduleParseFailed) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"diagnostics": result.Diagnostics})
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to create schedule.")
		return
	}

	resp := MapScheduleToResponse(schedule, true)
	resp.Warnings = result.Warnings()
	c.JSON(http.StatusCreated, resp)
}

func (h *ScheduleHandler) GetSchedules(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	schedules, err := h.scheduleService.GetSchedules(c.Request.Context(), managerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve schedules.")
		return
	}
	responses := make([]ScheduleResponse, len(schedules))
	for i, s := range schedules {
		responses[i] = MapScheduleToResponse(&s, false)
	}
	c.JSON(http.StatusOK, responses)
}

func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), managerID, scheduleID)
	if err != nil {
		mapScheduleError(c, err, "Failed to retrieve schedule.")
		return
	}
	c.JSON(http.StatusOK, MapScheduleToResponse(schedule, true))
}

func (h *ScheduleHandler) PublishSchedule(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	schedule, err := h.scheduleService.PublishSchedule(c.Request.Context(), managerID, scheduleID)
	if err != nil {
		mapScheduleError(c, err, "Failed to publish schedule.")
		return
	}
	c.JSON(http.StatusOK, MapScheduleToResponse(schedule, true))
}

func (h *ScheduleHandler) ArchiveSchedule(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	schedule, err := h.scheduleService.ArchiveSchedule(c.Request.Context(), managerID, scheduleID)
	if err != nil {
		mapScheduleError(c, err, "Failed to archive schedule.")
		return
	}
	c.JSON(http.StatusOK, MapScheduleToResponse(schedule, false))
}

// GenerateSourceUploadURL returns a presigned PUT URL for archiving the
// original spreadsheet file a schedule was parsed from.
func (h *ScheduleHandler) GenerateSourceUploadURL(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	resp, err := h.scheduleService.GenerateSourceUploadURL(c.Request.Context(), managerID, scheduleID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadURLError) {
			abortWithError(c, http.StatusInternalServerError, "Could not generate upload URL.")
		} else {
			mapScheduleError(c, err, "Failed to generate upload URL.")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmSourceUpload records the archived spreadsheet object on the schedule.
func (h *ScheduleHandler) ConfirmSourceUpload(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	err := h.scheduleService.ConfirmSourceUpload(c.Request.Context(), managerID, scheduleID, req.ObjectKey, req.FileName, req.Size, req.ContentType)
	if err != nil {
		mapScheduleError(c, err, "Failed to confirm upload.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Source sheet archived."})
}

// GetSourceDownloadURL returns a presigned GET URL for the archived sheet.
func (h *ScheduleHandler) GetSourceDownloadURL(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	url, err := h.scheduleService.GetSourceDownloadURL(c.Request.Context(), managerID, scheduleID)
	if err != nil {
		mapScheduleError(c, err, "Failed to generate download URL.")
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

// --- Handler Methods: apply / repeat / plans ---

// ApplySchedule materializes a published schedule onto a horse's calendar.
// Collisions come back as 409 with the exact conflicting dates.
func (h *ScheduleHandler) ApplySchedule(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	var req ApplyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	horseID, err := primitive.ObjectIDFromHex(req.HorseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid horse ID format.")
		return
	}
	startDate, ok := parseDateParam(c, req.StartDate, "startDate")
	if !ok {
		return
	}

	result, err := h.scheduleService.ApplySchedule(c.Request.Context(), managerID, scheduleID, horseID, startDate)
	if err != nil {
		mapScheduleError(c, err, "Failed to apply schedule.")
		return
	}
	c.JSON(http.StatusCreated, ApplyResultResponse{
		PlanID:        result.PlanID.Hex(),
		WorkItemCount: result.WorkItemCount,
	})
}

// RepeatPlan re-applies an existing plan at a new start date. With amended=true
// the plan's current (possibly edited) content is forked into a new schedule
// version first.
func (h *ScheduleHandler) RepeatPlan(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	var req RepeatPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	startDate, ok := parseDateParam(c, req.StartDate, "startDate")
	if !ok {
		return
	}

	result, err := h.scheduleService.RepeatPlan(c.Request.Context(), managerID, planID, startDate, req.Amended)
	if err != nil {
		mapScheduleError(c, err, "Failed to repeat plan.")
		return
	}
	c.JSON(http.StatusCreated, ApplyResultResponse{
		PlanID:                result.PlanID.Hex(),
		WorkItemCount:         result.WorkItemCount,
		ForkedScheduleVersion: result.ForkedScheduleVersion,
	})
}

func (h *ScheduleHandler) SetPlanStatus(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	var req SetPlanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	err := h.scheduleService.SetPlanStatus(c.Request.Context(), managerID, planID, domain.PlanStatus(req.Status))
	if err != nil {
		mapScheduleError(c, err, "Failed to update plan status.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan status updated"})
}

// RemovePlan deletes a plan with its work items and calendar records. Session
// logs survive with their back-references nulled. Idempotent.
func (h *ScheduleHandler) RemovePlan(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}

	removed, err := h.scheduleService.RemoveAppliedPlan(c.Request.Context(), managerID, planID)
	if err != nil {
		mapScheduleError(c, err, "Failed to remove plan.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removedWorkItems": removed})
}

func (h *ScheduleHandler) GetPlansForHorse(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}

	plans, err := h.scheduleService.GetPlansForHorse(c.Request.Context(), userID, horseID)
	if err != nil {
		mapScheduleError(c, err, "Failed to retrieve plans.")
		return
	}
	responses := make([]PlanResponse, len(plans))
	for i, p := range plans {
		responses[i] = MapPlanToResponse(&p)
	}
	c.JSON(http.StatusOK, responses)
}

// --- Handler Methods: work items and the planner grid ---

func (h *ScheduleHandler) GetWorkItems(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}

	items, err := h.scheduleService.GetWorkItems(c.Request.Context(), userID, planID)
	if err != nil {
		mapScheduleError(c, err, "Failed to retrieve work items.")
		return
	}
	responses := make([]WorkItemResponse, len(items))
	for i := range items {
		responses[i] = MapWorkItemToResponse(&items[i])
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateWorkItem replaces a work item's current content; its calendar record is
// re-projected in the same transaction.
func (h *ScheduleHandler) UpdateWorkItem(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var entry domain.DayEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := validateEntry(entry); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.scheduleService.UpdateWorkItem(c.Request.Context(), managerID, itemID, entry)
	if err != nil {
		mapScheduleError(c, err, "Failed to update work item.")
		return
	}
	c.JSON(http.StatusOK, MapWorkItemToResponse(item))
}

// ResetWorkItem restores a work item (and its calendar record) to the content
// it had when the plan was applied.
func (h *ScheduleHandler) ResetWorkItem(c *gin.Context) {
	managerID, ok := callerID(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	item, err := h.scheduleService.ResetWorkItem(c.Request.Context(), managerID, itemID)
	if err != nil {
		mapScheduleError(c, err, "Failed to reset work item.")
		return
	}
	c.JSON(http.StatusOK, MapWorkItemToResponse(item))
}

// GetCalendar returns a horse's calendar records for the planner grid.
// Query params: from, to (YYYY-MM-DD, inclusive).
func (h *ScheduleHandler) GetCalendar(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	horseID, ok := pathID(c, "horseId")
	if !ok {
		return
	}
	from, ok := parseDateParam(c, c.Query("from"), "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, c.Query("to"), "to")
	if !ok {
		return
	}
	if to.Before(from) {
		abortWithError(c, http.StatusBadRequest, "'to' must not be before 'from'.")
		return
	}

	records, err := h.scheduleService.GetCalendar(c.Request.Context(), userID, horseID, from, to)
	if err != nil {
		mapScheduleError(c, err, "Failed to retrieve calendar.")
		return
	}
	responses := make([]CalendarRecordResponse, len(records))
	for i := range records {
		responses[i] = MapCalendarRecordToResponse(&records[i])
	}
	c.JSON(http.StatusOK, responses)
}

// validateEntry checks the editable ranges on an incoming day entry.
func validateEntry(e domain.DayEntry) error {
	if e.Title == "" {
		return errors.New("title must not be empty")
	}
	if e.Category == "" {
		return errors.New("category must not be empty")
	}
	for _, rpe := range []*int{e.IntensityRpeMin, e.IntensityRpeMax} {
		if rpe != nil && (*rpe < 1 || *rpe > 10) {
			return errors.New("RPE values must be between 1 and 10")
		}
	}
	for _, d := range []*int{e.DurationMin, e.DurationMax} {
		if d != nil && *d < 0 {
			return errors.New("durations must not be negative")
		}
	}
	return nil
}
