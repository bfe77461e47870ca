package service

import (
	"context"
	"errors"
	"fmt"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/programme"
	"mhollis/stable-app/internal/repository"
	"mhollis/stable-app/internal/storage"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrScheduleNotPublished = errors.New("schedule is not published")
	ErrScheduleNotDraft     = errors.New("schedule is not a draft")
	ErrScheduleParseFailed  = errors.New("schedule parsing failed")
	ErrEmptySchedule        = errors.New("schedule has no entries")
	ErrPlanNotFound         = errors.New("applied plan not found")
	ErrPlanNotActive        = errors.New("applied plan is not active")
	ErrPlanHasNoWorkItems   = errors.New("plan has no work items to repeat")
	ErrWorkItemNotFound     = errors.New("work item not found")
	ErrScheduleAccessDenied = errors.New("access denied to this schedule")
	ErrInvalidPlanStatus    = errors.New("invalid plan status transition")
)

// ScheduleConflictError reports which projected dates are already occupied on
// the horse's calendar. The caller gets the exact double-booked days, not a
// generic failure.
type ScheduleConflictError struct {
	Dates []string // ISO YYYY-MM-DD
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("schedule conflicts with existing calendar records on: %s", strings.Join(e.Dates, ", "))
}

// ApplyResult reports a successful materialization.
type ApplyResult struct {
	PlanID                primitive.ObjectID
	WorkItemCount         int
	ForkedScheduleVersion int // Set only for amended repeats
}

// --- Service Interface ---
type ScheduleService interface {
	// Parsing and versions
	ParseSchedule(raw string) programme.Result
	CreateSchedule(ctx context.Context, managerID primitive.ObjectID, name, raw string) (*domain.Schedule, programme.Result, error)
	PublishSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error)
	ArchiveSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error)
	GetSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error)
	GetSchedules(ctx context.Context, managerID primitive.ObjectID) ([]domain.Schedule, error)

	// Archival of the original spreadsheet file alongside the parsed entries
	GenerateSourceUploadURL(ctx context.Context, managerID, scheduleID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmSourceUpload(ctx context.Context, managerID, scheduleID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) error
	GetSourceDownloadURL(ctx context.Context, managerID, scheduleID primitive.ObjectID) (string, error)

	// Apply / repeat / amend workflow
	ApplySchedule(ctx context.Context, managerID, scheduleID, horseID primitive.ObjectID, startDate time.Time) (*ApplyResult, error)
	RepeatPlan(ctx context.Context, managerID, sourcePlanID primitive.ObjectID, startDate time.Time, amended bool) (*ApplyResult, error)
	SetPlanStatus(ctx context.Context, managerID, planID primitive.ObjectID, status domain.PlanStatus) error
	RemoveAppliedPlan(ctx context.Context, managerID, planID primitive.ObjectID) (int64, error)
	GetPlansForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.AppliedPlan, error)

	// Work items and the planner grid
	UpdateWorkItem(ctx context.Context, managerID, workItemID primitive.ObjectID, data domain.DayEntry) (*domain.WorkItem, error)
	ResetWorkItem(ctx context.Context, managerID, workItemID primitive.ObjectID) (*domain.WorkItem, error)
	GetWorkItems(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.WorkItem, error)
	GetCalendar(ctx context.Context, userID, horseID primitive.ObjectID, from, to time.Time) ([]domain.CalendarRecord, error)
}

// --- Service Implementation ---

// scheduleService implements the ScheduleService interface.
type scheduleService struct {
	scheduleRepo repository.ScheduleRepository
	planRepo     repository.AppliedPlanRepository
	workItemRepo repository.WorkItemRepository
	calendarRepo repository.CalendarRecordRepository
	logRepo      repository.SessionLogRepository
	horseRepo    repository.HorseRepository
	uploadRepo   repository.UploadRepository
	fileStorage  storage.FileStorage
	txn          repository.TxnRunner
}

// NewScheduleService creates a new instance of scheduleService.
func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	planRepo repository.AppliedPlanRepository,
	workItemRepo repository.WorkItemRepository,
	calendarRepo repository.CalendarRecordRepository,
	logRepo repository.SessionLogRepository,
	horseRepo repository.HorseRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
	txn repository.TxnRunner,
) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		planRepo:     planRepo,
		workItemRepo: workItemRepo,
		calendarRepo: calendarRepo,
		logRepo:      logRepo,
		horseRepo:    horseRepo,
		uploadRepo:   uploadRepo,
		fileStorage:  fileStorage,
		txn:          txn,
	}
}

// === Parsing and schedule versions ===

// ParseSchedule runs the tolerant spreadsheet parser without persisting
// anything; the planner UI uses it as a dry run before creating a draft.
func (s *scheduleService) ParseSchedule(raw string) programme.Result {
	return programme.Parse(raw)
}

// CreateSchedule parses raw spreadsheet text and stores it as a new draft
// schedule (version 1 of its name). The parse result is returned alongside so
// callers can surface warnings even on success.
func (s *scheduleService) CreateSchedule(ctx context.Context, managerID primitive.ObjectID, name, raw string) (*domain.Schedule, programme.Result, error) {
	if managerID == primitive.NilObjectID || name == "" {
		return nil, programme.Result{}, errors.New("manager ID and schedule name are required")
	}

	result := programme.Parse(raw)
	if !result.OK() {
		return nil, result, ErrScheduleParseFailed
	}

	schedule := &domain.Schedule{
		Name:      name,
		Version:   1,
		Status:    domain.ScheduleDraft,
		NumWeeks:  result.NumWeeks,
		Entries:   result.Entries,
		CreatedBy: managerID,
	}
	id, err := s.scheduleRepo.Create(ctx, schedule)
	if err != nil {
		return nil, result, err
	}
	schedule.ID = id
	return schedule, result, nil
}

// PublishSchedule moves a draft to published. Published schedules are
// immutable and are the only ones that can be applied.
func (s *scheduleService) PublishSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error) {
	schedule, err := s.getOwnedSchedule(ctx, managerID, scheduleID)
	if err != nil {
		return nil, err
	}

	err = s.scheduleRepo.SetStatus(ctx, scheduleID, domain.ScheduleDraft, domain.SchedulePublished)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrScheduleNotDraft
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	schedule.Status = domain.SchedulePublished
	return schedule, nil
}

// ArchiveSchedule retires a published schedule from the pick lists. Plans
// already applied from it are unaffected.
func (s *scheduleService) ArchiveSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error) {
	schedule, err := s.getOwnedSchedule(ctx, managerID, scheduleID)
	if err != nil {
		return nil, err
	}

	err = s.scheduleRepo.SetStatus(ctx, scheduleID, domain.SchedulePublished, domain.ScheduleArchived)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrScheduleNotPublished
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	schedule.Status = domain.ScheduleArchived
	return schedule, nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error) {
	return s.getOwnedSchedule(ctx, managerID, scheduleID)
}

func (s *scheduleService) GetSchedules(ctx context.Context, managerID primitive.ObjectID) ([]domain.Schedule, error) {
	if managerID == primitive.NilObjectID {
		return nil, errors.New("manager ID is required")
	}
	return s.scheduleRepo.GetByCreator(ctx, managerID)
}

func (s *scheduleService) getOwnedSchedule(ctx context.Context, managerID, scheduleID primitive.ObjectID) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if schedule.CreatedBy != managerID {
		return nil, ErrScheduleAccessDenied
	}
	return schedule, nil
}

// === Source spreadsheet archival ===

// GenerateSourceUploadURL creates a presigned PUT URL for archiving the
// original spreadsheet file a schedule was parsed from.
func (s *scheduleService) GenerateSourceUploadURL(ctx context.Context, managerID, scheduleID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if contentType == "" {
		return nil, errors.New("content type is required")
	}
	if _, err := s.getOwnedSchedule(ctx, managerID, scheduleID); err != nil {
		return nil, err
	}

	objectKey := buildObjectKey("sheets", scheduleID.Hex(), contentType)
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmSourceUpload records the archived spreadsheet object against the
// schedule. Re-confirming replaces the previous archive copy.
func (s *scheduleService) ConfirmSourceUpload(ctx context.Context, managerID, scheduleID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) error {
	if objectKey == "" {
		return errors.New("object key is required")
	}
	schedule, err := s.getOwnedSchedule(ctx, managerID, scheduleID)
	if err != nil {
		return err
	}

	upload := &domain.Upload{
		UploaderID:  managerID,
		Purpose:     domain.UploadSpreadsheet,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}
	if _, err := s.uploadRepo.Create(ctx, upload); err != nil {
		return err
	}

	if schedule.SourceObjectKey != "" && schedule.SourceObjectKey != objectKey {
		_ = s.fileStorage.DeleteObject(ctx, schedule.SourceObjectKey)
	}
	return s.scheduleRepo.SetSourceObjectKey(ctx, scheduleID, objectKey)
}

// GetSourceDownloadURL returns a presigned GET URL for the archived sheet.
func (s *scheduleService) GetSourceDownloadURL(ctx context.Context, managerID, scheduleID primitive.ObjectID) (string, error) {
	schedule, err := s.getOwnedSchedule(ctx, managerID, scheduleID)
	if err != nil {
		return "", err
	}
	if schedule.SourceObjectKey == "" {
		return "", errors.New("schedule has no archived source sheet")
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, schedule.SourceObjectKey, storage.DefaultPresignedURLExpiry)
}

// === Apply / repeat / amend ===

// ApplySchedule materializes a published schedule onto a horse's calendar
// starting at startDate (conventionally a Monday, UTC midnight semantics).
func (s *scheduleService) ApplySchedule(ctx context.Context, managerID, scheduleID, horseID primitive.ObjectID, startDate time.Time) (*ApplyResult, error) {
	horse, err := s.getOwnedHorse(ctx, managerID, horseID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.getOwnedSchedule(ctx, managerID, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.IsPublished() {
		return nil, ErrScheduleNotPublished
	}

	return s.materialize(ctx, horse, schedule.Entries, startDate, nil, managerID,
		func(ctx context.Context) (*domain.Schedule, error) {
			return schedule, nil
		})
}

// RepeatPlan re-applies a previously applied plan at a new start date. In
// original mode the source plan's schedule version is reused as-is. In amended
// mode the plan's current (possibly hand-edited) work-item snapshots are
// reconstructed into a new, immediately-published schedule fork (version N+1),
// which is then materialized through the same path; the fork makes amended
// repeats reproducible and independently repeatable themselves.
func (s *scheduleService) RepeatPlan(ctx context.Context, managerID, sourcePlanID primitive.ObjectID, startDate time.Time, amended bool) (*ApplyResult, error) {
	sourcePlan, err := s.planRepo.GetByID(ctx, sourcePlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	horse, err := s.getOwnedHorse(ctx, managerID, sourcePlan.HorseID)
	if err != nil {
		return nil, err
	}
	sourceSchedule, err := s.getOwnedSchedule(ctx, managerID, sourcePlan.ScheduleID)
	if err != nil {
		return nil, err
	}

	if !amended {
		if !sourceSchedule.IsPublished() {
			return nil, ErrScheduleNotPublished
		}
		return s.materialize(ctx, horse, sourceSchedule.Entries, startDate, &sourcePlan.ID, managerID,
			func(ctx context.Context) (*domain.Schedule, error) {
				return sourceSchedule, nil
			})
	}

	items, err := s.workItemRepo.GetByPlanID(ctx, sourcePlan.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrPlanHasNoWorkItems
	}

	entries, numWeeks := reconstructEntries(items)

	result, err := s.materialize(ctx, horse, entries, startDate, &sourcePlan.ID, managerID,
		func(ctx context.Context) (*domain.Schedule, error) {
			// The fork is persisted inside the materialization transaction: a
			// failed apply must not leave an orphan schedule version behind.
			fork := &domain.Schedule{
				Name:         sourceSchedule.Name,
				Version:      sourceSchedule.Version + 1,
				Status:       domain.SchedulePublished,
				NumWeeks:     numWeeks,
				Entries:      entries,
				ForkedFromID: &sourceSchedule.ID,
				CreatedBy:    managerID,
			}
			forkID, err := s.scheduleRepo.Create(ctx, fork)
			if err != nil {
				return nil, err
			}
			fork.ID = forkID
			return fork, nil
		})
	if err != nil {
		return nil, err
	}
	result.ForkedScheduleVersion = sourceSchedule.Version + 1
	return result, nil
}

// reconstructEntries rebuilds a schedule entry list from work items' current
// snapshots, preserving the original (week, day) positions and recomputing the
// week count from the maximum origin week observed.
func reconstructEntries(items []domain.WorkItem) ([]domain.DayEntry, int) {
	entries := make([]domain.DayEntry, len(items))
	numWeeks := 0
	for i, item := range items {
		entry := item.CurrentData
		entry.Week = item.Week
		entry.Day = item.Day
		entries[i] = entry
		if item.Week > numWeeks {
			numWeeks = item.Week
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Week != entries[j].Week {
			return entries[i].Week < entries[j].Week
		}
		return entries[i].Day < entries[j].Day
	})
	return entries, numWeeks
}

// materialize runs the scheduler: project dates, pre-flight collision check,
// then one transaction creating the plan, its work items and their calendar
// records. persistSchedule runs inside that transaction and returns the
// schedule version the plan is anchored to (pre-existing, or a fresh fork).
// Nothing is written unless everything is.
func (s *scheduleService) materialize(
	ctx context.Context,
	horse *domain.Horse,
	entries []domain.DayEntry,
	startDate time.Time,
	sourcePlanID *primitive.ObjectID,
	createdBy primitive.ObjectID,
	persistSchedule func(ctx context.Context) (*domain.Schedule, error),
) (*ApplyResult, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySchedule
	}

	start := midnightUTC(startDate)
	dates := make([]time.Time, len(entries))
	for i, entry := range entries {
		dates[i] = programme.ScheduledDate(start, entry.Week, entry.Day)
	}

	// Pre-flight: report every colliding date before touching anything. Two
	// racing applies can both pass this read; the unique calendar index makes
	// the loser's transaction fail and roll back.
	existing, err := s.calendarRepo.FindByHorseSlotDates(ctx, horse.ID, domain.SlotAM, dates)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		conflict := &ScheduleConflictError{}
		for _, record := range existing {
			conflict.Dates = append(conflict.Dates, record.Date.Format("2006-01-02"))
		}
		sort.Strings(conflict.Dates)
		return nil, conflict
	}

	var planID primitive.ObjectID
	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		schedule, err := persistSchedule(ctx)
		if err != nil {
			return err
		}

		plan := &domain.AppliedPlan{
			HorseID:         horse.ID,
			ScheduleID:      schedule.ID,
			ScheduleVersion: schedule.Version,
			SourcePlanID:    sourcePlanID,
			StartDate:       start,
			Status:          domain.PlanActive,
			CreatedBy:       createdBy,
		}
		planID, err = s.planRepo.Create(ctx, plan)
		if err != nil {
			return err
		}

		for i, entry := range entries {
			date := dates[i]
			item := &domain.WorkItem{
				PlanID:        planID,
				HorseID:       horse.ID,
				Week:          entry.Week,
				Day:           entry.Day,
				ScheduledDate: &date,
				Slot:          domain.SlotAM,
				IsRest:        entry.IsRestDay(),
				BaselineData:  entry,
				CurrentData:   entry,
			}
			itemID, err := s.workItemRepo.Create(ctx, item)
			if err != nil {
				return err
			}

			fields := programme.ProjectCalendarFields(entry)
			record := &domain.CalendarRecord{
				HorseID:         horse.ID,
				PlanID:          &planID,
				WorkItemID:      &itemID,
				Date:            date,
				Slot:            domain.SlotAM,
				Label:           fields.Label,
				Description:     fields.Description,
				DurationMinutes: fields.DurationMinutes,
				IntensityRpe:    fields.IntensityRpe,
				Notes:           fields.Notes,
			}
			if _, err := s.calendarRepo.Create(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ApplyResult{PlanID: planID, WorkItemCount: len(entries)}, nil
}

// SetPlanStatus retires an active plan to completed or cancelled. Both are
// terminal; reactivation is not a thing.
func (s *scheduleService) SetPlanStatus(ctx context.Context, managerID, planID primitive.ObjectID, status domain.PlanStatus) error {
	if !status.IsTerminal() {
		return ErrInvalidPlanStatus
	}
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if _, err := s.getOwnedHorse(ctx, managerID, plan.HorseID); err != nil {
		return err
	}

	err = s.planRepo.UpdateStatus(ctx, planID, status)
	if errors.Is(err, repository.ErrConflict) {
		return ErrPlanNotActive
	}
	return err
}

// RemoveAppliedPlan deletes a plan with its work items and calendar records.
// Session logs referencing those records are kept with their back-reference
// nulled. Removal is idempotent: a plan that is already gone reports zero
// removed work items.
func (s *scheduleService) RemoveAppliedPlan(ctx context.Context, managerID, planID primitive.ObjectID) (int64, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if _, err := s.getOwnedHorse(ctx, managerID, plan.HorseID); err != nil {
		return 0, err
	}

	var removed int64
	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		recordIDs, err := s.calendarRepo.GetIDsByPlanID(ctx, planID)
		if err != nil {
			return err
		}
		if _, err := s.logRepo.ClearCalendarRefs(ctx, recordIDs); err != nil {
			return err
		}
		if _, err := s.calendarRepo.DeleteByPlanID(ctx, planID); err != nil {
			return err
		}
		removed, err = s.workItemRepo.DeleteByPlanID(ctx, planID)
		if err != nil {
			return err
		}
		return s.planRepo.Delete(ctx, planID)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *scheduleService) GetPlansForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.AppliedPlan, error) {
	if _, err := s.getAccessibleHorse(ctx, userID, horseID); err != nil {
		return nil, err
	}
	return s.planRepo.GetByHorseID(ctx, horseID)
}

// === Work items and the planner grid ===

// UpdateWorkItem replaces a work item's current snapshot and re-projects its
// calendar record in the same transaction, keeping the two in lockstep. The
// item's (week, day) position and baseline snapshot are immutable.
func (s *scheduleService) UpdateWorkItem(ctx context.Context, managerID, workItemID primitive.ObjectID, data domain.DayEntry) (*domain.WorkItem, error) {
	item, err := s.workItemRepo.GetByID(ctx, workItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkItemNotFound
		}
		return nil, err
	}
	if _, err := s.getOwnedHorse(ctx, managerID, item.HorseID); err != nil {
		return nil, err
	}

	if data.Title == "" || data.Category == "" {
		return nil, errors.New("work item title and category must not be empty")
	}
	// Position is part of the item's identity, not of the editable content.
	data.Week = item.Week
	data.Day = item.Day
	data.Category = strings.ToLower(data.Category)

	return s.applyCurrentData(ctx, item, data)
}

// ResetWorkItem discards in-place edits, restoring the current snapshot (and
// the calendar record) from the immutable baseline.
func (s *scheduleService) ResetWorkItem(ctx context.Context, managerID, workItemID primitive.ObjectID) (*domain.WorkItem, error) {
	item, err := s.workItemRepo.GetByID(ctx, workItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkItemNotFound
		}
		return nil, err
	}
	if _, err := s.getOwnedHorse(ctx, managerID, item.HorseID); err != nil {
		return nil, err
	}
	return s.applyCurrentData(ctx, item, item.BaselineData)
}

func (s *scheduleService) applyCurrentData(ctx context.Context, item *domain.WorkItem, data domain.DayEntry) (*domain.WorkItem, error) {
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.workItemRepo.UpdateCurrentData(ctx, item.ID, data); err != nil {
			return err
		}
		record, err := s.calendarRepo.GetByWorkItemID(ctx, item.ID)
		if err != nil {
			return err
		}
		fields := programme.ProjectCalendarFields(data)
		record.Label = fields.Label
		record.Description = fields.Description
		record.DurationMinutes = fields.DurationMinutes
		record.IntensityRpe = fields.IntensityRpe
		record.Notes = fields.Notes
		return s.calendarRepo.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	item.CurrentData = data
	return item, nil
}

func (s *scheduleService) GetWorkItems(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.WorkItem, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if _, err := s.getAccessibleHorse(ctx, userID, plan.HorseID); err != nil {
		return nil, err
	}
	return s.workItemRepo.GetByPlanID(ctx, planID)
}

// GetCalendar returns the horse's calendar records for the planner grid.
func (s *scheduleService) GetCalendar(ctx context.Context, userID, horseID primitive.ObjectID, from, to time.Time) ([]domain.CalendarRecord, error) {
	if _, err := s.getAccessibleHorse(ctx, userID, horseID); err != nil {
		return nil, err
	}
	return s.calendarRepo.GetByHorseAndRange(ctx, horseID, midnightUTC(from), midnightUTC(to))
}

// === Horse access helpers ===

// getOwnedHorse loads a horse and requires the caller to be its owner.
func (s *scheduleService) getOwnedHorse(ctx context.Context, managerID, horseID primitive.ObjectID) (*domain.Horse, error) {
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if horse.OwnerID != managerID {
		return nil, ErrHorseAccessDenied
	}
	return horse, nil
}

// getAccessibleHorse loads a horse readable by the caller: its owner, or a
// rider it has been shared with.
func (s *scheduleService) getAccessibleHorse(ctx context.Context, userID, horseID primitive.ObjectID) (*domain.Horse, error) {
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if horse.OwnerID == userID {
		return horse, nil
	}
	for _, riderID := range horse.RiderIDs {
		if riderID == userID {
			return horse, nil
		}
	}
	return nil, ErrHorseAccessDenied
}

// midnightUTC anchors a date at UTC midnight; all calendar arithmetic happens
// in this fixed epoch so day-of-week never drifts with timezones.
func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
