package service

import (
	"context"
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/programme"
	"mhollis/stable-app/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrCalendarRecordNotFound = errors.New("calendar record not found")
)

// LogInput carries the rider-entered fields of a session log. Nil numeric
// fields mean "not recorded".
type LogInput struct {
	DurationMinutes *int
	Rpe             *int
	Notes           string
}

// --- Service Interface ---
type LogService interface {
	// LogSession files a log against a calendar record. With fillPlanned the
	// duration/RPE are pre-populated from the work item's current snapshot
	// using the midpoint of each range; explicit input fields still win.
	LogSession(ctx context.Context, riderID, calendarRecordID primitive.ObjectID, input LogInput, fillPlanned bool) (*domain.SessionLog, error)
	LogUnscheduledSession(ctx context.Context, riderID, horseID primitive.ObjectID, date time.Time, input LogInput) (*domain.SessionLog, error)
	GetLogsForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.SessionLog, error)
}

// --- Service Implementation ---

// logService implements the LogService interface.
type logService struct {
	logRepo      repository.SessionLogRepository
	calendarRepo repository.CalendarRecordRepository
	workItemRepo repository.WorkItemRepository
	horseRepo    repository.HorseRepository
}

// NewLogService creates a new instance of logService.
func NewLogService(
	logRepo repository.SessionLogRepository,
	calendarRepo repository.CalendarRecordRepository,
	workItemRepo repository.WorkItemRepository,
	horseRepo repository.HorseRepository,
) LogService {
	return &logService{
		logRepo:      logRepo,
		calendarRepo: calendarRepo,
		workItemRepo: workItemRepo,
		horseRepo:    horseRepo,
	}
}

// LogSession files an execution log for a scheduled session.
func (s *logService) LogSession(ctx context.Context, riderID, calendarRecordID primitive.ObjectID, input LogInput, fillPlanned bool) (*domain.SessionLog, error) {
	record, err := s.calendarRepo.GetByID(ctx, calendarRecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCalendarRecordNotFound
		}
		return nil, err
	}
	horse, err := s.horseRepo.GetByID(ctx, record.HorseID)
	if err != nil {
		return nil, err
	}
	if !canAccessHorse(horse, riderID) {
		return nil, ErrHorseAccessDenied
	}

	if fillPlanned && record.WorkItemID != nil {
		item, err := s.workItemRepo.GetByID(ctx, *record.WorkItemID)
		if err == nil {
			// Midpoint of the planned range, a form convenience only; the
			// calendar record itself always carries the range minimum.
			if input.DurationMinutes == nil {
				input.DurationMinutes = programme.PlannedDuration(item.CurrentData)
			}
			if input.Rpe == nil {
				input.Rpe = programme.PlannedRpe(item.CurrentData)
			}
		}
	}

	log := &domain.SessionLog{
		HorseID:          record.HorseID,
		RiderID:          riderID,
		CalendarRecordID: &calendarRecordID,
		Date:             record.Date,
		DurationMinutes:  input.DurationMinutes,
		Rpe:              input.Rpe,
		Notes:            input.Notes,
	}
	id, err := s.logRepo.Create(ctx, log)
	if err != nil {
		return nil, err
	}
	log.ID = id
	return log, nil
}

// LogUnscheduledSession files a log that is not tied to any plan (an ad-hoc ride).
func (s *logService) LogUnscheduledSession(ctx context.Context, riderID, horseID primitive.ObjectID, date time.Time, input LogInput) (*domain.SessionLog, error) {
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if !canAccessHorse(horse, riderID) {
		return nil, ErrHorseAccessDenied
	}

	log := &domain.SessionLog{
		HorseID:         horseID,
		RiderID:         riderID,
		Date:            date,
		DurationMinutes: input.DurationMinutes,
		Rpe:             input.Rpe,
		Notes:           input.Notes,
	}
	id, err := s.logRepo.Create(ctx, log)
	if err != nil {
		return nil, err
	}
	log.ID = id
	return log, nil
}

// GetLogsForHorse lists a horse's session logs for any user with access.
func (s *logService) GetLogsForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.SessionLog, error) {
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if !canAccessHorse(horse, userID) {
		return nil, ErrHorseAccessDenied
	}
	return s.logRepo.GetByHorseID(ctx, horseID)
}
