package repository

import (
	"context"
	"mhollis/stable-app/internal/domain"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("conflict")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxnRunner runs a function inside one store transaction. The callback's
// context carries the transaction; any error rolls the whole unit back. The
// scheduler's materialization step receives this as an explicit dependency so
// tests can substitute a pass-through runner over in-memory stores.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddSharedHorse(ctx context.Context, riderID, horseID primitive.ObjectID) error
}

// HorseRepository defines the interface for interacting with horse data.
type HorseRepository interface {
	Create(ctx context.Context, horse *domain.Horse) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Horse, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Horse, error)
	GetSharedWithRider(ctx context.Context, riderID primitive.ObjectID) ([]domain.Horse, error)
	Update(ctx context.Context, horse *domain.Horse) error
	Delete(ctx context.Context, id, ownerID primitive.ObjectID) error
	AddRider(ctx context.Context, horseID, riderID primitive.ObjectID) error
}

// HealthRecordRepository defines the interface for interacting with health records.
type HealthRecordRepository interface {
	Create(ctx context.Context, record *domain.HealthRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.HealthRecord, error)
	GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.HealthRecord, error)
	Update(ctx context.Context, record *domain.HealthRecord) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByHorseID(ctx context.Context, horseID primitive.ObjectID) (int64, error)
}

// ScheduleRepository defines the interface for interacting with programme schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Schedule, error)
	GetByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]domain.Schedule, error)
	// SetStatus transitions the schedule's status only if it currently has
	// the expected one; returns ErrConflict otherwise.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to domain.ScheduleStatus) error
	// SetSourceObjectKey records the archived source spreadsheet object.
	SetSourceObjectKey(ctx context.Context, id primitive.ObjectID, objectKey string) error
}

// AppliedPlanRepository defines the interface for interacting with applied plans.
type AppliedPlanRepository interface {
	Create(ctx context.Context, plan *domain.AppliedPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error)
	GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.AppliedPlan, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// WorkItemRepository defines the interface for interacting with work items.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkItem, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.WorkItem, error)
	UpdateCurrentData(ctx context.Context, id primitive.ObjectID, data domain.DayEntry) error
	DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error)
}

// CalendarRecordRepository defines the interface for interacting with calendar records.
type CalendarRecordRepository interface {
	Create(ctx context.Context, record *domain.CalendarRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarRecord, error)
	GetByWorkItemID(ctx context.Context, workItemID primitive.ObjectID) (*domain.CalendarRecord, error)
	// FindByHorseSlotDates returns existing records for the horse and slot at
	// any of the given dates; the pre-flight collision check is built on it.
	FindByHorseSlotDates(ctx context.Context, horseID primitive.ObjectID, slot domain.Slot, dates []time.Time) ([]domain.CalendarRecord, error)
	GetByHorseAndRange(ctx context.Context, horseID primitive.ObjectID, from, to time.Time) ([]domain.CalendarRecord, error)
	Update(ctx context.Context, record *domain.CalendarRecord) error
	DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error)
	GetIDsByPlanID(ctx context.Context, planID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// SessionLogRepository defines the interface for interacting with session logs.
type SessionLogRepository interface {
	Create(ctx context.Context, log *domain.SessionLog) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionLog, error)
	GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.SessionLog, error)
	// ClearCalendarRefs nulls the calendarRecordId back-reference on every log
	// pointing at one of the given records. Logs are history; they are never
	// deleted when the plan that scheduled them goes away.
	ClearCalendarRefs(ctx context.Context, recordIDs []primitive.ObjectID) (int64, error)
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
}
