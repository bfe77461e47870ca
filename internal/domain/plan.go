package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus type for the applied-plan lifecycle. Completed and cancelled are
// terminal; a plan never returns to active.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

// IsTerminal reports whether a status admits no further transitions.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanCancelled
}

// Slot splits a calendar day into a morning and an afternoon session.
type Slot string

const (
	SlotAM Slot = "AM"
	SlotPM Slot = "PM"
)

// AppliedPlan is one instantiation of a published Schedule onto one horse,
// anchored at a concrete start date (conventionally a Monday).
type AppliedPlan struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	HorseID         primitive.ObjectID  `bson:"horseId" json:"horseId"`
	ScheduleID      primitive.ObjectID  `bson:"scheduleId" json:"scheduleId"`
	ScheduleVersion int                 `bson:"scheduleVersion" json:"scheduleVersion"`
	SourcePlanID    *primitive.ObjectID `bson:"sourcePlanId,omitempty" json:"sourcePlanId,omitempty"` // Provenance for repeats, never a cascade target
	StartDate       time.Time           `bson:"startDate" json:"startDate"`                           // UTC midnight
	Status          PlanStatus          `bson:"status" json:"status"`
	CreatedBy       primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// WorkItem is the per-day-entry record inside an applied plan. BaselineData is
// the entry as applied and never changes; CurrentData starts equal to it and
// diverges when the item is edited in place. Amended repeats are rebuilt from
// CurrentData, reset-to-baseline from BaselineData.
type WorkItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID        primitive.ObjectID `bson:"planId" json:"planId"`
	HorseID       primitive.ObjectID `bson:"horseId" json:"horseId"` // Denormalized for easier queries
	Week          int                `bson:"week" json:"week"`
	Day           int                `bson:"day" json:"day"`
	ScheduledDate *time.Time         `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"` // Nil means not yet placed on the calendar
	Slot          Slot               `bson:"slot" json:"slot"`
	IsRest        bool               `bson:"isRest" json:"isRest"`
	BaselineData  DayEntry           `bson:"baselineData" json:"baselineData"`
	CurrentData   DayEntry           `bson:"currentData" json:"currentData"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CalendarRecord is the flat, date-anchored projection of a WorkItem that the
// day-by-day planner grid reads. It is created in the same transaction as its
// work item and re-projected on edit, never modified independently.
type CalendarRecord struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	HorseID         primitive.ObjectID  `bson:"horseId" json:"horseId"`
	PlanID          *primitive.ObjectID `bson:"planId,omitempty" json:"planId,omitempty"`
	WorkItemID      *primitive.ObjectID `bson:"workItemId,omitempty" json:"workItemId,omitempty"`
	Date            time.Time           `bson:"date" json:"date"` // UTC midnight
	Slot            Slot                `bson:"slot" json:"slot"`
	Label           string              `bson:"label" json:"label"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	DurationMinutes *int                `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	IntensityRpe    *int                `bson:"intensityRpe,omitempty" json:"intensityRpe,omitempty"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}
