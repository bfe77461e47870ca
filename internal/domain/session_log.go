package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionLog is an execution log a rider files for a ridden session, usually
// against a calendar record. Logs outlive the plan that scheduled them: when a
// plan is deleted the CalendarRecordID back-reference is nulled, never cascaded.
type SessionLog struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	HorseID          primitive.ObjectID  `bson:"horseId" json:"horseId"`
	RiderID          primitive.ObjectID  `bson:"riderId" json:"riderId"`
	CalendarRecordID *primitive.ObjectID `bson:"calendarRecordId,omitempty" json:"calendarRecordId,omitempty"`
	Date             time.Time           `bson:"date" json:"date"`
	DurationMinutes  *int                `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Rpe              *int                `bson:"rpe,omitempty" json:"rpe,omitempty"`
	Notes            string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}
