package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HealthRecordType categorizes health records for the per-horse health tabs.
type HealthRecordType string

const (
	HealthVaccination HealthRecordType = "vaccination"
	HealthFarrier     HealthRecordType = "farrier"
	HealthVet         HealthRecordType = "vet"
	HealthDental      HealthRecordType = "dental"
	HealthOther       HealthRecordType = "other"
)

// HealthRecord is one dated health event for a horse (vaccination, farrier visit, ...).
type HealthRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HorseID     primitive.ObjectID `bson:"horseId" json:"horseId"`
	Type        HealthRecordType   `bson:"type" json:"type"`
	Date        time.Time          `bson:"date" json:"date"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	// Optional scanned document/photo in S3 (invoice, certificate).
	AttachmentObjectKey string `bson:"attachmentObjectKey,omitempty" json:"-"`

	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
