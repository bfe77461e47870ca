package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Horse represents a single horse in a manager's stable.
type Horse struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"` // The manager who owns this record
	Name        string             `bson:"name" json:"name"`
	Breed       string             `bson:"breed,omitempty" json:"breed,omitempty"`
	YearOfBirth int                `bson:"yearOfBirth,omitempty" json:"yearOfBirth,omitempty"`
	Sex         string             `bson:"sex,omitempty" json:"sex,omitempty"` // e.g., "mare", "gelding", "stallion"
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`

	// Key of the horse's photo in the S3 bucket. The actual file resides in S3.
	PhotoObjectKey string `bson:"photoObjectKey,omitempty" json:"-"`

	// Riders granted access to this horse's calendar and logs.
	RiderIDs []primitive.ObjectID `bson:"riderIds,omitempty" json:"riderIds,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
