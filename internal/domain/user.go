package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleManager Role = "manager"
	RoleRider   Role = "rider"
)

// User represents a user in the system (either a stable Manager or a Rider).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Rider-specific ---
	// Horses this rider has been granted access to by a manager.
	SharedHorseIDs []primitive.ObjectID `bson:"sharedHorseIds,omitempty" json:"sharedHorseIds,omitempty"`
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

func (u *User) IsRider() bool {
	return u.Role == RoleRider
}
