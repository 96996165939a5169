package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleClient  Role = "client"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// ChangeRequestStatus tracks the lifecycle of the embedded trainer change request.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestRejected ChangeRequestStatus = "rejected"
)

// TrainerChangeRequest is the legacy relationship-change mechanism embedded on the
// client record. It is resolved by an admin, not by the requested trainer, and only
// one may be pending at a time.
type TrainerChangeRequest struct {
	RequestedTrainerID primitive.ObjectID  `bson:"requestedTrainerId" json:"requestedTrainerId"`
	Reason             string              `bson:"reason,omitempty" json:"reason,omitempty"`
	Status             ChangeRequestStatus `bson:"status" json:"status"`
	RequestedAt        time.Time           `bson:"requestedAt" json:"requestedAt"`
	ProcessedAt        *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	ProcessedBy        *primitive.ObjectID `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	AdminReason        string              `bson:"adminReason,omitempty" json:"adminReason,omitempty"`
}

// User represents a user in the system (Client, Trainer or Admin).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Trainer-specific ---
	// Trainers must be approved by an admin before they can be assigned clients.
	IsApproved bool `bson:"isApproved" json:"isApproved"`

	// --- Client-specific ---
	// The active trainer relationship pointer. Both the modern request/accept workflow
	// and the legacy change-request workflow write this field; every write goes through
	// a version-checked commit so a race between the two paths cannot lose an update.
	AssignedTrainerID *primitive.ObjectID `bson:"assignedTrainer,omitempty" json:"assignedTrainer,omitempty"`

	// AssignmentVersion is bumped on every successful assignedTrainer commit.
	AssignmentVersion int64 `bson:"assignmentVersion" json:"-"`

	// The legacy change-request slot. At most one, overwritten when processed.
	TrainerChangeRequest *TrainerChangeRequest `bson:"trainerChangeRequest,omitempty" json:"trainerChangeRequest,omitempty"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPendingChangeRequest reports whether the legacy change-request slot is occupied
// by an unprocessed request.
func (u *User) HasPendingChangeRequest() bool {
	return u.TrainerChangeRequest != nil && u.TrainerChangeRequest.Status == ChangeRequestPending
}
