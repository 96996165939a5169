package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentRequestStatus type for the request lifecycle. Transitions out of
// pending are terminal: a responded request is never re-responded.
type AssignmentRequestStatus string

const (
	RequestPending  AssignmentRequestStatus = "pending"
	RequestAccepted AssignmentRequestStatus = "accepted"
	RequestRejected AssignmentRequestStatus = "rejected"
)

// AssignmentRequest is a client's request to be coached by a specific trainer.
// A client may have at most one pending request per trainer at a time; history
// of responded requests is retained.
type AssignmentRequest struct {
	ID        primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID      `bson:"clientId" json:"clientId"`
	TrainerID primitive.ObjectID      `bson:"trainerId" json:"trainerId"`
	Status    AssignmentRequestStatus `bson:"status" json:"status"`
	Message   string                  `bson:"message,omitempty" json:"message,omitempty"` // From the client
	Reason    string                  `bson:"reason,omitempty" json:"reason,omitempty"`   // Trainer's response reason

	RespondedAt *time.Time          `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	RespondedBy *primitive.ObjectID `bson:"respondedBy,omitempty" json:"respondedBy,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsPending reports whether the request can still be responded to.
func (r *AssignmentRequest) IsPending() bool {
	return r.Status == RequestPending
}
