package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType categorizes what caused a notification.
type NotificationType string

const (
	NotificationComplianceMiss     NotificationType = "compliance-miss"
	NotificationTrainerAlert       NotificationType = "trainer-alert"
	NotificationRelationshipChange NotificationType = "relationship-change"
	NotificationMessage            NotificationType = "message"
	NotificationSystem             NotificationType = "system"
)

// NotificationPriority for client-side ordering/highlighting.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is a persisted alert for one recipient. Created exclusively by
// the dispatcher; mutated only by read-state transitions; retained indefinitely.
// Lifecycle: created -> unread -> read. Marking an already-read notification
// read again is a no-op.
type Notification struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID   `bson:"recipientId" json:"recipientId"`
	Type        NotificationType     `bson:"type" json:"type"`
	Title       string               `bson:"title" json:"title"`
	Message     string               `bson:"message" json:"message"`
	Priority    NotificationPriority `bson:"priority" json:"priority"`

	IsRead bool       `bson:"isRead" json:"isRead"`
	ReadAt *time.Time `bson:"readAt,omitempty" json:"readAt,omitempty"`

	// Optional references back to what caused the notification.
	ActorID   *primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"`
	ProgramID *primitive.ObjectID `bson:"programId,omitempty" json:"programId,omitempty"`
	RecordID  *primitive.ObjectID `bson:"recordId,omitempty" json:"recordId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
