package realtime

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pusher delivers real-time events to a user's active connections.
//
// Delivery is best-effort with no guarantee: a returned error means the push
// channel failed, and callers log and swallow it. State transitions that
// trigger a push must never depend on push availability.
type Pusher interface {
	PushToUser(ctx context.Context, userID primitive.ObjectID, event string, payload interface{}) error
}

// Event names pushed over the channel.
const (
	EventComplianceMiss     = "compliance:miss"
	EventTrainerAlert       = "compliance:trainer-alert"
	EventRelationshipChange = "relationship:change"
	EventNotification       = "notification:new"
)
