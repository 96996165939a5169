package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userChannelPrefix is the pub/sub channel namespace; a gateway holding the
// user's websocket subscribes to user:{id} and forwards messages.
const userChannelPrefix = "user:"

// envelope is the wire shape published to the user channel.
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// redisPusher implements Pusher using Redis pub/sub.
type redisPusher struct {
	rdb *redis.Client
}

// NewRedisPusher creates a Pusher publishing to per-user Redis channels.
func NewRedisPusher(rdb *redis.Client) Pusher {
	return &redisPusher{rdb: rdb}
}

// PushToUser publishes the event to the user's channel. A publish with zero
// subscribers is still a success: the user simply has no active connection.
func (p *redisPusher) PushToUser(ctx context.Context, userID primitive.ObjectID, event string, payload interface{}) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	if err := p.rdb.Publish(ctx, userChannelPrefix+userID.Hex(), data).Err(); err != nil {
		return fmt.Errorf("publish to user channel: %w", err)
	}
	return nil
}
