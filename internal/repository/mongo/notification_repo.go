package mongo

import (
	"context"
	"errors"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationCollectionName = "notifications"

// mongoNotificationRepository implements repository.NotificationRepository
type mongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new Notification repository backed by MongoDB.
func NewMongoNotificationRepository(db *mongo.Database) repository.NotificationRepository {
	return &mongoNotificationRepository{
		collection: db.Collection(notificationCollectionName),
	}
}

// Create inserts a new notification.
func (r *mongoNotificationRepository) Create(ctx context.Context, n *domain.Notification) (primitive.ObjectID, error) {
	if n.RecipientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("notification requires recipientId")
	}

	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	n.IsRead = false
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}

	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted notification ID")
	}
	return insertedID, nil
}

// GetByID retrieves a notification by its ID.
func (r *mongoNotificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Notification, error) {
	var n domain.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListByRecipient retrieves a recipient's notifications, newest first.
func (r *mongoNotificationRepository) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error) {
	filter := bson.M{"recipientId": recipientID}
	if unreadOnly {
		filter["isRead"] = false
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	if offset > 0 {
		findOptions.SetSkip(offset)
	}

	var notifications []domain.Notification
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips a notification to read. Idempotent: a second call matches the
// document but changes nothing, and neither call is an error. The recipient
// filter keeps users from marking someone else's notification.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "recipientId": recipientID}
	update := bson.M{"$set": bson.M{"isRead": true}}

	// Only stamp readAt on the first transition.
	var existing domain.Notification
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}
	if existing.IsRead {
		return nil
	}

	now := time.Now().UTC()
	update = bson.M{"$set": bson.M{"isRead": true, "readAt": now}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a recipient as read.
func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	filter := bson.M{"recipientId": recipientID, "isRead": false}
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// Delete removes a notification owned by the recipient.
func (r *mongoNotificationRepository) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "recipientId": recipientID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureNotificationIndexes creates necessary indexes for the notifications collection.
func EnsureNotificationIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "recipientId", Value: 1}, {Key: "isRead", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
