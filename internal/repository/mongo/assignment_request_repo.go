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

const assignmentRequestCollectionName = "assignment_requests"

// mongoAssignmentRequestRepository implements repository.AssignmentRequestRepository
type mongoAssignmentRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRequestRepository creates a new AssignmentRequest repository backed by MongoDB.
func NewMongoAssignmentRequestRepository(db *mongo.Database) repository.AssignmentRequestRepository {
	return &mongoAssignmentRequestRepository{
		collection: db.Collection(assignmentRequestCollectionName),
	}
}

// Create inserts a new pending assignment request. The partial unique index on
// pending (clientId, trainerId) pairs turns a concurrent duplicate submission
// into ErrDuplicate instead of a second pending row.
func (r *mongoAssignmentRequestRepository) Create(ctx context.Context, req *domain.AssignmentRequest) (primitive.ObjectID, error) {
	if req.ClientID == primitive.NilObjectID || req.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment request requires clientId and trainerId")
	}

	req.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.RequestPending
	}

	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		if isDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted request ID")
	}
	return insertedID, nil
}

// GetByID retrieves an assignment request by its ID.
func (r *mongoAssignmentRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AssignmentRequest, error) {
	var req domain.AssignmentRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetPendingByClientAndTrainer finds the pending request for a (client, trainer) pair, if any.
func (r *mongoAssignmentRequestRepository) GetPendingByClientAndTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) (*domain.AssignmentRequest, error) {
	var req domain.AssignmentRequest
	filter := bson.M{
		"clientId":  clientID,
		"trainerId": trainerID,
		"status":    domain.RequestPending,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Respond persists the response fields of a request. The status filter makes
// the pending-to-responded transition a compare-and-set: a request that already
// left pending never matches, so two racing responders cannot both win.
func (r *mongoAssignmentRequestRepository) Respond(ctx context.Context, req *domain.AssignmentRequest) error {
	if req.ID == primitive.NilObjectID {
		return errors.New("request ID is required for respond")
	}

	filter := bson.M{"_id": req.ID, "status": domain.RequestPending}
	updateFields := bson.M{
		"status":    req.Status,
		"reason":    req.Reason,
		"updatedAt": time.Now().UTC(),
	}
	if req.RespondedAt != nil {
		updateFields["respondedAt"] = *req.RespondedAt
	}
	if req.RespondedBy != nil {
		updateFields["respondedBy"] = *req.RespondedBy
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": updateFields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing request from one already responded to.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": req.ID})
		if countErr == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}
	return nil
}

// ListByTrainerID retrieves all requests targeting a trainer, newest first.
func (r *mongoAssignmentRequestRepository) ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	return r.list(ctx, bson.M{"trainerId": trainerID})
}

// ListByClientID retrieves all requests submitted by a client, newest first.
func (r *mongoAssignmentRequestRepository) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	return r.list(ctx, bson.M{"clientId": clientID})
}

func (r *mongoAssignmentRequestRepository) list(ctx context.Context, filter bson.M) ([]domain.AssignmentRequest, error) {
	var requests []domain.AssignmentRequest
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// EnsureAssignmentRequestIndexes creates necessary indexes for the assignment_requests collection.
func EnsureAssignmentRequestIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one pending request per (client, trainer). Partial so
			// responded history rows don't collide.
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "trainerId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.RequestPending}),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
