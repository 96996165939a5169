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

const userCollectionName = "users"

// mongoUserRepository implements repository.UserRepository
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new User repository backed by MongoDB.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user requires email and role")
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if isDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted user ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves a user by email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by its ID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetClientsByTrainerID retrieves all clients whose assignedTrainer pointer is the trainer.
func (r *mongoUserRepository) GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	var clients []domain.User
	filter := bson.M{"role": domain.RoleClient, "assignedTrainer": trainerID}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

// SetTrainerApproval flips a trainer's isApproved flag.
func (r *mongoUserRepository) SetTrainerApproval(ctx context.Context, trainerID primitive.ObjectID, approved bool) error {
	filter := bson.M{"_id": trainerID, "role": domain.RoleTrainer}
	update := bson.M{"$set": bson.M{
		"isApproved": approved,
		"updatedAt":  time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CommitAssignedTrainer is the single write path for the assignedTrainer pointer.
// The filter includes the expected assignment version so two racing approval paths
// cannot both win; the loser gets ErrVersionConflict and must re-read.
func (r *mongoUserRepository) CommitAssignedTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64) error {
	filter := bson.M{"_id": clientID, "assignmentVersion": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"assignedTrainer": trainerID,
			"updatedAt":       time.Now().UTC(),
		},
		"$inc": bson.M{"assignmentVersion": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing client from a stale version.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": clientID})
		if countErr == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}
	return nil
}

// CommitAssignedTrainerWithChangeRequest folds the pointer swap and the
// change-request stamp into one UpdateOne under the same version guard, so a
// failure cannot leave the swap committed with the request still pending.
func (r *mongoUserRepository) CommitAssignedTrainerWithChangeRequest(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64, req *domain.TrainerChangeRequest) error {
	filter := bson.M{"_id": clientID, "assignmentVersion": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"assignedTrainer":      trainerID,
			"trainerChangeRequest": req,
			"updatedAt":            time.Now().UTC(),
		},
		"$inc": bson.M{"assignmentVersion": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": clientID})
		if countErr == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}
	return nil
}

// SetChangeRequest replaces the client's embedded legacy change-request slot.
func (r *mongoUserRepository) SetChangeRequest(ctx context.Context, clientID primitive.ObjectID, req *domain.TrainerChangeRequest) error {
	filter := bson.M{"_id": clientID}
	update := bson.M{"$set": bson.M{
		"trainerChangeRequest": req,
		"updatedAt":            time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index(),
		},
		{
			// Trainer dashboards list their clients through this.
			Keys:    bson.D{{Key: "assignedTrainer", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
