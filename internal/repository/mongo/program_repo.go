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

const programCollectionName = "programs"

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new Program repository backed by MongoDB.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a new program into the database.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.TrainerID == primitive.NilObjectID || program.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("program requires trainerId and clientId")
	}

	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, program)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted program ID")
	}
	return insertedID, nil
}

// GetByID retrieves a program by its ID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	var program domain.Program
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// GetActiveByClientID retrieves the client's currently active program.
func (r *mongoProgramRepository) GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.Program, error) {
	var program domain.Program
	filter := bson.M{"clientId": clientID, "isActive": true}
	err := r.collection.FindOne(ctx, filter).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// GetByClientID retrieves all programs for a client, newest first.
func (r *mongoProgramRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Program, error) {
	var programs []domain.Program
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return programs, nil
}

// ReplaceSessions swaps the session set and re-fixes totalPlanned in one write.
func (r *mongoProgramRepository) ReplaceSessions(ctx context.Context, id primitive.ObjectID, sessions []domain.ScheduledSession, totalPlanned int) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{
		"sessions":              sessions,
		"progress.totalPlanned": totalPlanned,
		"updatedAt":             time.Now().UTC(),
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

// Deactivate soft-deactivates a program.
func (r *mongoProgramRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeactivateActiveByClient deactivates whatever program is currently active for
// the client. Used before activating a replacement program; matching nothing is
// not an error.
func (r *mongoProgramRepository) DeactivateActiveByClient(ctx context.Context, clientID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"clientId": clientID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	return err
}

// SetCurrentWeek updates the program's current week pointer.
func (r *mongoProgramRepository) SetCurrentWeek(ctx context.Context, id primitive.ObjectID, week int) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"currentWeek": week,
		"updatedAt":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementCompleted atomically bumps totalCompleted and stamps the
// last-completed pointer, returning the post-increment document.
func (r *mongoProgramRepository) IncrementCompleted(ctx context.Context, id primitive.ObjectID, last domain.LastCompletedSession) (*domain.Program, error) {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$inc": bson.M{"progress.totalCompleted": 1},
		"$set": bson.M{
			"progress.lastCompletedSession": last,
			"updatedAt":                     time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var program domain.Program
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// SetCompletionRate persists the recomputed completion rate.
func (r *mongoProgramRepository) SetCompletionRate(ctx context.Context, id primitive.ObjectID, rate int) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"progress.completionRate": rate,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProgramIndexes creates necessary indexes for the programs collection.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The active-program lookup on every daily-status write.
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
