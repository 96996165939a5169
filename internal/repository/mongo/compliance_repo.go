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

const complianceCollectionName = "compliance_records"

// mongoComplianceRepository implements repository.ComplianceRepository
type mongoComplianceRepository struct {
	collection *mongo.Collection
}

// NewMongoComplianceRepository creates a new Compliance repository backed by MongoDB.
func NewMongoComplianceRepository(db *mongo.Database) repository.ComplianceRepository {
	return &mongoComplianceRepository{
		collection: db.Collection(complianceCollectionName),
	}
}

// Create inserts a new compliance record. For daily-status records the partial
// unique index on (clientId, programId, sessionId, completedAt) turns a racing
// double-create for the same calendar day into ErrDuplicate.
func (r *mongoComplianceRepository) Create(ctx context.Context, record *domain.ComplianceRecord) (primitive.ObjectID, error) {
	if record.ClientID == primitive.NilObjectID ||
		record.ProgramID == primitive.NilObjectID ||
		record.SessionID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("compliance record requires clientId, programId and sessionId")
	}

	record.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Source == "" {
		record.Source = domain.SourceDaily
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if isDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted record ID")
	}
	return insertedID, nil
}

// GetByID retrieves a compliance record by its ID.
func (r *mongoComplianceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceRecord, error) {
	var record domain.ComplianceRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindDaily looks up the daily-status record covering one calendar day.
// Full session logs are excluded; they have no per-day uniqueness contract.
func (r *mongoComplianceRepository) FindDaily(ctx context.Context, clientID, programID, sessionID primitive.ObjectID, day time.Time) (*domain.ComplianceRecord, error) {
	var record domain.ComplianceRecord
	filter := bson.M{
		"clientId":    clientID,
		"programId":   programID,
		"sessionId":   sessionID,
		"completedAt": day.UTC().Truncate(24 * time.Hour),
		"source":      domain.SourceDaily,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Update persists the mutable status fields of a record.
func (r *mongoComplianceRepository) Update(ctx context.Context, record *domain.ComplianceRecord) error {
	if record.ID == primitive.NilObjectID {
		return errors.New("record ID is required for update")
	}

	filter := bson.M{"_id": record.ID}
	update := bson.M{"$set": bson.M{
		"isCompleted":         record.IsCompleted,
		"nonCompletionReason": record.NonCompletionReason,
		"nonCompletionNotes":  record.NonCompletionNotes,
		"results":             record.Results,
		"updatedAt":           time.Now().UTC(),
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

// SetProofRef attaches the proof-image object key to a record.
func (r *mongoComplianceRepository) SetProofRef(ctx context.Context, id primitive.ObjectID, proofRef string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"proofRef":  proofRef,
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

// ListByClient retrieves a client's records, newest day first, applying the filter.
func (r *mongoComplianceRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID, filter repository.ComplianceFilter) ([]domain.ComplianceRecord, error) {
	query := bson.M{"clientId": clientID}
	if filter.ProgramID != nil {
		query["programId"] = *filter.ProgramID
	}
	if filter.TrainerID != nil {
		query["trainerId"] = *filter.TrainerID
	}
	if filter.Week != nil {
		query["week"] = *filter.Week
	}
	if filter.DayOfWeek != nil {
		query["dayOfWeek"] = *filter.DayOfWeek
	}
	if filter.Completed != nil {
		query["isCompleted"] = *filter.Completed
	}
	if filter.From != nil || filter.To != nil {
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = filter.From.UTC().Truncate(24 * time.Hour)
		}
		if filter.To != nil {
			dateRange["$lte"] = filter.To.UTC().Truncate(24 * time.Hour)
		}
		query["completedAt"] = dateRange
	}

	var records []domain.ComplianceRecord
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}, {Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureComplianceIndexes creates necessary indexes for the compliance_records collection.
func EnsureComplianceIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One daily-status record per (client, program, session, calendar day).
			// Partial on source so full session logs may repeat within a day.
			Keys: bson.D{
				{Key: "clientId", Value: 1},
				{Key: "programId", Value: 1},
				{Key: "sessionId", Value: 1},
				{Key: "completedAt", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"source": domain.SourceDaily}),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "completedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "programId", Value: 1}, {Key: "week", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
