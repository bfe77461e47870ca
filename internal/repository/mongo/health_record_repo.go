package mongo

import (
	"context"
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const healthRecordCollectionName = "health_records"

// mongoHealthRecordRepository implements repository.HealthRecordRepository
type mongoHealthRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoHealthRecordRepository creates a new HealthRecord repository.
func NewMongoHealthRecordRepository(db *mongo.Database) repository.HealthRecordRepository {
	return &mongoHealthRecordRepository{
		collection: db.Collection(healthRecordCollectionName),
	}
}

// Create inserts a new health record.
func (r *mongoHealthRecordRepository) Create(ctx context.Context, record *domain.HealthRecord) (primitive.ObjectID, error) {
	if record.HorseID == primitive.NilObjectID || record.Type == "" {
		return primitive.NilObjectID, errors.New("health record requires horseId and type")
	}
	record.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted record ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single health record.
func (r *mongoHealthRecordRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.HealthRecord, error) {
	var record domain.HealthRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetByHorseID retrieves all health records for a horse, newest event first.
func (r *mongoHealthRecordRepository) GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.HealthRecord, error) {
	var records []domain.HealthRecord
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"horseId": horseID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Update saves the editable fields of a health record.
func (r *mongoHealthRecordRepository) Update(ctx context.Context, record *domain.HealthRecord) error {
	if record.ID == primitive.NilObjectID {
		return errors.New("health record ID is required for update")
	}

	updateDoc := bson.M{
		"$set": bson.M{
			"type":                record.Type,
			"date":                record.Date,
			"description":         record.Description,
			"attachmentObjectKey": record.AttachmentObjectKey,
			"updatedAt":           time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": record.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a single health record.
func (r *mongoHealthRecordRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByHorseID removes all health records for a horse (horse deletion cascade).
func (r *mongoHealthRecordRepository) DeleteByHorseID(ctx context.Context, horseID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"horseId": horseID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureHealthRecordIndexes creates necessary indexes. Call during startup.
func EnsureHealthRecordIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "horseId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
