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

const sessionLogCollectionName = "session_logs"

// mongoSessionLogRepository implements repository.SessionLogRepository
type mongoSessionLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionLogRepository creates a new SessionLog repository.
func NewMongoSessionLogRepository(db *mongo.Database) repository.SessionLogRepository {
	return &mongoSessionLogRepository{
		collection: db.Collection(sessionLogCollectionName),
	}
}

// Create inserts a new session log.
func (r *mongoSessionLogRepository) Create(ctx context.Context, log *domain.SessionLog) (primitive.ObjectID, error) {
	if log.HorseID == primitive.NilObjectID || log.RiderID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session log requires horseId and riderId")
	}
	log.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted log ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session log.
func (r *mongoSessionLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionLog, error) {
	var log domain.SessionLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// GetByHorseID retrieves all logs for a horse, newest first.
func (r *mongoSessionLogRepository) GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.SessionLog, error) {
	var logs []domain.SessionLog
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"horseId": horseID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ClearCalendarRefs nulls back-references on logs pointing at the given
// records. Deleting a plan must never delete or cascade into history.
func (r *mongoSessionLogRepository) ClearCalendarRefs(ctx context.Context, recordIDs []primitive.ObjectID) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	filter := bson.M{"calendarRecordId": bson.M{"$in": recordIDs}}
	update := bson.M{
		"$unset": bson.M{"calendarRecordId": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureSessionLogIndexes creates necessary indexes. Call during startup.
func EnsureSessionLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "horseId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "calendarRecordId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
