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

const calendarRecordCollectionName = "calendar_records"

// mongoCalendarRecordRepository implements repository.CalendarRecordRepository
type mongoCalendarRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoCalendarRecordRepository creates a new CalendarRecord repository.
func NewMongoCalendarRecordRepository(db *mongo.Database) repository.CalendarRecordRepository {
	return &mongoCalendarRecordRepository{
		collection: db.Collection(calendarRecordCollectionName),
	}
}

// Create inserts a new calendar record. The unique (horseId, slot, date) index
// makes this the final arbiter of double booking: two racing applies can both
// pass the pre-flight read, but only one insert wins.
func (r *mongoCalendarRecordRepository) Create(ctx context.Context, record *domain.CalendarRecord) (primitive.ObjectID, error) {
	if record.HorseID == primitive.NilObjectID || record.Label == "" {
		return primitive.NilObjectID, errors.New("calendar record requires horseId and label")
	}
	record.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted record ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single calendar record.
func (r *mongoCalendarRecordRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarRecord, error) {
	var record domain.CalendarRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetByWorkItemID retrieves the record projected from a given work item.
func (r *mongoCalendarRecordRepository) GetByWorkItemID(ctx context.Context, workItemID primitive.ObjectID) (*domain.CalendarRecord, error) {
	var record domain.CalendarRecord
	err := r.collection.FindOne(ctx, bson.M{"workItemId": workItemID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByHorseSlotDates returns existing records for the horse/slot at exactly
// the given dates. Used by the scheduler's pre-flight collision check.
func (r *mongoCalendarRecordRepository) FindByHorseSlotDates(ctx context.Context, horseID primitive.ObjectID, slot domain.Slot, dates []time.Time) ([]domain.CalendarRecord, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"horseId": horseID,
		"slot":    slot,
		"date":    bson.M{"$in": dates},
	}

	var records []domain.CalendarRecord
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByHorseAndRange retrieves records for the planner grid, ordered by date then slot.
func (r *mongoCalendarRecordRepository) GetByHorseAndRange(ctx context.Context, horseID primitive.ObjectID, from, to time.Time) ([]domain.CalendarRecord, error) {
	filter := bson.M{
		"horseId": horseID,
		"date":    bson.M{"$gte": from, "$lte": to},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "slot", Value: 1}})

	var records []domain.CalendarRecord
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Update rewrites the projected fields of a record (after a work-item edit).
func (r *mongoCalendarRecordRepository) Update(ctx context.Context, record *domain.CalendarRecord) error {
	if record.ID == primitive.NilObjectID {
		return errors.New("calendar record ID is required for update")
	}

	updateDoc := bson.M{
		"$set": bson.M{
			"label":           record.Label,
			"description":     record.Description,
			"durationMinutes": record.DurationMinutes,
			"intensityRpe":    record.IntensityRpe,
			"notes":           record.Notes,
			"updatedAt":       time.Now().UTC(),
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

// GetIDsByPlanID lists the record IDs of a plan, used to null session-log
// back-references before the records themselves are deleted.
func (r *mongoCalendarRecordRepository) GetIDsByPlanID(ctx context.Context, planID primitive.ObjectID) ([]primitive.ObjectID, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// DeleteByPlanID removes all records of a plan.
func (r *mongoCalendarRecordRepository) DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureCalendarRecordIndexes creates necessary indexes. Call during startup.
// The unique compound index is load-bearing: it is the store-side guarantee
// behind the no-double-booking invariant.
func EnsureCalendarRecordIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "horseId", Value: 1}, {Key: "slot", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "workItemId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
