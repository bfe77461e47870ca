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

const workItemCollectionName = "work_items"

// mongoWorkItemRepository implements repository.WorkItemRepository
type mongoWorkItemRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkItemRepository creates a new WorkItem repository.
func NewMongoWorkItemRepository(db *mongo.Database) repository.WorkItemRepository {
	return &mongoWorkItemRepository{
		collection: db.Collection(workItemCollectionName),
	}
}

// Create inserts a new work item.
func (r *mongoWorkItemRepository) Create(ctx context.Context, item *domain.WorkItem) (primitive.ObjectID, error) {
	if item.PlanID == primitive.NilObjectID || item.HorseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("work item requires planId and horseId")
	}
	item.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted work item ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single work item.
func (r *mongoWorkItemRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkItem, error) {
	var item domain.WorkItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByPlanID retrieves all work items of a plan in (week, day) order.
func (r *mongoWorkItemRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.WorkItem, error) {
	var items []domain.WorkItem
	findOptions := options.Find().SetSort(bson.D{{Key: "week", Value: 1}, {Key: "day", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateCurrentData replaces the mutable snapshot. The baseline snapshot is
// immutable by construction and never written after creation.
func (r *mongoWorkItemRepository) UpdateCurrentData(ctx context.Context, id primitive.ObjectID, data domain.DayEntry) error {
	update := bson.M{
		"$set": bson.M{
			"currentData": data,
			"updatedAt":   time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByPlanID removes all work items of a plan and reports how many went.
func (r *mongoWorkItemRepository) DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureWorkItemIndexes creates necessary indexes. Call during startup.
func EnsureWorkItemIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "week", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "horseId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
