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

const appliedPlanCollectionName = "applied_plans"

// mongoAppliedPlanRepository implements repository.AppliedPlanRepository
type mongoAppliedPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoAppliedPlanRepository creates a new AppliedPlan repository.
func NewMongoAppliedPlanRepository(db *mongo.Database) repository.AppliedPlanRepository {
	return &mongoAppliedPlanRepository{
		collection: db.Collection(appliedPlanCollectionName),
	}
}

// Create inserts a new applied plan.
func (r *mongoAppliedPlanRepository) Create(ctx context.Context, plan *domain.AppliedPlan) (primitive.ObjectID, error) {
	if plan.HorseID == primitive.NilObjectID || plan.ScheduleID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan requires horseId and scheduleId")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single applied plan.
func (r *mongoAppliedPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error) {
	var plan domain.AppliedPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByHorseID retrieves all plans ever applied to a horse, newest first.
func (r *mongoAppliedPlanRepository) GetByHorseID(ctx context.Context, horseID primitive.ObjectID) ([]domain.AppliedPlan, error) {
	var plans []domain.AppliedPlan
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"horseId": horseID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateStatus moves a plan out of the active state. Terminal states are
// final: the filter only matches active plans, so completed/cancelled plans
// report ErrConflict rather than transitioning again.
func (r *mongoAppliedPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	filter := bson.M{"_id": id, "status": domain.PlanActive}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		var exists domain.AppliedPlan
		err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exists)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

// Delete removes an applied plan row. Work items and calendar records are the
// service layer's responsibility, inside the same transaction.
func (r *mongoAppliedPlanRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAppliedPlanIndexes creates necessary indexes. Call during startup.
func EnsureAppliedPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "horseId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "scheduleId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
