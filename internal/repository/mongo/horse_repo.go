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

const horseCollectionName = "horses"

// mongoHorseRepository implements repository.HorseRepository
type mongoHorseRepository struct {
	collection *mongo.Collection
}

// NewMongoHorseRepository creates a new Horse repository.
func NewMongoHorseRepository(db *mongo.Database) repository.HorseRepository {
	return &mongoHorseRepository{
		collection: db.Collection(horseCollectionName),
	}
}

// Create inserts a new horse.
func (r *mongoHorseRepository) Create(ctx context.Context, horse *domain.Horse) (primitive.ObjectID, error) {
	if horse.OwnerID == primitive.NilObjectID || horse.Name == "" {
		return primitive.NilObjectID, errors.New("horse requires ownerId and name")
	}
	horse.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	horse.CreatedAt = now
	horse.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, horse)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted horse ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single horse by its ID.
func (r *mongoHorseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Horse, error) {
	var horse domain.Horse
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&horse)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &horse, nil
}

// GetByOwnerID retrieves all horses owned by a manager, newest first.
func (r *mongoHorseRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Horse, error) {
	var horses []domain.Horse
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &horses); err != nil {
		return nil, err
	}
	return horses, nil
}

// GetSharedWithRider retrieves horses a rider has been granted access to.
func (r *mongoHorseRepository) GetSharedWithRider(ctx context.Context, riderID primitive.ObjectID) ([]domain.Horse, error) {
	var horses []domain.Horse
	cursor, err := r.collection.Find(ctx, bson.M{"riderIds": riderID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &horses); err != nil {
		return nil, err
	}
	return horses, nil
}

// Update saves the editable fields of a horse.
func (r *mongoHorseRepository) Update(ctx context.Context, horse *domain.Horse) error {
	if horse.ID == primitive.NilObjectID {
		return errors.New("horse ID is required for update")
	}

	filter := bson.M{"_id": horse.ID}
	// OwnerID and CreatedAt are deliberately not updatable here.
	updateDoc := bson.M{
		"$set": bson.M{
			"name":           horse.Name,
			"breed":          horse.Breed,
			"yearOfBirth":    horse.YearOfBirth,
			"sex":            horse.Sex,
			"notes":          horse.Notes,
			"photoObjectKey": horse.PhotoObjectKey,
			"updatedAt":      time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a horse, scoped to its owner.
func (r *mongoHorseRepository) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	if id == primitive.NilObjectID || ownerID == primitive.NilObjectID {
		return errors.New("horse ID and owner ID are required for deletion")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddRider grants a rider access to a horse.
func (r *mongoHorseRepository) AddRider(ctx context.Context, horseID, riderID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"riderIds": riderID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": horseID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureHorseIndexes creates necessary indexes. Call during startup.
func EnsureHorseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "riderIds", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
