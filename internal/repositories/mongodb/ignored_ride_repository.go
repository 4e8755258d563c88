package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ignoredRideRepository struct {
	collection *mongo.Collection
}

func NewIgnoredRideRepository(db *mongo.Database) interfaces.IgnoredRideRepository {
	return &ignoredRideRepository{
		collection: db.Collection("ignored_rides"),
	}
}

func (r *ignoredRideRepository) Create(ctx context.Context, record *models.IgnoredRide) error {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to create ignored ride: %w", err)
	}
	return nil
}

func (r *ignoredRideRepository) ListByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.IgnoredRide, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"driver": driverID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ignored rides: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*models.IgnoredRide, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ignored rides: %w", err)
	}
	return records, nil
}
