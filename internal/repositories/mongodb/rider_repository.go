package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type riderRepository struct {
	collection *mongo.Collection
}

func NewRiderRepository(db *mongo.Database) interfaces.RiderRepository {
	return &riderRepository{
		collection: db.Collection("riders"),
	}
}

func (r *riderRepository) Create(ctx context.Context, rider *models.Rider) error {
	now := time.Now()
	rider.ID = primitive.NewObjectID()
	rider.CreatedAt = now
	rider.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, rider); err != nil {
		return fmt.Errorf("failed to create rider: %w", err)
	}
	return nil
}

func (r *riderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *riderRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *riderRepository) ConsumeFreeRide(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "free_rides_remaining": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"free_rides_remaining": -1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume free ride: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *riderRepository) RefundFreeRide(ctx context.Context, id primitive.ObjectID) error {
	return r.increment(ctx, id, "free_rides_remaining", 1)
}

func (r *riderRepository) AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error {
	return r.increment(ctx, id, "redeem_points", points)
}

func (r *riderRepository) findOne(ctx context.Context, filter bson.M) (*models.Rider, error) {
	var rider models.Rider
	err := r.collection.FindOne(ctx, filter).Decode(&rider)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("rider: %w", utils.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get rider: %w", err)
	}
	return &rider, nil
}

func (r *riderRepository) increment(ctx context.Context, id primitive.ObjectID, field string, delta int64) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{field: delta},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update rider %s: %w", field, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("rider %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return nil
}
