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

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection("drivers"),
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	now := time.Now()
	driver.ID = primitive.NewObjectID()
	driver.CreatedAt = now
	driver.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *driverRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *driverRepository) AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"redeem_points": points},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update driver points: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("driver %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return nil
}

func (r *driverRepository) findOne(ctx context.Context, filter bson.M) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, filter).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("driver: %w", utils.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &driver, nil
}
