package interfaces

import (
	"context"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RiderRepository interface {
	Create(ctx context.Context, rider *models.Rider) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error)

	// ConsumeFreeRide decrements the free-ride counter unless it is already zero.
	ConsumeFreeRide(ctx context.Context, id primitive.ObjectID) (bool, error)
	RefundFreeRide(ctx context.Context, id primitive.ObjectID) error
	AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error
}
