package interfaces

import (
	"context"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)

	// AddRedeemPoints adjusts the driver's points; negative values deduct.
	AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error
}
