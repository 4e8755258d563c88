package interfaces

import (
	"context"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IgnoredRideRepository interface {
	Create(ctx context.Context, record *models.IgnoredRide) error
	ListByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.IgnoredRide, error)
}
