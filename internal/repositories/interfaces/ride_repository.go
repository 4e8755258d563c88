package interfaces

import (
	"context"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Transition applies a conditional status update and returns the updated
	// ride. applied is false when no ride matched the transition's filter.
	Transition(ctx context.Context, id primitive.ObjectID, transition models.RideTransition) (ride *models.Ride, applied bool, err error)

	// CancelRequestedByRider moves every requested ride of a rider profile to canceled.
	CancelRequestedByRider(ctx context.Context, riderID primitive.ObjectID) (int64, error)

	// Expanded reads
	GetDetails(ctx context.Context, id primitive.ObjectID) (*models.RideDetails, error)
	ListDetails(ctx context.Context) ([]*models.RideDetails, error)

	// Candidate rides for a driver
	ListRequested(ctx context.Context, vehicleType string, exclude []primitive.ObjectID) ([]*models.Ride, error)
}
