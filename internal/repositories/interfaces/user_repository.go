package interfaces

import (
	"context"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository holds the account records ride reads expand to. Accounts
// are owned by the account service; this store only mirrors them.
type UserRepository interface {
	// Upsert inserts the user or refreshes its contact fields. Empty
	// fields leave stored values untouched.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
