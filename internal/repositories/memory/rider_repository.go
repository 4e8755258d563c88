package memory

import (
	"context"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type riderRepository struct {
	store *Store
}

func (r *riderRepository) Create(ctx context.Context, rider *models.Rider) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.riders {
		if existing.UserID == rider.UserID {
			return fmt.Errorf("failed to create rider: user %s already has a profile", rider.UserID.Hex())
		}
	}

	now := time.Now()
	rider.ID = primitive.NewObjectID()
	rider.CreatedAt = now
	rider.UpdatedAt = now
	r.store.riders[rider.ID] = copyRider(rider)
	return nil
}

func (r *riderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rider, ok := r.store.riders[id]
	if !ok {
		return nil, fmt.Errorf("rider %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return copyRider(rider), nil
}

func (r *riderRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, rider := range r.store.riders {
		if rider.UserID == userID {
			return copyRider(rider), nil
		}
	}
	return nil, fmt.Errorf("rider for user %s: %w", userID.Hex(), utils.ErrDocumentNotFound)
}

func (r *riderRepository) ConsumeFreeRide(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rider, ok := r.store.riders[id]
	if !ok || rider.FreeRidesRemaining <= 0 {
		return false, nil
	}
	rider.FreeRidesRemaining--
	rider.UpdatedAt = time.Now()
	return true, nil
}

func (r *riderRepository) RefundFreeRide(ctx context.Context, id primitive.ObjectID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rider, ok := r.store.riders[id]
	if !ok {
		return fmt.Errorf("rider %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	rider.FreeRidesRemaining++
	rider.UpdatedAt = time.Now()
	return nil
}

func (r *riderRepository) AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rider, ok := r.store.riders[id]
	if !ok {
		return fmt.Errorf("rider %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	rider.RedeemPoints += points
	rider.UpdatedAt = time.Now()
	return nil
}
