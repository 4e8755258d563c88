package memory

import (
	"context"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type driverRepository struct {
	store *Store
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.drivers {
		if existing.UserID == driver.UserID {
			return fmt.Errorf("failed to create driver: user %s already has a profile", driver.UserID.Hex())
		}
	}

	now := time.Now()
	driver.ID = primitive.NewObjectID()
	driver.CreatedAt = now
	driver.UpdatedAt = now
	r.store.drivers[driver.ID] = copyDriver(driver)
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	driver, ok := r.store.drivers[id]
	if !ok {
		return nil, fmt.Errorf("driver %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return copyDriver(driver), nil
}

func (r *driverRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, driver := range r.store.drivers {
		if driver.UserID == userID {
			return copyDriver(driver), nil
		}
	}
	return nil, fmt.Errorf("driver for user %s: %w", userID.Hex(), utils.ErrDocumentNotFound)
}

func (r *driverRepository) AddRedeemPoints(ctx context.Context, id primitive.ObjectID, points int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	driver, ok := r.store.drivers[id]
	if !ok {
		return fmt.Errorf("driver %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	driver.RedeemPoints += points
	driver.UpdatedAt = time.Now()
	return nil
}
