package memory

import (
	"context"
	"time"

	"ridehub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ignoredRideRepository struct {
	store *Store
}

func (r *ignoredRideRepository) Create(ctx context.Context, record *models.IgnoredRide) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	cp := *record
	r.store.ignored = append(r.store.ignored, &cp)
	return nil
}

func (r *ignoredRideRepository) ListByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.IgnoredRide, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := make([]*models.IgnoredRide, 0)
	for i := len(r.store.ignored) - 1; i >= 0; i-- {
		if rec := r.store.ignored[i]; rec.Driver == driverID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	return records, nil
}
