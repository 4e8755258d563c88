package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type rideRepository struct {
	store *Store
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	r.store.rides[ride.ID] = copyRide(ride)
	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ride, ok := r.store.rides[id]
	if !ok {
		return nil, fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return copyRide(ride), nil
}

func (r *rideRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.rides[id]; !ok {
		return fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	delete(r.store.rides, id)
	return nil
}

func (r *rideRepository) Transition(ctx context.Context, id primitive.ObjectID, transition models.RideTransition) (*models.Ride, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ride, ok := r.store.rides[id]
	if !ok || !statusIn(ride.Status, transition.From) {
		return nil, false, nil
	}
	if transition.DriverID != nil && (ride.Driver == nil || *ride.Driver != *transition.DriverID) {
		return nil, false, nil
	}

	now := time.Now()
	ride.Status = transition.To
	ride.UpdatedAt = now
	stampStatus(ride, transition.To, now)
	if transition.SetDriver != nil {
		driver := *transition.SetDriver
		ride.Driver = &driver
	}
	if transition.ClearDriver {
		ride.Driver = nil
	}

	return copyRide(ride), true, nil
}

func (r *rideRepository) CancelRequestedByRider(ctx context.Context, riderID primitive.ObjectID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	var count int64
	for _, ride := range r.store.rides {
		if ride.Rider == riderID && ride.Status == models.RideStatusRequested {
			ride.Status = models.RideStatusCanceled
			ride.UpdatedAt = now
			stampStatus(ride, models.RideStatusCanceled, now)
			count++
		}
	}
	return count, nil
}

func (r *rideRepository) GetDetails(ctx context.Context, id primitive.ObjectID) (*models.RideDetails, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ride, ok := r.store.rides[id]
	if !ok {
		return nil, fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return r.expand(ride), nil
}

func (r *rideRepository) ListDetails(ctx context.Context) ([]*models.RideDetails, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	details := make([]*models.RideDetails, 0, len(r.store.rides))
	for _, ride := range r.sortedRides() {
		details = append(details, r.expand(ride))
	}
	return details, nil
}

func (r *rideRepository) ListRequested(ctx context.Context, vehicleType string, exclude []primitive.ObjectID) ([]*models.Ride, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	skip := make(map[primitive.ObjectID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	rides := make([]*models.Ride, 0)
	for _, ride := range r.sortedRides() {
		if ride.Status != models.RideStatusRequested {
			continue
		}
		if vehicleType != "" && ride.VehicleType != vehicleType {
			continue
		}
		if _, ignored := skip[ride.ID]; ignored {
			continue
		}
		rides = append(rides, copyRide(ride))
	}
	return rides, nil
}

// sortedRides returns rides newest first. Callers hold the read lock.
func (r *rideRepository) sortedRides() []*models.Ride {
	rides := make([]*models.Ride, 0, len(r.store.rides))
	for _, ride := range r.store.rides {
		rides = append(rides, ride)
	}
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].ID.Hex() > rides[j].ID.Hex()
		}
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
	return rides
}

// expand joins a ride with its rider and driver. Callers hold the read lock.
func (r *rideRepository) expand(ride *models.Ride) *models.RideDetails {
	details := &models.RideDetails{Ride: *copyRide(ride)}

	if rider, ok := r.store.riders[ride.Rider]; ok {
		view := &models.RiderView{Profile: copyRider(rider)}
		if user, ok := r.store.users[rider.UserID]; ok {
			view.User = copyUser(user)
		}
		details.RiderInfo = view
	}

	if ride.Driver != nil {
		if driver, ok := r.store.drivers[*ride.Driver]; ok {
			view := &models.DriverView{Profile: copyDriver(driver)}
			if user, ok := r.store.users[driver.UserID]; ok {
				view.User = copyUser(user)
			}
			details.DriverInfo = view
		}
	}

	return details
}

func statusIn(status models.RideStatus, set []models.RideStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func stampStatus(ride *models.Ride, status models.RideStatus, at time.Time) {
	ts := at
	switch status {
	case models.RideStatusAccepted:
		ride.AcceptedAt = &ts
	case models.RideStatusStarted:
		ride.StartedAt = &ts
	case models.RideStatusReached:
		ride.ReachedAt = &ts
	case models.RideStatusCompleted:
		ride.CompletedAt = &ts
	case models.RideStatusCanceled:
		ride.CanceledAt = &ts
	}
}
