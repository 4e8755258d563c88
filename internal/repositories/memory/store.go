// Package memory keeps every collection in process memory. It backs the
// "memory" store driver and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds all collections behind one lock so that conditional updates
// observe a consistent view.
type Store struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]*models.User
	riders  map[primitive.ObjectID]*models.Rider
	drivers map[primitive.ObjectID]*models.Driver
	rides   map[primitive.ObjectID]*models.Ride
	ignored []*models.IgnoredRide
}

func NewStore() *Store {
	return &Store{
		users:   make(map[primitive.ObjectID]*models.User),
		riders:  make(map[primitive.ObjectID]*models.Rider),
		drivers: make(map[primitive.ObjectID]*models.Driver),
		rides:   make(map[primitive.ObjectID]*models.Ride),
	}
}

func (s *Store) Users() interfaces.UserRepository { return &userRepository{s} }

func (s *Store) Riders() interfaces.RiderRepository { return &riderRepository{s} }

func (s *Store) Drivers() interfaces.DriverRepository { return &driverRepository{s} }

func (s *Store) Rides() interfaces.RideRepository { return &rideRepository{s} }

func (s *Store) IgnoredRides() interfaces.IgnoredRideRepository { return &ignoredRideRepository{s} }

// TransactionManager runs work directly; each repository call is atomic on its own.
func (s *Store) TransactionManager() interfaces.TransactionManager { return directTransactions{} }

type directTransactions struct{}

func (directTransactions) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func copyRide(r *models.Ride) *models.Ride {
	cp := *r
	if r.Driver != nil {
		driver := *r.Driver
		cp.Driver = &driver
	}
	cp.PickupLocation.Coordinates = append([]float64(nil), r.PickupLocation.Coordinates...)
	cp.DropoffLocation.Coordinates = append([]float64(nil), r.DropoffLocation.Coordinates...)
	for _, ts := range []**time.Time{&cp.PreBookedAt, &cp.AcceptedAt, &cp.StartedAt, &cp.ReachedAt, &cp.CompletedAt, &cp.CanceledAt} {
		if *ts != nil {
			t := **ts
			*ts = &t
		}
	}
	return &cp
}

func copyRider(r *models.Rider) *models.Rider {
	cp := *r
	return &cp
}

func copyDriver(d *models.Driver) *models.Driver {
	cp := *d
	return &cp
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}
