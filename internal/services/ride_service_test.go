package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ridehub/internal/config"
	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/repositories/memory"
	"ridehub/internal/utils"
	"ridehub/internal/validators"
	"ridehub/pkg/events"
	"ridehub/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type notification struct {
	userID  string
	event   string
	payload interface{}
}

// recordingNotifier records every attempt and reports delivery only for
// users marked connected.
type recordingNotifier struct {
	mu        sync.Mutex
	sent      []notification
	connected map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{connected: make(map[string]bool)}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, event string, payload interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID: userID, event: event, payload: payload})
	return n.connected[userID]
}

func (n *recordingNotifier) byEvent(event string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, s := range n.sent {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	svc      RideService
	notifier *recordingNotifier
	cfg      *config.RideConfig
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, &config.RideConfig{DriverCancelPenalty: 5})
}

func newFixtureWithConfig(t *testing.T, cfg *config.RideConfig) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := newRecordingNotifier()
	svc := NewRideService(cfg, store.Rides(), store.Riders(), store.Drivers(), store.IgnoredRides(),
		store.TransactionManager(), notifier, events.NewNoopPublisher(), logger.NewNop())

	return &fixture{t: t, ctx: context.Background(), store: store, svc: svc, notifier: notifier, cfg: cfg}
}

func (f *fixture) seedRider(freeRides int) (primitive.ObjectID, *models.Rider) {
	f.t.Helper()
	user := &models.User{Name: "rider", UserType: models.UserTypeRider}
	if err := f.store.Users().Upsert(f.ctx, user); err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	rider := &models.Rider{UserID: user.ID, FreeRidesRemaining: freeRides}
	if err := f.store.Riders().Create(f.ctx, rider); err != nil {
		f.t.Fatalf("create rider: %v", err)
	}
	return user.ID, rider
}

func (f *fixture) seedDriver(vehicleType string) (primitive.ObjectID, *models.Driver) {
	f.t.Helper()
	user := &models.User{Name: "driver", UserType: models.UserTypeDriver}
	if err := f.store.Users().Upsert(f.ctx, user); err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	driver := &models.Driver{UserID: user.ID, Vehicle: models.Vehicle{Type: vehicleType}}
	if err := f.store.Drivers().Create(f.ctx, driver); err != nil {
		f.t.Fatalf("create driver: %v", err)
	}
	return user.ID, driver
}

func (f *fixture) book(riderUserID primitive.ObjectID, distance float64) *models.Ride {
	f.t.Helper()
	ride, err := f.svc.Book(f.ctx, &validators.BookRideRequest{
		PickupLocation:  validators.LocationRequest{Address: "1 Main St", Latitude: 12.97, Longitude: 77.59},
		DropoffLocation: validators.LocationRequest{Address: "9 Lake Rd", Latitude: 12.93, Longitude: 77.62},
		VehicleType:     "car",
		Distance:        distance,
		Fare:            120,
	}, riderUserID)
	if err != nil {
		f.t.Fatalf("book: %v", err)
	}
	return ride
}

func (f *fixture) startedRide(riderUserID, driverUserID primitive.ObjectID, distance float64) *models.Ride {
	f.t.Helper()
	ride := f.book(riderUserID, distance)
	if _, err := f.svc.Accept(f.ctx, ride.ID, driverUserID); err != nil {
		f.t.Fatalf("accept: %v", err)
	}
	started, err := f.svc.UpdateStatus(f.ctx, ride.ID, models.RideStatusStarted)
	if err != nil {
		f.t.Fatalf("start: %v", err)
	}
	return started
}

func (f *fixture) ride(id primitive.ObjectID) *models.Ride {
	f.t.Helper()
	ride, err := f.store.Rides().GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get ride: %v", err)
	}
	return ride
}

func (f *fixture) rider(id primitive.ObjectID) *models.Rider {
	f.t.Helper()
	rider, err := f.store.Riders().GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get rider: %v", err)
	}
	return rider
}

func (f *fixture) driver(id primitive.ObjectID) *models.Driver {
	f.t.Helper()
	driver, err := f.store.Drivers().GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get driver: %v", err)
	}
	return driver
}

func TestBookDecrementsFreeRides(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(2)

	ride := f.book(riderUserID, 3.2)

	if ride.Status != models.RideStatusRequested || ride.Driver != nil {
		t.Fatalf("expected requested ride without driver, got %s %v", ride.Status, ride.Driver)
	}
	if ride.Rider != rider.ID {
		t.Errorf("ride should reference the rider profile")
	}
	if got := f.rider(rider.ID).FreeRidesRemaining; got != 1 {
		t.Errorf("expected 1 free ride left, got %d", got)
	}
}

func TestBookFreeRidesFloorAtZero(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(0)

	f.book(riderUserID, 1)

	if got := f.rider(rider.ID).FreeRidesRemaining; got != 0 {
		t.Errorf("expected free rides to stay at 0, got %d", got)
	}
}

func TestBookEstimatesMissingDistance(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(0)

	ride, err := f.svc.Book(f.ctx, &validators.BookRideRequest{
		PickupLocation:  validators.LocationRequest{Address: "Origin", Latitude: 0, Longitude: 0},
		DropoffLocation: validators.LocationRequest{Address: "North", Latitude: 1, Longitude: 0},
		VehicleType:     "car",
	}, riderUserID)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if ride.Distance != 111.19 {
		t.Errorf("expected estimated distance 111.19, got %f", ride.Distance)
	}
	if ride.RedeemPoints() != 112 {
		t.Errorf("expected 112 points, got %d", ride.RedeemPoints())
	}
}

func TestBookWithoutRiderProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(f.ctx, &validators.BookRideRequest{VehicleType: "car"}, primitive.NewObjectID())
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentAcceptHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	ride := f.book(riderUserID, 5)

	const drivers = 8
	driverUsers := make([]primitive.ObjectID, drivers)
	for i := range driverUsers {
		driverUsers[i], _ = f.seedDriver("car")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []*models.Ride
		failures []error
		start    = make(chan struct{})
	)
	for _, driverUserID := range driverUsers {
		wg.Add(1)
		go func(driverUserID primitive.ObjectID) {
			defer wg.Done()
			<-start
			accepted, err := f.svc.Accept(f.ctx, ride.ID, driverUserID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			winners = append(winners, accepted)
		}(driverUserID)
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	if len(failures) != drivers-1 {
		t.Fatalf("expected %d failures, got %d", drivers-1, len(failures))
	}
	for _, err := range failures {
		if !utils.IsNotFoundError(err) {
			t.Errorf("losers should observe a no-match failure, got %v", err)
		}
	}

	stored := f.ride(ride.ID)
	if stored.Status != models.RideStatusAccepted || stored.Driver == nil || *stored.Driver != *winners[0].Driver {
		t.Errorf("stored ride does not reflect the winner: %+v", stored)
	}
	if got := len(f.notifier.byEvent(models.EventRideAccepted)); got != 1 {
		t.Errorf("expected one rideAccepted notification, got %d", got)
	}
}

func TestAcceptNotifiesRider(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.book(riderUserID, 2)

	if _, err := f.svc.Accept(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	sent := f.notifier.byEvent(models.EventRideAccepted)
	if len(sent) != 1 || sent[0].userID != riderUserID.Hex() {
		t.Fatalf("expected notification to rider user, got %+v", sent)
	}
	payload := sent[0].payload.(models.RideAcceptedPayload)
	if payload.RideID != ride.ID.Hex() || payload.DriverID != driver.ID.Hex() {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestAcceptFailures(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, _ := f.seedDriver("car")
	ride := f.book(riderUserID, 2)

	if _, err := f.svc.Accept(f.ctx, ride.ID, primitive.NilObjectID); !utils.IsValidationError(err) {
		t.Errorf("missing driver id: expected validation error, got %v", err)
	}
	if _, err := f.svc.Accept(f.ctx, ride.ID, primitive.NewObjectID()); !utils.IsNotFoundError(err) {
		t.Errorf("unknown driver: expected not found, got %v", err)
	}
	if _, err := f.svc.Accept(f.ctx, primitive.NewObjectID(), driverUserID); !utils.IsNotFoundError(err) {
		t.Errorf("unknown ride: expected not found, got %v", err)
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusRequested {
		t.Errorf("failed accepts must not change the ride, got %s", got)
	}
}

func TestCompleteAwardsPoints(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.startedRide(riderUserID, driverUserID, 3.2)

	completed, err := f.svc.Complete(f.ctx, ride.ID, driverUserID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if completed.Status != models.RideStatusCompleted || completed.CompletedAt == nil {
		t.Errorf("expected completed ride, got %+v", completed)
	}
	if got := f.rider(rider.ID).RedeemPoints; got != 4 {
		t.Errorf("expected rider points 4, got %d", got)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != 4 {
		t.Errorf("expected driver points 4, got %d", got)
	}

	sent := f.notifier.byEvent(models.EventRideCompleted)
	if len(sent) != 1 || sent[0].payload.(models.RideCompletedPayload).Points != 4 {
		t.Errorf("expected rideCompleted with 4 points, got %+v", sent)
	}
}

func TestCompletePreconditions(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(1)
	driverUserID, _ := f.seedDriver("car")
	otherDriverUserID, other := f.seedDriver("car")

	accepted := f.book(riderUserID, 2)
	if _, err := f.svc.Accept(f.ctx, accepted.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Complete(f.ctx, accepted.ID, driverUserID); !utils.IsNotFoundError(err) {
		t.Errorf("completing an accepted ride: expected not found, got %v", err)
	}
	if got := f.ride(accepted.ID).Status; got != models.RideStatusAccepted {
		t.Errorf("ride should stay accepted, got %s", got)
	}

	started := f.startedRide(riderUserID, driverUserID, 2)
	if _, err := f.svc.Complete(f.ctx, started.ID, otherDriverUserID); !utils.IsNotFoundError(err) {
		t.Errorf("driver mismatch: expected not found, got %v", err)
	}
	if got := f.ride(started.ID).Status; got != models.RideStatusStarted {
		t.Errorf("ride should stay started, got %s", got)
	}
	if _, err := f.svc.Complete(f.ctx, started.ID, primitive.NilObjectID); !utils.IsValidationError(err) {
		t.Errorf("missing driver id: expected validation error, got %v", err)
	}

	if f.rider(rider.ID).RedeemPoints != 0 || f.driver(other.ID).RedeemPoints != 0 {
		t.Errorf("failed completions must not award points")
	}
}

func TestDriverCancelAppliesPenaltyAndRefund(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(2)
	driverUserID, driver := f.seedDriver("car")
	ride := f.book(riderUserID, 2)
	if _, err := f.svc.Accept(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	canceled, err := f.svc.Cancel(f.ctx, ride.ID, driverUserID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if canceled.Status != models.RideStatusCanceled || canceled.Driver != nil {
		t.Errorf("expected canceled ride without driver, got %s %v", canceled.Status, canceled.Driver)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != -5 {
		t.Errorf("expected driver points -5, got %d", got)
	}
	if got := f.rider(rider.ID).FreeRidesRemaining; got != 2 {
		t.Errorf("expected free ride refunded to 2, got %d", got)
	}
	if len(f.notifier.byEvent(models.EventRideCancelled)) != 1 {
		t.Errorf("expected rideCancelled notification")
	}
}

func TestDriverCancelWithoutFreeRidesSkipsRefund(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(0)
	driverUserID, driver := f.seedDriver("car")
	ride := f.book(riderUserID, 2)
	if _, err := f.svc.Accept(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := f.svc.Cancel(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := f.rider(rider.ID).FreeRidesRemaining; got != 0 {
		t.Errorf("expected no refund, got %d", got)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != -5 {
		t.Errorf("expected driver points -5, got %d", got)
	}
}

// The penalty lands on the driver who cancels, whether or not the ride is
// assigned to them.
func TestCancelByAnotherDriverPenalizesCaller(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	assignedUserID, assigned := f.seedDriver("car")
	otherUserID, other := f.seedDriver("car")
	ride := f.book(riderUserID, 2)
	if _, err := f.svc.Accept(f.ctx, ride.ID, assignedUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := f.svc.Cancel(f.ctx, ride.ID, otherUserID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := f.driver(other.ID).RedeemPoints; got != -5 {
		t.Errorf("expected cancelling driver points -5, got %d", got)
	}
	if got := f.driver(assigned.ID).RedeemPoints; got != 0 {
		t.Errorf("expected assigned driver untouched, got %d", got)
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusCanceled {
		t.Errorf("expected canceled ride, got %s", got)
	}
}

func TestRiderCancelRequestedRide(t *testing.T) {
	f := newFixture(t)
	riderUserID, rider := f.seedRider(1)
	ride := f.book(riderUserID, 2)

	canceled, err := f.svc.Cancel(f.ctx, ride.ID, primitive.NilObjectID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.RideStatusCanceled || canceled.CanceledAt == nil {
		t.Errorf("expected canceled ride, got %+v", canceled)
	}
	if got := f.rider(rider.ID).FreeRidesRemaining; got != 0 {
		t.Errorf("rider cancel of a requested ride refunds nothing, got %d", got)
	}

	if _, err := f.svc.Cancel(f.ctx, ride.ID, primitive.NilObjectID); !utils.IsNotFoundError(err) {
		t.Errorf("cancelling twice: expected not found, got %v", err)
	}
}

func TestCancelCompletedRideIsRejected(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.startedRide(riderUserID, driverUserID, 2)
	if _, err := f.svc.Complete(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.svc.Cancel(f.ctx, ride.ID, driverUserID)
	if !utils.IsBusinessError(err) {
		t.Fatalf("expected business error, got %v", err)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != 2 {
		t.Errorf("rejected cancel must not penalize, got %d", got)
	}
}

func TestCancelStartedRideKeepsStatusButPenalizes(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.startedRide(riderUserID, driverUserID, 2)

	_, err := f.svc.Cancel(f.ctx, ride.ID, driverUserID)
	if !utils.IsNotFoundError(err) {
		t.Fatalf("expected not found from the guarded update, got %v", err)
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusStarted {
		t.Errorf("ride should remain started, got %s", got)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != -5 {
		t.Errorf("penalty is applied before the guarded update, got %d", got)
	}
}

func TestCancelStartedRideWhenAllowed(t *testing.T) {
	f := newFixtureWithConfig(t, &config.RideConfig{DriverCancelPenalty: 5, AllowCancelFromStarted: true})
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.startedRide(riderUserID, driverUserID, 2)

	canceled, err := f.svc.Cancel(f.ctx, ride.ID, driverUserID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.RideStatusCanceled {
		t.Errorf("expected canceled, got %s", canceled.Status)
	}
	if got := f.driver(driver.ID).RedeemPoints; got != -5 {
		t.Errorf("expected driver points -5, got %d", got)
	}
}

func TestUpdateStatusRejectsOtherValues(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, _ := f.seedDriver("car")
	ride := f.book(riderUserID, 2)
	if _, err := f.svc.Accept(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, status := range []models.RideStatus{
		models.RideStatusRequested,
		models.RideStatusAccepted,
		models.RideStatusCompleted,
		models.RideStatusCanceled,
		"arrived",
	} {
		if _, err := f.svc.UpdateStatus(f.ctx, ride.ID, status); !utils.IsValidationError(err) {
			t.Errorf("%s: expected validation error, got %v", status, err)
		}
	}

	if got := f.ride(ride.ID).Status; got != models.RideStatusAccepted {
		t.Errorf("rejected updates must not change the ride, got %s", got)
	}
	if n := len(f.notifier.byEvent(models.EventRideStatusUpdated)); n != 0 {
		t.Errorf("rejected updates must not notify, got %d", n)
	}
}

func TestUpdateStatusFlow(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, _ := f.seedDriver("car")
	ride := f.startedRide(riderUserID, driverUserID, 2)

	reached, err := f.svc.UpdateStatus(f.ctx, ride.ID, models.RideStatusReached)
	if err != nil {
		t.Fatalf("reached: %v", err)
	}
	if reached.Status != models.RideStatusReached || reached.ReachedAt == nil {
		t.Errorf("expected reached ride, got %+v", reached)
	}

	sent := f.notifier.byEvent(models.EventRideStatusUpdated)
	if len(sent) != 2 {
		t.Fatalf("expected two status notifications, got %d", len(sent))
	}
	if sent[1].payload.(models.RideStatusUpdatedPayload).Status != models.RideStatusReached {
		t.Errorf("unexpected payload %+v", sent[1].payload)
	}

	// Updates only move forward one step.
	if _, err := f.svc.UpdateStatus(f.ctx, ride.ID, models.RideStatusStarted); !utils.IsBusinessError(err) {
		t.Errorf("reached back to started: expected business error, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(f.ctx, ride.ID, models.RideStatusReached); !utils.IsBusinessError(err) {
		t.Errorf("reached again: expected business error, got %v", err)
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusReached {
		t.Errorf("rejected updates must not change the ride, got %s", got)
	}
	if n := len(f.notifier.byEvent(models.EventRideStatusUpdated)); n != 2 {
		t.Errorf("rejected updates must not notify, got %d notifications", n)
	}

	restarted := f.startedRide(riderUserID, driverUserID, 1)
	if _, err := f.svc.UpdateStatus(f.ctx, restarted.ID, models.RideStatusStarted); !utils.IsBusinessError(err) {
		t.Errorf("started again: expected business error, got %v", err)
	}

	accepted := f.book(riderUserID, 1)
	if _, err := f.svc.Accept(f.ctx, accepted.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.UpdateStatus(f.ctx, accepted.ID, models.RideStatusReached); !utils.IsBusinessError(err) {
		t.Errorf("skipping started: expected business error, got %v", err)
	}

	requested := f.book(riderUserID, 1)
	if _, err := f.svc.UpdateStatus(f.ctx, requested.ID, models.RideStatusStarted); !utils.IsBusinessError(err) {
		t.Errorf("starting an unassigned ride: expected business error, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(f.ctx, primitive.NewObjectID(), models.RideStatusStarted); !utils.IsNotFoundError(err) {
		t.Errorf("unknown ride: expected not found, got %v", err)
	}
}

func TestIgnoreIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.book(riderUserID, 2)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Ignore(f.ctx, ride.ID, driverUserID); err != nil {
			t.Fatalf("ignore: %v", err)
		}
	}

	records, err := f.svc.ListIgnoredByDriver(f.ctx, driverUserID)
	if err != nil {
		t.Fatalf("list ignored: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two ignored records, got %d", len(records))
	}
	for _, r := range records {
		if r.Ride != ride.ID || r.Driver != driver.ID {
			t.Errorf("unexpected record %+v", r)
		}
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusRequested {
		t.Errorf("ignore must not change the ride, got %s", got)
	}
}

func TestListAvailableForDriver(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(5)
	driverUserID, _ := f.seedDriver("car")
	otherDriverUserID, _ := f.seedDriver("car")

	ignored := f.book(riderUserID, 1)
	open := f.book(riderUserID, 2)
	taken := f.book(riderUserID, 3)
	bike, err := f.svc.Book(f.ctx, &validators.BookRideRequest{
		PickupLocation:  validators.LocationRequest{Address: "1 Main St"},
		DropoffLocation: validators.LocationRequest{Address: "2 Side St"},
		VehicleType:     "bike",
	}, riderUserID)
	if err != nil {
		t.Fatalf("book bike: %v", err)
	}

	if _, err := f.svc.Ignore(f.ctx, ignored.ID, driverUserID); err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if _, err := f.svc.Accept(f.ctx, taken.ID, otherDriverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	rides, err := f.svc.ListAvailableForDriver(f.ctx, driverUserID)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != open.ID {
		ids := make([]string, 0, len(rides))
		for _, r := range rides {
			ids = append(ids, r.ID.Hex())
		}
		t.Fatalf("expected only %s, got %v (bike %s)", open.ID.Hex(), ids, bike.ID.Hex())
	}
}

func TestLifecycleWithoutPresence(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, _ := f.seedDriver("car")

	ride := f.startedRide(riderUserID, driverUserID, 2)
	if _, err := f.svc.Complete(f.ctx, ride.ID, driverUserID); err != nil {
		t.Fatalf("complete without connected rider: %v", err)
	}

	other := f.book(riderUserID, 2)
	if _, err := f.svc.Cancel(f.ctx, other.ID, primitive.NilObjectID); err != nil {
		t.Fatalf("cancel without connected rider: %v", err)
	}

	if len(f.notifier.byEvent(models.EventRideCompleted)) != 1 {
		t.Errorf("expected the completion notification to be attempted")
	}
}

func TestListByUserAndDriver(t *testing.T) {
	f := newFixture(t)
	riderA, _ := f.seedRider(3)
	riderB, _ := f.seedRider(3)
	driverUserID, _ := f.seedDriver("car")

	a1 := f.book(riderA, 1)
	f.book(riderA, 2)
	f.book(riderB, 3)
	if _, err := f.svc.Accept(f.ctx, a1.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	byA, err := f.svc.ListByUser(f.ctx, riderA)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byA) != 2 {
		t.Errorf("expected 2 rides for rider A, got %d", len(byA))
	}
	for _, d := range byA {
		if d.RiderInfo == nil || d.RiderInfo.User == nil || d.RiderInfo.User.ID != riderA {
			t.Errorf("ride %s not expanded to rider A", d.ID.Hex())
		}
	}

	byDriver, err := f.svc.ListByDriver(f.ctx, driverUserID)
	if err != nil {
		t.Fatalf("list by driver: %v", err)
	}
	if len(byDriver) != 1 || byDriver[0].ID != a1.ID {
		t.Fatalf("expected only the accepted ride, got %d", len(byDriver))
	}
	if byDriver[0].DriverInfo == nil || byDriver[0].DriverInfo.User.ID != driverUserID {
		t.Errorf("driver not expanded")
	}

	all, err := f.svc.List(f.ctx)
	if err != nil || len(all) != 3 {
		t.Errorf("expected 3 rides overall, got %d %v", len(all), err)
	}

	got, err := f.svc.Get(f.ctx, a1.ID)
	if err != nil || got.DriverUserID() != driverUserID {
		t.Errorf("get: unexpected %v %v", got, err)
	}
	if _, err := f.svc.Get(f.ctx, primitive.NewObjectID()); !utils.IsNotFoundError(err) {
		t.Errorf("get unknown: expected not found, got %v", err)
	}
}

func TestCancelAllByUser(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(3)
	driverUserID, _ := f.seedDriver("car")

	r1 := f.book(riderUserID, 1)
	r2 := f.book(riderUserID, 1)
	accepted := f.book(riderUserID, 1)
	if _, err := f.svc.Accept(f.ctx, accepted.ID, driverUserID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	count, err := f.svc.CancelAllByUser(f.ctx, riderUserID)
	if err != nil {
		t.Fatalf("cancel all: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 cancelled rides, got %d", count)
	}
	for _, id := range []primitive.ObjectID{r1.ID, r2.ID} {
		if got := f.ride(id).Status; got != models.RideStatusCanceled {
			t.Errorf("ride %s: expected canceled, got %s", id.Hex(), got)
		}
	}
	if got := f.ride(accepted.ID).Status; got != models.RideStatusAccepted {
		t.Errorf("accepted ride must be untouched, got %s", got)
	}

	if _, err := f.svc.CancelAllByUser(f.ctx, primitive.NewObjectID()); !utils.IsNotFoundError(err) {
		t.Errorf("unknown user: expected not found, got %v", err)
	}
}

func TestRequestRideNotifiesDriver(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	driverUserID, driver := f.seedDriver("car")
	ride := f.book(riderUserID, 2)

	if _, err := f.svc.RequestRide(f.ctx, ride.ID, driver.ID); err != nil {
		t.Fatalf("request ride: %v", err)
	}

	sent := f.notifier.byEvent(models.EventRideRequested)
	if len(sent) != 1 || sent[0].userID != driverUserID.Hex() {
		t.Fatalf("expected rideRequested to the driver user, got %+v", sent)
	}
	if got := f.ride(ride.ID).Status; got != models.RideStatusRequested {
		t.Errorf("request must not change the ride, got %s", got)
	}

	if _, err := f.svc.RequestRide(f.ctx, ride.ID, primitive.NewObjectID()); !utils.IsNotFoundError(err) {
		t.Errorf("unknown driver: expected not found, got %v", err)
	}
}

func TestDeleteRide(t *testing.T) {
	f := newFixture(t)
	riderUserID, _ := f.seedRider(1)
	ride := f.book(riderUserID, 2)

	if err := f.svc.Delete(f.ctx, ride.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(f.ctx, ride.ID); !utils.IsNotFoundError(err) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

type failingRideRepository struct {
	interfaces.RideRepository
	err error
}

func (r failingRideRepository) Transition(ctx context.Context, id primitive.ObjectID, t models.RideTransition) (*models.Ride, bool, error) {
	return nil, false, r.err
}

func TestStoreFailuresSurfaceAsDatabaseErrors(t *testing.T) {
	store := memory.NewStore()
	cause := errors.New("connection reset")
	svc := NewRideService(&config.RideConfig{DriverCancelPenalty: 5},
		failingRideRepository{RideRepository: store.Rides(), err: cause},
		store.Riders(), store.Drivers(), store.IgnoredRides(), store.TransactionManager(),
		newRecordingNotifier(), events.NewNoopPublisher(), logger.NewNop())

	driverUser := &models.User{UserType: models.UserTypeDriver}
	store.Users().Upsert(context.Background(), driverUser)
	store.Drivers().Create(context.Background(), &models.Driver{UserID: driverUser.ID})

	_, err := svc.Accept(context.Background(), primitive.NewObjectID(), driverUser.ID)
	if !utils.IsDatabaseError(err) {
		t.Fatalf("expected database error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("database error should wrap the store failure")
	}
}
