package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehub/internal/config"
	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/utils"
	"ridehub/internal/validators"
	"ridehub/pkg/events"
	"ridehub/pkg/logger"
	"ridehub/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier pushes a real-time event to a user if they are connected.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload interface{}) bool
}

type RideService interface {
	// Lifecycle
	Book(ctx context.Context, req *validators.BookRideRequest, riderUserID primitive.ObjectID) (*models.Ride, error)
	Accept(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error)
	Complete(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error)
	UpdateStatus(ctx context.Context, rideID primitive.ObjectID, status models.RideStatus) (*models.Ride, error)
	CancelAllByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, rideID primitive.ObjectID) error

	// Driver candidate list
	Ignore(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.IgnoredRide, error)
	ListIgnoredByDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.IgnoredRide, error)
	ListAvailableForDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.Ride, error)
	RequestRide(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Ride, error)

	// Reads
	Get(ctx context.Context, rideID primitive.ObjectID) (*models.RideDetails, error)
	List(ctx context.Context) ([]*models.RideDetails, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.RideDetails, error)
	ListByDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.RideDetails, error)
}

type rideService struct {
	rideRepo        interfaces.RideRepository
	riderRepo       interfaces.RiderRepository
	driverRepo      interfaces.DriverRepository
	ignoredRideRepo interfaces.IgnoredRideRepository
	txManager       interfaces.TransactionManager
	notifier        Notifier
	publisher       events.Publisher
	config          *config.RideConfig
	logger          *logger.Logger
}

func NewRideService(
	cfg *config.RideConfig,
	rideRepo interfaces.RideRepository,
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	ignoredRideRepo interfaces.IgnoredRideRepository,
	txManager interfaces.TransactionManager,
	notifier Notifier,
	publisher events.Publisher,
	log *logger.Logger,
) RideService {
	return &rideService{
		rideRepo:        rideRepo,
		riderRepo:       riderRepo,
		driverRepo:      driverRepo,
		ignoredRideRepo: ignoredRideRepo,
		txManager:       txManager,
		notifier:        notifier,
		publisher:       publisher,
		config:          cfg,
		logger:          log.WithField("component", "ride_service"),
	}
}

func (s *rideService) Book(ctx context.Context, req *validators.BookRideRequest, riderUserID primitive.ObjectID) (*models.Ride, error) {
	rider, err := s.riderRepo.GetByUserID(ctx, riderUserID)
	if err != nil {
		if errors.Is(err, utils.ErrDocumentNotFound) {
			return nil, utils.NewValidationError("rider", utils.ErrRiderNotFound)
		}
		return nil, utils.WrapStoreError("get rider", "rider", err)
	}

	ride := &models.Ride{
		Rider:           rider.ID,
		PickupLocation:  req.PickupLocation.ToModel(),
		DropoffLocation: req.DropoffLocation.ToModel(),
		VehicleType:     req.VehicleType,
		Distance:        req.Distance,
		Fare:            req.Fare,
		IsPreBooked:     req.IsPreBooked,
		PreBookedAt:     req.PreBookedAt,
		Status:          models.RideStatusRequested,
	}
	if ride.Distance == 0 {
		ride.Distance = utils.RoundDistance(utils.GreatCircleDistance(
			req.PickupLocation.Latitude, req.PickupLocation.Longitude,
			req.DropoffLocation.Latitude, req.DropoffLocation.Longitude,
		))
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.rideRepo.Create(ctx, ride); err != nil {
			return utils.WrapStoreError("create ride", "ride", err)
		}
		if _, err := s.riderRepo.ConsumeFreeRide(ctx, rider.ID); err != nil {
			return utils.WrapStoreError("consume free ride", "rider", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RidesBookedTotal.Inc()
	s.logger.LogRideEvent(ride.ID, "booked", map[string]interface{}{
		"rider_id":     rider.ID.Hex(),
		"vehicle_type": ride.VehicleType,
		"pre_booked":   ride.IsPreBooked,
	})
	s.publish(ctx, ride, models.EventRideBooked, 0)

	return ride, nil
}

func (s *rideService) Accept(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error) {
	if driverUserID.IsZero() {
		return nil, utils.NewValidationError("driver_user_id", "is required")
	}

	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	ride, applied, err := s.rideRepo.Transition(ctx, rideID, models.RideTransition{
		From:      []models.RideStatus{models.RideStatusRequested},
		To:        models.RideStatusAccepted,
		SetDriver: &driver.ID,
	})
	if err != nil {
		s.recordTransition(models.RideStatusAccepted, metrics.OutcomeError)
		return nil, utils.WrapStoreError("accept ride", "ride", err)
	}
	if !applied {
		s.recordTransition(models.RideStatusAccepted, metrics.OutcomeRejected)
		return nil, utils.NewNotFoundErrorf("ride", "ride not found or no longer available")
	}
	s.recordTransition(models.RideStatusAccepted, metrics.OutcomeApplied)

	s.logger.LogRideEvent(ride.ID, "accepted", map[string]interface{}{"driver_id": driver.ID.Hex()})
	s.notifyRider(ctx, ride, models.EventRideAccepted, models.RideAcceptedPayload{
		RideID:   ride.ID.Hex(),
		Message:  "Your ride has been accepted",
		DriverID: driver.ID.Hex(),
	})
	s.publish(ctx, ride, models.EventRideAccepted, 0)

	return ride, nil
}

// Cancel moves a ride to canceled. When driverUserID is set and the ride is
// assigned and in progress, the driver pays the cancel penalty and the rider
// gets a free ride back. The penalty is applied before the guarded update, so
// with transactions disabled it persists even if the update then misses.
func (s *rideService) Cancel(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error) {
	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, utils.WrapStoreError("get ride", "ride", err)
	}
	if current.Status == models.RideStatusCompleted {
		return nil, utils.NewBusinessError("cannot cancel a completed ride")
	}

	from := []models.RideStatus{models.RideStatusRequested, models.RideStatusAccepted}
	if s.config.AllowCancelFromStarted {
		from = append(from, models.RideStatusStarted)
	}

	penalize := !driverUserID.IsZero() && current.Driver != nil &&
		(current.Status == models.RideStatusAccepted || current.Status == models.RideStatusStarted)

	var ride *models.Ride
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if penalize {
			if err := s.applyCancelPenalty(ctx, current, driverUserID); err != nil {
				return err
			}
		}

		updated, applied, err := s.rideRepo.Transition(ctx, rideID, models.RideTransition{
			From:        from,
			To:          models.RideStatusCanceled,
			ClearDriver: true,
		})
		if err != nil {
			s.recordTransition(models.RideStatusCanceled, metrics.OutcomeError)
			return utils.WrapStoreError("cancel ride", "ride", err)
		}
		if !applied {
			s.recordTransition(models.RideStatusCanceled, metrics.OutcomeRejected)
			return utils.NewNotFoundErrorf("ride", "ride not found or can no longer be cancelled")
		}
		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(models.RideStatusCanceled, metrics.OutcomeApplied)

	s.logger.LogRideEvent(ride.ID, "cancelled", map[string]interface{}{
		"previous_status": current.Status,
		"penalized":       penalize,
	})
	s.notifyRider(ctx, ride, models.EventRideCancelled, models.RideCancelledPayload{
		RideID:  ride.ID.Hex(),
		Message: "Your ride has been cancelled",
	})
	s.publish(ctx, ride, models.EventRideCancelled, 0)

	return ride, nil
}

func (s *rideService) applyCancelPenalty(ctx context.Context, ride *models.Ride, driverUserID primitive.ObjectID) error {
	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return utils.WrapStoreError("get driver", "driver", err)
	}
	if err := s.driverRepo.AddRedeemPoints(ctx, driver.ID, -s.config.DriverCancelPenalty); err != nil {
		return utils.WrapStoreError("apply cancel penalty", "driver", err)
	}

	rider, err := s.riderRepo.GetByID(ctx, ride.Rider)
	if err != nil {
		return utils.WrapStoreError("get rider", "rider", err)
	}
	if rider.FreeRidesRemaining > 0 {
		if err := s.riderRepo.RefundFreeRide(ctx, rider.ID); err != nil {
			return utils.WrapStoreError("refund free ride", "rider", err)
		}
	}

	s.logger.WithRideID(ride.ID).WithFields(map[string]interface{}{
		"driver_id": driver.ID.Hex(),
		"penalty":   s.config.DriverCancelPenalty,
	}).Info("Driver cancellation penalty applied")
	return nil
}

// Complete writes the ride, then the rider, then the driver. Without
// transactions a failure after the first write leaves the ride completed with
// points partially awarded.
func (s *rideService) Complete(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.Ride, error) {
	if driverUserID.IsZero() {
		return nil, utils.NewValidationError("driver_user_id", "is required")
	}

	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	var ride *models.Ride
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		updated, applied, err := s.rideRepo.Transition(ctx, rideID, models.RideTransition{
			From:     []models.RideStatus{models.RideStatusStarted},
			To:       models.RideStatusCompleted,
			DriverID: &driver.ID,
		})
		if err != nil {
			s.recordTransition(models.RideStatusCompleted, metrics.OutcomeError)
			return utils.WrapStoreError("complete ride", "ride", err)
		}
		if !applied {
			s.recordTransition(models.RideStatusCompleted, metrics.OutcomeRejected)
			return utils.NewNotFoundErrorf("ride", "ride not found or not in progress for this driver")
		}

		points := updated.RedeemPoints()
		if err := s.riderRepo.AddRedeemPoints(ctx, updated.Rider, points); err != nil {
			return utils.WrapStoreError("award rider points", "rider", err)
		}
		if err := s.driverRepo.AddRedeemPoints(ctx, driver.ID, points); err != nil {
			return utils.WrapStoreError("award driver points", "driver", err)
		}

		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(models.RideStatusCompleted, metrics.OutcomeApplied)

	points := ride.RedeemPoints()
	s.logger.LogRideEvent(ride.ID, "completed", map[string]interface{}{
		"driver_id": driver.ID.Hex(),
		"points":    points,
	})
	s.notifyRider(ctx, ride, models.EventRideCompleted, models.RideCompletedPayload{
		RideID:  ride.ID.Hex(),
		Message: "Your ride has been completed",
		Points:  points,
	})
	s.publish(ctx, ride, models.EventRideCompleted, points)

	return ride, nil
}

// statusUpdateSources lists, per target, the status a driver-reported update
// may move from.
var statusUpdateSources = map[models.RideStatus]models.RideStatus{
	models.RideStatusStarted: models.RideStatusAccepted,
	models.RideStatusReached: models.RideStatusStarted,
}

// UpdateStatus moves an assigned ride one step forward, accepted to started or
// started to reached. It performs no ownership check.
func (s *rideService) UpdateStatus(ctx context.Context, rideID primitive.ObjectID, status models.RideStatus) (*models.Ride, error) {
	from, ok := statusUpdateSources[status]
	if !ok {
		return nil, utils.NewValidationError("status", fmt.Sprintf("must be one of [%s %s]", models.RideStatusStarted, models.RideStatusReached))
	}

	ride, applied, err := s.rideRepo.Transition(ctx, rideID, models.RideTransition{
		From: []models.RideStatus{from},
		To:   status,
	})
	if err != nil {
		s.recordTransition(status, metrics.OutcomeError)
		return nil, utils.WrapStoreError("update ride status", "ride", err)
	}
	if !applied {
		s.recordTransition(status, metrics.OutcomeRejected)
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, utils.WrapStoreError("get ride", "ride", err)
		}
		return nil, utils.NewBusinessError(fmt.Sprintf("cannot move a %s ride to %s", current.Status, status))
	}
	s.recordTransition(status, metrics.OutcomeApplied)

	s.logger.LogRideEvent(ride.ID, "status_updated", map[string]interface{}{"status": status})
	s.notifyRider(ctx, ride, models.EventRideStatusUpdated, models.RideStatusUpdatedPayload{
		RideID:  ride.ID.Hex(),
		Status:  status,
		Message: fmt.Sprintf("Your ride is now %s", status),
	})
	s.publish(ctx, ride, models.EventRideStatusUpdated, 0)

	return ride, nil
}

func (s *rideService) CancelAllByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	rider, err := s.riderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, utils.WrapStoreError("get rider", "rider", err)
	}

	count, err := s.rideRepo.CancelRequestedByRider(ctx, rider.ID)
	if err != nil {
		return 0, utils.WrapStoreError("cancel requested rides", "ride", err)
	}

	s.logger.WithUserID(userID).WithField("count", count).Info("Cancelled requested rides")
	return count, nil
}

func (s *rideService) Delete(ctx context.Context, rideID primitive.ObjectID) error {
	if err := s.rideRepo.Delete(ctx, rideID); err != nil {
		return utils.WrapStoreError("delete ride", "ride", err)
	}
	s.logger.WithRideID(rideID).Info("Ride deleted")
	return nil
}

// Ignore records that the driver declined the ride. Repeated calls add
// repeated records.
func (s *rideService) Ignore(ctx context.Context, rideID, driverUserID primitive.ObjectID) (*models.IgnoredRide, error) {
	if driverUserID.IsZero() {
		return nil, utils.NewValidationError("driver_user_id", "is required")
	}

	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, utils.WrapStoreError("get ride", "ride", err)
	}

	record := &models.IgnoredRide{Ride: ride.ID, Driver: driver.ID}
	if err := s.ignoredRideRepo.Create(ctx, record); err != nil {
		return nil, utils.WrapStoreError("ignore ride", "ride", err)
	}

	return record, nil
}

func (s *rideService) ListIgnoredByDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.IgnoredRide, error) {
	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	records, err := s.ignoredRideRepo.ListByDriver(ctx, driver.ID)
	if err != nil {
		return nil, utils.WrapStoreError("list ignored rides", "ride", err)
	}
	return records, nil
}

// ListAvailableForDriver returns requested rides for the driver's vehicle type
// minus the rides the driver ignored.
func (s *rideService) ListAvailableForDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.Ride, error) {
	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	ignored, err := s.ignoredRideRepo.ListByDriver(ctx, driver.ID)
	if err != nil {
		return nil, utils.WrapStoreError("list ignored rides", "ride", err)
	}
	exclude := make([]primitive.ObjectID, 0, len(ignored))
	for _, record := range ignored {
		exclude = append(exclude, record.Ride)
	}

	rides, err := s.rideRepo.ListRequested(ctx, driver.Vehicle.Type, exclude)
	if err != nil {
		return nil, utils.WrapStoreError("list requested rides", "ride", err)
	}
	return rides, nil
}

// RequestRide asks a specific driver to take a ride without changing it.
func (s *rideService) RequestRide(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, utils.WrapStoreError("get ride", "ride", err)
	}
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	s.notifier.Notify(ctx, driver.UserID.Hex(), models.EventRideRequested, models.RideRequestedPayload{
		Ride:    ride,
		Message: "You have a new ride request",
	})

	return ride, nil
}

func (s *rideService) Get(ctx context.Context, rideID primitive.ObjectID) (*models.RideDetails, error) {
	details, err := s.rideRepo.GetDetails(ctx, rideID)
	if err != nil {
		return nil, utils.WrapStoreError("get ride", "ride", err)
	}
	return details, nil
}

func (s *rideService) List(ctx context.Context) ([]*models.RideDetails, error) {
	details, err := s.rideRepo.ListDetails(ctx)
	if err != nil {
		return nil, utils.WrapStoreError("list rides", "ride", err)
	}
	return details, nil
}

// ListByUser filters the expanded rides on the rider's account id.
func (s *rideService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.RideDetails, error) {
	return s.listFiltered(ctx, func(d *models.RideDetails) bool {
		return d.RiderUserID() == userID
	})
}

// ListByDriver filters the expanded rides on the driver's account id.
func (s *rideService) ListByDriver(ctx context.Context, driverUserID primitive.ObjectID) ([]*models.RideDetails, error) {
	return s.listFiltered(ctx, func(d *models.RideDetails) bool {
		return d.DriverUserID() == driverUserID
	})
}

func (s *rideService) listFiltered(ctx context.Context, keep func(*models.RideDetails) bool) ([]*models.RideDetails, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.RideDetails, 0)
	for _, d := range all {
		if keep(d) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// Helper methods
func (s *rideService) notifyRider(ctx context.Context, ride *models.Ride, event string, payload interface{}) {
	rider, err := s.riderRepo.GetByID(ctx, ride.Rider)
	if err != nil {
		s.logger.WithRideID(ride.ID).WithError(err).Warn("Skipping notification, rider not resolvable")
		return
	}

	if !s.notifier.Notify(ctx, rider.UserID.Hex(), event, payload) {
		s.logger.WithRideID(ride.ID).WithField("event", event).Debug("Rider not connected, notification dropped")
	}
}

func (s *rideService) publish(ctx context.Context, ride *models.Ride, eventType string, points int64) {
	event := models.RideEvent{
		RideID:     ride.ID,
		Type:       eventType,
		Status:     ride.Status,
		RiderID:    ride.Rider,
		DriverID:   ride.Driver,
		Points:     points,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithRideID(ride.ID).WithError(err).Warn("Failed to publish ride event")
	}
}

func (s *rideService) recordTransition(to models.RideStatus, outcome string) {
	metrics.RideTransitionsTotal.WithLabelValues(string(to), outcome).Inc()
}
