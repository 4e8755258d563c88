package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Real-time events pushed to connected riders and drivers.
const (
	EventRideAccepted      = "rideAccepted"
	EventRideCancelled     = "rideCancelled"
	EventRideCompleted     = "rideCompleted"
	EventRideStatusUpdated = "rideStatusUpdated"
	EventRideRequested     = "rideRequested"
)

// EventRideBooked is published to the event stream only.
const EventRideBooked = "rideBooked"

type RideAcceptedPayload struct {
	RideID   string `json:"rideId"`
	Message  string `json:"message"`
	DriverID string `json:"driverId"`
}

type RideCancelledPayload struct {
	RideID  string `json:"rideId"`
	Message string `json:"message"`
}

type RideCompletedPayload struct {
	RideID  string `json:"rideId"`
	Message string `json:"message"`
	Points  int64  `json:"points"`
}

type RideStatusUpdatedPayload struct {
	RideID  string     `json:"rideId"`
	Status  RideStatus `json:"status"`
	Message string     `json:"message"`
}

type RideRequestedPayload struct {
	Ride    *Ride  `json:"ride"`
	Message string `json:"message"`
}

// RideEvent is the lifecycle record published to the ride event stream.
type RideEvent struct {
	RideID     primitive.ObjectID  `json:"ride_id"`
	Type       string              `json:"type"`
	Status     RideStatus          `json:"status"`
	RiderID    primitive.ObjectID  `json:"rider_id"`
	DriverID   *primitive.ObjectID `json:"driver_id,omitempty"`
	Points     int64               `json:"points,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}
