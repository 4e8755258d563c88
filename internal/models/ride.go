package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusStarted   RideStatus = "started"
	RideStatusReached   RideStatus = "reached"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCanceled  RideStatus = "canceled"
)

func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCanceled
}

// HasDriver reports whether a ride in this status carries a driver reference.
func (s RideStatus) HasDriver() bool {
	switch s {
	case RideStatusAccepted, RideStatusStarted, RideStatusReached, RideStatusCompleted:
		return true
	}
	return false
}

type Ride struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Rider           primitive.ObjectID  `json:"rider" bson:"rider"`
	Driver          *primitive.ObjectID `json:"driver" bson:"driver"`
	PickupLocation  Location            `json:"pickup_location" bson:"pickup_location"`
	DropoffLocation Location            `json:"dropoff_location" bson:"dropoff_location"`
	VehicleType     string              `json:"vehicle_type" bson:"vehicle_type"`
	Distance        float64             `json:"distance" bson:"distance"` // kilometers
	Fare            float64             `json:"fare" bson:"fare"`
	IsPreBooked     bool                `json:"is_pre_booked" bson:"is_pre_booked"`
	PreBookedAt     *time.Time          `json:"pre_booked_at" bson:"pre_booked_at"`
	Status          RideStatus          `json:"status" bson:"status"`
	AcceptedAt      *time.Time          `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	StartedAt       *time.Time          `json:"started_at,omitempty" bson:"started_at,omitempty"`
	ReachedAt       *time.Time          `json:"reached_at,omitempty" bson:"reached_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CanceledAt      *time.Time          `json:"canceled_at,omitempty" bson:"canceled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

// RedeemPoints is the number of points a completed ride awards to both parties.
func (r *Ride) RedeemPoints() int64 {
	if r.Distance <= 0 {
		return 0
	}
	return int64(math.Ceil(r.Distance))
}

// RideTransition describes a conditional status change. The update only applies
// when the stored ride is in one of From and, if set, carries DriverID.
type RideTransition struct {
	From     []RideStatus
	To       RideStatus
	DriverID *primitive.ObjectID
	// SetDriver attaches the driver to the ride as part of the update.
	SetDriver *primitive.ObjectID
	// ClearDriver detaches the driver, used when a ride leaves the assigned states.
	ClearDriver bool
}

type RiderView struct {
	Profile *Rider `json:"profile"`
	User    *User  `json:"user"`
}

type DriverView struct {
	Profile *Driver `json:"profile"`
	User    *User   `json:"user"`
}

// RideDetails is a ride with its rider and driver references expanded to
// their profiles and accounts.
type RideDetails struct {
	Ride
	RiderInfo  *RiderView  `json:"rider_info" bson:"-"`
	DriverInfo *DriverView `json:"driver_info" bson:"-"`
}

func (d *RideDetails) RiderUserID() primitive.ObjectID {
	if d.RiderInfo == nil || d.RiderInfo.User == nil {
		return primitive.NilObjectID
	}
	return d.RiderInfo.User.ID
}

func (d *RideDetails) DriverUserID() primitive.ObjectID {
	if d.DriverInfo == nil || d.DriverInfo.User == nil {
		return primitive.NilObjectID
	}
	return d.DriverInfo.User.ID
}
