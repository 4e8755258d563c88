package validators

import (
	"time"

	"ridehub/internal/models"
	"ridehub/internal/utils"
)

type LocationRequest struct {
	Address   string  `json:"address" validate:"required,min=3,max=255"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func (l LocationRequest) ToModel() models.Location {
	return models.NewLocation(l.Address, l.Latitude, l.Longitude)
}

type BookRideRequest struct {
	PickupLocation  LocationRequest `json:"pickup_location" validate:"required"`
	DropoffLocation LocationRequest `json:"dropoff_location" validate:"required"`
	VehicleType     string          `json:"vehicle_type" validate:"required,min=2,max=30"`
	Distance        float64         `json:"distance" validate:"distance"`
	Fare            float64         `json:"fare" validate:"fare_amount"`
	IsPreBooked     bool            `json:"is_pre_booked"`
	PreBookedAt     *time.Time      `json:"pre_booked_at" validate:"required_if=IsPreBooked true"`
}

// DriverActionRequest carries the acting driver's user id for accept,
// complete, cancel and ignore. Handlers fill it from the token for drivers.
type DriverActionRequest struct {
	DriverUserID string `json:"driver_user_id" validate:"omitempty,object_id"`
}

type UpdateRideStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RequestRideRequest struct {
	DriverID string `json:"driver_id" validate:"required,object_id"`
}

func ValidateBookRideRequest(req *BookRideRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if req.PickupLocation == req.DropoffLocation && req.PickupLocation.Address != "" {
		errors = append(errors, ValidationError{
			Field:   "DropoffLocation",
			Tag:     "different",
			Message: "Pickup and dropoff locations must be different",
		})
	}

	if req.IsPreBooked && req.PreBookedAt != nil {
		now := time.Now()
		switch {
		case !req.PreBookedAt.After(now):
			errors = append(errors, ValidationError{
				Field:   "PreBookedAt",
				Tag:     "future_date",
				Message: "Pre-booking time must be in the future",
			})
		case req.PreBookedAt.Sub(now) > utils.MaxPreBookingWindow:
			errors = append(errors, ValidationError{
				Field:   "PreBookedAt",
				Tag:     "max_window",
				Message: "Pre-booking time is too far in the future",
			})
		}
	}

	if !req.IsPreBooked && req.PreBookedAt != nil {
		errors = append(errors, ValidationError{
			Field:   "PreBookedAt",
			Tag:     "excluded_unless",
			Message: "Pre-booking time requires is_pre_booked",
		})
	}

	return errors
}

func ValidateDriverActionRequest(req *DriverActionRequest) ValidationErrors {
	return ValidateStruct(req)
}

// ValidateUpdateRideStatusRequest only checks shape; the allowed target
// statuses are enforced by the ride service.
func ValidateUpdateRideStatusRequest(req *UpdateRideStatusRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateRequestRideRequest(req *RequestRideRequest) ValidationErrors {
	return ValidateStruct(req)
}
