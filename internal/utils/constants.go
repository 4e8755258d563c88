package utils

import "time"

// Application Constants
const (
	AppName = "ridehub"

	// Authentication
	JWTAccessTokenTTL = 24 * time.Hour

	// Ride Constants
	MaxRideDistance     = 500.0 // kilometers
	MaxPreBookingWindow = 7 * 24 * time.Hour
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
	ErrRiderNotFound    = "rider profile not found"
)

// Cache Keys
const (
	CacheRidePrefix = AppName + ":ride:"
)

// Context keys set by the auth and request-id middleware.
const (
	ContextUserID    = "user_id"
	ContextUserType  = "user_type"
	ContextRequestID = "request_id"
)
