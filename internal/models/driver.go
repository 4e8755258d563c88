package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VerificationStatus string
type DriverAvailability string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"

	DriverAvailable   DriverAvailability = "available"
	DriverUnavailable DriverAvailability = "unavailable"
)

type Vehicle struct {
	Type          string `json:"type" bson:"type"`
	Model         string `json:"model" bson:"model"`
	Number        string `json:"number" bson:"number"`
	LicenseNumber string `json:"license_number" bson:"license_number"`
}

type Driver struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID             primitive.ObjectID  `json:"user_id" bson:"user_id"`
	Vehicle            Vehicle             `json:"vehicle" bson:"vehicle"`
	VerificationID     *primitive.ObjectID `json:"verification_id" bson:"verification_id"`
	VerificationStatus VerificationStatus  `json:"verification_status" bson:"verification_status"`
	Availability       DriverAvailability  `json:"availability" bson:"availability"`
	RedeemPoints       int64               `json:"redeem_points" bson:"redeem_points"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}
