package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Rider struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID             primitive.ObjectID `json:"user_id" bson:"user_id"`
	IsPremium          bool               `json:"is_premium" bson:"is_premium"`
	PremiumExpiry      *time.Time         `json:"premium_expiry" bson:"premium_expiry"`
	FreeRidesRemaining int                `json:"free_rides_remaining" bson:"free_rides_remaining"`
	RedeemPoints       int64              `json:"redeem_points" bson:"redeem_points"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}
