package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IgnoredRide records that a driver declined a ride request.
type IgnoredRide struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Ride      primitive.ObjectID `json:"ride" bson:"ride"`
	Driver    primitive.ObjectID `json:"driver" bson:"driver"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
