package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideRepository struct {
	collection *mongo.Collection
	cache      CacheService
	cacheTTL   time.Duration
}

func NewRideRepository(db *mongo.Database, cache CacheService, cacheTTL time.Duration) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// rideDetailsDocument is the shape produced by the expansion pipeline.
type rideDetailsDocument struct {
	models.Ride   `bson:",inline"`
	RiderProfile  *models.Rider  `bson:"rider_profile"`
	RiderUser     *models.User   `bson:"rider_user"`
	DriverProfile *models.Driver `bson:"driver_profile"`
	DriverUser    *models.User   `bson:"driver_user"`
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	if ride := r.getRideFromCache(ctx, id.Hex()); ride != nil {
		return ride, nil
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}

	r.cacheRide(ctx, &ride)

	return &ride, nil
}

func (r *rideRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	if result.DeletedCount == 0 {
		return fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return nil
}

func (r *rideRepository) Transition(ctx context.Context, id primitive.ObjectID, transition models.RideTransition) (*models.Ride, bool, error) {
	now := time.Now()

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": transition.From},
	}
	if transition.DriverID != nil {
		filter["driver"] = *transition.DriverID
	}

	set := bson.M{
		"status":     transition.To,
		"updated_at": now,
	}
	if field := statusTimestampField(transition.To); field != "" {
		set[field] = now
	}
	if transition.SetDriver != nil {
		set["driver"] = *transition.SetDriver
	}
	if transition.ClearDriver {
		set["driver"] = nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to transition ride to %s: %w", transition.To, err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return &ride, true, nil
}

func (r *rideRepository) CancelRequestedByRider(ctx context.Context, riderID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"rider":  riderID,
		"status": models.RideStatusRequested,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to find requested rides: %w", err)
	}
	var ids []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &ids); err != nil {
		return 0, fmt.Errorf("failed to decode requested rides: %w", err)
	}

	now := time.Now()
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":      models.RideStatusCanceled,
		"canceled_at": now,
		"updated_at":  now,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to cancel requested rides: %w", err)
	}

	for _, doc := range ids {
		r.invalidateRideCache(ctx, doc.ID.Hex())
	}

	return result.ModifiedCount, nil
}

func (r *rideRepository) GetDetails(ctx context.Context, id primitive.ObjectID) (*models.RideDetails, error) {
	details, err := r.aggregateDetails(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("ride %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return details[0], nil
}

func (r *rideRepository) ListDetails(ctx context.Context) ([]*models.RideDetails, error) {
	return r.aggregateDetails(ctx, bson.M{})
}

func (r *rideRepository) ListRequested(ctx context.Context, vehicleType string, exclude []primitive.ObjectID) ([]*models.Ride, error) {
	filter := bson.M{"status": models.RideStatusRequested}
	if vehicleType != "" {
		filter["vehicle_type"] = vehicleType
	}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find requested rides: %w", err)
	}
	defer cursor.Close(ctx)

	rides := make([]*models.Ride, 0)
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rides: %w", err)
	}

	return rides, nil
}

// Helper methods
func (r *rideRepository) aggregateDetails(ctx context.Context, match bson.M) ([]*models.RideDetails, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		lookupStage("riders", "rider", "rider_profile"),
		unwindStage("$rider_profile"),
		lookupStage("users", "rider_profile.user_id", "rider_user"),
		unwindStage("$rider_user"),
		lookupStage("drivers", "driver", "driver_profile"),
		unwindStage("$driver_profile"),
		lookupStage("users", "driver_profile.user_id", "driver_user"),
		unwindStage("$driver_user"),
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rides: %w", err)
	}
	defer cursor.Close(ctx)

	details := make([]*models.RideDetails, 0)
	for cursor.Next(ctx) {
		var doc rideDetailsDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode ride details: %w", err)
		}

		item := &models.RideDetails{Ride: doc.Ride}
		if doc.RiderProfile != nil {
			item.RiderInfo = &models.RiderView{Profile: doc.RiderProfile, User: doc.RiderUser}
		}
		if doc.DriverProfile != nil {
			item.DriverInfo = &models.DriverView{Profile: doc.DriverProfile, User: doc.DriverUser}
		}
		details = append(details, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ride details: %w", err)
	}

	return details, nil
}

func lookupStage(from, localField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         from,
		"localField":   localField,
		"foreignField": "_id",
		"as":           as,
	}}}
}

func unwindStage(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.M{
		"path":                       path,
		"preserveNullAndEmptyArrays": true,
	}}}
}

func statusTimestampField(status models.RideStatus) string {
	switch status {
	case models.RideStatusAccepted:
		return "accepted_at"
	case models.RideStatusStarted:
		return "started_at"
	case models.RideStatusReached:
		return "reached_at"
	case models.RideStatusCompleted:
		return "completed_at"
	case models.RideStatusCanceled:
		return "canceled_at"
	}
	return ""
}

// Cache operations
// cacheRide stores only completed and canceled rides. Those never transition
// again, so a read racing a write cannot cache a status that is about to change.
func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache != nil && ride.Status.IsTerminal() {
		r.cache.Set(ctx, utils.CacheRidePrefix+ride.ID.Hex(), ride, r.cacheTTL)
	}
}

func (r *rideRepository) getRideFromCache(ctx context.Context, rideID string) *models.Ride {
	if r.cache == nil {
		return nil
	}

	var ride models.Ride
	if err := r.cache.Get(ctx, utils.CacheRidePrefix+rideID, &ride); err != nil {
		return nil
	}

	return &ride
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, rideID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, utils.CacheRidePrefix+rideID)
	}
}
