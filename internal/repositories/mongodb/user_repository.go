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

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
	}
}

// Upsert is a single round trip so concurrent profile creation for the same
// account cannot race on the insert.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()

	set := bson.M{"user_type": user.UserType, "updated_at": now}
	for field, value := range map[string]string{"name": user.Name, "email": user.Email, "phone": user.Phone} {
		if value != "" {
			set[field] = value
		}
	}
	update := bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update, opts).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID.Hex(), err)
	}
	*user = stored
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
