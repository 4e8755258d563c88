package memory

import (
	"context"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.UpdatedAt = time.Now()
	if existing, ok := r.store.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
		user.Name = firstNonEmpty(user.Name, existing.Name)
		user.Email = firstNonEmpty(user.Email, existing.Email)
		user.Phone = firstNonEmpty(user.Phone, existing.Phone)
	} else {
		user.CreatedAt = user.UpdatedAt
	}
	r.store.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), utils.ErrDocumentNotFound)
	}
	return copyUser(user), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
