package mongodb

import (
	"context"

	"ridehub/internal/repositories/interfaces"
	"ridehub/pkg/database"

	"go.mongodb.org/mongo-driver/mongo"
)

type transactionManager struct {
	db      *database.MongoDB
	enabled bool
}

// NewTransactionManager returns a manager that wraps work in a MongoDB session
// transaction when enabled. Standalone servers do not support transactions, so
// the disabled manager runs the work directly.
func NewTransactionManager(db *database.MongoDB, enabled bool) interfaces.TransactionManager {
	return &transactionManager{db: db, enabled: enabled}
}

func (m *transactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.enabled {
		return fn(ctx)
	}

	_, err := m.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
