package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehub/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
}

// Migrator applies index migrations in version order and records the last
// applied version in the migrations collection.
type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log,
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users indexes",
			Up:          createUsersIndexes,
		},
		{
			Version:     2,
			Description: "Create rider and driver profile indexes",
			Up:          createProfileIndexes,
		},
		{
			Version:     3,
			Description: "Create rides indexes",
			Up:          createRidesIndexes,
		},
		{
			Version:     4,
			Description: "Create ignored rides indexes",
			Up:          createIgnoredRidesIndexes,
		},
	}
}

func createUsersIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user_type", Value: 1}},
		},
	}

	_, err := db.Collection("users").Indexes().CreateMany(ctx, indexes)
	return err
}

// Profiles are 1:1 with accounts.
func createProfileIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("riders").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("drivers").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "vehicle.type", Value: 1}},
		},
	})
	return err
}

func createRidesIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "rider", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "driver", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "vehicle_type", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := db.Collection("rides").Indexes().CreateMany(ctx, indexes)
	return err
}

func createIgnoredRidesIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "driver", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "ride", Value: 1}},
		},
	}

	_, err := db.Collection("ignored_rides").Indexes().CreateMany(ctx, indexes)
	return err
}
