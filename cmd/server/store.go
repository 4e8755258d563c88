package main

import (
	"context"
	"fmt"

	"ridehub/internal/config"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/repositories/memory"
	"ridehub/internal/repositories/mongodb"
	"ridehub/pkg/cache"
	"ridehub/pkg/database"
	"ridehub/pkg/logger"
)

// repositories bundles the store selected by STORE_DRIVER.
type repositories struct {
	users        interfaces.UserRepository
	riders       interfaces.RiderRepository
	drivers      interfaces.DriverRepository
	rides        interfaces.RideRepository
	ignoredRides interfaces.IgnoredRideRepository
	transactions interfaces.TransactionManager

	ping  func(ctx context.Context) error
	close func() error
}

func openRepositories(ctx context.Context, cfg *config.Config, redisCache *cache.RedisCache, log *logger.Logger) (*repositories, error) {
	switch cfg.App.StoreDriver {
	case "memory":
		log.Warn("Using the in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:        store.Users(),
			riders:       store.Riders(),
			drivers:      store.Drivers(),
			rides:        store.Rides(),
			ignoredRides: store.IgnoredRides(),
			transactions: store.TransactionManager(),
			ping:         func(context.Context) error { return nil },
			close:        func() error { return nil },
		}, nil

	case "mongodb":
		db, err := database.Connect(ctx, &database.DatabaseConfig{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Database,
			AppName:        cfg.App.Name,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
			MinPoolSize:    cfg.Database.MinPoolSize,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			SocketTimeout:  cfg.Database.SocketTimeout,
		})
		if err != nil {
			return nil, err
		}

		if cfg.Database.Transactions {
			supported, err := db.SupportsTransactions(ctx)
			if err != nil {
				db.Close()
				return nil, err
			}
			if !supported {
				db.Close()
				return nil, fmt.Errorf("MONGODB_TRANSACTIONS is set but %s is not a replica set", cfg.Database.Database)
			}
		}

		if cfg.Database.RunMigrations {
			if err := database.NewMigrator(db.Database, log).Up(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		var rideCache mongodb.CacheService
		if cfg.Redis.Enabled && redisCache != nil {
			rideCache = redisCache
		}

		log.WithFields(map[string]interface{}{
			"database":     cfg.Database.Database,
			"transactions": cfg.Database.Transactions,
			"ride_cache":   rideCache != nil,
		}).Info("Connected to MongoDB")

		return &repositories{
			users:        mongodb.NewUserRepository(db.Database),
			riders:       mongodb.NewRiderRepository(db.Database),
			drivers:      mongodb.NewDriverRepository(db.Database),
			rides:        mongodb.NewRideRepository(db.Database, rideCache, cfg.Redis.RideCacheTTL),
			ignoredRides: mongodb.NewIgnoredRideRepository(db.Database),
			transactions: mongodb.NewTransactionManager(db, cfg.Database.Transactions),
			ping:         db.Ping,
			close:        db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.App.StoreDriver)
	}
}
