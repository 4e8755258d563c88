package config

import (
	"errors"
	"time"
)

// DatabaseConfig configures the MongoDB document store.
type DatabaseConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	MaxPoolSize    int           `yaml:"max_pool_size"`
	MinPoolSize    int           `yaml:"min_pool_size"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SocketTimeout  time.Duration `yaml:"socket_timeout"`
	// Transactions wraps multi-step ride operations in a session transaction.
	// The deployment must be a replica set.
	Transactions  bool `yaml:"transactions"`
	RunMigrations bool `yaml:"run_migrations"`
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/ridehub"),
		Database:       getEnv("MONGODB_DATABASE", "ridehub"),
		MaxPoolSize:    getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:    getEnvAsInt("MONGODB_MIN_POOL_SIZE", 5),
		ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:  getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
		Transactions:   getEnvAsBool("MONGODB_TRANSACTIONS", false),
		RunMigrations:  getEnvAsBool("MONGODB_RUN_MIGRATIONS", true),
	}
}

func (c *DatabaseConfig) validate() error {
	var errs []error
	if c.URI == "" {
		errs = append(errs, errors.New("MONGODB_URI is empty"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("MONGODB_DATABASE is empty"))
	}
	if c.MaxPoolSize > 0 && c.MinPoolSize > c.MaxPoolSize {
		errs = append(errs, errors.New("MONGODB_MIN_POOL_SIZE exceeds MONGODB_MAX_POOL_SIZE"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("MONGODB_CONNECT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
