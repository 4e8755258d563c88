package config

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// RedisConfig backs the ride read-through cache and the shared presence
// directory.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RideCacheTTL bounds how long a cached ride may be served after a write
	// from another instance.
	RideCacheTTL time.Duration `yaml:"ride_cache_ttl"`
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Enabled:      getEnvAsBool("REDIS_ENABLED", false),
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 3),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RideCacheTTL: getEnvAsDuration("REDIS_RIDE_CACHE_TTL", 15*time.Minute),
	}
}

func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *RedisConfig) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("REDIS_PORT is out of range"))
	}
	if c.RideCacheTTL <= 0 {
		errs = append(errs, errors.New("REDIS_RIDE_CACHE_TTL must be positive"))
	}
	return errors.Join(errs...)
}
