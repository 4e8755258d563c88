package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Database  *DatabaseConfig  `yaml:"database"`
	Redis     *RedisConfig     `yaml:"redis"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Security  *SecurityConfig  `yaml:"security"`
	Presence  *PresenceConfig  `yaml:"presence"`
	Kafka     *KafkaConfig     `yaml:"kafka"`
	Ride      *RideConfig      `yaml:"ride"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogOutput   string `yaml:"log_output"`
	// StoreDriver selects the document store: "mongodb" or "memory".
	StoreDriver     string        `yaml:"store_driver"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

type SecurityConfig struct {
	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

func Load() (*Config, error) {
	config := &Config{
		App:       loadAppConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		WebSocket: loadWebSocketConfig(),
		Security:  loadSecurityConfig(),
		Presence:  loadPresenceConfig(),
		Kafka:     loadKafkaConfig(),
		Ride:      loadRideConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

const defaultJWTSecret = "your-super-secret-jwt-key"

// Validate reports every problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.StoreDriver {
	case "memory":
	case "mongodb":
		errs = append(errs, c.Database.validate())
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongodb, memory", c.App.StoreDriver))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, errors.New("APP_PORT is out of range"))
	}
	if c.Security.JWTSecret == "" || (c.App.IsProduction() && c.Security.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.RedisRequired() {
		errs = append(errs, c.Redis.validate())
	}
	if c.Presence.RedisEnabled && c.Presence.EntryTTL <= 0 {
		errs = append(errs, errors.New("PRESENCE_ENTRY_TTL must be positive"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is empty"))
	}
	if c.Ride.DriverCancelPenalty < 0 {
		errs = append(errs, errors.New("RIDE_DRIVER_CANCEL_PENALTY must not be negative"))
	}
	if c.Ride.WelcomeFreeRides < 0 {
		errs = append(errs, errors.New("RIDE_WELCOME_FREE_RIDES must not be negative"))
	}

	return errors.Join(errs...)
}

// RedisRequired reports whether any component needs a Redis connection.
func (c *Config) RedisRequired() bool {
	return c.Redis.Enabled || c.Presence.RedisEnabled
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:            getEnv("APP_NAME", "ridehub"),
		Version:         getEnv("APP_VERSION", "1.0.0"),
		Environment:     getEnv("APP_ENV", "development"),
		Port:            getEnvAsInt("APP_PORT", 8080),
		Host:            getEnv("APP_HOST", "0.0.0.0"),
		Debug:           getEnvAsBool("APP_DEBUG", true),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogOutput:       getEnv("LOG_OUTPUT", "stdout"),
		StoreDriver:     getEnv("STORE_DRIVER", "mongodb"),
		ShutdownTimeout: getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		MetricsEnabled:  getEnvAsBool("METRICS_ENABLED", true),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
