package config

import "time"

type PresenceConfig struct {
	// RedisEnabled shares the user -> instance directory through Redis so that
	// notifications reach users connected to another server process.
	RedisEnabled bool          `yaml:"redis_enabled"`
	InstanceID   string        `yaml:"instance_id"`
	EntryTTL     time.Duration `yaml:"entry_ttl"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	RideTopic    string        `yaml:"ride_topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RideConfig struct {
	DriverCancelPenalty int64 `yaml:"driver_cancel_penalty"`
	// AllowCancelFromStarted adds "started" to the source states of the cancel transition.
	AllowCancelFromStarted bool `yaml:"allow_cancel_from_started"`
	// WelcomeFreeRides is the free-ride allotment of a new rider profile.
	WelcomeFreeRides int `yaml:"welcome_free_rides"`
}

func loadPresenceConfig() *PresenceConfig {
	return &PresenceConfig{
		RedisEnabled: getEnvAsBool("PRESENCE_REDIS_ENABLED", false),
		InstanceID:   getEnv("PRESENCE_INSTANCE_ID", ""),
		EntryTTL:     getEnvAsDuration("PRESENCE_ENTRY_TTL", 24*time.Hour),
	}
}

func loadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Enabled:      getEnvAsBool("KAFKA_ENABLED", false),
		Brokers:      getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		RideTopic:    getEnv("KAFKA_RIDE_TOPIC", "ride-events"),
		WriteTimeout: getEnvAsDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
	}
}

func loadRideConfig() *RideConfig {
	return &RideConfig{
		DriverCancelPenalty:    int64(getEnvAsInt("RIDE_DRIVER_CANCEL_PENALTY", 5)),
		AllowCancelFromStarted: getEnvAsBool("RIDE_ALLOW_CANCEL_FROM_STARTED", false),
		WelcomeFreeRides:       getEnvAsInt("RIDE_WELCOME_FREE_RIDES", 3),
	}
}
