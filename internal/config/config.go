package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Poll    PollConfig
	Push    PushConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// ServerConfig holds the local surface server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// APIConfig holds the remote notification API configuration
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// PollConfig holds the background polling configuration
type PollConfig struct {
	Interval time.Duration
	PageSize int
}

// PushConfig holds push subscription configuration
type PushConfig struct {
	RelayURL        string
	GrantPermission bool
}

// KafkaConfig holds Kafka specific configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RedisConfig holds Redis specific configuration
type RedisConfig struct {
	Enabled     bool
	URL         string
	Password    string
	DB          int
	SnapshotKey string
	SnapshotTTL time.Duration
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.idleTimeout", "120s")

	// Remote API defaults
	v.SetDefault("api.timeout", "10s")

	// Polling defaults
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("poll.pageSize", 20)

	// Push defaults
	v.SetDefault("push.grantPermission", true)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "notification-delivery")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.snapshotKey", "notisync:feed-snapshot")
	v.SetDefault("redis.snapshotTTL", "24h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
