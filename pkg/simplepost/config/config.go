// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full configuration of the post service daemon.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	Store StoreConfig
	Kafka KafkaConfig
	Redis RedisConfig
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend    string `env:"STORE_BACKEND" env-default:"memory"`
	MongoURI   string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database   string `env:"MONGO_DATABASE" env-default:"blogs"`
	Collection string `env:"MONGO_COLLECTION" env-default:"posts"`
}

// KafkaConfig configures the broker transport.
type KafkaConfig struct {
	Brokers       string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	CommandsTopic string `env:"KAFKA_COMMANDS_TOPIC" env-default:"posts.commands"`
	EventsTopic   string `env:"KAFKA_EVENTS_TOPIC" env-default:"posts.events"`
	CommandGroup  string `env:"KAFKA_COMMAND_GROUP" env-default:"post-service"`
	EventGroup    string `env:"KAFKA_EVENT_GROUP" env-default:"post-service-events"`
}

// RedisConfig configures the optional command deduplication store. An empty
// address disables deduplication.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR" env-default:""`
}

// Load reads configuration from the environment on top of defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "mongo":
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if len(c.Kafka.BrokerList()) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	return nil
}

// BrokerList splits the comma-separated broker addresses.
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
