package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers            []string `mapstructure:"brokers"`
	GroupID            string   `mapstructure:"group_id"`
	EventTopic         string   `mapstructure:"event_topic"`
	CommandTopic       string   `mapstructure:"command_topic"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
	DLQTopic           string   `mapstructure:"dlq_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EngineConfig struct {
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Filter         FilterConfig         `mapstructure:"filter"`
	FeatureCache   FeatureCacheConfig   `mapstructure:"feature_cache"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
}

type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

type CircuitBreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
}

type FilterConfig struct {
	BatchSize           int `mapstructure:"batch_size"`
	MaxConcurrentAssets int `mapstructure:"max_concurrent_assets"`
}

type FeatureCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	TriggersPerMinute int `mapstructure:"triggers_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type NotificationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Defaults mirror the engine's documented behavior: 3 retries starting at 1s
// capped at 10s, breaker trips after 5 consecutive failures and probes after
// 60s, filter batches of 50 scenes, at most 5 concurrent assets, 1h feature
// cache TTL.
func Defaults() EngineConfig {
	return EngineConfig{
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
			HalfOpenRequests: 2,
		},
		Filter: FilterConfig{
			BatchSize:           50,
			MaxConcurrentAssets: 5,
		},
		FeatureCache: FeatureCacheConfig{
			TTL: 1 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			TriggersPerMinute: 60,
			Burst:             10,
		},
	}
}
