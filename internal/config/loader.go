package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.event_topic", "BROKER_KAFKA_EVENT_TOPIC")
	viper.BindEnv("broker.kafka.command_topic", "BROKER_KAFKA_COMMAND_TOPIC")
	viper.BindEnv("broker.kafka.notifications_topic", "BROKER_KAFKA_NOTIFICATIONS_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func setDefaults() {
	defaults := Defaults()

	viper.SetDefault("engine.retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("engine.retry.initial_delay", defaults.Retry.InitialDelay)
	viper.SetDefault("engine.retry.max_delay", defaults.Retry.MaxDelay)
	viper.SetDefault("engine.retry.multiplier", defaults.Retry.Multiplier)

	viper.SetDefault("engine.circuit_breaker.failure_threshold", defaults.CircuitBreaker.FailureThreshold)
	viper.SetDefault("engine.circuit_breaker.reset_timeout", defaults.CircuitBreaker.ResetTimeout)
	viper.SetDefault("engine.circuit_breaker.half_open_requests", defaults.CircuitBreaker.HalfOpenRequests)

	viper.SetDefault("engine.filter.batch_size", defaults.Filter.BatchSize)
	viper.SetDefault("engine.filter.max_concurrent_assets", defaults.Filter.MaxConcurrentAssets)

	viper.SetDefault("engine.feature_cache.ttl", defaults.FeatureCache.TTL)

	viper.SetDefault("engine.rate_limit.triggers_per_minute", defaults.RateLimit.TriggersPerMinute)
	viper.SetDefault("engine.rate_limit.burst", defaults.RateLimit.Burst)

	viper.SetDefault("broker.kafka.command_topic", "media.commands")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("notifications.enabled", true)
}
