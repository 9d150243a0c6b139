package config

import (
	"fmt"
)

func Validate(cfg *Config) error {
	if cfg.Database.MongoDB.URI == "" {
		return fmt.Errorf("database.mongodb.uri is required")
	}
	if cfg.Database.MongoDB.Database == "" {
		return fmt.Errorf("database.mongodb.database is required")
	}

	if len(cfg.Broker.Kafka.Brokers) == 0 {
		return fmt.Errorf("broker.kafka.brokers is required")
	}
	if cfg.Broker.Kafka.EventTopic == "" {
		return fmt.Errorf("broker.kafka.event_topic is required")
	}

	if cfg.Engine.Retry.MaxRetries < 0 {
		return fmt.Errorf("engine.retry.max_retries must not be negative")
	}
	if cfg.Engine.Retry.Multiplier < 1 {
		return fmt.Errorf("engine.retry.multiplier must be >= 1")
	}
	if cfg.Engine.Retry.MaxDelay < cfg.Engine.Retry.InitialDelay {
		return fmt.Errorf("engine.retry.max_delay must be >= initial_delay")
	}

	if cfg.Engine.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("engine.circuit_breaker.failure_threshold must be > 0")
	}
	if cfg.Engine.CircuitBreaker.HalfOpenRequests == 0 {
		return fmt.Errorf("engine.circuit_breaker.half_open_requests must be > 0")
	}

	if cfg.Engine.Filter.BatchSize <= 0 {
		return fmt.Errorf("engine.filter.batch_size must be > 0")
	}
	if cfg.Engine.Filter.MaxConcurrentAssets <= 0 {
		return fmt.Errorf("engine.filter.max_concurrent_assets must be > 0")
	}

	return nil
}
