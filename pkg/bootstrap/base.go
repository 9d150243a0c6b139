package bootstrap

import (
	"context"
	"fmt"

	"autoclip/internal/broker"
	"autoclip/internal/config"
	"autoclip/internal/logger"
	"autoclip/pkg/resilience"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitBroker(retryPolicy resilience.Policy) error {
	if len(b.Config.Broker.Kafka.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	b.Producer = broker.NewKafkaProducer(b.Config.Broker.Kafka, b.Logger)
	b.Consumer = broker.NewKafkaConsumer(b.Config.Broker.Kafka, retryPolicy, b.Logger)
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
