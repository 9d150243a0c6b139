package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"autoclip/internal/config"
	"autoclip/internal/logger"
	"autoclip/pkg/errors"
	"autoclip/pkg/logging"
	"autoclip/pkg/metrics"
	"autoclip/pkg/resilience"
)

// KafkaConsumer reads content events and hands them to a HandlerFunc.
// Processing failures are retried with backoff; a message that exhausts its
// retries goes to the DLQ topic so the partition never blocks on a poison
// message.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	retryPolicy resilience.Policy
	wg          sync.WaitGroup
	reader      *kafka.Reader
	dlqProducer Producer
	logger      logger.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, retryPolicy resilience.Policy, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		retryPolicy: retryPolicy,
		logger:      log,
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.InfowCtx(ctx, "Started consuming",
			"topic", topic,
		)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(ctx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}

			var event ContentEvent
			if err := json.Unmarshal(m.Value, &event); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to unmarshal content event",
					"error", err,
					"topic", topic,
				)
				metrics.EventsConsumedTotal.WithLabelValues(topic, "malformed").Inc()
				_ = c.reader.CommitMessages(ctx, m)
				continue
			}

			msgCtx := logging.WithUserID(ctx, event.UserID)
			if event.ContentID != "" {
				msgCtx = logging.WithContentID(msgCtx, event.ContentID)
			}

			if err := c.processWithRetry(msgCtx, event, handler, topic); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to process event after retries",
					"error", err,
					"event", event.Event,
					"topic", topic,
				)
				metrics.EventsConsumedTotal.WithLabelValues(topic, "failure").Inc()
				c.routeToDLQ(msgCtx, event, err, topic)
				_ = c.reader.CommitMessages(ctx, m)
				continue
			}

			metrics.EventsConsumedTotal.WithLabelValues(topic, "success").Inc()
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processWithRetry(ctx context.Context, event ContentEvent, handler HandlerFunc, topic string) error {
	return resilience.RetryWithCallback(ctx, c.retryPolicy, func() (err error) {
		defer func() {
			if perr := errors.RecoverPanic(recover()); perr != nil {
				err = perr
				c.logger.ErrorwCtx(ctx, "Panic recovered during event processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, event)
	}, func(attempt int, err error) {
		c.logger.WarnwCtx(ctx, "Retrying event processing",
			"attempt", attempt,
			"event", event.Event,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) routeToDLQ(ctx context.Context, event ContentEvent, originalErr error, sourceTopic string) {
	if c.dlqProducer == nil || c.cfg.DLQTopic == "" {
		c.logger.WarnwCtx(ctx, "No DLQ configured, dropping event",
			"event", event.Event,
			"topic", sourceTopic,
		)
		return
	}

	if event.Payload == nil {
		event.Payload = make(map[string]interface{})
	}
	event.Payload["dlq_reason"] = originalErr.Error()
	event.Payload["dlq_source_topic"] = sourceTopic
	event.Payload["dlq_timestamp"] = time.Now()

	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, event); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to publish event to DLQ",
			"error", err,
			"topic", sourceTopic,
		)
		return
	}

	metrics.DLQMessagesTotal.WithLabelValues(sourceTopic).Inc()
	c.logger.InfowCtx(ctx, "Event sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)
}
