package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"autoclip/internal/config"
)

type kafkaEnvelope struct {
	UserID       string       `json:"user_id"`
	Notification Notification `json:"notification"`
}

// KafkaNotifier publishes notifications onto the delivery topic; the actual
// fan-out to channels (push, email digests) happens downstream.
type KafkaNotifier struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Async:        false,
	}
	return &KafkaNotifier{writer: w, topic: cfg.NotificationsTopic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, userID string, notification Notification) error {
	body, err := json.Marshal(kafkaEnvelope{UserID: userID, Notification: notification})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(userID),
		Value: body,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
