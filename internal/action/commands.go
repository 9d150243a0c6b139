package action

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoclip/internal/broker"
	"autoclip/internal/logger"
	"autoclip/internal/scene"
)

// Command event names consumed by the downstream media services.
const (
	CommandCreateClip      = "command.create_clip"
	CommandDetectScenes    = "command.detect_scenes"
	CommandPublishContent  = "command.publish_content"
	CommandUpdateContent   = "command.update_content"
	CommandScheduleJob     = "command.schedule_job"
	CommandSendEmail       = "command.send_email"
	CommandGenerateCaption = "command.generate_captions"
	CommandCreateCarousel  = "command.create_carousel"
	CommandExportAnalytics = "command.export_analytics"
)

// KafkaCommandService fulfils the collaborator interfaces by publishing
// command events for the downstream media services. Each call is accepted
// once the broker acknowledges the write; the actual work happens
// asynchronously in the consuming service.
type KafkaCommandService struct {
	producer broker.Producer
	topic    string
	logger   logger.Logger
}

func NewKafkaCommandService(producer broker.Producer, topic string, log logger.Logger) *KafkaCommandService {
	return &KafkaCommandService{
		producer: producer,
		topic:    topic,
		logger:   log,
	}
}

func (s *KafkaCommandService) publish(ctx context.Context, userID, contentID, command string, payload map[string]interface{}) (string, error) {
	event := broker.ContentEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Event:     command,
		ContentID: contentID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	if err := s.producer.Publish(ctx, s.topic, event); err != nil {
		return "", err
	}

	s.logger.DebugwCtx(ctx, "Command published",
		"command", command,
		"command_id", event.ID,
	)
	return event.ID, nil
}

func (s *KafkaCommandService) CreateClip(ctx context.Context, userID, contentID string, sc scene.Scene) (string, error) {
	return s.publish(ctx, userID, contentID, CommandCreateClip, map[string]interface{}{
		"scene_id": sc.ID,
		"start":    sc.Start,
		"end":      sc.End,
	})
}

func (s *KafkaCommandService) DetectScenes(ctx context.Context, userID, contentID string, sensitivity float64) (int, error) {
	_, err := s.publish(ctx, userID, contentID, CommandDetectScenes, map[string]interface{}{
		"sensitivity": sensitivity,
	})
	// Detection runs asynchronously, the count is unknown until the
	// scenes_detected event comes back.
	return 0, err
}

func (s *KafkaCommandService) Publish(ctx context.Context, userID, contentID, platform, scheduleAt string) (string, error) {
	return s.publish(ctx, userID, contentID, CommandPublishContent, map[string]interface{}{
		"platform":    platform,
		"schedule_at": scheduleAt,
	})
}

func (s *KafkaCommandService) Apply(ctx context.Context, userID, contentID, operation string, fields map[string]interface{}) error {
	_, err := s.publish(ctx, userID, contentID, CommandUpdateContent, map[string]interface{}{
		"operation": operation,
		"fields":    fields,
	})
	return err
}

func (s *KafkaCommandService) Schedule(ctx context.Context, userID, contentID, at, cron string) (string, error) {
	return s.publish(ctx, userID, contentID, CommandScheduleJob, map[string]interface{}{
		"at":   at,
		"cron": cron,
	})
}

func (s *KafkaCommandService) Send(ctx context.Context, to []string, subject, template string, data map[string]interface{}) error {
	_, err := s.publish(ctx, "", "", CommandSendEmail, map[string]interface{}{
		"to":       to,
		"subject":  subject,
		"template": template,
		"data":     data,
	})
	return err
}

func (s *KafkaCommandService) GenerateCaptions(ctx context.Context, userID, contentID, language, style string) (map[string]interface{}, error) {
	commandID, err := s.publish(ctx, userID, contentID, CommandGenerateCaption, map[string]interface{}{
		"language": language,
		"style":    style,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"command_id": commandID, "requested": true}, nil
}

func (s *KafkaCommandService) CreateCarousel(ctx context.Context, userID, contentID string, maxSlides int) (map[string]interface{}, error) {
	commandID, err := s.publish(ctx, userID, contentID, CommandCreateCarousel, map[string]interface{}{
		"max_slides": maxSlides,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"command_id": commandID, "requested": true}, nil
}

func (s *KafkaCommandService) Export(ctx context.Context, userID, format, period string) (string, error) {
	return s.publish(ctx, userID, "", CommandExportAnalytics, map[string]interface{}{
		"format": format,
		"period": period,
	})
}
