package broker

import (
	"context"
	"time"
)

// Content lifecycle events emitted by upstream services. Rules subscribe to
// these through their event triggers; the set is open, unknown events simply
// match no rules.
const (
	EventVideoUploaded      = "video_uploaded"
	EventTranscriptReady    = "transcript_ready"
	EventScenesDetected     = "scenes_detected"
	EventClipCreated        = "clip_created"
	EventPublishCompleted   = "publish_completed"
	EventAudioAnalysisReady = "audio_analysis_ready"
)

// ContentEvent is the wire envelope for one content lifecycle event.
type ContentEvent struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Event     string                 `json:"event"`
	ContentID string                 `json:"content_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type HandlerFunc func(ctx context.Context, event ContentEvent) error

type Producer interface {
	Publish(ctx context.Context, topic string, event ContentEvent) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}
