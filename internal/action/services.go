package action

import (
	"context"

	"autoclip/internal/scene"
)

// Collaborator services the handlers delegate to. Each call is one unit of
// work from the fault tolerance layer's point of view: implementations
// should return quickly and leave retrying to the dispatcher.

// ClipService creates clips from scenes of a content asset.
type ClipService interface {
	CreateClip(ctx context.Context, userID, contentID string, s scene.Scene) (clipID string, err error)
}

// CaptionService generates captions for a content asset.
type CaptionService interface {
	GenerateCaptions(ctx context.Context, userID, contentID, language, style string) (map[string]interface{}, error)
}

// CarouselService builds slide carousels from a content asset.
type CarouselService interface {
	CreateCarousel(ctx context.Context, userID, contentID string, maxSlides int) (map[string]interface{}, error)
}

// ExportService exports a rule's analytics history.
type ExportService interface {
	Export(ctx context.Context, userID, format, period string) (location string, err error)
}

// SceneDetector runs scene detection on a content asset.
type SceneDetector interface {
	DetectScenes(ctx context.Context, userID, contentID string, sensitivity float64) (sceneCount int, err error)
}

// MusicService recommends and generates background music. Generation is
// asynchronous: EnqueueStatusCheck schedules a later poll of the provider.
type MusicService interface {
	Recommend(ctx context.Context, userID, contentID string, params map[string]interface{}) ([]string, error)
	Generate(ctx context.Context, userID, contentID, provider string, params map[string]interface{}) (jobID string, err error)
	EnqueueStatusCheck(ctx context.Context, userID, jobID string) error
}

// WebhookSender delivers an outbound webhook call.
type WebhookSender interface {
	Send(ctx context.Context, url, method string, headers map[string]string, body map[string]interface{}) (statusCode int, err error)
}

// EmailSender delivers templated email.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, template string, data map[string]interface{}) error
}

// Publisher publishes or schedules a content asset on a platform.
type Publisher interface {
	Publish(ctx context.Context, userID, contentID, platform, scheduleAt string) (postID string, err error)
}

// ContentService applies field updates and lifecycle operations to a
// content asset.
type ContentService interface {
	Apply(ctx context.Context, userID, contentID, operation string, fields map[string]interface{}) error
}

// Scheduler registers a one-shot or recurring follow-up job for an asset.
type Scheduler interface {
	Schedule(ctx context.Context, userID, contentID, at, cron string) (jobID string, err error)
}
