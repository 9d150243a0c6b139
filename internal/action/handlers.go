package action

import (
	"context"

	"autoclip/internal/notify"
	"autoclip/internal/rule"
	"autoclip/pkg/errors"
)

// The generic handlers below unwrap the typed config and delegate to a
// collaborator service. The dispatcher validated the config at rule-load
// time, so the type assertions here cannot fail for known action types.

func NewContentHandler(svc ContentService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.ContentConfig](a)
		if err != nil {
			return nil, err
		}
		if err := svc.Apply(ctx, ec.UserID, ec.ContentID, cfg.Operation, cfg.Fields); err != nil {
			return nil, err
		}
		return map[string]interface{}{"operation": cfg.Operation}, nil
	})
}

func NewPublishHandler(svc Publisher) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.PublishConfig](a)
		if err != nil {
			return nil, err
		}
		postID, err := svc.Publish(ctx, ec.UserID, ec.ContentID, cfg.Platform, cfg.ScheduleAt)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"platform": cfg.Platform, "post_id": postID}, nil
	})
}

func NewScheduleHandler(svc Scheduler) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.ScheduleConfig](a)
		if err != nil {
			return nil, err
		}
		jobID, err := svc.Schedule(ctx, ec.UserID, ec.ContentID, cfg.At, cfg.Cron)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"job_id": jobID}, nil
	})
}

func NewNotifyHandler(n notify.Notifier) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.NotifyConfig](a)
		if err != nil {
			return nil, err
		}
		notification := notify.Notification{
			Title:   cfg.Title,
			Message: cfg.Message,
			Kind:    cfg.Kind,
			Data:    map[string]interface{}{"content_id": ec.ContentID},
		}
		if err := n.Notify(ctx, ec.UserID, notification); err != nil {
			return nil, err
		}
		return map[string]interface{}{"notified": true}, nil
	})
}

func NewWebhookHandler(svc WebhookSender) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.WebhookConfig](a)
		if err != nil {
			return nil, err
		}
		method := cfg.Method
		if method == "" {
			method = "POST"
		}
		status, err := svc.Send(ctx, cfg.URL, method, cfg.Headers, map[string]interface{}{
			"event":      ec.Event,
			"user_id":    ec.UserID,
			"content_id": ec.ContentID,
			"payload":    ec.Payload,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status_code": status}, nil
	})
}

func NewEmailHandler(svc EmailSender) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.EmailConfig](a)
		if err != nil {
			return nil, err
		}
		data := map[string]interface{}{
			"event":      ec.Event,
			"content_id": ec.ContentID,
		}
		if err := svc.Send(ctx, cfg.To, cfg.Subject, cfg.Template, data); err != nil {
			return nil, err
		}
		return map[string]interface{}{"recipients": len(cfg.To)}, nil
	})
}

func NewSceneDetectionHandler(svc SceneDetector) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.SceneDetectionConfig](a)
		if err != nil {
			return nil, err
		}
		count, err := svc.DetectScenes(ctx, ec.UserID, ec.ContentID, cfg.Sensitivity)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"scene_count": count}, nil
	})
}

func NewClipCreationHandler(svc ClipService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.ClipCreationConfig](a)
		if err != nil {
			return nil, err
		}

		var clips []string
		for i := range ec.Scenes {
			s := &ec.Scenes[i]
			length := s.Length()
			if cfg.MinDuration > 0 && length < cfg.MinDuration {
				continue
			}
			if cfg.MaxDuration > 0 && length > cfg.MaxDuration {
				continue
			}
			clipID, err := svc.CreateClip(ctx, ec.UserID, ec.ContentID, *s)
			if err != nil {
				return nil, err
			}
			clips = append(clips, clipID)
			if cfg.MaxClips > 0 && len(clips) >= cfg.MaxClips {
				break
			}
		}

		return map[string]interface{}{
			"clips_created":    len(clips),
			"clip_ids":         clips,
			"scenes_processed": len(ec.Scenes),
		}, nil
	})
}

func NewCaptionHandler(svc CaptionService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.CaptionConfig](a)
		if err != nil {
			return nil, err
		}
		return svc.GenerateCaptions(ctx, ec.UserID, ec.ContentID, cfg.Language, cfg.Style)
	})
}

func NewCarouselHandler(svc CarouselService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.CarouselConfig](a)
		if err != nil {
			return nil, err
		}
		return svc.CreateCarousel(ctx, ec.UserID, ec.ContentID, cfg.MaxSlides)
	})
}

func NewAnalyticsExportHandler(svc ExportService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.AnalyticsExportConfig](a)
		if err != nil {
			return nil, err
		}
		location, err := svc.Export(ctx, ec.UserID, cfg.Format, cfg.Period)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"location": location}, nil
	})
}

func NewMusicGenerationHandler(svc MusicService) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.MusicGenerationConfig](a)
		if err != nil {
			return nil, err
		}

		recommendations, err := svc.Recommend(ctx, ec.UserID, ec.ContentID, cfg.Params)
		if err != nil {
			return nil, err
		}

		jobID, err := svc.Generate(ctx, ec.UserID, ec.ContentID, cfg.Provider, cfg.Params)
		if err != nil {
			return nil, err
		}
		if err := svc.EnqueueStatusCheck(ctx, ec.UserID, jobID); err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"job_id":          jobID,
			"recommendations": recommendations,
		}, nil
	})
}

func decoded[T rule.ActionConfig](a rule.Action) (T, error) {
	var zero T
	cfg, err := a.Decoded()
	if err != nil {
		return zero, err
	}
	typed, ok := cfg.(T)
	if !ok {
		return zero, errors.ErrValidation.WithMessagef("unexpected config type for %s action", a.Type)
	}
	return typed, nil
}
