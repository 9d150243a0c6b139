package notify

import (
	"context"
	"time"

	"autoclip/internal/logger"
)

// Notification is a user-facing message produced by the engine.
type Notification struct {
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Kind    string                 `json:"type"`
	Data    map[string]interface{} `json:"data,omitempty"`
	SentAt  time.Time              `json:"sent_at"`
}

// Notifier delivers notifications to a user. Delivery is best-effort: the
// engine wraps every call in BestEffort, so a returned error is logged and
// discarded, never propagated into a rule run.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification) error
}

// BestEffort sends through n and swallows the error. This is the only way
// the engine invokes a Notifier.
func BestEffort(ctx context.Context, n Notifier, log logger.Logger, userID string, notification Notification) {
	if n == nil {
		return
	}
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now()
	}
	if err := n.Notify(ctx, userID, notification); err != nil {
		log.WarnwCtx(ctx, "Notification delivery failed, continuing",
			"user_id", userID,
			"title", notification.Title,
			"error", err,
		)
	}
}

// NopNotifier discards everything; used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, Notification) error { return nil }
