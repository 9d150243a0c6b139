package broker

import (
	"context"

	"autoclip/internal/logger"
	"autoclip/internal/rule"
	"autoclip/pkg/errors"
)

// EngineHandler bridges consumed content events into the rule engine. Rule
// failures are already isolated and recorded by the engine, so the handler
// only reports errors that prevented dispatch entirely.
func EngineHandler(engine *rule.Engine, log logger.Logger) HandlerFunc {
	return func(ctx context.Context, event ContentEvent) error {
		if event.UserID == "" || event.Event == "" {
			return errors.ErrValidation.WithMessage("content event missing user_id or event name")
		}

		ec := rule.ExecutionContext{
			ContentID: event.ContentID,
			Payload:   event.Payload,
		}

		outcomes, err := engine.TriggerByEvent(ctx, event.UserID, event.Event, ec)
		if err != nil {
			if errors.Is(err, errors.ErrRateLimit) {
				log.WarnwCtx(ctx, "Event dropped by trigger rate limit",
					"event", event.Event,
				)
				return nil
			}
			return err
		}

		for _, outcome := range outcomes {
			if outcome.Err != nil {
				log.WarnwCtx(ctx, "Triggered rule did not complete",
					"rule_id", outcome.RuleID,
					"event", event.Event,
					"error", outcome.Err,
				)
			}
		}
		return nil
	}
}
