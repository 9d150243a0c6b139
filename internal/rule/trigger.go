package rule

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"autoclip/pkg/errors"
	"autoclip/pkg/logging"
	"autoclip/pkg/metrics"
)

// TriggerOutcome is the per-rule result of an event dispatch. Exactly one
// of Result or Err is set.
type TriggerOutcome struct {
	RuleID string
	Result *ExecutionResult
	Err    error
}

// ErrRateLimited is returned by TriggerByEvent when the user exceeded the
// configured trigger budget. No rules run in that case.
var ErrRateLimited = errors.ErrRateLimit.WithMessage("trigger rate limit exceeded")

// userLimiters keeps one token bucket per user id.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiters(perMinute, burst int) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (u *userLimiters) allow(userID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	l, ok := u.limiters[userID]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[userID] = l
	}
	return l.Allow()
}

// TriggerByEvent finds the user's enabled rules matching the event and runs
// each one. Rules are isolated from each other: a panic or error in one
// rule never prevents the remaining rules from running, and each rule
// receives its own copy of the execution context.
func (e *Engine) TriggerByEvent(ctx context.Context, userID, event string, base ExecutionContext) ([]TriggerOutcome, error) {
	ctx = logging.WithUserID(ctx, userID)

	if e.limiters != nil && !e.limiters.allow(userID) {
		e.logger.WarnwCtx(ctx, "Trigger rate limit exceeded",
			"event", event,
		)
		return nil, ErrRateLimited
	}

	rules, err := e.store.FindEnabledByTrigger(ctx, userID, event)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		e.logger.DebugwCtx(ctx, "No enabled rules for event",
			"event", event,
		)
		return nil, nil
	}

	metrics.TriggeredRulesTotal.WithLabelValues(event).Add(float64(len(rules)))
	e.logger.InfowCtx(ctx, "Event triggered rules",
		"event", event,
		"rule_count", len(rules),
	)

	outcomes := make([]TriggerOutcome, 0, len(rules))
	for _, r := range rules {
		ec := base
		ec.UserID = userID
		ec.Event = event
		ec.ExecutionID = ""

		result, err := e.executeIsolated(ctx, r.ID, ec)
		if err != nil {
			e.logger.ErrorwCtx(ctx, "Triggered rule failed",
				"rule_id", r.ID,
				"event", event,
				"error", err,
			)
		}
		outcomes = append(outcomes, TriggerOutcome{RuleID: r.ID, Result: result, Err: err})
	}

	return outcomes, nil
}

func (e *Engine) executeIsolated(ctx context.Context, ruleID string, ec ExecutionContext) (result *ExecutionResult, err error) {
	defer func() {
		if perr := errors.RecoverPanic(recover()); perr != nil {
			result, err = nil, perr
		}
	}()
	return e.Execute(ctx, ruleID, ec)
}
