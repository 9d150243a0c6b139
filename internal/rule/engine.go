package rule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoclip/internal/analytics"
	"autoclip/internal/logger"
	"autoclip/internal/notify"
	"autoclip/internal/scene"
	"autoclip/pkg/errors"
	"autoclip/pkg/logging"
	"autoclip/pkg/metrics"
)

// ActionDispatcher routes one action to its handler through the fault
// tolerance layer. Implemented by the action package.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, action Action, ec *ExecutionContext) (map[string]interface{}, error)
}

// Engine orchestrates a rule run: load, evaluate conditions, dispatch the
// action chain, merge stats back, and record analytics. Actions run
// sequentially, later actions may depend on earlier side effects; a failed
// action is recorded and does not abort the rest of the chain.
type Engine struct {
	store      Store
	scenes     scene.Store
	dispatcher ActionDispatcher
	conditions *ConditionEvaluator
	recorder   *analytics.Recorder
	notifier   notify.Notifier
	limiters   *userLimiters
	logger     logger.Logger
}

type EngineOption func(*Engine)

// WithNotifier enables best-effort user notifications on failed runs.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithTriggerRateLimit bounds how often one user's events can trigger rule
// runs.
func WithTriggerRateLimit(perMinute, burst int) EngineOption {
	return func(e *Engine) { e.limiters = newUserLimiters(perMinute, burst) }
}

func NewEngine(store Store, scenes scene.Store, dispatcher ActionDispatcher, recorder *analytics.Recorder, log logger.Logger, opts ...EngineOption) (*Engine, error) {
	conditions, err := NewConditionEvaluator(log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:      store,
		scenes:     scenes,
		dispatcher: dispatcher,
		conditions: conditions,
		recorder:   recorder,
		logger:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs one rule against the given context. The caller's context
// copy is never shared with other rule executions.
func (e *Engine) Execute(ctx context.Context, ruleID string, ec ExecutionContext) (*ExecutionResult, error) {
	start := time.Now()

	if ec.ExecutionID == "" {
		ec.ExecutionID = uuid.NewString()
	}
	ctx = logging.WithRuleID(ctx, ruleID)
	ctx = logging.WithExecutionID(ctx, ec.ExecutionID)
	if ec.ContentID != "" {
		ctx = logging.WithContentID(ctx, ec.ContentID)
	}

	r, err := e.store.FindByID(ctx, ruleID)
	if err != nil {
		metrics.ObserveRuleExecution(time.Since(start), "load_error")
		return nil, err
	}

	if !r.Enabled {
		metrics.ObserveRuleExecution(time.Since(start), "disabled")
		return nil, errors.ErrValidation.WithMessagef("automation rule %s is disabled", ruleID)
	}

	result := &ExecutionResult{RuleID: ruleID, ExecutionID: ec.ExecutionID}

	if err := e.loadScenes(ctx, r, &ec); err != nil {
		e.registerRunFailure(ctx, ruleID, err)
		metrics.ObserveRuleExecution(time.Since(start), "error")
		return nil, err
	}

	if len(r.Conditions) > 0 {
		met, err := e.conditions.Evaluate(ctx, r.Conditions, &ec)
		if err != nil {
			e.registerRunFailure(ctx, ruleID, err)
			metrics.ObserveRuleExecution(time.Since(start), "error")
			return nil, err
		}
		if !met {
			e.logger.DebugwCtx(ctx, "Rule conditions not met, skipping actions")
			result.Reason = "conditions not met"
			result.Duration = time.Since(start)
			metrics.ObserveRuleExecution(result.Duration, "skipped")
			return result, nil
		}
	}

	result.Executed = true
	counters := e.runActions(ctx, r, &ec, result)
	result.Duration = time.Since(start)

	failed := result.FailedActions()
	delta := StatsDelta{
		Executions:   1,
		Successes:    1,
		Failures:     int64(failed),
		LastExecuted: time.Now(),
	}
	if failed == 0 {
		delta.FullSuccesses = 1
	} else {
		delta.LastError = lastActionError(result)
	}

	if err := e.store.ApplyStats(ctx, ruleID, delta); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to persist rule stats",
			"error", err,
		)
		metrics.ObserveRuleExecution(result.Duration, "error")
		return result, err
	}

	e.trackAnalytics(ctx, ruleID, result, counters, &ec)
	e.notifyOnFailure(ctx, r, result)

	status := "success"
	if failed > 0 {
		status = "partial_failure"
	}
	metrics.ObserveRuleExecution(result.Duration, status)

	e.logger.InfowCtx(ctx, "Rule execution completed",
		"actions", len(result.Actions),
		"failed_actions", failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// loadScenes fetches the asset's scenes when the rule consults audio data
// and the trigger did not already carry them.
func (e *Engine) loadScenes(ctx context.Context, r *Rule, ec *ExecutionContext) error {
	if len(ec.Scenes) > 0 || ec.ContentID == "" || e.scenes == nil || !r.NeedsScenes() {
		return nil
	}

	scenes, err := e.scenes.FindScenesForAsset(ctx, ec.ContentID, ec.UserID)
	if err != nil {
		return fmt.Errorf("failed to load scenes for %s: %w", ec.ContentID, err)
	}
	ec.Scenes = scenes
	return nil
}

type runCounters struct {
	scenesProcessed int
	scenesFiltered  int
	clipsCreated    int
}

func (e *Engine) runActions(ctx context.Context, r *Rule, ec *ExecutionContext, result *ExecutionResult) runCounters {
	var counters runCounters

	for i := range r.Actions {
		a := r.Actions[i]

		actionResult, err := e.dispatcher.Dispatch(ctx, a, ec)
		if err != nil {
			classified := errors.Classify(err)
			e.logger.WarnwCtx(ctx, "Action failed",
				"action_type", a.Type,
				"action_index", i,
				"error_code", classified.Code,
				"error", err,
			)
			result.Actions = append(result.Actions, ActionResult{
				ActionType: a.Type,
				Success:    false,
				Error:      errors.Message(err),
			})
			metrics.ActionExecutionsTotal.WithLabelValues(string(a.Type), "failure").Inc()
			continue
		}

		result.Actions = append(result.Actions, ActionResult{
			ActionType: a.Type,
			Success:    true,
			Result:     actionResult,
		})
		metrics.ActionExecutionsTotal.WithLabelValues(string(a.Type), "success").Inc()

		counters.scenesProcessed += intFromResult(actionResult, "scenes_processed")
		counters.scenesFiltered += intFromResult(actionResult, "scenes_filtered")
		counters.clipsCreated += intFromResult(actionResult, "clips_created")
	}

	return counters
}

func (e *Engine) trackAnalytics(ctx context.Context, ruleID string, result *ExecutionResult, counters runCounters, ec *ExecutionContext) {
	if e.recorder == nil {
		return
	}

	entry := analytics.ExecutionEntry{
		Timestamp:       time.Now(),
		DurationMs:      result.Duration.Milliseconds(),
		ScenesProcessed: counters.scenesProcessed,
		ScenesFiltered:  counters.scenesFiltered,
		ClipsCreated:    counters.clipsCreated,
		Success:         result.FailedActions() == 0,
	}
	if counters.scenesProcessed == 0 && len(ec.Scenes) > 0 {
		entry.ScenesProcessed = len(ec.Scenes)
	}

	if err := e.recorder.Track(ctx, ruleID, entry); err != nil {
		e.logger.WarnwCtx(ctx, "Failed to track execution analytics, continuing",
			"error", err,
		)
	}
}

func (e *Engine) notifyOnFailure(ctx context.Context, r *Rule, result *ExecutionResult) {
	failed := result.FailedActions()
	if failed == 0 {
		return
	}

	notify.BestEffort(ctx, e.notifier, e.logger, r.UserID, notify.Notification{
		Title:   "Automation rule had failures",
		Message: fmt.Sprintf("Rule %q completed with %d of %d actions failing", r.Name, failed, len(result.Actions)),
		Kind:    "automation_failure",
		Data: map[string]interface{}{
			"rule_id":      r.ID,
			"execution_id": result.ExecutionID,
		},
	})
}

// registerRunFailure records an error that escaped the run before the
// action loop; the error itself still propagates to the caller.
func (e *Engine) registerRunFailure(ctx context.Context, ruleID string, runErr error) {
	if err := e.store.RecordFailure(ctx, ruleID, runErr.Error()); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to record run failure",
			"run_error", runErr,
			"error", err,
		)
	}
}

func lastActionError(result *ExecutionResult) string {
	for i := len(result.Actions) - 1; i >= 0; i-- {
		if !result.Actions[i].Success {
			return result.Actions[i].Error
		}
	}
	return ""
}

func intFromResult(result map[string]interface{}, key string) int {
	if result == nil {
		return 0
	}
	if f, ok := toFloat(result[key]); ok {
		return int(f)
	}
	return 0
}
