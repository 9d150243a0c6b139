package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclip/internal/logger"
	"autoclip/internal/rule"
	"autoclip/pkg/errors"
	"autoclip/pkg/resilience"
)

func testRegistry() *resilience.Registry {
	return resilience.NewRegistry(resilience.Policy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   1.5,
	}, resilience.DefaultBreakerConfig(""))
}

func loadedAction(t *testing.T, typ rule.ActionType, config map[string]interface{}) rule.Action {
	t.Helper()
	r := rule.Rule{Actions: []rule.Action{{Type: typ, Config: config}}}
	r.DecodeActions()
	return r.Actions[0]
}

func TestDispatchUnknownActionType(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())

	_, err := d.Dispatch(context.Background(), rule.Action{Type: "unknown_action"}, &rule.ExecutionContext{})
	require.Error(t, err)
	assert.Equal(t, "Unknown action type: unknown_action", errors.Message(err))
	assert.True(t, errors.IsValidation(err))
}

func TestDispatchMissingHandler(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())

	a := loadedAction(t, rule.ActionMusicGeneration, map[string]interface{}{"provider": "suno"})
	_, err := d.Dispatch(context.Background(), a, &rule.ExecutionContext{})
	require.Error(t, err)
	assert.Contains(t, errors.Message(err), "not available in this deployment")
	assert.True(t, errors.IsValidation(err))
}

func TestDispatchInvalidConfig(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())
	d.Register(rule.ActionWebhook, HandlerFunc(func(context.Context, rule.Action, *rule.ExecutionContext) (map[string]interface{}, error) {
		t.Fatal("handler must not run for invalid config")
		return nil, nil
	}))

	// Webhook config without a URL fails validation at load time.
	a := loadedAction(t, rule.ActionWebhook, map[string]interface{}{"method": "POST"})
	_, err := d.Dispatch(context.Background(), a, &rule.ExecutionContext{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, errors.Message(err), "invalid webhook config")
}

func TestDispatchPassesResultThrough(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())
	var gotConfig *rule.NotifyConfig
	d.Register(rule.ActionNotify, HandlerFunc(func(_ context.Context, a rule.Action, _ *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := a.Decoded()
		require.NoError(t, err)
		gotConfig = cfg.(*rule.NotifyConfig)
		return map[string]interface{}{"notified": true}, nil
	}))

	a := loadedAction(t, rule.ActionNotify, map[string]interface{}{"title": "Done", "message": "clips ready"})
	result, err := d.Dispatch(context.Background(), a, &rule.ExecutionContext{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"notified": true}, result)
	require.NotNil(t, gotConfig)
	assert.Equal(t, "Done", gotConfig.Title)
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())
	var calls int
	d.Register(rule.ActionWebhook, HandlerFunc(func(context.Context, rule.Action, *rule.ExecutionContext) (map[string]interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.ErrNetwork.WithMessage("endpoint unreachable")
		}
		return map[string]interface{}{"status": 200}, nil
	}))

	a := loadedAction(t, rule.ActionWebhook, map[string]interface{}{"url": "https://example.com/hook"})
	result, err := d.Dispatch(context.Background(), a, &rule.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, map[string]interface{}{"status": 200}, result)
}

func TestDispatchDoesNotRetryValidationFailures(t *testing.T) {
	d := NewDispatcher(testRegistry(), logger.NopLogger())
	var calls int
	d.Register(rule.ActionEmail, HandlerFunc(func(context.Context, rule.Action, *rule.ExecutionContext) (map[string]interface{}, error) {
		calls++
		return nil, errors.ErrValidation.WithMessage("recipient rejected")
	}))

	a := loadedAction(t, rule.ActionEmail, map[string]interface{}{"to": []string{"user@example.com"}, "subject": "hi"})
	_, err := d.Dispatch(context.Background(), a, &rule.ExecutionContext{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "recipient rejected", errors.Message(err))
}

func TestDispatchBreakersAreIsolatedPerType(t *testing.T) {
	registry := testRegistry()
	d := NewDispatcher(registry, logger.NopLogger())
	d.Register(rule.ActionWebhook, HandlerFunc(func(context.Context, rule.Action, *rule.ExecutionContext) (map[string]interface{}, error) {
		return nil, errors.ErrNetwork.WithMessage("down").AsFatal()
	}))
	d.Register(rule.ActionNotify, HandlerFunc(func(context.Context, rule.Action, *rule.ExecutionContext) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	}))

	webhook := loadedAction(t, rule.ActionWebhook, map[string]interface{}{"url": "https://example.com/hook"})
	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(context.Background(), webhook, &rule.ExecutionContext{})
		require.Error(t, err)
	}

	_, err := d.Dispatch(context.Background(), webhook, &rule.ExecutionContext{})
	require.Error(t, err)
	assert.True(t, errors.IsCircuitOpen(err), "webhook breaker should be open")

	notify := loadedAction(t, rule.ActionNotify, map[string]interface{}{"title": "ok"})
	result, err := d.Dispatch(context.Background(), notify, &rule.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, result)
}
