package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclip/internal/analytics"
	"autoclip/internal/audio"
	"autoclip/internal/logger"
	"autoclip/internal/scene"
	"autoclip/pkg/errors"
)

type fakeRuleStore struct {
	rules        map[string]*Rule
	byTrigger    []Rule
	applied      []StatsDelta
	failures     []string
	findErr      error
	applyErr     error
	analyticsLog map[string]*analytics.Log
}

func newFakeRuleStore(rules ...*Rule) *fakeRuleStore {
	s := &fakeRuleStore{
		rules:        make(map[string]*Rule),
		analyticsLog: make(map[string]*analytics.Log),
	}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func (s *fakeRuleStore) FindByID(_ context.Context, id string) (*Rule, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	r, ok := s.rules[id]
	if !ok {
		return nil, errors.ErrNotFound.WithMessagef("automation rule %s not found", id)
	}
	copied := *r
	return &copied, nil
}

func (s *fakeRuleStore) FindEnabledByTrigger(_ context.Context, userID, event string) ([]Rule, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byTrigger, nil
}

func (s *fakeRuleStore) Save(_ context.Context, r *Rule) error {
	s.rules[r.ID] = r
	return nil
}

func (s *fakeRuleStore) ApplyStats(_ context.Context, ruleID string, delta StatsDelta) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = append(s.applied, delta)
	return nil
}

func (s *fakeRuleStore) RecordFailure(_ context.Context, ruleID, message string) error {
	s.failures = append(s.failures, message)
	return nil
}

func (s *fakeRuleStore) LoadLog(_ context.Context, ruleID string) (*analytics.Log, error) {
	return s.analyticsLog[ruleID], nil
}

func (s *fakeRuleStore) SaveLog(_ context.Context, ruleID string, log *analytics.Log) error {
	s.analyticsLog[ruleID] = log
	return nil
}

// fakeDispatcher resolves each action type to a canned outcome.
type fakeDispatcher struct {
	results map[ActionType]map[string]interface{}
	errs    map[ActionType]error
	calls   []ActionType
	panicOn ActionType
}

func (d *fakeDispatcher) Dispatch(_ context.Context, a Action, _ *ExecutionContext) (map[string]interface{}, error) {
	d.calls = append(d.calls, a.Type)
	if a.Type == d.panicOn {
		panic("handler exploded")
	}
	if !a.Type.Valid() {
		return nil, errors.ErrValidation.WithMessagef("Unknown action type: %s", a.Type)
	}
	if err, ok := d.errs[a.Type]; ok {
		return nil, err
	}
	return d.results[a.Type], nil
}

type fakeSceneStore struct {
	scenes  []scene.Scene
	findErr error
	lookups int
}

func (s *fakeSceneStore) FindScenesForAsset(_ context.Context, contentID, userID string) ([]scene.Scene, error) {
	s.lookups++
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.scenes, nil
}

func (s *fakeSceneStore) AppendFeedback(_ context.Context, sceneID string, entry map[string]interface{}) error {
	return nil
}

func (s *fakeSceneStore) MarkSkipped(_ context.Context, sceneID, reason string) error {
	return nil
}

func enabledRule(id string, actions ...Action) *Rule {
	return &Rule{
		ID:      id,
		UserID:  "user-1",
		Name:    "test rule",
		Trigger: Trigger{Kind: TriggerEvent, Event: "video_uploaded"},
		Actions: actions,
		Enabled: true,
	}
}

func newTestEngine(t *testing.T, store *fakeRuleStore, scenes scene.Store, d ActionDispatcher, opts ...EngineOption) *Engine {
	t.Helper()
	recorder := analytics.NewRecorder(store, logger.NopLogger())
	e, err := NewEngine(store, scenes, d, recorder, logger.NopLogger(), opts...)
	require.NoError(t, err)
	return e
}

func TestExecuteDisabledRule(t *testing.T) {
	r := enabledRule("rule-1", Action{Type: ActionNotify})
	r.Enabled = false
	store := newFakeRuleStore(r)
	e := newTestEngine(t, store, nil, &fakeDispatcher{})

	_, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errors.Code(err))
	assert.Empty(t, store.applied)
}

func TestExecuteUnknownRule(t *testing.T) {
	store := newFakeRuleStore()
	e := newTestEngine(t, store, nil, &fakeDispatcher{})

	_, err := e.Execute(context.Background(), "missing", ExecutionContext{})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errors.Code(err))
}

func TestExecuteSkipsWhenConditionsNotMet(t *testing.T) {
	r := enabledRule("rule-1", Action{Type: ActionNotify})
	r.Conditions = []Condition{{Field: "event", Operator: OpEquals, Value: "clip_created"}}
	store := newFakeRuleStore(r)
	d := &fakeDispatcher{}
	e := newTestEngine(t, store, nil, d)

	result, err := e.Execute(context.Background(), "rule-1", ExecutionContext{
		UserID: "user-1",
		Event:  "video_uploaded",
	})
	require.NoError(t, err)

	assert.False(t, result.Executed)
	assert.Equal(t, "conditions not met", result.Reason)
	assert.Empty(t, result.Actions)
	assert.Empty(t, d.calls, "no action should be dispatched")
	assert.Empty(t, store.applied, "skipped runs must not touch stats")
}

func TestExecuteAllActionsSucceed(t *testing.T) {
	r := enabledRule("rule-1",
		Action{Type: ActionNotify},
		Action{Type: ActionWebhook},
	)
	store := newFakeRuleStore(r)
	d := &fakeDispatcher{results: map[ActionType]map[string]interface{}{
		ActionNotify: {"notified": true},
	}}
	e := newTestEngine(t, store, nil, d)

	result, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1", Event: "video_uploaded"})
	require.NoError(t, err)

	assert.True(t, result.Executed)
	assert.NotEmpty(t, result.ExecutionID)
	require.Len(t, result.Actions, 2)
	assert.True(t, result.Actions[0].Success)
	assert.Equal(t, map[string]interface{}{"notified": true}, result.Actions[0].Result)
	assert.True(t, result.Actions[1].Success)

	require.Len(t, store.applied, 1)
	delta := store.applied[0]
	assert.Equal(t, int64(1), delta.Executions)
	assert.Equal(t, int64(1), delta.Successes)
	assert.Equal(t, int64(1), delta.FullSuccesses)
	assert.Equal(t, int64(0), delta.Failures)
	assert.Empty(t, delta.LastError)
	assert.False(t, delta.LastExecuted.IsZero())
}

func TestExecutePartialFailureRunsRemainingActions(t *testing.T) {
	r := enabledRule("rule-1",
		Action{Type: ActionNotify},
		Action{Type: ActionWebhook},
		Action{Type: ActionEmail},
	)
	store := newFakeRuleStore(r)
	d := &fakeDispatcher{errs: map[ActionType]error{
		ActionWebhook: errors.ErrNetwork.WithMessage("webhook endpoint unreachable"),
	}}
	e := newTestEngine(t, store, nil, d)

	result, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1", Event: "video_uploaded"})
	require.NoError(t, err)

	require.Len(t, result.Actions, 3, "a failed action must not abort the chain")
	assert.True(t, result.Actions[0].Success)
	assert.False(t, result.Actions[1].Success)
	assert.Equal(t, "webhook endpoint unreachable", result.Actions[1].Error)
	assert.True(t, result.Actions[2].Success)

	require.Len(t, store.applied, 1)
	delta := store.applied[0]
	assert.Equal(t, int64(1), delta.Executions)
	assert.Equal(t, int64(1), delta.Successes, "completed runs count as successes")
	assert.Equal(t, int64(0), delta.FullSuccesses)
	assert.Equal(t, int64(1), delta.Failures)
	assert.Equal(t, "webhook endpoint unreachable", delta.LastError)
}

func TestExecuteUnknownActionType(t *testing.T) {
	r := enabledRule("rule-1", Action{Type: "unknown_action"})
	store := newFakeRuleStore(r)
	e := newTestEngine(t, store, nil, &fakeDispatcher{})

	result, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1"})
	require.NoError(t, err)

	require.Len(t, result.Actions, 1)
	assert.False(t, result.Actions[0].Success)
	assert.Equal(t, "Unknown action type: unknown_action", result.Actions[0].Error)

	require.Len(t, store.applied, 1)
	assert.Equal(t, int64(1), store.applied[0].Failures)
	assert.Equal(t, "Unknown action type: unknown_action", store.applied[0].LastError)
}

func TestExecuteLoadsScenesOnDemand(t *testing.T) {
	scenes := &fakeSceneStore{scenes: []scene.Scene{
		{ID: "s1", ContentID: "content-1", Audio: scene.AudioFeatures{Energy: 0.8, Classification: map[string]float64{scene.ClassVoice: 0.9}}},
	}}

	t.Run("rule with audio condition fetches scenes", func(t *testing.T) {
		r := enabledRule("rule-1", Action{Type: ActionNotify})
		criteria := audio.Criteria{RequireSpeech: true}
		r.Conditions = []Condition{{Audio: &criteria}}
		store := newFakeRuleStore(r)
		e := newTestEngine(t, store, scenes, &fakeDispatcher{})

		result, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1", ContentID: "content-1"})
		require.NoError(t, err)
		assert.True(t, result.Executed)
		assert.Equal(t, 1, scenes.lookups)
	})

	t.Run("rule without audio usage does not fetch", func(t *testing.T) {
		scenes.lookups = 0
		r := enabledRule("rule-2", Action{Type: ActionNotify})
		store := newFakeRuleStore(r)
		e := newTestEngine(t, store, scenes, &fakeDispatcher{})

		_, err := e.Execute(context.Background(), "rule-2", ExecutionContext{UserID: "user-1", ContentID: "content-1"})
		require.NoError(t, err)
		assert.Zero(t, scenes.lookups)
	})
}

func TestExecuteTracksAnalytics(t *testing.T) {
	r := enabledRule("rule-1", Action{Type: ActionAudioFilteredClipCreation})
	store := newFakeRuleStore(r)
	d := &fakeDispatcher{results: map[ActionType]map[string]interface{}{
		ActionAudioFilteredClipCreation: {
			"scenes_processed": 10,
			"scenes_filtered":  4,
			"clips_created":    2,
		},
	}}
	scenes := &fakeSceneStore{}
	e := newTestEngine(t, store, scenes, d)

	_, err := e.Execute(context.Background(), "rule-1", ExecutionContext{UserID: "user-1", ContentID: "content-1"})
	require.NoError(t, err)

	saved := store.analyticsLog["rule-1"]
	require.NotNil(t, saved)
	require.Len(t, saved.Executions, 1)
	entry := saved.Executions[0]
	assert.Equal(t, 10, entry.ScenesProcessed)
	assert.Equal(t, 4, entry.ScenesFiltered)
	assert.Equal(t, 2, entry.ClipsCreated)
	assert.True(t, entry.Success)
}

func TestTriggerByEvent(t *testing.T) {
	t.Run("runs every matching rule with isolated contexts", func(t *testing.T) {
		r1 := enabledRule("rule-1", Action{Type: ActionNotify})
		r2 := enabledRule("rule-2", Action{Type: ActionWebhook})
		store := newFakeRuleStore(r1, r2)
		store.byTrigger = []Rule{*r1, *r2}
		e := newTestEngine(t, store, nil, &fakeDispatcher{})

		outcomes, err := e.TriggerByEvent(context.Background(), "user-1", "video_uploaded", ExecutionContext{ContentID: "content-1"})
		require.NoError(t, err)
		require.Len(t, outcomes, 2)

		assert.Equal(t, "rule-1", outcomes[0].RuleID)
		assert.Equal(t, "rule-2", outcomes[1].RuleID)
		for _, o := range outcomes {
			require.NoError(t, o.Err)
			require.NotNil(t, o.Result)
			assert.True(t, o.Result.Executed)
		}
		assert.NotEqual(t, outcomes[0].Result.ExecutionID, outcomes[1].Result.ExecutionID)
	})

	t.Run("no matching rules is a no-op", func(t *testing.T) {
		store := newFakeRuleStore()
		e := newTestEngine(t, store, nil, &fakeDispatcher{})

		outcomes, err := e.TriggerByEvent(context.Background(), "user-1", "video_uploaded", ExecutionContext{})
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})

	t.Run("a panicking rule does not stop the others", func(t *testing.T) {
		r1 := enabledRule("rule-1", Action{Type: ActionNotify})
		r2 := enabledRule("rule-2", Action{Type: ActionWebhook})
		store := newFakeRuleStore(r1, r2)
		store.byTrigger = []Rule{*r1, *r2}
		d := &fakeDispatcher{panicOn: ActionNotify}
		e := newTestEngine(t, store, nil, d)

		outcomes, err := e.TriggerByEvent(context.Background(), "user-1", "video_uploaded", ExecutionContext{})
		require.NoError(t, err)
		require.Len(t, outcomes, 2)

		assert.Error(t, outcomes[0].Err)
		assert.Nil(t, outcomes[0].Result)
		require.NoError(t, outcomes[1].Err)
		assert.True(t, outcomes[1].Result.Executed)
	})

	t.Run("rate limit rejects before any rule runs", func(t *testing.T) {
		r := enabledRule("rule-1", Action{Type: ActionNotify})
		store := newFakeRuleStore(r)
		store.byTrigger = []Rule{*r}
		d := &fakeDispatcher{}
		e := newTestEngine(t, store, nil, d, WithTriggerRateLimit(60, 2))

		for i := 0; i < 2; i++ {
			_, err := e.TriggerByEvent(context.Background(), "user-1", "video_uploaded", ExecutionContext{})
			require.NoError(t, err)
		}

		_, err := e.TriggerByEvent(context.Background(), "user-1", "video_uploaded", ExecutionContext{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRateLimit))
		assert.Len(t, d.calls, 2)

		// Other users have their own budget.
		_, err = e.TriggerByEvent(context.Background(), "user-2", "video_uploaded", ExecutionContext{})
		require.NoError(t, err)
	})
}
