package rule

import (
	"time"

	"autoclip/internal/analytics"
	"autoclip/internal/audio"
	"autoclip/internal/scene"
)

type TriggerKind string

const (
	TriggerEvent     TriggerKind = "event"
	TriggerSchedule  TriggerKind = "schedule"
	TriggerCondition TriggerKind = "condition"
	TriggerWebhook   TriggerKind = "webhook"
)

func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerEvent, TriggerSchedule, TriggerCondition, TriggerWebhook:
		return true
	}
	return false
}

// Trigger declares when a rule fires. Exactly one of the kind-specific
// payloads is meaningful for a given kind.
type Trigger struct {
	Kind       TriggerKind `json:"kind" bson:"kind"`
	Event      string      `json:"event,omitempty" bson:"event,omitempty"`
	Schedule   string      `json:"schedule,omitempty" bson:"schedule,omitempty"`
	Expression string      `json:"expression,omitempty" bson:"expression,omitempty"`
	WebhookID  string      `json:"webhook_id,omitempty" bson:"webhook_id,omitempty"`
}

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"

	// Specialized interpretations for audio-criteria conditions.
	OpHasAudioTag      Operator = "has_audio_tag"
	OpAudioEnergyRange Operator = "audio_energy_range"
)

// Condition is one conjunct of a rule's predicate. Exactly one family is
// set: a field comparison, an audio-criteria sub-object, or a boolean CEL
// expression.
type Condition struct {
	Field      string          `json:"field,omitempty" bson:"field,omitempty"`
	Operator   Operator        `json:"operator,omitempty" bson:"operator,omitempty"`
	Value      interface{}     `json:"value,omitempty" bson:"value,omitempty"`
	Audio      *audio.Criteria `json:"audio_criteria,omitempty" bson:"audio_criteria,omitempty"`
	Expression string          `json:"expression,omitempty" bson:"expression,omitempty"`
}

func (c *Condition) IsAudio() bool { return c.Audio != nil }

// Action is one step of a rule's action chain. Config is the stored payload;
// the typed decoded form is populated at load time and never persisted.
type Action struct {
	Type   ActionType             `json:"type" bson:"type"`
	Config map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`

	decoded   ActionConfig
	decodeErr error
}

// Decoded returns the typed configuration, or the decode error captured at
// load time. Unknown action types carry no decoded config and fail at
// dispatch.
func (a *Action) Decoded() (ActionConfig, error) {
	return a.decoded, a.decodeErr
}

// Stats are the rolling per-rule counters. Executions and Successes count
// completed runs regardless of per-action outcomes, preserving the recorded
// history's semantics; FullSuccesses counts only runs where every action
// succeeded. Failures counts failed actions, so Executions == Successes +
// Failures is not an invariant.
type Stats struct {
	Executions    int64      `json:"executions" bson:"executions"`
	Successes     int64      `json:"successes" bson:"successes"`
	FullSuccesses int64      `json:"full_successes" bson:"full_successes"`
	Failures      int64      `json:"failures" bson:"failures"`
	LastExecuted  *time.Time `json:"last_executed,omitempty" bson:"last_executed,omitempty"`
	LastError     string     `json:"last_error,omitempty" bson:"last_error,omitempty"`
}

// Rule is a user-defined automation: trigger, conjunctive conditions, and an
// ordered action chain. The engine mutates only Stats and Analytics; rules
// are created and deleted elsewhere.
type Rule struct {
	ID          string        `json:"id" bson:"_id,omitempty"`
	UserID      string        `json:"user_id" bson:"user_id"`
	Name        string        `json:"name" bson:"name"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Trigger     Trigger       `json:"trigger" bson:"trigger"`
	Conditions  []Condition   `json:"conditions,omitempty" bson:"conditions,omitempty"`
	Actions     []Action      `json:"actions" bson:"actions"`
	Enabled     bool          `json:"enabled" bson:"enabled"`
	Stats       Stats         `json:"stats" bson:"stats"`
	Analytics   analytics.Log `json:"analytics" bson:"analytics"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// DecodeActions populates the typed config of every action with a known
// type. Decode failures are captured per action and surface as validation
// failures when that action is dispatched, so one malformed action cannot
// block its siblings.
func (r *Rule) DecodeActions() {
	for i := range r.Actions {
		a := &r.Actions[i]
		if !a.Type.Valid() {
			continue
		}
		a.decoded, a.decodeErr = DecodeActionConfig(a.Type, a.Config)
	}
}

// NeedsScenes reports whether any condition or action consults scene audio
// data, so the engine only loads scenes when they will be used.
func (r *Rule) NeedsScenes() bool {
	for i := range r.Conditions {
		if r.Conditions[i].IsAudio() {
			return true
		}
	}
	for i := range r.Actions {
		switch r.Actions[i].Type {
		case ActionAudioFilteredClipCreation, ActionAudioSegmentSkipping, ActionKeyMomentTagging, ActionSceneDetection:
			return true
		}
	}
	return false
}

// ExecutionContext is the runtime context a trigger carries into a rule run.
// Each run operates on its own copy; nothing here is shared between rules.
type ExecutionContext struct {
	ExecutionID string
	UserID      string
	ContentID   string
	Event       string
	Payload     map[string]interface{}
	Scenes      []scene.Scene
}

// AsMap flattens the context for dot-path resolution and CEL evaluation.
func (ec *ExecutionContext) AsMap() map[string]interface{} {
	payload := ec.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return map[string]interface{}{
		"event":       ec.Event,
		"user_id":     ec.UserID,
		"content_id":  ec.ContentID,
		"payload":     payload,
		"scene_count": len(ec.Scenes),
	}
}

// ActionResult is the per-action entry of an execution result list.
type ActionResult struct {
	ActionType ActionType             `json:"action"`
	Success    bool                   `json:"success"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// ExecutionResult is the transient outcome of one engine run.
type ExecutionResult struct {
	RuleID      string         `json:"rule_id"`
	ExecutionID string         `json:"execution_id"`
	Executed    bool           `json:"executed"`
	Reason      string         `json:"reason,omitempty"`
	Actions     []ActionResult `json:"actions,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// FailedActions counts the unsuccessful entries.
func (r *ExecutionResult) FailedActions() int {
	var failed int
	for _, a := range r.Actions {
		if !a.Success {
			failed++
		}
	}
	return failed
}
