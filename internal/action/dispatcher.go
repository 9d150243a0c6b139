package action

import (
	"context"

	"autoclip/internal/logger"
	"autoclip/internal/rule"
	"autoclip/pkg/errors"
	"autoclip/pkg/resilience"
)

// Handler executes one action type. Implementations receive the validated
// typed config through action.Decoded() and return a result payload for the
// execution record.
type Handler interface {
	Execute(ctx context.Context, action rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, action rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error)

func (f HandlerFunc) Execute(ctx context.Context, action rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
	return f(ctx, action, ec)
}

// Dispatcher routes actions to their handlers through the retry and circuit
// breaker layer. Breakers are keyed per action type, so a failing webhook
// backend cannot open the breaker guarding clip creation.
type Dispatcher struct {
	handlers map[rule.ActionType]Handler
	registry *resilience.Registry
	logger   logger.Logger
}

func NewDispatcher(registry *resilience.Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[rule.ActionType]Handler),
		registry: registry,
		logger:   log,
	}
}

// Register installs the handler for a type, replacing any previous one.
func (d *Dispatcher) Register(t rule.ActionType, h Handler) {
	d.handlers[t] = h
}

// Registered reports whether the type has a handler installed.
func (d *Dispatcher) Registered(t rule.ActionType) bool {
	_, ok := d.handlers[t]
	return ok
}

func (d *Dispatcher) Dispatch(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
	if !a.Type.Valid() {
		return nil, errors.ErrValidation.WithMessagef("Unknown action type: %s", a.Type)
	}

	if _, err := a.Decoded(); err != nil {
		return nil, errors.ErrValidation.
			WithMessagef("invalid %s config", a.Type).
			WithCause(err)
	}

	h, ok := d.handlers[a.Type]
	if !ok {
		return nil, errors.ErrValidation.WithMessagef("action type %s is not available in this deployment", a.Type)
	}

	out, err := d.registry.Execute(ctx, string(a.Type), func() (interface{}, error) {
		return h.Execute(ctx, a, ec)
	})
	if err != nil {
		return nil, err
	}

	result, _ := out.(map[string]interface{})
	return result, nil
}
