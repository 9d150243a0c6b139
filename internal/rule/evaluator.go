package rule

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"autoclip/internal/audio"
	"autoclip/internal/logger"
	pkgcel "autoclip/pkg/cel"
)

// ConditionEvaluator evaluates a rule's conjunctive condition list against
// an execution context. Audio-criteria conditions are checked first as a
// batch; field and expression conditions follow individually, short-
// circuiting on the first failure.
type ConditionEvaluator struct {
	cel    *pkgcel.Evaluator
	logger logger.Logger
}

func NewConditionEvaluator(log logger.Logger) (*ConditionEvaluator, error) {
	evaluator, err := pkgcel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	return &ConditionEvaluator{cel: evaluator, logger: log}, nil
}

func (e *ConditionEvaluator) Evaluate(ctx context.Context, conditions []Condition, ec *ExecutionContext) (bool, error) {
	for i := range conditions {
		if !conditions[i].IsAudio() {
			continue
		}
		met, err := e.evaluateAudio(ctx, &conditions[i], ec)
		if err != nil {
			return false, err
		}
		if !met {
			return false, nil
		}
	}

	contextMap := ec.AsMap()
	for i := range conditions {
		cond := &conditions[i]
		if cond.IsAudio() {
			continue
		}

		var met bool
		var err error
		if cond.Expression != "" {
			met, err = e.cel.EvaluateBool(ctx, cond.Expression, contextMap)
		} else {
			met, err = evaluateField(cond, contextMap)
		}
		if err != nil {
			return false, err
		}
		if !met {
			e.logger.DebugwCtx(ctx, "Condition not met",
				"field", cond.Field,
				"operator", cond.Operator,
			)
			return false, nil
		}
	}

	return true, nil
}

// evaluateAudio delegates to the criteria filter. Without scenes in the
// context the condition is vacuously satisfied; audio conditions only bind
// when a scenes array is present.
func (e *ConditionEvaluator) evaluateAudio(ctx context.Context, cond *Condition, ec *ExecutionContext) (bool, error) {
	if len(ec.Scenes) == 0 {
		e.logger.DebugwCtx(ctx, "Skipping audio condition, no scenes in context")
		return true, nil
	}

	filtered := audio.Filter(ec.Scenes, *cond.Audio)

	switch cond.Operator {
	case OpHasAudioTag:
		if len(cond.Audio.AudioTags) > 0 && len(filtered) == 0 {
			return false, nil
		}
		return true, nil

	case OpAudioEnergyRange:
		bounds, err := decodeEnergyRange(cond.Value)
		if err != nil {
			return false, err
		}
		for i := range filtered {
			energy := filtered[i].Audio.Energy
			if energy < bounds.Min || energy > bounds.Max {
				return false, nil
			}
		}
		return true, nil

	default:
		return len(filtered) > 0, nil
	}
}

type energyRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func decodeEnergyRange(value interface{}) (energyRange, error) {
	bounds := energyRange{Max: 1}
	if value == nil {
		return bounds, nil
	}

	body, err := json.Marshal(value)
	if err != nil {
		return bounds, fmt.Errorf("invalid audio_energy_range value: %w", err)
	}
	if err := json.Unmarshal(body, &bounds); err != nil {
		return bounds, fmt.Errorf("invalid audio_energy_range value: %w", err)
	}
	if bounds.Max == 0 && bounds.Min == 0 {
		bounds.Max = 1
	}
	return bounds, nil
}

func evaluateField(cond *Condition, contextMap map[string]interface{}) (bool, error) {
	actual := ResolvePath(contextMap, cond.Field)

	switch cond.Operator {
	case OpEquals:
		return looseEquals(actual, cond.Value), nil
	case OpNotEquals:
		return !looseEquals(actual, cond.Value), nil
	case OpContains:
		return contains(actual, cond.Value), nil
	case OpGreaterThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a > b }), nil
	case OpLessThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a < b }), nil
	case OpIn:
		return membership(cond.Value, actual), nil
	case OpNotIn:
		return !membership(cond.Value, actual), nil
	default:
		return false, fmt.Errorf("unknown condition operator: %s", cond.Operator)
	}
}

// ResolvePath walks a dot-separated path through nested maps, returning nil
// as soon as any segment is missing or the current value is not a map.
func ResolvePath(m map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}

	var current interface{} = m
	for _, segment := range strings.Split(path, ".") {
		asMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = asMap[segment]
		if !ok {
			return nil
		}
	}
	return current
}

func looseEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func contains(actual, expected interface{}) bool {
	switch v := actual.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", expected))
	case []interface{}:
		for _, item := range v {
			if looseEquals(item, expected) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if looseEquals(item, expected) {
				return true
			}
		}
	}
	return false
}

// membership reports whether actual is one of the values in the condition's
// list.
func membership(list, actual interface{}) bool {
	switch v := list.(type) {
	case []interface{}:
		for _, item := range v {
			if looseEquals(actual, item) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if looseEquals(actual, item) {
				return true
			}
		}
	}
	return false
}

func compareNumeric(a, b interface{}, cmp func(a, b float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
