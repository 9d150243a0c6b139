package logging

import (
	"context"
)

type contextKey string

const (
	ruleIDKey      contextKey = "rule_id"
	executionIDKey contextKey = "execution_id"
	userIDKey      contextKey = "user_id"
	contentIDKey   contextKey = "content_id"
)

func WithRuleID(ctx context.Context, ruleID string) context.Context {
	return context.WithValue(ctx, ruleIDKey, ruleID)
}

func WithExecutionID(ctx context.Context, executionID string) context.Context {
	return context.WithValue(ctx, executionIDKey, executionID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func WithContentID(ctx context.Context, contentID string) context.Context {
	return context.WithValue(ctx, contentIDKey, contentID)
}

func GetRuleID(ctx context.Context) string      { return getString(ctx, ruleIDKey) }
func GetExecutionID(ctx context.Context) string { return getString(ctx, executionIDKey) }
func GetUserID(ctx context.Context) string      { return getString(ctx, userIDKey) }
func GetContentID(ctx context.Context) string   { return getString(ctx, contentIDKey) }

func getString(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetLogFields flattens the execution-scoped identifiers carried on the
// context into zap sugared key/value pairs.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if ruleID := GetRuleID(ctx); ruleID != "" {
		fields = append(fields, "rule_id", ruleID)
	}
	if executionID := GetExecutionID(ctx); executionID != "" {
		fields = append(fields, "execution_id", executionID)
	}
	if userID := GetUserID(ctx); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if contentID := GetContentID(ctx); contentID != "" {
		fields = append(fields, "content_id", contentID)
	}

	return fields
}
