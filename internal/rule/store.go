package rule

import (
	"context"
	"time"
)

// StatsDelta is applied atomically to a rule's rolling counters after a run.
type StatsDelta struct {
	Executions    int64
	Successes     int64
	FullSuccesses int64
	Failures      int64
	LastExecuted  time.Time
	LastError     string
}

// Store is the rule persistence collaborator. Implementations must apply
// StatsDelta with atomic increments; each execution operates on its own
// loaded copy of the rule and merges counters back through ApplyStats.
type Store interface {
	FindByID(ctx context.Context, id string) (*Rule, error)
	FindEnabledByTrigger(ctx context.Context, userID, event string) ([]Rule, error)
	Save(ctx context.Context, r *Rule) error
	ApplyStats(ctx context.Context, ruleID string, delta StatsDelta) error

	// RecordFailure bumps the failure counter and last error for a run
	// that failed before or outside the action loop.
	RecordFailure(ctx context.Context, ruleID, message string) error
}
