package analytics

import (
	"context"
	"time"

	"autoclip/internal/audio"
	"autoclip/internal/learning"
	"autoclip/internal/logger"
)

// MaxLogEntries caps the per-rule execution log; the oldest entries are
// dropped first.
const MaxLogEntries = 100

// ExecutionEntry is one recorded rule execution.
type ExecutionEntry struct {
	Timestamp          time.Time                   `json:"timestamp" bson:"timestamp"`
	DurationMs         int64                       `json:"duration_ms" bson:"duration_ms"`
	ScenesProcessed    int                         `json:"scenes_processed" bson:"scenes_processed"`
	ScenesFiltered     int                         `json:"scenes_filtered" bson:"scenes_filtered"`
	ClipsCreated       int                         `json:"clips_created" bson:"clips_created"`
	Success            bool                        `json:"success" bson:"success"`
	Criteria           *audio.Criteria             `json:"criteria,omitempty" bson:"criteria,omitempty"`
	AdaptiveThresholds *learning.LearnedThresholds `json:"adaptive_thresholds,omitempty" bson:"adaptive_thresholds,omitempty"`
}

// Summary is recomputed over the retained log window after every append.
type Summary struct {
	TotalExecutions    int       `json:"total_executions" bson:"total_executions"`
	SuccessRate        float64   `json:"success_rate" bson:"success_rate"`
	AvgDurationMs      float64   `json:"avg_duration_ms" bson:"avg_duration_ms"`
	AvgScenesProcessed float64   `json:"avg_scenes_processed" bson:"avg_scenes_processed"`
	AvgScenesFiltered  float64   `json:"avg_scenes_filtered" bson:"avg_scenes_filtered"`
	AvgClipsCreated    float64   `json:"avg_clips_created" bson:"avg_clips_created"`
	LastExecution      time.Time `json:"last_execution" bson:"last_execution"`
}

// Log is the bounded analytics block embedded in a rule document.
type Log struct {
	Executions []ExecutionEntry `json:"executions" bson:"executions"`
	Summary    Summary          `json:"summary" bson:"summary"`
}

// Record appends an entry, truncates to the newest MaxLogEntries, and
// recomputes the summary.
func (l *Log) Record(entry ExecutionEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.Executions = append(l.Executions, entry)
	if len(l.Executions) > MaxLogEntries {
		l.Executions = l.Executions[len(l.Executions)-MaxLogEntries:]
	}

	l.Summary = summarize(l.Executions)
}

func summarize(entries []ExecutionEntry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	var successes int
	var totalDuration, totalProcessed, totalFiltered, totalClips float64
	for _, entry := range entries {
		if entry.Success {
			successes++
		}
		totalDuration += float64(entry.DurationMs)
		totalProcessed += float64(entry.ScenesProcessed)
		totalFiltered += float64(entry.ScenesFiltered)
		totalClips += float64(entry.ClipsCreated)
	}

	n := float64(len(entries))
	return Summary{
		TotalExecutions:    len(entries),
		SuccessRate:        float64(successes) / n,
		AvgDurationMs:      totalDuration / n,
		AvgScenesProcessed: totalProcessed / n,
		AvgScenesFiltered:  totalFiltered / n,
		AvgClipsCreated:    totalClips / n,
		LastExecution:      entries[len(entries)-1].Timestamp,
	}
}

// Store is the persistence surface the recorder needs: load and save the
// analytics block of one rule. The rule store implements it.
type Store interface {
	LoadLog(ctx context.Context, ruleID string) (*Log, error)
	SaveLog(ctx context.Context, ruleID string, log *Log) error
}

// Recorder appends execution entries to a rule's persisted analytics log.
type Recorder struct {
	store  Store
	logger logger.Logger
}

func NewRecorder(store Store, log logger.Logger) *Recorder {
	return &Recorder{store: store, logger: log}
}

func (r *Recorder) Track(ctx context.Context, ruleID string, entry ExecutionEntry) error {
	log, err := r.store.LoadLog(ctx, ruleID)
	if err != nil {
		return err
	}
	if log == nil {
		log = &Log{}
	}

	log.Record(entry)

	if err := r.store.SaveLog(ctx, ruleID, log); err != nil {
		return err
	}

	r.logger.DebugwCtx(ctx, "Tracked rule execution",
		"rule_id", ruleID,
		"success", entry.Success,
		"duration_ms", entry.DurationMs,
		"log_size", len(log.Executions),
	)
	return nil
}
