package learning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"autoclip/internal/audio"
	"autoclip/internal/logger"
	"autoclip/pkg/metrics"
)

// ErrInsufficientData is returned when the feedback history cannot support
// learning yet: fewer than MinFeedbackEntries records, or no examples on one
// side of the promote/demote split.
var ErrInsufficientData = errors.New("insufficient feedback data for threshold learning")

const MinFeedbackEntries = 5

const (
	promotedPercentile = 75
	demotedPercentile  = 25
)

// FeedbackSink persists feedback onto the owning scene's metadata log.
// Persistence is best-effort: the learner logs sink failures and continues,
// feedback loss must never break the pipeline.
type FeedbackSink interface {
	AppendFeedback(ctx context.Context, sceneID string, entry map[string]interface{}) error
}

// Learner accumulates accept/reject feedback for one content asset and user
// and derives tuned criteria thresholds from it.
type Learner struct {
	contentID string
	userID    string
	sink      FeedbackSink
	logger    logger.Logger

	mu      sync.RWMutex
	history []FeedbackRecord
}

func NewLearner(contentID, userID string, sink FeedbackSink, log logger.Logger) *Learner {
	return &Learner{
		contentID: contentID,
		userID:    userID,
		sink:      sink,
		logger:    log,
	}
}

// RecordFeedback appends a record to the in-memory history and to the
// scene's persisted feedback log. It never fails on persistence problems.
func (l *Learner) RecordFeedback(ctx context.Context, record FeedbackRecord) error {
	if !record.Action.Valid() {
		return errors.New("unknown feedback action: " + string(record.Action))
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.history = append(l.history, record)
	l.mu.Unlock()

	metrics.FeedbackRecordedTotal.WithLabelValues(string(record.Action)).Inc()

	if l.sink != nil {
		entry := map[string]interface{}{
			"action":            string(record.Action),
			"timestamp":         record.Timestamp,
			"audio_features":    record.Features,
			"original_criteria": record.Criteria,
			"reason":            record.Reason,
		}
		if err := l.sink.AppendFeedback(ctx, record.SceneID, entry); err != nil {
			l.logger.WarnwCtx(ctx, "Failed to persist feedback, continuing",
				"scene_id", record.SceneID,
				"action", record.Action,
				"error", err,
			)
		}
	}

	return nil
}

// History returns a copy of the accumulated feedback.
func (l *Learner) History() []FeedbackRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := make([]FeedbackRecord, len(l.history))
	copy(history, l.history)
	return history
}

// LearnedThresholds holds the tuned per-feature bounds. Nil means the
// feature had no usable signal.
type LearnedThresholds struct {
	MinEnergy           *float64  `json:"min_energy,omitempty" bson:"min_energy,omitempty"`
	MinSpeechConfidence *float64  `json:"min_speech_confidence,omitempty" bson:"min_speech_confidence,omitempty"`
	MaxSilenceRatio     *float64  `json:"max_silence_ratio,omitempty" bson:"max_silence_ratio,omitempty"`
	MinSimilarity       *float64  `json:"min_similarity,omitempty" bson:"min_similarity,omitempty"`
	SampleSize          int       `json:"sample_size" bson:"sample_size"`
	LearnedAt           time.Time `json:"learned_at" bson:"learned_at"`
}

// LearnThresholds derives thresholds from the feedback history. For each
// tracked feature it takes the 75th percentile of promoted examples and the
// 25th percentile of demoted ones; higher-is-better features use the max of
// the two, the silence ratio uses the min. The result accepts behavior
// resembling promoted scenes while guarding against the lower tail of
// demoted ones.
func (l *Learner) LearnThresholds() (*LearnedThresholds, error) {
	history := l.History()
	if len(history) < MinFeedbackEntries {
		return nil, ErrInsufficientData
	}

	var promoted, demoted []FeedbackRecord
	for _, record := range history {
		switch {
		case record.Action.IsPromotion():
			promoted = append(promoted, record)
		case record.Action.IsDemotion():
			demoted = append(demoted, record)
		}
	}
	if len(promoted) == 0 || len(demoted) == 0 {
		return nil, ErrInsufficientData
	}

	learned := &LearnedThresholds{
		SampleSize: len(history),
		LearnedAt:  time.Now(),
	}

	learned.MinEnergy = learnLowerBound(promoted, demoted, func(f FeatureSnapshot) float64 { return f.Energy })
	learned.MinSpeechConfidence = learnLowerBound(promoted, demoted, func(f FeatureSnapshot) float64 { return f.SpeechConfidence })
	learned.MinSimilarity = learnLowerBound(promoted, demoted, func(f FeatureSnapshot) float64 { return f.Similarity })
	learned.MaxSilenceRatio = learnUpperBound(promoted, demoted, func(f FeatureSnapshot) float64 { return f.SilenceRatio })

	return learned, nil
}

func learnLowerBound(promoted, demoted []FeedbackRecord, feature func(FeatureSnapshot) float64) *float64 {
	p75, ok1 := percentile(promoted, feature, promotedPercentile)
	d25, ok2 := percentile(demoted, feature, demotedPercentile)
	if !ok1 || !ok2 {
		return nil
	}
	threshold := max(p75, d25)
	return &threshold
}

func learnUpperBound(promoted, demoted []FeedbackRecord, feature func(FeatureSnapshot) float64) *float64 {
	p75, ok1 := percentile(promoted, feature, promotedPercentile)
	d25, ok2 := percentile(demoted, feature, demotedPercentile)
	if !ok1 || !ok2 {
		return nil
	}
	threshold := min(p75, d25)
	return &threshold
}

func percentile(records []FeedbackRecord, feature func(FeatureSnapshot) float64, pct float64) (float64, bool) {
	values := make([]float64, 0, len(records))
	for _, record := range records {
		values = append(values, feature(record.Features))
	}
	result, err := stats.Percentile(values, pct)
	if err != nil {
		return 0, false
	}
	return result, true
}

// ApplyLearned fills in only the criteria fields the caller left unset and
// flips the activating boolean for each newly-set threshold. Caller-supplied
// criteria always win.
func ApplyLearned(criteria audio.Criteria, learned *LearnedThresholds) audio.Criteria {
	if learned == nil {
		return criteria
	}

	if learned.MinEnergy != nil && criteria.MinEnergy == 0 {
		criteria.MinEnergy = *learned.MinEnergy
		criteria.RequireHighEnergy = true
	}
	if learned.MinSpeechConfidence != nil && criteria.MinSpeechConfidence == 0 {
		criteria.MinSpeechConfidence = *learned.MinSpeechConfidence
		criteria.RequireSpeech = true
	}
	if learned.MaxSilenceRatio != nil && criteria.MaxSilenceRatio == 0 {
		criteria.MaxSilenceRatio = *learned.MaxSilenceRatio
		criteria.SkipSilence = true
	}

	return criteria
}
