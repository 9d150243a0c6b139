package learning

import (
	"errors"
	"sync"

	"autoclip/internal/logger"
)

// Registry hands out one Learner per (contentID, userID) pair. It is an
// injected dependency, constructed once at startup and shared by whoever
// records feedback or applies adaptive thresholds.
type Registry struct {
	sink   FeedbackSink
	logger logger.Logger

	mu       sync.Mutex
	learners map[learnerKey]*Learner
}

type learnerKey struct {
	contentID string
	userID    string
}

func NewRegistry(sink FeedbackSink, log logger.Logger) *Registry {
	return &Registry{
		sink:     sink,
		logger:   log,
		learners: make(map[learnerKey]*Learner),
	}
}

// Learner returns the learner for the pair, creating it on first use.
func (r *Registry) Learner(contentID, userID string) *Learner {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := learnerKey{contentID: contentID, userID: userID}
	l, ok := r.learners[key]
	if !ok {
		l = NewLearner(contentID, userID, r.sink, r.logger)
		r.learners[key] = l
	}
	return l
}

// Learned returns the tuned thresholds for the pair, or nil when the
// history cannot support learning yet.
func (r *Registry) Learned(contentID, userID string) (*LearnedThresholds, error) {
	learned, err := r.Learner(contentID, userID).LearnThresholds()
	if errors.Is(err, ErrInsufficientData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return learned, nil
}
