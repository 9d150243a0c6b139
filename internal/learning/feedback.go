package learning

import (
	"time"

	"autoclip/internal/audio"
	"autoclip/internal/scene"
)

type FeedbackAction string

const (
	ActionPromote      FeedbackAction = "promote"
	ActionDemote       FeedbackAction = "demote"
	ActionClipCreated  FeedbackAction = "clip_created"
	ActionClipDeleted  FeedbackAction = "clip_deleted"
	ActionSceneSkipped FeedbackAction = "scene_skipped"
)

// IsPromotion groups the accept signals; everything else tracked is a reject
// signal.
func (a FeedbackAction) IsPromotion() bool {
	return a == ActionPromote || a == ActionClipCreated
}

func (a FeedbackAction) IsDemotion() bool {
	return a == ActionDemote || a == ActionClipDeleted || a == ActionSceneSkipped
}

func (a FeedbackAction) Valid() bool {
	return a.IsPromotion() || a.IsDemotion()
}

// FeatureSnapshot captures the tracked feature values of a scene at feedback
// time, so later dataset changes cannot skew learning.
type FeatureSnapshot struct {
	Energy           float64 `json:"energy" bson:"energy"`
	SpeechConfidence float64 `json:"speech_confidence" bson:"speech_confidence"`
	SilenceRatio     float64 `json:"silence_ratio" bson:"silence_ratio"`
	Similarity       float64 `json:"similarity" bson:"similarity"`
}

func SnapshotScene(s *scene.Scene) FeatureSnapshot {
	return FeatureSnapshot{
		Energy:           s.Audio.Energy,
		SpeechConfidence: s.VoiceProbability(),
		SilenceRatio:     audio.SilenceRatio(s),
		Similarity:       s.Audio.Similarity,
	}
}

// FeedbackRecord is one accept/reject observation. Records are append-only:
// both the learner history and the scene's metadata log only grow.
type FeedbackRecord struct {
	SceneID   string          `json:"scene_id" bson:"scene_id"`
	Action    FeedbackAction  `json:"action" bson:"action"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
	Features  FeatureSnapshot `json:"audio_features" bson:"audio_features"`
	Criteria  *audio.Criteria `json:"original_criteria,omitempty" bson:"original_criteria,omitempty"`
	Reason    string          `json:"reason,omitempty" bson:"reason,omitempty"`
}
