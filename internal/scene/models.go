package scene

import "time"

type CueType string

const (
	CueSilence      CueType = "silence"
	CueMusicChange  CueType = "music_change"
	CueSpeechChange CueType = "speech_change"
	CueApplause     CueType = "applause"
	CueVolumeChange CueType = "volume_change"
)

// AudioCue is a discrete timestamped audio event inside a content asset.
// Start/End are in seconds relative to the asset, not the scene.
type AudioCue struct {
	Type       CueType `json:"type" bson:"type"`
	Start      float64 `json:"start" bson:"start"`
	End        float64 `json:"end" bson:"end"`
	Confidence float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Label      string  `json:"label,omitempty" bson:"label,omitempty"`
}

// AudioFeatures is the per-scene feature snapshot produced by upstream
// detection. Classification probabilities informally sum to at most 1.
type AudioFeatures struct {
	Energy         float64            `json:"energy" bson:"energy"`
	PeakEnergy     float64            `json:"peak_energy,omitempty" bson:"peak_energy,omitempty"`
	Classification map[string]float64 `json:"classification,omitempty" bson:"classification,omitempty"`
	HasSpeech      bool               `json:"has_speech,omitempty" bson:"has_speech,omitempty"`
	Similarity     float64            `json:"similarity,omitempty" bson:"similarity,omitempty"`
}

const (
	ClassVoice   = "voice"
	ClassMusic   = "music"
	ClassSilence = "silence"
)

// Scene is a time-bounded segment of a content asset. Scenes are created by
// an upstream detection process; the engine only appends feedback and marks
// segments skipped.
type Scene struct {
	ID         string                 `json:"id" bson:"_id,omitempty"`
	ContentID  string                 `json:"content_id" bson:"content_id"`
	UserID     string                 `json:"user_id" bson:"user_id"`
	SceneIndex int                    `json:"scene_index" bson:"scene_index"`
	Start      float64                `json:"start" bson:"start"`
	End        float64                `json:"end" bson:"end"`
	Duration   float64                `json:"duration" bson:"duration"`
	Audio      AudioFeatures          `json:"audio_features" bson:"audio_features"`
	Cues       []AudioCue             `json:"audio_cues,omitempty" bson:"audio_cues,omitempty"`
	Skipped    bool                   `json:"skipped,omitempty" bson:"skipped,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at"`
}

// VoiceProbability returns the voice classification probability, 0 when the
// class is absent.
func (s *Scene) VoiceProbability() float64 {
	return s.Audio.Classification[ClassVoice]
}

// Window returns the scene bounds, deriving End from Duration when upstream
// only set one of the two.
func (s *Scene) Window() (start, end float64) {
	start = s.Start
	end = s.End
	if end <= start && s.Duration > 0 {
		end = start + s.Duration
	}
	return start, end
}

// Length returns the scene duration in seconds.
func (s *Scene) Length() float64 {
	if s.Duration > 0 {
		return s.Duration
	}
	start, end := s.Window()
	if end > start {
		return end - start
	}
	return 0
}
