package audio

// Criteria is the set of audio predicates a scene must satisfy. Every field
// is optional and inert when unset: an unrequested predicate is always
// satisfied. Matching is conjunctive across requested predicates.
type Criteria struct {
	RequireSpeech       bool     `json:"require_speech,omitempty" bson:"require_speech,omitempty" mapstructure:"require_speech"`
	MinSpeechConfidence float64  `json:"min_speech_confidence,omitempty" bson:"min_speech_confidence,omitempty" mapstructure:"min_speech_confidence"`
	RequireHighEnergy   bool     `json:"require_high_energy,omitempty" bson:"require_high_energy,omitempty" mapstructure:"require_high_energy"`
	MinEnergy           float64  `json:"min_energy,omitempty" bson:"min_energy,omitempty" mapstructure:"min_energy"`
	SkipSilence         bool     `json:"skip_silence,omitempty" bson:"skip_silence,omitempty" mapstructure:"skip_silence"`
	MaxSilenceRatio     float64  `json:"max_silence_ratio,omitempty" bson:"max_silence_ratio,omitempty" mapstructure:"max_silence_ratio"`
	SkipNoise           bool     `json:"skip_noise,omitempty" bson:"skip_noise,omitempty" mapstructure:"skip_noise"`
	RequireTopicChange  bool     `json:"require_topic_change,omitempty" bson:"require_topic_change,omitempty" mapstructure:"require_topic_change"`
	AudioTags           []string `json:"audio_tags,omitempty" bson:"audio_tags,omitempty" mapstructure:"audio_tags"`
	ExcludeTags         []string `json:"exclude_tags,omitempty" bson:"exclude_tags,omitempty" mapstructure:"exclude_tags"`
}

// Fallback thresholds used when a predicate is requested without its numeric
// bound.
const (
	defaultMinSpeechConfidence = 0.5
	defaultMinEnergy           = 0.5
	defaultMaxSilenceRatio     = 0.5
)

// IsZero reports whether no predicate is requested at all.
func (c Criteria) IsZero() bool {
	return !c.RequireSpeech &&
		!c.RequireHighEnergy &&
		!c.SkipSilence &&
		!c.SkipNoise &&
		!c.RequireTopicChange &&
		len(c.AudioTags) == 0 &&
		len(c.ExcludeTags) == 0
}

func (c Criteria) speechConfidence() float64 {
	if c.MinSpeechConfidence > 0 {
		return c.MinSpeechConfidence
	}
	return defaultMinSpeechConfidence
}

func (c Criteria) minEnergy() float64 {
	if c.MinEnergy > 0 {
		return c.MinEnergy
	}
	return defaultMinEnergy
}

func (c Criteria) maxSilenceRatio() float64 {
	if c.MaxSilenceRatio > 0 {
		return c.MaxSilenceRatio
	}
	return defaultMaxSilenceRatio
}
