package audio

import (
	"autoclip/internal/scene"
)

// EnrichedScene decorates a matching scene with its derived tag set and a
// summary for downstream consumers (clip creation, key moment tagging).
type EnrichedScene struct {
	scene.Scene
	Tags    []string `json:"audio_tags"`
	Summary Summary  `json:"audio_summary"`
}

type Summary struct {
	Energy        float64 `json:"energy"`
	SilenceRatio  float64 `json:"silence_ratio"`
	DominantClass string  `json:"dominant_class,omitempty"`
	HasSpeech     bool    `json:"has_speech"`
	CueCount      int     `json:"cue_count"`
}

// FilterEnriched filters like Filter and decorates every surviving scene.
func FilterEnriched(scenes []scene.Scene, criteria Criteria) []EnrichedScene {
	kept := Filter(scenes, criteria)

	enriched := make([]EnrichedScene, 0, len(kept))
	for i := range kept {
		s := kept[i]
		enriched = append(enriched, EnrichedScene{
			Scene:   s,
			Tags:    TagList(&s),
			Summary: Summarize(&s),
		})
	}
	return enriched
}

func Summarize(s *scene.Scene) Summary {
	return Summary{
		Energy:        s.Audio.Energy,
		SilenceRatio:  SilenceRatio(s),
		DominantClass: dominantClass(s),
		HasSpeech:     hasSpeech(s, defaultMinSpeechConfidence),
		CueCount:      len(s.Cues),
	}
}

func dominantClass(s *scene.Scene) string {
	var best string
	var bestProb float64
	for class, prob := range s.Audio.Classification {
		if prob > dominantClassThreshold && prob > bestProb {
			best = class
			bestProb = prob
		}
	}
	return best
}
