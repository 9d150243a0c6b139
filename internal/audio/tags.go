package audio

import (
	"sort"

	"autoclip/internal/scene"
)

const (
	TagSpeech       = "speech"
	TagMusic        = "music"
	TagSilence      = "silence"
	TagHighEnergy   = "high_energy"
	TagLowEnergy    = "low_energy"
	TagApplause     = "applause"
	TagVolumeChange = "volume_change"
)

// Classification and energy cutoffs for tag derivation.
const (
	dominantClassThreshold = 0.5
	highEnergyThreshold    = 0.7
	lowEnergyThreshold     = 0.3
)

// DeriveTags computes the tag set for a scene from its classification
// probabilities, energy level, and discrete cues.
func DeriveTags(s *scene.Scene) map[string]bool {
	tags := make(map[string]bool)

	if s.Audio.Classification[scene.ClassVoice] > dominantClassThreshold {
		tags[TagSpeech] = true
	}
	if s.Audio.Classification[scene.ClassMusic] > dominantClassThreshold {
		tags[TagMusic] = true
	}
	if s.Audio.Classification[scene.ClassSilence] > dominantClassThreshold {
		tags[TagSilence] = true
	}

	if s.Audio.Energy > highEnergyThreshold {
		tags[TagHighEnergy] = true
	} else if s.Audio.Energy < lowEnergyThreshold {
		tags[TagLowEnergy] = true
	}

	for _, cue := range s.Cues {
		switch cue.Type {
		case scene.CueApplause:
			tags[TagApplause] = true
		case scene.CueMusicChange:
			tags[TagMusic] = true
		case scene.CueVolumeChange:
			tags[TagVolumeChange] = true
		case scene.CueSpeechChange:
			tags[TagSpeech] = true
		}
	}

	return tags
}

// TagList returns the derived tags as a sorted slice for stable output.
func TagList(s *scene.Scene) []string {
	set := DeriveTags(s)
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
