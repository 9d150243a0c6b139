package audio

import (
	"strings"
	"time"

	"autoclip/internal/scene"
	"autoclip/pkg/metrics"
)

// Filter returns the scenes satisfying every requested predicate, preserving
// input order. It is pure: scenes are never mutated.
func Filter(scenes []scene.Scene, criteria Criteria) []scene.Scene {
	start := time.Now()

	kept := make([]scene.Scene, 0, len(scenes))
	for i := range scenes {
		if Matches(&scenes[i], criteria) {
			kept = append(kept, scenes[i])
		}
	}

	metrics.ScenesFilteredTotal.WithLabelValues("kept").Add(float64(len(kept)))
	metrics.ScenesFilteredTotal.WithLabelValues("dropped").Add(float64(len(scenes) - len(kept)))
	metrics.FilterDuration.Observe(float64(time.Since(start).Milliseconds()))

	return kept
}

// Matches evaluates all requested predicates for a single scene.
func Matches(s *scene.Scene, c Criteria) bool {
	if c.RequireSpeech && !hasSpeech(s, c.speechConfidence()) {
		return false
	}

	if c.RequireHighEnergy && !hasHighEnergy(s, c.minEnergy()) {
		return false
	}

	if c.SkipSilence && SilenceRatio(s) > c.maxSilenceRatio() {
		return false
	}

	if c.SkipNoise && isNoise(s) {
		return false
	}

	if c.RequireTopicChange && !hasTopicChange(s) {
		return false
	}

	if len(c.AudioTags) > 0 || len(c.ExcludeTags) > 0 {
		tags := DeriveTags(s)
		for _, required := range c.AudioTags {
			if !tags[required] {
				return false
			}
		}
		for _, excluded := range c.ExcludeTags {
			if tags[excluded] {
				return false
			}
		}
	}

	return true
}

// hasSpeech is satisfied by an explicit upstream marker, a voice
// classification above the confidence bound, or a speech-related cue.
func hasSpeech(s *scene.Scene, minConfidence float64) bool {
	if s.Audio.HasSpeech {
		return true
	}
	if s.VoiceProbability() > minConfidence {
		return true
	}
	for _, cue := range s.Cues {
		if cue.Type == scene.CueSpeechChange {
			return true
		}
		if strings.Contains(strings.ToLower(string(cue.Type)), "voice") ||
			strings.Contains(strings.ToLower(cue.Label), "voice") {
			return true
		}
	}
	return false
}

func hasHighEnergy(s *scene.Scene, minEnergy float64) bool {
	return s.Audio.Energy >= minEnergy || s.Audio.PeakEnergy >= minEnergy
}

// SilenceRatio is the fraction of the scene window covered by silence cues.
// Overlap is clamped per cue, so the result is always within [0,1].
func SilenceRatio(s *scene.Scene) float64 {
	length := s.Length()
	if length <= 0 {
		return 0
	}

	start, end := s.Window()
	var covered float64
	for _, cue := range s.Cues {
		if cue.Type != scene.CueSilence {
			continue
		}
		overlap := min(cue.End, end) - max(cue.Start, start)
		if overlap > 0 {
			covered += overlap
		}
	}

	ratio := covered / length
	if ratio > 1 {
		return 1
	}
	return ratio
}

// isNoise marks scenes with near-zero energy or no dominant classification
// class. Used to exclude; never to require.
func isNoise(s *scene.Scene) bool {
	if s.Audio.Energy < 0.1 {
		return true
	}
	for _, prob := range s.Audio.Classification {
		if prob > dominantClassThreshold {
			return false
		}
	}
	return true
}

func hasTopicChange(s *scene.Scene) bool {
	for _, cue := range s.Cues {
		if cue.Type == scene.CueSpeechChange || cue.Type == scene.CueMusicChange {
			return true
		}
	}
	return false
}
