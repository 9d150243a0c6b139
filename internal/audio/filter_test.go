package audio

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclip/internal/scene"
)

func speechScene(id string, voiceProb, energy float64) scene.Scene {
	return scene.Scene{
		ID:       id,
		Start:    0,
		End:      10,
		Duration: 10,
		Audio: scene.AudioFeatures{
			Energy:         energy,
			Classification: map[string]float64{scene.ClassVoice: voiceProb},
		},
	}
}

func TestFilterInertCriteriaKeepsEverything(t *testing.T) {
	scenes := []scene.Scene{
		speechScene("a", 0.9, 0.8),
		speechScene("b", 0.1, 0.05),
		{ID: "c"},
	}

	kept := Filter(scenes, Criteria{})
	require.Len(t, kept, 3)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "b", kept[1].ID)
	assert.Equal(t, "c", kept[2].ID)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	scenes := []scene.Scene{speechScene("a", 0.9, 0.8)}
	_ = Filter(scenes, Criteria{RequireSpeech: true})
	assert.Equal(t, "a", scenes[0].ID)
	assert.Equal(t, 0.8, scenes[0].Audio.Energy)
}

func TestMatchesSpeech(t *testing.T) {
	tests := []struct {
		name     string
		s        scene.Scene
		criteria Criteria
		want     bool
	}{
		{
			name:     "explicit speech marker",
			s:        scene.Scene{Audio: scene.AudioFeatures{HasSpeech: true}},
			criteria: Criteria{RequireSpeech: true},
			want:     true,
		},
		{
			name:     "voice probability above default threshold",
			s:        speechScene("a", 0.6, 0.5),
			criteria: Criteria{RequireSpeech: true},
			want:     true,
		},
		{
			name:     "voice probability at default threshold is not enough",
			s:        speechScene("a", 0.5, 0.5),
			criteria: Criteria{RequireSpeech: true},
			want:     false,
		},
		{
			name:     "explicit confidence bound",
			s:        speechScene("a", 0.6, 0.5),
			criteria: Criteria{RequireSpeech: true, MinSpeechConfidence: 0.8},
			want:     false,
		},
		{
			name: "speech change cue",
			s: scene.Scene{
				Cues: []scene.AudioCue{{Type: scene.CueSpeechChange}},
			},
			criteria: Criteria{RequireSpeech: true},
			want:     true,
		},
		{
			name: "voice label cue",
			s: scene.Scene{
				Cues: []scene.AudioCue{{Type: scene.CueVolumeChange, Label: "voice over"}},
			},
			criteria: Criteria{RequireSpeech: true},
			want:     true,
		},
		{
			name:     "no speech signal at all",
			s:        scene.Scene{},
			criteria: Criteria{RequireSpeech: true},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(&tt.s, tt.criteria))
		})
	}
}

func TestMatchesEnergy(t *testing.T) {
	tests := []struct {
		name     string
		features scene.AudioFeatures
		criteria Criteria
		want     bool
	}{
		{
			name:     "energy above default bound",
			features: scene.AudioFeatures{Energy: 0.6},
			criteria: Criteria{RequireHighEnergy: true},
			want:     true,
		},
		{
			name:     "energy below default bound",
			features: scene.AudioFeatures{Energy: 0.4},
			criteria: Criteria{RequireHighEnergy: true},
			want:     false,
		},
		{
			name:     "peak energy satisfies the bound",
			features: scene.AudioFeatures{Energy: 0.2, PeakEnergy: 0.9},
			criteria: Criteria{RequireHighEnergy: true, MinEnergy: 0.8},
			want:     true,
		},
		{
			name:     "explicit bound",
			features: scene.AudioFeatures{Energy: 0.6},
			criteria: Criteria{RequireHighEnergy: true, MinEnergy: 0.7},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scene.Scene{Audio: tt.features}
			assert.Equal(t, tt.want, Matches(&s, tt.criteria))
		})
	}
}

func TestSilenceRatio(t *testing.T) {
	tests := []struct {
		name string
		s    scene.Scene
		want float64
	}{
		{
			name: "no cues",
			s:    scene.Scene{Start: 0, End: 10, Duration: 10},
			want: 0,
		},
		{
			name: "half silence",
			s: scene.Scene{
				Start: 0, End: 10, Duration: 10,
				Cues: []scene.AudioCue{{Type: scene.CueSilence, Start: 2, End: 7}},
			},
			want: 0.5,
		},
		{
			name: "cue overhanging the scene window is clamped",
			s: scene.Scene{
				Start: 10, End: 20, Duration: 10,
				Cues: []scene.AudioCue{{Type: scene.CueSilence, Start: 0, End: 15}},
			},
			want: 0.5,
		},
		{
			name: "overlapping cues cap at one",
			s: scene.Scene{
				Start: 0, End: 10, Duration: 10,
				Cues: []scene.AudioCue{
					{Type: scene.CueSilence, Start: 0, End: 10},
					{Type: scene.CueSilence, Start: 0, End: 10},
				},
			},
			want: 1,
		},
		{
			name: "non-silence cues are ignored",
			s: scene.Scene{
				Start: 0, End: 10, Duration: 10,
				Cues: []scene.AudioCue{{Type: scene.CueApplause, Start: 0, End: 10}},
			},
			want: 0,
		},
		{
			name: "zero-length scene",
			s:    scene.Scene{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SilenceRatio(&tt.s)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestMatchesNoise(t *testing.T) {
	noisy := scene.Scene{Audio: scene.AudioFeatures{Energy: 0.05}}
	assert.False(t, Matches(&noisy, Criteria{SkipNoise: true}))

	undominated := scene.Scene{Audio: scene.AudioFeatures{
		Energy:         0.5,
		Classification: map[string]float64{scene.ClassVoice: 0.3, scene.ClassMusic: 0.3},
	}}
	assert.False(t, Matches(&undominated, Criteria{SkipNoise: true}))

	dominant := scene.Scene{Audio: scene.AudioFeatures{
		Energy:         0.5,
		Classification: map[string]float64{scene.ClassVoice: 0.8},
	}}
	assert.True(t, Matches(&dominant, Criteria{SkipNoise: true}))
}

func TestMatchesTopicChange(t *testing.T) {
	withChange := scene.Scene{Cues: []scene.AudioCue{{Type: scene.CueMusicChange}}}
	assert.True(t, Matches(&withChange, Criteria{RequireTopicChange: true}))

	without := scene.Scene{Cues: []scene.AudioCue{{Type: scene.CueApplause}}}
	assert.False(t, Matches(&without, Criteria{RequireTopicChange: true}))
}

func TestMatchesTags(t *testing.T) {
	s := scene.Scene{
		Audio: scene.AudioFeatures{
			Energy:         0.8,
			Classification: map[string]float64{scene.ClassVoice: 0.9},
		},
		Cues: []scene.AudioCue{{Type: scene.CueApplause}},
	}

	assert.True(t, Matches(&s, Criteria{AudioTags: []string{TagSpeech, TagHighEnergy, TagApplause}}))
	assert.False(t, Matches(&s, Criteria{AudioTags: []string{TagMusic}}))
	assert.False(t, Matches(&s, Criteria{ExcludeTags: []string{TagApplause}}))
	assert.True(t, Matches(&s, Criteria{ExcludeTags: []string{TagSilence}}))
}

func TestFilterConjunction(t *testing.T) {
	scenes := []scene.Scene{
		{
			ID: "speech-high-energy",
			Audio: scene.AudioFeatures{
				Energy:         0.8,
				Classification: map[string]float64{scene.ClassVoice: 0.9},
			},
		},
		{
			ID: "speech-low-energy",
			Audio: scene.AudioFeatures{
				Energy:         0.2,
				Classification: map[string]float64{scene.ClassVoice: 0.9},
			},
		},
		{
			ID: "music-high-energy",
			Audio: scene.AudioFeatures{
				Energy:         0.8,
				Classification: map[string]float64{scene.ClassMusic: 0.9},
			},
		},
	}

	kept := Filter(scenes, Criteria{RequireSpeech: true, RequireHighEnergy: true, MinEnergy: 0.5})
	require.Len(t, kept, 1)
	assert.Equal(t, "speech-high-energy", kept[0].ID)
}

func TestFilterSpeechClipWorkflow(t *testing.T) {
	scenes := make([]scene.Scene, 10)
	for i := range scenes {
		voiceProb := 0.8
		if i >= 4 {
			voiceProb = 0.2
		}
		scenes[i] = speechScene(fmt.Sprintf("scene-%d", i+1), voiceProb, 0.5)
	}

	criteria := Criteria{
		RequireSpeech:       true,
		MinSpeechConfidence: 0.6,
		SkipSilence:         true,
		MaxSilenceRatio:     0.3,
	}

	kept := Filter(scenes, criteria)
	require.Len(t, kept, 4)
	for i, s := range kept {
		assert.Equal(t, fmt.Sprintf("scene-%d", i+1), s.ID)
	}
}

func TestFilterParallelPreservesOrder(t *testing.T) {
	scenes := make([]scene.Scene, 120)
	for i := range scenes {
		scenes[i] = speechScene(fmt.Sprintf("scene-%03d", i), 0.9, 0.8)
		if i%3 == 0 {
			scenes[i].Audio.Classification[scene.ClassVoice] = 0.1
		}
	}

	sequential := Filter(scenes, Criteria{RequireSpeech: true})
	parallel, err := FilterParallel(context.Background(), scenes, Criteria{RequireSpeech: true}, 25)
	require.NoError(t, err)

	require.Equal(t, len(sequential), len(parallel))
	for i := range sequential {
		assert.Equal(t, sequential[i].ID, parallel[i].ID)
	}
}

func TestFilterParallelSmallInputStaysSequential(t *testing.T) {
	scenes := []scene.Scene{speechScene("a", 0.9, 0.8)}
	kept, err := FilterParallel(context.Background(), scenes, Criteria{}, 50)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestFilterEnriched(t *testing.T) {
	scenes := []scene.Scene{
		{
			ID:       "a",
			Start:    0,
			End:      10,
			Duration: 10,
			Audio: scene.AudioFeatures{
				Energy:         0.8,
				Classification: map[string]float64{scene.ClassVoice: 0.9},
			},
			Cues: []scene.AudioCue{{Type: scene.CueSilence, Start: 0, End: 2}},
		},
	}

	enriched := FilterEnriched(scenes, Criteria{RequireSpeech: true})
	require.Len(t, enriched, 1)

	assert.Contains(t, enriched[0].Tags, TagSpeech)
	assert.Contains(t, enriched[0].Tags, TagHighEnergy)
	assert.Equal(t, scene.ClassVoice, enriched[0].Summary.DominantClass)
	assert.InDelta(t, 0.2, enriched[0].Summary.SilenceRatio, 1e-9)
	assert.True(t, enriched[0].Summary.HasSpeech)
	assert.Equal(t, 1, enriched[0].Summary.CueCount)
}
