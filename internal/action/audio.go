package action

import (
	"context"
	"fmt"
	"sort"

	"autoclip/internal/audio"
	"autoclip/internal/learning"
	"autoclip/internal/logger"
	"autoclip/internal/rule"
	"autoclip/internal/scene"
)

// NewAudioFilteredClipHandler creates clips only from scenes that pass the
// configured audio criteria. With adaptive mode on, thresholds learned from
// the user's feedback history fill in any bounds the rule left unset.
func NewAudioFilteredClipHandler(clips ClipService, learners *learning.Registry, log logger.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.AudioFilteredClipConfig](a)
		if err != nil {
			return nil, err
		}

		criteria := cfg.Criteria
		adapted := false
		if cfg.Adaptive && learners != nil {
			learned, err := learners.Learned(ec.ContentID, ec.UserID)
			if err != nil {
				log.WarnwCtx(ctx, "Failed to load learned thresholds, using configured criteria",
					"error", err,
				)
			} else if learned != nil {
				criteria = learning.ApplyLearned(criteria, learned)
				adapted = true
				log.DebugwCtx(ctx, "Applied learned thresholds",
					"sample_size", learned.SampleSize,
				)
			}
		}

		matched, err := audio.FilterParallel(ctx, ec.Scenes, criteria, audio.DefaultBatchSize)
		if err != nil {
			return nil, fmt.Errorf("audio filtering failed: %w", err)
		}

		var clipIDs []string
		for i := range matched {
			if cfg.MaxClips > 0 && len(clipIDs) >= cfg.MaxClips {
				break
			}
			clipID, err := clips.CreateClip(ctx, ec.UserID, ec.ContentID, matched[i])
			if err != nil {
				return nil, err
			}
			clipIDs = append(clipIDs, clipID)
		}

		return map[string]interface{}{
			"scenes_processed": len(ec.Scenes),
			"scenes_filtered":  len(matched),
			"clips_created":    len(clipIDs),
			"clip_ids":         clipIDs,
			"adaptive":         adapted,
		}, nil
	})
}

// NewAudioSegmentSkipHandler marks every scene failing the criteria as
// skipped so downstream clip workflows leave them alone.
func NewAudioSegmentSkipHandler(scenes scene.Store, log logger.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.AudioSegmentSkipConfig](a)
		if err != nil {
			return nil, err
		}

		reason := cfg.Reason
		if reason == "" {
			reason = "did not meet audio criteria"
		}

		skipped := 0
		for i := range ec.Scenes {
			s := &ec.Scenes[i]
			if audio.Matches(s, cfg.Criteria) {
				continue
			}
			if err := scenes.MarkSkipped(ctx, s.ID, reason); err != nil {
				log.WarnwCtx(ctx, "Failed to mark scene skipped",
					"scene_id", s.ID,
					"error", err,
				)
				continue
			}
			skipped++
		}

		return map[string]interface{}{
			"scenes_processed": len(ec.Scenes),
			"scenes_skipped":   skipped,
		}, nil
	})
}

// NewKeyMomentHandler picks the highest-energy scenes passing the criteria
// and reports them as key moments. Tagging is advisory: the moments land in
// the execution record, not in the scene store.
func NewKeyMomentHandler() Handler {
	return HandlerFunc(func(ctx context.Context, a rule.Action, ec *rule.ExecutionContext) (map[string]interface{}, error) {
		cfg, err := decoded[*rule.KeyMomentConfig](a)
		if err != nil {
			return nil, err
		}

		var criteria audio.Criteria
		if cfg.Criteria != nil {
			criteria = *cfg.Criteria
		}

		matched := audio.Filter(ec.Scenes, criteria)
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Audio.Energy > matched[j].Audio.Energy
		})

		limit := cfg.MaxMoments
		if limit <= 0 || limit > len(matched) {
			limit = len(matched)
		}

		moments := make([]map[string]interface{}, 0, limit)
		for i := 0; i < limit; i++ {
			s := &matched[i]
			moments = append(moments, map[string]interface{}{
				"scene_id": s.ID,
				"start":    s.Start,
				"end":      s.End,
				"energy":   s.Audio.Energy,
				"tags":     audio.TagList(s),
			})
		}

		return map[string]interface{}{
			"scenes_processed": len(ec.Scenes),
			"scenes_filtered":  len(matched),
			"key_moments":      moments,
		}, nil
	})
}
