package scene

import (
	"context"

	"autoclip/internal/logger"
)

// CachedStore decorates a Store with the audio feature cache. On a cache hit
// the loaded scenes reuse the cached feature map; on a miss the features are
// written back after the load. Cache failures never fail a read.
type CachedStore struct {
	inner  Store
	cache  FeatureCache
	logger logger.Logger
}

func NewCachedStore(inner Store, cache FeatureCache, log logger.Logger) *CachedStore {
	return &CachedStore{inner: inner, cache: cache, logger: log}
}

func (s *CachedStore) FindScenesForAsset(ctx context.Context, contentID, userID string) ([]Scene, error) {
	scenes, err := s.inner.FindScenesForAsset(ctx, contentID, userID)
	if err != nil {
		return nil, err
	}

	cached, hit, cacheErr := s.cache.Get(ctx, contentID)
	if cacheErr != nil {
		s.logger.WarnwCtx(ctx, "Feature cache read failed, using stored features",
			"error", cacheErr,
		)
		return scenes, nil
	}

	if hit {
		for i := range scenes {
			if features, ok := cached[scenes[i].ID]; ok {
				scenes[i].Audio = features
			}
		}
		return scenes, nil
	}

	features := make(map[string]AudioFeatures, len(scenes))
	for i := range scenes {
		features[scenes[i].ID] = scenes[i].Audio
	}
	if err := s.cache.Set(ctx, contentID, features); err != nil {
		s.logger.WarnwCtx(ctx, "Feature cache write failed, continuing",
			"error", err,
		)
	}

	return scenes, nil
}

func (s *CachedStore) AppendFeedback(ctx context.Context, sceneID string, entry map[string]interface{}) error {
	return s.inner.AppendFeedback(ctx, sceneID, entry)
}

func (s *CachedStore) MarkSkipped(ctx context.Context, sceneID string, reason string) error {
	return s.inner.MarkSkipped(ctx, sceneID, reason)
}
