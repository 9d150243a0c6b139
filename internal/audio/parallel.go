package audio

import (
	"context"

	"golang.org/x/sync/errgroup"

	"autoclip/internal/scene"
)

const (
	DefaultBatchSize           = 50
	DefaultMaxConcurrentAssets = 5
)

// FilterParallel splits scenes into fixed-size batches and filters the
// batches concurrently. Per-scene matching is order-independent, so
// concatenating batch results in batch order preserves input order.
func FilterParallel(ctx context.Context, scenes []scene.Scene, criteria Criteria, batchSize int) ([]scene.Scene, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(scenes) <= batchSize {
		return Filter(scenes, criteria), nil
	}

	batchCount := (len(scenes) + batchSize - 1) / batchSize
	results := make([][]scene.Scene, batchCount)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < batchCount; i++ {
		start := i * batchSize
		end := min(start+batchSize, len(scenes))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Filter(scenes[start:end], criteria)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]scene.Scene, 0, len(scenes))
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	return merged, nil
}

// AssetResult is the per-asset outcome of a bulk filter run.
type AssetResult struct {
	ContentID string
	Scenes    []scene.Scene
	Err       error
}

// FilterAssets filters scenes for multiple content assets with bounded
// concurrency. One asset's failure does not abort the others; per-asset
// errors are reported in the result slice, which follows contentIDs order.
// The returned error covers only group-level failures, not per-asset ones.
func FilterAssets(ctx context.Context, store scene.Store, contentIDs []string, userID string, criteria Criteria, maxConcurrent int) ([]AssetResult, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentAssets
	}

	results := make([]AssetResult, len(contentIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, contentID := range contentIDs {
		g.Go(func() error {
			results[i] = filterAsset(ctx, store, contentID, userID, criteria)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func filterAsset(ctx context.Context, store scene.Store, contentID, userID string, criteria Criteria) AssetResult {
	scenes, err := store.FindScenesForAsset(ctx, contentID, userID)
	if err != nil {
		return AssetResult{ContentID: contentID, Err: err}
	}

	kept, err := FilterParallel(ctx, scenes, criteria, DefaultBatchSize)
	if err != nil {
		return AssetResult{ContentID: contentID, Err: err}
	}
	return AssetResult{ContentID: contentID, Scenes: kept}
}
