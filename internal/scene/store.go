package scene

import "context"

// Store is the scene persistence collaborator. Scene detection and storage
// live upstream; the engine reads scenes per asset and writes back only
// feedback entries and skip marks.
type Store interface {
	FindScenesForAsset(ctx context.Context, contentID, userID string) ([]Scene, error)
	AppendFeedback(ctx context.Context, sceneID string, entry map[string]interface{}) error
	MarkSkipped(ctx context.Context, sceneID string, reason string) error
}
