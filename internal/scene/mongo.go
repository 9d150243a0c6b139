package scene

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoclip/pkg/errors"
)

const scenesCollection = "scenes"

// MongoStore reads detected scenes and writes back feedback entries and
// skip marks. Scene documents are owned by the upstream detection service;
// this store never creates or deletes them.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(scenesCollection)}
}

func (s *MongoStore) FindScenesForAsset(ctx context.Context, contentID, userID string) ([]Scene, error) {
	filter := bson.M{
		"content_id": contentID,
		"user_id":    userID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "scene_index", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer cursor.Close(ctx)

	var scenes []Scene
	if err := cursor.All(ctx, &scenes); err != nil {
		return nil, fmt.Errorf("failed to decode scenes: %w", err)
	}
	return scenes, nil
}

func (s *MongoStore) AppendFeedback(ctx context.Context, sceneID string, entry map[string]interface{}) error {
	update := bson.M{
		"$push": bson.M{"metadata.feedback": entry},
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": sceneID}, update)
	if err != nil {
		return fmt.Errorf("failed to append scene feedback: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound.WithMessagef("scene %s not found", sceneID)
	}
	return nil
}

func (s *MongoStore) MarkSkipped(ctx context.Context, sceneID string, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"skipped":                 true,
			"metadata.skip_reason":    reason,
			"metadata.skip_timestamp": time.Now(),
		},
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": sceneID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark scene skipped: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound.WithMessagef("scene %s not found", sceneID)
	}
	return nil
}

// EnsureIndexes creates the lookup index used by FindScenesForAsset.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "content_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "scene_index", Value: 1},
		},
		Options: options.Index().SetName("idx_scenes_asset_lookup"),
	})
	if err != nil {
		return fmt.Errorf("failed to create scene indexes: %w", err)
	}
	return nil
}
