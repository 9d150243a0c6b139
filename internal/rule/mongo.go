package rule

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoclip/internal/analytics"
	"autoclip/pkg/errors"
)

const rulesCollection = "automation_rules"

// MongoStore persists rules as single documents, so the rolling stats and
// the capped analytics log update with targeted operators instead of
// document replacement.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(rulesCollection)}
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*Rule, error) {
	var r Rule
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithMessagef("automation rule %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %s: %w", id, err)
	}

	r.DecodeActions()
	return &r, nil
}

func (s *MongoStore) FindEnabledByTrigger(ctx context.Context, userID, event string) ([]Rule, error) {
	filter := bson.M{
		"user_id":       userID,
		"enabled":       true,
		"trigger.kind":  TriggerEvent,
		"trigger.event": event,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	for i := range rules {
		rules[i].DecodeActions()
	}
	return rules, nil
}

func (s *MongoStore) Save(ctx context.Context, r *Rule) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, opts); err != nil {
		return fmt.Errorf("failed to save rule %s: %w", r.ID, err)
	}
	return nil
}

func (s *MongoStore) ApplyStats(ctx context.Context, ruleID string, delta StatsDelta) error {
	update := bson.M{
		"$inc": bson.M{
			"stats.executions":     delta.Executions,
			"stats.successes":      delta.Successes,
			"stats.full_successes": delta.FullSuccesses,
			"stats.failures":       delta.Failures,
		},
	}

	set := bson.M{"updated_at": time.Now()}
	if !delta.LastExecuted.IsZero() {
		set["stats.last_executed"] = delta.LastExecuted
	}
	if delta.LastError != "" {
		set["stats.last_error"] = delta.LastError
	}
	update["$set"] = set

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": ruleID}, update)
	if err != nil {
		return fmt.Errorf("failed to apply stats for rule %s: %w", ruleID, err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound.WithMessagef("automation rule %s not found", ruleID)
	}
	return nil
}

func (s *MongoStore) RecordFailure(ctx context.Context, ruleID, message string) error {
	return s.ApplyStats(ctx, ruleID, StatsDelta{Failures: 1, LastError: message})
}

// LoadLog and SaveLog implement analytics.Store over the embedded analytics
// block.
func (s *MongoStore) LoadLog(ctx context.Context, ruleID string) (*analytics.Log, error) {
	opts := options.FindOne().SetProjection(bson.M{"analytics": 1})

	var doc struct {
		Analytics analytics.Log `bson:"analytics"`
	}
	err := s.collection.FindOne(ctx, bson.M{"_id": ruleID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithMessagef("automation rule %s not found", ruleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics for rule %s: %w", ruleID, err)
	}
	return &doc.Analytics, nil
}

func (s *MongoStore) SaveLog(ctx context.Context, ruleID string, log *analytics.Log) error {
	// Record already capped the log, so the block is replaced wholesale.
	update := bson.M{
		"$set": bson.M{"analytics": log},
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": ruleID}, update)
	if err != nil {
		return fmt.Errorf("failed to save analytics for rule %s: %w", ruleID, err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound.WithMessagef("automation rule %s not found", ruleID)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes the trigger dispatcher relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "enabled", Value: 1},
				{Key: "trigger.kind", Value: 1},
				{Key: "trigger.event", Value: 1},
			},
			Options: options.Index().SetName("idx_rules_trigger_lookup"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_rules_updated_at"),
		},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create rule indexes: %w", err)
	}
	return nil
}
