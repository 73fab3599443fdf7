// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProjects(ctx, db); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureTasks(ctx, db); err != nil {
		problems = append(problems, "tasks: "+err.Error())
	}
	if err := ensureSyncOps(ctx, db); err != nil {
		problems = append(problems, "vector_sync_ops: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

type existingIndex struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

// ensureIndexSet creates any of the desired indexes whose key pattern does
// not exist yet. Existing indexes with the same keys are reused as-is;
// option conflicts surface as errors rather than silent drops.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := map[string]struct{}{}
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = struct{}{}
		}
	}

	var errs []string
	for _, m := range models {
		sig := keySig(m.Keys.(bson.D))
		if _, ok := existing[sig]; ok {
			continue
		}
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("created index",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("projects"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "members.user", Value: 1}},
			Options: options.Index().SetName("members_user"),
		},
		{
			Keys:    bson.D{{Key: "members.email", Value: 1}},
			Options: options.Index().SetName("members_email"),
		},
		// Legacy single-owner lookups.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("legacy_owner"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("tasks"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}},
			Options: options.Index().SetName("project"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("legacy_user"),
		},
	})
}

func ensureSyncOps(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("vector_sync_ops"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("state_updated"),
		},
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().SetName("task"),
		},
	})
}
