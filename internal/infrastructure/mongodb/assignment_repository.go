// Package mongodb persists completed link attempts for operator review.
// This is an audit trail only; no in-flight pipeline state is persisted.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/scan-gateway/internal/domain"
)

// AssignmentRepository stores assignment records in MongoDB
type AssignmentRepository struct {
	collection *mongo.Collection
}

// NewAssignmentRepository creates the repository and ensures its indexes
func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	collection := db.Collection("scan_assignments")

	repo := &AssignmentRepository{collection: collection}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *AssignmentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignmentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "containerId", Value: 1}}},
		{Keys: bson.D{{Key: "tagCode", Value: 1}}},
		{Keys: bson.D{{Key: "completedAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Record inserts one completed link attempt
func (r *AssignmentRepository) Record(ctx context.Context, record domain.AssignmentRecord) error {
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to record assignment: %w", err)
	}
	return nil
}

// Recent returns the most recent assignment records, newest first
func (r *AssignmentRepository) Recent(ctx context.Context, limit int) ([]domain.AssignmentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "completedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.AssignmentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return records, nil
}
