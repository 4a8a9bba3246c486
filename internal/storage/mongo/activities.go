package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

type activities struct{ c *mongo.Collection }

func (r activities) Append(ctx context.Context, a *models.Activity) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Metadata == nil {
		a.Metadata = map[string]string{}
	}
	if _, err := r.c.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r activities) ListByUser(ctx context.Context, user primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(ctx, bson.M{"user": user}, page)
}

func (r activities) CountByUser(ctx context.Context, user primitive.ObjectID) (int, error) {
	return r.count(ctx, bson.M{"user": user})
}

func (r activities) ListByProject(ctx context.Context, project primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(ctx, bson.M{"projectId": project}, page)
}

func (r activities) CountByProject(ctx context.Context, project primitive.ObjectID) (int, error) {
	return r.count(ctx, bson.M{"projectId": project})
}

func (r activities) list(ctx context.Context, filter bson.M, page storage.Page) ([]models.Activity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Skip))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	cursor, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Activity{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return out, nil
}

func (r activities) count(ctx context.Context, filter bson.M) (int, error) {
	n, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return int(n), nil
}
