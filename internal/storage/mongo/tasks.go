package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

type tasks struct{ c *mongo.Collection }

func (r tasks) Create(ctx context.Context, t *models.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if _, err := r.c.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r tasks) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, notFound(err, "get task")
	}
	return &t, nil
}

func (r tasks) ListByProject(ctx context.Context, project primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "order", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	cursor, err := r.c.Find(ctx, bson.M{"project": project}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Task{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return out, nil
}

func (r tasks) Update(ctx context.Context, t *models.Task) error {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	set := bson.M{
		"title":       t.Title,
		"description": t.Description,
		"project":     t.Project,
		"assignedTo":  t.AssignedTo,
		"createdBy":   t.CreatedBy,
		"status":      t.Status,
		"priority":    t.Priority,
		"tags":        tags,
		"completed":   t.Completed,
		"completedAt": t.CompletedAt,
		"updatedAt":   t.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if t.DueDate != nil {
		set["dueDate"] = *t.DueDate
	} else {
		update["$unset"] = bson.M{"dueDate": ""}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": t.ID}, update)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r tasks) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r tasks) DeleteByProject(ctx context.Context, project primitive.ObjectID) (int, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{"project": project})
	if err != nil {
		return 0, fmt.Errorf("delete project tasks: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (r tasks) Count(ctx context.Context, project primitive.ObjectID) (int, int, error) {
	total, err := r.c.CountDocuments(ctx, bson.M{"project": project})
	if err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	completed, err := r.c.CountDocuments(ctx, bson.M{"project": project, "completed": true})
	if err != nil {
		return 0, 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return int(total), int(completed), nil
}

func (r tasks) CountByStatus(ctx context.Context, project primitive.ObjectID) (map[models.TaskStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project": project}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate task statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.TaskStatus `bson:"_id"`
		Count  int               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode task statuses: %w", err)
	}
	counts := make(map[models.TaskStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r tasks) MaxOrder(ctx context.Context, project primitive.ObjectID) (int, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})
	var doc struct {
		Order int `bson:"order"`
	}
	err := r.c.FindOne(ctx, bson.M{"project": project}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select max order: %w", err)
	}
	return doc.Order, true, nil
}

func (r tasks) SetOrder(ctx context.Context, project, id primitive.ObjectID, order int) (bool, error) {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "project": project},
		bson.M{"$set": bson.M{"order": order}})
	if err != nil {
		return false, fmt.Errorf("set task order: %w", err)
	}
	return res.MatchedCount > 0, nil
}
