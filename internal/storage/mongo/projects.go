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

type projects struct{ c *mongo.Collection }

func (r projects) Create(ctx context.Context, p *models.Project) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Collaborators == nil {
		p.Collaborators = []models.Collaborator{}
	}
	if _, err := r.c.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r projects) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err, "get project")
	}
	return &p, nil
}

func (r projects) ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Project, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner": user},
		bson.M{"collaborators.user": user},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Project{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}

func (r projects) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := r.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode project id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// Update sets every editable field. The counters are owned by SetCounts.
func (r projects) Update(ctx context.Context, p *models.Project) error {
	collaborators := p.Collaborators
	if collaborators == nil {
		collaborators = []models.Collaborator{}
	}
	set := bson.M{
		"title":         p.Title,
		"description":   p.Description,
		"color":         p.Color,
		"owner":         p.Owner,
		"collaborators": collaborators,
		"status":        p.Status,
		"priority":      p.Priority,
		"updatedAt":     p.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	} else {
		update["$unset"] = bson.M{"dueDate": ""}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r projects) SetCounts(ctx context.Context, id primitive.ObjectID, total, completed int) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"tasksCount":          total,
		"completedTasksCount": completed,
	}})
	if err != nil {
		return fmt.Errorf("set project counts: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r projects) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
