// Package mongo is the MongoDB storage adapter, the primary store for
// production deployments.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// Collection names.
const (
	usersCollection      = "users"
	projectsCollection   = "projects"
	tasksCollection      = "tasks"
	activitiesCollection = "activityfeeds"
)

// Store holds the client and the four collections the tracker uses.
type Store struct {
	client     *mongo.Client
	users      *mongo.Collection
	projects   *mongo.Collection
	tasks      *mongo.Collection
	activities *mongo.Collection
	logger     *logrus.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and ensures indexes exist.
func Open(ctx context.Context, uri, database string, logger *logrus.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty mongodb uri")
	}
	if logger == nil {
		logger = logrus.New()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:     client,
		users:      db.Collection(usersCollection),
		projects:   db.Collection(projectsCollection),
		tasks:      db.Collection(tasksCollection),
		activities: db.Collection(activitiesCollection),
		logger:     logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.WithField("database", database).Info("connected to MongoDB")
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests against a scratch database.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.users.Database().Drop(ctx); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

func (s *Store) Users() storage.UserRepository          { return users{s.users} }
func (s *Store) Projects() storage.ProjectRepository    { return projects{s.projects} }
func (s *Store) Tasks() storage.TaskRepository          { return tasks{s.tasks} }
func (s *Store) Activities() storage.ActivityRepository { return activities{s.activities} }

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.projects: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "collaborators.user", Value: 1}}},
		},
		s.tasks: {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "order", Value: 1}}},
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "status", Value: 1}}},
		},
		s.activities: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll.Name(), err)
		}
	}
	return nil
}

// notFound maps the driver's no-document error onto the storage sentinel.
func notFound(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

type users struct{ c *mongo.Collection }

func (r users) Create(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := r.c.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r users) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err, "get user")
	}
	return &u, nil
}

func (r users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.c.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&u); err != nil {
		return nil, notFound(err, "find user by email")
	}
	return &u, nil
}
