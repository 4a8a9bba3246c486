// Package storage defines the persistence port the tracker depends on.
// Adapters live in the memory, mongo and sqlite subpackages.
package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
)

// ErrNotFound is returned when a document with the requested id is absent.
var ErrNotFound = errors.New("document not found")

// Store is an open handle on the entity store. Each repository offers
// per-document atomicity only.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Activities() ActivityRepository
	Close(ctx context.Context) error
}

// UserRepository looks up identities managed outside the tracker.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	// ListForUser returns projects the user owns or collaborates on,
	// newest first.
	ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Project, error)
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
	// Update replaces the stored document, counters excluded.
	Update(ctx context.Context, project *models.Project) error
	SetCounts(ctx context.Context, id primitive.ObjectID, total, completed int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	// ListByProject orders by order ascending, then createdAt descending.
	ListByProject(ctx context.Context, project primitive.ObjectID) ([]models.Task, error)
	// Update replaces the stored document, order excluded. SetOrder is the
	// only writer of order after creation.
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByProject(ctx context.Context, project primitive.ObjectID) (int, error)
	Count(ctx context.Context, project primitive.ObjectID) (total, completed int, err error)
	CountByStatus(ctx context.Context, project primitive.ObjectID) (map[models.TaskStatus]int, error)
	// MaxOrder reports the highest order in the project; ok is false when
	// the project has no tasks.
	MaxOrder(ctx context.Context, project primitive.ObjectID) (order int, ok bool, err error)
	// SetOrder updates a single task's order if it belongs to project. It
	// reports whether a task matched.
	SetOrder(ctx context.Context, project, id primitive.ObjectID, order int) (bool, error)
}

// ActivityRepository appends and pages through feed entries.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.Activity) error
	ListByUser(ctx context.Context, user primitive.ObjectID, page Page) ([]models.Activity, error)
	CountByUser(ctx context.Context, user primitive.ObjectID) (int, error)
	ListByProject(ctx context.Context, project primitive.ObjectID, page Page) ([]models.Activity, error)
	CountByProject(ctx context.Context, project primitive.ObjectID) (int, error)
}

// Page selects a window of a newest-first listing.
type Page struct {
	Skip  int
	Limit int
}
