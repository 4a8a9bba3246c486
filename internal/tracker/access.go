package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// CanAccessProject reports whether user owns or collaborates on p.
func CanAccessProject(user primitive.ObjectID, p *models.Project) bool {
	if p.Owner == user {
		return true
	}
	_, ok := p.Collaborator(user)
	return ok
}

// CanMutateProject reports whether user may change p or its collaborators.
// Only the owner may, whatever role a collaborator holds.
func CanMutateProject(user primitive.ObjectID, p *models.Project) bool {
	return p.Owner == user
}

// CanAccessTask reports whether user may read or change a task of p.
// This is narrower than CanAccessProject: collaborators can list a
// project's tasks and reorder them but cannot open one.
func CanAccessTask(user primitive.ObjectID, p *models.Project) bool {
	return p.Owner == user
}

// projectFor loads a project and applies allowed, answering msg as
// not found on any failure.
func (s *Service) projectFor(ctx context.Context, user, id primitive.ObjectID, allowed func(primitive.ObjectID, *models.Project) bool, msg string) (*models.Project, error) {
	p, err := s.store.Projects().Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if !allowed(user, p) {
		return nil, notFound(msg)
	}
	return p, nil
}

// taskFor loads a task with its project and checks CanAccessTask.
func (s *Service) taskFor(ctx context.Context, user, id primitive.ObjectID) (*models.Task, *models.Project, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, notFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load task: %w", err)
	}
	p, err := s.store.Projects().Get(ctx, t.Project)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, notFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load task project: %w", err)
	}
	if !CanAccessTask(user, p) {
		return nil, nil, forbidden(msgTaskNoAccess)
	}
	return t, p, nil
}
