package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// TaskInput holds the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description string
	Project     primitive.ObjectID
	AssignedTo  *primitive.ObjectID
	Status      models.TaskStatus
	Priority    models.Priority
	DueDate     *time.Time
	Tags        []string
}

// TaskPatch holds the fields to change; nil leaves a field as is.
type TaskPatch struct {
	Title        *string
	Description  *string
	AssignedTo   *primitive.ObjectID
	Status       *models.TaskStatus
	Priority     *models.Priority
	DueDate      *time.Time
	Tags         []string
	// ClearDueDate removes the due date and wins over DueDate.
	ClearDueDate bool
}

// ListTasks returns the project's tasks by order, newest first on ties.
// Collaborators may list.
func (s *Service) ListTasks(ctx context.Context, user, projectID primitive.ObjectID) ([]models.Task, error) {
	p, err := s.projectFor(ctx, user, projectID, CanAccessProject, msgProjectNoAccess)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().ListByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task of a project the user owns.
func (s *Service) GetTask(ctx context.Context, user, id primitive.ObjectID) (*models.Task, error) {
	t, _, err := s.taskFor(ctx, user, id)
	return t, err
}

// CreateTask adds a task at the end of the project. Only the project owner
// may create tasks.
func (s *Service) CreateTask(ctx context.Context, user primitive.ObjectID, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Project.IsZero() {
		return nil, models.NewValidationError(msgTaskRequired)
	}

	p, err := s.projectFor(ctx, user, in.Project, CanMutateProject, msgProjectNoAccess)
	if err != nil {
		return nil, err
	}

	order, err := s.NextOrder(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Project:     p.ID,
		AssignedTo:  user,
		CreatedBy:   user,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        models.NormalizeTags(in.Tags),
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.AssignedTo != nil && !in.AssignedTo.IsZero() {
		t.AssignedTo = *in.AssignedTo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	status := in.Status
	if status == "" {
		status = models.StatusTodo
	}
	t.SetStatus(status, now)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Tasks().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := s.Recount(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := s.Record(ctx, Event{Type: models.ActivityTaskCreated, User: user, Project: p, Task: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask applies patch. A completion flip is recorded in the feed;
// other edits are not.
func (s *Service) UpdateTask(ctx context.Context, user, id primitive.ObjectID, patch TaskPatch) (*models.Task, error) {
	t, p, err := s.taskFor(ctx, user, id)
	if err != nil {
		return nil, err
	}
	before := *t
	now := s.clock.Now()

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	switch {
	case patch.ClearDueDate:
		t.DueDate = nil
	case patch.DueDate != nil:
		due := *patch.DueDate
		t.DueDate = &due
	}
	if patch.Tags != nil {
		t.Tags = models.NormalizeTags(patch.Tags)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, models.NewValidationError("`" + string(*patch.Status) + "` is not a valid task status")
		}
		t.SetStatus(*patch.Status, now)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.UpdatedAt = now

	if err := s.store.Tasks().Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := s.Recount(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := s.RecordTransition(ctx, user, p, &before, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a task and records task_deleted.
func (s *Service) DeleteTask(ctx context.Context, user, id primitive.ObjectID) error {
	t, p, err := s.taskFor(ctx, user, id)
	if err != nil {
		return err
	}
	err = s.store.Tasks().Delete(ctx, t.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(msgTaskNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := s.Recount(ctx, p.ID); err != nil {
		return err
	}
	return s.Record(ctx, Event{Type: models.ActivityTaskDeleted, User: user, Project: p, Task: t})
}

// ToggleTask flips a task between completed and todo.
func (s *Service) ToggleTask(ctx context.Context, user, id primitive.ObjectID) (*models.Task, error) {
	t, p, err := s.taskFor(ctx, user, id)
	if err != nil {
		return nil, err
	}
	before := *t
	now := s.clock.Now()
	t.Toggle(now)
	t.UpdatedAt = now

	if err := s.store.Tasks().Update(ctx, t); err != nil {
		return nil, fmt.Errorf("toggle task: %w", err)
	}
	if err := s.Recount(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := s.RecordTransition(ctx, user, p, &before, t); err != nil {
		return nil, err
	}
	return t, nil
}
