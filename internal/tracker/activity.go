package tracker

import (
	"context"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// Feed paging defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Event describes a change to append to the activity feed. Task is nil for
// project events.
type Event struct {
	Type     models.ActivityType
	User     primitive.ObjectID
	Project  *models.Project
	Task     *models.Task
	Metadata map[string]string
}

// Record appends one entry for ev. Titles are copied at this moment, so
// later renames leave the entry unchanged. Project events carry the project
// title in the task field. Deleted tasks keep their title but lose the id.
func (s *Service) Record(ctx context.Context, ev Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("record activity: unknown type %q", ev.Type)
	}
	a := &models.Activity{
		User:        ev.User,
		ProjectID:   ev.Project.ID,
		ProjectName: ev.Project.Title,
		Task:        ev.Project.Title,
		Type:        ev.Type,
		Metadata:    ev.Metadata,
		CreatedAt:   s.clock.Now(),
	}
	if a.Metadata == nil {
		a.Metadata = map[string]string{}
	}
	if ev.Task != nil {
		a.Task = ev.Task.Title
		if ev.Type != models.ActivityTaskDeleted {
			id := ev.Task.ID
			a.TaskID = &id
		}
	}
	if err := s.store.Activities().Append(ctx, a); err != nil {
		return fmt.Errorf("record %s: %w", ev.Type, err)
	}
	return nil
}

// RecordTransition appends task_completed or task_reopened when the
// completed flag differs between before and after, and nothing otherwise.
func (s *Service) RecordTransition(ctx context.Context, user primitive.ObjectID, project *models.Project, before, after *models.Task) error {
	if before.Completed == after.Completed {
		return nil
	}
	typ := models.ActivityTaskReopened
	if after.Completed {
		typ = models.ActivityTaskCompleted
	}
	return s.Record(ctx, Event{
		Type:    typ,
		User:    user,
		Project: project,
		Task:    after,
		Metadata: map[string]string{
			"from": string(before.Status),
			"to":   string(after.Status),
		},
	})
}

// Pagination describes the window a FeedPage covers.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

// FeedPage is one page of activity, newest first.
type FeedPage struct {
	Activities []models.Activity `json:"activities"`
	Pagination Pagination        `json:"pagination"`
}

// maxPage keeps (page-1)*size within int for any size up to MaxPageSize.
const maxPage = math.MaxInt / MaxPageSize

// NormalizePage applies the paging defaults: non-positive values fall back
// to page 1 and 20 items, and the size is capped at MaxPageSize. Pages past
// maxPage are clamped to it and come back empty.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > maxPage {
		page = maxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Feed returns the user's own activity.
func (s *Service) Feed(ctx context.Context, user primitive.ObjectID, page, size int) (FeedPage, error) {
	page, size = NormalizePage(page, size)
	repo := s.store.Activities()
	items, err := repo.ListByUser(ctx, user, storage.Page{Skip: (page - 1) * size, Limit: size})
	if err != nil {
		return FeedPage{}, fmt.Errorf("list activity: %w", err)
	}
	total, err := repo.CountByUser(ctx, user)
	if err != nil {
		return FeedPage{}, fmt.Errorf("count activity: %w", err)
	}
	return newFeedPage(items, page, size, total), nil
}

// ProjectFeed returns every member's activity on a project the user can
// access.
func (s *Service) ProjectFeed(ctx context.Context, user, projectID primitive.ObjectID, page, size int) (FeedPage, error) {
	if _, err := s.projectFor(ctx, user, projectID, CanAccessProject, msgProjectNotFound); err != nil {
		return FeedPage{}, err
	}
	page, size = NormalizePage(page, size)
	repo := s.store.Activities()
	items, err := repo.ListByProject(ctx, projectID, storage.Page{Skip: (page - 1) * size, Limit: size})
	if err != nil {
		return FeedPage{}, fmt.Errorf("list project activity: %w", err)
	}
	total, err := repo.CountByProject(ctx, projectID)
	if err != nil {
		return FeedPage{}, fmt.Errorf("count project activity: %w", err)
	}
	return newFeedPage(items, page, size, total), nil
}

func newFeedPage(items []models.Activity, page, size, total int) FeedPage {
	if items == nil {
		items = []models.Activity{}
	}
	return FeedPage{
		Activities: items,
		Pagination: Pagination{
			CurrentPage: page,
			Limit:       size,
			TotalItems:  total,
			TotalPages:  (total + size - 1) / size,
		},
	}
}
