// Package storagetest is a conformance suite every storage.Store adapter
// must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// Opener returns an empty store. The suite closes it after any cleanups the
// opener registered have run.
type Opener func(t *testing.T) storage.Store

// base is millisecond aligned so stores with coarser clocks round-trip it.
var base = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

// Run exercises every repository of the store returned by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"Users", testUsers},
		{"ProjectRoundTrip", testProjectRoundTrip},
		{"ProjectListForUser", testProjectListForUser},
		{"ProjectUpdateKeepsCounts", testProjectUpdateKeepsCounts},
		{"ProjectDelete", testProjectDelete},
		{"TaskRoundTrip", testTaskRoundTrip},
		{"TaskListOrder", testTaskListOrder},
		{"TaskCounts", testTaskCounts},
		{"TaskMaxOrder", testTaskMaxOrder},
		{"TaskSetOrderScopedToProject", testTaskSetOrder},
		{"TaskUpdateKeepsOrder", testTaskUpdateKeepsOrder},
		{"TaskDeleteByProject", testTaskDeleteByProject},
		{"ActivityPaging", testActivityPaging},
		{"ActivityMetadata", testActivityMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s storage.Store
			t.Cleanup(func() {
				if s != nil {
					_ = s.Close(context.Background())
				}
			})
			s = open(t)
			tt.fn(t, s)
		})
	}
}

func newProject(owner primitive.ObjectID, title string, created time.Time) *models.Project {
	return &models.Project{
		Title:         title,
		Color:         models.DefaultColor,
		Owner:         owner,
		Collaborators: []models.Collaborator{},
		Status:        models.ProjectActive,
		Priority:      models.PriorityMedium,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func newTask(project, user primitive.ObjectID, title string, order int, created time.Time) *models.Task {
	return &models.Task{
		Title:      title,
		Project:    project,
		AssignedTo: user,
		CreatedBy:  user,
		Status:     models.StatusTodo,
		Priority:   models.PriorityMedium,
		Tags:       []string{},
		Order:      order,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := &models.User{Name: "Ada", Email: "  Ada@Example.COM ", CreatedAt: base}
	require.NoError(t, s.Users().Create(ctx, u))
	require.False(t, u.ID.IsZero())
	assert.Equal(t, "ada@example.com", u.Email)

	got, err := s.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.True(t, base.Equal(got.CreatedAt))

	byEmail, err := s.Users().FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = s.Users().Get(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testProjectRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, alice, bob := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	due := base.Add(72 * time.Hour)

	p := newProject(owner, "Launch", base)
	p.Description = "ship it"
	p.Color = "bg-pink-100"
	p.DueDate = &due
	p.Collaborators = []models.Collaborator{
		{User: bob, Role: models.RoleViewer},
		{User: alice, Role: models.RoleAdmin},
	}
	require.NoError(t, s.Projects().Create(ctx, p))
	require.False(t, p.ID.IsZero())

	got, err := s.Projects().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Title)
	assert.Equal(t, "ship it", got.Description)
	assert.Equal(t, "bg-pink-100", got.Color)
	assert.Equal(t, owner, got.Owner)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, p.Collaborators, got.Collaborators)
	assert.Equal(t, 0, got.TasksCount)

	_, err = s.Projects().Get(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	ids, err := s.Projects().ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p.ID}, ids)
}

func testProjectListForUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	me, other := primitive.NewObjectID(), primitive.NewObjectID()

	owned := newProject(me, "owned", base)
	shared := newProject(other, "shared", base.Add(time.Minute))
	shared.Collaborators = []models.Collaborator{{User: me, Role: models.RoleViewer}}
	foreign := newProject(other, "foreign", base.Add(2*time.Minute))
	for _, p := range []*models.Project{owned, shared, foreign} {
		require.NoError(t, s.Projects().Create(ctx, p))
	}

	list, err := s.Projects().ListForUser(ctx, me)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "shared", list[0].Title)
	assert.Equal(t, "owned", list[1].Title)

	none, err := s.Projects().ListForUser(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testProjectUpdateKeepsCounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newProject(primitive.NewObjectID(), "before", base)
	require.NoError(t, s.Projects().Create(ctx, p))
	require.NoError(t, s.Projects().SetCounts(ctx, p.ID, 5, 2))

	p.Title = "after"
	p.Status = models.ProjectArchived
	p.TasksCount = 99
	p.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.Projects().Update(ctx, p))

	got, err := s.Projects().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, models.ProjectArchived, got.Status)
	assert.Equal(t, 5, got.TasksCount)
	assert.Equal(t, 2, got.CompletedTasksCount)
	assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt))

	missing := newProject(primitive.NewObjectID(), "ghost", base)
	missing.ID = primitive.NewObjectID()
	assert.True(t, errors.Is(s.Projects().Update(ctx, missing), storage.ErrNotFound))
	assert.True(t, errors.Is(s.Projects().SetCounts(ctx, missing.ID, 1, 1), storage.ErrNotFound))
}

func testProjectDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newProject(primitive.NewObjectID(), "doomed", base)
	require.NoError(t, s.Projects().Create(ctx, p))

	require.NoError(t, s.Projects().Delete(ctx, p.ID))
	_, err := s.Projects().Get(ctx, p.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.True(t, errors.Is(s.Projects().Delete(ctx, p.ID), storage.ErrNotFound))
}

func testTaskRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, user := primitive.NewObjectID(), primitive.NewObjectID()

	task := newTask(project, user, "write docs", 3, base)
	task.Description = "all of them"
	task.Tags = []string{"docs", "v1"}
	require.NoError(t, s.Tasks().Create(ctx, task))

	got, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write docs", got.Title)
	assert.Equal(t, []string{"docs", "v1"}, got.Tags)
	assert.Equal(t, 3, got.Order)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)

	got.SetStatus(models.StatusCompleted, base.Add(time.Hour))
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.Tasks().Update(ctx, got))

	again, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, again.Completed)
	assert.Equal(t, models.StatusCompleted, again.Status)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, base.Add(time.Hour).Equal(*again.CompletedAt))

	require.NoError(t, s.Tasks().Delete(ctx, task.ID))
	_, err = s.Tasks().Get(ctx, task.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.True(t, errors.Is(s.Tasks().Delete(ctx, task.ID), storage.ErrNotFound))
}

func testTaskListOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, user := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "b-old", 1, base)))
	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "b-new", 1, base.Add(time.Minute))))
	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "a", 0, base)))
	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "c", 2, base)))
	require.NoError(t, s.Tasks().Create(ctx, newTask(primitive.NewObjectID(), user, "elsewhere", 0, base)))

	list, err := s.Tasks().ListByProject(ctx, project)
	require.NoError(t, err)
	var titles []string
	for _, task := range list {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"a", "b-new", "b-old", "c"}, titles)
}

func testTaskCounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, user := primitive.NewObjectID(), primitive.NewObjectID()

	total, completed, err := s.Tasks().Count(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, completed)

	statuses := []models.TaskStatus{models.StatusTodo, models.StatusCompleted, models.StatusCompleted, models.StatusInProgress}
	for i, status := range statuses {
		task := newTask(project, user, "t", i, base)
		task.SetStatus(status, base)
		require.NoError(t, s.Tasks().Create(ctx, task))
	}

	total, completed, err = s.Tasks().Count(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, completed)

	byStatus, err := s.Tasks().CountByStatus(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, map[models.TaskStatus]int{
		models.StatusTodo:       1,
		models.StatusCompleted:  2,
		models.StatusInProgress: 1,
	}, byStatus)
}

func testTaskMaxOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, user := primitive.NewObjectID(), primitive.NewObjectID()

	_, ok, err := s.Tasks().MaxOrder(ctx, project)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "t0", 0, base)))
	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "t7", 7, base)))
	require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "t2", 2, base)))

	order, ok, err := s.Tasks().MaxOrder(ctx, project)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, order)
}

func testTaskSetOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, other, user := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	mine := newTask(project, user, "mine", 0, base)
	theirs := newTask(other, user, "theirs", 0, base)
	require.NoError(t, s.Tasks().Create(ctx, mine))
	require.NoError(t, s.Tasks().Create(ctx, theirs))

	ok, err := s.Tasks().SetOrder(ctx, project, mine.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Tasks().SetOrder(ctx, project, theirs.ID, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Tasks().Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Order)
	got, err = s.Tasks().Get(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order)
}

func testTaskDeleteByProject(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, other, user := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tasks().Create(ctx, newTask(project, user, "t", i, base)))
	}
	require.NoError(t, s.Tasks().Create(ctx, newTask(other, user, "keep", 0, base)))

	n, err := s.Tasks().DeleteByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	left, err := s.Tasks().ListByProject(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, left)
	kept, err := s.Tasks().ListByProject(ctx, other)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func testActivityPaging(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user, project := primitive.NewObjectID(), primitive.NewObjectID()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Activities().Append(ctx, &models.Activity{
			User:        user,
			ProjectID:   project,
			ProjectName: "P",
			Task:        string(rune('a' + i)),
			Type:        models.ActivityTaskCreated,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Activities().Append(ctx, &models.Activity{
		User:      primitive.NewObjectID(),
		ProjectID: project,
		Task:      "z",
		Type:      models.ActivityTaskDeleted,
		CreatedAt: base.Add(time.Hour),
	}))

	page, err := s.Activities().ListByUser(ctx, user, storage.Page{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Task)
	assert.Equal(t, "c", page[1].Task)

	all, err := s.Activities().ListByUser(ctx, user, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	beyond, err := s.Activities().ListByUser(ctx, user, storage.Page{Skip: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	n, err := s.Activities().CountByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	byProject, err := s.Activities().ListByProject(ctx, project, storage.Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "z", byProject[0].Task)

	n, err = s.Activities().CountByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func testActivityMetadata(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user, task := primitive.NewObjectID(), primitive.NewObjectID()

	withMeta := &models.Activity{
		User:      user,
		ProjectID: primitive.NewObjectID(),
		TaskID:    &task,
		Task:      "t",
		Type:      models.ActivityTaskCompleted,
		Metadata:  map[string]string{"from": "todo"},
		CreatedAt: base.Add(time.Minute),
	}
	bare := &models.Activity{
		User:      user,
		ProjectID: primitive.NewObjectID(),
		Task:      "p",
		Type:      models.ActivityProjectCreated,
		CreatedAt: base,
	}
	require.NoError(t, s.Activities().Append(ctx, withMeta))
	require.NoError(t, s.Activities().Append(ctx, bare))
	require.False(t, withMeta.ID.IsZero())

	list, err := s.Activities().ListByUser(ctx, user, storage.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, map[string]string{"from": "todo"}, list[0].Metadata)
	require.NotNil(t, list[0].TaskID)
	assert.Equal(t, task, *list[0].TaskID)
	assert.NotNil(t, list[1].Metadata)
	assert.Empty(t, list[1].Metadata)
	assert.Nil(t, list[1].TaskID)
}

func testTaskUpdateKeepsOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project, user := primitive.NewObjectID(), primitive.NewObjectID()

	task := newTask(project, user, "drag me", 0, base)
	due := base.Add(48 * time.Hour)
	task.DueDate = &due
	require.NoError(t, s.Tasks().Create(ctx, task))

	stale, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)

	ok, err := s.Tasks().SetOrder(ctx, project, task.ID, 5)
	require.NoError(t, err)
	require.True(t, ok)

	stale.Title = "renamed"
	stale.DueDate = nil
	stale.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, s.Tasks().Update(ctx, stale))

	got, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 5, got.Order)
	assert.Nil(t, got.DueDate)
}
