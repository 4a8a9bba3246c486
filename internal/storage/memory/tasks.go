package memory

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

type tasks struct{ s *Store }

func (r tasks) Create(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	r.s.tasks[t.ID] = &entry[models.Task]{seq: r.s.next(), doc: cloneTask(*t)}
	return nil
}

func (r tasks) Get(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	t := cloneTask(e.doc)
	return &t, nil
}

func (r tasks) ListByProject(_ context.Context, project primitive.ObjectID) ([]models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := r.inProject(project)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.doc.Order != b.doc.Order {
			return a.doc.Order < b.doc.Order
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.After(b.doc.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]models.Task, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneTask(e.doc))
	}
	return out, nil
}

func (r tasks) Update(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.tasks[t.ID]
	if !ok {
		return storage.ErrNotFound
	}
	order := e.doc.Order
	e.doc = cloneTask(*t)
	e.doc.Order = order
	return nil
}

func (r tasks) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (r tasks) DeleteByProject(_ context.Context, project primitive.ObjectID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, e := range r.s.tasks {
		if e.doc.Project == project {
			delete(r.s.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r tasks) Count(_ context.Context, project primitive.ObjectID) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total, completed := 0, 0
	for _, e := range r.inProject(project) {
		total++
		if e.doc.Completed {
			completed++
		}
	}
	return total, completed, nil
}

func (r tasks) CountByStatus(_ context.Context, project primitive.ObjectID) (map[models.TaskStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[models.TaskStatus]int)
	for _, e := range r.inProject(project) {
		counts[e.doc.Status]++
	}
	return counts, nil
}

func (r tasks) MaxOrder(_ context.Context, project primitive.ObjectID) (int, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	maxOrder, found := 0, false
	for _, e := range r.inProject(project) {
		if !found || e.doc.Order > maxOrder {
			maxOrder, found = e.doc.Order, true
		}
	}
	return maxOrder, found, nil
}

func (r tasks) SetOrder(_ context.Context, project, id primitive.ObjectID, order int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.tasks[id]
	if !ok || e.doc.Project != project {
		return false, nil
	}
	e.doc.Order = order
	return true, nil
}

// inProject must be called with the lock held.
func (r tasks) inProject(project primitive.ObjectID) []*entry[models.Task] {
	var out []*entry[models.Task]
	for _, e := range r.s.tasks {
		if e.doc.Project == project {
			out = append(out, e)
		}
	}
	return out
}

func cloneTask(t models.Task) models.Task {
	if t.Tags != nil {
		tags := make([]string, len(t.Tags))
		copy(tags, t.Tags)
		t.Tags = tags
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}

type activities struct{ s *Store }

func (r activities) Append(_ context.Context, a *models.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Metadata == nil {
		a.Metadata = map[string]string{}
	}
	r.s.activities = append(r.s.activities, &entry[models.Activity]{seq: r.s.next(), doc: cloneActivity(*a)})
	return nil
}

func (r activities) ListByUser(_ context.Context, user primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(func(a *models.Activity) bool { return a.User == user }, page), nil
}

func (r activities) CountByUser(_ context.Context, user primitive.ObjectID) (int, error) {
	return len(r.list(func(a *models.Activity) bool { return a.User == user }, storage.Page{})), nil
}

func (r activities) ListByProject(_ context.Context, project primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(func(a *models.Activity) bool { return a.ProjectID == project }, page), nil
}

func (r activities) CountByProject(_ context.Context, project primitive.ObjectID) (int, error) {
	return len(r.list(func(a *models.Activity) bool { return a.ProjectID == project }, storage.Page{})), nil
}

// list returns matching entries newest first; a zero Limit means no limit.
func (r activities) list(match func(*models.Activity) bool, page storage.Page) []models.Activity {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []*entry[models.Activity]
	for _, e := range r.s.activities {
		if match(&e.doc) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.After(b.doc.CreatedAt)
		}
		return a.seq > b.seq
	})
	if page.Skip < 0 || page.Skip >= len(matched) {
		return []models.Activity{}
	}
	matched = matched[page.Skip:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	out := make([]models.Activity, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneActivity(e.doc))
	}
	return out
}

func cloneActivity(a models.Activity) models.Activity {
	if a.TaskID != nil {
		id := *a.TaskID
		a.TaskID = &id
	}
	if a.Metadata != nil {
		meta := make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
		a.Metadata = meta
	}
	return a
}
