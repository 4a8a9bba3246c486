// Package memory is an in-process storage adapter. It backs the test suites
// and the `--store memory` demo mode; data is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// Store keeps every collection in maps guarded by one lock.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	users      map[primitive.ObjectID]*entry[models.User]
	projects   map[primitive.ObjectID]*entry[models.Project]
	tasks      map[primitive.ObjectID]*entry[models.Task]
	activities []*entry[models.Activity]
}

// entry remembers insertion order so ties on timestamps sort the way a
// document store returning natural order would.
type entry[T any] struct {
	seq int64
	doc T
}

var _ storage.Store = (*Store)(nil)

// Open returns an empty store.
func Open() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*entry[models.User]),
		projects: make(map[primitive.ObjectID]*entry[models.Project]),
		tasks:    make(map[primitive.ObjectID]*entry[models.Task]),
	}
}

// Close is a no-op; it exists to satisfy storage.Store.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Users() storage.UserRepository         { return users{s} }
func (s *Store) Projects() storage.ProjectRepository   { return projects{s} }
func (s *Store) Tasks() storage.TaskRepository         { return tasks{s} }
func (s *Store) Activities() storage.ActivityRepository { return activities{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = models.NormalizeEmail(u.Email)
	for _, e := range r.s.users {
		if e.doc.Email == u.Email {
			return fmt.Errorf("insert user: email %q already registered", u.Email)
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.s.users[u.ID] = &entry[models.User]{seq: r.s.next(), doc: *u}
	return nil
}

func (r users) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := e.doc
	return &u, nil
}

func (r users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = models.NormalizeEmail(email)
	for _, e := range r.s.users {
		if e.doc.Email == email {
			u := e.doc
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

type projects struct{ s *Store }

func (r projects) Create(_ context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.s.projects[p.ID] = &entry[models.Project]{seq: r.s.next(), doc: cloneProject(*p)}
	return nil
}

func (r projects) Get(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.projects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p := cloneProject(e.doc)
	return &p, nil
}

func (r projects) ListForUser(_ context.Context, user primitive.ObjectID) ([]models.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []*entry[models.Project]
	for _, e := range r.s.projects {
		if _, member := e.doc.Collaborator(user); e.doc.Owner == user || member {
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
	out := make([]models.Project, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneProject(e.doc))
	}
	return out, nil
}

func (r projects) ListIDs(_ context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]primitive.ObjectID, 0, len(r.s.projects))
	for id := range r.s.projects {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r projects) Update(_ context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.projects[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	doc := cloneProject(*p)
	doc.TasksCount = e.doc.TasksCount
	doc.CompletedTasksCount = e.doc.CompletedTasksCount
	e.doc = doc
	return nil
}

func (r projects) SetCounts(_ context.Context, id primitive.ObjectID, total, completed int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.projects[id]
	if !ok {
		return storage.ErrNotFound
	}
	e.doc.TasksCount = total
	e.doc.CompletedTasksCount = completed
	return nil
}

func (r projects) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.projects, id)
	return nil
}

func cloneProject(p models.Project) models.Project {
	if p.Collaborators != nil {
		collaborators := make([]models.Collaborator, len(p.Collaborators))
		copy(collaborators, p.Collaborators)
		p.Collaborators = collaborators
	}
	if p.DueDate != nil {
		d := *p.DueDate
		p.DueDate = &d
	}
	return p
}
