// Package models holds the documents persisted by the task tracker.
package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field limits shared by validation and the storage schemas.
const (
	MaxProjectTitle       = 100
	MaxProjectDescription = 500
	MaxTaskTitle          = 200
	MaxTaskDescription    = 1000
)

// DefaultColor is applied to projects created without a color.
const DefaultColor = "bg-blue-100"

// ValidColors enumerates the palette tokens understood by the frontend.
var ValidColors = map[string]struct{}{
	"bg-green-100":  {},
	"bg-yellow-100": {},
	"bg-red-100":    {},
	"bg-blue-100":   {},
	"bg-purple-100": {},
	"bg-pink-100":   {},
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Role is the permission level a collaborator was granted.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known collaborator role.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// User is the identity referenced by projects, tasks and activities.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Collaborator grants a user access to a project someone else owns.
type Collaborator struct {
	User primitive.ObjectID `json:"user" bson:"user"`
	Role Role               `json:"role" bson:"role"`
}

// Project groups ordered tasks and carries their denormalized counters.
type Project struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title               string             `json:"title" bson:"title"`
	Description         string             `json:"description" bson:"description"`
	Color               string             `json:"color" bson:"color"`
	Owner               primitive.ObjectID `json:"owner" bson:"owner"`
	Collaborators       []Collaborator     `json:"collaborators" bson:"collaborators"`
	Status              ProjectStatus      `json:"status" bson:"status"`
	Priority            Priority           `json:"priority" bson:"priority"`
	DueDate             *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	TasksCount          int                `json:"tasksCount" bson:"tasksCount"`
	CompletedTasksCount int                `json:"completedTasksCount" bson:"completedTasksCount"`
	CreatedAt           time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Progress returns the completed percentage rounded to the nearest integer.
func (p Project) Progress() int {
	return Progress(p.TasksCount, p.CompletedTasksCount)
}

// Progress computes round(completed/total*100), or 0 for an empty project.
func Progress(total, completed int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Collaborator returns the membership entry for user, if any.
func (p Project) Collaborator(user primitive.ObjectID) (Collaborator, bool) {
	for _, c := range p.Collaborators {
		if c.User == user {
			return c, true
		}
	}
	return Collaborator{}, false
}

// MarshalJSON adds the computed progress to the stored fields.
func (p Project) MarshalJSON() ([]byte, error) {
	type stored Project
	return json.Marshal(struct {
		stored
		Progress int `json:"progress"`
	}{stored(p), p.Progress()})
}

// Validate checks the user-editable fields of a project.
func (p *Project) Validate() error {
	switch {
	case p.Title == "":
		return NewValidationError("Project title is required")
	case utf8.RuneCountInString(p.Title) > MaxProjectTitle:
		return NewValidationError("Project title cannot exceed 100 characters")
	case utf8.RuneCountInString(p.Description) > MaxProjectDescription:
		return NewValidationError("Description cannot exceed 500 characters")
	}
	if _, ok := ValidColors[p.Color]; !ok {
		return NewValidationError("`" + p.Color + "` is not a valid color")
	}
	if !p.Status.Valid() {
		return NewValidationError("`" + string(p.Status) + "` is not a valid project status")
	}
	if !p.Priority.Valid() {
		return NewValidationError("`" + string(p.Priority) + "` is not a valid priority")
	}
	seen := make(map[primitive.ObjectID]struct{}, len(p.Collaborators))
	for _, c := range p.Collaborators {
		if !c.Role.Valid() {
			return NewValidationError("`" + string(c.Role) + "` is not a valid role")
		}
		if _, dup := seen[c.User]; dup {
			return NewValidationError("User is already a collaborator")
		}
		seen[c.User] = struct{}{}
	}
	return nil
}
