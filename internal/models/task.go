package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a single card inside a project.
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Project     primitive.ObjectID `json:"project" bson:"project"`
	AssignedTo  primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	CreatedBy   primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	Status      TaskStatus         `json:"status" bson:"status"`
	Priority    Priority           `json:"priority" bson:"priority"`
	DueDate     *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Tags        []string           `json:"tags" bson:"tags"`
	Completed   bool               `json:"completed" bson:"completed"`
	CompletedAt *time.Time         `json:"completedAt" bson:"completedAt"`
	Order       int                `json:"order" bson:"order"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SetStatus moves the task to status and keeps the completion fields in
// step with it. Re-applying the current status changes nothing, so
// completedAt keeps its original stamp.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == t.Status {
		return
	}
	t.Status = status
	if status == StatusCompleted {
		t.Completed = true
		stamp := now
		t.CompletedAt = &stamp
		return
	}
	t.Completed = false
	t.CompletedAt = nil
}

// Toggle flips between completed and todo, skipping in_progress.
func (t *Task) Toggle(now time.Time) {
	if t.Completed {
		t.SetStatus(StatusTodo, now)
		return
	}
	t.SetStatus(StatusCompleted, now)
}

// Validate checks the user-editable fields of a task.
func (t *Task) Validate() error {
	switch {
	case t.Title == "":
		return NewValidationError("Task title is required")
	case utf8.RuneCountInString(t.Title) > MaxTaskTitle:
		return NewValidationError("Task title cannot exceed 200 characters")
	case utf8.RuneCountInString(t.Description) > MaxTaskDescription:
		return NewValidationError("Description cannot exceed 1000 characters")
	case t.Project.IsZero():
		return NewValidationError("Task project is required")
	}
	if !t.Status.Valid() {
		return NewValidationError("`" + string(t.Status) + "` is not a valid task status")
	}
	if !t.Priority.Valid() {
		return NewValidationError("`" + string(t.Priority) + "` is not a valid priority")
	}
	return nil
}

// NormalizeTags trims every tag, drops blanks and duplicates, and keeps the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
