package tracker

import (
	"errors"

	"taskoverflow/internal/models"
)

// Outcome kinds. Handlers map them with errors.Is.
var (
	// ErrNotFound covers both absent entities and failed project-level
	// checks, so callers cannot probe for existence.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a task exists but the caller may not
	// touch it.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a missing or malformed input field.
type ValidationError = models.ValidationError

// Messages shown to API clients.
const (
	msgProjectNotFound      = "Project not found"
	msgProjectNoAccess      = "Project not found or you do not have access"
	msgProjectNoPermission  = "Project not found or you do not have permission"
	msgProjectNoUpdate      = "Project not found or you do not have permission to update"
	msgProjectNoDelete      = "Project not found or you do not have permission to delete"
	msgUserNotFound         = "User not found with this email"
	msgTaskNotFound         = "Task not found"
	msgTaskNoAccess         = "You do not have access to this task"
	msgTaskRequired         = "Task title and project ID are required"
	msgReorderRequired      = "Task IDs array and project ID are required"
	msgAlreadyCollaborator  = "User is already a collaborator"
	msgOwnerAsCollaborator  = "Project owner cannot be added as a collaborator"
	msgCollaboratorRequired = "User email is required"
)

type outcomeError struct {
	msg  string
	kind error
}

func (e *outcomeError) Error() string { return e.msg }
func (e *outcomeError) Unwrap() error { return e.kind }

func notFound(msg string) error  { return &outcomeError{msg: msg, kind: ErrNotFound} }
func forbidden(msg string) error { return &outcomeError{msg: msg, kind: ErrForbidden} }
