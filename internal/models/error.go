package models

// ValidationError reports a missing or malformed field supplied by a caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError wraps msg in a ValidationError.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}
