package media

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaNotFound is returned when a media item cannot be found
	ErrMediaNotFound = errors.New("media not found")

	// ErrInvalidSeasonNumber is returned when a snapshot has a negative season number
	ErrInvalidSeasonNumber = errors.New("invalid season number")

	// ErrDuplicateSeason is returned when a snapshot lists a season number twice
	ErrDuplicateSeason = errors.New("duplicate season number")

	// ErrMediaTypeChanged is returned when an update changes movie <-> series
	ErrMediaTypeChanged = errors.New("media type cannot change")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
