package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict marks a manifest compare-and-swap that lost to another writer.
	ErrConflict = errors.New("manifest conflict")
	// ErrInvalidPrompt marks a point prompt that falls outside the tile bounds.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrEngineUnavailable marks a segmentation backend failure; retryable.
	ErrEngineUnavailable = errors.New("segmentation engine unavailable")
	// ErrDegenerateMask marks an extraction over a mask with no foreground pixels.
	ErrDegenerateMask = errors.New("degenerate mask")
	// ErrPersistence marks an output sink failure that must block the commit.
	ErrPersistence = errors.New("persistence failure")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether an error belongs to the taxonomy the controller
// handles by returning the session to a non-terminal state. Anything else is
// an invariant violation and ends the session.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidPrompt),
		errors.Is(err, ErrEngineUnavailable),
		errors.Is(err, ErrDegenerateMask),
		errors.Is(err, ErrPersistence),
		errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
