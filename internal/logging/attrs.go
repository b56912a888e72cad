package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUID is the standardized structured logging key for feature identifiers.
	FieldUID = "uid"
	// FieldLabeler is the standardized structured logging key for labeler identifiers.
	FieldLabeler = "labeler"
	// FieldState is the standardized structured logging key for session states.
	FieldState = "state"
)

// WithComponent returns a logger tagged with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
