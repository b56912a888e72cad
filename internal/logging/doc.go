// Package logging builds slog loggers with the console and JSON output formats
// used across thawmark. The console handler writes compact single-line records
// with the component name folded into the message prefix; the JSON handler is
// intended for log aggregation. Standardized field keys keep uid/labeler/state
// attributes consistent between the CLI, the daemon, and the session controller.
package logging
