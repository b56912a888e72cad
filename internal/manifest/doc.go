// Package manifest persists the per-UID labeling status records that
// coordinate multiple labelers, backed by SQLite.
//
// The Store is the single source of truth for claim semantics: every write
// bumps the entry version, and claim/commit only apply when the stored version
// matches the version the caller read. That compare-and-swap check is the only
// cross-session synchronization in the system; there are no shared locks.
// Stale in-progress claims (no commit before the configured timeout) become
// eligible for reclaiming, which covers labeler disconnects and crashes.
//
// Treat this package as authoritative for status semantics; schema changes
// bump the version in schema.go and require a reseed.
package manifest
