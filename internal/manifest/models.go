package manifest

import (
	"strings"
	"time"
)

// Status represents the labeling lifecycle of a manifest entry.
type Status string

const (
	StatusUnassigned Status = "unassigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

var allStatuses = []Status{
	StatusUnassigned,
	StatusInProgress,
	StatusCompleted,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Entry is one UID's coordination record. Version increments on every write;
// claim and commit only succeed when the stored version matches the one the
// caller read, which is what keeps concurrent labelers from stepping on each
// other without any cross-session locking.
type Entry struct {
	UID         string
	Status      Status
	Assignee    string
	ClaimedAt   *time.Time
	CompletedAt *time.Time
	OutputFile  string
	Notes       string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HealthSummary describes aggregated manifest counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Unassigned int
	InProgress int
	Completed  int
	Skipped    int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can never be claimed again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// StaleSince reports whether an in-progress claim is older than the cutoff and
// therefore eligible for reclaiming by another labeler.
func (e *Entry) StaleSince(cutoff time.Time) bool {
	if e == nil || e.Status != StatusInProgress || e.ClaimedAt == nil {
		return false
	}
	return e.ClaimedAt.Before(cutoff)
}
