package api

import (
	"time"

	"thawmark/internal/manifest"
)

// EntryView is the wire representation of one manifest entry.
type EntryView struct {
	UID         string     `json:"uid"`
	Status      string     `json:"status"`
	Assignee    string     `json:"assignee,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	OutputFile  string     `json:"output_file,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Version     int64      `json:"version"`
}

// ClaimRequest asks for the next eligible UID.
type ClaimRequest struct {
	Labeler string `json:"labeler"`
}

// ReleaseRequest returns a held claim to the pool.
type ReleaseRequest struct {
	UID     string `json:"uid"`
	Labeler string `json:"labeler"`
}

// CommitRequest finalizes a claimed entry. Version and assignee must match the
// entry returned by the claim; a mismatch means the claim was reclaimed.
type CommitRequest struct {
	UID        string `json:"uid"`
	Labeler    string `json:"labeler"`
	Version    int64  `json:"version"`
	Status     string `json:"status"`
	OutputFile string `json:"output_file,omitempty"`
}

// SnapshotResponse lists every manifest entry ordered by UID.
type SnapshotResponse struct {
	Entries []EntryView `json:"entries"`
}

// StatsResponse reports per-status entry counts.
type StatsResponse struct {
	Total      int `json:"total"`
	Unassigned int `json:"unassigned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
}

// FromEntry converts a store entry to its wire form.
func FromEntry(entry *manifest.Entry) EntryView {
	return EntryView{
		UID:         entry.UID,
		Status:      string(entry.Status),
		Assignee:    entry.Assignee,
		ClaimedAt:   entry.ClaimedAt,
		CompletedAt: entry.CompletedAt,
		OutputFile:  entry.OutputFile,
		Notes:       entry.Notes,
		Version:     entry.Version,
	}
}

// FromHealth converts the store health summary to its wire form.
func FromHealth(health manifest.HealthSummary) StatsResponse {
	return StatsResponse{
		Total:      health.Total,
		Unassigned: health.Unassigned,
		InProgress: health.InProgress,
		Completed:  health.Completed,
		Skipped:    health.Skipped,
	}
}
