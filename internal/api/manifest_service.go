package api

import (
	"context"
	"fmt"

	"thawmark/internal/manifest"
	"thawmark/internal/services"
)

// ManifestService exposes manifest coordination operations to transport
// layers. It owns the translation between wire requests and store calls so the
// HTTP server stays a thin shell.
type ManifestService struct {
	store *manifest.Store
}

// NewManifestService wraps a store.
func NewManifestService(store *manifest.Store) *ManifestService {
	return &ManifestService{store: store}
}

// Claim assigns the next eligible UID to the labeler. Returns nil when the
// queue is drained.
func (s *ManifestService) Claim(ctx context.Context, req ClaimRequest) (*EntryView, error) {
	entry, err := s.store.Claim(ctx, req.Labeler)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	view := FromEntry(entry)
	return &view, nil
}

// Release returns a claim to the pool. Idempotent.
func (s *ManifestService) Release(ctx context.Context, req ReleaseRequest) error {
	if req.UID == "" || req.Labeler == "" {
		return services.Wrap(services.ErrValidation, "api", "release", "uid and labeler required", nil)
	}
	return s.store.Release(ctx, req.UID, req.Labeler)
}

// Commit finalizes a claimed entry with a terminal status. The request must
// carry the version and labeler from the original claim so the store can
// detect mid-session reclaims.
func (s *ManifestService) Commit(ctx context.Context, req CommitRequest) error {
	if req.UID == "" || req.Labeler == "" {
		return services.Wrap(services.ErrValidation, "api", "commit", "uid and labeler required", nil)
	}
	status, ok := manifest.ParseStatus(req.Status)
	if !ok {
		return services.Wrap(services.ErrValidation, "api", "commit",
			fmt.Sprintf("unknown status %q", req.Status), nil)
	}
	entry := &manifest.Entry{
		UID:      req.UID,
		Assignee: req.Labeler,
		Version:  req.Version,
	}
	return s.store.Commit(ctx, entry, status, req.OutputFile)
}

// Snapshot returns the full manifest ordered by UID.
func (s *ManifestService) Snapshot(ctx context.Context) (SnapshotResponse, error) {
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return SnapshotResponse{}, err
	}
	resp := SnapshotResponse{Entries: make([]EntryView, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, FromEntry(entry))
	}
	return resp, nil
}

// Stats returns per-status counts.
func (s *ManifestService) Stats(ctx context.Context) (StatsResponse, error) {
	health, err := s.store.Health(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	return FromHealth(health), nil
}
