package testsupport

import (
	"context"
	"testing"

	"thawmark/internal/config"
	"thawmark/internal/manifest"
)

// MustOpenStore opens a manifest.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(cfg)
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedUIDs registers the provided UIDs and fails the test on error.
func SeedUIDs(t testing.TB, store *manifest.Store, uids ...string) {
	t.Helper()

	if _, err := store.Seed(context.Background(), uids); err != nil {
		t.Fatalf("store.Seed: %v", err)
	}
}

// MustClaim claims one UID for the labeler and fails the test when no work is
// available.
func MustClaim(t testing.TB, store *manifest.Store, labelerID string) *manifest.Entry {
	t.Helper()

	entry, err := store.Claim(context.Background(), labelerID)
	if err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
	if entry == nil {
		t.Fatal("store.Claim returned no work")
	}
	return entry
}
