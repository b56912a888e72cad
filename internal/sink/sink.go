package sink

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Metadata travels with a finalized label into the output artifact.
type Metadata struct {
	UID         string
	Labeler     string
	ClaimedAt   time.Time
	CompletedAt time.Time
	PromptCount int
}

// Sink persists a finalized label and returns the artifact name recorded in
// the manifest. Persist must be atomic: a failure leaves no partial artifact
// behind, so the entry can stay claimed and be retried.
type Sink interface {
	Persist(ctx context.Context, polygons []orb.Polygon, meta Metadata) (string, error)
}
