package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"thawmark/internal/extract"
	"thawmark/internal/history"
	"thawmark/internal/manifest"
	"thawmark/internal/prompt"
	"thawmark/internal/raster"
	"thawmark/internal/services"
	"thawmark/internal/session"
	"thawmark/internal/sink"
	"thawmark/internal/testsupport"
)

type fakeTiles struct {
	width, height int
	err           error
}

func (f *fakeTiles) FetchTile(ctx context.Context, uid string) (*raster.Tile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &raster.Tile{
		UID:       uid,
		Ref:       uid,
		Width:     f.width,
		Height:    f.height,
		Transform: raster.Identity(),
	}, nil
}

// fakeEngine paints a 2x2 block of foreground at each positive prompt and
// clears the pixel under each negative prompt, so prompt edits visibly change
// the mask.
type fakeEngine struct {
	err      error
	onInfer  func()
	inferred int
}

func (f *fakeEngine) Infer(ctx context.Context, tile *raster.Tile, points []prompt.Point) (*raster.Mask, error) {
	f.inferred++
	if f.onInfer != nil {
		f.onInfer()
	}
	if f.err != nil {
		return nil, f.err
	}
	mask := raster.NewMask(tile.Width, tile.Height)
	for _, p := range points {
		x, y := int(p.X), int(p.Y)
		if p.Label == prompt.Positive {
			mask.Set(x, y, true)
			mask.Set(x+1, y, true)
			mask.Set(x, y+1, true)
			mask.Set(x+1, y+1, true)
		} else {
			mask.Set(x, y, false)
		}
	}
	return mask, nil
}

type failingSink struct{ calls int }

func (f *failingSink) Persist(ctx context.Context, polygons []orb.Polygon, meta sink.Metadata) (string, error) {
	f.calls++
	return "", services.Wrap(services.ErrPersistence, "sink", "persist", "disk full", nil)
}

type fakeHistory struct {
	set *history.Set
	err error
}

func (f *fakeHistory) Load(uid string) (*history.Set, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

type fixture struct {
	store  *manifest.Store
	engine *fakeEngine
	tiles  *fakeTiles
	sink   sink.Sink
	outDir string
}

func newController(t *testing.T, fx *fixture, opts ...func(*session.Options)) *session.Controller {
	t.Helper()

	if fx.store == nil {
		cfg := testsupport.NewConfig(t)
		fx.store = testsupport.MustOpenStore(t, cfg)
		testsupport.SeedUIDs(t, fx.store, "RTS-0042")
	}
	if fx.engine == nil {
		fx.engine = &fakeEngine{}
	}
	if fx.tiles == nil {
		fx.tiles = &fakeTiles{width: 16, height: 16}
	}
	if fx.sink == nil {
		fx.outDir = t.TempDir()
		s, err := sink.NewGeoJSONSink(fx.outDir)
		if err != nil {
			t.Fatalf("NewGeoJSONSink: %v", err)
		}
		fx.sink = s
	}

	options := session.Options{
		Store:     fx.store,
		Engine:    fx.engine,
		Tiles:     fx.tiles,
		Extractor: &extract.Extractor{},
		Sink:      fx.sink,
		LabelerID: "test-labeler",
	}
	for _, opt := range opts {
		opt(&options)
	}
	controller, err := session.New(options)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return controller
}

func TestFullLabelingLifecycle(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	seed := &fakeHistory{set: &history.Set{
		UID:      "RTS-0042",
		Centroid: orb.Point{4, 4},
	}}
	controller := newController(t, fx, func(o *session.Options) { o.History = seed })

	entry, err := controller.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if entry.UID != "RTS-0042" || controller.State() != session.StateClaimed {
		t.Fatalf("entry %v state %v after claim", entry, controller.State())
	}

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if controller.State() != session.StatePrompting {
		t.Fatalf("state = %v after start, want prompting", controller.State())
	}

	x, y, ok := controller.SuggestedSeed()
	if !ok || x != 4 || y != 4 {
		t.Fatalf("suggested seed = (%v, %v, %v), want (4, 4, true)", x, y, ok)
	}

	if _, err := controller.AddPrompt(x, y, prompt.Positive); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}
	if err := controller.Infer(ctx); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if controller.State() != session.StateMaskReady {
		t.Fatalf("state = %v after inference, want mask_ready", controller.State())
	}

	// Refining the prompts invalidates the mask until inference runs again.
	if _, err := controller.AddPrompt(5, 5, prompt.Negative); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}
	if controller.State() != session.StatePrompting || controller.Mask() != nil {
		t.Fatalf("prompt edit must drop the live mask, state = %v", controller.State())
	}
	if err := controller.Infer(ctx); err != nil {
		t.Fatalf("second Infer failed: %v", err)
	}

	artifact, err := controller.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if artifact != "RTS-0042.geojson" {
		t.Fatalf("artifact = %q", artifact)
	}
	if controller.State() != session.StateCommitted {
		t.Fatalf("state = %v after accept, want committed", controller.State())
	}
	if _, err := os.Stat(filepath.Join(fx.outDir, artifact)); err != nil {
		t.Fatalf("artifact file missing: %v", err)
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != manifest.StatusCompleted || stored.OutputFile != artifact {
		t.Fatalf("stored entry = %+v, want completed with artifact", stored)
	}

	// Queue is drained; the controller goes back to waiting.
	next, err := controller.Next(ctx)
	if err != nil {
		t.Fatalf("Next after commit failed: %v", err)
	}
	if next != nil || controller.State() != session.StateIdle {
		t.Fatalf("expected drained queue, got %v in state %v", next, controller.State())
	}
}

func TestInferDiscardsStaleResult(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := controller.AddPrompt(2, 2, prompt.Positive); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}

	// The prompt sequence changes while inference is in flight; the result
	// that comes back was computed for the old sequence.
	fx.engine.onInfer = func() {
		fx.engine.onInfer = nil
		if _, err := controller.Prompts().Add(8, 8, prompt.Positive); err != nil {
			t.Errorf("mutating prompts mid-flight: %v", err)
		}
	}

	if err := controller.Infer(ctx); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if controller.State() != session.StatePrompting || controller.Mask() != nil {
		t.Fatalf("stale result must be discarded, state = %v mask = %v",
			controller.State(), controller.Mask())
	}
}

func TestEngineFailureReturnsToPrompting(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{engine: &fakeEngine{
		err: services.Wrap(services.ErrEngineUnavailable, "segment", "infer", "backend down", nil),
	}}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := controller.AddPrompt(2, 2, prompt.Positive); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}

	err := controller.Infer(ctx)
	if !errors.Is(err, services.ErrEngineUnavailable) {
		t.Fatalf("expected engine-unavailable error, got %v", err)
	}
	if controller.State() != session.StatePrompting {
		t.Fatalf("state = %v, want prompting", controller.State())
	}
}

func TestInvalidPromptLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	controller := newController(t, &fixture{})

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err := controller.AddPrompt(-1, 5, prompt.Positive)
	if !errors.Is(err, services.ErrInvalidPrompt) {
		t.Fatalf("expected invalid-prompt error, got %v", err)
	}
	if controller.State() != session.StatePrompting || controller.Prompts().Len() != 0 {
		t.Fatal("rejected prompt must not change session state")
	}
}

func TestInferRequiresAtLeastOnePrompt(t *testing.T) {
	ctx := context.Background()
	controller := newController(t, &fixture{})

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := controller.Infer(ctx); !errors.Is(err, services.ErrInvalidPrompt) {
		t.Fatalf("expected invalid-prompt error, got %v", err)
	}
}

func TestAcceptPersistenceFailureKeepsClaim(t *testing.T) {
	ctx := context.Background()
	failing := &failingSink{}
	fx := &fixture{sink: failing}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := controller.AddPrompt(2, 2, prompt.Positive); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}
	if err := controller.Infer(ctx); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	_, err := controller.Accept(ctx)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if controller.State() != session.StateMaskReady {
		t.Fatalf("state = %v, want mask_ready so accept can be retried", controller.State())
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != manifest.StatusInProgress {
		t.Fatalf("status = %v, manifest must stay in progress on persistence failure", stored.Status)
	}
	if failing.calls != 1 {
		t.Fatalf("sink calls = %d", failing.calls)
	}
}

func TestAcceptCommitConflictReleasesSession(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := controller.AddPrompt(2, 2, prompt.Positive); err != nil {
		t.Fatalf("AddPrompt failed: %v", err)
	}
	if err := controller.Infer(ctx); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	// The claim is lost to another labeler while this session is open.
	if err := fx.store.Release(ctx, "RTS-0042", "test-labeler"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	testsupport.MustClaim(t, fx.store, "rival-labeler")

	_, err := controller.Accept(ctx)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if controller.State() != session.StateReleased {
		t.Fatalf("state = %v, want released", controller.State())
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Assignee != "rival-labeler" || stored.Status != manifest.StatusInProgress {
		t.Fatalf("rival claim must be untouched, got %+v", stored)
	}
}

func TestSkipCommitsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Skip(ctx); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if controller.State() != session.StateCommitted {
		t.Fatalf("state = %v, want committed", controller.State())
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != manifest.StatusSkipped {
		t.Fatalf("status = %v, want skipped", stored.Status)
	}
}

func TestAbandonReturnsClaimToPool(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := controller.Abandon(ctx); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if controller.State() != session.StateReleased {
		t.Fatalf("state = %v, want released", controller.State())
	}

	entry := testsupport.MustClaim(t, fx.store, "other-labeler")
	if entry.UID != "RTS-0042" {
		t.Fatalf("claimed %q, want the abandoned UID", entry.UID)
	}
}

func TestDetachKeepsClaimHeld(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := controller.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if controller.State() != session.StateIdle {
		t.Fatalf("state = %v, want idle", controller.State())
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != manifest.StatusInProgress || stored.Assignee != "test-labeler" {
		t.Fatalf("detached claim must stay held, got %+v", stored)
	}

	// The held claim is invisible to the next claim attempt.
	next, err := controller.Next(ctx)
	if err != nil {
		t.Fatalf("Next after detach failed: %v", err)
	}
	if next != nil {
		t.Fatalf("Next returned %v, detached entry must not be re-claimed", next)
	}
}

func TestStartTileFailureReleasesClaim(t *testing.T) {
	ctx := context.Background()
	fx := &fixture{tiles: &fakeTiles{
		err: services.Wrap(services.ErrNotFound, "tiles", "fetch", "no raster", nil),
	}}
	controller := newController(t, fx)

	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := controller.Start(ctx); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected tile error, got %v", err)
	}
	if controller.State() != session.StateReleased {
		t.Fatalf("state = %v, want released", controller.State())
	}

	stored, err := fx.store.Get(ctx, "RTS-0042")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != manifest.StatusUnassigned {
		t.Fatalf("status = %v, want unassigned after failed start", stored.Status)
	}
}

func TestEventsRejectedOutsideTheirStates(t *testing.T) {
	ctx := context.Background()
	controller := newController(t, &fixture{})

	if err := controller.Start(ctx); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Start from idle must fail, got %v", err)
	}
	if _, err := controller.Accept(ctx); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Accept from idle must fail, got %v", err)
	}
	if _, err := controller.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := controller.Next(ctx); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Next from claimed must fail, got %v", err)
	}
}
