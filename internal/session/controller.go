package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"thawmark/internal/extract"
	"thawmark/internal/history"
	"thawmark/internal/logging"
	"thawmark/internal/manifest"
	"thawmark/internal/prompt"
	"thawmark/internal/raster"
	"thawmark/internal/segment"
	"thawmark/internal/services"
	"thawmark/internal/sink"
	"thawmark/internal/tiles"
)

// State tracks where the labeler is in the lifecycle of one claimed UID.
type State int

const (
	StateIdle State = iota
	StateClaimed
	StatePrompting
	StateMaskReady
	StateCommitted
	StateReleased
)

// String returns the display name of a state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaimed:
		return "claimed"
	case StatePrompting:
		return "prompting"
	case StateMaskReady:
		return "mask_ready"
	case StateCommitted:
		return "committed"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HistoryLoader looks up the prior digitizations of a feature.
type HistoryLoader interface {
	Load(uid string) (*history.Set, error)
}

// Options wires the collaborators a controller needs.
type Options struct {
	Store     *manifest.Store
	Engine    segment.Engine
	Tiles     tiles.Provider
	Extractor *extract.Extractor
	Sink      sink.Sink
	History   HistoryLoader // optional
	LabelerID string
	Logger    *slog.Logger
}

// Controller drives one labeler's session lifecycle: claim a UID, accumulate
// prompts, run inference, and finalize or walk away. It reconciles every
// downstream failure into a state the labeler can continue from. Not safe for
// concurrent use; each labeler owns one controller.
type Controller struct {
	store     *manifest.Store
	engine    segment.Engine
	tiles     tiles.Provider
	extractor *extract.Extractor
	sink      sink.Sink
	history   HistoryLoader
	labelerID string
	logger    *slog.Logger

	state   State
	entry   *manifest.Entry
	tile    *raster.Tile
	prompts *prompt.Session
	past    *history.Set

	mask           *raster.Mask
	maskGeneration uint64
}

// New validates the wiring and returns an idle controller.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Store == nil:
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "manifest store required", nil)
	case opts.Engine == nil:
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "segmentation engine required", nil)
	case opts.Tiles == nil:
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "tile provider required", nil)
	case opts.Extractor == nil:
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "polygon extractor required", nil)
	case opts.Sink == nil:
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "output sink required", nil)
	case opts.LabelerID == "":
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "labeler id required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:     opts.Store,
		engine:    opts.Engine,
		tiles:     opts.Tiles,
		extractor: opts.Extractor,
		sink:      opts.Sink,
		history:   opts.History,
		labelerID: opts.LabelerID,
		logger:    logging.WithComponent(logger, "session"),
		state:     StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Entry returns the claimed manifest entry, nil outside an active session.
func (c *Controller) Entry() *manifest.Entry { return c.entry }

// Tile returns the imagery tile for the active session.
func (c *Controller) Tile() *raster.Tile { return c.tile }

// Prompts returns the active prompt session, nil before Start.
func (c *Controller) Prompts() *prompt.Session { return c.prompts }

// History returns the prior digitizations loaded for the active UID.
func (c *Controller) History() *history.Set { return c.past }

// Mask returns the current accepted inference result, nil when none is live.
func (c *Controller) Mask() *raster.Mask { return c.mask }

// Next claims the next eligible UID. A nil entry with a nil error means the
// queue is drained; the controller stays idle.
func (c *Controller) Next(ctx context.Context) (*manifest.Entry, error) {
	if err := c.require("next", StateIdle, StateCommitted, StateReleased); err != nil {
		return nil, err
	}
	c.reset()

	entry, err := c.store.Claim(ctx, c.labelerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		c.logger.Info("no claimable entries remain", logging.FieldLabeler, c.labelerID)
		return nil, nil
	}

	c.entry = entry
	c.state = StateClaimed
	c.logger.Info("claimed entry",
		logging.FieldUID, entry.UID,
		logging.FieldLabeler, c.labelerID)
	return entry, nil
}

// Start opens the labeling session for the claimed UID: fetch its tile, load
// its historical footprints, and begin an empty prompt sequence. A tile
// failure releases the claim so another labeler can pick the UID up.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.require("start", StateClaimed); err != nil {
		return err
	}

	tile, err := c.tiles.FetchTile(ctx, c.entry.UID)
	if err != nil {
		releaseErr := c.store.Release(ctx, c.entry.UID, c.labelerID)
		if releaseErr != nil {
			c.logger.Error("release after tile failure",
				logging.FieldUID, c.entry.UID, "error", releaseErr)
		}
		c.state = StateReleased
		return err
	}

	if c.history != nil {
		past, err := c.history.Load(c.entry.UID)
		switch {
		case err == nil:
			c.past = past
		case errors.Is(err, services.ErrNotFound):
			// First-time digitization; nothing to overlay.
		default:
			return err
		}
	}

	c.tile = tile
	c.prompts = prompt.NewSession(tile)
	c.state = StatePrompting
	return nil
}

// SuggestedSeed maps the historical centroid into pixel space as the first
// positive prompt candidate. ok is false without history or when the centroid
// falls outside the tile.
func (c *Controller) SuggestedSeed() (x, y float64, ok bool) {
	if c.past == nil || c.tile == nil {
		return 0, 0, false
	}
	px, py := c.tile.Transform.ToPixel(c.past.Centroid[0], c.past.Centroid[1])
	if !c.tile.Contains(px, py) {
		return 0, 0, false
	}
	return px, py, true
}

// AddPrompt appends one click. An out-of-bounds prompt is rejected and the
// state is unchanged; a valid prompt invalidates any live mask.
func (c *Controller) AddPrompt(x, y float64, label prompt.Label) (prompt.Point, error) {
	if err := c.require("add_prompt", StatePrompting, StateMaskReady); err != nil {
		return prompt.Point{}, err
	}
	point, err := c.prompts.Add(x, y, label)
	if err != nil {
		return prompt.Point{}, err
	}
	c.invalidateMask()
	return point, nil
}

// Undo removes the most recent prompt and invalidates any live mask.
func (c *Controller) Undo() error {
	if err := c.require("undo", StatePrompting, StateMaskReady); err != nil {
		return err
	}
	c.prompts.UndoLast()
	c.invalidateMask()
	return nil
}

// Infer runs segmentation over the current prompt sequence. The result is
// applied only if no prompt mutation happened while the call was in flight;
// a stale result is discarded and the state stays Prompting. Engine failures
// surface after the adapter's retry budget and also leave the state Prompting.
func (c *Controller) Infer(ctx context.Context) error {
	if err := c.require("infer", StatePrompting, StateMaskReady); err != nil {
		return err
	}
	if c.prompts.Len() == 0 {
		return services.Wrap(services.ErrInvalidPrompt, "session", "infer",
			"at least one prompt required", nil)
	}

	generation := c.prompts.Generation()
	mask, err := c.engine.Infer(ctx, c.tile, c.prompts.Points())
	if err != nil {
		c.state = StatePrompting
		return err
	}
	if c.prompts.Generation() != generation {
		c.logger.Debug("discarding stale inference result",
			logging.FieldUID, c.entry.UID,
			"generation", generation,
			"current", c.prompts.Generation())
		c.state = StatePrompting
		return nil
	}

	c.mask = mask
	c.maskGeneration = generation
	c.state = StateMaskReady
	return nil
}

// Accept finalizes the live mask: extract polygons, persist the artifact, then
// commit the manifest entry as completed. The two phases are ordered so a
// persistence failure leaves the claim in place for a retry, while a commit
// conflict (the claim was reclaimed mid-session) discards the artifact record
// and releases the session.
func (c *Controller) Accept(ctx context.Context) (string, error) {
	if err := c.require("accept", StateMaskReady); err != nil {
		return "", err
	}
	if c.prompts.Generation() != c.maskGeneration {
		c.state = StatePrompting
		return "", services.Wrap(services.ErrValidation, "session", "accept",
			"mask is stale; run inference again", nil)
	}

	polygons, err := c.extractor.Extract(c.mask, c.tile.Transform)
	if err != nil {
		if errors.Is(err, services.ErrDegenerateMask) {
			c.invalidateMask()
		}
		return "", err
	}

	artifact, err := c.persist(ctx, polygons)
	if err != nil {
		// Manifest untouched: the entry stays in progress and the labeler
		// can retry Accept once storage recovers.
		return "", err
	}

	if err := c.store.Commit(ctx, c.entry, manifest.StatusCompleted, artifact); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.logger.Warn("claim was reclaimed during the session; label discarded",
				logging.FieldUID, c.entry.UID,
				logging.FieldLabeler, c.labelerID)
			c.state = StateReleased
		}
		return "", err
	}

	c.logger.Info("label committed",
		logging.FieldUID, c.entry.UID,
		logging.FieldLabeler, c.labelerID,
		"artifact", artifact,
		"prompts", c.prompts.Len())
	c.state = StateCommitted
	return artifact, nil
}

// Skip marks the claimed UID as reviewed-but-unlabelable and commits it as a
// terminal skip with no artifact.
func (c *Controller) Skip(ctx context.Context) error {
	if err := c.require("skip", StateClaimed, StatePrompting, StateMaskReady); err != nil {
		return err
	}
	if err := c.store.Commit(ctx, c.entry, manifest.StatusSkipped, ""); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.state = StateReleased
		}
		return err
	}
	c.logger.Info("entry skipped", logging.FieldUID, c.entry.UID, logging.FieldLabeler, c.labelerID)
	c.state = StateCommitted
	return nil
}

// Detach ends the local session without touching the manifest: the claim
// stays held by this labeler and out of the claim pool until released or
// reclaimed as stale. Batch callers use this to defer an entry without
// immediately re-surfacing it to their own next claim.
func (c *Controller) Detach() error {
	if err := c.require("detach", StateClaimed, StatePrompting, StateMaskReady); err != nil {
		return err
	}
	uid := c.entry.UID
	c.reset()
	c.logger.Debug("session detached", logging.FieldUID, uid, logging.FieldLabeler, c.labelerID)
	return nil
}

// Abandon returns the claim to the pool without recording a terminal status.
func (c *Controller) Abandon(ctx context.Context) error {
	if err := c.require("abandon", StateClaimed, StatePrompting, StateMaskReady); err != nil {
		return err
	}
	if err := c.store.Release(ctx, c.entry.UID, c.labelerID); err != nil {
		return err
	}
	c.logger.Info("claim released", logging.FieldUID, c.entry.UID, logging.FieldLabeler, c.labelerID)
	c.state = StateReleased
	return nil
}

func (c *Controller) persist(ctx context.Context, polygons []orb.Polygon) (string, error) {
	meta := sink.Metadata{
		UID:         c.entry.UID,
		Labeler:     c.labelerID,
		CompletedAt: time.Now().UTC(),
		PromptCount: c.prompts.Len(),
	}
	if c.entry.ClaimedAt != nil {
		meta.ClaimedAt = *c.entry.ClaimedAt
	}
	return c.sink.Persist(ctx, polygons, meta)
}

func (c *Controller) invalidateMask() {
	c.mask = nil
	c.maskGeneration = 0
	if c.state == StateMaskReady {
		c.state = StatePrompting
	}
}

func (c *Controller) reset() {
	c.entry = nil
	c.tile = nil
	c.prompts = nil
	c.past = nil
	c.mask = nil
	c.maskGeneration = 0
	c.state = StateIdle
}

func (c *Controller) require(operation string, allowed ...State) error {
	for _, state := range allowed {
		if c.state == state {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, "session", operation,
		fmt.Sprintf("not allowed in state %s", c.state), nil)
}
