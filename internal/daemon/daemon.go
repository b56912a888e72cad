package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"thawmark/internal/config"
	"thawmark/internal/logging"
	"thawmark/internal/manifest"
)

// Daemon runs the coordination service: one process holds the manifest store,
// serves the labeling API, and sweeps stale claims back into the pool.
// Single-instance execution is enforced with a file lock next to the logs.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *manifest.Store

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *manifest.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "thawmarkd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, store, d.logger)
	return d, nil
}

// LockFilePath returns the single-instance lock location.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

// Addr returns the API listen address, empty until Start succeeds.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Start acquires the instance lock, binds the API, and begins the stale-claim
// sweep. It returns once the daemon is serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.wg.Add(1)
	go d.sweepLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started",
		"manifest_db", d.store.Path(),
		"lock_file", d.lockPath,
		"api", d.api.addr())
	return nil
}

// Stop shuts the API down, stops the sweep, and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Manifest.SweepInterval) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce(ctx)
		}
	}
}

func (d *Daemon) sweepOnce(ctx context.Context) {
	reclaimed, err := d.store.ReclaimStale(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.logger.Error("stale-claim sweep failed", "error", err)
		}
		return
	}
	if reclaimed > 0 {
		d.logger.Info("reclaimed stale claims",
			"count", reclaimed,
			"stale_timeout", d.store.StaleTimeout().String())
	}
}
