package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watcher waits after the last filesystem event
// before running a batch. E-books are often dropped by downloads or
// converters that write in bursts; the delay lets a file finish arriving.
const settleDelay = 2 * time.Second

// Watcher runs delivery batches whenever new files land in the source
// directory. Batches remain strictly sequential: at most one run is in
// flight, and events arriving during a run coalesce into the next one.
type Watcher struct {
	sourceDir string
	run       func(ctx context.Context) error
	logger    *slog.Logger
}

// NewWatcher creates a Watcher that invokes run after changes settle.
func NewWatcher(sourceDir string, run func(ctx context.Context) error, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		sourceDir: sourceDir,
		run:       run,
		logger:    logger,
	}
}

// Watch blocks until ctx is canceled. One batch runs immediately at
// startup to drain files that arrived while the watcher was down; batch
// failures are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("delivery: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.sourceDir); err != nil {
		return fmt.Errorf("delivery: watching %s: %w", w.sourceDir, err)
	}

	w.logger.Info("watching for new files", slog.String("source_dir", w.sourceDir))

	w.runBatch(ctx)

	// Lazily armed debounce timer: created stopped, reset by events.
	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			// Only arrivals matter. Chmod-only events are noise, and
			// removes/renames are our own relocations.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			w.logger.Debug("filesystem event", slog.String("op", event.Op.String()), slog.String("path", event.Name))
			settle.Reset(settleDelay)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", watchErr.Error()))

		case <-settle.C:
			w.runBatch(ctx)
		}
	}
}

// runBatch executes one delivery run, absorbing its error so a failed batch
// does not end watch mode.
func (w *Watcher) runBatch(ctx context.Context) {
	if err := w.run(ctx); err != nil {
		w.logger.Warn("batch failed", slog.String("error", err.Error()))
	}
}
