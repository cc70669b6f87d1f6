package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/metrics"
)

const defaultReloadDebounce = 250 * time.Millisecond

// DatasetWatcher reloads a MemoryStore whenever its dataset file is written
// or replaced. Editors often save through a rename, so the parent directory
// is watched and events are filtered by file name. Bursts of events are
// coalesced into one reload.
type DatasetWatcher struct {
	logger   *logrus.Logger
	store    *MemoryStore
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	reloaded chan error
}

// NewDatasetWatcher creates a watcher for path. Call Run to start it.
func NewDatasetWatcher(logger *logrus.Logger, store *MemoryStore, path string) (*DatasetWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &DatasetWatcher{
		logger:   logger,
		store:    store,
		path:     abs,
		watcher:  w,
		debounce: defaultReloadDebounce,
		reloaded: make(chan error, 1),
	}, nil
}

// Reloaded delivers the outcome of each reload attempt. Outcomes are
// dropped when nobody is receiving.
func (w *DatasetWatcher) Reloaded() <-chan error {
	return w.reloaded
}

// Run processes file events until ctx is cancelled or Stop is called.
func (w *DatasetWatcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Dataset watcher error")
		}
	}
}

func (w *DatasetWatcher) reload() {
	ds, err := LoadDataset(w.path)
	if err == nil {
		err = w.store.Reload(ds)
	}

	if err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		w.logger.WithError(err).WithField("path", w.path).Error("Dataset reload failed, keeping previous snapshot")
	} else {
		metrics.DatasetReloadsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		w.logger.WithField("path", w.path).Info("Dataset reloaded")
	}

	select {
	case w.reloaded <- err:
	default:
	}
}

// Stop releases the underlying watcher.
func (w *DatasetWatcher) Stop() error {
	return w.watcher.Close()
}
