// Package watch notices collection files changed by something other than
// this process, such as a hand edit while the daemon runs. Reads are never
// cached, so the change takes effect on the next operation; the watcher
// only makes it visible.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/matheus3301/wpp-harvest/internal/bus"
	"go.uber.org/zap"
)

// DefaultWindow is how long after its own write the daemon attributes file
// events to itself.
const DefaultWindow = 2 * time.Second

// WriteClock reports when the daemon last wrote a collection.
type WriteClock interface {
	LastWrite(name string) (time.Time, bool)
}

// ExternalWrite is the payload of store.external_write.
type ExternalWrite struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
}

// Watcher follows one data directory.
type Watcher struct {
	dir         string
	clock       WriteClock
	bus         *bus.Bus
	logger      *zap.Logger
	window      time.Duration
	now         func() time.Time
	collections map[string]bool

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// New watches dir for changes to the named collections.
func New(dir string, clock WriteClock, b *bus.Bus, logger *zap.Logger, collections ...string) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make(map[string]bool, len(collections))
	for _, c := range collections {
		names[c] = true
	}
	return &Watcher{
		dir:         dir,
		clock:       clock,
		bus:         b,
		logger:      logger,
		window:      DefaultWindow,
		now:         time.Now,
		collections: names,
	}
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
	w.logger.Info("watching data directory", zap.String("dir", w.dir))
	return nil
}

// Stop ends watching.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	_ = w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if change, external := w.classify(ev); external {
				w.logger.Warn("collection changed outside the daemon",
					zap.String("collection", change.Collection),
					zap.String("op", change.Op))
				w.bus.Emit(bus.KindExternalWrite, change)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// classify decides whether ev is an outside change to a watched collection.
func (w *Watcher) classify(ev fsnotify.Event) (ExternalWrite, bool) {
	base := filepath.Base(ev.Name)
	name, ok := strings.CutSuffix(base, ".json")
	if !ok || strings.HasPrefix(base, ".") || !w.collections[name] {
		return ExternalWrite{}, false
	}

	var op string
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = "remove"
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		op = "write"
	default:
		return ExternalWrite{}, false
	}

	if w.clock != nil {
		if last, ok := w.clock.LastWrite(name); ok && w.now().Sub(last) < w.window {
			return ExternalWrite{}, false
		}
	}
	return ExternalWrite{Collection: name, Op: op}, true
}
