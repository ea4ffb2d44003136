package marker

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ralphcodes/ralph/internal/logging"
)

// Watcher waits for a marker file to appear in a target directory. It polls
// on a fixed interval and, when enabled, also subscribes to filesystem
// events so markers written by the agent are noticed before the next tick.
// Polling stays on even with events enabled: network filesystems and
// editors that write via rename both drop events.
type Watcher struct {
	dir       string
	interval  time.Duration
	useEvents bool
	logger    *logging.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithEvents toggles the fsnotify event subscription.
func WithEvents(enabled bool) Option {
	return func(w *Watcher) {
		w.useEvents = enabled
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a Watcher for dir polling at the given interval.
func NewWatcher(dir string, interval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		interval:  interval,
		useEvents: true,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval <= 0 {
		w.interval = 500 * time.Millisecond
	}
	return w
}

// Wait blocks until a marker file appears in the watched directory or the
// context is canceled. It returns the detected marker, or None with the
// context's error on cancellation.
func (w *Watcher) Wait(ctx context.Context) (Kind, error) {
	// A marker may already be there
	if k := Detect(w.dir); k != None {
		return k, nil
	}

	var events chan struct{}
	if w.useEvents {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err := fsw.Add(w.dir); err == nil {
				events = make(chan struct{}, 1)
				go w.forwardEvents(ctx, fsw, events)
				defer fsw.Close()
			} else {
				fsw.Close()
				w.logger.Warn("fsnotify watch failed, polling only", "error", err)
			}
		} else {
			w.logger.Warn("fsnotify unavailable, polling only", "error", err)
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return None, ctx.Err()
		case <-ticker.C:
		case <-events:
		}

		if k := Detect(w.dir); k != None {
			w.logger.Debug("marker detected", "marker", k.File())
			return k, nil
		}
	}
}

// forwardEvents collapses create/write events for marker files into wakeups
// on the out channel.
func (w *Watcher) forwardEvents(ctx context.Context, fsw *fsnotify.Watcher, out chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("fsnotify error", "error", err)
		}
	}
}
