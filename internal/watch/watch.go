// Package watch re-runs a build whenever a config file it depends on changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/include"
)

// DefaultDebounce coalesces bursts of editor writes into one rebuild.
const DefaultDebounce = 150 * time.Millisecond

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a relevant change to a config file.
type Event struct {
	Path string
	Op   EventOp
}

// Rebuild runs the build and returns the absolute paths of every file it
// read. Their directories are watched for the next round. A failed build
// may still return the files it got to.
type Rebuild func(ctx context.Context) ([]string, error)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a rebuild. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Ignore lists absolute paths whose changes never trigger a rebuild,
	// such as the build's own output.
	Ignore []string
}

// Watcher watches the directories of a set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	ignore   map[string]bool

	mu   sync.Mutex
	dirs map[string]bool
}

// New creates a watcher. Nothing is watched until Watch is called.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, p := range opts.Ignore {
		ignore[clean(p)] = true
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		ignore:   ignore,
		dirs:     make(map[string]bool),
	}, nil
}

// Watch adds the parent directory of every file. Directories already
// watched are skipped.
func (w *Watcher) Watch(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range files {
		dir := filepath.Dir(clean(f))
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	return out
}

// Close stops watching and releases the fsnotify handle.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls rebuild after every debounced burst of relevant changes until
// ctx is cancelled. A failed rebuild is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, rebuild Rebuild) error {
	logger := ctxlog.FromContext(ctx)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			event, relevant := w.convertEvent(ev)
			if !relevant {
				continue
			}
			logger.Debug("change detected", "path", event.Path, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			files, err := rebuild(ctx)
			if err != nil {
				logger.Error("rebuild failed", "error", err)
			}
			if werr := w.Watch(files); werr != nil {
				logger.Warn("refreshing watched directories", "error", werr)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// convertEvent converts an fsnotify event to an Event.
// Returns (Event, true) if the event should trigger a rebuild.
func (w *Watcher) convertEvent(event fsnotify.Event) (Event, bool) {
	if !strings.HasSuffix(event.Name, include.Extension) {
		return Event{}, false
	}
	p := clean(event.Name)
	if w.ignore[p] {
		return Event{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		// chmod
		return Event{}, false
	}
	return Event{Path: p, Op: op}, true
}

func clean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
