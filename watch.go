package devserve

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// targetWatcher watches a single file. The parent directory is watched
// without recursion so editors that replace the file on save still count,
// and nothing else in the directory can break the watch.
type targetWatcher struct {
	target string
	dir    string
	log    *slog.Logger
	fs     *fsnotify.Watcher
}

// watchTarget starts watching target. Events are delivered once run is
// called, but changes made in between are already queued.
func watchTarget(target string, log *slog.Logger) (*targetWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("devserve: unable to watch %q: %w", target, err)
	}
	dir := filepath.Dir(target)
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("devserve: unable to watch %q: %w", target, err)
	}
	return &targetWatcher{target: target, dir: dir, log: log, fs: fs}, nil
}

// run calls onChange whenever the target is written or created, until ctx is
// canceled. Losing the watched directory is an error.
func (w *targetWatcher) run(ctx context.Context, debounceFor time.Duration, onChange func()) error {
	defer w.fs.Close()
	if debounceFor > 0 {
		debounced := debounce.New(debounceFor)
		change := onChange
		onChange = func() { debounced(change) }
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Name == w.dir && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				return fmt.Errorf("devserve: unable to watch %q: %s was removed", w.target, w.dir)
			}
			if targetChanged(event, w.target) {
				w.log.Debug("devserve: target changed", "event", event.String())
				onChange()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("devserve: watch error", "target", w.target, "error", err)
		}
	}
}

func (w *targetWatcher) close() error {
	return w.fs.Close()
}

// targetChanged reports whether event wrote or created the target. Deletes,
// renames and permission changes are ignored.
func targetChanged(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
