package walk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for the tree to settle before
// calling the change handler.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions defines options for watching a tree for changes.
type WatchOptions struct {
	// Quiet period after the last event before OnChange runs
	Debounce time.Duration

	// Whether to watch hidden directories
	IncludeHidden bool

	Logger *zap.Logger
}

// ChangeHandler is called after the tree changed. Returning an error stops
// the watch.
type ChangeHandler func(ctx context.Context) error

// Watch monitors root recursively and calls onChange, debounced, whenever
// something under it is created, written, removed, renamed or chmodded. It
// returns nil when ctx is done.
func Watch(ctx context.Context, root string, opts WatchOptions, onChange ChangeHandler) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, root, opts.IncludeHidden, logger); err != nil {
		return fmt.Errorf("error watching directory %s: %w", root, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !opts.IncludeHidden && isHiddenPath(root, event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name, opts.IncludeHidden, logger); err != nil {
						logger.Warn("error watching new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if err := onChange(ctx); err != nil {
				return err
			}
		}
	}
}

// addTree registers dir and every directory beneath it.
func addTree(watcher *fsnotify.Watcher, dir string, includeHidden bool, logger *zap.Logger) error {
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != dir && !includeHidden && strings.HasPrefix(de.Name(), ".") {
				return godirwalk.SkipThis
			}
			if err := watcher.Add(path); err != nil {
				logger.Warn("error watching directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			logger.Warn("cannot read directory", zap.String("path", path), zap.Error(err))
			return godirwalk.SkipNode
		},
	})
}

// isHiddenPath reports whether any component of p below root starts with a dot.
func isHiddenPath(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
