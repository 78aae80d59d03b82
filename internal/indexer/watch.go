package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before rescanning.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions controls Watch.
type WatchOptions struct {
	Root     string
	Debounce time.Duration

	// OnScan is called after every rescan, including the initial one.
	OnScan func(*Summary, error)
}

// Watch scans the root once, then rescans after markdown files under it change,
// until ctx is cancelled. Rescans run on the calling goroutine, one at a time.
func (ix *Indexer) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	onScan := opts.OnScan
	if onScan == nil {
		onScan = func(*Summary, error) {}
	}

	summary, err := ix.Scan(ctx, ScanOptions{Root: opts.Root})
	if err != nil {
		return err
	}
	onScan(summary, nil)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := ix.watchTree(watcher, summary.Root); err != nil {
		return err
	}

	// A stopped, drained timer; Reset arms it on the first relevant event.
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := ix.watchTree(watcher, event.Name); err != nil {
						ix.logger.Warn().Err(err).Str("dir", event.Name).Msg("Cannot watch new directory")
					}
					timer.Reset(opts.Debounce)
					continue
				}
			}

			// Only watch markdown files
			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				ix.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("File change detected")
				timer.Reset(opts.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error().Err(err).Msg("File watcher error")

		case <-timer.C:
			summary, err := ix.Scan(ctx, ScanOptions{Root: opts.Root})
			onScan(summary, err)

		case <-ctx.Done():
			return nil
		}
	}
}

// watchTree adds dir and every directory below it. fsnotify watches are not recursive.
func (ix *Indexer) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			ix.logger.Warn().Err(err).Str("path", path).Msg("Cannot watch directory")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}
