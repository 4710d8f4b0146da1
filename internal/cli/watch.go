package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce lets editors finish writing before the graph is re-read.
const reloadDebounce = 100 * time.Millisecond

// RunWatch replays the traversal every time the graph file changes, until ctx
// is cancelled. Invalid graphs are reported and the watcher keeps waiting.
func RunWatch(ctx context.Context, opts RunOptions) error {
	opts.defaults()
	logger := createLogger(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	target := filepath.Clean(opts.GraphPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	changes := make(chan struct{}, 1)
	go forwardChanges(ctx, watcher, target, changes, logger.Warn)

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := RunSession(runCtx, opts)
			done <- err
		}()

		reload := false
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case <-changes:
			cancel()
			<-done
			reload = true
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("traversal failed", "err", err)
				printSystemMessage(opts.Stdout, "Error: %v", err)
			}
		}
		cancel()

		if !reload {
			printSystemMessage(opts.Stdout, "Waiting for changes to '%s'...", target)
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
		}
		printSystemMessage(opts.Stdout, "Change detected in '%s'.", target)
		opts.NoBanner = true
	}
}

// forwardChanges signals on out after a quiet period following writes to target.
func forwardChanges(ctx context.Context, w *fsnotify.Watcher, target string, out chan<- struct{}, warn func(string, ...any)) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			warn("watcher error", "err", err)
		}
	}
}
