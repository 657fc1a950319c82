package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Await blocks until the discovery file exists and holds a valid port, or
// ctx ends. Unlike Resolve it tolerates the service not being up yet; a
// malformed value is still terminal. Bound the wait through ctx.
func Await(ctx context.Context, path string) (Endpoint, error) {
	ep, err := Resolve(path)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return ep, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Endpoint{}, fmt.Errorf("gateway: watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return Endpoint{}, fmt.Errorf("gateway: watch %s: %w", filepath.Dir(path), err)
	}

	// The file may have appeared between Resolve and Add.
	ep, err = Resolve(path)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return ep, err
	}

	for {
		select {
		case <-ctx.Done():
			return Endpoint{}, fmt.Errorf("gateway: await %s: %w", path, ctx.Err())
		case werr, ok := <-watcher.Errors:
			if !ok {
				return Endpoint{}, fmt.Errorf("gateway: watcher closed")
			}
			return Endpoint{}, fmt.Errorf("gateway: watcher: %w", werr)
		case ev, ok := <-watcher.Events:
			if !ok {
				return Endpoint{}, fmt.Errorf("gateway: watcher closed")
			}
			if ev.Name != path || !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			ep, err := Resolve(path)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return ep, err
		}
	}
}
