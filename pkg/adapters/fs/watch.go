package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/odm/pkg/core"
)

// Watch reports changes to documents whose identifier matches pattern (a
// doublestar glob, "*" for all). The channel is closed when ctx is done.
func (c *Collection) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(c.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", c.Path, err)
	}

	events := make(chan core.Event)
	c.setWatching(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer c.setWatching(false)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return nil

			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				e, ok := c.toEvent(ev, pattern)
				if !ok {
					continue
				}
				select {
				case events <- e:
				case <-ctx.Done():
					return nil
				}

			case wErr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				c.logger.Error("fsnotify error", "error", wErr)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		c.logger.Error("watcher panic", "error", err)
	}))

	return events, nil
}

// toEvent maps a filesystem event on a document file to a collection event.
func (c *Collection) toEvent(ev fsnotify.Event, pattern string) (core.Event, bool) {
	name := filepath.Base(ev.Name)
	if !isDocumentFile(name) {
		return core.Event{}, false
	}
	id := idOf(name)
	if ok, _ := doublestar.Match(pattern, id); !ok {
		return core.Event{}, false
	}

	var typ core.EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = core.EventCreate
	case ev.Has(fsnotify.Write):
		typ = core.EventModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		typ = core.EventDelete
	default:
		return core.Event{}, false
	}

	c.logger.Debug("event received", "name", ev.Name, "type", typ)
	return core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()}, true
}
