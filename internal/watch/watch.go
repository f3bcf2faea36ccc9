// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs collections when PDF files in their input
// directories change. Bursts of events are coalesced: a collection runs
// once after its directory has been quiet for the debounce window.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/pkg/types"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = time.Second

// RunFunc processes one collection.
type RunFunc func(ctx context.Context, c types.CollectionConfig) error

// Watcher maps file events to collection runs.
type Watcher struct {
	Collections []types.CollectionConfig
	Debounce    time.Duration
	Run         RunFunc
	Logger      *zap.Logger

	// ready, when set, is closed once every directory is being watched.
	ready chan struct{}
}

// relevant reports whether an event on name should trigger a run.
func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".pdf") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Watch blocks until ctx is done, running collections as their inputs
// change. Directories that cannot be watched are logged and skipped; it is
// an error when none can be.
func (w *Watcher) Watch(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	byDir := make(map[string][]types.CollectionConfig)
	for _, c := range w.Collections {
		dir := filepath.Clean(c.InputDir)
		if _, ok := byDir[dir]; !ok {
			if err := fw.Add(dir); err != nil {
				log.Warn("cannot watch input directory", zap.Int("collection", c.ID), zap.String("dir", dir), zap.Error(err))
				continue
			}
			log.Info("watching", zap.Int("collection", c.ID), zap.String("dir", dir))
		}
		byDir[dir] = append(byDir[dir], c)
	}
	if len(byDir) == 0 {
		return errors.New("no input directory could be watched")
	}
	if w.ready != nil {
		close(w.ready)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			dir := filepath.Dir(ev.Name)
			if _, ok := byDir[dir]; !ok {
				continue
			}
			log.Debug("input changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			pending[dir] = true
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			for _, c := range w.due(pending, byDir) {
				if ctx.Err() != nil {
					return nil
				}
				if err := w.Run(ctx, c); err != nil {
					log.Error("collection run failed", zap.Int("collection", c.ID), zap.Error(err))
				}
			}
			clear(pending)
		}
	}
}

// due returns the collections of pending directories in configuration
// order.
func (w *Watcher) due(pending map[string]bool, byDir map[string][]types.CollectionConfig) []types.CollectionConfig {
	var out []types.CollectionConfig
	for _, c := range w.Collections {
		dir := filepath.Clean(c.InputDir)
		if pending[dir] && len(byDir[dir]) > 0 {
			out = append(out, c)
		}
	}
	return out
}
