package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/aotsql/compiler/gen"
)

// debounce is how long the watcher waits for more changes before
// regenerating.
const debounce = 250 * time.Millisecond

// watch generates once, then again every time a Go source file under dir
// changes, until ctx is canceled. Changes to generated files are ignored.
func watch(ctx context.Context, cfg *gen.Config, dir string, patterns []string, out io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addTree(w, dir); err != nil {
		return err
	}
	regenerate := func() {
		if err := run(ctx, cfg, dir, patterns, out); err != nil && !errors.Is(err, errDiagnostics) && ctx.Err() == nil {
			cfg.Logger.Error().Err(err).Msg("generation failed")
		}
	}
	regenerate()
	cfg.Logger.Info().Str("dir", dir).Msg("watching for changes")

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.Logger.Warn().Err(err).Msg("watch error")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						cfg.Logger.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch directory")
					}
					continue
				}
			}
			if !relevant(ev, cfg) {
				continue
			}
			cfg.Logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("change")
			timer.Reset(debounce)
		case <-timer.C:
			regenerate()
		}
	}
}

// relevant reports whether ev may change the generated files.
func relevant(ev fsnotify.Event, cfg *gen.Config) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := ev.Name
	if filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return !gen.IsGenerated(name, cfg)
}

// addTree watches root and its directories, skipping those the go tool
// ignores.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
