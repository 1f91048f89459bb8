package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/syssam/aotsql/compiler/load"
)

// WriteStats counts what Write did.
type WriteStats struct {
	Written   int
	Unchanged int
	Removed   int
	Bytes     int64
}

// Write formats and writes the generated files of res and removes its stale
// files. Files whose content did not change are not rewritten, so that
// file watchers are not triggered needlessly. A file that cannot be
// formatted is written next to its target with an ".error" suffix for
// debugging.
func Write(res *Result, cfg *Config) (*WriteStats, error) {
	stats := &WriteStats{}
	if cfg.DryRun {
		return stats, nil
	}
	for _, f := range res.Files {
		formatted, err := imports.Process(f.Path, f.Content, nil)
		if err != nil {
			// Errors intentionally ignored as we're already in error state.
			debugPath := f.Path + ".error"
			_ = os.WriteFile(debugPath, f.Content, 0o644)
			return stats, NewGenerationError("format", f.Path, fmt.Sprintf("unformatted written to %s", debugPath), err)
		}
		f.Content = formatted
		if old, err := os.ReadFile(f.Path); err == nil && string(old) == string(formatted) {
			stats.Unchanged++
			continue
		}
		if err := os.WriteFile(f.Path, formatted, 0o644); err != nil {
			return stats, NewGenerationError("write", f.Path, "", err)
		}
		stats.Written++
		stats.Bytes += int64(len(formatted))
		cfg.Logger.Info().Str("file", f.Path).Int("sites", f.Sites).Msg("written")
	}
	for _, path := range res.Stale {
		removed, err := removeStale(path, cfg.Header)
		if err != nil {
			return stats, NewGenerationError("remove", path, "", err)
		}
		if removed {
			stats.Removed++
			cfg.Logger.Info().Str("file", path).Msg("removed stale file")
		}
	}
	return stats, nil
}

// removeStale removes a previously generated file. Files that do not
// start with header were not written by the generator and are kept.
func removeStale(path, header string) (bool, error) {
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	case !bytes.HasPrefix(content, []byte(header)):
		return false, nil
	}
	return true, os.Remove(path)
}

// IsGenerated reports whether path is a file the generator writes.
func IsGenerated(path string, cfg *Config) bool {
	return filepath.Base(path) == cfg.FileName
}

// Run loads the packages matching patterns, generates their files and
// writes them. The returned result carries the diagnostics of every site.
func Run(ctx context.Context, cfg *Config, dir string, patterns ...string) (*Result, *WriteStats, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}
	pkgs, err := load.Load(ctx, &load.Config{Dir: dir, BuildFlags: cfg.BuildFlags}, patterns...)
	if err != nil {
		return nil, nil, err
	}
	for _, pkg := range pkgs {
		for _, err := range pkg.Errors {
			cfg.Logger.Warn().Str("package", pkg.Path).Err(err).Msg("package has errors")
		}
	}
	res, err := g.Generate(ctx, pkgs)
	if err != nil {
		return nil, nil, err
	}
	stats, err := Write(res, cfg)
	return res, stats, err
}
