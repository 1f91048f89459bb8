// aotsqlgen generates specialized handlers for the aotsql calls of Go
// packages.
//
//	aotsqlgen ./...
//	aotsqlgen --dialect postgres --watch ./internal/...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/syssam/aotsql/compiler/gen"
)

// DefaultConfigFile is read when present and --config is not set.
const DefaultConfigFile = "aotsql.yaml"

// errDiagnostics is returned when a run reports errors; the diagnostics
// themselves are already printed.
var errDiagnostics = errors.New("call sites have errors")

type flags struct {
	config  string
	dialect string
	workers int
	dir     string
	dryRun  bool
	watch   bool
	verbose bool
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "aotsqlgen [packages]",
		Short:         "Generate specialized handlers for aotsql call sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), f.verbose)
			cfg, patterns, err := f.resolve(logger, args)
			if err != nil {
				logger.Error().Err(err).Msg("invalid configuration")
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if f.watch {
				return watch(ctx, cfg, f.dir, patterns, cmd.OutOrStdout())
			}
			err = run(ctx, cfg, f.dir, patterns, cmd.OutOrStdout())
			if err != nil && !errors.Is(err, errDiagnostics) {
				logger.Error().Err(err).Msg("generation failed")
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "configuration file (default "+DefaultConfigFile+" when present)")
	fs.StringVarP(&f.dialect, "dialect", "d", "", "render command text for this dialect at generation time")
	fs.IntVarP(&f.workers, "workers", "w", 0, "number of call sites analyzed concurrently (default GOMAXPROCS)")
	fs.StringVarP(&f.dir, "dir", "C", ".", "directory to load packages from")
	fs.BoolVar(&f.dryRun, "dry-run", false, "report diagnostics without writing files")
	fs.BoolVar(&f.watch, "watch", false, "regenerate when Go files change")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log debug messages")
	return cmd
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// resolve merges the configuration file with the command line; flags win.
func (f *flags) resolve(logger zerolog.Logger, args []string) (*gen.Config, []string, error) {
	path := f.config
	if path == "" {
		if _, err := os.Stat(filepath.Join(f.dir, DefaultConfigFile)); err == nil {
			path = filepath.Join(f.dir, DefaultConfigFile)
		}
	}
	var (
		opts     []gen.Option
		patterns = args
	)
	if path != "" {
		fc, err := gen.LoadConfigFile(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug().Str("file", path).Msg("loaded configuration")
		opts = append(opts, fc.Options()...)
		if len(patterns) == 0 {
			patterns = fc.Packages
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	if f.dialect != "" {
		opts = append(opts, gen.WithDialect(f.dialect))
	}
	opts = append(opts, gen.WithWorkers(f.workers), gen.WithDryRun(f.dryRun), gen.WithLogger(logger))
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, patterns, nil
}

// run generates once and prints the diagnostics to out.
func run(ctx context.Context, cfg *gen.Config, dir string, patterns []string, out io.Writer) error {
	start := time.Now()
	res, stats, err := gen.Run(ctx, cfg, dir, patterns...)
	if res != nil {
		printDiagnostics(out, dir, res.Diagnostics)
	}
	if err != nil {
		return err
	}
	sites := 0
	for _, f := range res.Files {
		sites += f.Sites
	}
	cfg.Logger.Info().
		Int("sites", sites).
		Int("written", stats.Written).
		Int("unchanged", stats.Unchanged).
		Int("removed", stats.Removed).
		Int("warnings", res.Diagnostics.Count(gen.Warning)).
		Int("errors", res.Diagnostics.Count(gen.Error)).
		Dur("took", time.Since(start)).
		Msg("done")
	if res.Diagnostics.HasErrors() {
		return errDiagnostics
	}
	return nil
}

// printDiagnostics writes one line per diagnostic, with file names
// relative to dir when possible.
func printDiagnostics(out io.Writer, dir string, ds gen.Diagnostics) {
	base, _ := filepath.Abs(dir)
	for _, d := range ds {
		if rel, err := filepath.Rel(base, d.Pos.Filename); err == nil && filepath.IsLocal(rel) {
			d.Pos.Filename = rel
		}
		fmt.Fprintln(out, d)
	}
}
