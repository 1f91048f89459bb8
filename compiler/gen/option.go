package gen

import (
	"errors"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/syssam/aotsql/dialect"
	"github.com/syssam/aotsql/sqlshape"
)

// DefaultFileName is the name of the file generated in every package.
const DefaultFileName = "aotsql_generated.go"

// DefaultHeader is the first line of every generated file.
const DefaultHeader = "// Code generated by aotsql. DO NOT EDIT."

// Config holds the code generation settings.
type Config struct {
	// Dialect is the database dialect generated code runs against. When it
	// is empty, command text is rendered at runtime for the dialect of the
	// connection.
	Dialect string
	// Placeholder is the marker style of Dialect.
	Placeholder dialect.Placeholder
	// Workers bounds the number of call sites analyzed concurrently.
	Workers int
	// FileName is the name of the generated file.
	FileName string
	// Header is written at the top of every generated file.
	Header string
	// DryRun reports diagnostics without writing files.
	DryRun bool
	// CacheSize is the number of classified command texts kept while
	// generating.
	CacheSize int
	// BuildFlags are passed to the package loader.
	BuildFlags []string
	Logger     zerolog.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithDialect sets the database dialect and its placeholder style.
// Placeholder style names ("question", "dollar", ...) are accepted as well.
func WithDialect(name string) Option {
	return func(c *Config) error {
		if name == "" {
			c.Dialect, c.Placeholder = "", dialect.Named
			return nil
		}
		p, err := dialect.ParsePlaceholder(name)
		if err != nil {
			return NewConfigError("Dialect", name, "unknown dialect; use mysql, sqlite3, postgres, sqlserver, oracle or a placeholder style")
		}
		c.Dialect, c.Placeholder = strings.ToLower(name), p
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		if n > 0 {
			c.Workers = n
		}
		return nil
	}
}

// WithFileName sets the name of the generated file.
func WithFileName(name string) Option {
	return func(c *Config) error {
		if name == "" || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || strings.ContainsAny(name, `/\`) {
			return NewConfigError("FileName", name, "file name must be a non-test .go file name without directories")
		}
		c.FileName = name
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithLogger sets the logger that receives progress and internal errors.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// WithDryRun disables writing files.
func WithDryRun(dry bool) Option {
	return func(c *Config) error {
		c.DryRun = dry
		return nil
	}
}

// WithCacheSize sets the size of the command text cache.
func WithCacheSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("CacheSize", n, "cache size must be positive")
		}
		c.CacheSize = n
		return nil
	}
}

// WithBuildFlags sets custom build flags for loading packages.
func WithBuildFlags(flags ...string) Option {
	return func(c *Config) error {
		c.BuildFlags = append(c.BuildFlags, flags...)
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prerender reports whether command text is rendered at generation time.
func (c *Config) Prerender() bool { return c.Dialect != "" }

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Workers:   runtime.GOMAXPROCS(0),
		FileName:  DefaultFileName,
		Header:    DefaultHeader,
		CacheSize: sqlshape.DefaultCacheSize,
		Logger:    zerolog.Nop(),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
