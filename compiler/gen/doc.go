// Package gen specializes aotsql call sites into generated Go code.
//
// # Architecture
//
// The generation pipeline follows this flow:
//
//	Go packages (load.Load)
//	        ↓
//	   call sites with constant text, bag type and row type
//	        ↓
//	   analyze (one goroutine per site, bounded by Config.Workers)
//	        ↓
//	   plans: shape, strategy, parameter bindings, result members
//	        ↓
//	   emit (jennifer, one file per package)
//	        ↓
//	   Write (goimports formatting, stale file removal)
//
// Every specialized site gets a handler registered from the init function
// of the generated file. At runtime the entry point finds the handler of its
// caller's line and runs it instead of the reflection-based path.
//
// # Diagnostics
//
// A site that cannot be specialized is reported with a Diagnostic and keeps
// working through the reflection-based path:
//
//   - AOT001: the command text has no constant part
//   - AOT002: a parameter marker has no member in the bag
//   - AOT003: the command text is malformed
//   - AOT004: two result members map to the same column (site is still specialized)
//   - AOT005: a bag, row or member type is not supported
//   - AOT006: an output parameter is declared on a bag passed by value
//   - AOT007: the call options are not constant
//   - AOT008: two calls share a source line
//   - AOT009: a batch command uses positional placeholders (site is still specialized)
//   - AOT010: the columns are only known at runtime (site is still specialized)
//   - AOT011: the command cannot produce the requested result
//   - AOT999: internal error while analyzing the site
//
// # Error Handling
//
// The package uses structured error types:
//
//   - ConfigError: configuration errors
//   - GenerationError: emit and write errors
//   - MissingMemberError, UnsupportedTypeError, OutputParameterError: binding errors
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithDialect("postgres"),
//	    gen.WithWorkers(8),
//	)
//
// or from a YAML file with LoadConfigFile.
package gen
