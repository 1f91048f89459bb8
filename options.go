package aotsql

// CallOption configures one call of an entry point. The generator reads
// options with constant arguments at the call site.
type CallOption func(*callConfig)

type callConfig struct {
	rowKind  RowKind
	deferred bool
}

// WithRowKind sets the single-row policy of QueryRow and QueryRowAsync.
func WithRowKind(k RowKind) CallOption {
	return func(c *callConfig) { c.rowKind = k }
}

// Deferred makes an asynchronous call run on the goroutine that awaits it
// instead of a new goroutine.
func Deferred() CallOption {
	return func(c *callConfig) { c.deferred = true }
}

func newCallConfig(opts []CallOption) callConfig {
	var c callConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func (c callConfig) async() Async {
	if c.deferred {
		return AsyncDeferred
	}
	return AsyncTask
}
