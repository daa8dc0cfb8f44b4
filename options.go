package cdpshim

import (
	"log/slog"
	"time"

	"github.com/wagiedev/cdpshim/internal/config"
)

// Options configures an adapter. See the With* functions.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithPacingDelay sets the delay applied to every response and synthetic
// event. Defaults to 40ms, or CDPSHIM_PACING_DELAY_MS when set.
func WithPacingDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.PacingDelay = &delay
	}
}

// WithScheduler sets the scheduler that runs paced deliveries.
// Use NewManualScheduler for deterministic tests.
func WithScheduler(scheduler Scheduler) Option {
	return func(o *Options) {
		o.Scheduler = scheduler
	}
}

// WithProtocolVersion sets the CDP version requested on attach (default "1.3").
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithFunctionFactory overrides the evaluation policy carried by the adapter.
func WithFunctionFactory(factory FunctionFactory) Option {
	return func(o *Options) {
		o.FunctionFactory = factory
	}
}

// WithDynamicEvalDisabled forces the no-op function factory, for hosts whose
// execution policy forbids constructing functions at runtime.
func WithDynamicEvalDisabled() Option {
	return func(o *Options) {
		o.DisableDynamicEval = true
	}
}
