// Package config holds the options an adapter is constructed with.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wagiedev/cdpshim/internal/evalpolicy"
	"github.com/wagiedev/cdpshim/internal/pacing"
)

// DefaultProtocolVersion is the CDP version requested when attaching.
const DefaultProtocolVersion = "1.3"

// PacingDelayEnv overrides the default pacing delay, in milliseconds.
const PacingDelayEnv = "CDPSHIM_PACING_DELAY_MS"

// Options configures an adapter.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// PacingDelay is the delay applied to every response and synthetic event.
	// If nil, falls back to CDPSHIM_PACING_DELAY_MS, then to 40ms.
	// A zero delay is allowed and still delivers asynchronously.
	PacingDelay *time.Duration

	// ProtocolVersion is the CDP version passed to the host on attach.
	// Defaults to "1.3".
	ProtocolVersion string

	// Scheduler runs paced deliveries. If nil, the adapter starts a
	// wall-clock pacing.Queue and stops it on close.
	Scheduler pacing.Scheduler

	// FunctionFactory overrides the evaluation policy.
	FunctionFactory evalpolicy.FunctionFactory

	// DisableDynamicEval forces the no-op function factory.
	// Ignored when FunctionFactory is set.
	DisableDynamicEval bool
}

// ResolvePacingDelay returns the pacing delay from options, env var, or default.
func (o *Options) ResolvePacingDelay() time.Duration {
	if o != nil && o.PacingDelay != nil && *o.PacingDelay >= 0 {
		return *o.PacingDelay
	}

	if delayStr := os.Getenv(PacingDelayEnv); delayStr != "" {
		if delayMS, err := strconv.Atoi(delayStr); err == nil && delayMS >= 0 {
			return time.Duration(delayMS) * time.Millisecond
		}
	}

	return pacing.DefaultDelay
}

// ResolveProtocolVersion returns the configured protocol version or the default.
func (o *Options) ResolveProtocolVersion() string {
	if o != nil && o.ProtocolVersion != "" {
		return o.ProtocolVersion
	}

	return DefaultProtocolVersion
}
