package cdpshim

import (
	"context"
	"fmt"
)

// WithTransport manages adapter lifecycle with automatic cleanup.
//
// It creates an adapter for the tab, executes the callback, and closes the
// adapter when done. If the callback returns an error, it is returned to the
// caller. Close failures are logged and never override the callback's error.
//
// Example usage:
//
//	err := cdpshim.WithTransport(ctx, facade, 7, func(t *cdpshim.Transport) error {
//	    return t.Send(ctx, []byte(`{"id":1,"method":"Page.reload"}`))
//	},
//	    cdpshim.WithLogger(log),
//	)
func WithTransport(ctx context.Context, facade Facade, tabID TabID, fn func(*Transport) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	t, err := New(ctx, facade, tabID, opts...)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	defer func() {
		if closeErr := t.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.Warn("failed to close transport", "error", closeErr)
		}
	}()

	return fn(t)
}
