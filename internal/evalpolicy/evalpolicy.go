// Package evalpolicy decides how an adapter constructs functions from source
// text at runtime.
//
// Some CDP client code paths build small helper functions dynamically. Hosts
// with a restrictive execution policy cannot do that, so the adapter carries a
// FunctionFactory value: either a real one backed by an embedded JavaScript
// runtime, a caller-supplied override, or a no-op substitute that lets those
// paths degrade gracefully instead of failing.
package evalpolicy

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Function is a dynamically constructed function.
type Function func(args ...any) (any, error)

// FunctionFactory builds functions from parameter names and a body.
type FunctionFactory interface {
	New(params []string, body string) (Function, error)
}

// Compile-time verification that the factories implement FunctionFactory.
var (
	_ FunctionFactory = (*GojaFactory)(nil)
	_ FunctionFactory = NoopFactory{}
)

// GojaFactory compiles functions with the goja JavaScript runtime.
//
// Each function gets its own runtime. Calls to one function are serialized
// because a goja runtime is not safe for concurrent use.
type GojaFactory struct{}

// Goja returns the goja-backed factory.
func Goja() *GojaFactory {
	return &GojaFactory{}
}

// New implements FunctionFactory.
func (*GojaFactory) New(params []string, body string) (Function, error) {
	vm := goja.New()

	src := fmt.Sprintf("(function(%s) {\n%s\n})", strings.Join(params, ", "), body)

	v, err := vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("compile function: %w", err)
	}

	callable, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("compile function: source did not evaluate to a function")
	}

	var mu sync.Mutex

	return func(args ...any) (any, error) {
		mu.Lock()
		defer mu.Unlock()

		values := make([]goja.Value, len(args))
		for i, arg := range args {
			values[i] = vm.ToValue(arg)
		}

		out, err := callable(goja.Undefined(), values...)
		if err != nil {
			return nil, fmt.Errorf("call function: %w", err)
		}

		return out.Export(), nil
	}, nil
}

// NoopFactory builds functions that do nothing and return nil.
type NoopFactory struct{}

// Noop returns the no-op factory.
func Noop() NoopFactory {
	return NoopFactory{}
}

// New implements FunctionFactory.
func (NoopFactory) New([]string, string) (Function, error) {
	return func(...any) (any, error) { return nil, nil }, nil
}

// Probe reports whether f can construct and call a function.
func Probe(f FunctionFactory) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	fn, err := f.New([]string{"a", "b"}, "return a + b;")
	if err != nil {
		return err
	}

	out, err := fn(int64(1), int64(2))
	if err != nil {
		return err
	}

	if n, ok := out.(int64); !ok || n != 3 {
		return fmt.Errorf("probe returned %v, want 3", out)
	}

	return nil
}

// Resolve picks the factory an adapter should carry.
//
// An override wins. Otherwise the goja factory is used when it passes Probe
// and dynamic evaluation is not disabled; in every other case Noop is used.
func Resolve(log *slog.Logger, override FunctionFactory, disabled bool) FunctionFactory {
	log = log.With("component", "evalpolicy")

	if override != nil {
		log.Debug("Using caller-supplied function factory")

		return override
	}

	if disabled {
		log.Debug("Dynamic evaluation disabled, using no-op function factory")

		return Noop()
	}

	factory := Goja()
	if err := Probe(factory); err != nil {
		log.Warn("Dynamic evaluation unavailable, using no-op function factory", "error", err)

		return Noop()
	}

	return factory
}
