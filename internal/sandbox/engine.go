// Package sandbox embeds the JavaScript engine that executes snippets.
//
// An Engine owns one runtime for a whole run. The runtime lives on an event
// loop goroutine and every access to it is scheduled onto that loop, so
// snippets run strictly one after another against the same global object.
//
// A snippet that is interrupted by a timeout or cancellation takes the
// runtime down with it: the Engine replaces it with a fresh one, and any
// globals or environment values installed before are gone.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/harrison/accudoc/internal/config"
	"github.com/harrison/accudoc/internal/environment"
	"github.com/harrison/accudoc/internal/transformer"
)

const markupHelpersSource = `(function () {
  return {
    factory: (type, props, ...children) => ({ type, props: props || {}, children }),
    fragment: 'Fragment',
  };
})()`

// Options configures an Engine
type Options struct {
	// WorkDir is the directory bare module specifiers are resolved from
	WorkDir string

	// JSX selects how markup in imported modules is lowered
	JSX config.JSXMode

	// Timeout bounds a single Execute or Evaluate. Zero disables it.
	Timeout time.Duration

	// Output receives console output. Defaults to os.Stdout.
	Output io.Writer
}

// Engine runs snippets in a shared JavaScript runtime
type Engine struct {
	opts   Options
	mu     sync.Mutex
	inst   *instance
	closed atomic.Bool
}

// instance is a runtime together with the loop that owns it
type instance struct {
	loop   *eventloop.EventLoop
	vm     *goja.Runtime
	params []string
	args   []goja.Value
}

// New starts an Engine. Close must be called to stop its loop.
func New(opts Options) (*Engine, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		opts.WorkDir = wd
	}

	e := &Engine{opts: opts}
	inst, err := e.start()
	if err != nil {
		return nil, err
	}
	e.inst = inst
	return e, nil
}

// start creates a runtime on a new loop and installs the snippet parameters
func (e *Engine) start() (*instance, error) {
	registry := require.NewRegistry(
		require.WithLoader(e.loadSource),
		require.WithGlobalFolders(filepath.Join(e.opts.WorkDir, "node_modules")),
	)
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(printer{w: e.opts.Output}))

	inst := &instance{loop: eventloop.NewEventLoop(eventloop.WithRegistry(registry), eventloop.EnableConsole(true))}
	inst.loop.Start()

	errc := make(chan error, 1)
	if !inst.loop.RunOnLoop(func(vm *goja.Runtime) { errc <- e.setup(inst, vm) }) {
		inst.loop.Terminate()
		return nil, ErrClosed
	}
	if err := <-errc; err != nil {
		inst.loop.Terminate()
		return nil, err
	}
	return inst, nil
}

// setup installs the snippet parameters. It runs on the loop.
func (e *Engine) setup(inst *instance, vm *goja.Runtime) error {
	inst.vm = vm

	if err := overrideConsoleAssert(vm); err != nil {
		return err
	}

	asserts, err := newAssertions(vm)
	if err != nil {
		return err
	}
	for _, p := range asserts.primitives() {
		inst.params = append(inst.params, p.name)
		inst.args = append(inst.args, vm.ToValue(p.fn))
	}
	inst.params = append(inst.params, AssertionErrorIdent, transformer.LoaderIdent)
	inst.args = append(inst.args, asserts.errorCtor, vm.ToValue(e.importFunc(vm)))

	helpers, err := vm.RunScript("accudoc:markup.js", markupHelpersSource)
	if err != nil {
		return fmt.Errorf("define markup helpers: %w", err)
	}
	h := helpers.ToObject(vm)
	inst.params = append(inst.params, transformer.JSXFactoryIdent, transformer.JSXFragmentIdent)
	inst.args = append(inst.args, h.Get("factory"), h.Get("fragment"))

	return nil
}

func (e *Engine) current() *instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inst
}

// restart terminates an interrupted runtime and replaces it. An interrupt
// that lands in synchronous code leaves the runtime unable to resume awaits.
func (e *Engine) restart(old *instance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inst != old {
		return ErrClosed
	}
	old.loop.Terminate()

	inst, err := e.start()
	if err != nil {
		e.inst = nil
		e.closed.Store(true)
		return fmt.Errorf("restart runtime: %w", err)
	}
	e.inst = inst
	return nil
}

// Execute runs code as the body of an async function and waits for it to
// settle. Faults raised by the code are returned as *ScriptError.
func (e *Engine) Execute(ctx context.Context, name, code string) error {
	_, err := run(ctx, e, func(inst *instance) (goja.Value, error) {
		// The body starts on the first line so reported positions match the snippet
		source := "(async function(" + strings.Join(inst.params, ", ") + ") {" + code + "\n})"
		fnValue, err := inst.vm.RunScript(name, source)
		if err != nil {
			return nil, err
		}
		fn, ok := goja.AssertFunction(fnValue)
		if !ok {
			return nil, fmt.Errorf("%s did not compile to a function", name)
		}
		return fn(goja.Undefined(), inst.args...)
	}, func(*goja.Runtime, goja.Value) (struct{}, error) {
		return struct{}{}, nil
	})
	return err
}

// Evaluate runs a setup script and returns the own properties of its
// completion value as bindings. A function value is called first and a
// promise is awaited.
func (e *Engine) Evaluate(ctx context.Context, name, source string) ([]environment.Binding, error) {
	return run(ctx, e, func(inst *instance) (goja.Value, error) {
		value, err := inst.vm.RunScript(name, source)
		if err != nil {
			return nil, err
		}
		if fn, ok := goja.AssertFunction(value); ok {
			return fn(goja.Undefined())
		}
		return value, nil
	}, func(vm *goja.Runtime, value goja.Value) ([]environment.Binding, error) {
		if isNullish(value) {
			return nil, fmt.Errorf("%s: expected an object of globals, got %s", name, valueString(value))
		}
		obj := value.ToObject(vm)
		keys := obj.Keys()
		bindings := make([]environment.Binding, 0, len(keys))
		for _, key := range keys {
			bindings = append(bindings, environment.Binding{Name: key, Value: obj.Get(key)})
		}
		return bindings, nil
	})
}

// Install applies env to the global object
func (e *Engine) Install(ctx context.Context, env *environment.Environment) error {
	_, err := run(ctx, e, func(inst *instance) (goja.Value, error) {
		return goja.Undefined(), env.Apply(inst.vm)
	}, func(*goja.Runtime, goja.Value) (struct{}, error) {
		return struct{}{}, nil
	})
	return err
}

// Close interrupts any running script and stops the loop
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inst != nil {
		e.inst.vm.Interrupt(ErrClosed)
		e.inst.loop.Terminate()
		e.inst = nil
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// run schedules start on the loop and waits for the value it returns to
// settle. done converts the settled value on the loop. The wait ends early
// when ctx is done or the engine timeout passes, in which case the runtime
// is interrupted and replaced.
func run[T any](ctx context.Context, e *Engine, start func(*instance) (goja.Value, error), done func(*goja.Runtime, goja.Value) (T, error)) (T, error) {
	var zero T
	if e.closed.Load() {
		return zero, ErrClosed
	}
	inst := e.current()
	if inst == nil {
		return zero, ErrClosed
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	result := make(chan outcome[T], 1)
	finish := func(vm *goja.Runtime, value goja.Value, err error) {
		out := outcome[T]{err: err}
		if err == nil {
			out.value, out.err = guard(func() (T, error) { return done(vm, value) })
		}
		select {
		case result <- out:
		default:
		}
	}

	scheduled := inst.loop.RunOnLoop(func(vm *goja.Runtime) {
		defer func() {
			if r := recover(); r != nil {
				finish(vm, nil, fmt.Errorf("engine panic: %v", r))
			}
		}()

		value, err := start(inst)
		if err != nil {
			finish(vm, nil, scriptError(err))
			return
		}
		settle(vm, value, finish)
	})
	if !scheduled {
		return zero, ErrClosed
	}

	select {
	case out := <-result:
		return out.value, out.err
	case <-ctx.Done():
		inst.vm.Interrupt(ctx.Err())

		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) && e.opts.Timeout > 0 {
			err = fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout)
		}
		if rerr := e.restart(inst); rerr != nil && !errors.Is(rerr, ErrClosed) {
			return zero, errors.Join(err, rerr)
		}
		return zero, err
	}
}


// settle calls finish once value is settled. Promises that are still
// pending are followed with then handlers, which run on the loop.
func settle(vm *goja.Runtime, value goja.Value, finish func(*goja.Runtime, goja.Value, error)) {
	if value == nil {
		finish(vm, goja.Undefined(), nil)
		return
	}

	promise, ok := value.Export().(*goja.Promise)
	if !ok {
		finish(vm, value, nil)
		return
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		finish(vm, promise.Result(), nil)
		return
	case goja.PromiseStateRejected:
		finish(vm, nil, thrownError(promise.Result(), ""))
		return
	}

	then, _ := thenable(vm, value)
	onFulfilled := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		finish(vm, call.Argument(0), nil)
		return goja.Undefined()
	})
	onRejected := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		finish(vm, nil, thrownError(call.Argument(0), ""))
		return goja.Undefined()
	})
	if _, err := then(value, onFulfilled, onRejected); err != nil {
		finish(vm, nil, scriptError(err))
	}
}

// guard converts a script fault raised while reading a settled value
func guard[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(goja.Value); ok {
				err = thrownError(v, "")
				return
			}
			panic(r)
		}
	}()
	return fn()
}

// overrideConsoleAssert replaces console.assert with a version that logs
// failures instead of throwing
func overrideConsoleAssert(vm *goja.Runtime) error {
	c := vm.Get("console")
	if isNullish(c) {
		return errors.New("console is not available")
	}
	obj := c.ToObject(vm)
	logFn, ok := goja.AssertFunction(obj.Get("error"))
	if !ok {
		return errors.New("console.error is not a function")
	}

	return obj.Set("assert", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).ToBoolean() {
			return goja.Undefined()
		}
		args := []goja.Value{vm.ToValue("Assertion failed:")}
		if len(call.Arguments) > 1 {
			args = append(args, call.Arguments[1:]...)
		} else {
			args[0] = vm.ToValue("Assertion failed")
		}
		_, _ = logFn(obj, args...)
		return goja.Undefined()
	})
}

// printer writes console output to a writer
type printer struct {
	w io.Writer
}

func (p printer) Log(s string)   { fmt.Fprintln(p.w, s) }
func (p printer) Warn(s string)  { fmt.Fprintln(p.w, s) }
func (p printer) Error(s string) { fmt.Fprintln(p.w, s) }
