// Package environment provides the mock global bindings shared by every
// snippet in a run.
//
// An Environment is built once per run and applied to the engine's global
// object before each snippet. Its values are live engine objects, so a
// snippet that mutates them (writing to localStorage, appending to a mock
// node) is observed by every later snippet.
package environment

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/dop251/goja"
)

//go:embed dom.js
var domFixture string

// Binding is a single global name and its value
type Binding struct {
	Name  string
	Value goja.Value
}

// Evaluator runs a script in the engine and returns the own properties of
// its result. A function result is called and a promise result is awaited
// before the properties are read.
type Evaluator interface {
	Evaluate(ctx context.Context, name, source string) ([]Binding, error)
}

// Factory builds the Environment for a run
type Factory func(ctx context.Context, ev Evaluator) (*Environment, error)

// browserConstructors are installed as empty constructors whenever a window is bound
var browserConstructors = []string{"HTMLElement", "Element", "Node", "Event", "CustomEvent"}

// windowObservers are copied from the bound window onto the global object
var windowObservers = []string{"MutationObserver", "ResizeObserver"}

// Environment is an ordered set of global bindings
type Environment struct {
	bindings []Binding
}

// New creates an Environment from bindings, keeping their order
func New(bindings []Binding) *Environment {
	return &Environment{bindings: bindings}
}

// Replace swaps e's bindings for those of other
func (e *Environment) Replace(other *Environment) {
	e.bindings = other.bindings
}

// Names returns the bound global names in order
func (e *Environment) Names() []string {
	names := make([]string, len(e.bindings))
	for i, b := range e.bindings {
		names[i] = b.Name
	}
	return names
}

// Lookup returns the value bound to name
func (e *Environment) Lookup(name string) (goja.Value, bool) {
	for _, b := range e.bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// Apply writes the bindings onto vm's global object.
// It must be called on the goroutine that owns vm.
func (e *Environment) Apply(vm *goja.Runtime) error {
	global := vm.GlobalObject()
	for _, b := range e.bindings {
		if err := global.Set(b.Name, b.Value); err != nil {
			return fmt.Errorf("set global %s: %w", b.Name, err)
		}
	}

	window, ok := e.Lookup("window")
	if !ok || goja.IsUndefined(window) || goja.IsNull(window) {
		return nil
	}

	for _, name := range browserConstructors {
		if err := global.Set(name, func(call goja.ConstructorCall) *goja.Object { return nil }); err != nil {
			return fmt.Errorf("set global %s: %w", name, err)
		}
	}

	windowObj := window.ToObject(vm)
	for _, name := range windowObservers {
		if err := global.Set(name, windowObj.Get(name)); err != nil {
			return fmt.Errorf("set global %s: %w", name, err)
		}
	}

	return nil
}

// DOMFactory builds the default browser mock: document, window and storages
func DOMFactory(ctx context.Context, ev Evaluator) (*Environment, error) {
	bindings, err := ev.Evaluate(ctx, "accudoc:dom.js", domFixture)
	if err != nil {
		return nil, fmt.Errorf("build dom environment: %w", err)
	}
	return New(bindings), nil
}

// ScriptFactory returns a Factory that evaluates a user setup script.
// The script's completion value is an object of globals, or a function
// returning such an object or a promise of one.
func ScriptFactory(path string) Factory {
	return func(ctx context.Context, ev Evaluator) (*Environment, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read setup script: %w", err)
		}

		bindings, err := ev.Evaluate(ctx, path, string(source))
		if err != nil {
			return nil, fmt.Errorf("run setup script %s: %w", path, err)
		}
		return New(bindings), nil
	}
}
