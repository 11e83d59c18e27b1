package environment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runtimeEvaluator evaluates scripts on a bare runtime with stub timers
type runtimeEvaluator struct {
	vm *goja.Runtime
}

func newRuntimeEvaluator(t *testing.T) *runtimeEvaluator {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(`var setTimeout = () => 0, clearTimeout = () => {}, setInterval = () => 0, clearInterval = () => {};`)
	require.NoError(t, err)
	return &runtimeEvaluator{vm: vm}
}

func (r *runtimeEvaluator) Evaluate(_ context.Context, name, source string) ([]Binding, error) {
	v, err := r.vm.RunScript(name, source)
	if err != nil {
		return nil, err
	}
	obj := v.ToObject(r.vm)
	var bindings []Binding
	for _, key := range obj.Keys() {
		bindings = append(bindings, Binding{Name: key, Value: obj.Get(key)})
	}
	return bindings, nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, string, string) ([]Binding, error) {
	return nil, errors.New("engine down")
}

func TestDOMFactory(t *testing.T) {
	ev := newRuntimeEvaluator(t)

	env, err := DOMFactory(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"document", "window", "localStorage", "sessionStorage", "navigator", "location"}, env.Names())

	require.NoError(t, env.Apply(ev.vm))

	v, err := ev.vm.RunString(`
localStorage.setItem('k', 1);
[
  window.localStorage.getItem('k'),
  localStorage.length,
  sessionStorage.getItem('k'),
  document.createElement('p').tagName,
  typeof HTMLElement,
  typeof CustomEvent,
  MutationObserver === window.MutationObserver,
  ResizeObserver === window.ResizeObserver,
].join(',')`)
	require.NoError(t, err)
	assert.Equal(t, "1,1,,P,function,function,true,true", v.String())
}

func TestDOMFactory_EvaluatorError(t *testing.T) {
	_, err := DOMFactory(context.Background(), failingEvaluator{})
	assert.ErrorContains(t, err, "build dom environment")
}

func TestApply_WithoutWindow(t *testing.T) {
	vm := goja.New()
	env := New([]Binding{{Name: "answer", Value: vm.ToValue(42)}})

	require.NoError(t, env.Apply(vm))

	assert.Equal(t, int64(42), vm.Get("answer").ToInteger())
	assert.Nil(t, vm.Get("HTMLElement"))
}

func TestApply_SharesValues(t *testing.T) {
	vm := goja.New()
	store := vm.NewObject()
	env := New([]Binding{{Name: "store", Value: store}})

	require.NoError(t, env.Apply(vm))
	_, err := vm.RunString("store.count = 1")
	require.NoError(t, err)

	// Re-applying keeps the same object and its mutation
	require.NoError(t, env.Apply(vm))
	v, err := vm.RunString("store.count")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.ToInteger())

	value, ok := env.Lookup("store")
	require.True(t, ok)
	assert.Same(t, store, value)

	_, ok = env.Lookup("missing")
	assert.False(t, ok)
}

func TestScriptFactory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setup.js")
	require.NoError(t, os.WriteFile(path, []byte("({ api: { version: 2 } })"), 0644))

	ev := newRuntimeEvaluator(t)
	env, err := ScriptFactory(path)(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, env.Names())

	_, err = ScriptFactory(filepath.Join(dir, "missing.js"))(context.Background(), ev)
	assert.ErrorContains(t, err, "read setup script")

	_, err = ScriptFactory(path)(context.Background(), failingEvaluator{})
	assert.ErrorContains(t, err, "run setup script")
}
