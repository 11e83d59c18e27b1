package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/harrison/accudoc/internal/transformer"
)

// ModulePath converts a loader locator into a path the require registry
// resolves. file:// locators lose their scheme, and a Windows drive path
// loses the slash in front of the drive letter.
func ModulePath(locator string) string {
	p, ok := strings.CutPrefix(locator, "file://")
	if !ok {
		return locator
	}
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p
}

// loadSource reads a module file for the require registry and converts it
// to CommonJS. JSON files are handed over unchanged.
func (e *Engine) loadSource(path string) ([]byte, error) {
	name := filepath.FromSlash(path)
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, require.ModuleFileDoesNotExistError
	}

	source, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return source, nil
	}
	return transformer.ToCommonJS(source, name, e.opts.JSX)
}

// importFunc returns the loader bound to every snippet. It resolves the
// locator through require and returns a promise of the module namespace.
func (e *Engine) importFunc(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		namespace, err := e.requireModule(vm, call.Argument(0).String())
		if err != nil {
			reject(errorValue(vm, err))
		} else {
			resolve(namespace)
		}
		return vm.ToValue(promise)
	}
}

func (e *Engine) requireModule(vm *goja.Runtime, locator string) (goja.Value, error) {
	requireFn, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return nil, errors.New("require is not available")
	}

	exports, err := requireFn(goja.Undefined(), vm.ToValue(ModulePath(locator)))
	if err != nil {
		return nil, fmt.Errorf("load module %s: %w", locator, err)
	}
	return namespace(vm, exports), nil
}

// namespace shapes CommonJS exports like an ES module namespace. Modules
// compiled from ES syntax are returned as they are; anything else gets its
// exports as the default binding next to its own properties.
func namespace(vm *goja.Runtime, exports goja.Value) goja.Value {
	if isNullish(exports) {
		ns := vm.NewObject()
		_ = ns.Set("default", exports)
		return ns
	}

	obj := exports.ToObject(vm)
	if marker := obj.Get("__esModule"); marker != nil && marker.ToBoolean() {
		return obj
	}

	ns := vm.NewObject()
	_ = ns.Set("default", exports)
	for _, key := range obj.Keys() {
		_ = ns.Set(key, obj.Get(key))
	}
	return ns
}
