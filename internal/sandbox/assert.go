package sandbox

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/dop251/goja"
)

// AssertionErrorIdent is the parameter name of the assertion error class
const AssertionErrorIdent = "AssertionError"

const assertionErrorSource = `(class AssertionError extends Error {
  constructor(message) {
    super(message);
    this.name = 'AssertionError';
  }
})`

// primitive is one assertion function handed to every snippet
type primitive struct {
	name string
	fn   func(goja.FunctionCall) goja.Value
}

// assertions implements the assertion primitives for one runtime
type assertions struct {
	vm        *goja.Runtime
	errorCtor *goja.Object
	stringify goja.Callable
}

func newAssertions(vm *goja.Runtime) (*assertions, error) {
	ctor, err := vm.RunScript("accudoc:assert.js", assertionErrorSource)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", AssertionErrorIdent, err)
	}

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not a function")
	}

	return &assertions{vm: vm, errorCtor: ctor.ToObject(vm), stringify: stringify}, nil
}

// primitives returns the assertion functions in parameter order
func (a *assertions) primitives() []primitive {
	return []primitive{
		{"assert", a.assert},
		{"assertEqual", a.assertEqual},
		{"assertDeepEqual", a.assertDeepEqual},
		{"assertNotEqual", a.assertNotEqual},
		{"assertThrows", a.assertThrows},
		{"assertThrowsAsync", a.assertThrowsAsync},
		{"assertNullish", a.assertNullish},
		{"assertTruthy", a.assertTruthy},
		{"assertFalsy", a.assertFalsy},
		{"assertInstanceOf", a.assertInstanceOf},
		{"assertMatch", a.assertMatch},
		{"assertIncludes", a.assertIncludes},
	}
}

// newError constructs an AssertionError carrying msg
func (a *assertions) newError(msg string) *goja.Object {
	obj, err := a.vm.New(a.errorCtor, a.vm.ToValue(msg))
	if err != nil {
		panic(a.vm.NewGoError(err))
	}
	return obj
}

// fail throws an AssertionError. The caller's message wins over the default.
func (a *assertions) fail(message goja.Value, format string, args ...any) {
	if message != nil && message.ToBoolean() {
		panic(a.newError(message.String()))
	}
	panic(a.newError(fmt.Sprintf(format, args...)))
}

// json renders v the way JSON.stringify does, falling back to its string form
func (a *assertions) json(v goja.Value) string {
	if v == nil {
		v = goja.Undefined()
	}
	out, err := a.stringify(goja.Undefined(), v)
	if err != nil || out == nil {
		return v.String()
	}
	return out.String()
}

func (a *assertions) assert(call goja.FunctionCall) goja.Value {
	if !call.Argument(0).ToBoolean() {
		a.fail(call.Argument(1), "Assertion failed")
	}
	return goja.Undefined()
}

func (a *assertions) assertEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if !actual.StrictEquals(expected) {
		a.fail(call.Argument(2), "Expected %s, but got %s", a.json(expected), a.json(actual))
	}
	return goja.Undefined()
}

func (a *assertions) assertDeepEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if !deepEqual(a.vm, actual, expected) {
		a.fail(call.Argument(2), "Expected %s, but got %s", a.json(expected), a.json(actual))
	}
	return goja.Undefined()
}

func (a *assertions) assertNotEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if actual.StrictEquals(expected) {
		a.fail(call.Argument(2), "Expected values to not be equal, but both are %s", a.json(actual))
	}
	return goja.Undefined()
}

// throwsArgs reads the optional error type and message of assertThrows.
// A string in the error type position is taken as the message.
func (a *assertions) throwsArgs(call goja.FunctionCall) (*goja.Object, goja.Value) {
	second, third := call.Argument(1), call.Argument(2)
	if isNullish(second) {
		return nil, third
	}
	if _, ok := goja.AssertFunction(second); !ok {
		return nil, second
	}
	return second.ToObject(a.vm), third
}

func (a *assertions) callable(v goja.Value, name string) goja.Callable {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		panic(a.vm.NewTypeError("%s: expected a function, got %s", name, typeOf(v)))
	}
	return fn
}

// interrupted reports whether err is an interrupt and, if so, raises it
// again so it fires as soon as the calling primitive returns
func (a *assertions) interrupted(err error) bool {
	var ie *goja.InterruptedError
	if !errors.As(err, &ie) {
		return false
	}
	a.vm.Interrupt(ie.Value())
	return true
}

// checkThrown verifies a thrown value against the expected error type and
// returns the failure message, or "" when the value matches
func (a *assertions) checkThrown(thrown goja.Value, errorType *goja.Object, subject string) string {
	if errorType == nil || a.vm.InstanceOf(thrown, errorType) {
		return ""
	}
	return fmt.Sprintf("Expected %s to throw %s, but it threw %s",
		subject, valueString(errorType.Get("name")), constructorName(a.vm, thrown))
}

func (a *assertions) assertThrows(call goja.FunctionCall) goja.Value {
	fn := a.callable(call.Argument(0), "assertThrows")
	errorType, message := a.throwsArgs(call)

	_, err := fn(goja.Undefined())
	if err == nil {
		a.fail(message, "Expected function to throw, but it did not")
	}
	if a.interrupted(err) {
		return goja.Undefined()
	}
	if msg := a.checkThrown(errorValue(a.vm, err), errorType, "function"); msg != "" {
		a.fail(message, "%s", msg)
	}
	return goja.Undefined()
}

// assertThrowsAsync returns a promise that rejects with an AssertionError
// unless fn throws or its result rejects
func (a *assertions) assertThrowsAsync(call goja.FunctionCall) goja.Value {
	fn := a.callable(call.Argument(0), "assertThrowsAsync")
	errorType, message := a.throwsArgs(call)
	promise, resolve, reject := a.vm.NewPromise()

	failure := func(format string, args ...any) *goja.Object {
		if message != nil && message.ToBoolean() {
			return a.newError(message.String())
		}
		return a.newError(fmt.Sprintf(format, args...))
	}
	check := func(thrown goja.Value) {
		if msg := a.checkThrown(thrown, errorType, "async function"); msg != "" {
			reject(failure("%s", msg))
			return
		}
		resolve(goja.Undefined())
	}

	result, err := fn(goja.Undefined())
	if err != nil {
		if !a.interrupted(err) {
			check(errorValue(a.vm, err))
		}
		return a.vm.ToValue(promise)
	}

	then, ok := thenable(a.vm, result)
	if !ok {
		reject(failure("Expected async function to throw, but it did not"))
		return a.vm.ToValue(promise)
	}

	onFulfilled := a.vm.ToValue(func(goja.FunctionCall) goja.Value {
		reject(failure("Expected async function to throw, but it did not"))
		return goja.Undefined()
	})
	onRejected := a.vm.ToValue(func(c goja.FunctionCall) goja.Value {
		check(c.Argument(0))
		return goja.Undefined()
	})
	if _, err := then(result, onFulfilled, onRejected); err != nil {
		reject(errorValue(a.vm, err))
	}
	return a.vm.ToValue(promise)
}

func (a *assertions) assertNullish(call goja.FunctionCall) goja.Value {
	if v := call.Argument(0); !isNullish(v) {
		a.fail(call.Argument(1), "Expected null or undefined, but got %s", a.json(v))
	}
	return goja.Undefined()
}

func (a *assertions) assertTruthy(call goja.FunctionCall) goja.Value {
	if v := call.Argument(0); !v.ToBoolean() {
		a.fail(call.Argument(1), "Expected truthy value, but got %s", a.json(v))
	}
	return goja.Undefined()
}

func (a *assertions) assertFalsy(call goja.FunctionCall) goja.Value {
	if v := call.Argument(0); v.ToBoolean() {
		a.fail(call.Argument(1), "Expected falsy value, but got %s", a.json(v))
	}
	return goja.Undefined()
}

func (a *assertions) assertInstanceOf(call goja.FunctionCall) goja.Value {
	value, typ := call.Argument(0), call.Argument(1)
	a.callable(typ, "assertInstanceOf")
	ctor := typ.ToObject(a.vm)
	if !a.vm.InstanceOf(value, ctor) {
		a.fail(call.Argument(2), "Expected instance of %s, but got %s",
			valueString(ctor.Get("name")), constructorName(a.vm, value))
	}
	return goja.Undefined()
}

func (a *assertions) assertMatch(call goja.FunctionCall) goja.Value {
	value, pattern := call.Argument(0), call.Argument(1)
	if isNullish(pattern) {
		panic(a.vm.NewTypeError("assertMatch: expected a RegExp, got %s", typeOf(pattern)))
	}
	test := a.callable(pattern.ToObject(a.vm).Get("test"), "assertMatch")
	matched, err := test(pattern, value)
	if err != nil {
		if a.interrupted(err) {
			return goja.Undefined()
		}
		panic(errorValue(a.vm, err))
	}
	if !matched.ToBoolean() {
		a.fail(call.Argument(2), "Expected %q to match pattern %s, but it did not", value.String(), pattern.String())
	}
	return goja.Undefined()
}

func (a *assertions) assertIncludes(call goja.FunctionCall) goja.Value {
	array, value := call.Argument(0), call.Argument(1)
	if isNullish(array) {
		panic(a.vm.NewTypeError("assertIncludes: expected an array, got %s", typeOf(array)))
	}
	includes := a.callable(array.ToObject(a.vm).Get("includes"), "assertIncludes")
	found, err := includes(array, value)
	if err != nil {
		if a.interrupted(err) {
			return goja.Undefined()
		}
		panic(errorValue(a.vm, err))
	}
	if !found.ToBoolean() {
		a.fail(call.Argument(2), "Expected array to include %s, but it did not", a.json(value))
	}
	return goja.Undefined()
}

// deepEqual compares values structurally: arrays element by element, plain
// objects by their own enumerable keys, everything else with ===
func deepEqual(vm *goja.Runtime, a, b goja.Value) bool {
	if a == nil {
		a = goja.Undefined()
	}
	if b == nil {
		b = goja.Undefined()
	}
	if a.StrictEquals(b) {
		return true
	}
	if isNullish(a) || isNullish(b) {
		return false
	}

	ao, aok := a.(*goja.Object)
	bo, bok := b.(*goja.Object)
	if !aok || !bok {
		return false
	}
	if isFunction(a) || isFunction(b) {
		return false
	}

	aArray, bArray := ao.ClassName() == "Array", bo.ClassName() == "Array"
	if aArray != bArray {
		return false
	}
	if aArray {
		n := ao.Get("length").ToInteger()
		if n != bo.Get("length").ToInteger() {
			return false
		}
		for i := int64(0); i < n; i++ {
			key := strconv.FormatInt(i, 10)
			if !deepEqual(vm, ao.Get(key), bo.Get(key)) {
				return false
			}
		}
		return true
	}

	keysA, keysB := ao.Keys(), bo.Keys()
	if len(keysA) != len(keysB) {
		return false
	}
	inB := make(map[string]bool, len(keysB))
	for _, k := range keysB {
		inB[k] = true
	}
	for _, k := range keysA {
		if !inB[k] || !deepEqual(vm, ao.Get(k), bo.Get(k)) {
			return false
		}
	}
	return true
}

func isFunction(v goja.Value) bool {
	_, ok := goja.AssertFunction(v)
	return ok
}

// typeOf mirrors the typeof operator
func typeOf(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "object"
	case isFunction(v):
		return "function"
	}
	switch v.(type) {
	case *goja.Object:
		return "object"
	case *goja.Symbol:
		return "symbol"
	}
	switch v.ExportType().Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int64, reflect.Float64:
		return "number"
	}
	return "bigint"
}

// constructorName returns v.constructor.name, or typeof v when there is none
func constructorName(vm *goja.Runtime, v goja.Value) string {
	if isNullish(v) {
		return typeOf(v)
	}
	if ctor := v.ToObject(vm).Get("constructor"); !isNullish(ctor) {
		if name := ctor.ToObject(vm).Get("name"); !isNullish(name) && name.String() != "" {
			return name.String()
		}
	}
	return typeOf(v)
}

// thenable returns the then method of v when v is promise-like
func thenable(vm *goja.Runtime, v goja.Value) (goja.Callable, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	return goja.AssertFunction(obj.Get("then"))
}
