package sandbox

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

var (
	// ErrClosed is returned by an Engine after Close
	ErrClosed = errors.New("sandbox closed")

	// ErrTimeout is returned when a snippet does not settle in time. The
	// runtime is replaced afterwards, so earlier globals are gone.
	ErrTimeout = errors.New("snippet timed out")
)

// ScriptError is a fault raised by script code. Message is the thrown
// value's message and Stack its engine trace, when one was recorded.
type ScriptError struct {
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// scriptError converts an error returned by the runtime into a ScriptError.
// Errors that did not come from script code are returned unchanged.
func scriptError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return thrownError(exc.Value(), exc.String())
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &ScriptError{
			Message: fmt.Sprintf("execution interrupted: %v", interrupted.Value()),
			Stack:   interrupted.String(),
		}
	}

	return err
}

// thrownError builds a ScriptError from a value passed to throw or used to
// reject a promise
func thrownError(value goja.Value, fallbackStack string) *ScriptError {
	if isNullish(value) {
		return &ScriptError{Message: fmt.Sprintf("thrown value: %s", valueString(value)), Stack: fallbackStack}
	}

	se := &ScriptError{Message: value.String(), Stack: fallbackStack}
	obj, ok := value.(*goja.Object)
	if !ok {
		return se
	}

	if msg := obj.Get("message"); !isNullish(msg) && msg.String() != "" {
		se.Message = msg.String()
	}
	if stack := obj.Get("stack"); !isNullish(stack) && stack.String() != "" {
		se.Stack = stack.String()
	}
	return se
}

// errorValue converts a Go error into a value suitable for rejecting a promise
func errorValue(vm *goja.Runtime, err error) goja.Value {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Value()
	}
	return vm.NewGoError(err)
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func valueString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
