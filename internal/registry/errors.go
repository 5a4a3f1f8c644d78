package registry

import (
	"fmt"
)

// UnknownFunctionError occurs when a dispatched name has no registered handler.
type UnknownFunctionError struct {
	FunctionName string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("function '%s' is not registered", e.FunctionName)
}

// HandlerError occurs when a handler returns an error.
type HandlerError struct {
	FunctionName string
	Err          error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// HandlerPanicError occurs when a handler panics. The panic is contained to
// the single call.
type HandlerPanicError struct {
	FunctionName string
	Value        any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("function '%s' panicked: %v", e.FunctionName, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *HandlerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
