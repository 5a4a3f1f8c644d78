package bridge

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is returned by every operation once the bridge has been closed.
	ErrClosed = errors.New("bridge is closed")

	// ErrDetached is returned to a host call whose host detached before answering.
	ErrDetached = errors.New("host detached before answering")

	// ErrNoPendingCall is returned when the host delivers a result nobody is waiting for.
	ErrNoPendingCall = errors.New("no host call is awaiting a result")
)

// NotInitializedError occurs when an entry point is used before Initialize.
type NotInitializedError struct {
	Operation string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("bridge not initialized: cannot %s", e.Operation)
}

// AlreadyInitializedError occurs when Initialize is called twice.
type AlreadyInitializedError struct{}

func (e *AlreadyInitializedError) Error() string {
	return "bridge already initialized"
}

// TimeoutError occurs when the host does not answer a call in time.
type TimeoutError struct {
	FunctionName string
	Duration     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("host call '%s' timed out after %v", e.FunctionName, e.Duration)
}

// HostCallError occurs when a host call could not be sent or its result could
// not be decoded.
type HostCallError struct {
	FunctionName string
	Err          error
}

func (e *HostCallError) Error() string {
	return fmt.Sprintf("host call '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostCallError) Unwrap() error {
	return e.Err
}
