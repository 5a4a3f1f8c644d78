package wasm

import (
	"fmt"
)

// CompilationError occurs when host script compilation fails
type CompilationError struct {
	ScriptName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm script '%s': %v", e.ScriptName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when script instantiation fails
type InstantiationError struct {
	ScriptName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate script '%s' (instance: %s): %v",
		e.ScriptName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ScriptNotFoundError occurs when a script is not in cache
type ScriptNotFoundError struct {
	ScriptName string
}

func (e *ScriptNotFoundError) Error() string {
	return fmt.Sprintf("script '%s' not found in cache", e.ScriptName)
}

// FunctionNotFoundError occurs when an exported function is missing
type FunctionNotFoundError struct {
	ScriptName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in script '%s'",
		e.FunctionName, e.ScriptName)
}

// UnknownImportError occurs when a script imports a bridge function that
// does not exist
type UnknownImportError struct {
	ScriptName   string
	FunctionName string
}

func (e *UnknownImportError) Error() string {
	return fmt.Sprintf("script '%s' imports unknown bridge function '%s'",
		e.ScriptName, e.FunctionName)
}

// MissingMemoryError occurs when a script does not export its linear memory
type MissingMemoryError struct {
	ScriptName string
}

func (e *MissingMemoryError) Error() string {
	return fmt.Sprintf("script '%s' does not export memory", e.ScriptName)
}

// InstanceLimitError occurs when the configured instance limit is reached
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit of %d reached", e.Limit)
}

// MemoryAccessError occurs when memory operations fail
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// HostFunctionError occurs when host function execution fails
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}
