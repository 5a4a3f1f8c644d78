// Package wasm describes the host module a wasm host script imports to talk
// to the bridge.
//
// A host script owns two buffers in its linear memory: a result region of
// codec.Capacity bytes and a one-byte signal region. It hands both to
// initialize, then polls the signal byte:
//
//	1  a host call is waiting: the result region holds String(name) followed
//	   by Array(args); run it, encode the answer into a region and pass it to
//	   receive_result
//	2  a native call finished: the result region holds its value
//	3  a native call failed: the result region holds a String message
//
// The script clears the signal byte before acting on it.
package wasm

// HostModuleName is the import module name of the bridge host functions.
const HostModuleName = "pnbridge"

// Host function names exported under HostModuleName.
const (
	// initialize(result_ptr, signal_ptr i32) f64
	FuncInitialize = "initialize"

	// call_function(name_ptr, args_ptr i32) f64, name is NUL-terminated
	FuncCallFunction = "call_function"

	// receive_result(result_ptr i32) f64
	FuncReceiveResult = "receive_result"

	// log_message(level, ptr, length i32)
	FuncLogMessage = "log_message"
)

// HostFunctionNames lists every function exported under HostModuleName.
var HostFunctionNames = []string{
	FuncInitialize,
	FuncCallFunction,
	FuncReceiveResult,
	FuncLogMessage,
}

// Return values of the f64 host functions.
const (
	Success float64 = 1.0
	Failure float64 = 0.0
)

// Log levels accepted by log_message.
const (
	LogDebug uint32 = iota
	LogInfo
	LogWarn
	LogError
)

// MaxFunctionNameLength bounds how far call_function scans for the NUL
// terminator of a function name.
const MaxFunctionNameLength = 1024
