//go:build !wasm

package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// HostFunctions defines the Go side of the pnbridge host module. Pointers
// are offsets into the calling module's linear memory.
type HostFunctions interface {
	// Initialize hands the bridge the result and signal regions.
	Initialize(ctx context.Context, mod api.Module, resultPtr, signalPtr uint32) float64

	// CallFunction queues a native call. It returns before the call runs.
	CallFunction(ctx context.Context, mod api.Module, namePtr, argsPtr uint32) float64

	// ReceiveResult delivers the answer to the pending host call.
	ReceiveResult(ctx context.Context, mod api.Module, resultPtr uint32) float64

	// LogMessage writes a guest message to the host logger.
	LogMessage(ctx context.Context, mod api.Module, level, ptr, length uint32)
}
