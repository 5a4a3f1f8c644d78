//go:build wasm

package wasm

import (
	"runtime"
	"unsafe"

	"github.com/woxQAQ/pnbridge/internal/codec"
)

// Guest-side bindings for host scripts written in Go and built with
// GOOS=wasip1 GOARCH=wasm.
//
// NOTE: uint32 is used for pointers because WebAssembly uses a 32-bit linear
// memory model, so every address a guest can hand out fits.

//go:wasmimport pnbridge initialize
func initialize(resultPtr, signalPtr uint32) float64

//go:wasmimport pnbridge call_function
func callFunction(namePtr, argsPtr uint32) float64

//go:wasmimport pnbridge receive_result
func receiveResult(resultPtr uint32) float64

//go:wasmimport pnbridge log_message
func logMessage(level, ptr, length uint32)

// Region is a buffer-sized block of guest memory.
type Region [codec.Capacity]byte

func addr(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}

// Initialize registers result and signal with the bridge.
// Both must stay alive for the lifetime of the script.
func Initialize(result *Region, signal *byte) bool {
	return initialize(addr(unsafe.Pointer(result)), addr(unsafe.Pointer(signal))) == Success
}

// CallFunction queues a call to the native function name with the arguments
// encoded in args.
func CallFunction(name string, args *Region) bool {
	cname := append([]byte(name), 0)
	ok := callFunction(addr(unsafe.Pointer(&cname[0])), addr(unsafe.Pointer(args))) == Success
	runtime.KeepAlive(cname)
	return ok
}

// ReceiveResult answers the pending host call with the value encoded in
// result.
func ReceiveResult(result *Region) bool {
	return receiveResult(addr(unsafe.Pointer(result))) == Success
}

// Log writes msg to the host logger at level.
func Log(level uint32, msg string) {
	if msg == "" {
		return
	}
	b := []byte(msg)
	logMessage(level, addr(unsafe.Pointer(&b[0])), uint32(len(b)))
	runtime.KeepAlive(b)
}
