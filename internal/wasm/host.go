package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	hostapi "github.com/woxQAQ/pnbridge/api/wasm"
	"github.com/woxQAQ/pnbridge/internal/codec"
	"github.com/woxQAQ/pnbridge/internal/shm"
	"go.uber.org/zap"
)

// Bridge is the part of the call bridge the host functions drive.
type Bridge interface {
	Initialize(result, signal shm.Region) error
	InvokeNativeFunction(name string, args shm.Region) error
	DeliverHostCallResult(result shm.Region) error
}

// HostFunctionsImpl implements the pnbridge host module for scripts.
type HostFunctionsImpl struct {
	bridge Bridge
	logger *zap.Logger
}

var _ hostapi.HostFunctions = (*HostFunctionsImpl)(nil)

// NewHostFunctions creates host functions that forward to bridge.
func NewHostFunctions(bridge Bridge, logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		bridge: bridge,
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// Initialize is called by a script to hand over its result and signal
// regions. Signature: initialize(result_ptr, signal_ptr) f64
func (h *HostFunctionsImpl) Initialize(ctx context.Context, mod api.Module, resultPtr, signalPtr uint32) float64 {
	mem := NewMemory(mod)

	result, err := mem.Region("result", resultPtr, codec.Capacity)
	if err != nil {
		return h.fail(hostapi.FuncInitialize, err)
	}
	signal, err := mem.Region("signal", signalPtr, shm.SignalSize)
	if err != nil {
		return h.fail(hostapi.FuncInitialize, err)
	}

	if err := h.bridge.Initialize(result, signal); err != nil {
		return h.fail(hostapi.FuncInitialize, err)
	}

	h.logger.Debug("Script initialized bridge",
		zap.String("module", mod.Name()),
		zap.Stringer("result", result),
		zap.Stringer("signal", signal),
	)
	return hostapi.Success
}

// CallFunction is called by a script to queue a native call.
// Signature: call_function(name_ptr, args_ptr) f64
func (h *HostFunctionsImpl) CallFunction(ctx context.Context, mod api.Module, namePtr, argsPtr uint32) float64 {
	mem := NewMemory(mod)

	name, ok := mem.ReadString(namePtr, hostapi.MaxFunctionNameLength)
	if !ok {
		return h.fail(hostapi.FuncCallFunction, &MemoryAccessError{
			Operation: "read function name",
			Address:   namePtr,
			Length:    hostapi.MaxFunctionNameLength,
			Err:       fmt.Errorf("no NUL-terminated name"),
		})
	}

	args, err := mem.Region("args", argsPtr, codec.Capacity)
	if err != nil {
		return h.fail(hostapi.FuncCallFunction, err)
	}

	if err := h.bridge.InvokeNativeFunction(name, args); err != nil {
		return h.fail(hostapi.FuncCallFunction, err)
	}
	return hostapi.Success
}

// ReceiveResult is called by a script to answer the pending host call.
// Signature: receive_result(result_ptr) f64
func (h *HostFunctionsImpl) ReceiveResult(ctx context.Context, mod api.Module, resultPtr uint32) float64 {
	result, err := NewMemory(mod).Region("host result", resultPtr, codec.Capacity)
	if err != nil {
		return h.fail(hostapi.FuncReceiveResult, err)
	}

	if err := h.bridge.DeliverHostCallResult(result); err != nil {
		return h.fail(hostapi.FuncReceiveResult, err)
	}
	return hostapi.Success
}

// LogMessage is called by scripts to log messages.
// Signature: log_message(level, ptr, length)
func (h *HostFunctionsImpl) LogMessage(ctx context.Context, mod api.Module, level, ptr, length uint32) {
	msg, ok := NewMemory(mod).ReadBytes(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	scriptLogger := h.logger.With(zap.String("module", mod.Name()))
	switch level {
	case hostapi.LogDebug:
		scriptLogger.Debug(string(msg))
	case hostapi.LogInfo:
		scriptLogger.Info(string(msg))
	case hostapi.LogWarn:
		scriptLogger.Warn(string(msg))
	case hostapi.LogError:
		scriptLogger.Error(string(msg))
	default:
		scriptLogger.Info(string(msg))
	}
}

func (h *HostFunctionsImpl) fail(function string, err error) float64 {
	h.logger.Error("Host function failed",
		zap.Error(&HostFunctionError{FunctionName: function, Err: err}),
	)
	return hostapi.Failure
}
