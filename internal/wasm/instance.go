package wasm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	hostapi "github.com/woxQAQ/pnbridge/api/wasm"
	"go.uber.org/zap"
)

// EntryPoint is the function Run calls, the WASI command entry.
const EntryPoint = "_start"

// InstanceManager creates and manages script instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs hostapi.HostFunctions

	hostOnce sync.Once
	hostErr  error
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs hostapi.HostFunctions, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Script name to instantiate.
	ScriptName string

	// Instance ID (if empty, one is generated).
	InstanceID string

	// Arguments passed to the script through WASI.
	Args []string

	// Standard streams; nil discards.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Instance represents an instantiated host script.
type Instance struct {
	// wazero module instance.
	module api.Module

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	runtime *Runtime
}

// Instantiate creates a new instance from a compiled script. The pnbridge
// host module is instantiated once, before the first script.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledScript(config.ScriptName)
	if !ok {
		return nil, &ScriptNotFoundError{ScriptName: config.ScriptName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	if err := m.ensureHostModule(ctx); err != nil {
		return nil, err
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("Instantiating Wasm script",
		zap.String("script", config.ScriptName),
		zap.String("instance_id", instanceID),
	)

	// Start functions are not run here; Run calls the entry point so the
	// caller controls when the script starts polling.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions().
		WithArgs(append([]string{config.ScriptName}, config.Args...)...).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep()
	if config.Stdin != nil {
		moduleConfig = moduleConfig.WithStdin(config.Stdin)
	}
	if config.Stdout != nil {
		moduleConfig = moduleConfig.WithStdout(config.Stdout)
	}
	if config.Stderr != nil {
		moduleConfig = moduleConfig.WithStderr(config.Stderr)
	}

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ScriptName: config.ScriptName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ScriptName,
		CreatedAt: time.Now().Unix(),
		runtime:   m.runtime,
	}

	m.runtime.StoreInstance(instance)

	m.logger.Info("Script instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(module.ExportedFunctionDefinitions())),
	)

	return instance, nil
}

// ensureHostModule instantiates the pnbridge host module in the runtime.
func (m *InstanceManager) ensureHostModule(ctx context.Context) error {
	m.hostOnce.Do(func() {
		builder := m.runtime.runtime.NewHostModuleBuilder(hostapi.HostModuleName)
		m.exportHostFunctions(builder)

		if _, err := builder.Instantiate(ctx); err != nil {
			m.hostErr = fmt.Errorf("failed to instantiate host module: %w", err)
			return
		}

		m.logger.Debug("Host module instantiated",
			zap.String("module", hostapi.HostModuleName),
			zap.Strings("functions", hostapi.HostFunctionNames),
		)
	})
	return m.hostErr
}

// exportHostFunctions registers Go functions for import by scripts.
func (m *InstanceManager) exportHostFunctions(builder wazero.HostModuleBuilder) {
	impl := m.hostFuncs

	builder.NewFunctionBuilder().
		WithFunc(impl.Initialize).
		WithParameterNames("result_ptr", "signal_ptr").
		Export(hostapi.FuncInitialize)

	builder.NewFunctionBuilder().
		WithFunc(impl.CallFunction).
		WithParameterNames("name_ptr", "args_ptr").
		Export(hostapi.FuncCallFunction)

	builder.NewFunctionBuilder().
		WithFunc(impl.ReceiveResult).
		WithParameterNames("result_ptr").
		Export(hostapi.FuncReceiveResult)

	builder.NewFunctionBuilder().
		WithFunc(impl.LogMessage).
		WithParameterNames("level", "ptr", "length").
		Export(hostapi.FuncLogMessage)
}

// Call invokes an exported function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, &FunctionNotFoundError{ScriptName: i.Name, FunctionName: name}
	}
	return fn.Call(ctx, params...)
}

// Run calls the script's entry point and returns when it exits. A WASI exit
// with code 0 is a normal return.
func (i *Instance) Run(ctx context.Context) error {
	_, err := i.Call(ctx, EntryPoint)

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	return err
}

// Memory returns the instance's linear memory helper.
func (i *Instance) Memory() *Memory {
	return NewMemory(i.module)
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

var instanceSeq atomic.Uint64

// generateInstanceID generates a unique instance ID.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
