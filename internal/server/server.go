// Package server wires the call bridge, the module system and the Wasm host
// runtime into one process.
package server

import (
	"context"
	"fmt"
	"os"

	"github.com/woxQAQ/pnbridge/internal/bridge"
	"github.com/woxQAQ/pnbridge/internal/config"
	"github.com/woxQAQ/pnbridge/internal/module"
	"github.com/woxQAQ/pnbridge/internal/registry"
	"github.com/woxQAQ/pnbridge/internal/wasm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Server struct {
	cfg    *config.BridgeConfig
	logger *zap.Logger

	functions   *registry.Registry
	bridge      *bridge.Bridge
	modules     *module.Manager
	wasmRuntime *wasm.Runtime
	loader      *wasm.ScriptLoader
	instances   *wasm.InstanceManager
}

func NewServer(ctx context.Context, cfg *config.BridgeConfig, logger *zap.Logger) (*Server, error) {
	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
		MaxInstances: cfg.Wasm.MaxInstances,
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	functions := registry.NewRegistry(logger)
	b := bridge.New(functions, &bridge.Config{HostCallTimeout: cfg.Bridge.HostCallTimeout}, logger)
	hostFuncs := wasm.NewHostFunctions(b, logger)

	logger.Info("Bridge server initialized",
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
		zap.Duration("host_call_timeout", cfg.Bridge.HostCallTimeout),
	)

	return &Server{
		cfg:         cfg,
		logger:      logger,
		functions:   functions,
		bridge:      b,
		modules:     module.NewManager(cfg, functions, logger),
		wasmRuntime: wasmRuntime,
		loader:      wasm.NewScriptLoader(wasmRuntime, logger),
		instances:   wasm.NewInstanceManager(wasmRuntime, hostFuncs, logger),
	}, nil
}

// LoadModules initializes the compiled-in modules and registers their
// exports. Handlers receive the bridge as their host.
func (s *Server) LoadModules(ctx context.Context, modules ...module.Module) error {
	return s.modules.LoadAll(ctx, s.bridge, modules...)
}

// RunHostScript compiles the Wasm host script at path, instantiates it and
// runs its entry point until it exits or ctx ends. The bridge is detached from
// the script afterwards, so scripts may run one after another.
func (s *Server) RunHostScript(ctx context.Context, path string, args ...string) error {
	script, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return err
	}

	instance, err := s.instances.Instantiate(ctx, &wasm.InstanceConfig{
		ScriptName: script.Name,
		Args:       args,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		// The script's regions die with its instance.
		s.bridge.Detach()
		if err := instance.Close(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to close host script instance", zap.Error(err))
		}
	}()

	s.logger.Info("Running host script",
		zap.String("script", script.Name),
		zap.String("instance_id", instance.ID),
		zap.Strings("bridge_imports", script.Imports),
	)

	if err := instance.Run(ctx); err != nil {
		return fmt.Errorf("host script %s: %w", script.Name, err)
	}
	return nil
}

// Bridge returns the call bridge.
func (s *Server) Bridge() *bridge.Bridge {
	return s.bridge
}

// Functions returns the native function registry.
func (s *Server) Functions() *registry.Registry {
	return s.functions
}

// Modules returns the module manager.
func (s *Server) Modules() *module.Manager {
	return s.modules
}

// Close gracefully shuts down the server.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down bridge server")

	// Bridge workers must stop before guest memory is released.
	err := multierr.Append(
		s.bridge.Close(),
		s.wasmRuntime.Close(ctx),
	)
	if err != nil {
		s.logger.Error("Shutdown finished with errors", zap.Error(err))
		return err
	}

	s.logger.Info("Bridge server shutdown complete")
	return nil
}
