package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runtime manages the wazero runtime lifecycle.
// One Runtime hosts the pnbridge host module and every host script instance.
type Runtime struct {
	// wazero runtime
	runtime wazero.Runtime

	// Persistent compilation cache, nil when CacheDir is empty
	cache wazero.CompilationCache

	// Compiled script cache (key: script name/path -> value: compiled script)
	scripts sync.Map // map[string]*CompiledScript

	// Active script instances (for cleanup on shutdown)
	// key: instance ID -> value: *Instance
	instances sync.Map

	// Configuration
	config *RuntimeConfig

	// Logger
	logger *zap.Logger

	// Shutdown management
	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit for each script (in pages, 64KB each)
	// Default: 256 pages = 16MB
	MemoryPages uint32

	// Enable debug logging for Wasm execution
	DebugEnabled bool

	// Compilation cache directory (for persistent caching)
	// If empty, uses in-memory caching only
	CacheDir string

	// Maximum number of concurrent script instances
	MaxInstances int
}

// CompiledScript wraps a wazero.CompiledModule with metadata.
type CompiledScript struct {
	// wazero compiled module
	Module wazero.CompiledModule

	// Script metadata
	Name      string
	Source    string // File path or identifier
	SizeBytes int64

	// Bridge functions the script imports
	Imports []string

	// Compilation timestamp
	CompiledAt int64
}

// NewRuntime creates and initializes a new wazero runtime with WASI
// preview 1 available to scripts.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	var cache wazero.CompilationCache
	if config.CacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache '%s': %w", config.CacheDir, err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		err = multierr.Append(err, r.Close(ctx))
		if cache != nil {
			err = multierr.Append(err, cache.Close(ctx))
		}
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	runtime := &Runtime{
		runtime: r,
		cache:   cache,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	runtime.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MB
		DebugEnabled: false,
		CacheDir:     "",
		MaxInstances: 1,
	}
}

// Close gracefully shuts down the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		// Close all active instances first
		r.instances.Range(func(key, value any) bool {
			if inst, ok := value.(*Instance); ok {
				if closeErr := inst.module.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			r.instances.Delete(key)
			return true
		})

		// Close the runtime (closes compiled modules and the host module)
		err = r.runtime.Close(ctx)
		if r.cache != nil {
			err = multierr.Append(err, r.cache.Close(ctx))
		}

		close(r.closed)
		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledScript retrieves a compiled script from cache.
func (r *Runtime) GetCompiledScript(name string) (*CompiledScript, bool) {
	if val, ok := r.scripts.Load(name); ok {
		if script, ok := val.(*CompiledScript); ok {
			return script, true
		}
	}
	return nil, false
}

// StoreCompiledScript stores a compiled script in cache.
func (r *Runtime) StoreCompiledScript(script *CompiledScript) {
	r.scripts.Store(script.Name, script)
}

// GetInstance retrieves an active instance.
func (r *Runtime) GetInstance(instanceID string) (*Instance, bool) {
	val, ok := r.instances.Load(instanceID)
	if !ok {
		return nil, false
	}
	inst, ok := val.(*Instance)
	return inst, ok
}

// StoreInstance stores an active instance.
func (r *Runtime) StoreInstance(inst *Instance) {
	r.instances.Store(inst.ID, inst)
}

// DeleteInstance removes an instance from tracking.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// InstanceCount returns the number of tracked instances.
func (r *Runtime) InstanceCount() int {
	n := 0
	r.instances.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
