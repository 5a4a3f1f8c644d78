package module

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/woxQAQ/pnbridge/internal/config"
	"github.com/woxQAQ/pnbridge/internal/registry"
	"go.uber.org/zap"
)

// Manager manages module lifecycle: manifest discovery, allowlist filtering,
// initialization and export registration.
type Manager struct {
	cfg       *config.BridgeConfig
	loader    *Loader
	registry  *Registry
	functions *registry.Registry
	logger    *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new module manager that registers exports into
// functions.
func NewManager(
	cfg *config.BridgeConfig,
	functions *registry.Registry,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:       cfg,
		loader:    NewLoader(logger),
		registry:  NewRegistry(logger),
		functions: functions,
		logger:    logger.With(zap.String("component", "module-manager")),
	}
}

// LoadAll initializes the given modules and registers their exports.
//
// A module is skipped when the configured allowlist does not name it or when
// its manifest marks it disabled. Failures of individual modules are logged
// and do not stop the others; the first failure is returned.
func (m *Manager) LoadAll(ctx context.Context, host registry.Host, modules ...Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("modules already loaded")
	}

	m.logger.Info("Loading modules",
		zap.Strings("paths", m.cfg.ModulePaths),
		zap.Int("candidates", len(modules)),
	)

	manifests, err := m.loader.DiscoverManifests(m.cfg.ModulePaths)
	if err != nil {
		return err
	}

	var firstErr error
	for _, mod := range modules {
		if err := m.load(ctx, host, mod, manifests[mod.Name()]); err != nil {
			m.logger.Error("Failed to load module",
				zap.String("name", mod.Name()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.loaded = true

	m.logger.Info("Modules loaded",
		zap.Int("count", m.registry.Count()),
		zap.Int("functions", m.functions.Count()),
	)

	return firstErr
}

func (m *Manager) load(ctx context.Context, host registry.Host, mod Module, manifest *Manifest) error {
	name := mod.Name()

	if !m.allowed(name) {
		m.logger.Debug("Module not in allowlist, skipping", zap.String("name", name))
		return nil
	}

	if manifest != nil && manifest.Disabled {
		m.logger.Info("Module disabled by manifest", zap.String("name", name))
		return nil
	}

	if _, exists := m.registry.Get(name); exists {
		return &ModuleAlreadyRegisteredError{ModuleName: name}
	}

	handlers, err := selectExports(mod, manifest)
	if err != nil {
		return err
	}

	// A module with a conflicting export is never initialized.
	for _, fn := range sortedNames(handlers) {
		if owner, exists := m.registry.Owner(fn); exists {
			return &ExportConflictError{
				FunctionName: fn,
				Existing:     owner.Name(),
				Incoming:     name,
			}
		}
	}

	if err := mod.Init(ctx, host); err != nil {
		return &ModuleInitError{ModuleName: name, Err: err}
	}

	loaded := &Loaded{
		Module:    mod,
		Manifest:  manifest,
		Functions: sortedNames(handlers),
		LoadedAt:  time.Now(),
	}
	if err := m.registry.Register(loaded); err != nil {
		return err
	}

	for _, fn := range loaded.Functions {
		m.functions.Register(fn, handlers[fn])
	}

	return nil
}

func (m *Manager) allowed(name string) bool {
	if len(m.cfg.Modules) == 0 {
		return true
	}
	for _, allowed := range m.cfg.Modules {
		if allowed == name {
			return true
		}
	}
	return false
}

// GetModule retrieves a loaded module by name.
func (m *Manager) GetModule(name string) (*Loaded, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.registry.Get(name)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: name}
	}

	return l, nil
}

// FindModuleForFunction finds the module that exports a function.
func (m *Manager) FindModuleForFunction(function string) (*Loaded, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.registry.Owner(function)
	if !ok {
		return nil, fmt.Errorf("no module exports function '%s'", function)
	}

	return l, nil
}

// Unload removes a module and its exports from the function registry.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.registry.Get(name)
	if !ok {
		return &ModuleNotFoundError{ModuleName: name}
	}

	for _, fn := range l.Functions {
		m.functions.Unregister(fn)
	}
	m.registry.Unregister(name)

	return nil
}

// Modules returns all loaded modules sorted by name.
func (m *Manager) Modules() []*Loaded {
	return m.registry.List()
}

// Registry returns the module registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether modules have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
