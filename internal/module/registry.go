package module

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry tracks loaded modules and which module owns each export.
type Registry struct {
	sync.RWMutex
	modules    map[string]*Loaded // name -> module
	byFunction map[string]*Loaded // export -> module
	logger     *zap.Logger
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		modules:    make(map[string]*Loaded),
		byFunction: make(map[string]*Loaded),
		logger:     logger.With(zap.String("component", "module-registry")),
	}
}

// Register adds a loaded module. It fails without side effects when the name
// is taken or any export is already owned by another module.
func (r *Registry) Register(l *Loaded) error {
	r.Lock()
	defer r.Unlock()

	name := l.Name()

	if _, exists := r.modules[name]; exists {
		return &ModuleAlreadyRegisteredError{ModuleName: name}
	}

	for _, fn := range l.Functions {
		if owner, exists := r.byFunction[fn]; exists {
			return &ExportConflictError{
				FunctionName: fn,
				Existing:     owner.Name(),
				Incoming:     name,
			}
		}
	}

	r.modules[name] = l
	for _, fn := range l.Functions {
		r.byFunction[fn] = l
	}

	r.logger.Info("Module registered",
		zap.String("name", name),
		zap.Strings("exports", l.Functions),
	)

	return nil
}

// Get retrieves a module by name.
func (r *Registry) Get(name string) (*Loaded, bool) {
	r.RLock()
	defer r.RUnlock()

	l, ok := r.modules[name]
	return l, ok
}

// Owner finds the module exporting a function.
func (r *Registry) Owner(function string) (*Loaded, bool) {
	r.RLock()
	defer r.RUnlock()

	l, ok := r.byFunction[function]
	return l, ok
}

// List returns all registered modules sorted by name.
func (r *Registry) List() []*Loaded {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Loaded, 0, len(r.modules))
	for _, l := range r.modules {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Unregister removes a module and its export index entries.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	l, ok := r.modules[name]
	if !ok {
		return
	}

	for _, fn := range l.Functions {
		delete(r.byFunction, fn)
	}
	delete(r.modules, name)

	r.logger.Info("Module unregistered", zap.String("name", name))
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.modules)
}
