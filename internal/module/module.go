package module

import (
	"context"
	"sort"
	"time"

	"github.com/woxQAQ/pnbridge/internal/registry"
)

// Module is a unit of native functions compiled into the bridge.
//
// Modules are handed to the Manager at startup; the manager calls Init once
// and then registers every export with the function registry.
type Module interface {
	// Name identifies the module and selects its manifest directory.
	Name() string

	// Init prepares module state. host is the bridge, usable once the host
	// has initialized it.
	Init(ctx context.Context, host registry.Host) error

	// Exports maps exported function names to handlers.
	Exports() map[string]registry.Handler
}

// Loaded represents a module that passed manifest checks and was initialized.
type Loaded struct {
	// Module is the compiled-in implementation
	Module Module

	// Manifest is the optional on-disk manifest (nil when none was found)
	Manifest *Manifest

	// Functions are the export names registered for this module
	Functions []string

	// LoadedAt is the timestamp when the module was loaded
	LoadedAt time.Time
}

// Name returns the module name.
func (l *Loaded) Name() string {
	return l.Module.Name()
}

// Version returns the manifest version, or "" without a manifest.
func (l *Loaded) Version() string {
	if l.Manifest == nil {
		return ""
	}
	return l.Manifest.Version
}

// Exports checks if the module registered a function.
func (l *Loaded) Exports(function string) bool {
	for _, f := range l.Functions {
		if f == function {
			return true
		}
	}
	return false
}

// selectExports returns the handlers to register, limited to the manifest's
// export list when it has one.
func selectExports(m Module, manifest *Manifest) (map[string]registry.Handler, error) {
	all := m.Exports()
	if manifest == nil || len(manifest.Exports) == 0 {
		return all, nil
	}

	selected := make(map[string]registry.Handler, len(manifest.Exports))
	for _, name := range manifest.Exports {
		handler, ok := all[name]
		if !ok {
			return nil, &ManifestValidationError{
				Path:    manifest.Path(),
				Field:   "exports",
				Message: "module " + m.Name() + " does not export " + name,
			}
		}
		selected[name] = handler
	}
	return selected, nil
}

func sortedNames(handlers map[string]registry.Handler) []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
