package module

import (
	"fmt"
)

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// ModuleInitError occurs when a module's Init fails.
type ModuleInitError struct {
	ModuleName string
	Err        error
}

func (e *ModuleInitError) Error() string {
	return fmt.Sprintf("failed to initialize module '%s': %v", e.ModuleName, e.Err)
}

func (e *ModuleInitError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not loaded.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found", e.ModuleName)
}

// ModuleAlreadyRegisteredError occurs when two modules share a name.
type ModuleAlreadyRegisteredError struct {
	ModuleName string
}

func (e *ModuleAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("module '%s' is already registered", e.ModuleName)
}

// ExportConflictError occurs when two modules export the same function name.
type ExportConflictError struct {
	FunctionName string
	Existing     string
	Incoming     string
}

func (e *ExportConflictError) Error() string {
	return fmt.Sprintf("function '%s' exported by both '%s' and '%s'",
		e.FunctionName, e.Existing, e.Incoming)
}
