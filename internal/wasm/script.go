package wasm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero/api"
	hostapi "github.com/woxQAQ/pnbridge/api/wasm"
	"go.uber.org/zap"
)

// ScriptLoader handles loading and compiling host scripts.
type ScriptLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewScriptLoader creates a new script loader.
func NewScriptLoader(runtime *Runtime, logger *zap.Logger) *ScriptLoader {
	return &ScriptLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ScriptSource represents a source for Wasm bytecode.
type ScriptSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes() ([]byte, error)

	// Name returns a name/identifier for this script.
	Name() string
}

// FileSource loads Wasm from a file.
type FileSource struct {
	Path string
}

// Bytes reads the Wasm file.
func (f *FileSource) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Name returns the file path as the script name.
func (f *FileSource) Name() string {
	return f.Path
}

// MemorySource loads Wasm from a byte slice.
type MemorySource struct {
	ScriptName string
	Data       []byte
}

// Bytes returns the Wasm bytecode.
func (m *MemorySource) Bytes() ([]byte, error) {
	return m.Data, nil
}

// Name returns the script name.
func (m *MemorySource) Name() string {
	return m.ScriptName
}

// Load compiles a script unless it is already cached.
//
// A script must export its linear memory as "memory", and may import from
// the pnbridge module only the functions the bridge provides.
func (l *ScriptLoader) Load(ctx context.Context, source ScriptSource) (*CompiledScript, error) {
	if cached, ok := l.runtime.GetCompiledScript(source.Name()); ok {
		l.logger.Debug("Script cache hit",
			zap.String("script", source.Name()),
		)
		return cached, nil
	}

	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", source.Name(), err)
	}

	l.logger.Info("Compiling Wasm script",
		zap.String("script", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	startTime := time.Now()

	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ScriptName: source.Name(),
			Err:        err,
		}
	}

	imports, err := bridgeImports(source.Name(), compiled.ImportedFunctions())
	if err == nil {
		if _, ok := compiled.ExportedMemories()["memory"]; !ok {
			err = &MissingMemoryError{ScriptName: source.Name()}
		}
	}
	if err != nil {
		if closeErr := compiled.Close(ctx); closeErr != nil {
			l.logger.Warn("Failed to release rejected script", zap.Error(closeErr))
		}
		return nil, err
	}

	script := &CompiledScript{
		Module:     compiled,
		Name:       source.Name(),
		Source:     source.Name(),
		SizeBytes:  int64(len(wasmBytes)),
		Imports:    imports,
		CompiledAt: time.Now().Unix(),
	}

	l.runtime.StoreCompiledScript(script)

	l.logger.Info("Script compiled successfully",
		zap.String("script", source.Name()),
		zap.Strings("bridge_imports", imports),
		zap.Duration("duration", time.Since(startTime)),
	)

	return script, nil
}

// LoadFile is a convenience function for loading from a file path.
func (l *ScriptLoader) LoadFile(ctx context.Context, path string) (*CompiledScript, error) {
	return l.Load(ctx, &FileSource{Path: path})
}

// LoadBytes loads from a byte slice.
func (l *ScriptLoader) LoadBytes(ctx context.Context, name string, data []byte) (*CompiledScript, error) {
	return l.Load(ctx, &MemorySource{ScriptName: name, Data: data})
}

func bridgeImports(script string, defs []api.FunctionDefinition) ([]string, error) {
	known := make(map[string]bool, len(hostapi.HostFunctionNames))
	for _, name := range hostapi.HostFunctionNames {
		known[name] = true
	}

	var imports []string
	for _, def := range defs {
		moduleName, name, _ := def.Import()
		if moduleName != hostapi.HostModuleName {
			continue
		}
		if !known[name] {
			return nil, &UnknownImportError{ScriptName: script, FunctionName: name}
		}
		imports = append(imports, name)
	}
	return imports, nil
}
