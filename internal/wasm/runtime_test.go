package wasm

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewRuntime(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if runtime == nil {
		t.Fatal("Runtime is nil")
	}

	// Cleanup
	if err := runtime.Close(context.Background()); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntimeCloseIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Close multiple times should not error.
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestDefaultRuntimeConfig(t *testing.T) {
	config := DefaultRuntimeConfig()

	if config.MemoryPages != 256 {
		t.Errorf("Default memory pages = %d, want 256", config.MemoryPages)
	}

	if config.DebugEnabled {
		t.Error("Debug should be disabled by default")
	}

	if config.MaxInstances != 1 {
		t.Errorf("Default max instances = %d, want 1", config.MaxInstances)
	}
}

func TestRuntimeConfiguration(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := &RuntimeConfig{
		MemoryPages:  128,
		DebugEnabled: true,
		MaxInstances: 50,
	}

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close(ctx)

	if runtime.config.MemoryPages != 128 {
		t.Errorf("Memory pages not set correctly")
	}
}

func TestRuntimeCompilationCacheDir(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := DefaultRuntimeConfig()
	config.CacheDir = t.TempDir()

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime with cache dir: %v", err)
	}

	if runtime.cache == nil {
		t.Error("Compilation cache should be set when CacheDir is configured")
	}

	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntimeContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Cancel context.
	cancel()

	// Close with cancelled context.
	err = runtime.Close(ctx)
	// wazero should handle cancelled context gracefully
	if err != nil && err != context.Canceled {
		t.Errorf("Unexpected error when closing with cancelled context: %v", err)
	}
}

func TestRuntimeScriptCache(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	script := &CompiledScript{
		Name:       "test-script",
		Source:     "test",
		SizeBytes:  1024,
		CompiledAt: time.Now().Unix(),
	}

	runtime.StoreCompiledScript(script)

	retrieved, ok := runtime.GetCompiledScript("test-script")
	if !ok {
		t.Fatal("Failed to retrieve script from cache")
	}

	if retrieved.Name != "test-script" {
		t.Errorf("Retrieved wrong script: %s", retrieved.Name)
	}
}

func TestRuntimeInstanceTracking(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	instance := &Instance{ID: "test-instance", Name: "script", runtime: runtime}
	runtime.StoreInstance(instance)

	retrieved, ok := runtime.GetInstance("test-instance")
	if !ok {
		t.Fatal("Failed to retrieve instance from tracking")
	}

	if retrieved != instance {
		t.Errorf("Retrieved wrong instance")
	}

	if runtime.InstanceCount() != 1 {
		t.Errorf("InstanceCount() = %d, want 1", runtime.InstanceCount())
	}

	runtime.DeleteInstance("test-instance")

	if _, ok := runtime.GetInstance("test-instance"); ok {
		t.Error("Instance should have been deleted")
	}
}

func TestRuntimeIsClosed(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	if runtime.IsClosed() {
		t.Error("Runtime should not be closed initially")
	}

	runtime.Close(ctx)

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after Close()")
	}
}

func TestCompilationError(t *testing.T) {
	err := &CompilationError{
		ScriptName: "test",
		Err:        &testError{},
	}

	expected := "failed to compile Wasm script 'test': test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestInstantiationError(t *testing.T) {
	err := &InstantiationError{
		ScriptName: "test",
		InstanceID: "inst-1",
		Err:        &testError{},
	}

	expected := "failed to instantiate script 'test' (instance: inst-1): test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestScriptNotFoundError(t *testing.T) {
	err := &ScriptNotFoundError{ScriptName: "test"}

	expected := "script 'test' not found in cache"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestFunctionNotFoundError(t *testing.T) {
	err := &FunctionNotFoundError{
		ScriptName:   "test",
		FunctionName: "_start",
	}

	expected := "function '_start' not found in script 'test'"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

// testError is a simple error for testing.
type testError struct{}

func (e *testError) Error() string {
	return "test error"
}
