package wasm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wasmtoys/internal/wasm/wasmtest"
)

// TestLoadModuleFromMemory tests loading a simple Wasm module from memory.
func TestLoadModuleFromMemory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	// Minimal valid Wasm module (empty module that does nothing).
	wasmBytes := []byte{
		0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
		0x01, 0x00, 0x00, 0x00, // Version: 1
	}

	module, err := loader.LoadModuleFromMemory(ctx, "test-module", wasmBytes)
	if err != nil {
		t.Fatalf("Failed to load module: %v", err)
	}

	if module.Name != "test-module" {
		t.Errorf("Module name = %s, want 'test-module'", module.Name)
	}

	if module.SizeBytes != int64(len(wasmBytes)) {
		t.Errorf("SizeBytes = %d, want %d", module.SizeBytes, len(wasmBytes))
	}

	// Test caching - load again should hit cache.
	module2, err := loader.LoadModuleFromMemory(ctx, "test-module", wasmBytes)
	if err != nil {
		t.Fatalf("Failed to load module from cache: %v", err)
	}

	if module2 != module {
		t.Error("Cache should return the same module instance")
	}
}

// TestModuleLoaderFileSource tests the FileModuleSource.
func TestModuleLoaderFileSource(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	wasmFile := filepath.Join(t.TempDir(), "test.wasm")
	if err := os.WriteFile(wasmFile, (&wasmtest.Module{MemoryPages: 1}).Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := loader.LoadModuleFromFile(ctx, wasmFile); err != nil {
		t.Fatalf("Failed to load module from file: %v", err)
	}
}

func TestLoadModuleInvalidBytes(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	_, err = NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "bad", []byte("not wasm"))
	if err == nil {
		t.Fatal("LoadModuleFromMemory() should fail for invalid bytes")
	}

	if _, ok := err.(*CompilationError); !ok {
		t.Errorf("expected CompilationError, got %T", err)
	}
}

func TestCompiledModuleImportsAndExports(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	fixture := &wasmtest.Module{
		Imports: []wasmtest.Import{
			{Module: "env", Name: "viewport", Type: wasmtest.FuncType{Params: []byte{wasmtest.I32, wasmtest.I32, wasmtest.I32, wasmtest.I32}}},
			{Module: "env", Name: "clear", Type: wasmtest.FuncType{Params: []byte{wasmtest.I32}}},
			{Module: "other", Name: "ignored"},
		},
		Funcs: []wasmtest.Func{
			wasmtest.NopFunc("main"),
			wasmtest.NopFunc("internal_update", wasmtest.F64),
		},
	}

	compiled, err := NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "fixture", fixture.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	defs := compiled.ImportedFunctions("env")
	if len(defs) != 2 {
		t.Fatalf("ImportedFunctions(env) returned %d definitions, want 2", len(defs))
	}
	if _, name, _ := defs[0].Import(); name != "clear" {
		t.Errorf("first import = %s, want clear (sorted)", name)
	}

	exports := compiled.ExportedFunctionNames()
	if len(exports) != 2 || exports[0] != "internal_update" || exports[1] != "main" {
		t.Errorf("ExportedFunctionNames() = %v", exports)
	}

	clone := compiled.Clone()
	clone[0] = 0xff
	if compiled.Raw[0] == 0xff {
		t.Error("Clone() must not alias the raw bytecode")
	}
}
