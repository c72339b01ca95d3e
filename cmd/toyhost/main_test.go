package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woxQAQ/wasmtoys/internal/wasm/wasmtest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		importsJSON = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "toyhost dev") {
		t.Errorf("Unexpected version output %q", out)
	}
}

func writeModule(t *testing.T, imports ...string) string {
	t.Helper()
	m := &wasmtest.Module{Funcs: []wasmtest.Func{
		wasmtest.NopFunc("main"),
		wasmtest.NopFunc("internal_update_viewport", wasmtest.I32, wasmtest.I32),
		wasmtest.NopFunc("internal_update", wasmtest.F64),
	}}
	for _, name := range imports {
		m.Imports = append(m.Imports, wasmtest.EnvImport(name, nil, nil))
	}
	path := filepath.Join(t.TempDir(), "toy.wasm")
	if err := os.WriteFile(path, m.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImports(t *testing.T) {
	out, err := execute(t, "imports", writeModule(t, "request_pointer_lock"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "request_pointer_lock") || !strings.Contains(out, "true") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestImportsTableReportsUnprovided(t *testing.T) {
	out, err := execute(t, "imports", writeModule(t, "play_sound"))
	if err == nil {
		t.Fatal("Expected error for unprovided import")
	}
	if !strings.Contains(out, "play_sound") || !strings.Contains(out, "false") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestImportsJSONSucceedsWhenProvided(t *testing.T) {
	out, err := execute(t, "imports", "--json", writeModule(t, "create_buffer"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, `"provided": true`) {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestImportsReportsUnprovided(t *testing.T) {
	out, err := execute(t, "imports", "--json", writeModule(t, "play_sound"))
	if err == nil {
		t.Fatal("Expected error for unprovided import")
	}
	if !strings.Contains(out, `"name": "play_sound"`) || !strings.Contains(out, `"provided": false`) {
		t.Errorf("Unexpected output:\n%s", out)
	}
}
