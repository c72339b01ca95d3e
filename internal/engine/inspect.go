package engine

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/gl"
	"github.com/woxQAQ/wasmtoys/internal/input"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// requiredExports are called unconditionally by the frame loop.
var requiredExports = []string{abi.Main, abi.UpdateViewport, abi.Update}

// ImportStatus describes one function the module imports from env.
type ImportStatus struct {
	Name     string `json:"name"`
	Provided bool   `json:"provided"`
}

// Report is the result of Inspect.
type Report struct {
	Module         string         `json:"module"`
	Imports        []ImportStatus `json:"imports"`
	Exports        []string       `json:"exports"`
	MissingExports []string       `json:"missing_exports,omitempty"`
}

// Unprovided returns the imports the host does not implement.
func (r *Report) Unprovided() []string {
	var out []string
	for _, imp := range r.Imports {
		if !imp.Provided {
			out = append(out, imp.Name)
		}
	}
	return out
}

// HostImportNames returns every import name the main instance is given.
func HostImportNames() []string {
	nop := zap.NewNop()
	e := &Engine{
		logger: nop,
		gl:     gl.NewBindings(nil, wasm.Bridge{}, nop),
		input:  input.NewForwarder(nil, nop),
	}
	return append(e.baseImports(wasm.Bridge{}).Names(), abi.SendWorkerData)
}

// Inspect compiles the module at path and compares its env imports with what
// the host provides. Nothing is instantiated.
func Inspect(ctx context.Context, path string, logger *zap.Logger) (*Report, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, nil)
	if err != nil {
		return nil, err
	}
	defer runtime.Close(ctx)

	compiled, err := wasm.NewModuleLoader(runtime, logger).LoadModuleFromFile(ctx, path)
	if err != nil {
		return nil, err
	}

	provided := HostImportNames()
	report := &Report{Module: compiled.Name, Exports: compiled.ExportedFunctionNames()}
	for _, def := range compiled.ImportedFunctions(abi.ImportModule) {
		_, name, _ := def.Import()
		report.Imports = append(report.Imports, ImportStatus{Name: name, Provided: slices.Contains(provided, name)})
	}
	for _, name := range requiredExports {
		if !slices.Contains(report.Exports, name) {
			report.MissingExports = append(report.MissingExports, name)
		}
	}
	return report, nil
}
