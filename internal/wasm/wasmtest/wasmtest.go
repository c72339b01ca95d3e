// Package wasmtest assembles small WebAssembly binaries for tests.
//
// Only the sections needed to describe guest fixtures are supported: function
// types, function imports, functions, one memory, exports and code. Function
// bodies are raw instruction bytes and must end with End.
package wasmtest

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// Opcodes used by fixtures.
const (
	End      byte = 0x0b
	Call     byte = 0x10
	Drop     byte = 0x1a
	LocalGet byte = 0x20
	I32Load  byte = 0x28
	I32Store byte = 0x36
	I32Const byte = 0x41
	I32Add   byte = 0x6a
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Import is a function import.
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a function defined by the module.
type Func struct {
	Type   FuncType
	Export string
	Body   []byte
}

// Module describes a binary to assemble.
type Module struct {
	Imports     []Import
	Funcs       []Func
	MemoryPages uint32
	// MemoryExport names the exported memory; defaults to "memory".
	MemoryExport string
}

// FuncIndex returns the function index of the named import, or of the defined
// function with the given export name. It panics when the name is unknown.
func (m *Module) FuncIndex(name string) uint32 {
	for i, imp := range m.Imports {
		if imp.Name == name {
			return uint32(i)
		}
	}
	for i, f := range m.Funcs {
		if f.Export == name {
			return uint32(len(m.Imports) + i)
		}
	}
	panic("wasmtest: unknown function " + name)
}

// Bytes assembles the module.
func (m *Module) Bytes() []byte {
	var types []FuncType
	typeIndex := func(ft FuncType) uint32 {
		for i, t := range types {
			if string(t.Params) == string(ft.Params) && string(t.Results) == string(ft.Results) {
				return uint32(i)
			}
		}
		types = append(types, ft)
		return uint32(len(types) - 1)
	}

	var imports, funcs, exports, code []byte
	exportCount := 0

	imports = uleb(nil, uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		imports = name(imports, imp.Module)
		imports = name(imports, imp.Name)
		imports = append(imports, 0x00)
		imports = uleb(imports, typeIndex(imp.Type))
	}

	funcs = uleb(nil, uint32(len(m.Funcs)))
	code = uleb(nil, uint32(len(m.Funcs)))
	for i, f := range m.Funcs {
		funcs = uleb(funcs, typeIndex(f.Type))

		body := append([]byte{0x00}, f.Body...) // no locals
		code = uleb(code, uint32(len(body)))
		code = append(code, body...)

		if f.Export != "" {
			exports = name(exports, f.Export)
			exports = append(exports, 0x00)
			exports = uleb(exports, uint32(len(m.Imports)+i))
			exportCount++
		}
	}

	if m.MemoryPages > 0 {
		memName := m.MemoryExport
		if memName == "" {
			memName = "memory"
		}
		exports = name(exports, memName)
		exports = append(exports, 0x02)
		exports = uleb(exports, 0)
		exportCount++
	}

	typeSec := uleb(nil, uint32(len(types)))
	for _, t := range types {
		typeSec = append(typeSec, 0x60)
		typeSec = uleb(typeSec, uint32(len(t.Params)))
		typeSec = append(typeSec, t.Params...)
		typeSec = uleb(typeSec, uint32(len(t.Results)))
		typeSec = append(typeSec, t.Results...)
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if len(types) > 0 {
		out = section(out, 1, typeSec)
	}
	if len(m.Imports) > 0 {
		out = section(out, 2, imports)
	}
	if len(m.Funcs) > 0 {
		out = section(out, 3, funcs)
	}
	if m.MemoryPages > 0 {
		mem := uleb([]byte{0x01, 0x00}, m.MemoryPages)
		out = section(out, 5, mem)
	}
	if exportCount > 0 {
		out = section(out, 7, append(uleb(nil, uint32(exportCount)), exports...))
	}
	if len(m.Funcs) > 0 {
		out = section(out, 10, code)
	}
	return out
}

// Const appends an i32.const instruction.
func Const(body []byte, v int32) []byte {
	return sleb(append(body, I32Const), v)
}

// CallFunc appends a call instruction.
func CallFunc(body []byte, idx uint32) []byte {
	return uleb(append(body, Call), idx)
}

// Local appends a local.get instruction.
func Local(body []byte, idx uint32) []byte {
	return uleb(append(body, LocalGet), idx)
}

func section(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = uleb(out, uint32(len(contents)))
	return append(out, contents...)
}

func name(out []byte, s string) []byte {
	out = uleb(out, uint32(len(s)))
	return append(out, s...)
}

func uleb(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(out []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// ConstFunc returns an exported function that ignores its parameters and
// returns v.
func ConstFunc(export string, params []byte, v int32) Func {
	return Func{
		Type:   FuncType{Params: params, Results: []byte{I32}},
		Export: export,
		Body:   append(Const(nil, v), End),
	}
}

// NopFunc returns an exported function that does nothing.
func NopFunc(export string, params ...byte) Func {
	return Func{
		Type:   FuncType{Params: params},
		Export: export,
		Body:   []byte{End},
	}
}

// ForwardFunc returns an exported function that passes its parameters
// straight to the named import and returns whatever the import returns.
func ForwardFunc(m *Module, importName, export string) Func {
	var imp *Import
	for i := range m.Imports {
		if m.Imports[i].Name == importName {
			imp = &m.Imports[i]
			break
		}
	}
	if imp == nil {
		panic("wasmtest: unknown import " + importName)
	}

	var body []byte
	for i := range imp.Type.Params {
		body = Local(body, uint32(i))
	}
	body = CallFunc(body, m.FuncIndex(importName))
	return Func{Type: imp.Type, Export: export, Body: append(body, End)}
}

// EnvImport declares a function imported from the "env" module.
func EnvImport(name string, params, results []byte) Import {
	return Import{Module: "env", Name: name, Type: FuncType{Params: params, Results: results}}
}
