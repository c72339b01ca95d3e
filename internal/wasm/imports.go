package wasm

import (
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostFunc is one function the host supplies to a module.
//
// Either Fn (any Go func accepted by wazero's WithFunc) or GoFunc with explicit
// value types is set.
type HostFunc struct {
	Name       string
	Fn         any
	ParamNames []string

	GoFunc      api.GoModuleFunction
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Imports is an ordered set of host functions exported under one module name.
type Imports struct {
	funcs map[string]HostFunc
	order []string
}

// NewImports creates an empty import set.
func NewImports() *Imports {
	return &Imports{funcs: make(map[string]HostFunc)}
}

// Func adds (or replaces) a function built from a typed Go func.
func (s *Imports) Func(name string, fn any, paramNames ...string) *Imports {
	s.put(HostFunc{Name: name, Fn: fn, ParamNames: paramNames})
	return s
}

// Raw adds (or replaces) a function with explicit value types.
func (s *Imports) Raw(name string, fn api.GoModuleFunction, params, results []api.ValueType) *Imports {
	s.put(HostFunc{Name: name, GoFunc: fn, ParamTypes: params, ResultTypes: results})
	return s
}

func (s *Imports) put(f HostFunc) {
	if _, exists := s.funcs[f.Name]; !exists {
		s.order = append(s.order, f.Name)
	}
	s.funcs[f.Name] = f
}

// Merge copies every function of others into s. Later sets win on conflicts.
func (s *Imports) Merge(others ...*Imports) *Imports {
	for _, o := range others {
		if o == nil {
			continue
		}
		for _, name := range o.order {
			s.put(o.funcs[name])
		}
	}
	return s
}

// Has reports whether name is part of the set.
func (s *Imports) Has(name string) bool {
	_, ok := s.funcs[name]
	return ok
}

// Get returns the function registered under name.
func (s *Imports) Get(name string) (HostFunc, bool) {
	f, ok := s.funcs[name]
	return f, ok
}

// Names returns the function names in insertion order.
func (s *Imports) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of functions.
func (s *Imports) Len() int {
	return len(s.order)
}

// export registers every function on the host module builder.
func (s *Imports) export(builder wazero.HostModuleBuilder) {
	for _, name := range s.order {
		f := s.funcs[name]
		fb := builder.NewFunctionBuilder()
		if f.GoFunc != nil {
			fb = fb.WithGoModuleFunction(f.GoFunc, f.ParamTypes, f.ResultTypes)
		} else {
			fb = fb.WithFunc(f.Fn)
			if len(f.ParamNames) > 0 {
				fb = fb.WithParameterNames(f.ParamNames...)
			}
		}
		fb.Export(name)
	}
}
