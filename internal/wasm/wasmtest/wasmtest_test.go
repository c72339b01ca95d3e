package wasmtest

import (
	"bytes"
	"testing"
)

func TestEmptyModule(t *testing.T) {
	got := (&Module{}).Bytes()
	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}

func TestMemoryOnlyModule(t *testing.T) {
	got := (&Module{MemoryPages: 1}).Bytes()
	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page
		0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // export "memory"
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}

func TestLEB128(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{4, []byte{0x04}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{1024, []byte{0x80, 0x08}},
		{-1, []byte{0x7f}},
	}
	for _, tt := range tests {
		if got := sleb(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("sleb(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}

	if got := uleb(nil, 300); !bytes.Equal(got, []byte{0xac, 0x02}) {
		t.Errorf("uleb(300) = %x", got)
	}
}

func TestFuncIndex(t *testing.T) {
	m := &Module{
		Imports: []Import{{Module: "env", Name: "a"}, {Module: "env", Name: "b"}},
		Funcs:   []Func{{Export: "c", Body: []byte{End}}},
	}
	if got := m.FuncIndex("b"); got != 1 {
		t.Errorf("FuncIndex(b) = %d, want 1", got)
	}
	if got := m.FuncIndex("c"); got != 2 {
		t.Errorf("FuncIndex(c) = %d, want 2", got)
	}
}
