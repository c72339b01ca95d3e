package wasm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/wasmtoys/api/abi"
)

// Bridge carries the host-side capabilities every memory access needs. It is
// negotiated once per runtime and handed to each binding explicitly.
type Bridge struct {
	Codec TextCodec
}

// Memory returns a memory helper bound to the calling module.
func (b Bridge) Memory(mod api.Module) *Memory {
	return NewMemory(mod, b.Codec)
}

// Memory provides memory operations for one module instance.
//
// A Memory is cheap and meant to be created per host call. Views returned by
// it alias linear memory and are only valid until the module next grows its
// memory, which any call back into the module (including an allocation) may do.
type Memory struct {
	mod   api.Module
	mem   api.Memory
	codec TextCodec
}

// NewMemory creates a memory helper. A nil codec selects the default one.
func NewMemory(mod api.Module, codec TextCodec) *Memory {
	if codec == nil {
		codec = xtextCodec{}
	}
	return &Memory{mod: mod, mem: mod.Memory(), codec: codec}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// View returns a byte view over [ptr, ptr+length). Pointer 0 yields no view.
func (m *Memory) View(ptr, length uint32) ([]byte, error) {
	if ptr == 0 {
		return nil, nil
	}
	return m.read("view", ptr, length)
}

// ViewU32 returns a view over n little-endian uint32 values.
func (m *Memory) ViewU32(ptr, n uint32) (U32View, error) {
	b, err := m.wordView("view_u32", ptr, n)
	return U32View{b: b}, err
}

// ViewI32 returns a view over n little-endian int32 values.
func (m *Memory) ViewI32(ptr, n uint32) (I32View, error) {
	b, err := m.wordView("view_i32", ptr, n)
	return I32View{b: b}, err
}

// ViewF32 returns a view over n little-endian float32 values.
func (m *Memory) ViewF32(ptr, n uint32) (F32View, error) {
	b, err := m.wordView("view_f32", ptr, n)
	return F32View{b: b}, err
}

func (m *Memory) wordView(op string, ptr, n uint32) ([]byte, error) {
	if ptr == 0 {
		return nil, nil
	}
	size := uint64(n) * 4
	if size > math.MaxUint32 {
		return nil, &MemoryAccessError{Operation: op, Address: ptr, Length: n, Err: errOutOfRange}
	}
	return m.read(op, ptr, uint32(size))
}

func (m *Memory) read(op string, ptr, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, &MemoryAccessError{Operation: op, Address: ptr, Length: length,
			Err: fmt.Errorf("module exports no memory")}
	}
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: op, Address: ptr, Length: length, Err: errOutOfRange}
	}
	return buf, nil
}

// ReadBytes copies raw bytes out of Wasm memory.
func (m *Memory) ReadBytes(ptr, length uint32) ([]byte, error) {
	buf, err := m.View(ptr, length)
	if err != nil || buf == nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// ReadString decodes a UTF-8 string stored at [ptr, ptr+length).
func (m *Memory) ReadString(ptr, length uint32) (string, error) {
	buf, err := m.View(ptr, length)
	if err != nil {
		return "", err
	}
	return m.codec.Decode(buf), nil
}

// Alloc asks the module for size bytes of arena space.
func (m *Memory) Alloc(ctx context.Context, size uint32) (uint32, error) {
	return m.callAlloc(ctx, abi.AllocateArenaSpace, size)
}

func (m *Memory) callAlloc(ctx context.Context, export string, n uint32) (uint32, error) {
	fn := m.mod.ExportedFunction(export)
	if fn == nil {
		return 0, &FunctionNotFoundError{ModuleName: m.mod.Name(), FunctionName: export}
	}
	res, err := fn.Call(ctx, api.EncodeU32(n))
	if err != nil {
		return 0, &HostFunctionError{FunctionName: export, Err: err}
	}
	if len(res) == 0 {
		return 0, &HostFunctionError{FunctionName: export, Err: fmt.Errorf("no result")}
	}
	return api.DecodeU32(res[0]), nil
}

// WriteBytes allocates space in the module and copies data into it.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, error) {
	ptr, err := m.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	// The allocation may have grown memory, so the write happens afterwards.
	if m.mem == nil || !m.mem.Write(ptr, data) {
		return 0, &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfRange}
	}
	return ptr, nil
}

// WriteString encodes s and writes it into module memory, returning its pointer.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, error) {
	return m.WriteBytes(ctx, m.codec.Encode(s))
}

// WriteI32s allocates an i32 vector through internal_allocate_i32_vec and fills it.
func (m *Memory) WriteI32s(ctx context.Context, values []int32) (uint32, error) {
	ptr, err := m.callAlloc(ctx, abi.AllocateI32Vec, uint32(len(values)))
	if err != nil {
		return 0, err
	}
	view, err := m.ViewI32(ptr, uint32(len(values)))
	if err != nil {
		return 0, err
	}
	view.CopyFrom(values)
	return ptr, nil
}

// U32View aliases a run of little-endian uint32 values in linear memory.
type U32View struct{ b []byte }

func (v U32View) IsNil() bool { return v.b == nil }
func (v U32View) Len() int    { return len(v.b) / 4 }

func (v U32View) At(i int) uint32 { return binary.LittleEndian.Uint32(v.b[i*4:]) }

func (v U32View) Set(i int, x uint32) { binary.LittleEndian.PutUint32(v.b[i*4:], x) }

// CopyFrom writes src into the view and returns the number of values copied.
func (v U32View) CopyFrom(src []uint32) int {
	n := min(len(src), v.Len())
	for i := 0; i < n; i++ {
		v.Set(i, src[i])
	}
	return n
}

// Slice copies the view out.
func (v U32View) Slice() []uint32 {
	out := make([]uint32, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// I32View aliases a run of little-endian int32 values in linear memory.
type I32View struct{ b []byte }

func (v I32View) IsNil() bool { return v.b == nil }
func (v I32View) Len() int    { return len(v.b) / 4 }

func (v I32View) At(i int) int32 { return int32(binary.LittleEndian.Uint32(v.b[i*4:])) }

func (v I32View) Set(i int, x int32) { binary.LittleEndian.PutUint32(v.b[i*4:], uint32(x)) }

func (v I32View) CopyFrom(src []int32) int {
	n := min(len(src), v.Len())
	for i := 0; i < n; i++ {
		v.Set(i, src[i])
	}
	return n
}

func (v I32View) Slice() []int32 {
	out := make([]int32, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// F32View aliases a run of little-endian float32 values in linear memory.
type F32View struct{ b []byte }

func (v F32View) IsNil() bool { return v.b == nil }
func (v F32View) Len() int    { return len(v.b) / 4 }

func (v F32View) At(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v.b[i*4:]))
}

func (v F32View) Set(i int, x float32) {
	binary.LittleEndian.PutUint32(v.b[i*4:], math.Float32bits(x))
}

func (v F32View) CopyFrom(src []float32) int {
	n := min(len(src), v.Len())
	for i := 0; i < n; i++ {
		v.Set(i, src[i])
	}
	return n
}

func (v F32View) Slice() []float32 {
	out := make([]float32, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
