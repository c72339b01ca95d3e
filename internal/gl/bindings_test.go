package gl

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/woxQAQ/wasmtoys/internal/wasm"
	"github.com/woxQAQ/wasmtoys/internal/wasm/wasmtest"
)

var (
	i32 = wasmtest.I32
	f32 = wasmtest.F32
)

// glImports are the signatures of the imports exercised by the guest fixture.
var glImports = []wasmtest.Import{
	wasmtest.EnvImport("viewport", []byte{i32, i32, i32, i32}, nil),
	wasmtest.EnvImport("get_viewport", []byte{i32, i32}, nil),
	wasmtest.EnvImport("create_buffer", nil, []byte{i32}),
	wasmtest.EnvImport("bind_buffer", []byte{i32, i32}, nil),
	wasmtest.EnvImport("upload_buffer_data", []byte{i32, i32, i32}, nil),
	wasmtest.EnvImport("create_framebuffer", nil, []byte{i32}),
	wasmtest.EnvImport("delete_framebuffer", []byte{i32}, nil),
	wasmtest.EnvImport("bind_framebuffer", []byte{i32}, nil),
	wasmtest.EnvImport("get_bound_framebuffer", nil, []byte{i32}),
	wasmtest.EnvImport("create_shader_program", nil, []byte{i32}),
	wasmtest.EnvImport("create_shader", []byte{i32, i32, i32}, []byte{i32}),
	wasmtest.EnvImport("link_program", []byte{i32, i32, i32}, nil),
	wasmtest.EnvImport("set_uniform_f32_raw", []byte{i32, i32, i32, f32}, nil),
	wasmtest.EnvImport("set_uniform_mat4_raw", []byte{i32, i32, i32, i32}, nil),
}

type glFixture struct {
	rec      *Recorder
	bindings *Bindings
	instance *wasm.Instance
}

func newGLFixture(t *testing.T, logger *zap.Logger, opts ...RecorderOption) *glFixture {
	t.Helper()
	ctx := context.Background()

	m := &wasmtest.Module{Imports: glImports, MemoryPages: 1}
	for _, imp := range glImports {
		m.Funcs = append(m.Funcs, wasmtest.ForwardFunc(m, imp.Name, "call_"+imp.Name))
	}

	runtime, err := wasm.NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runtime.Close(context.Background()) })

	if _, err := wasm.NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "gl", m.Bytes()); err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	rec := NewRecorder(WebGL2, fixedSurface{640, 480}, opts...)
	bindings := NewBindings(rec, runtime.Bridge(), logger)
	instance, err := wasm.NewInstanceManager(runtime, logger).Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: "gl",
		Imports:    bindings.Imports(),
	})
	if err != nil {
		t.Fatalf("Failed to instantiate: %v", err)
	}
	return &glFixture{rec: rec, bindings: bindings, instance: instance}
}

func (f *glFixture) call(t *testing.T, name string, params ...uint64) uint32 {
	t.Helper()
	res, err := f.instance.Call(context.Background(), "call_"+name, params...)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if len(res) == 0 {
		return 0
	}
	return uint32(res[0])
}

func (f *glFixture) poke(t *testing.T, ptr uint32, data []byte) {
	t.Helper()
	view, err := f.instance.Memory().View(ptr, uint32(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	copy(view, data)
}

func (f *glFixture) last(t *testing.T, name string) Command {
	t.Helper()
	cmds := f.rec.Commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Name == name {
			return cmds[i]
		}
	}
	t.Fatalf("no %s command recorded", name)
	return Command{}
}

type fixedSurface struct{ w, h int32 }

func (s fixedSurface) Size() (int32, int32) { return s.w, s.h }

func TestBindingsHandOutSequentialIDs(t *testing.T) {
	f := newGLFixture(t, zaptest.NewLogger(t))

	for want := uint32(1); want <= 3; want++ {
		if got := f.call(t, "create_buffer"); got != want {
			t.Errorf("create_buffer = %d, want %d", got, want)
		}
	}

	f.call(t, "bind_buffer", uint64(ArrayBuffer), 2)
	if diff := cmp.Diff([]any{ArrayBuffer, "buffer#2"}, f.last(t, "bindBuffer").Args); diff != "" {
		t.Errorf("bindBuffer args mismatch (-want +got):\n%s", diff)
	}

	f.call(t, "bind_buffer", uint64(ArrayBuffer), 99)
	if diff := cmp.Diff([]any{ArrayBuffer, nil}, f.last(t, "bindBuffer").Args); diff != "" {
		t.Errorf("unknown id should bind nil (-want +got):\n%s", diff)
	}
}

func TestFramebufferLifecycle(t *testing.T) {
	f := newGLFixture(t, zaptest.NewLogger(t))

	if got := f.call(t, "get_bound_framebuffer"); got != 0 {
		t.Errorf("default framebuffer binding = %d, want 0", got)
	}

	f.call(t, "create_framebuffer")
	fb := f.call(t, "create_framebuffer")
	f.call(t, "bind_framebuffer", uint64(fb))
	if got := f.call(t, "get_bound_framebuffer"); got != fb {
		t.Errorf("get_bound_framebuffer = %d, want %d", got, fb)
	}

	f.call(t, "delete_framebuffer", uint64(fb))
	if got := f.call(t, "get_bound_framebuffer"); got != 0 {
		t.Errorf("binding after delete = %d, want 0", got)
	}
	// Deleting twice is a no-op.
	f.call(t, "delete_framebuffer", uint64(fb))

	if got := f.call(t, "create_framebuffer"); got != 3 {
		t.Errorf("ids must not be reused: got %d, want 3", got)
	}

	for _, s := range f.bindings.Stats() {
		if s.Kind == KindFramebuffer && (s.Len != 3 || s.Live != 2) {
			t.Errorf("framebuffer stats = %+v, want len 3 live 2", s)
		}
	}
}

func TestCreateShaderRejectsUnknownType(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	f := newGLFixture(t, zap.New(core))

	src := []byte("void main() {}")
	f.poke(t, 256, src)

	if got := f.call(t, "create_shader", 7, 256, uint64(len(src))); got != 0 {
		t.Errorf("create_shader with type 7 = %d, want 0", got)
	}
	if logs.FilterMessage("Failed to create shader").Len() != 1 {
		t.Error("invalid shader type should be logged")
	}
	for _, name := range f.rec.Names() {
		if name == "createShader" {
			t.Error("no shader should be created for an invalid type")
		}
	}

	if got := f.call(t, "create_shader", 1, 256, uint64(len(src))); got != 1 {
		t.Errorf("first fragment shader id = %d, want 1", got)
	}
	if diff := cmp.Diff([]any{FragmentShader, "shader#1"}, f.last(t, "createShader").Args); diff != "" {
		t.Errorf("createShader args mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAndLinkLogs(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	f := newGLFixture(t, zap.New(core),
		WithShaderLog(func(src string) string { return "ERROR: 0:1: '" + src + "' : syntax error\x00" }),
		WithProgramLog(func() string { return "" }),
	)

	f.poke(t, 256, []byte("bad"))
	vert := f.call(t, "create_shader", 0, 256, 3)
	frag := f.call(t, "create_shader", 1, 256, 3)
	program := f.call(t, "create_shader_program")
	f.call(t, "link_program", uint64(program), uint64(vert), uint64(frag))

	compile := logs.FilterMessage("Shader compilation reported errors").All()
	if len(compile) != 2 {
		t.Fatalf("got %d compile logs, want 2", len(compile))
	}
	if got := compile[0].ContextMap()["log"]; got != "ERROR: 0:1: 'bad' : syntax error" {
		t.Errorf("compile log = %q", got)
	}
	if logs.FilterMessage("Program link reported errors").Len() != 0 {
		t.Error("empty link log should not be reported")
	}

	want := []string{"attachShader", "attachShader", "linkProgram"}
	names := f.rec.Names()
	if diff := cmp.Diff(want, names[len(names)-3:]); diff != "" {
		t.Errorf("link sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformsResolvedEveryCall(t *testing.T) {
	f := newGLFixture(t, zaptest.NewLogger(t))
	program := f.call(t, "create_shader_program")

	f.poke(t, 256, []byte("u_mvp"))
	mat := make([]byte, 64)
	want := make([]float32, 16)
	for i := range want {
		want[i] = float32(i) / 2
		binary.LittleEndian.PutUint32(mat[i*4:], math.Float32bits(want[i]))
	}
	f.poke(t, 512, mat)

	f.call(t, "set_uniform_mat4_raw", uint64(program), 256, 5, 512)
	f.call(t, "set_uniform_f32_raw", uint64(program), 256, 5, uint64(math.Float32bits(1.5)))

	var lookups int
	for _, c := range f.rec.Commands() {
		if c.Name == "getUniformLocation" {
			lookups++
			if diff := cmp.Diff([]any{"program#1", "u_mvp"}, c.Args); diff != "" {
				t.Errorf("getUniformLocation args mismatch (-want +got):\n%s", diff)
			}
		}
	}
	if lookups != 2 {
		t.Errorf("got %d uniform lookups, want 2", lookups)
	}

	got := f.last(t, "uniformMatrix4fv").Args
	if diff := cmp.Diff([]any{"uniform_location#1", false, want}, got); diff != "" {
		t.Errorf("uniformMatrix4fv args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"uniform_location#2", float32(1.5)}, f.last(t, "uniform1f").Args); diff != "" {
		t.Errorf("uniform1f args mismatch (-want +got):\n%s", diff)
	}
}

func TestGetViewportWritesIntoMemory(t *testing.T) {
	f := newGLFixture(t, zaptest.NewLogger(t))

	f.call(t, "get_viewport", 128, 4)
	view, err := f.instance.Memory().ViewU32(128, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{0, 0, 640, 480}, view.Slice()); diff != "" {
		t.Errorf("initial viewport mismatch (-want +got):\n%s", diff)
	}

	f.call(t, "viewport", 1, 2, 3, 4)
	f.call(t, "get_viewport", 128, 4)
	if diff := cmp.Diff([]uint32{1, 2, 3, 4}, view.Slice()); diff != "" {
		t.Errorf("viewport mismatch (-want +got):\n%s", diff)
	}
}

func TestOutOfRangeUploadFailsTheCall(t *testing.T) {
	f := newGLFixture(t, zaptest.NewLogger(t))

	_, err := f.instance.Call(context.Background(), "call_upload_buffer_data", uint64(ArrayBuffer), 65530, 100)
	if err == nil {
		t.Fatal("expected an error for an out of range upload")
	}
	for _, name := range f.rec.Names() {
		if name == "bufferData" {
			t.Error("no data should be uploaded")
		}
	}

	f.poke(t, 64, []byte{1, 2, 3, 4})
	f.call(t, "upload_buffer_data", uint64(ArrayBuffer), 64, 4)
	if diff := cmp.Diff([]any{ArrayBuffer, 4, StaticDraw}, f.last(t, "bufferData").Args); diff != "" {
		t.Errorf("bufferData args mismatch (-want +got):\n%s", diff)
	}
}

func TestImportsCoverGlue(t *testing.T) {
	b := NewBindings(NewRecorder(WebGL1, nil), wasm.Bridge{}, zap.NewNop())
	imports := b.Imports()

	if imports.Len() != 45 {
		t.Errorf("got %d GL imports, want 45", imports.Len())
	}
	for _, imp := range glImports {
		if !imports.Has(imp.Name) {
			t.Errorf("missing import %s", imp.Name)
		}
	}
}

func TestNegotiate(t *testing.T) {
	surface := fixedSurface{1, 1}

	ctx, version, err := Negotiate(RecorderDriver{Versions: []Version{WebGL1, WebGL2}}, surface, DefaultAttributes())
	if err != nil || version != WebGL2 || ctx == nil {
		t.Errorf("Negotiate() = %v, %q, %v; want webgl2", ctx, version, err)
	}

	_, version, err = Negotiate(RecorderDriver{Versions: []Version{WebGL1}}, surface, DefaultAttributes())
	if err != nil || version != WebGL1 {
		t.Errorf("fallback version = %q, %v; want webgl", version, err)
	}

	_, _, err = Negotiate(RecorderDriver{}, surface, DefaultAttributes())
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "WebGL not supported") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
