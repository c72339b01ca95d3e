package gl

import (
	"fmt"
	"sync"
)

// Command is one call made on a Recorder.
type Command struct {
	Name string `json:"name"`
	Args []any  `json:"args,omitempty"`
}

// recordedObject is the object type handed out by a Recorder.
type recordedObject struct {
	kind ObjectKind
	seq  int
}

func (o *recordedObject) Kind() ObjectKind { return o.kind }

func (o *recordedObject) String() string { return fmt.Sprintf("%s#%d", o.kind, o.seq) }

// objectRef renders an object argument for the command log.
func objectRef(o Object) any {
	if o == nil {
		return nil
	}
	if s, ok := o.(fmt.Stringer); ok {
		return s.String()
	}
	return string(o.Kind())
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithShaderLog sets the function producing shader compile logs.
func WithShaderLog(fn func(src string) string) RecorderOption {
	return func(r *Recorder) { r.shaderLog = fn }
}

// WithProgramLog sets the function producing program link logs.
func WithProgramLog(fn func() string) RecorderOption {
	return func(r *Recorder) { r.programLog = fn }
}

// WithCommandHook registers fn to observe every recorded command.
func WithCommandHook(fn func(Command)) RecorderOption {
	return func(r *Recorder) { r.hooks = append(r.hooks, fn) }
}

// Recorder is a headless Context. It keeps enough state to answer queries
// and appends every call to an in-memory command log.
type Recorder struct {
	mu sync.Mutex

	version Version
	surface Surface

	seq         map[ObjectKind]int
	commands    []Command
	viewport    [4]int32
	framebuffer Object
	sources     map[Object]string

	shaderLog  func(src string) string
	programLog func() string
	hooks      []func(Command)
}

// NewRecorder creates a recorder drawing into surface.
func NewRecorder(version Version, surface Surface, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		version: version,
		surface: surface,
		seq:     make(map[ObjectKind]int),
		sources: make(map[Object]string),
	}
	if surface != nil {
		w, h := surface.Size()
		r.viewport = [4]int32{0, 0, w, h}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Version returns the context version the recorder was created for.
func (r *Recorder) Version() Version {
	return r.version
}

// Commands returns a copy of the command log.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Names returns the names of the recorded commands in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = c.Name
	}
	return out
}

// Reset clears the command log. Object state is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

func (r *Recorder) record(name string, args ...any) {
	cmd := Command{Name: name, Args: args}
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	hooks := r.hooks
	r.mu.Unlock()

	for _, h := range hooks {
		h(cmd)
	}
}

func (r *Recorder) create(kind ObjectKind, name string, args ...any) Object {
	r.mu.Lock()
	r.seq[kind]++
	obj := &recordedObject{kind: kind, seq: r.seq[kind]}
	r.mu.Unlock()

	r.record(name, append(args, objectRef(obj))...)
	return obj
}

func (r *Recorder) Viewport(x, y, w, h int32) {
	r.mu.Lock()
	r.viewport = [4]int32{x, y, w, h}
	r.mu.Unlock()
	r.record("viewport", x, y, w, h)
}

func (r *Recorder) Scissor(x, y, w, h int32) { r.record("scissor", x, y, w, h) }

func (r *Recorder) GetViewport() [4]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

func (r *Recorder) ClearColor(red, g, b, a float32) { r.record("clearColor", red, g, b, a) }
func (r *Recorder) Clear(mask uint32)               { r.record("clear", mask) }
func (r *Recorder) Enable(capability uint32)        { r.record("enable", capability) }
func (r *Recorder) Disable(capability uint32)       { r.record("disable", capability) }
func (r *Recorder) BlendFunc(src, dst uint32)       { r.record("blendFunc", src, dst) }

func (r *Recorder) DrawArrays(mode uint32, first, count int32) {
	r.record("drawArrays", mode, first, count)
}

func (r *Recorder) DrawElements(mode uint32, count int32, typ uint32, offset int32) {
	r.record("drawElements", mode, count, typ, offset)
}

func (r *Recorder) CreateBuffer() Object { return r.create(KindBuffer, "createBuffer") }

func (r *Recorder) BindBuffer(target uint32, buf Object) {
	r.record("bindBuffer", target, objectRef(buf))
}

func (r *Recorder) BufferData(target uint32, data []byte, usage uint32) {
	r.record("bufferData", target, len(data), usage)
}

func (r *Recorder) VertexAttribPointer(index uint32, size int32, typ uint32, normalized bool, stride, offset int32) {
	r.record("vertexAttribPointer", index, size, typ, normalized, stride, offset)
}

func (r *Recorder) EnableVertexAttribArray(index uint32) {
	r.record("enableVertexAttribArray", index)
}

func (r *Recorder) DisableVertexAttribArray(index uint32) {
	r.record("disableVertexAttribArray", index)
}

func (r *Recorder) CreateTexture() Object { return r.create(KindTexture, "createTexture") }

func (r *Recorder) BindTexture(target uint32, tex Object) {
	r.record("bindTexture", target, objectRef(tex))
}

func (r *Recorder) ActiveTexture(unit uint32) { r.record("activeTexture", unit) }

func (r *Recorder) TexImage2D(target uint32, level int32, internalFormat uint32, w, h, border int32, format, typ uint32, pixels []byte) {
	r.record("texImage2D", target, level, internalFormat, w, h, border, format, typ, len(pixels))
}

func (r *Recorder) TexParameteri(target, param uint32, value int32) {
	r.record("texParameteri", target, param, value)
}

func (r *Recorder) CreateFramebuffer() Object {
	return r.create(KindFramebuffer, "createFramebuffer")
}

func (r *Recorder) DeleteFramebuffer(fb Object) {
	r.mu.Lock()
	if r.framebuffer == fb {
		r.framebuffer = nil
	}
	r.mu.Unlock()
	r.record("deleteFramebuffer", objectRef(fb))
}

func (r *Recorder) BindFramebuffer(target uint32, fb Object) {
	r.mu.Lock()
	r.framebuffer = fb
	r.mu.Unlock()
	r.record("bindFramebuffer", target, objectRef(fb))
}

func (r *Recorder) FramebufferBinding() Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framebuffer
}

func (r *Recorder) FramebufferTexture2D(target, attachment, texTarget uint32, tex Object, level int32) {
	r.record("framebufferTexture2D", target, attachment, texTarget, objectRef(tex), level)
}

func (r *Recorder) FramebufferRenderbuffer(target, attachment, rbTarget uint32, rb Object) {
	r.record("framebufferRenderbuffer", target, attachment, rbTarget, objectRef(rb))
}

func (r *Recorder) CreateRenderbuffer() Object {
	return r.create(KindRenderbuffer, "createRenderbuffer")
}

func (r *Recorder) DeleteRenderbuffer(rb Object) { r.record("deleteRenderbuffer", objectRef(rb)) }

func (r *Recorder) BindRenderbuffer(target uint32, rb Object) {
	r.record("bindRenderbuffer", target, objectRef(rb))
}

func (r *Recorder) RenderbufferStorage(target, internalFormat uint32, w, h int32) {
	r.record("renderbufferStorage", target, internalFormat, w, h)
}

func (r *Recorder) CreateProgram() Object { return r.create(KindProgram, "createProgram") }

func (r *Recorder) CreateShader(typ uint32) Object {
	return r.create(KindShader, "createShader", typ)
}

func (r *Recorder) ShaderSource(sh Object, src string) {
	r.mu.Lock()
	r.sources[sh] = src
	r.mu.Unlock()
	r.record("shaderSource", objectRef(sh), len(src))
}

func (r *Recorder) CompileShader(sh Object) { r.record("compileShader", objectRef(sh)) }

func (r *Recorder) ShaderInfoLog(sh Object) string {
	if r.shaderLog == nil {
		return ""
	}
	r.mu.Lock()
	src := r.sources[sh]
	r.mu.Unlock()
	return r.shaderLog(src)
}

func (r *Recorder) BindAttribLocation(program Object, index uint32, name string) {
	r.record("bindAttribLocation", objectRef(program), index, name)
}

func (r *Recorder) AttachShader(program, sh Object) {
	r.record("attachShader", objectRef(program), objectRef(sh))
}

func (r *Recorder) LinkProgram(program Object) { r.record("linkProgram", objectRef(program)) }

func (r *Recorder) ProgramInfoLog(program Object) string {
	if r.programLog == nil {
		return ""
	}
	return r.programLog()
}

func (r *Recorder) UseProgram(program Object) { r.record("useProgram", objectRef(program)) }

func (r *Recorder) StencilFunc(fn uint32, ref int32, mask uint32) {
	r.record("stencilFunc", fn, ref, mask)
}

func (r *Recorder) StencilOp(fail, zfail, zpass uint32) { r.record("stencilOp", fail, zfail, zpass) }
func (r *Recorder) ColorMask(red, g, b, a bool)         { r.record("colorMask", red, g, b, a) }
func (r *Recorder) DepthMask(flag bool)                 { r.record("depthMask", flag) }
func (r *Recorder) StencilMask(mask uint32)             { r.record("stencilMask", mask) }

// UniformLocation returns a fresh location object on every call.
func (r *Recorder) UniformLocation(program Object, name string) Object {
	r.mu.Lock()
	r.seq[KindUniformLocation]++
	loc := &recordedObject{kind: KindUniformLocation, seq: r.seq[KindUniformLocation]}
	r.mu.Unlock()
	r.record("getUniformLocation", objectRef(program), name)
	return loc
}

func (r *Recorder) Uniform1i(loc Object, v int32)   { r.record("uniform1i", objectRef(loc), v) }
func (r *Recorder) Uniform1f(loc Object, v float32) { r.record("uniform1f", objectRef(loc), v) }

func (r *Recorder) Uniform4f(loc Object, x, y, z, w float32) {
	r.record("uniform4f", objectRef(loc), x, y, z, w)
}

func (r *Recorder) UniformMatrix4fv(loc Object, transpose bool, m []float32) {
	mat := make([]float32, len(m))
	copy(mat, m)
	r.record("uniformMatrix4fv", objectRef(loc), transpose, mat)
}

func (r *Recorder) DrawingBufferSize() (w, h int32) {
	if r.surface == nil {
		return 0, 0
	}
	return r.surface.Size()
}

// RecorderDriver creates Recorders for the versions it lists.
type RecorderDriver struct {
	Versions []Version
	Options  []RecorderOption
}

// NewContext implements Driver.
func (d RecorderDriver) NewContext(version Version, surface Surface, attrs Attributes) (Context, error) {
	for _, v := range d.Versions {
		if v == version {
			return NewRecorder(version, surface, d.Options...), nil
		}
	}
	return nil, fmt.Errorf("context %q unavailable", version)
}
