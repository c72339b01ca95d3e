package gl

import (
	"errors"
	"fmt"
)

// ObjectKind identifies the category of a GL object.
type ObjectKind string

const (
	KindBuffer          ObjectKind = "buffer"
	KindTexture         ObjectKind = "texture"
	KindFramebuffer     ObjectKind = "framebuffer"
	KindRenderbuffer    ObjectKind = "renderbuffer"
	KindProgram         ObjectKind = "program"
	KindShader          ObjectKind = "shader"
	KindUniformLocation ObjectKind = "uniform_location"
)

// Object is an opaque GL object owned by a Context. A nil Object means "none".
type Object interface {
	Kind() ObjectKind
}

// Context is the drawing API subset the bindings forward to. It mirrors the
// WebGL calls used by the engine glue, one method per call.
type Context interface {
	Viewport(x, y, w, h int32)
	Scissor(x, y, w, h int32)
	GetViewport() [4]int32
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	Enable(capability uint32)
	Disable(capability uint32)
	BlendFunc(src, dst uint32)

	DrawArrays(mode uint32, first, count int32)
	DrawElements(mode uint32, count int32, typ uint32, offset int32)

	CreateBuffer() Object
	BindBuffer(target uint32, buf Object)
	BufferData(target uint32, data []byte, usage uint32)
	VertexAttribPointer(index uint32, size int32, typ uint32, normalized bool, stride, offset int32)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)

	CreateTexture() Object
	BindTexture(target uint32, tex Object)
	ActiveTexture(unit uint32)
	TexImage2D(target uint32, level int32, internalFormat uint32, w, h, border int32, format, typ uint32, pixels []byte)
	TexParameteri(target, param uint32, value int32)

	CreateFramebuffer() Object
	DeleteFramebuffer(fb Object)
	BindFramebuffer(target uint32, fb Object)
	FramebufferBinding() Object
	FramebufferTexture2D(target, attachment, texTarget uint32, tex Object, level int32)
	FramebufferRenderbuffer(target, attachment, rbTarget uint32, rb Object)

	CreateRenderbuffer() Object
	DeleteRenderbuffer(rb Object)
	BindRenderbuffer(target uint32, rb Object)
	RenderbufferStorage(target, internalFormat uint32, w, h int32)

	CreateProgram() Object
	CreateShader(typ uint32) Object
	ShaderSource(sh Object, src string)
	CompileShader(sh Object)
	ShaderInfoLog(sh Object) string
	BindAttribLocation(program Object, index uint32, name string)
	AttachShader(program, sh Object)
	LinkProgram(program Object)
	ProgramInfoLog(program Object) string
	UseProgram(program Object)

	StencilFunc(fn uint32, ref int32, mask uint32)
	StencilOp(fail, zfail, zpass uint32)
	ColorMask(r, g, b, a bool)
	DepthMask(flag bool)
	StencilMask(mask uint32)

	UniformLocation(program Object, name string) Object
	Uniform1i(loc Object, v int32)
	Uniform1f(loc Object, v float32)
	Uniform4f(loc Object, x, y, z, w float32)
	UniformMatrix4fv(loc Object, transpose bool, m []float32)

	// DrawingBufferSize reports the size of the surface being drawn to.
	DrawingBufferSize() (w, h int32)
}

// Version names a context flavour.
type Version string

const (
	WebGL2 Version = "webgl2"
	WebGL1 Version = "webgl"
)

// Surface is what a context draws into (the canvas).
type Surface interface {
	Size() (w, h int32)
}

// Attributes are context creation parameters.
type Attributes struct {
	Stencil   bool
	Depth     bool
	Antialias bool
}

// DefaultAttributes matches what the engine asks for.
func DefaultAttributes() Attributes {
	return Attributes{Stencil: true}
}

// Driver creates contexts of a given version.
type Driver interface {
	NewContext(version Version, surface Surface, attrs Attributes) (Context, error)
}

// ErrUnsupported is returned when no context version can be created.
var ErrUnsupported = errors.New("WebGL not supported")

// Negotiate is the single capability step run at startup: it tries WebGL2,
// then WebGL1, and returns the first context the driver can create.
func Negotiate(driver Driver, surface Surface, attrs Attributes) (Context, Version, error) {
	var errs []error
	for _, v := range []Version{WebGL2, WebGL1} {
		ctx, err := driver.NewContext(v, surface, attrs)
		if err == nil && ctx != nil {
			return ctx, v, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v, err))
		}
	}
	if len(errs) == 0 {
		return nil, "", ErrUnsupported
	}
	return nil, "", fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(errs...))
}
