package gl

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/handle"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// Bindings forwards the module's GL imports to a Context, translating ids
// through one handle table per object category.
type Bindings struct {
	ctx    Context
	bridge wasm.Bridge
	logger *zap.Logger

	programs      *handle.Table[Object]
	shaders       *handle.Table[Object]
	buffers       *handle.Table[Object]
	textures      *handle.Table[Object]
	framebuffers  *handle.Table[Object]
	renderbuffers *handle.Table[Object]

	namedTextures *handle.Names
}

// NewBindings creates GL bindings over ctx.
func NewBindings(ctx Context, bridge wasm.Bridge, logger *zap.Logger) *Bindings {
	return &Bindings{
		ctx:           ctx,
		bridge:        bridge,
		logger:        logger.With(zap.String("component", "gl")),
		programs:      handle.NewTable[Object](),
		shaders:       handle.NewTable[Object](),
		buffers:       handle.NewTable[Object](),
		textures:      handle.NewTable[Object](),
		framebuffers:  handle.NewTable[Object](),
		renderbuffers: handle.NewTable[Object](),
		namedTextures: handle.NewNames(),
	}
}

// Context returns the underlying context.
func (b *Bindings) Context() Context {
	return b.ctx
}

// TableStat describes the size of one handle table.
type TableStat struct {
	Kind ObjectKind
	Len  int
	Live int
}

// Stats reports every table's allocated and live slot counts.
func (b *Bindings) Stats() []TableStat {
	tables := []struct {
		kind  ObjectKind
		table *handle.Table[Object]
	}{
		{KindProgram, b.programs},
		{KindShader, b.shaders},
		{KindBuffer, b.buffers},
		{KindTexture, b.textures},
		{KindFramebuffer, b.framebuffers},
		{KindRenderbuffer, b.renderbuffers},
	}
	stats := make([]TableStat, 0, len(tables))
	for _, t := range tables {
		stats = append(stats, TableStat{Kind: t.kind, Len: t.table.Len(), Live: t.table.Live()})
	}
	return stats
}

// lookup resolves id in table; unknown and null ids resolve to nil, which the
// context treats as "unbind".
func lookup(table *handle.Table[Object], id uint32) Object {
	obj, _ := table.Get(id)
	return obj
}

// fail aborts the current import call. The panic unwinds into the guest call
// and surfaces as an error from whichever export the host invoked.
func (b *Bindings) fail(name string, err error) {
	b.logger.Error("GL import failed", zap.String("import", name), zap.Error(err))
	panic(&wasm.HostFunctionError{FunctionName: name, Err: err})
}

func (b *Bindings) readString(mod api.Module, name string, ptr, length uint32) string {
	s, err := b.bridge.Memory(mod).ReadString(ptr, length)
	if err != nil {
		b.fail(name, err)
	}
	return s
}

func (b *Bindings) view(mod api.Module, name string, ptr, length uint32) []byte {
	buf, err := b.bridge.Memory(mod).View(ptr, length)
	if err != nil {
		b.fail(name, err)
	}
	return buf
}

// logInfo reports a non-empty compiler or linker log without failing.
func (b *Bindings) logInfo(msg, info string, fields ...zap.Field) {
	if len(info) == 0 {
		return
	}
	info = strings.TrimRight(info, "\x00\n")
	b.logger.Error(msg, append(fields, zap.String("log", info))...)
}

// Imports returns every GL import function.
func (b *Bindings) Imports() *wasm.Imports {
	s := wasm.NewImports()
	b.stateImports(s)
	b.bufferImports(s)
	b.textureImports(s)
	b.framebufferImports(s)
	b.shaderImports(s)
	b.uniformImports(s)
	return s
}

func (b *Bindings) stateImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("viewport", func(x, y, w, h int32) { c.Viewport(x, y, w, h) }, "x", "y", "w", "h")
	s.Func("scissor", func(x, y, w, h int32) { c.Scissor(x, y, w, h) }, "x", "y", "w", "h")
	s.Func("get_viewport", func(ctx context.Context, mod api.Module, ptr, length uint32) {
		view, err := b.bridge.Memory(mod).ViewU32(ptr, length)
		if err != nil {
			b.fail("get_viewport", err)
		}
		vp := c.GetViewport()
		view.CopyFrom([]uint32{uint32(vp[0]), uint32(vp[1]), uint32(vp[2]), uint32(vp[3])})
	}, "ptr", "len")

	s.Func("clear_color", func(r, g, bl, a float32) { c.ClearColor(r, g, bl, a) }, "r", "g", "b", "a")
	s.Func("clear", func(mask uint32) { c.Clear(mask) }, "mask")
	s.Func("enable", func(e uint32) { c.Enable(e) }, "capability")
	s.Func("disable", func(e uint32) { c.Disable(e) }, "capability")
	s.Func("blend_func", func(src, dst uint32) { c.BlendFunc(src, dst) }, "src", "dst")

	s.Func("draw_arrays", func(mode uint32, start, count int32) {
		c.DrawArrays(mode, start, count)
	}, "mode", "start", "count")
	s.Func("draw_elements", func(mode uint32, count int32, typ uint32, offset int32) {
		c.DrawElements(mode, count, typ, offset)
	}, "mode", "count", "type", "offset")

	s.Func("stencil_func", func(fn uint32, ref int32, mask uint32) { c.StencilFunc(fn, ref, mask) }, "condition", "reference", "mask")
	s.Func("stencil_op", func(fail, zfail, pass uint32) { c.StencilOp(fail, zfail, pass) }, "stencil_fail", "depth_fail", "pass")
	s.Func("color_mask", func(r, g, bl, a uint32) { c.ColorMask(r != 0, g != 0, bl != 0, a != 0) }, "r", "g", "b", "a")
	s.Func("depth_mask", func(enabled uint32) { c.DepthMask(enabled != 0) }, "enabled")
	s.Func("stencil_mask", func(bits uint32) { c.StencilMask(bits) }, "bits")
}

func (b *Bindings) bufferImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("create_buffer", func() uint32 {
		return b.buffers.Add(c.CreateBuffer())
	})
	s.Func("bind_buffer", func(target, id uint32) {
		c.BindBuffer(target, lookup(b.buffers, id))
	}, "target", "id")
	s.Func("upload_buffer_data", func(ctx context.Context, mod api.Module, target, ptr, length uint32) {
		c.BufferData(target, b.view(mod, "upload_buffer_data", ptr, length), StaticDraw)
	}, "target", "ptr", "len")
	s.Func("vertex_attrib_pointer", func(attrib uint32, components int32, typ, normalize uint32, stride, offset int32) {
		c.VertexAttribPointer(attrib, components, typ, normalize != 0, stride, offset)
	}, "attrib", "components", "component_type", "normalize", "stride", "offset")
	s.Func("enable_attribute", func(attrib uint32) { c.EnableVertexAttribArray(attrib) }, "attrib")
	s.Func("disable_attribute", func(attrib uint32) { c.DisableVertexAttribArray(attrib) }, "attrib")
}

func (b *Bindings) textureImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("create_texture", func() uint32 {
		return b.textures.Add(c.CreateTexture())
	})
	s.Func("bind_texture", func(id uint32) {
		c.BindTexture(Texture2D, lookup(b.textures, id))
	}, "id")
	s.Func("active_texture", func(unit uint32) { c.ActiveTexture(Texture0 + unit) }, "unit")
	s.Func("upload_image_data", func(ctx context.Context, mod api.Module, w, h int32, format, typ, ptr, length uint32) {
		pixels := b.view(mod, "upload_image_data", ptr, length)
		c.TexImage2D(Texture2D, 0, format, w, h, 0, format, typ, pixels)
	}, "w", "h", "format", "type", "ptr", "len")
	s.Func("tex_parameter", func(param uint32, value int32) {
		c.TexParameteri(Texture2D, param, value)
	}, "param", "value")
}

func (b *Bindings) framebufferImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("create_framebuffer", func() uint32 {
		return b.framebuffers.Add(c.CreateFramebuffer())
	})
	s.Func("delete_framebuffer", func(id uint32) {
		if fb, ok := b.framebuffers.Delete(id); ok && fb != nil {
			c.DeleteFramebuffer(fb)
		}
	}, "fb_id")
	s.Func("bind_framebuffer", func(id uint32) {
		c.BindFramebuffer(Framebuffer, lookup(b.framebuffers, id))
	}, "fb_id")
	s.Func("get_bound_framebuffer", func() uint32 {
		binding := c.FramebufferBinding()
		if binding == nil {
			return handle.Null
		}
		return b.framebuffers.IndexOf(binding)
	})
	s.Func("framebuffer_texture_2d", func(texID uint32) {
		c.FramebufferTexture2D(Framebuffer, ColorAttachment0, Texture2D, lookup(b.textures, texID), 0)
	}, "tex_id")
	s.Func("framebuffer_renderbuffer", func(rbID uint32) {
		c.FramebufferRenderbuffer(Framebuffer, DepthAttachment, Renderbuffer, lookup(b.renderbuffers, rbID))
	}, "rb_id")

	s.Func("create_renderbuffer", func() uint32 {
		return b.renderbuffers.Add(c.CreateRenderbuffer())
	})
	s.Func("delete_renderbuffer", func(id uint32) {
		if rb, ok := b.renderbuffers.Delete(id); ok && rb != nil {
			c.DeleteRenderbuffer(rb)
		}
	}, "rb_id")
	s.Func("bind_renderbuffer", func(id uint32) {
		c.BindRenderbuffer(Renderbuffer, lookup(b.renderbuffers, id))
	}, "rb_id")
	s.Func("renderbuffer_depth_storage", func(w, h int32) {
		c.RenderbufferStorage(Renderbuffer, DepthComponent16, w, h)
	}, "w", "h")
}

func (b *Bindings) shaderImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("create_shader_program", func() uint32 {
		return b.programs.Add(c.CreateProgram())
	})
	s.Func("create_shader", func(ctx context.Context, mod api.Module, typ, srcPtr, srcLen uint32) uint32 {
		var glType uint32
		switch typ {
		case ShaderTypeVertex:
			glType = VertexShader
		case ShaderTypeFragment:
			glType = FragmentShader
		default:
			b.logger.Error("Failed to create shader", zap.Error(&InvalidShaderTypeError{Type: typ}))
			return handle.Null
		}

		sh := c.CreateShader(glType)
		c.ShaderSource(sh, b.readString(mod, "create_shader", srcPtr, srcLen))
		c.CompileShader(sh)
		b.logInfo("Shader compilation reported errors", c.ShaderInfoLog(sh), zap.Uint32("shader_type", typ))

		return b.shaders.Add(sh)
	}, "type", "src_ptr", "src_len")
	s.Func("bind_attrib_location", func(ctx context.Context, mod api.Module, programID, namePtr, nameLen, idx uint32) {
		name := b.readString(mod, "bind_attrib_location", namePtr, nameLen)
		c.BindAttribLocation(lookup(b.programs, programID), idx, name)
	}, "program_id", "name_ptr", "name_len", "idx")
	s.Func("link_program", func(programID, vertID, fragID uint32) {
		program := lookup(b.programs, programID)
		c.AttachShader(program, lookup(b.shaders, vertID))
		c.AttachShader(program, lookup(b.shaders, fragID))
		c.LinkProgram(program)
		b.logInfo("Program link reported errors", c.ProgramInfoLog(program), zap.Uint32("program_id", programID))
	}, "program_id", "vert_id", "frag_id")
	s.Func("use_program", func(programID uint32) {
		c.UseProgram(lookup(b.programs, programID))
	}, "program_id")
}

// uniform resolves a uniform location by name. Locations are looked up on
// every call, never cached.
func (b *Bindings) uniform(mod api.Module, fn string, programID, namePtr, nameLen uint32) Object {
	name := b.readString(mod, fn, namePtr, nameLen)
	return b.ctx.UniformLocation(lookup(b.programs, programID), name)
}

func (b *Bindings) uniformImports(s *wasm.Imports) {
	c := b.ctx
	s.Func("set_uniform_int_raw", func(ctx context.Context, mod api.Module, programID, namePtr, nameLen uint32, i int32) {
		c.Uniform1i(b.uniform(mod, "set_uniform_int_raw", programID, namePtr, nameLen), i)
	}, "program_id", "name_ptr", "name_len", "i")
	s.Func("set_uniform_f32_raw", func(ctx context.Context, mod api.Module, programID, namePtr, nameLen uint32, f float32) {
		c.Uniform1f(b.uniform(mod, "set_uniform_f32_raw", programID, namePtr, nameLen), f)
	}, "program_id", "name_ptr", "name_len", "f")
	s.Func("set_uniform_vec4_raw", func(ctx context.Context, mod api.Module, programID, namePtr, nameLen uint32, x, y, z, w float32) {
		c.Uniform4f(b.uniform(mod, "set_uniform_vec4_raw", programID, namePtr, nameLen), x, y, z, w)
	}, "program_id", "name_ptr", "name_len", "x", "y", "z", "w")
	s.Func("set_uniform_mat4_raw", func(ctx context.Context, mod api.Module, programID, namePtr, nameLen, matPtr uint32) {
		mat, err := b.bridge.Memory(mod).ViewF32(matPtr, 16)
		if err != nil {
			b.fail("set_uniform_mat4_raw", err)
		}
		loc := b.uniform(mod, "set_uniform_mat4_raw", programID, namePtr, nameLen)
		c.UniformMatrix4fv(loc, false, mat.Slice())
	}, "program_id", "name_ptr", "name_len", "mat")
}
