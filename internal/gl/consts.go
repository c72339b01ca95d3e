package gl

// WebGL enum values used by the bindings. Modules pass most enums through
// verbatim; these are the ones the host supplies itself.
const (
	DepthBufferBit   uint32 = 0x00000100
	StencilBufferBit uint32 = 0x00000400
	ColorBufferBit   uint32 = 0x00004000

	Viewport uint32 = 0x0BA2

	Texture2D        uint32 = 0x0DE1
	UnsignedByte     uint32 = 0x1401
	Float            uint32 = 0x1406
	RGBA             uint32 = 0x1908
	Nearest          int32  = 0x2600
	Linear           int32  = 0x2601
	TextureMagFilter uint32 = 0x2800
	TextureMinFilter uint32 = 0x2801
	TextureWrapS     uint32 = 0x2802
	TextureWrapT     uint32 = 0x2803
	Texture0         uint32 = 0x84C0
	ClampToEdge      int32  = 0x812F

	ArrayBuffer        uint32 = 0x8892
	ElementArrayBuffer uint32 = 0x8893
	StaticDraw         uint32 = 0x88E4

	FragmentShader uint32 = 0x8B30
	VertexShader   uint32 = 0x8B31

	Framebuffer        uint32 = 0x8D40
	Renderbuffer       uint32 = 0x8D41
	FramebufferBinding uint32 = 0x8CA6
	ColorAttachment0   uint32 = 0x8CE0
	DepthAttachment    uint32 = 0x8D00
	DepthComponent16   uint32 = 0x81A5
)

// Shader types as passed by the module to create_shader.
const (
	ShaderTypeVertex   uint32 = 0
	ShaderTypeFragment uint32 = 1
)
