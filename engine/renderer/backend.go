package renderer

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// TextureFormat enumerates the formats the pipeline allocates. Backends map
// these to their native equivalents.
type TextureFormat int

const (
	FormatRGBA8 TextureFormat = iota
	FormatSRGBA8
	FormatRGBA16F
	FormatRG16F
	FormatR8
	FormatDepth32F
)

// TextureType distinguishes 2D textures from cubemaps.
type TextureType int

const (
	TextureType2D TextureType = iota
	TextureTypeCube
)

// TextureFilter selects sampling behavior.
type TextureFilter int

const (
	FilterLinear TextureFilter = iota
	FilterNearest
	FilterTrilinear
)

// TextureWrap selects addressing behavior.
type TextureWrap int

const (
	WrapRepeat TextureWrap = iota
	WrapClampToEdge
	WrapClampToBorder
)

// TextureDesc describes a texture allocation. Pixels (or PixelsF for float
// formats) may be nil for render-to textures.
type TextureDesc struct {
	Name      string
	Type      TextureType
	Format    TextureFormat
	Width     uint32
	Height    uint32
	MipLevels uint32 // 0 means 1
	Filter    TextureFilter
	Wrap      TextureWrap
	Pixels    []uint8
	PixelsF   []float32
}

// Texture is a backend-owned GPU texture.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat
	Destroy()
}

// Mesh is backend-owned GPU geometry.
type Mesh interface {
	IndexCount() uint32
	Destroy()
}

// RenderTargetDesc describes a framebuffer-like object: zero or more color
// attachments and an optional depth attachment, all sized identically.
type RenderTargetDesc struct {
	Name         string
	Width        uint32
	Height       uint32
	ColorFormats []TextureFormat
	HasDepth     bool
	// DepthReadable requests that the depth attachment be usable as a
	// sampled texture (position reconstruction, shadow sampling).
	DepthReadable bool
	Filter        TextureFilter
	Wrap          TextureWrap
}

// RenderTarget is a backend-owned framebuffer.
type RenderTarget interface {
	Width() uint32
	Height() uint32
	ColorTexture(index int) Texture
	DepthTexture() Texture
	Destroy()
}

// ShaderDesc carries everything a backend needs to build one pipeline
// variant. Sources are GLSL; the Vulkan backend resolves them to precompiled
// SPIR-V by name and define-set instead of compiling at runtime.
type ShaderDesc struct {
	Name           string
	VertexSource   string
	FragmentSource string
	Defines        []string

	// Fixed-function state baked into the pipeline.
	DepthTest    bool
	DepthWrite   bool
	CullMode     resources.FaceCullMode
	ColorTargets int
	BlendAdd     bool
}

// Shader is a compiled pipeline variant.
type Shader interface {
	Name() string
	Destroy()
}

// Uniform block binding points, identical across backends. OpenGL maps them
// to UBO binding indices, Vulkan to descriptor set 0 bindings, Metal to
// buffer argument indices.
const (
	UniformSlotPerFrame  = 0
	UniformSlotPerObject = 1
	UniformSlotMaterial  = 2
	UniformSlotLights    = 3
	UniformSlotParams    = 4
)

// Texture binding slots, identical across backends.
const (
	TexSlotAlbedoMap = iota
	TexSlotNormalMap
	TexSlotMetallicRoughnessMap
	TexSlotAOMap
	TexSlotEmissiveMap
	TexSlotHeightMap

	// Lighting pass inputs reuse the lower slots.
	TexSlotGBuffer0   = 0
	TexSlotGBuffer1   = 1
	TexSlotGBuffer2   = 2
	TexSlotGBuffer3   = 3
	TexSlotDepth      = 4
	TexSlotShadow0    = 5 // 5..8: shadow cascades
	TexSlotIrradiance = 9
	TexSlotPrefilter  = 10
	TexSlotBRDFLUT    = 11
	TexSlotSSAO       = 12
	TexSlotExtra0     = 13
	TexSlotExtra1     = 14
	TexSlotExtra2     = 15
)

// PassDesc opens a render pass. Exactly one of Target/TargetCube may be set;
// both nil renders to the swapchain.
type PassDesc struct {
	Label  string
	Target RenderTarget

	// Cubemap-face pass (IBL precompute).
	TargetCube Texture
	Face       int
	Mip        int

	ClearColor *math.Vec4
	ClearDepth bool
	DepthOnly  bool
	// ViewportScale shrinks the viewport for mip-level rendering; 0 means 1.
	ViewportWidth  uint32
	ViewportHeight uint32
}

// Backend is the GPU driver contract. One frame is bracketed by
// BeginFrame/EndFrame; all pass and bind calls happen between them, except
// resource creation and the explicitly one-shot IBL precompute passes, which
// may run outside a frame.
//
// Orchestration code never branches on the concrete backend type.
type Backend interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint32) error

	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	CreateMesh(data *resources.MeshData) (Mesh, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateRenderTarget(desc RenderTargetDesc) (RenderTarget, error)
	CreateShader(desc ShaderDesc) (Shader, error)

	BeginPass(desc PassDesc) error
	EndPass() error

	BindShader(shader Shader) error
	BindUniform(slot int, data []byte) error
	BindTexture(slot int, texture Texture) error

	DrawMesh(mesh Mesh) error
	DrawFullscreen() error

	// CopyTarget copies src's first color attachment into dst (TAA history).
	CopyTarget(src, dst RenderTarget) error
	// BlitToSwapchain presents a target's first color attachment.
	BlitToSwapchain(src RenderTarget) error
	// GenerateMipmaps populates the mip chain of a texture from level 0.
	GenerateMipmaps(texture Texture) error
}
