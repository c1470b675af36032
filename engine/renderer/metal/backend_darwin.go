// Package metal implements the renderer backend on Apple Metal. Shaders are
// the embedded MSL translations in renderer/mslsrc, compiled at startup;
// .metal files under assets/shaders/msl are a per-project escape hatch for
// passes the embedded set does not cover. The frame model mirrors the Vulkan
// backend with the driver handling image layouts itself.
package metal

/*
#cgo CFLAGS: -Werror -xobjective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework Metal -framework QuartzCore -framework Cocoa

@import Metal;
@import QuartzCore.CAMetalLayer;

#include <stdlib.h>
#include <string.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Metal/Metal.h>
#include <QuartzCore/CAMetalLayer.h>
#include <AppKit/AppKit.h>

static CFTypeRef createDevice(void) {
	@autoreleasepool {
		return CFBridgingRetain(MTLCreateSystemDefaultDevice());
	}
}

static CFTypeRef deviceNewQueue(CFTypeRef devRef) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		return CFBridgingRetain([dev newCommandQueue]);
	}
}

static CFTypeRef attachLayer(CFTypeRef devRef, void *nsWindow, double width, double height) {
	@autoreleasepool {
		NSWindow *window = (__bridge NSWindow *)nsWindow;
		CAMetalLayer *layer = [CAMetalLayer layer];
		layer.device = (__bridge id<MTLDevice>)devRef;
		layer.pixelFormat = MTLPixelFormatBGRA8Unorm;
		layer.framebufferOnly = NO;
		layer.drawableSize = CGSizeMake(width, height);
		window.contentView.layer = layer;
		window.contentView.wantsLayer = YES;
		return CFBridgingRetain(layer);
	}
}

static void layerResize(CFTypeRef layerRef, double width, double height) {
	@autoreleasepool {
		CAMetalLayer *layer = (__bridge CAMetalLayer *)layerRef;
		layer.drawableSize = CGSizeMake(width, height);
	}
}

static CFTypeRef layerNextDrawable(CFTypeRef layerRef) {
	@autoreleasepool {
		CAMetalLayer *layer = (__bridge CAMetalLayer *)layerRef;
		return CFBridgingRetain([layer nextDrawable]);
	}
}

static CFTypeRef drawableTexture(CFTypeRef drawableRef) {
	@autoreleasepool {
		id<CAMetalDrawable> drawable = (__bridge id<CAMetalDrawable>)drawableRef;
		return CFBridgingRetain(drawable.texture);
	}
}

static CFTypeRef deviceNewTexture(CFTypeRef devRef, NSUInteger width, NSUInteger height,
		MTLPixelFormat format, NSUInteger mips, bool cube, bool renderTarget) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLTextureDescriptor *desc;
		if (cube) {
			desc = [MTLTextureDescriptor textureCubeDescriptorWithPixelFormat:format
				size:width mipmapped:mips > 1];
		} else {
			desc = [MTLTextureDescriptor texture2DDescriptorWithPixelFormat:format
				width:width height:height mipmapped:mips > 1];
		}
		desc.mipmapLevelCount = mips;
		desc.storageMode = MTLStorageModePrivate;
		desc.usage = MTLTextureUsageShaderRead;
		if (renderTarget) {
			desc.usage |= MTLTextureUsageRenderTarget;
		}
		return CFBridgingRetain([dev newTextureWithDescriptor:desc]);
	}
}

static void textureUpload(CFTypeRef queueRef, CFTypeRef texRef, CFTypeRef stagingRef,
		NSUInteger width, NSUInteger height, NSUInteger bytesPerRow, NSUInteger slice, NSUInteger sliceBytes) {
	@autoreleasepool {
		id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)queueRef;
		id<MTLCommandBuffer> cmd = [queue commandBuffer];
		id<MTLBlitCommandEncoder> blit = [cmd blitCommandEncoder];
		[blit copyFromBuffer:(__bridge id<MTLBuffer>)stagingRef
			sourceOffset:slice * sliceBytes
			sourceBytesPerRow:bytesPerRow
			sourceBytesPerImage:sliceBytes
			sourceSize:MTLSizeMake(width, height, 1)
			toTexture:(__bridge id<MTLTexture>)texRef
			destinationSlice:slice
			destinationLevel:0
			destinationOrigin:MTLOriginMake(0, 0, 0)];
		[blit endEncoding];
		[cmd commit];
		[cmd waitUntilCompleted];
	}
}

static void queueGenerateMipmaps(CFTypeRef queueRef, CFTypeRef texRef) {
	@autoreleasepool {
		id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)queueRef;
		id<MTLCommandBuffer> cmd = [queue commandBuffer];
		id<MTLBlitCommandEncoder> blit = [cmd blitCommandEncoder];
		[blit generateMipmapsForTexture:(__bridge id<MTLTexture>)texRef];
		[blit endEncoding];
		[cmd commit];
		[cmd waitUntilCompleted];
	}
}

static CFTypeRef deviceNewBuffer(CFTypeRef devRef, const void *data, NSUInteger length) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		if (data != NULL) {
			return CFBridgingRetain([dev newBufferWithBytes:data length:length
				options:MTLResourceStorageModeShared]);
		}
		return CFBridgingRetain([dev newBufferWithLength:length
			options:MTLResourceStorageModeShared]);
	}
}

static CFTypeRef deviceNewLibrary(CFTypeRef devRef, const char *source, CFTypeRef *errRef) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		NSError *err = nil;
		id<MTLLibrary> lib = [dev newLibraryWithSource:[NSString stringWithUTF8String:source]
			options:nil error:&err];
		if (err != nil) {
			*errRef = CFBridgingRetain(err.localizedDescription);
			return NULL;
		}
		return CFBridgingRetain(lib);
	}
}

static CFTypeRef libraryNewFunction(CFTypeRef libRef, const char *name) {
	@autoreleasepool {
		id<MTLLibrary> lib = (__bridge id<MTLLibrary>)libRef;
		return CFBridgingRetain([lib newFunctionWithName:[NSString stringWithUTF8String:name]]);
	}
}

static CFTypeRef deviceNewPipeline(CFTypeRef devRef, CFTypeRef vertFn, CFTypeRef fragFn,
		const MTLPixelFormat *colorFormats, NSUInteger colorCount, MTLPixelFormat depthFormat,
		bool blendAdd, bool meshInput, CFTypeRef *errRef) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLRenderPipelineDescriptor *desc = [MTLRenderPipelineDescriptor new];
		desc.vertexFunction = (__bridge id<MTLFunction>)vertFn;
		desc.fragmentFunction = (__bridge id<MTLFunction>)fragFn;
		for (NSUInteger i = 0; i < colorCount; i++) {
			desc.colorAttachments[i].pixelFormat = colorFormats[i];
			if (blendAdd) {
				desc.colorAttachments[i].blendingEnabled = YES;
				desc.colorAttachments[i].sourceRGBBlendFactor = MTLBlendFactorOne;
				desc.colorAttachments[i].destinationRGBBlendFactor = MTLBlendFactorOne;
				desc.colorAttachments[i].sourceAlphaBlendFactor = MTLBlendFactorOne;
				desc.colorAttachments[i].destinationAlphaBlendFactor = MTLBlendFactorOne;
			}
		}
		if (depthFormat != MTLPixelFormatInvalid) {
			desc.depthAttachmentPixelFormat = depthFormat;
		}
		if (meshInput) {
			MTLVertexDescriptor *vtx = [MTLVertexDescriptor new];
			vtx.attributes[0].format = MTLVertexFormatFloat3;
			vtx.attributes[0].offset = 0;
			vtx.attributes[0].bufferIndex = 0;
			vtx.attributes[1].format = MTLVertexFormatFloat3;
			vtx.attributes[1].offset = 12;
			vtx.attributes[1].bufferIndex = 0;
			vtx.attributes[2].format = MTLVertexFormatFloat2;
			vtx.attributes[2].offset = 24;
			vtx.attributes[2].bufferIndex = 0;
			vtx.attributes[3].format = MTLVertexFormatFloat3;
			vtx.attributes[3].offset = 32;
			vtx.attributes[3].bufferIndex = 0;
			vtx.layouts[0].stride = 44;
			desc.vertexDescriptor = vtx;
		}
		NSError *err = nil;
		id<MTLRenderPipelineState> pipe = [dev newRenderPipelineStateWithDescriptor:desc error:&err];
		if (err != nil) {
			*errRef = CFBridgingRetain(err.localizedDescription);
			return NULL;
		}
		return CFBridgingRetain(pipe);
	}
}

static CFTypeRef deviceNewDepthState(CFTypeRef devRef, bool test, bool write) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLDepthStencilDescriptor *desc = [MTLDepthStencilDescriptor new];
		desc.depthCompareFunction = test ? MTLCompareFunctionLessEqual : MTLCompareFunctionAlways;
		desc.depthWriteEnabled = write;
		return CFBridgingRetain([dev newDepthStencilStateWithDescriptor:desc]);
	}
}

static CFTypeRef deviceNewSampler(CFTypeRef devRef, bool nearest, int wrapMode, NSUInteger mips) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLSamplerDescriptor *desc = [MTLSamplerDescriptor new];
		desc.minFilter = nearest ? MTLSamplerMinMagFilterNearest : MTLSamplerMinMagFilterLinear;
		desc.magFilter = desc.minFilter;
		desc.mipFilter = mips > 1 ? MTLSamplerMipFilterLinear : MTLSamplerMipFilterNotMipmapped;
		MTLSamplerAddressMode mode = MTLSamplerAddressModeRepeat;
		if (wrapMode == 1) mode = MTLSamplerAddressModeClampToEdge;
		if (wrapMode == 2) mode = MTLSamplerAddressModeClampToBorderColor;
		desc.sAddressMode = mode;
		desc.tAddressMode = mode;
		desc.rAddressMode = mode;
		desc.borderColor = MTLSamplerBorderColorOpaqueWhite;
		return CFBridgingRetain([dev newSamplerStateWithDescriptor:desc]);
	}
}

static CFTypeRef queueNewBuffer(CFTypeRef queueRef) {
	@autoreleasepool {
		id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)queueRef;
		return CFBridgingRetain([queue commandBuffer]);
	}
}

static void cmdBufferCommit(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		[(__bridge id<MTLCommandBuffer>)cmdBufRef commit];
	}
}

static void cmdBufferWaitUntilCompleted(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		[(__bridge id<MTLCommandBuffer>)cmdBufRef waitUntilCompleted];
	}
}

static void cmdBufferPresent(CFTypeRef cmdBufRef, CFTypeRef drawableRef) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmd = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		[cmd presentDrawable:(__bridge id<CAMetalDrawable>)drawableRef];
	}
}

typedef struct {
	CFTypeRef colors[8];
	NSUInteger colorCount;
	CFTypeRef depth;
	bool clearColor;
	bool clearDepth;
	float r, g, b, a;
	NSUInteger slice;
	NSUInteger level;
} passDesc;

static CFTypeRef cmdBufferRenderEncoder(CFTypeRef cmdBufRef, passDesc pd) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		MTLRenderPassDescriptor *desc = [MTLRenderPassDescriptor new];
		for (NSUInteger i = 0; i < pd.colorCount; i++) {
			desc.colorAttachments[i].texture = (__bridge id<MTLTexture>)pd.colors[i];
			desc.colorAttachments[i].loadAction = pd.clearColor ? MTLLoadActionClear : MTLLoadActionLoad;
			desc.colorAttachments[i].storeAction = MTLStoreActionStore;
			desc.colorAttachments[i].clearColor = MTLClearColorMake(pd.r, pd.g, pd.b, pd.a);
			desc.colorAttachments[i].slice = pd.slice;
			desc.colorAttachments[i].level = pd.level;
		}
		if (pd.depth != NULL) {
			desc.depthAttachment.texture = (__bridge id<MTLTexture>)pd.depth;
			desc.depthAttachment.loadAction = pd.clearDepth ? MTLLoadActionClear : MTLLoadActionLoad;
			desc.depthAttachment.storeAction = MTLStoreActionStore;
			desc.depthAttachment.clearDepth = 1.0;
		}
		return CFBridgingRetain([cmdBuf renderCommandEncoderWithDescriptor:desc]);
	}
}

static void renderEncEnd(CFTypeRef encRef) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef endEncoding];
	}
}

static void renderEncViewport(CFTypeRef encRef, double w, double h) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		MTLViewport vp = {0, 0, w, h, 0, 1};
		[enc setViewport:vp];
	}
}

static void renderEncState(CFTypeRef encRef, CFTypeRef pipeRef, CFTypeRef depthRef, int cullMode) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setRenderPipelineState:(__bridge id<MTLRenderPipelineState>)pipeRef];
		[enc setDepthStencilState:(__bridge id<MTLDepthStencilState>)depthRef];
		MTLCullMode cull = MTLCullModeNone;
		if (cullMode == 1) cull = MTLCullModeFront;
		if (cullMode == 2) cull = MTLCullModeBack;
		[enc setCullMode:cull];
		[enc setFrontFacingWinding:MTLWindingCounterClockwise];
	}
}

static void renderEncSetUniform(CFTypeRef encRef, const void *bytes, NSUInteger length, NSUInteger slot) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		// Vertex buffer 0 carries geometry; uniform slots live at 1..5.
		[enc setVertexBytes:bytes length:length atIndex:slot + 1];
		[enc setFragmentBytes:bytes length:length atIndex:slot + 1];
	}
}

static void renderEncSetTexture(CFTypeRef encRef, CFTypeRef texRef, CFTypeRef samplerRef, NSUInteger slot) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setFragmentTexture:(__bridge id<MTLTexture>)texRef atIndex:slot];
		[enc setFragmentSamplerState:(__bridge id<MTLSamplerState>)samplerRef atIndex:slot];
	}
}

static void renderEncDrawIndexed(CFTypeRef encRef, CFTypeRef vertexBufRef, CFTypeRef indexBufRef, NSUInteger indexCount) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setVertexBuffer:(__bridge id<MTLBuffer>)vertexBufRef offset:0 atIndex:0];
		[enc drawIndexedPrimitives:MTLPrimitiveTypeTriangle
			indexCount:indexCount
			indexType:MTLIndexTypeUInt32
			indexBuffer:(__bridge id<MTLBuffer>)indexBufRef
			indexBufferOffset:0];
	}
}

static void renderEncDrawFullscreen(CFTypeRef encRef) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc drawPrimitives:MTLPrimitiveTypeTriangle vertexStart:0 vertexCount:3];
	}
}

static void cmdBufferBlitTexture(CFTypeRef cmdBufRef, CFTypeRef srcRef, CFTypeRef dstRef,
		NSUInteger width, NSUInteger height) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmd = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		id<MTLBlitCommandEncoder> blit = [cmd blitCommandEncoder];
		[blit copyFromTexture:(__bridge id<MTLTexture>)srcRef
			sourceSlice:0 sourceLevel:0
			sourceOrigin:MTLOriginMake(0, 0, 0)
			sourceSize:MTLSizeMake(width, height, 1)
			toTexture:(__bridge id<MTLTexture>)dstRef
			destinationSlice:0 destinationLevel:0
			destinationOrigin:MTLOriginMake(0, 0, 0)];
		[blit endEncoding];
	}
}

static char *cfErrorString(CFTypeRef errRef) {
	@autoreleasepool {
		NSString *s = (__bridge NSString *)errRef;
		return strdup(s.UTF8String);
	}
}
*/
import "C"

import (
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/mslsrc"
	"github.com/spaghettifunk/lumen/engine/resources"
)

const defaultShaderDir = "assets/shaders/msl"

// MetalBackend drives a CAMetalLayer attached to the window's content view.
type MetalBackend struct {
	device C.CFTypeRef
	queue  C.CFTypeRef
	layer  C.CFTypeRef

	nsWindow  unsafe.Pointer
	shaderDir string
	width     uint32
	height    uint32

	cmdBuf   C.CFTypeRef
	drawable C.CFTypeRef
	encoder  C.CFTypeRef
	inPass   bool

	currentShader *metalShader
	boundTextures [16]*metalTexture
	uniformData   [5][]byte
	fallback      *metalTexture
}

// New builds a Metal backend for the given Cocoa window
// (glfw.Window.GetCocoaWindow).
func New(nsWindow unsafe.Pointer, shaderDir string) *MetalBackend {
	if shaderDir == "" {
		shaderDir = defaultShaderDir
	}
	return &MetalBackend{nsWindow: nsWindow, shaderDir: shaderDir}
}

func (b *MetalBackend) Initialize(appName string, width, height uint32) error {
	b.device = C.createDevice()
	if b.device == 0 {
		return fmt.Errorf("no Metal device available")
	}
	b.queue = C.deviceNewQueue(b.device)
	b.layer = C.attachLayer(b.device, b.nsWindow, C.double(width), C.double(height))
	b.width, b.height = width, height

	fallback, err := b.CreateTexture(renderer.TextureDesc{
		Name:   "metal.fallback.white",
		Type:   renderer.TextureType2D,
		Format: renderer.FormatRGBA8,
		Width:  1, Height: 1,
		Filter: renderer.FilterNearest,
		Wrap:   renderer.WrapRepeat,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return err
	}
	b.fallback = fallback.(*metalTexture)

	core.LogInfo("Metal backend initialized for %q (%dx%d)", appName, width, height)
	return nil
}

func (b *MetalBackend) Shutdown() error {
	core.LogInfo("Metal backend shut down")
	return nil
}

func (b *MetalBackend) Resized(width, height uint32) error {
	b.width, b.height = width, height
	C.layerResize(b.layer, C.double(width), C.double(height))
	return nil
}

func (b *MetalBackend) BeginFrame(deltaTime float64) error {
	b.drawable = C.layerNextDrawable(b.layer)
	if b.drawable == 0 {
		return core.ErrSwapchainBooting
	}
	b.cmdBuf = C.queueNewBuffer(b.queue)
	b.currentShader = nil
	for i := range b.boundTextures {
		b.boundTextures[i] = nil
	}
	return nil
}

func (b *MetalBackend) EndFrame(deltaTime float64) error {
	if b.inPass {
		if err := b.EndPass(); err != nil {
			return err
		}
	}
	C.cmdBufferPresent(b.cmdBuf, b.drawable)
	C.cmdBufferCommit(b.cmdBuf)
	b.cmdBuf = 0
	b.drawable = 0
	return nil
}

func mapPixelFormat(format renderer.TextureFormat) (C.MTLPixelFormat, error) {
	switch format {
	case renderer.FormatRGBA8:
		return C.MTLPixelFormatRGBA8Unorm, nil
	case renderer.FormatSRGBA8:
		return C.MTLPixelFormatRGBA8Unorm_sRGB, nil
	case renderer.FormatRGBA16F:
		return C.MTLPixelFormatRGBA16Float, nil
	case renderer.FormatRG16F:
		return C.MTLPixelFormatRG16Float, nil
	case renderer.FormatR8:
		return C.MTLPixelFormatR8Unorm, nil
	case renderer.FormatDepth32F:
		return C.MTLPixelFormatDepth32Float, nil
	default:
		return C.MTLPixelFormatInvalid, fmt.Errorf("unsupported texture format %d", format)
	}
}

type metalTexture struct {
	backend *MetalBackend
	handle  C.CFTypeRef
	sampler C.CFTypeRef
	width   uint32
	height  uint32
	format  renderer.TextureFormat
	cube    bool
}

func (t *metalTexture) Width() uint32                  { return t.width }
func (t *metalTexture) Height() uint32                 { return t.height }
func (t *metalTexture) Format() renderer.TextureFormat { return t.format }
func (t *metalTexture) Destroy()                       {}

func (b *MetalBackend) CreateTexture(desc renderer.TextureDesc) (renderer.Texture, error) {
	format, err := mapPixelFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Name, err)
	}
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	cube := desc.Type == renderer.TextureTypeCube
	handle := C.deviceNewTexture(b.device, C.NSUInteger(desc.Width), C.NSUInteger(desc.Height),
		format, C.NSUInteger(mips), C.bool(cube), C.bool(cube))
	if handle == 0 {
		return nil, fmt.Errorf("texture %q: creation failed", desc.Name)
	}

	wrap := 0
	switch desc.Wrap {
	case renderer.WrapClampToEdge:
		wrap = 1
	case renderer.WrapClampToBorder:
		wrap = 2
	}
	sampler := C.deviceNewSampler(b.device, C.bool(desc.Filter == renderer.FilterNearest), C.int(wrap), C.NSUInteger(mips))

	t := &metalTexture{
		backend: b,
		handle:  handle,
		sampler: sampler,
		width:   desc.Width,
		height:  desc.Height,
		format:  desc.Format,
		cube:    cube,
	}

	var pixels []byte
	bytesPerPixel := 4
	switch {
	case desc.Pixels != nil:
		pixels = desc.Pixels
	case desc.PixelsF != nil:
		pixels = packHalfPixels(desc.PixelsF)
		bytesPerPixel = 8
	}
	if pixels != nil {
		staging := C.deviceNewBuffer(b.device, unsafe.Pointer(&pixels[0]), C.NSUInteger(len(pixels)))
		slices := 1
		if cube {
			slices = 6
		}
		sliceBytes := len(pixels) / slices
		for s := 0; s < slices; s++ {
			C.textureUpload(b.queue, handle, staging,
				C.NSUInteger(desc.Width), C.NSUInteger(desc.Height),
				C.NSUInteger(int(desc.Width)*bytesPerPixel),
				C.NSUInteger(s), C.NSUInteger(sliceBytes))
		}
	}
	return t, nil
}

func (b *MetalBackend) GenerateMipmaps(texture renderer.Texture) error {
	t, ok := texture.(*metalTexture)
	if !ok {
		return fmt.Errorf("foreign texture")
	}
	C.queueGenerateMipmaps(b.queue, t.handle)
	return nil
}

type metalMesh struct {
	vertexBuffer C.CFTypeRef
	indexBuffer  C.CFTypeRef
	indexCount   uint32
}

func (m *metalMesh) IndexCount() uint32 { return m.indexCount }
func (m *metalMesh) Destroy()           {}

func (b *MetalBackend) CreateMesh(data *resources.MeshData) (renderer.Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", data.Name)
	}
	const floatsPerVertex = 11
	verts := make([]float32, 0, len(data.Vertices)*floatsPerVertex)
	for _, v := range data.Vertices {
		verts = append(verts,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z,
		)
	}
	vb := C.deviceNewBuffer(b.device, unsafe.Pointer(&verts[0]), C.NSUInteger(len(verts)*4))
	ib := C.deviceNewBuffer(b.device, unsafe.Pointer(&data.Indices[0]), C.NSUInteger(len(data.Indices)*4))
	return &metalMesh{vertexBuffer: vb, indexBuffer: ib, indexCount: uint32(len(data.Indices))}, nil
}

type metalRenderTarget struct {
	backend *MetalBackend
	width   uint32
	height  uint32
	colors  []*metalTexture
	depth   *metalTexture
}

func (rt *metalRenderTarget) Width() uint32  { return rt.width }
func (rt *metalRenderTarget) Height() uint32 { return rt.height }

func (rt *metalRenderTarget) ColorTexture(index int) renderer.Texture {
	if index < 0 || index >= len(rt.colors) {
		return nil
	}
	return rt.colors[index]
}

func (rt *metalRenderTarget) DepthTexture() renderer.Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}

func (rt *metalRenderTarget) Destroy() {}

func (b *MetalBackend) CreateRenderTarget(desc renderer.RenderTargetDesc) (renderer.RenderTarget, error) {
	rt := &metalRenderTarget{backend: b, width: desc.Width, height: desc.Height}
	for i, cf := range desc.ColorFormats {
		format, err := mapPixelFormat(cf)
		if err != nil {
			return nil, fmt.Errorf("render target %q: %w", desc.Name, err)
		}
		handle := C.deviceNewTexture(b.device, C.NSUInteger(desc.Width), C.NSUInteger(desc.Height), format, 1, false, true)
		if handle == 0 {
			return nil, fmt.Errorf("render target %q: color %d creation failed", desc.Name, i)
		}
		sampler := C.deviceNewSampler(b.device, C.bool(desc.Filter == renderer.FilterNearest), 1, 1)
		rt.colors = append(rt.colors, &metalTexture{
			backend: b, handle: handle, sampler: sampler,
			width: desc.Width, height: desc.Height, format: cf,
		})
	}
	if desc.HasDepth || len(desc.ColorFormats) == 0 {
		handle := C.deviceNewTexture(b.device, C.NSUInteger(desc.Width), C.NSUInteger(desc.Height), C.MTLPixelFormatDepth32Float, 1, false, true)
		if handle == 0 {
			return nil, fmt.Errorf("render target %q: depth creation failed", desc.Name)
		}
		sampler := C.deviceNewSampler(b.device, true, 2, 1)
		rt.depth = &metalTexture{
			backend: b, handle: handle, sampler: sampler,
			width: desc.Width, height: desc.Height, format: renderer.FormatDepth32F,
		}
	}
	return rt, nil
}

type metalShader struct {
	name       string
	desc       renderer.ShaderDesc
	pipeline   C.CFTypeRef
	pipelineFS C.CFTypeRef // fullscreen variant without vertex descriptor
	depthState C.CFTypeRef
}

func (s *metalShader) Name() string { return s.name }
func (s *metalShader) Destroy()     {}

// CreateShader compiles the MSL translation of the named shader. The source
// declares vertexMain and fragmentMain entry points.
func (b *MetalBackend) CreateShader(desc renderer.ShaderDesc) (renderer.Shader, error) {
	source, err := b.shaderSource(desc)
	if err != nil {
		return nil, err
	}

	csource := C.CString(source)
	defer C.free(unsafe.Pointer(csource))
	var cerr C.CFTypeRef
	lib := C.deviceNewLibrary(b.device, csource, &cerr)
	if lib == 0 {
		return nil, fmt.Errorf("shader %q: %s", desc.Name, C.GoString(C.cfErrorString(cerr)))
	}

	vertName := C.CString("vertexMain")
	defer C.free(unsafe.Pointer(vertName))
	fragName := C.CString("fragmentMain")
	defer C.free(unsafe.Pointer(fragName))
	vertFn := C.libraryNewFunction(lib, vertName)
	var fragFn C.CFTypeRef
	if desc.FragmentSource != "" {
		fragFn = C.libraryNewFunction(lib, fragName)
	}

	colorTargets := desc.ColorTargets
	if colorTargets == 0 && desc.FragmentSource != "" {
		colorTargets = 1
	}
	formats := make([]C.MTLPixelFormat, maxInt(colorTargets, 1))
	for i := range formats {
		formats[i] = C.MTLPixelFormatRGBA16Float
	}
	depthFormat := C.MTLPixelFormat(C.MTLPixelFormatInvalid)
	if desc.DepthTest || desc.DepthWrite {
		depthFormat = C.MTLPixelFormatDepth32Float
	}

	shader := &metalShader{name: desc.Name, desc: desc}
	shader.pipeline = C.deviceNewPipeline(b.device, vertFn, fragFn,
		&formats[0], C.NSUInteger(colorTargets), depthFormat,
		C.bool(desc.BlendAdd), true, &cerr)
	if shader.pipeline == 0 {
		return nil, fmt.Errorf("shader %q pipeline: %s", desc.Name, C.GoString(C.cfErrorString(cerr)))
	}
	shader.pipelineFS = C.deviceNewPipeline(b.device, vertFn, fragFn,
		&formats[0], C.NSUInteger(colorTargets), depthFormat,
		C.bool(desc.BlendAdd), false, &cerr)
	if shader.pipelineFS == 0 {
		return nil, fmt.Errorf("shader %q fullscreen pipeline: %s", desc.Name, C.GoString(C.cfErrorString(cerr)))
	}
	shader.depthState = C.deviceNewDepthState(b.device, C.bool(desc.DepthTest), C.bool(desc.DepthWrite))
	return shader, nil
}

// shaderSource resolves the MSL for a pass: the embedded translation of the
// GLSL source when one exists, otherwise a .metal file from the shader
// directory so projects can override or extend the set.
func (b *MetalBackend) shaderSource(desc renderer.ShaderDesc) (string, error) {
	if src, ok := mslsrc.Source(desc.Name); ok {
		return mslsrc.Compose(src, desc.Defines), nil
	}
	path := filepath.Join(b.shaderDir, desc.Name+".metal")
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read MSL shader %s: %w", path, err)
	}
	return mslsrc.Compose(string(raw), desc.Defines), nil
}

func (b *MetalBackend) BeginPass(desc renderer.PassDesc) error {
	if b.inPass {
		return fmt.Errorf("BeginPass %q: already inside a pass", desc.Label)
	}
	if b.cmdBuf == 0 {
		b.cmdBuf = C.queueNewBuffer(b.queue)
	}

	var pd C.passDesc
	var width, height uint32
	switch {
	case desc.TargetCube != nil:
		cube, ok := desc.TargetCube.(*metalTexture)
		if !ok || !cube.cube {
			return fmt.Errorf("BeginPass %q: target is not a cubemap texture", desc.Label)
		}
		pd.colors[0] = cube.handle
		pd.colorCount = 1
		pd.slice = C.NSUInteger(desc.Face)
		pd.level = C.NSUInteger(desc.Mip)
		width = maxUint32(cube.width>>uint(desc.Mip), 1)
		height = maxUint32(cube.height>>uint(desc.Mip), 1)
	case desc.Target != nil:
		rt, ok := desc.Target.(*metalRenderTarget)
		if !ok {
			return fmt.Errorf("BeginPass %q: foreign render target", desc.Label)
		}
		for i, c := range rt.colors {
			pd.colors[i] = c.handle
		}
		pd.colorCount = C.NSUInteger(len(rt.colors))
		if rt.depth != nil {
			pd.depth = rt.depth.handle
		}
		width, height = rt.width, rt.height
	default:
		tex := C.drawableTexture(b.drawable)
		pd.colors[0] = tex
		pd.colorCount = 1
		width, height = b.width, b.height
	}

	if desc.ClearColor != nil {
		pd.clearColor = true
		pd.r = C.float(desc.ClearColor.X)
		pd.g = C.float(desc.ClearColor.Y)
		pd.b = C.float(desc.ClearColor.Z)
		pd.a = C.float(desc.ClearColor.W)
	}
	pd.clearDepth = C.bool(desc.ClearDepth)

	if desc.ViewportWidth > 0 {
		width = desc.ViewportWidth
	}
	if desc.ViewportHeight > 0 {
		height = desc.ViewportHeight
	}

	b.encoder = C.cmdBufferRenderEncoder(b.cmdBuf, pd)
	C.renderEncViewport(b.encoder, C.double(width), C.double(height))
	b.inPass = true
	b.currentShader = nil
	return nil
}

func (b *MetalBackend) EndPass() error {
	if !b.inPass {
		return fmt.Errorf("EndPass called outside a pass")
	}
	C.renderEncEnd(b.encoder)
	b.encoder = 0
	b.inPass = false
	return nil
}

func (b *MetalBackend) BindShader(shader renderer.Shader) error {
	s, ok := shader.(*metalShader)
	if !ok {
		return fmt.Errorf("foreign shader %q", shader.Name())
	}
	b.currentShader = s
	return nil
}

func (b *MetalBackend) BindUniform(slot int, data []byte) error {
	if slot < 0 || slot >= len(b.uniformData) {
		return fmt.Errorf("uniform slot %d out of range", slot)
	}
	b.uniformData[slot] = append(b.uniformData[slot][:0], data...)
	return nil
}

func (b *MetalBackend) BindTexture(slot int, texture renderer.Texture) error {
	if slot < 0 || slot >= len(b.boundTextures) {
		return fmt.Errorf("texture slot %d out of range", slot)
	}
	if texture == nil {
		b.boundTextures[slot] = nil
		return nil
	}
	t, ok := texture.(*metalTexture)
	if !ok {
		return fmt.Errorf("foreign texture in slot %d", slot)
	}
	b.boundTextures[slot] = t
	return nil
}

func (b *MetalBackend) flushBindings(meshInput bool) error {
	if b.currentShader == nil {
		return fmt.Errorf("draw without a bound shader")
	}
	pipe := b.currentShader.pipeline
	if !meshInput {
		pipe = b.currentShader.pipelineFS
	}
	cull := 0
	switch b.currentShader.desc.CullMode {
	case resources.FaceCullModeFront:
		cull = 1
	case resources.FaceCullModeBack:
		cull = 2
	}
	C.renderEncState(b.encoder, pipe, b.currentShader.depthState, C.int(cull))

	for slot, data := range b.uniformData {
		if len(data) == 0 {
			continue
		}
		C.renderEncSetUniform(b.encoder, unsafe.Pointer(&data[0]), C.NSUInteger(len(data)), C.NSUInteger(slot))
	}
	for slot, t := range b.boundTextures {
		if t == nil {
			t = b.fallback
		}
		C.renderEncSetTexture(b.encoder, t.handle, t.sampler, C.NSUInteger(slot))
	}
	return nil
}

func (b *MetalBackend) DrawMesh(mesh renderer.Mesh) error {
	m, ok := mesh.(*metalMesh)
	if !ok {
		return fmt.Errorf("foreign mesh")
	}
	if !b.inPass {
		return fmt.Errorf("DrawMesh outside a pass")
	}
	if err := b.flushBindings(true); err != nil {
		return err
	}
	C.renderEncDrawIndexed(b.encoder, m.vertexBuffer, m.indexBuffer, C.NSUInteger(m.indexCount))
	return nil
}

func (b *MetalBackend) DrawFullscreen() error {
	if !b.inPass {
		return fmt.Errorf("DrawFullscreen outside a pass")
	}
	if err := b.flushBindings(false); err != nil {
		return err
	}
	C.renderEncDrawFullscreen(b.encoder)
	return nil
}

func (b *MetalBackend) CopyTarget(src, dst renderer.RenderTarget) error {
	srcRT, ok := src.(*metalRenderTarget)
	if !ok {
		return fmt.Errorf("foreign source render target")
	}
	dstRT, ok := dst.(*metalRenderTarget)
	if !ok {
		return fmt.Errorf("foreign destination render target")
	}
	if len(srcRT.colors) == 0 || len(dstRT.colors) == 0 {
		return fmt.Errorf("CopyTarget requires color attachments on both targets")
	}
	C.cmdBufferBlitTexture(b.cmdBuf, srcRT.colors[0].handle, dstRT.colors[0].handle,
		C.NSUInteger(srcRT.width), C.NSUInteger(srcRT.height))
	return nil
}

func (b *MetalBackend) BlitToSwapchain(src renderer.RenderTarget) error {
	srcRT, ok := src.(*metalRenderTarget)
	if !ok {
		return fmt.Errorf("foreign render target")
	}
	if len(srcRT.colors) == 0 {
		return fmt.Errorf("BlitToSwapchain requires a color attachment")
	}
	if b.drawable == 0 {
		return fmt.Errorf("BlitToSwapchain outside a frame")
	}
	tex := C.drawableTexture(b.drawable)
	C.cmdBufferBlitTexture(b.cmdBuf, srcRT.colors[0].handle, tex,
		C.NSUInteger(minUint32(srcRT.width, b.width)), C.NSUInteger(minUint32(srcRT.height, b.height)))
	return nil
}

// packHalf converts a float32 to half precision, rounding to nearest even.
func packHalf(f float32) uint16 {
	bits := gomath.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mantissa := bits & 0x7fffff
	if exp >= 31 {
		return sign | 0x7c00
	}
	if exp <= 0 {
		if exp < -10 {
			return sign
		}
		mantissa |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mantissa >> shift)
		if mantissa>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	}
	half := sign | uint16(exp)<<10 | uint16(mantissa>>13)
	if mantissa&0x1000 != 0 {
		half++
	}
	return half
}

func packHalfPixels(data []float32) []byte {
	out := make([]byte, len(data)*2)
	for i, f := range data {
		h := packHalf(f)
		out[i*2] = byte(h)
		out[i*2+1] = byte(h >> 8)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
