package vulkan

import (
	"fmt"
	gomath "math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/resources"
)

func mapFormat(format renderer.TextureFormat) (vk.Format, error) {
	switch format {
	case renderer.FormatRGBA8:
		return vk.FormatR8g8b8a8Unorm, nil
	case renderer.FormatSRGBA8:
		return vk.FormatR8g8b8a8Srgb, nil
	case renderer.FormatRGBA16F:
		return vk.FormatR16g16b16a16Sfloat, nil
	case renderer.FormatRG16F:
		return vk.FormatR16g16Sfloat, nil
	case renderer.FormatR8:
		return vk.FormatR8Unorm, nil
	case renderer.FormatDepth32F:
		return vk.FormatD32Sfloat, nil
	default:
		return vk.FormatUndefined, fmt.Errorf("unsupported texture format %d", format)
	}
}

// packHalf converts a float32 to IEEE 754 half precision, rounding to
// nearest even. Float pixel data is packed on the CPU because buffer-to-image
// copies are raw memory.
func packHalf(f float32) uint16 {
	bits := gomath.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mantissa := bits & 0x7fffff

	if exp >= 31 {
		return sign | 0x7c00 // overflow to inf
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

type vulkanTexture struct {
	backend *VulkanBackend
	name    string
	image   *VulkanImage
	sampler vk.Sampler
	format  renderer.TextureFormat
	layout  vk.ImageLayout
	cube    bool

	// Per-(face,mip) views and framebuffers for cube precompute passes,
	// created on first use.
	faceViews        map[[2]uint32]vk.ImageView
	faceFramebuffers map[cubeFaceKey]vk.Framebuffer
}

type cubeFaceKey struct {
	face uint32
	mip  uint32
	pass vk.RenderPass
}

func (t *vulkanTexture) Width() uint32                  { return t.image.Width }
func (t *vulkanTexture) Height() uint32                 { return t.image.Height }
func (t *vulkanTexture) Format() renderer.TextureFormat { return t.format }

func (t *vulkanTexture) Destroy() {
	context := t.backend.context
	for _, fb := range t.faceFramebuffers {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, fb, context.Allocator)
	}
	t.faceFramebuffers = nil
	for _, view := range t.faceViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	t.faceViews = nil
	if t.sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, t.sampler, context.Allocator)
		t.sampler = vk.NullSampler
	}
	t.image.Destroy(context)
}

func (t *vulkanTexture) faceView(face, mip uint32) (vk.ImageView, error) {
	key := [2]uint32{face, mip}
	if view, ok := t.faceViews[key]; ok {
		return view, nil
	}
	view, err := t.image.FaceViewCreate(t.backend.context, face, mip)
	if err != nil {
		return vk.NullImageView, err
	}
	if t.faceViews == nil {
		t.faceViews = make(map[[2]uint32]vk.ImageView)
	}
	t.faceViews[key] = view
	return view, nil
}

func (t *vulkanTexture) faceFramebuffer(pass vk.RenderPass, face, mip uint32, width, height uint32) (vk.Framebuffer, error) {
	key := cubeFaceKey{face: face, mip: mip, pass: pass}
	if fb, ok := t.faceFramebuffers[key]; ok {
		return fb, nil
	}
	view, err := t.faceView(face, mip)
	if err != nil {
		return vk.NullFramebuffer, err
	}
	fb, err := framebufferCreate(t.backend.context, pass, width, height, []vk.ImageView{view})
	if err != nil {
		return vk.NullFramebuffer, err
	}
	if t.faceFramebuffers == nil {
		t.faceFramebuffers = make(map[cubeFaceKey]vk.Framebuffer)
	}
	t.faceFramebuffers[key] = fb
	return fb, nil
}

// transitionTo moves the whole image to the requested layout inside the given
// command buffer, tracking the current layout.
func (t *vulkanTexture) transitionTo(cb *VulkanCommandBuffer, layout vk.ImageLayout) error {
	if t.layout == layout {
		return nil
	}
	if err := t.image.TransitionLayout(cb, t.layout, layout); err != nil {
		return fmt.Errorf("texture %q: %w", t.name, err)
	}
	t.layout = layout
	return nil
}

func samplerCreate(context *VulkanContext, filter renderer.TextureFilter, wrap renderer.TextureWrap, mipLevels uint32) (vk.Sampler, error) {
	magFilter := vk.FilterLinear
	minFilter := vk.FilterLinear
	mipMode := vk.SamplerMipmapModeLinear
	if filter == renderer.FilterNearest {
		magFilter = vk.FilterNearest
		minFilter = vk.FilterNearest
		mipMode = vk.SamplerMipmapModeNearest
	}

	addressMode := vk.SamplerAddressModeRepeat
	switch wrap {
	case renderer.WrapClampToEdge:
		addressMode = vk.SamplerAddressModeClampToEdge
	case renderer.WrapClampToBorder:
		addressMode = vk.SamplerAddressModeClampToBorder
	}

	createInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        magFilter,
		MinFilter:        minFilter,
		MipmapMode:       mipMode,
		AddressModeU:     addressMode,
		AddressModeV:     addressMode,
		AddressModeW:     addressMode,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    16,
		BorderColor:      vk.BorderColorFloatOpaqueWhite,
		MaxLod:           float32(mipLevels),
	}
	createInfo.Deref()

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &createInfo, context.Allocator, &sampler); !VulkanResultIsSuccess(res) {
		return vk.NullSampler, fmt.Errorf("failed to create sampler: %s", VulkanResultString(res))
	}
	return sampler, nil
}

func (b *VulkanBackend) CreateTexture(desc renderer.TextureDesc) (renderer.Texture, error) {
	format, err := mapFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Name, err)
	}
	mipLevels := desc.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}

	var pixels []byte
	switch {
	case desc.Pixels != nil:
		pixels = desc.Pixels
	case desc.PixelsF != nil:
		pixels = packHalfPixels(desc.PixelsF)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	if mipLevels > 1 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	// Texture objects double as cube render targets during IBL precompute.
	if desc.Type == renderer.TextureTypeCube {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}

	layers := uint32(1)
	cube := desc.Type == renderer.TextureTypeCube
	if cube {
		layers = 6
	}

	image, err := ImageCreate(b.context, ImageParams{
		Name:      desc.Name,
		Width:     desc.Width,
		Height:    desc.Height,
		Format:    format,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     usage,
		Memory:    vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevels: mipLevels,
		Layers:    layers,
		Cube:      cube,
	})
	if err != nil {
		return nil, err
	}

	texture := &vulkanTexture{
		backend: b,
		name:    desc.Name,
		image:   image,
		format:  desc.Format,
		layout:  vk.ImageLayoutUndefined,
		cube:    cube,
	}

	sampler, err := samplerCreate(b.context, desc.Filter, desc.Wrap, mipLevels)
	if err != nil {
		texture.image.Destroy(b.context)
		return nil, err
	}
	texture.sampler = sampler

	if err := b.uploadTexturePixels(texture, pixels, layers); err != nil {
		texture.Destroy()
		return nil, err
	}
	return texture, nil
}

// uploadTexturePixels copies pixel data through a staging buffer (or just
// settles the layout when there is none) and leaves the image shader-readable.
func (b *VulkanBackend) uploadTexturePixels(texture *vulkanTexture, pixels []byte, layers uint32) error {
	pool := b.context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(b.context, pool)
	if err != nil {
		return err
	}

	if pixels == nil {
		if err := texture.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
			return err
		}
		return cb.EndSingleUse(b.context, pool, b.context.Device.GraphicsQueue)
	}

	staging, err := BufferCreate(b.context, vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(b.context)

	if err := staging.Map(b.context); err != nil {
		return err
	}
	if err := staging.WriteAt(0, pixels); err != nil {
		return err
	}
	staging.Unmap(b.context)

	if err := texture.transitionTo(cb, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}

	// Cube sources arrive as six stacked faces.
	faceSize := vk.DeviceSize(len(pixels)) / vk.DeviceSize(layers)
	for layer := uint32(0); layer < layers; layer++ {
		region := vk.BufferImageCopy{
			BufferOffset: faceSize * vk.DeviceSize(layer),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     texture.image.Aspect,
				MipLevel:       0,
				BaseArrayLayer: layer,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: texture.image.Width, Height: texture.image.Height, Depth: 1},
		}
		region.Deref()
		vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, texture.image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	}

	if texture.image.MipLevels > 1 {
		if err := recordMipChain(cb, texture); err != nil {
			return err
		}
	} else if err := texture.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}
	return cb.EndSingleUse(b.context, pool, b.context.Device.GraphicsQueue)
}

// recordMipChain blits each mip from the previous level. On entry the whole
// image is TransferDst; on exit it is ShaderReadOnly.
func recordMipChain(cb *VulkanCommandBuffer, texture *vulkanTexture) error {
	image := texture.image
	width := int32(image.Width)
	height := int32(image.Height)

	for mip := uint32(1); mip < image.MipLevels; mip++ {
		for layer := uint32(0); layer < image.Layers; layer++ {
			if err := image.TransitionMipLayout(cb, layer, mip-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal); err != nil {
				return err
			}
		}

		nextWidth := maxI32(width/2, 1)
		nextHeight := maxI32(height/2, 1)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     image.Aspect,
				MipLevel:       mip - 1,
				BaseArrayLayer: 0,
				LayerCount:     image.Layers,
			},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     image.Aspect,
				MipLevel:       mip,
				BaseArrayLayer: 0,
				LayerCount:     image.Layers,
			},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: width, Y: height, Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: nextWidth, Y: nextHeight, Z: 1}
		blit.Deref()
		vk.CmdBlitImage(cb.Handle,
			image.Handle, vk.ImageLayoutTransferSrcOptimal,
			image.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		for layer := uint32(0); layer < image.Layers; layer++ {
			if err := image.TransitionMipLayout(cb, layer, mip-1, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
				return err
			}
		}
		width = nextWidth
		height = nextHeight
	}

	for layer := uint32(0); layer < image.Layers; layer++ {
		if err := image.TransitionMipLayout(cb, layer, image.MipLevels-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
			return err
		}
	}
	texture.layout = vk.ImageLayoutShaderReadOnlyOptimal
	return nil
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

type vulkanMesh struct {
	backend      *VulkanBackend
	vertexBuffer *VulkanBuffer
	indexBuffer  *VulkanBuffer
	indexCount   uint32
}

func (m *vulkanMesh) IndexCount() uint32 { return m.indexCount }

func (m *vulkanMesh) Destroy() {
	m.vertexBuffer.Destroy(m.backend.context)
	m.indexBuffer.Destroy(m.backend.context)
}

func (b *VulkanBackend) CreateMesh(data *resources.MeshData) (renderer.Mesh, error) {
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

	vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), len(verts)*4)
	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&data.Indices[0])), len(data.Indices)*4)

	vertexBuffer, err := BufferCreate(b.context, vk.DeviceSize(len(vertexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	if err := uploadViaStaging(b.context, vertexBuffer, vertexBytes); err != nil {
		vertexBuffer.Destroy(b.context)
		return nil, err
	}

	indexBuffer, err := BufferCreate(b.context, vk.DeviceSize(len(indexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vertexBuffer.Destroy(b.context)
		return nil, err
	}
	if err := uploadViaStaging(b.context, indexBuffer, indexBytes); err != nil {
		vertexBuffer.Destroy(b.context)
		indexBuffer.Destroy(b.context)
		return nil, err
	}

	return &vulkanMesh{
		backend:      b,
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		indexCount:   uint32(len(data.Indices)),
	}, nil
}

type vulkanRenderTarget struct {
	backend *VulkanBackend
	name    string
	width   uint32
	height  uint32
	colors  []*vulkanTexture
	depth   *vulkanTexture

	// depthSampled records whether the depth attachment is read by shaders
	// after the pass, which decides its final image layout.
	depthSampled bool

	// Framebuffers are cached per compatible render pass.
	framebuffers map[vk.RenderPass]vk.Framebuffer
}

func (rt *vulkanRenderTarget) Width() uint32  { return rt.width }
func (rt *vulkanRenderTarget) Height() uint32 { return rt.height }

func (rt *vulkanRenderTarget) ColorTexture(index int) renderer.Texture {
	if index < 0 || index >= len(rt.colors) {
		return nil
	}
	return rt.colors[index]
}

func (rt *vulkanRenderTarget) DepthTexture() renderer.Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}

func (rt *vulkanRenderTarget) Destroy() {
	context := rt.backend.context
	for _, fb := range rt.framebuffers {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, fb, context.Allocator)
	}
	rt.framebuffers = nil
	for _, c := range rt.colors {
		c.Destroy()
	}
	rt.colors = nil
	if rt.depth != nil {
		rt.depth.Destroy()
		rt.depth = nil
	}
}

func (rt *vulkanRenderTarget) framebufferFor(pass vk.RenderPass) (vk.Framebuffer, error) {
	if fb, ok := rt.framebuffers[pass]; ok {
		return fb, nil
	}
	var views []vk.ImageView
	for _, c := range rt.colors {
		views = append(views, c.image.View)
	}
	if rt.depth != nil {
		views = append(views, rt.depth.image.View)
	}
	fb, err := framebufferCreate(rt.backend.context, pass, rt.width, rt.height, views)
	if err != nil {
		return vk.NullFramebuffer, err
	}
	if rt.framebuffers == nil {
		rt.framebuffers = make(map[vk.RenderPass]vk.Framebuffer)
	}
	rt.framebuffers[pass] = fb
	return fb, nil
}

func (b *VulkanBackend) CreateRenderTarget(desc renderer.RenderTargetDesc) (renderer.RenderTarget, error) {
	rt := &vulkanRenderTarget{
		backend: b,
		name:    desc.Name,
		width:   desc.Width,
		height:  desc.Height,
	}

	for i, cf := range desc.ColorFormats {
		format, err := mapFormat(cf)
		if err != nil {
			rt.Destroy()
			return nil, fmt.Errorf("render target %q: %w", desc.Name, err)
		}
		image, err := ImageCreate(b.context, ImageParams{
			Name:   fmt.Sprintf("%s.color%d", desc.Name, i),
			Width:  desc.Width,
			Height: desc.Height,
			Format: format,
			Tiling: vk.ImageTilingOptimal,
			Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit |
				vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
			Memory: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		})
		if err != nil {
			rt.Destroy()
			return nil, err
		}
		sampler, err := samplerCreate(b.context, desc.Filter, desc.Wrap, 1)
		if err != nil {
			image.Destroy(b.context)
			rt.Destroy()
			return nil, err
		}
		rt.colors = append(rt.colors, &vulkanTexture{
			backend: b,
			name:    image.Name,
			image:   image,
			sampler: sampler,
			format:  cf,
			layout:  vk.ImageLayoutUndefined,
		})
	}

	if desc.HasDepth || len(desc.ColorFormats) == 0 {
		rt.depthSampled = desc.DepthReadable || len(desc.ColorFormats) == 0
		usage := vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		if rt.depthSampled {
			usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
		}
		image, err := ImageCreate(b.context, ImageParams{
			Name:   desc.Name + ".depth",
			Width:  desc.Width,
			Height: desc.Height,
			Format: vk.FormatD32Sfloat,
			Tiling: vk.ImageTilingOptimal,
			Usage:  usage,
			Memory: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			Aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		})
		if err != nil {
			rt.Destroy()
			return nil, err
		}
		sampler, err := samplerCreate(b.context, renderer.FilterNearest, renderer.WrapClampToBorder, 1)
		if err != nil {
			image.Destroy(b.context)
			rt.Destroy()
			return nil, err
		}
		rt.depth = &vulkanTexture{
			backend: b,
			name:    image.Name,
			image:   image,
			sampler: sampler,
			format:  renderer.FormatDepth32F,
			layout:  vk.ImageLayoutUndefined,
		}
	}
	return rt, nil
}

func (b *VulkanBackend) CreateShader(desc renderer.ShaderDesc) (renderer.Shader, error) {
	vertModule, err := loadShaderModule(b.context, b.shaderDir, desc.Name, "vert")
	if err != nil {
		return nil, err
	}
	shader := &vulkanShader{
		backend:    b,
		name:       desc.Name,
		desc:       desc,
		vertModule: vertModule,
		pipelines:  make(map[pipelineKey]vk.Pipeline),
	}
	if desc.FragmentSource != "" {
		fragModule, err := loadShaderModule(b.context, b.shaderDir, desc.Name, "frag")
		if err != nil {
			shader.destroy(b.context)
			return nil, err
		}
		shader.fragModule = fragModule
	}
	return shader, nil
}
