package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

// SurfaceFactory creates a window surface for a freshly created instance.
// The platform layer provides one backed by glfw.CreateWindowSurface.
type SurfaceFactory func(instance vk.Instance) (vk.Surface, error)

// VulkanBackend implements renderer.Backend on Vulkan 1.1. The Vulkan loader
// must be initialized (vk.SetGetInstanceProcAddr + vk.Init) by the platform
// layer before Initialize is called.
type VulkanBackend struct {
	context *VulkanContext

	surfaceFactory     SurfaceFactory
	requiredExtensions []string
	enableValidation   bool
	shaderDir          string

	uniformLayout  vk.DescriptorSetLayout
	samplerLayout  vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	passCache      *renderPassCache
	frames         []*frameResources

	// Swapchain presentation state.
	swapchainFramebuffers map[vk.RenderPass][]vk.Framebuffer
	swapchainLayouts      []vk.ImageLayout

	// 1x1 white texture filling sampler slots nothing was bound to.
	fallback *vulkanTexture

	// Recording state for the current frame.
	cb            *VulkanCommandBuffer
	oneShotCB     bool
	inPass        bool
	currentPass   vk.RenderPass
	currentTarget *vulkanRenderTarget
	currentShader *vulkanShader
	boundTextures [textureSlotCount]*vulkanTexture
	frameStarted  bool
}

// Option tweaks backend construction.
type Option func(*VulkanBackend)

// WithValidation enables the Khronos validation layer and debug messenger.
func WithValidation() Option {
	return func(b *VulkanBackend) { b.enableValidation = true }
}

// WithShaderDir overrides where precompiled SPIR-V binaries are loaded from.
func WithShaderDir(dir string) Option {
	return func(b *VulkanBackend) { b.shaderDir = dir }
}

// New builds a Vulkan backend. extensions lists the instance extensions the
// windowing system requires (glfw.GetRequiredInstanceExtensions).
func New(surfaceFactory SurfaceFactory, extensions []string, opts ...Option) *VulkanBackend {
	b := &VulkanBackend{
		surfaceFactory:        surfaceFactory,
		requiredExtensions:    extensions,
		shaderDir:             defaultShaderDir,
		swapchainFramebuffers: make(map[vk.RenderPass][]vk.Framebuffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *VulkanBackend) Initialize(appName string, width, height uint32) error {
	b.context = &VulkanContext{
		FramebufferWidth:  width,
		FramebufferHeight: height,
	}

	if err := b.createInstance(appName); err != nil {
		return err
	}

	surface, err := b.surfaceFactory(b.context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create window surface: %w", err)
	}
	b.context.Surface = surface

	if err := DeviceCreate(b.context); err != nil {
		return err
	}

	swapchain, err := SwapchainCreate(b.context, width, height)
	if err != nil {
		return err
	}
	b.context.Swapchain = swapchain
	b.swapchainLayouts = make([]vk.ImageLayout, swapchain.ImageCount)

	uniformLayout, samplerLayout, err := descriptorSetLayouts(b.context)
	if err != nil {
		return err
	}
	b.uniformLayout = uniformLayout
	b.samplerLayout = samplerLayout

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 2,
		PSetLayouts:    []vk.DescriptorSetLayout{uniformLayout, samplerLayout},
	}
	layoutInfo.Deref()
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(b.context.Device.LogicalDevice, &layoutInfo, b.context.Allocator, &pipelineLayout); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res))
	}
	b.pipelineLayout = pipelineLayout

	b.passCache = newRenderPassCache()

	frameCount := int(swapchain.MaxFramesInFlight)
	b.frames = make([]*frameResources, frameCount)
	for i := range b.frames {
		fr, err := newFrameResources(b.context, b.uniformLayout)
		if err != nil {
			return err
		}
		b.frames[i] = fr
	}

	if err := b.createSyncObjects(); err != nil {
		return err
	}
	if err := b.createCommandBuffers(); err != nil {
		return err
	}

	fallback, err := b.CreateTexture(renderer.TextureDesc{
		Name:   "vulkan.fallback.white",
		Type:   renderer.TextureType2D,
		Format: renderer.FormatRGBA8,
		Width:  1,
		Height: 1,
		Filter: renderer.FilterNearest,
		Wrap:   renderer.WrapRepeat,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return err
	}
	b.fallback = fallback.(*vulkanTexture)

	core.LogInfo("Vulkan backend initialized for %q (%dx%d)", appName, width, height)
	return nil
}

func (b *VulkanBackend) createInstance(appName string) error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(appName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        VulkanSafeString("lumen"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	appInfo.Deref()

	extensions := append([]string{}, b.requiredExtensions...)
	var layers []string
	if b.enableValidation {
		extensions = append(extensions, "VK_EXT_debug_utils")
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}
	createInfo.Deref()

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &instance); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res))
	}
	b.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("failed to initialize instance proc addrs: %w", err)
	}
	return nil
}

func (b *VulkanBackend) createSyncObjects() error {
	sc := b.context.Swapchain
	frames := int(sc.MaxFramesInFlight)

	b.context.ImageAvailableSemaphores = make([]vk.Semaphore, frames)
	b.context.QueueCompleteSemaphores = make([]vk.Semaphore, frames)
	b.context.InFlightFences = make([]*VulkanFence, frames)

	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	semaphoreInfo.Deref()
	for i := 0; i < frames; i++ {
		var available, complete vk.Semaphore
		if res := vk.CreateSemaphore(b.context.Device.LogicalDevice, &semaphoreInfo, b.context.Allocator, &available); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		if res := vk.CreateSemaphore(b.context.Device.LogicalDevice, &semaphoreInfo, b.context.Allocator, &complete); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		b.context.ImageAvailableSemaphores[i] = available
		b.context.QueueCompleteSemaphores[i] = complete

		fence, err := FenceCreate(b.context, true)
		if err != nil {
			return err
		}
		b.context.InFlightFences[i] = fence
	}

	b.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	return nil
}

func (b *VulkanBackend) createCommandBuffers() error {
	for _, cb := range b.context.GraphicsCommandBuffers {
		cb.Free(b.context, b.context.Device.GraphicsCommandPool)
	}
	count := int(b.context.Swapchain.ImageCount)
	b.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, count)
	for i := 0; i < count; i++ {
		cb, err := CommandBufferAllocate(b.context, b.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		b.context.GraphicsCommandBuffers[i] = cb
	}
	return nil
}

func (b *VulkanBackend) Shutdown() error {
	if b.context == nil {
		return nil
	}
	device := b.context.Device

	if device != nil && device.LogicalDevice != nil {
		vk.DeviceWaitIdle(device.LogicalDevice)

		if b.fallback != nil {
			b.fallback.Destroy()
			b.fallback = nil
		}
		b.destroySwapchainFramebuffers()
		for _, fr := range b.frames {
			fr.destroy(b.context)
		}
		b.frames = nil
		if b.passCache != nil {
			b.passCache.destroy(b.context)
		}
		if b.pipelineLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(device.LogicalDevice, b.pipelineLayout, b.context.Allocator)
		}
		if b.samplerLayout != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(device.LogicalDevice, b.samplerLayout, b.context.Allocator)
		}
		if b.uniformLayout != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(device.LogicalDevice, b.uniformLayout, b.context.Allocator)
		}

		for _, s := range b.context.ImageAvailableSemaphores {
			vk.DestroySemaphore(device.LogicalDevice, s, b.context.Allocator)
		}
		for _, s := range b.context.QueueCompleteSemaphores {
			vk.DestroySemaphore(device.LogicalDevice, s, b.context.Allocator)
		}
		for _, f := range b.context.InFlightFences {
			f.Destroy(b.context)
		}
		for _, cb := range b.context.GraphicsCommandBuffers {
			cb.Free(b.context, device.GraphicsCommandPool)
		}

		if b.context.Swapchain != nil {
			b.context.Swapchain.SwapchainDestroy(b.context)
		}
	}

	DeviceDestroy(b.context)
	if b.context.Surface != vk.NullSurface {
		vk.DestroySurface(b.context.Instance, b.context.Surface, b.context.Allocator)
	}
	if b.context.Instance != nil {
		vk.DestroyInstance(b.context.Instance, b.context.Allocator)
		b.context.Instance = nil
	}
	core.LogInfo("Vulkan backend shut down")
	return nil
}

func (b *VulkanBackend) Resized(width, height uint32) error {
	b.context.FramebufferWidth = width
	b.context.FramebufferHeight = height
	b.context.FramebufferSizeGeneration++
	return nil
}

func (b *VulkanBackend) BeginFrame(deltaTime float64) error {
	ctx := b.context

	if ctx.RecreatingSwapchain {
		if res := vk.DeviceWaitIdle(ctx.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("device wait idle failed: %s", VulkanResultString(res))
		}
		return core.ErrSwapchainBooting
	}

	if ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration {
		if err := b.recreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	}

	fence := ctx.InFlightFences[ctx.CurrentFrame]
	if err := fence.Wait(ctx, vk.MaxUint64); err != nil {
		return err
	}

	imageIndex, ok, err := ctx.Swapchain.AcquireNextImageIndex(ctx, vk.MaxUint64, ctx.ImageAvailableSemaphores[ctx.CurrentFrame], vk.NullFence)
	if err != nil {
		return err
	}
	if !ok {
		ctx.FramebufferSizeGeneration++
		return core.ErrSwapchainBooting
	}
	ctx.ImageIndex = imageIndex

	fr := b.frames[ctx.CurrentFrame]
	if err := fr.reset(ctx, b.uniformLayout); err != nil {
		return err
	}

	cb := ctx.GraphicsCommandBuffers[imageIndex]
	cb.Reset()
	if err := cb.Begin(false); err != nil {
		return err
	}
	b.cb = cb
	b.oneShotCB = false
	b.frameStarted = true
	b.currentShader = nil
	for i := range b.boundTextures {
		b.boundTextures[i] = nil
	}
	return nil
}

func (b *VulkanBackend) EndFrame(deltaTime float64) error {
	ctx := b.context
	if !b.frameStarted || b.cb == nil {
		return fmt.Errorf("EndFrame called without BeginFrame")
	}
	if b.inPass {
		if err := b.EndPass(); err != nil {
			return err
		}
	}

	if err := b.cb.End(); err != nil {
		return err
	}

	// A previous frame may still be using this swapchain image.
	if inFlight := ctx.ImagesInFlight[ctx.ImageIndex]; inFlight != nil {
		if err := inFlight.Wait(ctx, vk.MaxUint64); err != nil {
			return err
		}
	}
	fence := ctx.InFlightFences[ctx.CurrentFrame]
	ctx.ImagesInFlight[ctx.ImageIndex] = fence
	if err := fence.Reset(ctx); err != nil {
		return err
	}

	waitStage := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{b.cb.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ctx.ImageAvailableSemaphores[ctx.CurrentFrame]},
		PWaitDstStageMask:    waitStage,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.QueueCompleteSemaphores[ctx.CurrentFrame]},
	}
	submitInfo.Deref()

	if res := vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("queue submit failed: %s", VulkanResultString(res))
	}
	b.cb.State = commandBufferStateSubmitted

	frameSemaphore := ctx.QueueCompleteSemaphores[ctx.CurrentFrame]
	ok, err := ctx.Swapchain.Present(ctx, frameSemaphore, ctx.ImageIndex)
	if err != nil {
		return err
	}
	if !ok {
		ctx.FramebufferSizeGeneration++
	}

	b.cb = nil
	b.frameStarted = false
	return nil
}

func (b *VulkanBackend) recreateSwapchain() error {
	ctx := b.context
	if ctx.FramebufferWidth == 0 || ctx.FramebufferHeight == 0 {
		return core.ErrSwapchainBooting
	}
	ctx.RecreatingSwapchain = true
	defer func() { ctx.RecreatingSwapchain = false }()

	if res := vk.DeviceWaitIdle(ctx.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("device wait idle failed: %s", VulkanResultString(res))
	}

	b.destroySwapchainFramebuffers()
	if err := ctx.Swapchain.SwapchainRecreate(ctx, ctx.FramebufferWidth, ctx.FramebufferHeight); err != nil {
		return err
	}
	b.swapchainLayouts = make([]vk.ImageLayout, ctx.Swapchain.ImageCount)
	ctx.ImagesInFlight = make([]*VulkanFence, ctx.Swapchain.ImageCount)
	if err := b.createCommandBuffers(); err != nil {
		return err
	}

	ctx.FramebufferSizeLastGeneration = ctx.FramebufferSizeGeneration
	core.LogDebug("Swapchain recreated at %dx%d", ctx.FramebufferWidth, ctx.FramebufferHeight)
	return nil
}

func (b *VulkanBackend) destroySwapchainFramebuffers() {
	for _, fbs := range b.swapchainFramebuffers {
		for _, fb := range fbs {
			vk.DestroyFramebuffer(b.context.Device.LogicalDevice, fb, b.context.Allocator)
		}
	}
	b.swapchainFramebuffers = make(map[vk.RenderPass][]vk.Framebuffer)
}

// ensureCommandBuffer hands back the frame command buffer or, outside a
// frame, a single-use one that flushOneShot must retire.
func (b *VulkanBackend) ensureCommandBuffer() (*VulkanCommandBuffer, error) {
	if b.cb != nil {
		return b.cb, nil
	}
	cb, err := AllocateAndBeginSingleUse(b.context, b.context.Device.GraphicsCommandPool)
	if err != nil {
		return nil, err
	}
	b.cb = cb
	b.oneShotCB = true
	return cb, nil
}

func (b *VulkanBackend) flushOneShot() error {
	if !b.oneShotCB || b.cb == nil {
		return nil
	}
	cb := b.cb
	b.cb = nil
	b.oneShotCB = false
	return cb.EndSingleUse(b.context, b.context.Device.GraphicsCommandPool, b.context.Device.GraphicsQueue)
}

func (b *VulkanBackend) BeginPass(desc renderer.PassDesc) error {
	if b.inPass {
		return fmt.Errorf("BeginPass %q: already inside a pass", desc.Label)
	}
	cb, err := b.ensureCommandBuffer()
	if err != nil {
		return err
	}

	var (
		pass         vk.RenderPass
		framebuffer  vk.Framebuffer
		width        uint32
		height       uint32
		clearValues  []vk.ClearValue
		colorFormats []vk.Format
		depthFormat  vk.Format
	)

	switch {
	case desc.TargetCube != nil:
		cube, ok := desc.TargetCube.(*vulkanTexture)
		if !ok || !cube.cube {
			return fmt.Errorf("BeginPass %q: target is not a cubemap texture", desc.Label)
		}
		colorFormats = []vk.Format{cube.image.Format}
		pass, err = b.passCache.get(b.context, colorFormats, vk.FormatUndefined,
			desc.ClearColor != nil, false,
			vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutUndefined)
		if err != nil {
			return err
		}
		width = maxU32(cube.image.Width>>uint(desc.Mip), 1)
		height = maxU32(cube.image.Height>>uint(desc.Mip), 1)
		framebuffer, err = cube.faceFramebuffer(pass, uint32(desc.Face), uint32(desc.Mip), width, height)
		if err != nil {
			return err
		}
		clearValues = appendColorClear(clearValues, desc.ClearColor, 1)

	case desc.Target != nil:
		rt, ok := desc.Target.(*vulkanRenderTarget)
		if !ok {
			return fmt.Errorf("BeginPass %q: foreign render target", desc.Label)
		}
		for _, c := range rt.colors {
			colorFormats = append(colorFormats, c.image.Format)
		}
		depthFinal := vk.ImageLayoutUndefined
		if rt.depth != nil {
			depthFormat = rt.depth.image.Format
			depthFinal = vk.ImageLayoutDepthStencilAttachmentOptimal
			if rt.depthSampled {
				depthFinal = vk.ImageLayoutShaderReadOnlyOptimal
			}
		}
		pass, err = b.passCache.get(b.context, colorFormats, depthFormat,
			desc.ClearColor != nil, desc.ClearDepth,
			vk.ImageLayoutShaderReadOnlyOptimal, depthFinal)
		if err != nil {
			return err
		}
		framebuffer, err = rt.framebufferFor(pass)
		if err != nil {
			return err
		}
		width, height = rt.width, rt.height
		clearValues = appendColorClear(clearValues, desc.ClearColor, len(rt.colors))
		if rt.depth != nil {
			var depthClear vk.ClearValue
			depthClear.SetDepthStencil(1, 0)
			clearValues = append(clearValues, depthClear)
		}
		b.currentTarget = rt

	default:
		// Swapchain pass.
		sc := b.context.Swapchain
		colorFormats = []vk.Format{sc.ImageFormat.Format}
		depthFormat = b.context.Device.DepthFormat
		pass, err = b.passCache.get(b.context, colorFormats, depthFormat,
			desc.ClearColor != nil, desc.ClearDepth,
			vk.ImageLayoutPresentSrc, vk.ImageLayoutDepthStencilAttachmentOptimal)
		if err != nil {
			return err
		}
		framebuffer, err = b.swapchainFramebuffer(pass)
		if err != nil {
			return err
		}
		width, height = sc.Extent.Width, sc.Extent.Height
		clearValues = appendColorClear(clearValues, desc.ClearColor, 1)
		var depthClear vk.ClearValue
		depthClear.SetDepthStencil(1, 0)
		clearValues = append(clearValues, depthClear)
		b.swapchainLayouts[b.context.ImageIndex] = vk.ImageLayoutPresentSrc
	}

	if desc.ViewportWidth > 0 {
		width = desc.ViewportWidth
	}
	if desc.ViewportHeight > 0 {
		height = desc.ViewportHeight
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	beginInfo.Deref()
	vk.CmdBeginRenderPass(cb.Handle, &beginInfo, vk.SubpassContentsInline)
	cb.State = commandBufferStateInRenderPass

	// Negative height flips clip space to match the GL-authored shaders.
	viewport := vk.Viewport{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	viewport.Deref()
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
	scissor.Deref()
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	b.inPass = true
	b.currentPass = pass
	b.currentShader = nil
	return nil
}

func (b *VulkanBackend) swapchainFramebuffer(pass vk.RenderPass) (vk.Framebuffer, error) {
	fbs, ok := b.swapchainFramebuffers[pass]
	if !ok {
		fbs = make([]vk.Framebuffer, b.context.Swapchain.ImageCount)
		b.swapchainFramebuffers[pass] = fbs
	}
	index := b.context.ImageIndex
	if fbs[index] != vk.NullFramebuffer {
		return fbs[index], nil
	}
	sc := b.context.Swapchain
	fb, err := framebufferCreate(b.context, pass, sc.Extent.Width, sc.Extent.Height,
		[]vk.ImageView{sc.ImageViews[index], sc.DepthAttachment.View})
	if err != nil {
		return vk.NullFramebuffer, err
	}
	fbs[index] = fb
	return fb, nil
}

func (b *VulkanBackend) EndPass() error {
	if !b.inPass {
		return fmt.Errorf("EndPass called outside a pass")
	}
	vk.CmdEndRenderPass(b.cb.Handle)
	b.cb.State = commandBufferStateRecording
	b.inPass = false

	// The render pass' final layouts leave attachments shader-readable;
	// keep the tracked layouts in step.
	if rt := b.currentTarget; rt != nil {
		for _, c := range rt.colors {
			c.layout = vk.ImageLayoutShaderReadOnlyOptimal
		}
		if rt.depth != nil {
			if rt.depthSampled {
				rt.depth.layout = vk.ImageLayoutShaderReadOnlyOptimal
			} else {
				rt.depth.layout = vk.ImageLayoutDepthStencilAttachmentOptimal
			}
		}
		b.currentTarget = nil
	}
	b.currentPass = vk.NullRenderPass
	b.currentShader = nil

	if b.oneShotCB {
		return b.flushOneShot()
	}
	return nil
}

func (b *VulkanBackend) BindShader(shader renderer.Shader) error {
	s, ok := shader.(*vulkanShader)
	if !ok {
		return fmt.Errorf("foreign shader %q", shader.Name())
	}
	if !b.inPass {
		return fmt.Errorf("BindShader %q outside a pass", s.name)
	}
	b.currentShader = s
	return nil
}

func (b *VulkanBackend) BindUniform(slot int, data []byte) error {
	return b.frames[b.context.CurrentFrame].pushUniform(slot, data)
}

func (b *VulkanBackend) BindTexture(slot int, texture renderer.Texture) error {
	if slot < 0 || slot >= textureSlotCount {
		return fmt.Errorf("texture slot %d out of range", slot)
	}
	if texture == nil {
		b.boundTextures[slot] = nil
		return nil
	}
	t, ok := texture.(*vulkanTexture)
	if !ok {
		return fmt.Errorf("foreign texture in slot %d", slot)
	}
	if t.layout != vk.ImageLayoutShaderReadOnlyOptimal {
		if b.inPass {
			return fmt.Errorf("texture %q bound in layout %d inside a pass", t.name, t.layout)
		}
		cb, err := b.ensureCommandBuffer()
		if err != nil {
			return err
		}
		if err := t.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
			return err
		}
	}
	b.boundTextures[slot] = t
	return nil
}

// flushBindings binds the pipeline and both descriptor sets for the next draw.
func (b *VulkanBackend) flushBindings(meshInput bool) error {
	if b.currentShader == nil {
		return fmt.Errorf("draw without a bound shader")
	}
	colorTargets := b.currentShader.desc.ColorTargets
	if colorTargets == 0 {
		if b.currentShader.fragModule == vk.NullShaderModule {
			colorTargets = 0 // depth-only
		} else {
			colorTargets = 1
		}
	}

	pipeline, err := b.currentShader.pipelineFor(b.context, b.pipelineLayout, b.currentPass, colorTargets, meshInput)
	if err != nil {
		return err
	}
	vk.CmdBindPipeline(b.cb.Handle, vk.PipelineBindPointGraphics, pipeline)

	fr := b.frames[b.context.CurrentFrame]
	offsets := make([]uint32, uniformSlotCount)
	copy(offsets, fr.dynamicOffsets[:])
	vk.CmdBindDescriptorSets(b.cb.Handle, vk.PipelineBindPointGraphics, b.pipelineLayout,
		0, 1, []vk.DescriptorSet{fr.uniformSet}, uniformSlotCount, offsets)

	textureSet, err := fr.allocateTextureSet(b.context, b.samplerLayout)
	if err != nil {
		return err
	}
	imageInfos := make([]vk.DescriptorImageInfo, textureSlotCount)
	writes := make([]vk.WriteDescriptorSet, textureSlotCount)
	for i := 0; i < textureSlotCount; i++ {
		t := b.boundTextures[i]
		if t == nil {
			t = b.fallback
		}
		imageInfos[i] = vk.DescriptorImageInfo{
			Sampler:     t.sampler,
			ImageView:   t.image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
		imageInfos[i].Deref()
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          textureSet,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      imageInfos[i : i+1],
		}
		writes[i].Deref()
	}
	vk.UpdateDescriptorSets(b.context.Device.LogicalDevice, textureSlotCount, writes, 0, nil)
	vk.CmdBindDescriptorSets(b.cb.Handle, vk.PipelineBindPointGraphics, b.pipelineLayout,
		1, 1, []vk.DescriptorSet{textureSet}, 0, nil)
	return nil
}

func (b *VulkanBackend) DrawMesh(mesh renderer.Mesh) error {
	m, ok := mesh.(*vulkanMesh)
	if !ok {
		return fmt.Errorf("foreign mesh")
	}
	if !b.inPass {
		return fmt.Errorf("DrawMesh outside a pass")
	}
	if err := b.flushBindings(true); err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(b.cb.Handle, 0, 1, []vk.Buffer{m.vertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(b.cb.Handle, m.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(b.cb.Handle, m.indexCount, 1, 0, 0, 0)
	return nil
}

func (b *VulkanBackend) DrawFullscreen() error {
	if !b.inPass {
		return fmt.Errorf("DrawFullscreen outside a pass")
	}
	if err := b.flushBindings(false); err != nil {
		return err
	}
	vk.CmdDraw(b.cb.Handle, 3, 1, 0, 0)
	return nil
}

func (b *VulkanBackend) CopyTarget(src, dst renderer.RenderTarget) error {
	srcRT, ok := src.(*vulkanRenderTarget)
	if !ok {
		return fmt.Errorf("foreign source render target")
	}
	dstRT, ok := dst.(*vulkanRenderTarget)
	if !ok {
		return fmt.Errorf("foreign destination render target")
	}
	if len(srcRT.colors) == 0 || len(dstRT.colors) == 0 {
		return fmt.Errorf("CopyTarget requires color attachments on both targets")
	}
	if b.inPass {
		return fmt.Errorf("CopyTarget inside a pass")
	}
	cb, err := b.ensureCommandBuffer()
	if err != nil {
		return err
	}

	srcTex := srcRT.colors[0]
	dstTex := dstRT.colors[0]
	if err := srcTex.transitionTo(cb, vk.ImageLayoutTransferSrcOptimal); err != nil {
		return err
	}
	if err := dstTex.transitionTo(cb, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}

	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		Extent:         vk.Extent3D{Width: srcTex.image.Width, Height: srcTex.image.Height, Depth: 1},
	}
	region.Deref()
	vk.CmdCopyImage(cb.Handle,
		srcTex.image.Handle, vk.ImageLayoutTransferSrcOptimal,
		dstTex.image.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})

	if err := srcTex.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}
	if err := dstTex.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}
	return b.flushOneShot()
}

func (b *VulkanBackend) BlitToSwapchain(src renderer.RenderTarget) error {
	srcRT, ok := src.(*vulkanRenderTarget)
	if !ok {
		return fmt.Errorf("foreign render target")
	}
	if len(srcRT.colors) == 0 {
		return fmt.Errorf("BlitToSwapchain requires a color attachment")
	}
	if !b.frameStarted || b.cb == nil {
		return fmt.Errorf("BlitToSwapchain outside a frame")
	}
	if b.inPass {
		return fmt.Errorf("BlitToSwapchain inside a pass")
	}
	ctx := b.context
	cb := b.cb

	srcTex := srcRT.colors[0]
	if err := srcTex.transitionTo(cb, vk.ImageLayoutTransferSrcOptimal); err != nil {
		return err
	}

	index := ctx.ImageIndex
	swapImage := ctx.Swapchain.Images[index]
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if err := imageTransition(cb, swapImage, aspect, 1, 1, b.swapchainLayouts[index], vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	b.swapchainLayouts[index] = vk.ImageLayoutTransferDstOptimal

	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, LayerCount: 1},
	}
	blit.SrcOffsets[1] = vk.Offset3D{X: int32(srcTex.image.Width), Y: int32(srcTex.image.Height), Z: 1}
	blit.DstOffsets[1] = vk.Offset3D{X: int32(ctx.Swapchain.Extent.Width), Y: int32(ctx.Swapchain.Extent.Height), Z: 1}
	blit.Deref()
	vk.CmdBlitImage(cb.Handle,
		srcTex.image.Handle, vk.ImageLayoutTransferSrcOptimal,
		swapImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterLinear)

	if err := srcTex.transitionTo(cb, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}
	if err := imageTransition(cb, swapImage, aspect, 1, 1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc); err != nil {
		return err
	}
	b.swapchainLayouts[index] = vk.ImageLayoutPresentSrc
	return nil
}

func (b *VulkanBackend) GenerateMipmaps(texture renderer.Texture) error {
	t, ok := texture.(*vulkanTexture)
	if !ok {
		return fmt.Errorf("foreign texture")
	}
	if t.image.MipLevels <= 1 {
		return nil
	}
	if b.inPass {
		return fmt.Errorf("GenerateMipmaps inside a pass")
	}
	cb, err := b.ensureCommandBuffer()
	if err != nil {
		return err
	}
	if err := t.transitionTo(cb, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	if err := recordMipChain(cb, t); err != nil {
		return err
	}
	return b.flushOneShot()
}

func appendColorClear(values []vk.ClearValue, clear *math.Vec4, count int) []vk.ClearValue {
	for i := 0; i < count; i++ {
		var value vk.ClearValue
		if clear != nil {
			value.SetColor([]float32{clear.X, clear.Y, clear.Z, clear.W})
		}
		values = append(values, value)
	}
	return values
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
