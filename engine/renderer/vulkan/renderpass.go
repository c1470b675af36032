package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
)

// renderPassKey identifies a compatible render pass: attachment formats plus
// whether the pass clears or loads its contents.
type renderPassKey struct {
	colorFormats string
	depthFormat  vk.Format
	clearColor   bool
	clearDepth   bool
	colorFinal   vk.ImageLayout
	depthFinal   vk.ImageLayout
}

func makeRenderPassKey(colorFormats []vk.Format, depthFormat vk.Format, clearColor, clearDepth bool, colorFinal, depthFinal vk.ImageLayout) renderPassKey {
	var sb strings.Builder
	for _, f := range colorFormats {
		fmt.Fprintf(&sb, "%d,", f)
	}
	return renderPassKey{
		colorFormats: sb.String(),
		depthFormat:  depthFormat,
		clearColor:   clearColor,
		clearDepth:   clearDepth,
		colorFinal:   colorFinal,
		depthFinal:   depthFinal,
	}
}

// renderPassCache owns every render pass the backend creates. Passes are
// keyed by attachment compatibility so pipelines built against a cached pass
// can be reused across targets with the same shape.
type renderPassCache struct {
	passes map[renderPassKey]vk.RenderPass
}

func newRenderPassCache() *renderPassCache {
	return &renderPassCache{passes: make(map[renderPassKey]vk.RenderPass)}
}

func (c *renderPassCache) get(context *VulkanContext, colorFormats []vk.Format, depthFormat vk.Format, clearColor, clearDepth bool, colorFinal, depthFinal vk.ImageLayout) (vk.RenderPass, error) {
	key := makeRenderPassKey(colorFormats, depthFormat, clearColor, clearDepth, colorFinal, depthFinal)
	if pass, ok := c.passes[key]; ok {
		return pass, nil
	}
	pass, err := renderPassCreate(context, colorFormats, depthFormat, clearColor, clearDepth, colorFinal, depthFinal)
	if err != nil {
		return vk.NullRenderPass, err
	}
	c.passes[key] = pass
	return pass, nil
}

func (c *renderPassCache) destroy(context *VulkanContext) {
	for _, pass := range c.passes {
		vk.DestroyRenderPass(context.Device.LogicalDevice, pass, context.Allocator)
	}
	c.passes = make(map[renderPassKey]vk.RenderPass)
}

func renderPassCreate(context *VulkanContext, colorFormats []vk.Format, depthFormat vk.Format, clearColor, clearDepth bool, colorFinal, depthFinal vk.ImageLayout) (vk.RenderPass, error) {
	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference

	colorLoadOp := vk.AttachmentLoadOpLoad
	colorInitial := colorFinal
	if clearColor {
		colorLoadOp = vk.AttachmentLoadOpClear
		colorInitial = vk.ImageLayoutUndefined
	}
	for i, format := range colorFormats {
		attachment := vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         colorLoadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  colorInitial,
			FinalLayout:    colorFinal,
		}
		attachment.Deref()
		attachments = append(attachments, attachment)
		ref := vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
		ref.Deref()
		colorRefs = append(colorRefs, ref)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	var depthRef vk.AttachmentReference
	if depthFormat != vk.FormatUndefined {
		depthLoadOp := vk.AttachmentLoadOpLoad
		depthInitial := depthFinal
		if clearDepth {
			depthLoadOp = vk.AttachmentLoadOpClear
			depthInitial = vk.ImageLayoutUndefined
		}
		attachment := vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         depthLoadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  depthInitial,
			FinalLayout:    depthFinal,
		}
		attachment.Deref()
		attachments = append(attachments, attachment)
		depthRef = vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthRef.Deref()
		subpass.PDepthStencilAttachment = &depthRef
	}
	subpass.Deref()

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}
	dependency.Deref()

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	createInfo.Deref()

	var pass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &pass); !VulkanResultIsSuccess(res) {
		return vk.NullRenderPass, fmt.Errorf("failed to create render pass: %s", VulkanResultString(res))
	}
	return pass, nil
}

func framebufferCreate(context *VulkanContext, pass vk.RenderPass, width, height uint32, attachments []vk.ImageView) (vk.Framebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	createInfo.Deref()

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &framebuffer); !VulkanResultIsSuccess(res) {
		return vk.NullFramebuffer, fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res))
	}
	return framebuffer, nil
}
