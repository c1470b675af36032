package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type ImageParams struct {
	Name      string
	Width     uint32
	Height    uint32
	Format    vk.Format
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
	Memory    vk.MemoryPropertyFlags
	Aspect    vk.ImageAspectFlags
	MipLevels uint32
	Layers    uint32
	Cube      bool
}

type VulkanImage struct {
	Name      string
	Handle    vk.Image
	DeviceMem vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	Format    vk.Format
	Aspect    vk.ImageAspectFlags
	MipLevels uint32
	Layers    uint32
}

func ImageCreate(context *VulkanContext, params ImageParams) (*VulkanImage, error) {
	if params.MipLevels == 0 {
		params.MipLevels = 1
	}
	if params.Layers == 0 {
		params.Layers = 1
	}

	createInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        params.Format,
		Extent:        vk.Extent3D{Width: params.Width, Height: params.Height, Depth: 1},
		MipLevels:     params.MipLevels,
		ArrayLayers:   params.Layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        params.Tiling,
		Usage:         params.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if params.Cube {
		createInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	createInfo.Deref()

	device := context.Device.LogicalDevice
	var handle vk.Image
	if res := vk.CreateImage(device, &createInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create image %q: %s", params.Name, VulkanResultString(res))
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, params.Memory)
	if err != nil {
		vk.DestroyImage(device, handle, context.Allocator)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	allocateInfo.Deref()

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
		vk.DestroyImage(device, handle, context.Allocator)
		return nil, fmt.Errorf("failed to allocate image memory for %q: %s", params.Name, VulkanResultString(res))
	}
	if res := vk.BindImageMemory(device, handle, memory, 0); !VulkanResultIsSuccess(res) {
		vk.FreeMemory(device, memory, context.Allocator)
		vk.DestroyImage(device, handle, context.Allocator)
		return nil, fmt.Errorf("failed to bind image memory for %q: %s", params.Name, VulkanResultString(res))
	}

	image := &VulkanImage{
		Name:      params.Name,
		Handle:    handle,
		DeviceMem: memory,
		Width:     params.Width,
		Height:    params.Height,
		Format:    params.Format,
		Aspect:    params.Aspect,
		MipLevels: params.MipLevels,
		Layers:    params.Layers,
	}

	viewType := vk.ImageViewType2d
	if params.Cube {
		viewType = vk.ImageViewTypeCube
	}
	view, err := imageViewCreateTyped(context, handle, params.Format, params.Aspect, params.MipLevels, params.Layers, viewType)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.View = view
	return image, nil
}

func imageViewCreate(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	return imageViewCreateTyped(context, image, format, aspect, mipLevels, 1, vk.ImageViewType2d)
}

func imageViewCreateTyped(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels, layers uint32, viewType vk.ImageViewType) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
	createInfo.Deref()

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &createInfo, context.Allocator, &view); !VulkanResultIsSuccess(res) {
		return vk.NullImageView, fmt.Errorf("failed to create image view: %s", VulkanResultString(res))
	}
	return view, nil
}

// FaceViewCreate makes a single-face 2D view into a cubemap mip, used as a
// framebuffer attachment during environment precompute passes.
func (image *VulkanImage) FaceViewCreate(context *VulkanContext, face, mip uint32) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     image.Aspect,
			BaseMipLevel:   mip,
			LevelCount:     1,
			BaseArrayLayer: face,
			LayerCount:     1,
		},
	}
	createInfo.Deref()

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &createInfo, context.Allocator, &view); !VulkanResultIsSuccess(res) {
		return vk.NullImageView, fmt.Errorf("failed to create face view for %q: %s", image.Name, VulkanResultString(res))
	}
	return view, nil
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// transitionTable enumerates every layout pair the renderer performs. An
// unlisted pair is a bug in the caller, not something to paper over with a
// full-pipeline barrier.
var transitionTable = map[[2]vk.ImageLayout]layoutTransition{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutColorAttachmentOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		dstAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	},
	{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc}: {
		srcStage: vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage: vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	},
	{vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferDstOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
}

// TransitionLayout records a barrier moving the whole image between two
// layouts. The pair must be listed in the transition table.
func (image *VulkanImage) TransitionLayout(cb *VulkanCommandBuffer, from, to vk.ImageLayout) error {
	return imageTransition(cb, image.Handle, image.Aspect, image.MipLevels, image.Layers, from, to)
}

// TransitionMipLayout is TransitionLayout restricted to one mip of one layer.
func (image *VulkanImage) TransitionMipLayout(cb *VulkanCommandBuffer, layer, mip uint32, from, to vk.ImageLayout) error {
	return imageTransitionRange(cb, image.Handle, image.Aspect, mip, 1, layer, 1, from, to)
}

func imageTransition(cb *VulkanCommandBuffer, image vk.Image, aspect vk.ImageAspectFlags, mipLevels, layers uint32, from, to vk.ImageLayout) error {
	return imageTransitionRange(cb, image, aspect, 0, mipLevels, 0, layers, from, to)
}

func imageTransitionRange(cb *VulkanCommandBuffer, image vk.Image, aspect vk.ImageAspectFlags, baseMip, mipCount, baseLayer, layerCount uint32, from, to vk.ImageLayout) error {
	transition, ok := transitionTable[[2]vk.ImageLayout{from, to}]
	if !ok {
		return fmt.Errorf("unsupported image layout transition: %d -> %d", from, to)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SrcAccessMask:       transition.srcAccess,
		DstAccessMask:       transition.dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	barrier.Deref()

	vk.CmdPipelineBarrier(cb.Handle, transition.srcStage, transition.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

func (image *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if image.View != vk.NullImageView {
		vk.DestroyImageView(device, image.View, context.Allocator)
		image.View = vk.NullImageView
	}
	if image.DeviceMem != vk.NullDeviceMemory {
		vk.FreeMemory(device, image.DeviceMem, context.Allocator)
		image.DeviceMem = vk.NullDeviceMemory
	}
	if image.Handle != vk.NullImage {
		vk.DestroyImage(device, image.Handle, context.Allocator)
		image.Handle = vk.NullImage
	}
}
