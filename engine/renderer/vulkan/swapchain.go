package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

type VulkanSwapchain struct {
	Handle            vk.Swapchain
	ImageFormat       vk.SurfaceFormat
	MaxFramesInFlight uint32
	ImageCount        uint32
	Images            []vk.Image
	ImageViews        []vk.ImageView
	DepthAttachment   *VulkanImage
	Extent            vk.Extent2D
}

// SwapchainCreate builds a swapchain for the current framebuffer size.
func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	sc := &VulkanSwapchain{}
	if err := sc.create(context, width, height); err != nil {
		return nil, err
	}
	return sc, nil
}

// SwapchainRecreate tears down and rebuilds the swapchain images; the old
// handle is passed as OldSwapchain so in-flight presentation can finish.
func (sc *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32) error {
	sc.destroyResources(context)
	return sc.create(context, width, height)
}

func (sc *VulkanSwapchain) create(context *VulkanContext, width, height uint32) error {
	device := context.Device
	device.SwapchainSupport = DeviceQuerySwapchainSupport(device.PhysicalDevice, context.Surface)
	support := device.SwapchainSupport

	// Prefer B8G8R8A8 SRGB; otherwise take whatever the surface offers first.
	sc.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			sc.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	caps := support.Capabilities
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		extent = caps.CurrentExtent
	}
	extent.Width = clampU32(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = clampU32(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	sc.Extent = extent

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	sc.MaxFramesInFlight = imageCount - 1

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     sc.Handle,
	}
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}
	createInfo.Deref()

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &createInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res))
	}
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, sc.Handle, context.Allocator)
	}
	sc.Handle = handle
	context.CurrentFrame = 0

	vk.GetSwapchainImages(device.LogicalDevice, sc.Handle, &sc.ImageCount, nil)
	sc.Images = make([]vk.Image, sc.ImageCount)
	vk.GetSwapchainImages(device.LogicalDevice, sc.Handle, &sc.ImageCount, sc.Images)

	sc.ImageViews = make([]vk.ImageView, sc.ImageCount)
	for i, image := range sc.Images {
		view, err := imageViewCreate(context, image, sc.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			return err
		}
		sc.ImageViews[i] = view
	}

	depth, err := ImageCreate(context, ImageParams{
		Name:      "swapchain.depth",
		Width:     extent.Width,
		Height:    extent.Height,
		Format:    device.DepthFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Memory:    vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		MipLevels: 1,
		Layers:    1,
	})
	if err != nil {
		return err
	}
	sc.DepthAttachment = depth

	core.LogInfo("Swapchain created: %dx%d, %d images", extent.Width, extent.Height, sc.ImageCount)
	return nil
}

// AcquireNextImageIndex waits on the next available image; a false second
// return means the swapchain is out of date and must be recreated.
func (sc *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, bool, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, sc.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)
	switch {
	case result == vk.ErrorOutOfDate:
		return 0, false, nil
	case result == vk.Success || result == vk.Suboptimal:
		return imageIndex, true, nil
	default:
		return 0, false, fmt.Errorf("failed to acquire swapchain image: %s", VulkanResultString(result))
	}
}

// Present queues presentation; a false return means the swapchain needs
// recreation.
func (sc *VulkanSwapchain) Present(context *VulkanContext, renderCompleteSemaphore vk.Semaphore, imageIndex uint32) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	presentInfo.Deref()

	result := vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
	switch {
	case result == vk.ErrorOutOfDate || result == vk.Suboptimal:
		return false, nil
	case result == vk.Success:
		context.CurrentFrame = (context.CurrentFrame + 1) % sc.MaxFramesInFlight
		return true, nil
	default:
		return false, fmt.Errorf("failed to present swapchain image: %s", VulkanResultString(result))
	}
}

func (sc *VulkanSwapchain) destroyResources(context *VulkanContext) {
	if sc.DepthAttachment != nil {
		sc.DepthAttachment.Destroy(context)
		sc.DepthAttachment = nil
	}
	for _, view := range sc.ImageViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	sc.ImageViews = nil
	sc.Images = nil
}

// SwapchainDestroy releases all swapchain resources including the handle.
func (sc *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	sc.destroyResources(context)
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, sc.Handle, context.Allocator)
		sc.Handle = vk.NullSwapchain
	}
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
