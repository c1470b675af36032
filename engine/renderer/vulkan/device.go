package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type vulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	TransferFamilyIndex int32
}

// DeviceCreate selects a physical device, builds the logical device, fetches
// the queues and creates the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")
	d := context.Device

	// Do not create additional queues for shared indices.
	presentShares := d.GraphicsQueueIndex == d.PresentQueueIndex
	transferShares := d.GraphicsQueueIndex == d.TransferQueueIndex
	indices := []uint32{uint32(d.GraphicsQueueIndex)}
	if !presentShares {
		indices = append(indices, uint32(d.PresentQueueIndex))
	}
	if !transferShares {
		indices = append(indices, uint32(d.TransferQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	priority := []float32{1.0}
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: priority,
		}
		queueCreateInfos[i].Deref()
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}
	deviceFeatures.Deref()

	extensions := VulkanSafeStrings([]string{vk.KhrSwapchainExtensionName})
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	deviceCreateInfo.Deref()

	var logicalDevice vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to create logical device: %s", VulkanResultString(res))
	}
	d.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue, transferQueue vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.PresentQueueIndex), 0, &presentQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.TransferQueueIndex), 0, &transferQueue)
	d.GraphicsQueue = graphicsQueue
	d.PresentQueue = presentQueue
	d.TransferQueue = transferQueue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	poolCreateInfo.Deref()

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res))
	}
	d.GraphicsCommandPool = pool

	return deviceDetectDepthFormat(d)
}

func DeviceDestroy(context *VulkanContext) {
	d := context.Device
	if d == nil {
		return
	}
	if d.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, context.Allocator)
		d.GraphicsCommandPool = vk.NullCommandPool
	}
	if d.LogicalDevice != nil {
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	}
	d.PhysicalDevice = nil
}

func selectPhysicalDevice(context *VulkanContext) error {
	var deviceCount uint32
	vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, nil)
	if deviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, physicalDevices)

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
		memory.Deref()

		queueInfo, support, ok := deviceMeetsRequirements(pd, context.Surface, &features)
		if !ok {
			continue
		}

		name := vk.ToString(properties.DeviceName[:])
		core.LogInfo("Selected device: %s", name)

		context.Device = &VulkanDevice{
			PhysicalDevice:     pd,
			GraphicsQueueIndex: queueInfo.GraphicsFamilyIndex,
			PresentQueueIndex:  queueInfo.PresentFamilyIndex,
			TransferQueueIndex: queueInfo.TransferFamilyIndex,
			Properties:         properties,
			Features:           features,
			Memory:             memory,
			SwapchainSupport:   support,
		}
		return nil
	}
	return fmt.Errorf("no physical device met the requirements")
}

func deviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, features *vk.PhysicalDeviceFeatures) (vulkanPhysicalDeviceQueueFamilyInfo, VulkanSwapchainSupportInfo, bool) {
	info := vulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
		TransferFamilyIndex: -1,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Prefer a dedicated transfer queue: pick the family with the fewest
	// additional capabilities.
	minTransferScore := uint8(255)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		var transferScore uint8

		if info.GraphicsFamilyIndex == -1 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			info.GraphicsFamilyIndex = int32(i)
			transferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			transferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
			if transferScore <= minTransferScore {
				minTransferScore = transferScore
				info.TransferFamilyIndex = int32(i)
			}
		}

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent)
		if supportsPresent == vk.True && info.PresentFamilyIndex == -1 {
			info.PresentFamilyIndex = int32(i)
		}
	}

	if info.GraphicsFamilyIndex == -1 || info.PresentFamilyIndex == -1 || info.TransferFamilyIndex == -1 {
		return info, VulkanSwapchainSupportInfo{}, false
	}
	if features.SamplerAnisotropy != vk.True {
		return info, VulkanSwapchainSupportInfo{}, false
	}
	if !deviceSupportsExtensions(device, []string{vk.KhrSwapchainExtensionName}) {
		return info, VulkanSwapchainSupportInfo{}, false
	}

	support := DeviceQuerySwapchainSupport(device, surface)
	if support.FormatCount == 0 || support.PresentModeCount == 0 {
		return info, support, false
	}
	return info, support, true
}

func deviceSupportsExtensions(device vk.PhysicalDevice, required []string) bool {
	var count uint32
	vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)
	available := make([]vk.ExtensionProperties, count)
	vk.EnumerateDeviceExtensionProperties(device, "", &count, available)

	for _, want := range required {
		found := false
		for i := range available {
			available[i].Deref()
			if vk.ToString(available[i].ExtensionName[:]) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DeviceQuerySwapchainSupport fetches surface capabilities, formats and
// present modes; called again on every swapchain (re)creation.
func DeviceQuerySwapchainSupport(device vk.PhysicalDevice, surface vk.Surface) VulkanSwapchainSupportInfo {
	var support VulkanSwapchainSupportInfo

	vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &support.Capabilities)
	support.Capabilities.Deref()

	vk.GetPhysicalDeviceSurfaceFormats(device, surface, &support.FormatCount, nil)
	if support.FormatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, support.FormatCount)
		vk.GetPhysicalDeviceSurfaceFormats(device, surface, &support.FormatCount, support.Formats)
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &support.PresentModeCount, nil)
	if support.PresentModeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, support.PresentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &support.PresentModeCount, support.PresentModes)
	}
	return support
}

func deviceDetectDepthFormat(device *VulkanDevice) error {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = format
			return nil
		}
	}
	return fmt.Errorf("failed to find a supported depth format")
}
