package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func FenceCreate(context *VulkanContext, signaled bool) (*VulkanFence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	createInfo.Deref()

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create fence: %s", VulkanResultString(res))
	}
	return &VulkanFence{Handle: handle, IsSignaled: signaled}, nil
}

// Wait blocks until the fence signals or the timeout elapses.
func (f *VulkanFence) Wait(context *VulkanContext, timeoutNS uint64) error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, timeoutNS)
	if result != vk.Success {
		return fmt.Errorf("fence wait failed: %s", VulkanResultString(result))
	}
	f.IsSignaled = true
	return nil
}

func (f *VulkanFence) Reset(context *VulkanContext) error {
	if !f.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("fence reset failed: %s", VulkanResultString(res))
	}
	f.IsSignaled = false
	return nil
}

func (f *VulkanFence) Destroy(context *VulkanContext) {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, f.Handle, context.Allocator)
		f.Handle = vk.NullFence
	}
	f.IsSignaled = false
}
