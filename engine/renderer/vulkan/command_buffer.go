package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type commandBufferState int

const (
	commandBufferStateReady commandBufferState = iota
	commandBufferStateRecording
	commandBufferStateInRenderPass
	commandBufferStateRecordingEnded
	commandBufferStateSubmitted
	commandBufferStateNotAllocated
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  commandBufferState
}

func CommandBufferAllocate(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}
	allocateInfo.Deref()

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to allocate command buffer: %s", VulkanResultString(res))
	}
	return &VulkanCommandBuffer{Handle: handles[0], State: commandBufferStateReady}, nil
}

func (cb *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if cb.Handle != nil {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{cb.Handle})
		cb.Handle = nil
	}
	cb.State = commandBufferStateNotAllocated
}

func (cb *VulkanCommandBuffer) Begin(singleUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	beginInfo.Deref()

	if res := vk.BeginCommandBuffer(cb.Handle, &beginInfo); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to begin command buffer: %s", VulkanResultString(res))
	}
	cb.State = commandBufferStateRecording
	return nil
}

func (cb *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.Handle); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to end command buffer: %s", VulkanResultString(res))
	}
	cb.State = commandBufferStateRecordingEnded
	return nil
}

func (cb *VulkanCommandBuffer) Reset() {
	cb.State = commandBufferStateReady
}

// AllocateAndBeginSingleUse hands back a one-shot command buffer already in
// the recording state.
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := CommandBufferAllocate(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse submits the buffer, waits for the queue to drain and frees it.
func (cb *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	if err := cb.End(); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	submitInfo.Deref()

	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to submit single-use command buffer: %s", VulkanResultString(res))
	}
	if res := vk.QueueWaitIdle(queue); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("queue wait failed: %s", VulkanResultString(res))
	}
	cb.Free(context, pool)
	return nil
}
