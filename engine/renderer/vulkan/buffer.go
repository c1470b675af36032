package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

type VulkanBuffer struct {
	Handle    vk.Buffer
	DeviceMem vk.DeviceMemory
	Size      vk.DeviceSize
	Mapped    unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memory vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	createInfo.Deref()

	device := context.Device.LogicalDevice
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &createInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memory)
	if err != nil {
		vk.DestroyBuffer(device, handle, context.Allocator)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	allocateInfo.Deref()

	var deviceMem vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &deviceMem); !VulkanResultIsSuccess(res) {
		vk.DestroyBuffer(device, handle, context.Allocator)
		return nil, fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
	}
	if res := vk.BindBufferMemory(device, handle, deviceMem, 0); !VulkanResultIsSuccess(res) {
		vk.FreeMemory(device, deviceMem, context.Allocator)
		vk.DestroyBuffer(device, handle, context.Allocator)
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
	}

	return &VulkanBuffer{Handle: handle, DeviceMem: deviceMem, Size: size}, nil
}

// Map keeps the whole buffer persistently mapped; host-visible memory only.
func (b *VulkanBuffer) Map(context *VulkanContext) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.DeviceMem, 0, b.Size, 0, &ptr); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
	}
	b.Mapped = ptr
	return nil
}

// WriteAt copies data into the mapped region at the given offset.
func (b *VulkanBuffer) WriteAt(offset vk.DeviceSize, data []byte) error {
	if b.Mapped == nil {
		return fmt.Errorf("buffer is not mapped")
	}
	if vk.DeviceSize(len(data))+offset > b.Size {
		return fmt.Errorf("buffer write out of range: %d+%d > %d", offset, len(data), b.Size)
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(b.Mapped, uintptr(offset))), len(data))
	copy(dst, data)
	return nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) {
	if b.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.DeviceMem)
		b.Mapped = nil
	}
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	b.Unmap(context)
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.DeviceMem != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.DeviceMem, context.Allocator)
		b.DeviceMem = vk.NullDeviceMemory
	}
}

// uploadViaStaging copies host data into a device-local buffer through a
// transient staging buffer.
func uploadViaStaging(context *VulkanContext, dst *VulkanBuffer, data []byte) error {
	staging, err := BufferCreate(context, vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(context)

	if err := staging.Map(context); err != nil {
		return err
	}
	if err := staging.WriteAt(0, data); err != nil {
		return err
	}
	staging.Unmap(context)

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{Size: vk.DeviceSize(len(data))}
	region.Deref()
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}
