package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

const (
	// Each frame in flight owns one ring; uniform writes for a frame never
	// outlive its fence.
	uniformRingSize = 1 << 20

	// Large enough for the biggest UBO the shaders declare.
	uniformSlotRange = 4096

	descriptorSetsPerFrame = 1024
)

// frameResources holds the per-frame uniform ring and descriptor pool. Both
// are recycled wholesale when the frame's fence signals, so nothing here is
// freed individually.
type frameResources struct {
	uniformRing    *VulkanBuffer
	ringOffset     vk.DeviceSize
	ringAlignment  vk.DeviceSize
	dynamicOffsets [uniformSlotCount]uint32

	pool       vk.DescriptorPool
	uniformSet vk.DescriptorSet
}

func newFrameResources(context *VulkanContext, uniformLayout vk.DescriptorSetLayout) (*frameResources, error) {
	ring, err := BufferCreate(context, uniformRingSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := ring.Map(context); err != nil {
		ring.Destroy(context)
		return nil, err
	}

	context.Device.Properties.Limits.Deref()
	alignment := vk.DeviceSize(context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
	if alignment == 0 {
		alignment = 256
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: uniformSlotCount},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorSetsPerFrame * textureSlotCount},
	}
	for i := range poolSizes {
		poolSizes[i].Deref()
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorSetsPerFrame + 1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	poolInfo.Deref()

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		ring.Destroy(context)
		return nil, fmt.Errorf("failed to create frame descriptor pool: %s", VulkanResultString(res))
	}

	fr := &frameResources{
		uniformRing:   ring,
		ringAlignment: alignment,
		pool:          pool,
	}
	if err := fr.createUniformSet(context, uniformLayout); err != nil {
		fr.destroy(context)
		return nil, err
	}
	return fr, nil
}

// createUniformSet binds every uniform slot to the ring buffer once; per-draw
// data placement happens through dynamic offsets.
func (fr *frameResources) createUniformSet(context *VulkanContext, layout vk.DescriptorSetLayout) error {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     fr.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	allocateInfo.Deref()

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to allocate uniform descriptor set: %s", VulkanResultString(res))
	}
	fr.uniformSet = sets[0]

	bufferInfos := make([]vk.DescriptorBufferInfo, uniformSlotCount)
	writes := make([]vk.WriteDescriptorSet, uniformSlotCount)
	for i := 0; i < uniformSlotCount; i++ {
		bufferInfos[i] = vk.DescriptorBufferInfo{
			Buffer: fr.uniformRing.Handle,
			Offset: 0,
			Range:  uniformSlotRange,
		}
		bufferInfos[i].Deref()
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          fr.uniformSet,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     bufferInfos[i : i+1],
		}
		writes[i].Deref()
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uniformSlotCount, writes, 0, nil)
	return nil
}

// reset recycles the ring and descriptor pool for a new frame. Resetting the
// pool frees every set allocated from it, so the uniform set is reallocated.
func (fr *frameResources) reset(context *VulkanContext, uniformLayout vk.DescriptorSetLayout) error {
	fr.ringOffset = 0
	for i := range fr.dynamicOffsets {
		fr.dynamicOffsets[i] = 0
	}
	if res := vk.ResetDescriptorPool(context.Device.LogicalDevice, fr.pool, 0); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("failed to reset frame descriptor pool: %s", VulkanResultString(res))
	}
	return fr.createUniformSet(context, uniformLayout)
}

// pushUniform appends the slot's data to the ring and records its dynamic
// offset for the next descriptor bind.
func (fr *frameResources) pushUniform(slot int, data []byte) error {
	if slot < 0 || slot >= uniformSlotCount {
		return fmt.Errorf("uniform slot %d out of range", slot)
	}
	if len(data) > uniformSlotRange {
		return fmt.Errorf("uniform data for slot %d exceeds %d bytes", slot, uniformSlotRange)
	}

	offset := alignUp(fr.ringOffset, fr.ringAlignment)
	if offset+uniformSlotRange > uniformRingSize {
		return fmt.Errorf("uniform ring exhausted for this frame")
	}
	if err := fr.uniformRing.WriteAt(offset, data); err != nil {
		return err
	}
	fr.dynamicOffsets[slot] = uint32(offset)
	fr.ringOffset = offset + vk.DeviceSize(len(data))
	return nil
}

// allocateTextureSet hands out a fresh sampler set from the frame pool.
func (fr *frameResources) allocateTextureSet(context *VulkanContext, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     fr.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	allocateInfo.Deref()

	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); !VulkanResultIsSuccess(res) {
		return vk.NullDescriptorSet, fmt.Errorf("failed to allocate texture descriptor set: %s", VulkanResultString(res))
	}
	return set, nil
}

func (fr *frameResources) destroy(context *VulkanContext) {
	if fr.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, fr.pool, context.Allocator)
		fr.pool = vk.NullDescriptorPool
	}
	if fr.uniformRing != nil {
		fr.uniformRing.Destroy(context)
		fr.uniformRing = nil
	}
}

func alignUp(v, alignment vk.DeviceSize) vk.DeviceSize {
	return (v + alignment - 1) &^ (alignment - 1)
}
