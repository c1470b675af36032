package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/resources"
)

const (
	uniformSlotCount = 5
	textureSlotCount = 16
)

// descriptorSetLayouts builds the two fixed layouts shared by every pipeline:
// set 0 holds the dynamic uniform slots, set 1 the sampler slots.
func descriptorSetLayouts(context *VulkanContext) (vk.DescriptorSetLayout, vk.DescriptorSetLayout, error) {
	uniformBindings := make([]vk.DescriptorSetLayoutBinding, uniformSlotCount)
	for i := range uniformBindings {
		uniformBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		}
		uniformBindings[i].Deref()
	}
	uniformInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uniformSlotCount,
		PBindings:    uniformBindings,
	}
	uniformInfo.Deref()

	var uniformLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &uniformInfo, context.Allocator, &uniformLayout); !VulkanResultIsSuccess(res) {
		return vk.NullDescriptorSetLayout, vk.NullDescriptorSetLayout, fmt.Errorf("failed to create uniform set layout: %s", VulkanResultString(res))
	}

	samplerBindings := make([]vk.DescriptorSetLayoutBinding, textureSlotCount)
	for i := range samplerBindings {
		samplerBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}
		samplerBindings[i].Deref()
	}
	samplerInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: textureSlotCount,
		PBindings:    samplerBindings,
	}
	samplerInfo.Deref()

	var samplerLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &samplerLayout); !VulkanResultIsSuccess(res) {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, uniformLayout, context.Allocator)
		return vk.NullDescriptorSetLayout, vk.NullDescriptorSetLayout, fmt.Errorf("failed to create sampler set layout: %s", VulkanResultString(res))
	}
	return uniformLayout, samplerLayout, nil
}

type pipelineKey struct {
	renderPass vk.RenderPass
	meshInput  bool
}

type vulkanShader struct {
	backend    *VulkanBackend
	name       string
	desc       renderer.ShaderDesc
	vertModule vk.ShaderModule
	fragModule vk.ShaderModule
	pipelines  map[pipelineKey]vk.Pipeline
}

func (s *vulkanShader) Name() string { return s.name }

func (s *vulkanShader) Destroy() { s.destroy(s.backend.context) }

// pipelineFor returns the pipeline for this shader against the given render
// pass, building it on first use. Pipelines are cached per pass and per
// vertex input shape since fullscreen passes carry no vertex buffer.
func (s *vulkanShader) pipelineFor(context *VulkanContext, layout vk.PipelineLayout, pass vk.RenderPass, colorTargets int, meshInput bool) (vk.Pipeline, error) {
	key := pipelineKey{renderPass: pass, meshInput: meshInput}
	if p, ok := s.pipelines[key]; ok {
		return p, nil
	}
	p, err := buildPipeline(context, layout, pass, s, colorTargets, meshInput)
	if err != nil {
		return vk.NullPipeline, err
	}
	s.pipelines[key] = p
	return p, nil
}

func (s *vulkanShader) destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	for _, p := range s.pipelines {
		vk.DestroyPipeline(device, p, context.Allocator)
	}
	s.pipelines = nil
	if s.vertModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, s.vertModule, context.Allocator)
		s.vertModule = vk.NullShaderModule
	}
	if s.fragModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, s.fragModule, context.Allocator)
		s.fragModule = vk.NullShaderModule
	}
}

func buildPipeline(context *VulkanContext, layout vk.PipelineLayout, pass vk.RenderPass, shader *vulkanShader, colorTargets int, meshInput bool) (vk.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: shader.vertModule,
			PName:  VulkanSafeString("main"),
		},
	}
	if shader.fragModule != vk.NullShaderModule {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: shader.fragModule,
			PName:  VulkanSafeString("main"),
		})
	}
	for i := range stages {
		stages[i].Deref()
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if meshInput {
		const stride = uint32(11 * 4)
		bindings := []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		bindings[0].Deref()
		attributes := []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
			{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
			{Location: 3, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 32},
		}
		for i := range attributes {
			attributes[i].Deref()
		}
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = bindings
		vertexInput.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInput.PVertexAttributeDescriptions = attributes
	}
	vertexInput.Deref()

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	inputAssembly.Deref()

	// Viewport and scissor are dynamic so resize never rebuilds pipelines.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	viewportState.Deref()

	cullMode := vk.CullModeFlags(vk.CullModeNone)
	switch shader.desc.CullMode {
	case resources.FaceCullModeBack:
		cullMode = vk.CullModeFlags(vk.CullModeBackBit)
	case resources.FaceCullModeFront:
		cullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	}
	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullMode,
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	rasterization.Deref()

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	multisample.Deref()

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
		DepthTestEnable:  vkBool(shader.desc.DepthTest),
		DepthWriteEnable: vkBool(shader.desc.DepthWrite),
	}
	depthStencil.Deref()

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, colorTargets)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}
		if shader.desc.BlendAdd {
			blendAttachments[i].BlendEnable = vk.True
			blendAttachments[i].SrcColorBlendFactor = vk.BlendFactorOne
			blendAttachments[i].DstColorBlendFactor = vk.BlendFactorOne
			blendAttachments[i].ColorBlendOp = vk.BlendOpAdd
			blendAttachments[i].SrcAlphaBlendFactor = vk.BlendFactorOne
			blendAttachments[i].DstAlphaBlendFactor = vk.BlendFactorOne
			blendAttachments[i].AlphaBlendOp = vk.BlendOpAdd
		}
		blendAttachments[i].Deref()
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}
	colorBlend.Deref()

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	dynamicState.Deref()

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          pass,
		Subpass:             0,
	}
	createInfo.Deref()

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, context.Allocator, pipelines); !VulkanResultIsSuccess(res) {
		return vk.NullPipeline, fmt.Errorf("failed to create pipeline for shader %q: %s", shader.name, VulkanResultString(res))
	}
	return pipelines[0], nil
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
