package vulkan

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Shader binaries are precompiled from the GLSL sources by the Shaders mage
// target and named <shader-name>.vert.spv / <shader-name>.frag.spv, where the
// shader name already encodes its feature variant.
const defaultShaderDir = "assets/shaders/spv"

func loadShaderModule(context *VulkanContext, dir, name, stage string) (vk.ShaderModule, error) {
	if dir == "" {
		dir = defaultShaderDir
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.spv", name, stage))
	code, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, fmt.Errorf("failed to read shader binary %s: %w", path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.NullShaderModule, fmt.Errorf("shader binary %s is not valid SPIR-V", path)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4),
	}
	createInfo.Deref()

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); !VulkanResultIsSuccess(res) {
		return vk.NullShaderModule, fmt.Errorf("failed to create shader module for %s: %s", path, VulkanResultString(res))
	}
	return module, nil
}
