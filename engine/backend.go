package engine

import (
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/opengl"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

func newOpenGLBackend() renderer.Backend {
	return opengl.New()
}

func newVulkanBackend(p *platform.Platform, cfg config.RendererConfig) renderer.Backend {
	var opts []vulkan.Option
	if cfg.Validation {
		opts = append(opts, vulkan.WithValidation())
	}
	if cfg.ShaderDir != "" {
		opts = append(opts, vulkan.WithShaderDir(cfg.ShaderDir))
	}
	return vulkan.New(p.VulkanSurfaceFactory(), p.RequiredVulkanExtensions(), opts...)
}
