package engine

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

func TestPipelineOptionsFromConfigKeepsDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.ShadowResolution = 0
	cfg.Renderer.CascadeCount = 0
	cfg.Renderer.PSSMLambda = 0
	cfg.Renderer.IrradianceStep = 0

	opts := pipelineOptionsFromConfig(cfg)
	def := renderer.DefaultPipelineOptions()

	if opts.ClearColor != def.ClearColor {
		t.Fatalf("clear color = %v, want default %v", opts.ClearColor, def.ClearColor)
	}
	if opts.ShadowResolution != def.ShadowResolution {
		t.Fatalf("shadow resolution = %d, want default %d", opts.ShadowResolution, def.ShadowResolution)
	}
	if opts.CascadeCount != def.CascadeCount {
		t.Fatalf("cascade count = %d, want default %d", opts.CascadeCount, def.CascadeCount)
	}
	if opts.IrradianceStep != def.IrradianceStep {
		t.Fatalf("irradiance step = %v, want default %v", opts.IrradianceStep, def.IrradianceStep)
	}
}

func TestPipelineOptionsFromConfigOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.ShadowResolution = 4096
	cfg.Renderer.CascadeCount = 3
	cfg.Renderer.PSSMLambda = 0.5
	cfg.Renderer.IrradianceStep = 0.05

	opts := pipelineOptionsFromConfig(cfg)

	if opts.ShadowResolution != 4096 {
		t.Fatalf("shadow resolution = %d, want 4096", opts.ShadowResolution)
	}
	if opts.CascadeCount != 3 {
		t.Fatalf("cascade count = %d, want 3", opts.CascadeCount)
	}
	if opts.PSSMLambda != 0.5 {
		t.Fatalf("pssm lambda = %v, want 0.5", opts.PSSMLambda)
	}
	if opts.IrradianceStep != 0.05 {
		t.Fatalf("irradiance step = %v, want 0.05", opts.IrradianceStep)
	}
	if opts.ClearColor != renderer.DefaultPipelineOptions().ClearColor {
		t.Fatalf("clear color = %v, want pipeline default", opts.ClearColor)
	}
}
