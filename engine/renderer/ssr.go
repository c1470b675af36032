package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/math"
)

// SSRPass ray-marches the depth buffer in screen space to add specular
// reflections on top of the lit scene. The output target carries scene color
// plus reflections and replaces the lighting target as the chain input.
type SSRPass struct {
	backend Backend
	width   uint32
	height  uint32
	shader  Shader
	target  RenderTarget

	MaxDistance float32
	Thickness   float32
	MaxSteps    int
}

func newSSRPass(backend Backend, width, height uint32, desc ShaderDesc) (*SSRPass, error) {
	shader, err := backend.CreateShader(desc)
	if err != nil {
		return nil, fmt.Errorf("ssr shader: %w", err)
	}
	return &SSRPass{
		backend:     backend,
		width:       width,
		height:      height,
		shader:      shader,
		MaxDistance: 32.0,
		Thickness:   0.15,
		MaxSteps:    48,
	}, nil
}

// Resize drops the reflection target.
func (p *SSRPass) Resize(width, height uint32) {
	p.width = width
	p.height = height
	p.destroyTargets()
}

// Execute marches reflections over the lit scene and returns the combined
// target.
func (p *SSRPass) Execute(lit RenderTarget, gbuffer RenderTarget, frame *PerFrameUBO) (RenderTarget, error) {
	if p.target == nil {
		rt, err := p.backend.CreateRenderTarget(RenderTargetDesc{
			Name:         "ssr.combined",
			Width:        p.width,
			Height:       p.height,
			ColorFormats: []TextureFormat{FormatRGBA16F},
			Filter:       FilterLinear,
			Wrap:         WrapClampToEdge,
		})
		if err != nil {
			return nil, fmt.Errorf("ssr target: %w", err)
		}
		p.target = rt
	}

	params := PostParamsUBO{
		Params0: math.Vec4{
			X: p.MaxDistance,
			Y: p.Thickness,
			Z: float32(p.MaxSteps),
		},
	}

	clear := math.NewVec4(0, 0, 0, 1)
	if err := p.backend.BeginPass(PassDesc{Label: "ssr", Target: p.target, ClearColor: &clear}); err != nil {
		return nil, err
	}
	if err := p.backend.BindShader(p.shader); err != nil {
		return nil, err
	}
	if err := p.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
		return nil, err
	}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(&params)); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotGBuffer1, gbuffer.ColorTexture(1)); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotDepth, gbuffer.DepthTexture()); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotExtra0, lit.ColorTexture(0)); err != nil {
		return nil, err
	}
	if err := p.backend.DrawFullscreen(); err != nil {
		return nil, err
	}
	if err := p.backend.EndPass(); err != nil {
		return nil, err
	}
	return p.target, nil
}

func (p *SSRPass) destroyTargets() {
	if p.target != nil {
		p.target.Destroy()
		p.target = nil
	}
}

// Destroy releases the target and shader.
func (p *SSRPass) Destroy() {
	p.destroyTargets()
	if p.shader != nil {
		p.shader.Destroy()
	}
}
