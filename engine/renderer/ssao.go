package renderer

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/lumen/engine/math"
)

const ssaoNoiseSize = 4

// SSAOPass computes screen-space ambient occlusion from the depth buffer and
// G-Buffer normals: a hemisphere kernel oriented along the surface normal,
// randomly rotated per 4x4 pixel tile, followed by a box blur to suppress the
// rotation pattern.
type SSAOPass struct {
	backend Backend
	width   uint32
	height  uint32

	occlusionShader Shader
	blurShader      Shader
	noise           Texture
	kernel          [SSAOKernelSize]math.Vec4

	occlusion RenderTarget
	blurred   RenderTarget

	Radius float32
	Bias   float32
	Power  float32
}

func newSSAOPass(backend Backend, width, height uint32, occlusionDesc, blurDesc ShaderDesc) (*SSAOPass, error) {
	p := &SSAOPass{
		backend: backend,
		width:   width,
		height:  height,
		Radius:  0.5,
		Bias:    0.025,
		Power:   1.5,
	}

	var err error
	if p.occlusionShader, err = backend.CreateShader(occlusionDesc); err != nil {
		return nil, fmt.Errorf("ssao shader: %w", err)
	}
	if p.blurShader, err = backend.CreateShader(blurDesc); err != nil {
		return nil, fmt.Errorf("ssao blur shader: %w", err)
	}

	rng := rand.New(rand.NewSource(0x55a0))
	p.kernel = buildSSAOKernel(rng)
	if p.noise, err = createSSAONoise(backend, rng); err != nil {
		return nil, err
	}
	return p, nil
}

// buildSSAOKernel samples the positive-z hemisphere with density biased
// toward the origin so close occluders dominate.
func buildSSAOKernel(rng *rand.Rand) [SSAOKernelSize]math.Vec4 {
	var kernel [SSAOKernelSize]math.Vec4
	for i := range kernel {
		v := math.NewVec3(
			rng.Float32()*2-1,
			rng.Float32()*2-1,
			rng.Float32(),
		).Normalized().MulScalar(rng.Float32())

		scale := float32(i) / float32(SSAOKernelSize)
		scale = math.Lerp(0.1, 1.0, scale*scale)
		v = v.MulScalar(scale)
		kernel[i] = math.NewVec4(v.X, v.Y, v.Z, 0)
	}
	return kernel
}

// createSSAONoise builds the 4x4 tiling random-rotation texture. Only xy are
// used; z stays zero so the tangent basis rotates around the normal.
func createSSAONoise(backend Backend, rng *rand.Rand) (Texture, error) {
	pixels := make([]float32, ssaoNoiseSize*ssaoNoiseSize*4)
	for i := 0; i < ssaoNoiseSize*ssaoNoiseSize; i++ {
		pixels[i*4+0] = rng.Float32()*2 - 1
		pixels[i*4+1] = rng.Float32()*2 - 1
	}
	noise, err := backend.CreateTexture(TextureDesc{
		Name:    "ssao.noise",
		Type:    TextureType2D,
		Format:  FormatRGBA16F,
		Width:   ssaoNoiseSize,
		Height:  ssaoNoiseSize,
		Filter:  FilterNearest,
		Wrap:    WrapRepeat,
		PixelsF: pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("ssao noise texture: %w", err)
	}
	return noise, nil
}

// Resize drops the occlusion targets; they are recreated on next Execute.
func (p *SSAOPass) Resize(width, height uint32) {
	p.width = width
	p.height = height
	p.destroyTargets()
}

// Execute renders occlusion and blur and returns the blurred AO texture.
func (p *SSAOPass) Execute(gbuffer RenderTarget, frame *PerFrameUBO) (Texture, error) {
	if p.occlusion == nil {
		var err error
		if p.occlusion, err = p.createTarget("ssao.occlusion"); err != nil {
			return nil, err
		}
		if p.blurred, err = p.createTarget("ssao.blurred"); err != nil {
			return nil, err
		}
	}

	ubo := SSAOUBO{
		Kernel: p.kernel,
		Params: math.Vec4{
			X: p.Radius,
			Y: p.Bias,
			Z: p.Power,
			W: float32(ssaoNoiseSize),
		},
	}

	clear := math.NewVec4(1, 1, 1, 1)
	if err := p.backend.BeginPass(PassDesc{Label: "ssao.occlusion", Target: p.occlusion, ClearColor: &clear}); err != nil {
		return nil, err
	}
	if err := p.backend.BindShader(p.occlusionShader); err != nil {
		return nil, err
	}
	if err := p.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
		return nil, err
	}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(&ubo)); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotGBuffer1, gbuffer.ColorTexture(1)); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotDepth, gbuffer.DepthTexture()); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotExtra0, p.noise); err != nil {
		return nil, err
	}
	if err := p.backend.DrawFullscreen(); err != nil {
		return nil, err
	}
	if err := p.backend.EndPass(); err != nil {
		return nil, err
	}

	params := PostParamsUBO{
		Params0: math.Vec4{X: 1.0 / float32(p.width), Y: 1.0 / float32(p.height)},
	}
	if err := p.backend.BeginPass(PassDesc{Label: "ssao.blur", Target: p.blurred, ClearColor: &clear}); err != nil {
		return nil, err
	}
	if err := p.backend.BindShader(p.blurShader); err != nil {
		return nil, err
	}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(&params)); err != nil {
		return nil, err
	}
	if err := p.backend.BindTexture(TexSlotExtra0, p.occlusion.ColorTexture(0)); err != nil {
		return nil, err
	}
	if err := p.backend.DrawFullscreen(); err != nil {
		return nil, err
	}
	if err := p.backend.EndPass(); err != nil {
		return nil, err
	}
	return p.blurred.ColorTexture(0), nil
}

func (p *SSAOPass) createTarget(name string) (RenderTarget, error) {
	rt, err := p.backend.CreateRenderTarget(RenderTargetDesc{
		Name:         name,
		Width:        p.width,
		Height:       p.height,
		ColorFormats: []TextureFormat{FormatR8},
		Filter:       FilterLinear,
		Wrap:         WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("%s target: %w", name, err)
	}
	return rt, nil
}

func (p *SSAOPass) destroyTargets() {
	if p.occlusion != nil {
		p.occlusion.Destroy()
		p.occlusion = nil
	}
	if p.blurred != nil {
		p.blurred.Destroy()
		p.blurred = nil
	}
}

// Destroy releases targets, the noise texture and both shaders.
func (p *SSAOPass) Destroy() {
	p.destroyTargets()
	if p.noise != nil {
		p.noise.Destroy()
	}
	if p.occlusionShader != nil {
		p.occlusionShader.Destroy()
	}
	if p.blurShader != nil {
		p.blurShader.Destroy()
	}
}
