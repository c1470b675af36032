package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
)

// PostProcessConfig is the immutable per-frame configuration of the
// post-processing chain. It is supplied with every render call and never
// persisted by the pipeline.
type PostProcessConfig struct {
	BloomEnabled   bool
	BloomThreshold float32
	BloomIntensity float32

	ToneMapping shading.ToneMapOperator
	Gamma       float32

	FXAAEnabled bool

	DOFEnabled    bool
	FocusDistance float32
	FocusRange    float32
	BokehRadius   float32

	MotionBlurEnabled   bool
	MotionBlurIntensity float32
	MotionBlurSamples   int
	MaxVelocity         float32

	VignetteEnabled   bool
	VignetteIntensity float32
	VignetteRadius    float32
	VignetteSoftness  float32

	ColorGradingEnabled bool
	Brightness          float32
	Contrast            float32
	Saturation          float32

	SSAOEnabled bool
	SSREnabled  bool
	TAAEnabled  bool
}

// DefaultPostProcessConfig returns the neutral chain: tone mapping and gamma
// only.
func DefaultPostProcessConfig() PostProcessConfig {
	return PostProcessConfig{
		BloomThreshold:      1.0,
		BloomIntensity:      0.8,
		ToneMapping:         shading.ToneMapACES,
		Gamma:               2.2,
		FocusDistance:       10.0,
		FocusRange:          8.0,
		BokehRadius:         3.0,
		MotionBlurIntensity: 1.0,
		MotionBlurSamples:   8,
		MaxVelocity:         0.05,
		VignetteIntensity:   0.4,
		VignetteRadius:      0.7,
		VignetteSoftness:    0.45,
		Brightness:          1.0,
		Contrast:            1.0,
		Saturation:          1.0,
	}
}

const bloomBlurIterations = 5

// PostProcessChain runs the fixed stage order bloom -> depth of field ->
// motion blur -> composite -> FXAA. Targets for optional stages are
// allocated on first use, so a chain whose stages stay disabled allocates
// nothing beyond the composite target.
type PostProcessChain struct {
	backend Backend
	width   uint32
	height  uint32

	extractShader      Shader
	blurShader         Shader
	dofBlurShader      Shader
	dofCompositeShader Shader
	motionBlurShader   Shader
	compositeShader    Shader
	fxaaShader         Shader

	// Half-resolution bloom ping-pong pair.
	bloomTargets [2]RenderTarget
	// Half-resolution CoC-weighted blur pair.
	dofTargets   [2]RenderTarget
	dofComposite RenderTarget
	motionBlur   RenderTarget
	composite    RenderTarget
	fxaa         RenderTarget
}

type postShaderSet struct {
	Extract      ShaderDesc
	Blur         ShaderDesc
	DOFBlur      ShaderDesc
	DOFComposite ShaderDesc
	MotionBlur   ShaderDesc
	Composite    ShaderDesc
	FXAA         ShaderDesc
}

func newPostProcessChain(backend Backend, width, height uint32, shaders postShaderSet) (*PostProcessChain, error) {
	pc := &PostProcessChain{backend: backend, width: width, height: height}

	var err error
	if pc.extractShader, err = backend.CreateShader(shaders.Extract); err != nil {
		return nil, fmt.Errorf("bloom extract shader: %w", err)
	}
	if pc.blurShader, err = backend.CreateShader(shaders.Blur); err != nil {
		return nil, fmt.Errorf("bloom blur shader: %w", err)
	}
	if pc.dofBlurShader, err = backend.CreateShader(shaders.DOFBlur); err != nil {
		return nil, fmt.Errorf("dof blur shader: %w", err)
	}
	if pc.dofCompositeShader, err = backend.CreateShader(shaders.DOFComposite); err != nil {
		return nil, fmt.Errorf("dof composite shader: %w", err)
	}
	if pc.motionBlurShader, err = backend.CreateShader(shaders.MotionBlur); err != nil {
		return nil, fmt.Errorf("motion blur shader: %w", err)
	}
	if pc.compositeShader, err = backend.CreateShader(shaders.Composite); err != nil {
		return nil, fmt.Errorf("composite shader: %w", err)
	}
	if pc.fxaaShader, err = backend.CreateShader(shaders.FXAA); err != nil {
		return nil, fmt.Errorf("fxaa shader: %w", err)
	}
	return pc, nil
}

// Resize drops every size-dependent target; they are recreated lazily at the
// new size on the next frame that needs them.
func (pc *PostProcessChain) Resize(width, height uint32) {
	pc.width = width
	pc.height = height
	pc.destroyTargets()
}

// Execute runs the enabled stages over the HDR input and returns the final
// LDR target ready for presentation.
func (pc *PostProcessChain) Execute(input RenderTarget, depth Texture, frame *PerFrameUBO, cfg *PostProcessConfig) (RenderTarget, error) {
	current := input

	var bloomTex Texture
	if cfg.BloomEnabled {
		t, err := pc.runBloom(current, cfg)
		if err != nil {
			return nil, err
		}
		bloomTex = t
	}

	if cfg.DOFEnabled {
		t, err := pc.runDOF(current, depth, frame, cfg)
		if err != nil {
			return nil, err
		}
		current = t
	}

	if cfg.MotionBlurEnabled {
		t, err := pc.runMotionBlur(current, depth, frame, cfg)
		if err != nil {
			return nil, err
		}
		current = t
	}

	composite, err := pc.runComposite(current, bloomTex, cfg)
	if err != nil {
		return nil, err
	}
	current = composite

	if cfg.FXAAEnabled {
		t, err := pc.runFXAA(current)
		if err != nil {
			return nil, err
		}
		current = t
	}
	return current, nil
}

func (pc *PostProcessChain) runBloom(input RenderTarget, cfg *PostProcessConfig) (Texture, error) {
	if pc.bloomTargets[0] == nil {
		for i := range pc.bloomTargets {
			t, err := pc.ensureTarget(fmt.Sprintf("post.bloom%d", i), pc.width/2, pc.height/2, FormatRGBA16F)
			if err != nil {
				return nil, err
			}
			pc.bloomTargets[i] = t
		}
	}

	// Threshold extract at half resolution.
	params := PostParamsUBO{Params0: math.Vec4{X: cfg.BloomThreshold}}
	if err := pc.fullscreenPass("bloom.extract", pc.bloomTargets[0], pc.extractShader, &params,
		texBinding{TexSlotExtra0, input.ColorTexture(0)}); err != nil {
		return nil, err
	}

	// Ping-pong separable Gaussian blur.
	horizontal := true
	src, dst := 0, 1
	for i := 0; i < bloomBlurIterations*2; i++ {
		dir := math.Vec4{X: 1}
		if !horizontal {
			dir = math.Vec4{Y: 1}
		}
		params := PostParamsUBO{Params0: dir}
		if err := pc.fullscreenPass("bloom.blur", pc.bloomTargets[dst], pc.blurShader, &params,
			texBinding{TexSlotExtra0, pc.bloomTargets[src].ColorTexture(0)}); err != nil {
			return nil, err
		}
		src, dst = dst, src
		horizontal = !horizontal
	}
	return pc.bloomTargets[src].ColorTexture(0), nil
}

func (pc *PostProcessChain) runDOF(input RenderTarget, depth Texture, frame *PerFrameUBO, cfg *PostProcessConfig) (RenderTarget, error) {
	if pc.dofTargets[0] == nil {
		for i := range pc.dofTargets {
			t, err := pc.ensureTarget(fmt.Sprintf("post.dof%d", i), pc.width/2, pc.height/2, FormatRGBA16F)
			if err != nil {
				return nil, err
			}
			pc.dofTargets[i] = t
		}
		t, err := pc.ensureTarget("post.dof.composite", pc.width, pc.height, FormatRGBA16F)
		if err != nil {
			return nil, err
		}
		pc.dofComposite = t
	}

	near, far := frame.NearFarTime.X, frame.NearFarTime.Y
	params := PostParamsUBO{
		Params0: math.Vec4{X: cfg.FocusDistance, Y: cfg.FocusRange, Z: cfg.BokehRadius},
		Params1: math.Vec4{X: near, Y: far},
	}

	// Separable CoC-weighted blur at half resolution: each tap is weighted
	// by max(center CoC, tap CoC) so sharp foreground objects do not bleed.
	params.Params2 = math.Vec4{X: 1}
	if err := pc.fullscreenPass("dof.blurH", pc.dofTargets[0], pc.dofBlurShader, &params,
		texBinding{TexSlotExtra0, input.ColorTexture(0)},
		texBinding{TexSlotDepth, depth}); err != nil {
		return nil, err
	}
	params.Params2 = math.Vec4{Y: 1}
	if err := pc.fullscreenPass("dof.blurV", pc.dofTargets[1], pc.dofBlurShader, &params,
		texBinding{TexSlotExtra0, pc.dofTargets[0].ColorTexture(0)},
		texBinding{TexSlotDepth, depth}); err != nil {
		return nil, err
	}

	// Smoothstep composite of sharp and blurred by CoC.
	if err := pc.fullscreenPass("dof.composite", pc.dofComposite, pc.dofCompositeShader, &params,
		texBinding{TexSlotExtra0, input.ColorTexture(0)},
		texBinding{TexSlotExtra1, pc.dofTargets[1].ColorTexture(0)},
		texBinding{TexSlotDepth, depth}); err != nil {
		return nil, err
	}
	return pc.dofComposite, nil
}

func (pc *PostProcessChain) runMotionBlur(input RenderTarget, depth Texture, frame *PerFrameUBO, cfg *PostProcessConfig) (RenderTarget, error) {
	if pc.motionBlur == nil {
		t, err := pc.ensureTarget("post.motionblur", pc.width, pc.height, FormatRGBA16F)
		if err != nil {
			return nil, err
		}
		pc.motionBlur = t
	}

	params := PostParamsUBO{
		Params0: math.Vec4{
			X: cfg.MotionBlurIntensity,
			Y: float32(cfg.MotionBlurSamples),
			Z: cfg.MaxVelocity,
		},
	}
	if err := pc.fullscreenPassWithFrame("motionblur", pc.motionBlur, pc.motionBlurShader, frame, &params,
		texBinding{TexSlotExtra0, input.ColorTexture(0)},
		texBinding{TexSlotDepth, depth}); err != nil {
		return nil, err
	}
	return pc.motionBlur, nil
}

func (pc *PostProcessChain) runComposite(input RenderTarget, bloom Texture, cfg *PostProcessConfig) (RenderTarget, error) {
	if pc.composite == nil {
		t, err := pc.ensureTarget("post.composite", pc.width, pc.height, FormatRGBA8)
		if err != nil {
			return nil, err
		}
		pc.composite = t
	}

	bloomEnabled := float32(0)
	if bloom != nil {
		bloomEnabled = 1
	}
	grading := float32(0)
	if cfg.ColorGradingEnabled {
		grading = 1
	}
	vignette := float32(0)
	if cfg.VignetteEnabled {
		vignette = 1
	}
	params := PostParamsUBO{
		Params0: math.Vec4{X: bloomEnabled, Y: cfg.BloomIntensity, Z: float32(cfg.ToneMapping), W: cfg.Gamma},
		Params1: math.Vec4{X: grading, Y: cfg.Brightness, Z: cfg.Contrast, W: cfg.Saturation},
		Params2: math.Vec4{X: vignette, Y: cfg.VignetteIntensity, Z: cfg.VignetteRadius, W: cfg.VignetteSoftness},
	}

	bindings := []texBinding{{TexSlotExtra0, input.ColorTexture(0)}}
	if bloom != nil {
		bindings = append(bindings, texBinding{TexSlotExtra1, bloom})
	}
	if err := pc.fullscreenPass("composite", pc.composite, pc.compositeShader, &params, bindings...); err != nil {
		return nil, err
	}
	return pc.composite, nil
}

func (pc *PostProcessChain) runFXAA(input RenderTarget) (RenderTarget, error) {
	if pc.fxaa == nil {
		t, err := pc.ensureTarget("post.fxaa", pc.width, pc.height, FormatRGBA8)
		if err != nil {
			return nil, err
		}
		pc.fxaa = t
	}
	params := PostParamsUBO{
		Params0: math.Vec4{X: 1.0 / float32(pc.width), Y: 1.0 / float32(pc.height)},
	}
	if err := pc.fullscreenPass("fxaa", pc.fxaa, pc.fxaaShader, &params,
		texBinding{TexSlotExtra0, input.ColorTexture(0)}); err != nil {
		return nil, err
	}
	return pc.fxaa, nil
}

type texBinding struct {
	slot    int
	texture Texture
}

func (pc *PostProcessChain) fullscreenPass(label string, target RenderTarget, shader Shader, params *PostParamsUBO, bindings ...texBinding) error {
	return pc.fullscreenPassWithFrame(label, target, shader, nil, params, bindings...)
}

func (pc *PostProcessChain) fullscreenPassWithFrame(label string, target RenderTarget, shader Shader, frame *PerFrameUBO, params *PostParamsUBO, bindings ...texBinding) error {
	clear := math.NewVec4(0, 0, 0, 1)
	if err := pc.backend.BeginPass(PassDesc{Label: label, Target: target, ClearColor: &clear}); err != nil {
		return err
	}
	if err := pc.backend.BindShader(shader); err != nil {
		return err
	}
	if frame != nil {
		if err := pc.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
			return err
		}
	}
	if err := pc.backend.BindUniform(UniformSlotParams, UniformBytes(params)); err != nil {
		return err
	}
	for _, b := range bindings {
		if err := pc.backend.BindTexture(b.slot, b.texture); err != nil {
			return err
		}
	}
	if err := pc.backend.DrawFullscreen(); err != nil {
		return err
	}
	return pc.backend.EndPass()
}

func (pc *PostProcessChain) ensureTarget(name string, width, height uint32, format TextureFormat) (RenderTarget, error) {
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	t, err := pc.backend.CreateRenderTarget(RenderTargetDesc{
		Name:         name,
		Width:        width,
		Height:       height,
		ColorFormats: []TextureFormat{format},
		Filter:       FilterLinear,
		Wrap:         WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("%s target: %w", name, err)
	}
	return t, nil
}

func (pc *PostProcessChain) destroyTargets() {
	for i, t := range pc.bloomTargets {
		if t != nil {
			t.Destroy()
			pc.bloomTargets[i] = nil
		}
	}
	for i, t := range pc.dofTargets {
		if t != nil {
			t.Destroy()
			pc.dofTargets[i] = nil
		}
	}
	for _, t := range []*RenderTarget{&pc.dofComposite, &pc.motionBlur, &pc.composite, &pc.fxaa} {
		if *t != nil {
			(*t).Destroy()
			*t = nil
		}
	}
}

// Destroy releases targets and shaders.
func (pc *PostProcessChain) Destroy() {
	pc.destroyTargets()
	for _, s := range []Shader{
		pc.extractShader, pc.blurShader, pc.dofBlurShader, pc.dofCompositeShader,
		pc.motionBlurShader, pc.compositeShader, pc.fxaaShader,
	} {
		if s != nil {
			s.Destroy()
		}
	}
}
