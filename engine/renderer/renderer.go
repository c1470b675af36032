package renderer

import (
	"errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/shadersrc"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// Renderer is the frontend the engine talks to. It owns the backend and the
// deferred pipeline and sequences one frame per DrawFrame call.
type Renderer struct {
	backend  Backend
	pipeline *DeferredPipeline
	post     PostProcessConfig
	width    uint32
	height   uint32
}

// New initializes the backend and builds the pipeline at the given size.
func New(backend Backend, appName string, width, height uint32, opts PipelineOptions) (*Renderer, error) {
	if err := backend.Initialize(appName, width, height); err != nil {
		return nil, err
	}
	pipeline, err := NewDeferredPipeline(backend, width, height, DefaultShaders(), opts)
	if err != nil {
		backend.Shutdown()
		return nil, err
	}
	return &Renderer{
		backend:  backend,
		pipeline: pipeline,
		post:     DefaultPostProcessConfig(),
		width:    width,
		height:   height,
	}, nil
}

// SetPostProcess swaps the active post-processing configuration.
func (r *Renderer) SetPostProcess(cfg PostProcessConfig) { r.post = cfg }

// PostProcess returns the active post-processing configuration.
func (r *Renderer) PostProcess() PostProcessConfig { return r.post }

// Backend exposes the backend for resource uploads outside the frame loop.
func (r *Renderer) Backend() Backend { return r.backend }

// DrawFrame renders one frame of the scene. A backend that is rebuilding its
// swapchain skips the frame without error.
func (r *Renderer) DrawFrame(s *scene.Scene, elapsed, delta float64) error {
	if err := r.backend.BeginFrame(delta); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		return err
	}
	if err := r.pipeline.RenderFrame(s, &r.post, elapsed, delta); err != nil {
		return err
	}
	return r.backend.EndFrame(delta)
}

// OnResize propagates a framebuffer size change. Zero sizes (minimized
// window) are remembered but nothing is recreated until a real size arrives.
func (r *Renderer) OnResize(width, height uint32) error {
	r.width = width
	r.height = height
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.backend.Resized(width, height); err != nil {
		return err
	}
	return r.pipeline.Resize(width, height)
}

// EvictMesh drops cached GPU geometry for an entity.
func (r *Renderer) EvictMesh(e scene.Entity) { r.pipeline.EvictMesh(e) }

// EvictTexture drops a cached texture by path (asset hot reload).
func (r *Renderer) EvictTexture(path string) { r.pipeline.EvictTexture(path) }

// Shutdown destroys the pipeline then the backend.
func (r *Renderer) Shutdown() error {
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	return r.backend.Shutdown()
}

// DefaultShaders assembles the embedded sources into pass descriptions.
func DefaultShaders() PipelineShaders {
	fullscreen := func(name, frag string, targets int) ShaderDesc {
		return ShaderDesc{
			Name:           name,
			VertexSource:   shadersrc.FullscreenVert,
			FragmentSource: frag,
			CullMode:       resources.FaceCullModeNone,
			ColorTargets:   targets,
		}
	}
	cubePass := func(name, frag string) ShaderDesc {
		return ShaderDesc{
			Name:           name,
			VertexSource:   shadersrc.CubeVert,
			FragmentSource: frag,
			CullMode:       resources.FaceCullModeNone,
			ColorTargets:   1,
		}
	}

	return PipelineShaders{
		GBufferVert: shadersrc.GBufferVert,
		GBufferFrag: shadersrc.GBufferFrag,
		ShadowVert:  shadersrc.ShadowDepthVert,

		Lighting: fullscreen("deferred.lighting", shadersrc.DeferredLightingFrag, 1),
		Skybox:   fullscreen("skybox", shadersrc.SkyboxFrag, 1),

		SSAO:     fullscreen("ssao", shadersrc.SSAOFrag, 1),
		SSAOBlur: fullscreen("ssao.blur", shadersrc.SSAOBlurFrag, 1),
		SSR:      fullscreen("ssr", shadersrc.SSRFrag, 1),
		TAA:      fullscreen("taa", shadersrc.TAAFrag, 1),

		Post: postShaderSet{
			Extract:      fullscreen("bloom.extract", shadersrc.BloomExtractFrag, 1),
			Blur:         fullscreen("bloom.blur", shadersrc.BloomBlurFrag, 1),
			DOFBlur:      fullscreen("dof.blur", shadersrc.DOFBlurFrag, 1),
			DOFComposite: fullscreen("dof.composite", shadersrc.DOFCompositeFrag, 1),
			MotionBlur:   fullscreen("motionblur", shadersrc.MotionBlurFrag, 1),
			Composite:    fullscreen("composite", shadersrc.CompositeFrag, 1),
			FXAA:         fullscreen("fxaa", shadersrc.FXAAFrag, 1),
		},
		IBL: iblShaderSet{
			EquirectToCube: cubePass("ibl.equirect", shadersrc.EquirectToCubeFrag),
			Irradiance:     cubePass("ibl.irradiance", shadersrc.IrradianceFrag),
			Prefilter:      cubePass("ibl.prefilter", shadersrc.PrefilterFrag),
			BRDFLUT:        fullscreen("ibl.brdflut", shadersrc.BRDFLUTFrag, 1),
		},
	}
}
