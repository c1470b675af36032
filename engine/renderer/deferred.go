package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// RenderItem is one culled, GPU-ready draw for the current frame.
type RenderItem struct {
	Entity       scene.Entity
	Mesh         Mesh
	Material     *resources.Material
	Features     MaterialFeatures
	Model        math.Mat4
	NormalMatrix math.Mat4
	LODAlpha     float32
	CastShadows  bool
}

// gbufferFormats is the fixed G-Buffer layout:
//
//	0: albedo.rgb + metallic        RGBA16F
//	1: packed normal.xyz + roughness RGBA16F
//	2: emissive.rgb + ao             RGBA16F
//	3: clearcoat, ccRoughness, subsurface, reserved RGBA8
//
// plus a sampled 32-bit depth attachment.
var gbufferFormats = []TextureFormat{FormatRGBA16F, FormatRGBA16F, FormatRGBA16F, FormatRGBA8}

// PipelineShaders carries the source descriptions for every pass the
// pipeline owns. The frontend assembles it from the embedded GLSL sources.
type PipelineShaders struct {
	GBufferVert string
	GBufferFrag string
	ShadowVert  string

	Lighting ShaderDesc
	Skybox   ShaderDesc

	SSAO     ShaderDesc
	SSAOBlur ShaderDesc
	SSR      ShaderDesc
	TAA      ShaderDesc

	Post postShaderSet
	IBL  iblShaderSet
}

// PipelineOptions are the construction-time knobs of the pipeline.
type PipelineOptions struct {
	ShadowResolution uint32
	CascadeCount     int
	PSSMLambda       float32
	IrradianceStep   float32
	ClearColor       math.Vec4
	TextureLoader    TextureLoader
}

// DefaultPipelineOptions mirrors the engine configuration defaults.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		ShadowResolution: 2048,
		CascadeCount:     shading.DefaultCascadeCount,
		PSSMLambda:       shading.DefaultPSSMLambda,
		IrradianceStep:   shading.DefaultIrradianceStep,
		ClearColor:       math.NewVec4(0.05, 0.05, 0.08, 1.0),
	}
}

// DeferredPipeline owns every pass of a frame: shadow cascades, G-Buffer
// geometry, SSAO, deferred lighting, skybox, SSR, TAA and the post-processing
// chain. All GPU resources are owned here; nothing is package-global.
type DeferredPipeline struct {
	backend Backend
	width   uint32
	height  uint32
	opts    PipelineOptions

	gbuffer  RenderTarget
	lighting RenderTarget

	variants       *VariantCache
	lightingShader Shader
	skyboxShader   Shader
	shadowShader   Shader

	csm  *CascadedShadowMap
	ssao *SSAOPass
	ssr  *SSRPass
	taa  *TAAPass
	post *PostProcessChain
	ibl  *IBLPrecompute

	meshes   *MeshCache
	textures *TextureCache

	environment    *IBLEnvironment
	environmentKey string
	hasEnvKey      bool

	whiteTexture Texture
	blackCubemap Texture

	defaultMaterial *resources.Material
	prevViewProj    math.Mat4
	hasPrevVP       bool
	frameItems      []RenderItem
}

// NewDeferredPipeline builds the pipeline and its fixed-size resources.
// Size-dependent targets are created immediately at width x height.
func NewDeferredPipeline(backend Backend, width, height uint32, shaders PipelineShaders, opts PipelineOptions) (*DeferredPipeline, error) {
	p := &DeferredPipeline{
		backend:         backend,
		width:           width,
		height:          height,
		opts:            opts,
		defaultMaterial: resources.NewDefaultMaterial(),
	}

	gvert, gfrag := shaders.GBufferVert, shaders.GBufferFrag
	p.variants = NewVariantCache(backend, func(features MaterialFeatures) ShaderDesc {
		return ShaderDesc{
			Name:           "gbuffer." + features.Key(),
			VertexSource:   gvert,
			FragmentSource: gfrag,
			DepthTest:      true,
			DepthWrite:     true,
			CullMode:       resources.FaceCullModeBack,
			ColorTargets:   len(gbufferFormats),
		}
	})

	var err error
	if p.lightingShader, err = backend.CreateShader(shaders.Lighting); err != nil {
		return nil, fmt.Errorf("lighting shader: %w", err)
	}
	if p.skyboxShader, err = backend.CreateShader(shaders.Skybox); err != nil {
		return nil, fmt.Errorf("skybox shader: %w", err)
	}
	if p.shadowShader, err = backend.CreateShader(shadowDepthShaderDesc(shaders.ShadowVert)); err != nil {
		return nil, fmt.Errorf("shadow depth shader: %w", err)
	}

	if p.csm, err = NewCascadedShadowMap(backend, opts.ShadowResolution, opts.CascadeCount, opts.PSSMLambda, p.shadowShader); err != nil {
		return nil, err
	}
	if p.ssao, err = newSSAOPass(backend, width, height, shaders.SSAO, shaders.SSAOBlur); err != nil {
		return nil, err
	}
	if p.ssr, err = newSSRPass(backend, width, height, shaders.SSR); err != nil {
		return nil, err
	}
	if p.taa, err = newTAAPass(backend, width, height, shaders.TAA); err != nil {
		return nil, err
	}
	if p.post, err = newPostProcessChain(backend, width, height, shaders.Post); err != nil {
		return nil, err
	}
	if p.ibl, err = newIBLPrecompute(backend, shaders.IBL, opts.IrradianceStep); err != nil {
		return nil, err
	}
	// The BRDF integration LUT is scene-independent; bake it once here so
	// the lighting pass never has to open a second pass mid-frame.
	if _, err = p.ibl.BRDFLUT(); err != nil {
		return nil, fmt.Errorf("brdf lut: %w", err)
	}

	p.meshes = NewMeshCache(backend)
	if p.textures, err = NewTextureCache(backend, opts.TextureLoader); err != nil {
		return nil, err
	}

	if err := p.createFallbackTextures(); err != nil {
		return nil, err
	}
	if err := p.createTargets(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DeferredPipeline) createFallbackTextures() error {
	white := []uint8{255, 255, 255, 255}
	tex, err := p.backend.CreateTexture(TextureDesc{
		Name:   "pipeline.white",
		Type:   TextureType2D,
		Format: FormatRGBA8,
		Width:  1, Height: 1,
		Filter: FilterNearest,
		Wrap:   WrapRepeat,
		Pixels: white,
	})
	if err != nil {
		return fmt.Errorf("white fallback texture: %w", err)
	}
	p.whiteTexture = tex

	// 6 black faces, bound to the IBL slots while no environment exists.
	black := make([]uint8, 6*4)
	for i := 3; i < len(black); i += 4 {
		black[i] = 255
	}
	cube, err := p.backend.CreateTexture(TextureDesc{
		Name:   "pipeline.blackcube",
		Type:   TextureTypeCube,
		Format: FormatRGBA8,
		Width:  1, Height: 1,
		Filter: FilterNearest,
		Wrap:   WrapClampToEdge,
		Pixels: black,
	})
	if err != nil {
		return fmt.Errorf("black cubemap: %w", err)
	}
	p.blackCubemap = cube
	return nil
}

func (p *DeferredPipeline) createTargets() error {
	gbuffer, err := p.backend.CreateRenderTarget(RenderTargetDesc{
		Name:          "pipeline.gbuffer",
		Width:         p.width,
		Height:        p.height,
		ColorFormats:  gbufferFormats,
		HasDepth:      true,
		DepthReadable: true,
		Filter:        FilterNearest,
		Wrap:          WrapClampToEdge,
	})
	if err != nil {
		return fmt.Errorf("gbuffer target: %w", err)
	}
	p.gbuffer = gbuffer

	lighting, err := p.backend.CreateRenderTarget(RenderTargetDesc{
		Name:         "pipeline.lighting",
		Width:        p.width,
		Height:       p.height,
		ColorFormats: []TextureFormat{FormatRGBA16F},
		Filter:       FilterLinear,
		Wrap:         WrapClampToEdge,
	})
	if err != nil {
		return fmt.Errorf("lighting target: %w", err)
	}
	p.lighting = lighting
	return nil
}

// Resize destroys and recreates every size-dependent target. History-based
// passes restart without history.
func (p *DeferredPipeline) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if width == p.width && height == p.height {
		return nil
	}
	p.width = width
	p.height = height

	p.destroyTargets()
	p.ssao.Resize(width, height)
	p.ssr.Resize(width, height)
	p.taa.Resize(width, height)
	p.post.Resize(width, height)
	return p.createTargets()
}

// RenderFrame draws one frame of the scene between the backend's
// BeginFrame/EndFrame bracket. A scene without an active camera clears the
// swapchain to the configured clear color.
func (p *DeferredPipeline) RenderFrame(s *scene.Scene, cfg *PostProcessConfig, elapsed, delta float64) error {
	camEntity, cam := s.ActiveCamera()
	if cam == nil {
		return p.clearOnly()
	}

	camWorld := s.WorldTransform(camEntity)
	view := cam.ViewMatrix(camWorld)
	aspect := float32(p.width) / float32(p.height)
	proj := math.NewMat4Perspective(cam.FOV, aspect, cam.NearClip, cam.FarClip)
	viewProj := proj.Mul(view)

	prevVP := viewProj
	if p.hasPrevVP {
		prevVP = p.prevViewProj
	}

	frame := PerFrameUBO{
		View:               view,
		Projection:         proj,
		ViewProjection:     viewProj,
		InvViewProjection:  viewProj.Inverse(),
		PrevViewProjection: prevVP,
		CameraPosition:     camWorld.Position().ToVec4(1),
		NearFarTime:        math.Vec4{X: cam.NearClip, Y: cam.FarClip, Z: float32(elapsed), W: float32(delta)},
		ScreenSize:         math.Vec4{X: float32(p.width), Y: float32(p.height), Z: 1.0 / float32(p.width), W: 1.0 / float32(p.height)},
	}

	if err := p.ensureEnvironment(s); err != nil {
		return err
	}

	items, err := p.collectItems(s, viewProj)
	if err != nil {
		return err
	}

	lights := GatherLights(s)
	shadowsActive := false
	if lightDir, ok := lights.PrimaryShadowLight(); ok && len(items) > 0 {
		p.csm.Update(camWorld.Position(), camWorld.Forward(), camWorld.Up(),
			cam.FOV, aspect, cam.NearClip, cam.FarClip, lightDir)
		if err := p.csm.Render(items); err != nil {
			return err
		}
		shadowsActive = true
	}

	if err := p.geometryPass(items, &frame); err != nil {
		return err
	}

	var ssaoTex Texture
	if cfg.SSAOEnabled {
		if ssaoTex, err = p.ssao.Execute(p.gbuffer, &frame); err != nil {
			return err
		}
	}

	if err := p.lightingPass(&frame, lights, ssaoTex, shadowsActive); err != nil {
		return err
	}

	if p.environment != nil {
		if err := p.skyboxPass(&frame); err != nil {
			return err
		}
	}

	current := p.lighting
	if cfg.SSREnabled {
		if current, err = p.ssr.Execute(current, p.gbuffer, &frame); err != nil {
			return err
		}
	}
	if cfg.TAAEnabled {
		if current, err = p.taa.Resolve(current, p.gbuffer.DepthTexture(), &frame); err != nil {
			return err
		}
	}

	final, err := p.post.Execute(current, p.gbuffer.DepthTexture(), &frame, cfg)
	if err != nil {
		return err
	}
	if err := p.backend.BlitToSwapchain(final); err != nil {
		return err
	}

	p.prevViewProj = viewProj
	p.hasPrevVP = true
	return nil
}

func (p *DeferredPipeline) clearOnly() error {
	clear := p.opts.ClearColor
	if err := p.backend.BeginPass(PassDesc{Label: "clear", ClearColor: &clear, ClearDepth: true}); err != nil {
		return err
	}
	return p.backend.EndPass()
}

// ensureEnvironment rebuilds the IBL maps when the scene's environment
// component changes its HDR source. A removed environment releases its maps;
// the lighting pass falls back to the black cubemap.
func (p *DeferredPipeline) ensureEnvironment(s *scene.Scene) error {
	_, env := s.ActiveEnvironment()
	if env == nil {
		if p.environment != nil {
			p.environment.Destroy()
			p.environment = nil
			p.hasEnvKey = false
		}
		return nil
	}
	if p.hasEnvKey && p.environmentKey == env.HDRPath && p.environment != nil {
		p.environment.Intensity = env.Intensity
		return nil
	}

	if p.environment != nil {
		p.environment.Destroy()
		p.environment = nil
	}

	var built *IBLEnvironment
	var err error
	if env.HDRPath == "" {
		core.LogInfo("building procedural sky environment")
		built, err = p.ibl.BuildProceduralSky(env.Intensity)
	} else {
		core.LogInfo("building IBL environment from %s", env.HDRPath)
		equirect := p.textures.Get(env.HDRPath)
		built, err = p.ibl.BuildEnvironment(equirect, env.Intensity)
	}
	if err != nil {
		return fmt.Errorf("ibl precompute: %w", err)
	}
	p.environment = built
	p.environmentKey = env.HDRPath
	p.hasEnvKey = true
	return nil
}

// collectItems frustum-culls the scene's meshes and uploads any geometry not
// yet resident.
func (p *DeferredPipeline) collectItems(s *scene.Scene, viewProj math.Mat4) ([]RenderItem, error) {
	frustum := math.NewFrustumFromViewProjection(viewProj)
	items := p.frameItems[:0]

	var itemErr error
	s.EachMesh(func(e scene.Entity, mc *scene.MeshComponent) {
		if itemErr != nil || mc.Mesh == nil {
			return
		}

		model := s.WorldTransform(e)
		center, radius := mc.Mesh.BoundingSphere()
		worldCenter := model.TransformPoint(center)
		worldRadius := radius * maxScale(model)
		if !frustum.IntersectsSphere(worldCenter, worldRadius) {
			return
		}

		gpuMesh, err := p.meshes.Get(e, mc.Mesh)
		if err != nil {
			itemErr = fmt.Errorf("mesh upload for entity %d: %w", e, err)
			return
		}

		material := p.defaultMaterial
		if matc, ok := s.Material(e); ok && matc.Material != nil {
			material = matc.Material
		}

		lodAlpha := mc.LODAlpha
		if lodAlpha <= 0 || lodAlpha > 1 {
			lodAlpha = 1
		}

		items = append(items, RenderItem{
			Entity:       e,
			Mesh:         gpuMesh,
			Material:     material,
			Features:     FeaturesForMaterial(material, lodAlpha < 1),
			Model:        model,
			NormalMatrix: model.NormalMatrix(),
			LODAlpha:     lodAlpha,
			CastShadows:  mc.CastShadows,
		})
	})
	p.frameItems = items
	return items, itemErr
}

// maxScale extracts the largest axis scale from a transform, used to grow
// bounding spheres conservatively.
func maxScale(m math.Mat4) float32 {
	sx := math.NewVec3(m.Data[0], m.Data[1], m.Data[2]).Length()
	sy := math.NewVec3(m.Data[4], m.Data[5], m.Data[6]).Length()
	sz := math.NewVec3(m.Data[8], m.Data[9], m.Data[10]).Length()
	return math.Max(sx, math.Max(sy, sz))
}

func (p *DeferredPipeline) geometryPass(items []RenderItem, frame *PerFrameUBO) error {
	clear := math.NewVec4(0, 0, 0, 0)
	if err := p.backend.BeginPass(PassDesc{
		Label:      "gbuffer",
		Target:     p.gbuffer,
		ClearColor: &clear,
		ClearDepth: true,
	}); err != nil {
		return err
	}

	for i := range items {
		item := &items[i]
		shader, err := p.variants.Get(item.Features)
		if err != nil {
			return err
		}
		if err := p.backend.BindShader(shader); err != nil {
			return err
		}
		if err := p.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
			return err
		}

		object := PerObjectUBO{
			Model:        item.Model,
			NormalMatrix: item.NormalMatrix,
			ObjectParams: math.Vec4{X: item.LODAlpha},
		}
		if err := p.backend.BindUniform(UniformSlotPerObject, UniformBytes(&object)); err != nil {
			return err
		}

		material := fillMaterialUBO(item.Material)
		if err := p.backend.BindUniform(UniformSlotMaterial, UniformBytes(&material)); err != nil {
			return err
		}
		if err := p.bindMaterialTextures(item.Material, item.Features); err != nil {
			return err
		}
		if err := p.backend.DrawMesh(item.Mesh); err != nil {
			return err
		}
	}
	return p.backend.EndPass()
}

func fillMaterialUBO(m *resources.Material) MaterialUBO {
	return MaterialUBO{
		AlbedoOpacity:       m.AlbedoColor,
		MetallicRoughness:   math.Vec4{X: m.Metallic, Y: m.Roughness, Z: m.AO, W: m.AlphaCutoff},
		EmissiveFactor:      math.Vec4{X: m.Emissive.X, Y: m.Emissive.Y, Z: m.Emissive.Z, W: m.EmissiveFactor},
		ClearcoatSubsurface: math.Vec4{X: m.Clearcoat, Y: m.ClearcoatRoughness, Z: m.Subsurface, W: m.HeightScale},
		SubsurfaceColor:     math.Vec4{X: m.SubsurfaceColor.X, Y: m.SubsurfaceColor.Y, Z: m.SubsurfaceColor.Z},
	}
}

func (p *DeferredPipeline) bindMaterialTextures(m *resources.Material, features MaterialFeatures) error {
	bind := func(slot int, enabled bool, path string) error {
		if !enabled {
			return p.backend.BindTexture(slot, p.whiteTexture)
		}
		return p.backend.BindTexture(slot, p.textures.Get(path))
	}
	if err := bind(TexSlotAlbedoMap, features.Has(FeatureAlbedoMap), m.AlbedoMap); err != nil {
		return err
	}
	if err := bind(TexSlotNormalMap, features.Has(FeatureNormalMap), m.NormalMap); err != nil {
		return err
	}
	if err := bind(TexSlotMetallicRoughnessMap, features.Has(FeatureMetallicRoughnessMap), m.MetallicRoughnessMap); err != nil {
		return err
	}
	if err := bind(TexSlotAOMap, features.Has(FeatureAOMap), m.AOMap); err != nil {
		return err
	}
	if err := bind(TexSlotEmissiveMap, features.Has(FeatureEmissiveMap), m.EmissiveMap); err != nil {
		return err
	}
	return bind(TexSlotHeightMap, features.Has(FeatureParallax), m.HeightMap)
}

func (p *DeferredPipeline) lightingPass(frame *PerFrameUBO, lights *FrameLightData, ssaoTex Texture, shadowsActive bool) error {
	var ubo LightsUBO
	lights.fillLightsUBO(&ubo)
	ubo.ClearColor = p.opts.ClearColor

	splits := p.csm.Splits()
	matrices := p.csm.Matrices()
	cascadeCount := p.csm.NumCascades()
	if shadowsActive {
		for i := 0; i < cascadeCount && i < MaxShadowCascades; i++ {
			ubo.LightSpace[i] = matrices[i]
			switch i {
			case 0:
				ubo.CascadeSplits.X = splits[i+1]
			case 1:
				ubo.CascadeSplits.Y = splits[i+1]
			case 2:
				ubo.CascadeSplits.Z = splits[i+1]
			case 3:
				ubo.CascadeSplits.W = splits[i+1]
			}
		}
		ubo.ShadowParams = math.Vec4{
			X: float32(cascadeCount),
			Y: float32(p.csm.Resolution()),
			Z: shading.PrefilterMipCount,
		}
	} else {
		ubo.ShadowParams = math.Vec4{Z: shading.PrefilterMipCount}
	}

	if p.environment == nil {
		ubo.Counts.Z = 0
	}

	clear := p.opts.ClearColor
	if err := p.backend.BeginPass(PassDesc{Label: "lighting", Target: p.lighting, ClearColor: &clear}); err != nil {
		return err
	}
	if err := p.backend.BindShader(p.lightingShader); err != nil {
		return err
	}
	if err := p.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
		return err
	}
	if err := p.backend.BindUniform(UniformSlotLights, UniformBytes(&ubo)); err != nil {
		return err
	}

	for i := 0; i < len(gbufferFormats); i++ {
		if err := p.backend.BindTexture(TexSlotGBuffer0+i, p.gbuffer.ColorTexture(i)); err != nil {
			return err
		}
	}
	if err := p.backend.BindTexture(TexSlotDepth, p.gbuffer.DepthTexture()); err != nil {
		return err
	}

	for i := 0; i < MaxShadowCascades; i++ {
		tex := p.whiteTexture
		if shadowsActive && i < cascadeCount {
			tex = p.csm.CascadeTexture(i)
		}
		if err := p.backend.BindTexture(TexSlotShadow0+i, tex); err != nil {
			return err
		}
	}

	irradiance, prefilter := p.blackCubemap, p.blackCubemap
	brdf := Texture(p.whiteTexture)
	if p.environment != nil {
		irradiance = p.environment.Irradiance
		prefilter = p.environment.Prefilter
		lut, err := p.ibl.BRDFLUT()
		if err != nil {
			return err
		}
		brdf = lut
	}
	if err := p.backend.BindTexture(TexSlotIrradiance, irradiance); err != nil {
		return err
	}
	if err := p.backend.BindTexture(TexSlotPrefilter, prefilter); err != nil {
		return err
	}
	if err := p.backend.BindTexture(TexSlotBRDFLUT, brdf); err != nil {
		return err
	}

	if ssaoTex == nil {
		ssaoTex = p.whiteTexture
	}
	if err := p.backend.BindTexture(TexSlotSSAO, ssaoTex); err != nil {
		return err
	}

	if err := p.backend.DrawFullscreen(); err != nil {
		return err
	}
	return p.backend.EndPass()
}

// skyboxPass draws the environment cubemap into the background, keeping
// geometry intact by discarding where the depth buffer was written.
func (p *DeferredPipeline) skyboxPass(frame *PerFrameUBO) error {
	if err := p.backend.BeginPass(PassDesc{Label: "skybox", Target: p.lighting}); err != nil {
		return err
	}
	if err := p.backend.BindShader(p.skyboxShader); err != nil {
		return err
	}
	if err := p.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
		return err
	}
	params := PostParamsUBO{Params0: math.Vec4{X: p.environment.Intensity}}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(&params)); err != nil {
		return err
	}
	if err := p.backend.BindTexture(TexSlotExtra0, p.environment.Envmap); err != nil {
		return err
	}
	if err := p.backend.BindTexture(TexSlotDepth, p.gbuffer.DepthTexture()); err != nil {
		return err
	}
	if err := p.backend.DrawFullscreen(); err != nil {
		return err
	}
	return p.backend.EndPass()
}

// EvictMesh drops an entity's uploaded geometry, used when meshes are
// replaced or entities destroyed.
func (p *DeferredPipeline) EvictMesh(e scene.Entity) {
	p.meshes.Evict(e)
}

// EvictTexture drops a cached texture so the next material reference
// reloads it from disk.
func (p *DeferredPipeline) EvictTexture(path string) {
	p.textures.Evict(path)
}

// VariantStats exposes shader variant cache hit counters.
func (p *DeferredPipeline) VariantStats() (hits, misses uint64) {
	return p.variants.Stats()
}

func (p *DeferredPipeline) destroyTargets() {
	if p.gbuffer != nil {
		p.gbuffer.Destroy()
		p.gbuffer = nil
	}
	if p.lighting != nil {
		p.lighting.Destroy()
		p.lighting = nil
	}
}

// Destroy releases everything the pipeline owns.
func (p *DeferredPipeline) Destroy() {
	p.destroyTargets()
	if p.environment != nil {
		p.environment.Destroy()
	}
	if p.ibl != nil {
		p.ibl.Destroy()
	}
	if p.post != nil {
		p.post.Destroy()
	}
	if p.taa != nil {
		p.taa.Destroy()
	}
	if p.ssr != nil {
		p.ssr.Destroy()
	}
	if p.ssao != nil {
		p.ssao.Destroy()
	}
	if p.csm != nil {
		p.csm.Destroy()
	}
	if p.variants != nil {
		p.variants.Destroy()
	}
	for _, s := range []Shader{p.lightingShader, p.skyboxShader, p.shadowShader} {
		if s != nil {
			s.Destroy()
		}
	}
	if p.whiteTexture != nil {
		p.whiteTexture.Destroy()
	}
	if p.blackCubemap != nil {
		p.blackCubemap.Destroy()
	}
	if p.textures != nil {
		p.textures.Destroy()
	}
	if p.meshes != nil {
		p.meshes.Destroy()
	}
}
