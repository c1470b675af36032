package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// fakeBackend records every call the pipeline makes so tests can assert on
// pass ordering and resource churn without a GPU.
type fakeBackend struct {
	passLabels        []string
	shaderNames       []string
	targetNames       []string
	textureNames      []string
	meshesCreated     int
	texturesDestroyed int
	drawMesh          int
	drawFull          int
	copyTarget        int
	blit              int
	mipmaps           int
	inPass            bool
	uniforms          map[int][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{uniforms: make(map[int][]byte)}
}

type fakeTexture struct {
	width  uint32
	height uint32
	format TextureFormat
	owner  *fakeBackend
}

func (t *fakeTexture) Width() uint32         { return t.width }
func (t *fakeTexture) Height() uint32        { return t.height }
func (t *fakeTexture) Format() TextureFormat { return t.format }
func (t *fakeTexture) Destroy() {
	if t.owner != nil {
		t.owner.texturesDestroyed++
	}
}

type fakeMesh struct{ indexCount uint32 }

func (m *fakeMesh) IndexCount() uint32 { return m.indexCount }
func (m *fakeMesh) Destroy()           {}

type fakeRenderTarget struct {
	width  uint32
	height uint32
	colors []*fakeTexture
	depth  *fakeTexture
}

func (rt *fakeRenderTarget) Width() uint32  { return rt.width }
func (rt *fakeRenderTarget) Height() uint32 { return rt.height }
func (rt *fakeRenderTarget) ColorTexture(index int) Texture {
	if index < 0 || index >= len(rt.colors) {
		return nil
	}
	return rt.colors[index]
}
func (rt *fakeRenderTarget) DepthTexture() Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}
func (rt *fakeRenderTarget) Destroy() {}

type fakeShader struct{ name string }

func (s *fakeShader) Name() string { return s.name }
func (s *fakeShader) Destroy()     {}

func (b *fakeBackend) Initialize(appName string, width, height uint32) error { return nil }
func (b *fakeBackend) Shutdown() error                                       { return nil }
func (b *fakeBackend) Resized(width, height uint32) error                    { return nil }
func (b *fakeBackend) BeginFrame(deltaTime float64) error                    { return nil }
func (b *fakeBackend) EndFrame(deltaTime float64) error                      { return nil }

func (b *fakeBackend) CreateMesh(data *resources.MeshData) (Mesh, error) {
	b.meshesCreated++
	return &fakeMesh{indexCount: uint32(len(data.Indices))}, nil
}

func (b *fakeBackend) CreateTexture(desc TextureDesc) (Texture, error) {
	b.textureNames = append(b.textureNames, desc.Name)
	return &fakeTexture{width: desc.Width, height: desc.Height, format: desc.Format, owner: b}, nil
}

func (b *fakeBackend) CreateRenderTarget(desc RenderTargetDesc) (RenderTarget, error) {
	b.targetNames = append(b.targetNames, desc.Name)
	rt := &fakeRenderTarget{width: desc.Width, height: desc.Height}
	for _, f := range desc.ColorFormats {
		rt.colors = append(rt.colors, &fakeTexture{width: desc.Width, height: desc.Height, format: f})
	}
	if desc.HasDepth || len(desc.ColorFormats) == 0 {
		rt.depth = &fakeTexture{width: desc.Width, height: desc.Height, format: FormatDepth32F}
	}
	return rt, nil
}

func (b *fakeBackend) CreateShader(desc ShaderDesc) (Shader, error) {
	b.shaderNames = append(b.shaderNames, desc.Name)
	return &fakeShader{name: desc.Name}, nil
}

func (b *fakeBackend) BeginPass(desc PassDesc) error {
	if b.inPass {
		return fmt.Errorf("BeginPass %q while already in a pass", desc.Label)
	}
	b.inPass = true
	b.passLabels = append(b.passLabels, desc.Label)
	return nil
}

func (b *fakeBackend) EndPass() error {
	if !b.inPass {
		return fmt.Errorf("EndPass outside a pass")
	}
	b.inPass = false
	return nil
}

func (b *fakeBackend) BindShader(shader Shader) error { return nil }

func (b *fakeBackend) BindUniform(slot int, data []byte) error {
	b.uniforms[slot] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBackend) BindTexture(slot int, texture Texture) error { return nil }

func (b *fakeBackend) DrawMesh(mesh Mesh) error {
	if !b.inPass {
		return fmt.Errorf("DrawMesh outside a pass")
	}
	b.drawMesh++
	return nil
}

func (b *fakeBackend) DrawFullscreen() error {
	if !b.inPass {
		return fmt.Errorf("DrawFullscreen outside a pass")
	}
	b.drawFull++
	return nil
}

func (b *fakeBackend) CopyTarget(src, dst RenderTarget) error {
	if b.inPass {
		return fmt.Errorf("CopyTarget inside a pass")
	}
	b.copyTarget++
	return nil
}

func (b *fakeBackend) BlitToSwapchain(src RenderTarget) error {
	b.blit++
	return nil
}

func (b *fakeBackend) GenerateMipmaps(texture Texture) error {
	b.mipmaps++
	return nil
}

func (b *fakeBackend) passCount(label string) int {
	n := 0
	for _, l := range b.passLabels {
		if strings.HasPrefix(l, label) {
			n++
		}
	}
	return n
}

func testScene() *scene.Scene {
	s := scene.New()

	cam := s.CreateEntity()
	s.SetCamera(cam, &scene.CameraComponent{
		FOV:      math.DegToRad(60),
		NearClip: 0.1,
		FarClip:  100,
		Active:   true,
	})
	s.Transform(cam).SetPosition(math.NewVec3(0, 2, 10))

	cube := s.CreateEntity()
	s.SetMesh(cube, &scene.MeshComponent{
		Mesh:        resources.NewCubeMesh("cube", 1, 1, 1),
		CastShadows: true,
		LODAlpha:    1,
	})

	sun := s.CreateEntity()
	s.SetDirectionalLight(sun, &scene.DirectionalLightComponent{
		Direction: math.NewVec3(0, -1, 0),
		Color:     math.NewVec3(1, 1, 1),
		Intensity: 2,
	})

	return s
}

func newTestPipeline(t *testing.T, backend *fakeBackend) *DeferredPipeline {
	t.Helper()
	opts := DefaultPipelineOptions()
	p, err := NewDeferredPipeline(backend, 640, 360, DefaultShaders(), opts)
	if err != nil {
		t.Fatalf("NewDeferredPipeline: %v", err)
	}
	// Construction bakes the BRDF LUT; drop those passes so tests see only
	// what their frame produced.
	backend.passLabels = nil
	return p
}

func TestRenderFrameCoreOrder(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	cfg := DefaultPostProcessConfig()
	if err := p.RenderFrame(testScene(), &cfg, 0, 0.016); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	// The core chain in order: cascades, gbuffer, lighting, composite.
	var core []string
	for _, l := range backend.passLabels {
		switch {
		case strings.HasPrefix(l, "shadow.cascade0"),
			l == "gbuffer", l == "lighting", l == "composite":
			core = append(core, l)
		}
	}
	want := []string{"shadow.cascade0", "gbuffer", "lighting", "composite"}
	if len(core) != len(want) {
		t.Fatalf("core passes = %v, want %v", core, want)
	}
	for i := range want {
		if core[i] != want[i] {
			t.Fatalf("pass %d = %q, want %q (all: %v)", i, core[i], want[i], backend.passLabels)
		}
	}
	if backend.blit != 1 {
		t.Fatalf("BlitToSwapchain called %d times, want 1", backend.blit)
	}
	if backend.drawMesh == 0 {
		t.Fatal("no mesh draws recorded")
	}
}

func TestRenderFrameWithoutCameraClears(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	cfg := DefaultPostProcessConfig()
	if err := p.RenderFrame(scene.New(), &cfg, 0, 0.016); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if got := backend.passLabels; len(got) != 1 || got[0] != "clear" {
		t.Fatalf("passes = %v, want [clear]", got)
	}
	if backend.blit != 0 {
		t.Fatal("clear-only frame must not blit")
	}
}

func TestOptionalStageSelection(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PostProcessConfig)
		label   string
		enabled bool
	}{
		{"ssao on", func(c *PostProcessConfig) { c.SSAOEnabled = true }, "ssao.occlusion", true},
		{"ssao off", func(c *PostProcessConfig) { c.SSAOEnabled = false }, "ssao.occlusion", false},
		{"ssr on", func(c *PostProcessConfig) { c.SSREnabled = true }, "ssr", true},
		{"taa on", func(c *PostProcessConfig) { c.TAAEnabled = true }, "taa.resolve", true},
		{"bloom on", func(c *PostProcessConfig) { c.BloomEnabled = true }, "bloom.extract", true},
		{"bloom off", func(c *PostProcessConfig) { c.BloomEnabled = false }, "bloom.extract", false},
		{"fxaa on", func(c *PostProcessConfig) { c.FXAAEnabled = true }, "fxaa", true},
		{"dof on", func(c *PostProcessConfig) { c.DOFEnabled = true }, "dof.blur", true},
		{"motion blur on", func(c *PostProcessConfig) { c.MotionBlurEnabled = true }, "motionblur", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			p := newTestPipeline(t, backend)
			defer p.Destroy()

			cfg := DefaultPostProcessConfig()
			cfg.SSAOEnabled = false
			cfg.FXAAEnabled = false
			tt.mutate(&cfg)
			if err := p.RenderFrame(testScene(), &cfg, 0, 0.016); err != nil {
				t.Fatalf("RenderFrame: %v", err)
			}
			got := backend.passCount(tt.label) > 0
			if got != tt.enabled {
				t.Fatalf("stage %q ran=%v, want %v (passes: %v)", tt.label, got, tt.enabled, backend.passLabels)
			}
		})
	}
}

func TestTAACopiesHistoryAndRampsFeedback(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	cfg := DefaultPostProcessConfig()
	cfg.TAAEnabled = true
	s := testScene()
	if err := p.RenderFrame(s, &cfg, 0, 0.016); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if backend.copyTarget != 1 {
		t.Fatalf("history copies after first frame = %d, want 1", backend.copyTarget)
	}
	if err := p.RenderFrame(s, &cfg, 0.016, 0.016); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if backend.copyTarget != 2 {
		t.Fatalf("history copies after second frame = %d, want 2", backend.copyTarget)
	}
}

func TestResizeRecreatesTargets(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	before := len(backend.targetNames)
	if err := p.Resize(1280, 720); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(backend.targetNames) <= before {
		t.Fatal("resize did not allocate new targets")
	}

	// Same size again is a no-op.
	count := len(backend.targetNames)
	if err := p.Resize(1280, 720); err != nil {
		t.Fatalf("Resize same size: %v", err)
	}
	if len(backend.targetNames) != count {
		t.Fatal("no-op resize recreated targets")
	}

	// Zero size (minimized) is remembered but recreates nothing.
	if err := p.Resize(0, 0); err != nil {
		t.Fatalf("Resize zero: %v", err)
	}
	if len(backend.targetNames) != count {
		t.Fatal("zero-size resize recreated targets")
	}
}

func TestMeshUploadedOnceAndEvictable(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	s := testScene()
	cfg := DefaultPostProcessConfig()
	if err := p.RenderFrame(s, &cfg, 0, 0.016); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	uploads := backend.meshesCreated
	if err := p.RenderFrame(s, &cfg, 0.016, 0.016); err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	if backend.meshesCreated != uploads {
		t.Fatalf("mesh re-uploaded: %d -> %d", uploads, backend.meshesCreated)
	}

	var meshEntity scene.Entity
	s.EachMesh(func(e scene.Entity, _ *scene.MeshComponent) { meshEntity = e })
	p.EvictMesh(meshEntity)
	if err := p.RenderFrame(s, &cfg, 0.032, 0.016); err != nil {
		t.Fatalf("frame 3: %v", err)
	}
	if backend.meshesCreated != uploads+1 {
		t.Fatalf("evicted mesh not re-uploaded: %d, want %d", backend.meshesCreated, uploads+1)
	}
}

func TestVariantCacheMemoizes(t *testing.T) {
	backend := newFakeBackend()
	compiles := 0
	vc := NewVariantCache(backend, func(features MaterialFeatures) ShaderDesc {
		compiles++
		return ShaderDesc{Name: "gbuffer." + features.Key()}
	})
	defer vc.Destroy()

	a, err := vc.Get(FeatureNormalMap | FeatureAlbedoMap)
	if err != nil {
		t.Fatal(err)
	}
	b, err := vc.Get(FeatureNormalMap | FeatureAlbedoMap)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("same feature set returned different shaders")
	}
	if compiles != 1 {
		t.Fatalf("compiles = %d, want 1", compiles)
	}
	if _, err := vc.Get(0); err != nil {
		t.Fatal(err)
	}
	if compiles != 2 {
		t.Fatalf("compiles = %d, want 2", compiles)
	}
	hits, misses := vc.Stats()
	if hits != 1 || misses != 2 {
		t.Fatalf("stats = %d hits, %d misses; want 1, 2", hits, misses)
	}
}

func TestFeaturesForMaterial(t *testing.T) {
	tests := []struct {
		name string
		mat  func() *resources.Material
		want MaterialFeatures
	}{
		{"default", resources.NewDefaultMaterial, 0},
		{"albedo map", func() *resources.Material {
			m := resources.NewDefaultMaterial()
			m.AlbedoMap = "a.png"
			return m
		}, FeatureAlbedoMap},
		{"clearcoat", func() *resources.Material {
			m := resources.NewDefaultMaterial()
			m.Clearcoat = 0.5
			return m
		}, FeatureClearcoat},
		{"parallax needs height map", func() *resources.Material {
			m := resources.NewDefaultMaterial()
			m.HeightMap = "h.png"
			return m
		}, FeatureParallax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FeaturesForMaterial(tt.mat(), false); got != tt.want {
				t.Fatalf("features = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextureCacheFallbackAndEvict(t *testing.T) {
	backend := newFakeBackend()
	calls := 0
	loader := func(path string) (*resources.ImageData, error) {
		calls++
		if path == "missing.png" {
			return nil, fmt.Errorf("no such file")
		}
		return &resources.ImageData{
			Width: 2, Height: 2, ChannelCount: 4,
			Pixels: make([]uint8, 2*2*4),
		}, nil
	}
	tc, err := NewTextureCache(backend, loader)
	if err != nil {
		t.Fatal(err)
	}

	missing := tc.Get("missing.png")
	if missing == nil {
		t.Fatal("missing texture must resolve to the fallback")
	}
	// The failure is cached; the loader is not retried per frame.
	tc.Get("missing.png")
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}

	ok := tc.Get("ok.png")
	if ok == missing {
		t.Fatal("valid texture resolved to the fallback")
	}
	tc.Get("ok.png")
	if calls != 2 {
		t.Fatalf("loader calls = %d, want 2", calls)
	}

	tc.Evict("ok.png")
	tc.Get("ok.png")
	if calls != 3 {
		t.Fatalf("loader not called again after evict: %d", calls)
	}
}

func TestRenderFrameWithEnvironment(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	s := testScene()
	sky := s.CreateEntity()
	s.SetEnvironment(sky, &scene.EnvironmentComponent{Intensity: 1})

	cfg := DefaultPostProcessConfig()
	if err := p.RenderFrame(s, &cfg, 0, 0.016); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if got := backend.passCount("skybox"); got != 1 {
		t.Fatalf("skybox passes = %d, want 1 (passes: %v)", got, backend.passLabels)
	}
	// The LUT is baked at construction; the lighting pass must never reopen
	// a pass for it mid-frame.
	if backend.passCount("ibl.brdflut") != 0 {
		t.Fatalf("brdf lut re-baked during the frame (passes: %v)", backend.passLabels)
	}
	builds := backend.passCount("ibl.")
	if builds == 0 {
		t.Fatal("environment maps never built")
	}

	// An unchanged environment is not rebuilt.
	if err := p.RenderFrame(s, &cfg, 0.016, 0.016); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if got := backend.passCount("ibl."); got != builds {
		t.Fatalf("environment rebuilt on an unchanged scene: %d -> %d passes", builds, got)
	}
}

func TestEnvironmentRemovalReleasesMaps(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend)
	defer p.Destroy()

	s := testScene()
	sky := s.CreateEntity()
	s.SetEnvironment(sky, &scene.EnvironmentComponent{Intensity: 1})

	cfg := DefaultPostProcessConfig()
	if err := p.RenderFrame(s, &cfg, 0, 0.016); err != nil {
		t.Fatalf("frame with environment: %v", err)
	}
	destroyed := backend.texturesDestroyed

	// Removing the environment frees the envmap, irradiance and prefilter
	// cubemaps on the next frame.
	s.DestroyEntity(sky)
	if err := p.RenderFrame(s, &cfg, 0.016, 0.016); err != nil {
		t.Fatalf("frame without environment: %v", err)
	}
	if got := backend.texturesDestroyed - destroyed; got != 3 {
		t.Fatalf("cubemaps destroyed = %d, want 3", got)
	}
	if backend.passCount("skybox") != 1 {
		t.Fatal("skybox drawn without an environment")
	}

	// Re-adding triggers a fresh build.
	builds := backend.passCount("ibl.equirect")
	sky2 := s.CreateEntity()
	s.SetEnvironment(sky2, &scene.EnvironmentComponent{Intensity: 1})
	if err := p.RenderFrame(s, &cfg, 0.032, 0.016); err != nil {
		t.Fatalf("frame after re-add: %v", err)
	}
	if got := backend.passCount("ibl.equirect"); got != builds*2 {
		t.Fatalf("ibl.equirect passes = %d, want %d after rebuild", got, builds*2)
	}
}

func TestGatherLightsFillsUBO(t *testing.T) {
	s := scene.New()
	for i := 0; i < MaxPointLights+4; i++ {
		e := s.CreateEntity()
		s.SetPointLight(e, &scene.PointLightComponent{
			Color:     math.NewVec3(1, 1, 1),
			Intensity: float32(i + 1),
			Range:     10,
		})
		s.Transform(e).SetPosition(math.NewVec3(float32(i), 0, 0))
	}
	sun := s.CreateEntity()
	s.SetDirectionalLight(sun, &scene.DirectionalLightComponent{
		Direction: math.NewVec3(1, -2, 0),
		Color:     math.NewVec3(1, 1, 1),
		Intensity: 3,
	})

	lights := GatherLights(s)
	if got := len(lights.PointPositions); got != MaxPointLights {
		t.Fatalf("point lights = %d, want capped %d", got, MaxPointLights)
	}
	if _, ok := lights.PrimaryShadowLight(); !ok {
		t.Fatal("directional light not detected")
	}

	var ubo LightsUBO
	lights.fillLightsUBO(&ubo)
	if int(ubo.Counts.X) != MaxPointLights {
		t.Fatalf("ubo point count = %v, want %d", ubo.Counts.X, MaxPointLights)
	}
	// Direction is normalized on the way in.
	d := ubo.DirDirections[0]
	length := d.X*d.X + d.Y*d.Y + d.Z*d.Z
	if length < 0.99 || length > 1.01 {
		t.Fatalf("directional light not normalized: %v", d)
	}
}
