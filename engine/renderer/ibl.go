package renderer

import (
	"fmt"
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// EnvCubemapSize is the face size of the converted environment cubemap.
const EnvCubemapSize = 512

const proceduralSkyWidth, proceduralSkyHeight = 256, 128

// IBLEnvironment holds the precomputed image-based lighting maps for one
// environment. All three maps are owned by the environment and released
// together.
type IBLEnvironment struct {
	Envmap     Texture // mipped cubemap, also sampled by the skybox pass
	Irradiance Texture
	Prefilter  Texture
	Intensity  float32
}

// Destroy releases the environment maps. The shared BRDF LUT is owned by the
// precompute stage, not the environment.
func (e *IBLEnvironment) Destroy() {
	if e.Envmap != nil {
		e.Envmap.Destroy()
	}
	if e.Irradiance != nil {
		e.Irradiance.Destroy()
	}
	if e.Prefilter != nil {
		e.Prefilter.Destroy()
	}
}

type iblShaderSet struct {
	EquirectToCube ShaderDesc
	Irradiance     ShaderDesc
	Prefilter      ShaderDesc
	BRDFLUT        ShaderDesc
}

// IBLPrecompute builds IBL environments. It owns the cube rasterization mesh,
// the precompute shaders and the BRDF LUT, which depends only on the BRDF and
// is computed once then shared by every environment.
type IBLPrecompute struct {
	backend Backend

	cubeMesh         Mesh
	equirectShader   Shader
	irradianceShader Shader
	prefilterShader  Shader
	brdfShader       Shader

	brdfTarget     RenderTarget
	irradianceStep float32
}

func newIBLPrecompute(backend Backend, shaders iblShaderSet, irradianceStep float32) (*IBLPrecompute, error) {
	if irradianceStep <= 0 {
		irradianceStep = shading.DefaultIrradianceStep
	}
	p := &IBLPrecompute{backend: backend, irradianceStep: irradianceStep}

	cube, err := backend.CreateMesh(resources.NewCubeMesh("ibl.cube", 2, 2, 2))
	if err != nil {
		return nil, fmt.Errorf("ibl cube mesh: %w", err)
	}
	p.cubeMesh = cube

	if p.equirectShader, err = backend.CreateShader(shaders.EquirectToCube); err != nil {
		return nil, fmt.Errorf("equirect shader: %w", err)
	}
	if p.irradianceShader, err = backend.CreateShader(shaders.Irradiance); err != nil {
		return nil, fmt.Errorf("irradiance shader: %w", err)
	}
	if p.prefilterShader, err = backend.CreateShader(shaders.Prefilter); err != nil {
		return nil, fmt.Errorf("prefilter shader: %w", err)
	}
	if p.brdfShader, err = backend.CreateShader(shaders.BRDFLUT); err != nil {
		return nil, fmt.Errorf("brdf lut shader: %w", err)
	}
	return p, nil
}

// BRDFLUT returns the shared split-sum lookup table, integrating it on first
// request.
func (p *IBLPrecompute) BRDFLUT() (Texture, error) {
	if p.brdfTarget != nil {
		return p.brdfTarget.ColorTexture(0), nil
	}

	target, err := p.backend.CreateRenderTarget(RenderTargetDesc{
		Name:         "ibl.brdflut",
		Width:        shading.BRDFLUTSize,
		Height:       shading.BRDFLUTSize,
		ColorFormats: []TextureFormat{FormatRG16F},
		Filter:       FilterLinear,
		Wrap:         WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("brdf lut target: %w", err)
	}

	params := IBLPassUBO{Params: math.Vec4{Y: shading.ImportanceSamples}}
	if err := p.integrateLUT(target, &params); err != nil {
		target.Destroy()
		return nil, err
	}

	p.brdfTarget = target
	return target.ColorTexture(0), nil
}

func (p *IBLPrecompute) integrateLUT(target RenderTarget, params *IBLPassUBO) error {
	if err := p.backend.BeginPass(PassDesc{Label: "ibl.brdflut", Target: target}); err != nil {
		return err
	}
	if err := p.backend.BindShader(p.brdfShader); err != nil {
		return err
	}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(params)); err != nil {
		return err
	}
	if err := p.backend.DrawFullscreen(); err != nil {
		return err
	}
	return p.backend.EndPass()
}

// BuildEnvironment converts an equirectangular HDR texture into the cubemap
// set: environment conversion, diffuse irradiance convolution and the
// roughness-binned specular prefilter chain.
func (p *IBLPrecompute) BuildEnvironment(equirect Texture, intensity float32) (*IBLEnvironment, error) {
	env := &IBLEnvironment{Intensity: intensity}

	envmap, err := p.createCubemap("ibl.envmap", EnvCubemapSize, fullMipChain(EnvCubemapSize, EnvCubemapSize))
	if err != nil {
		return nil, err
	}
	env.Envmap = envmap

	views := shading.CubeFaceViewMatrices()
	proj := math.NewMat4Perspective(math.DegToRad(90.0), 1.0, 0.1, 10.0)

	for face := 0; face < 6; face++ {
		ubo := IBLPassUBO{ViewProjection: proj.Mul(views[face])}
		if err := p.cubeFacePass("ibl.equirect", envmap, face, 0, EnvCubemapSize,
			p.equirectShader, &ubo, equirect); err != nil {
			env.Destroy()
			return nil, err
		}
	}
	// Prefiltering importance-samples the mip chain of the source map.
	if err := p.backend.GenerateMipmaps(envmap); err != nil {
		env.Destroy()
		return nil, err
	}

	irradiance, err := p.createCubemap("ibl.irradiance", shading.IrradianceSize, 1)
	if err != nil {
		env.Destroy()
		return nil, err
	}
	env.Irradiance = irradiance
	for face := 0; face < 6; face++ {
		ubo := IBLPassUBO{
			ViewProjection: proj.Mul(views[face]),
			Params:         math.Vec4{Z: p.irradianceStep},
		}
		if err := p.cubeFacePass("ibl.irradiance", irradiance, face, 0, shading.IrradianceSize,
			p.irradianceShader, &ubo, envmap); err != nil {
			env.Destroy()
			return nil, err
		}
	}

	prefilter, err := p.createCubemap("ibl.prefilter", shading.PrefilterSize, shading.PrefilterMipCount)
	if err != nil {
		env.Destroy()
		return nil, err
	}
	env.Prefilter = prefilter
	for mip := 0; mip < shading.PrefilterMipCount; mip++ {
		roughness := float32(mip) / float32(shading.PrefilterMipCount-1)
		size := uint32(shading.PrefilterSize >> mip)
		for face := 0; face < 6; face++ {
			ubo := IBLPassUBO{
				ViewProjection: proj.Mul(views[face]),
				Params:         math.Vec4{X: roughness, Y: shading.ImportanceSamples},
			}
			if err := p.cubeFacePass("ibl.prefilter", prefilter, face, mip, size,
				p.prefilterShader, &ubo, envmap); err != nil {
				env.Destroy()
				return nil, err
			}
		}
	}
	return env, nil
}

// BuildProceduralSky generates the analytic sky as a small equirectangular
// image on the CPU and runs it through the same conversion path.
func (p *IBLPrecompute) BuildProceduralSky(intensity float32) (*IBLEnvironment, error) {
	pixels := make([]float32, proceduralSkyWidth*proceduralSkyHeight*4)
	for y := 0; y < proceduralSkyHeight; y++ {
		v := (float32(y) + 0.5) / proceduralSkyHeight
		// Equirect v maps latitude: v=0 is the bottom pole.
		theta := (v - 0.5) * math.Pi
		for x := 0; x < proceduralSkyWidth; x++ {
			u := (float32(x) + 0.5) / proceduralSkyWidth
			phi := (u - 0.5) * 2.0 * math.Pi
			dir := math.Vec3{
				X: kcos32(theta) * kcos32(phi),
				Y: ksin32(theta),
				Z: kcos32(theta) * ksin32(phi),
			}
			c := shading.ProceduralSky(dir)
			i := (y*proceduralSkyWidth + x) * 4
			pixels[i+0] = c.X
			pixels[i+1] = c.Y
			pixels[i+2] = c.Z
			pixels[i+3] = 1.0
		}
	}

	equirect, err := p.backend.CreateTexture(TextureDesc{
		Name:    "ibl.sky.equirect",
		Type:    TextureType2D,
		Format:  FormatRGBA16F,
		Width:   proceduralSkyWidth,
		Height:  proceduralSkyHeight,
		Filter:  FilterLinear,
		Wrap:    WrapClampToEdge,
		PixelsF: pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("procedural sky equirect: %w", err)
	}
	defer equirect.Destroy()
	return p.BuildEnvironment(equirect, intensity)
}

func (p *IBLPrecompute) createCubemap(name string, size uint32, mips uint32) (Texture, error) {
	filter := FilterLinear
	if mips > 1 {
		filter = FilterTrilinear
	}
	tex, err := p.backend.CreateTexture(TextureDesc{
		Name:      name,
		Type:      TextureTypeCube,
		Format:    FormatRGBA16F,
		Width:     size,
		Height:    size,
		MipLevels: mips,
		Filter:    filter,
		Wrap:      WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("%s cubemap: %w", name, err)
	}
	return tex, nil
}

func (p *IBLPrecompute) cubeFacePass(label string, cube Texture, face, mip int, viewport uint32, shader Shader, ubo *IBLPassUBO, source Texture) error {
	if err := p.backend.BeginPass(PassDesc{
		Label:          label,
		TargetCube:     cube,
		Face:           face,
		Mip:            mip,
		ViewportWidth:  viewport,
		ViewportHeight: viewport,
	}); err != nil {
		return err
	}
	if err := p.backend.BindShader(shader); err != nil {
		return err
	}
	if err := p.backend.BindUniform(UniformSlotParams, UniformBytes(ubo)); err != nil {
		return err
	}
	if err := p.backend.BindTexture(TexSlotExtra0, source); err != nil {
		return err
	}
	if err := p.backend.DrawMesh(p.cubeMesh); err != nil {
		return err
	}
	return p.backend.EndPass()
}

// Destroy releases the shared resources; environments built by this stage
// outlive it and are destroyed separately.
func (p *IBLPrecompute) Destroy() {
	if p.brdfTarget != nil {
		p.brdfTarget.Destroy()
	}
	if p.cubeMesh != nil {
		p.cubeMesh.Destroy()
	}
	for _, s := range []Shader{p.equirectShader, p.irradianceShader, p.prefilterShader, p.brdfShader} {
		if s != nil {
			s.Destroy()
		}
	}
}

func kcos32(x float32) float32 { return float32(gomath.Cos(float64(x))) }
func ksin32(x float32) float32 { return float32(gomath.Sin(float64(x))) }
