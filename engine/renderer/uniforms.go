package renderer

import (
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/math"
)

// Uniform blocks are laid out std140-compatible: only Vec4 and Mat4 fields,
// so the Go struct bytes can be uploaded verbatim by every backend. Changing
// any of these requires the matching change in the GLSL/MSL sources.

// MaxPointLights and MaxDirectionalLights bound the per-frame light arrays.
const (
	MaxPointLights       = 16
	MaxDirectionalLights = 4
	MaxShadowCascades    = 4
)

// PerFrameUBO is bound at UniformSlotPerFrame for every pass.
type PerFrameUBO struct {
	View               math.Mat4
	Projection         math.Mat4
	ViewProjection     math.Mat4
	InvViewProjection  math.Mat4
	PrevViewProjection math.Mat4
	CameraPosition     math.Vec4 // w unused
	NearFarTime        math.Vec4 // near, far, elapsed seconds, delta seconds
	ScreenSize         math.Vec4 // w, h, 1/w, 1/h
}

// PerObjectUBO is bound at UniformSlotPerObject for each geometry-pass draw.
type PerObjectUBO struct {
	Model        math.Mat4
	NormalMatrix math.Mat4
	ObjectParams math.Vec4 // x: lodAlpha
}

// MaterialUBO is bound at UniformSlotMaterial for each geometry-pass draw.
type MaterialUBO struct {
	AlbedoOpacity       math.Vec4 // rgb + opacity
	MetallicRoughness   math.Vec4 // metallic, roughness, ao, alphaCutoff
	EmissiveFactor      math.Vec4 // rgb + factor
	ClearcoatSubsurface math.Vec4 // clearcoat, clearcoatRoughness, subsurface, heightScale
	SubsurfaceColor     math.Vec4 // rgb, w unused
}

// LightsUBO is bound at UniformSlotLights for the deferred lighting pass.
type LightsUBO struct {
	PointPositions [MaxPointLights]math.Vec4       // xyz + range
	PointColors    [MaxPointLights]math.Vec4       // rgb + intensity
	DirDirections  [MaxDirectionalLights]math.Vec4 // xyz, w unused
	DirColors      [MaxDirectionalLights]math.Vec4 // rgb + intensity
	LightSpace     [MaxShadowCascades]math.Mat4
	CascadeSplits  math.Vec4 // far split boundary per cascade
	Counts         math.Vec4 // numPoint, numDirectional, iblEnabled, iblIntensity
	ShadowParams   math.Vec4 // cascadeCount, shadowMapSize, prefilterMips, 0
	ClearColor     math.Vec4 // background color emitted at depth == 1
}

// ShadowPassUBO is bound at UniformSlotParams during cascade depth passes.
type ShadowPassUBO struct {
	LightSpace math.Mat4
}

// PostParamsUBO is a generic parameter block for the screen-space and
// post-processing passes; the meaning of each field is stage-specific and
// documented in the matching shader.
type PostParamsUBO struct {
	Params0 math.Vec4
	Params1 math.Vec4
	Params2 math.Vec4
	Params3 math.Vec4
}

// IBLPassUBO parameterizes the precompute passes (face view-projection plus
// roughness/sample knobs).
type IBLPassUBO struct {
	ViewProjection math.Mat4
	Params         math.Vec4 // x: roughness, y: sampleCount, z: irradianceStep, w: unused
}

// SSAOKernelSize is the hemisphere sample count of the SSAO pass.
const SSAOKernelSize = 32

// SSAOUBO carries the sample kernel and projection for the SSAO pass.
type SSAOUBO struct {
	Kernel [SSAOKernelSize]math.Vec4
	Params math.Vec4 // radius, bias, power, noiseScale
}

// structBytes reinterprets a uniform struct as its raw bytes for upload.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func UniformBytes[T any](v *T) []byte {
	return structBytes(v)
}
