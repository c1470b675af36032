package shading

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

// Precomputation sizes shared by all backends. Mip level i of the specular
// prefilter encodes roughness i/(PrefilterMipCount-1).
const (
	IrradianceSize    = 32
	PrefilterSize     = 128
	PrefilterMipCount = 5
	BRDFLUTSize       = 512
	ImportanceSamples = 1024
)

// DefaultIrradianceStep is the hemisphere integration step in radians. The
// original used a fixed 0.025; it is configurable here since the resulting
// sample count is resolution-independent and visibly noisy at low light.
const DefaultIrradianceStep = 0.025

// Hammersley returns the i-th point of the n-point low-discrepancy sequence
// used for GGX importance sampling.
func Hammersley(i, n uint32) math.Vec2 {
	return math.Vec2{
		X: float32(i) / float32(n),
		Y: radicalInverseVdC(i),
	}
}

func radicalInverseVdC(bits uint32) float32 {
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(bits) * 2.3283064365386963e-10 // 1 / 2^32
}

// ImportanceSampleGGX maps a 2D low-discrepancy point to a half-vector around
// n, distributed per the GGX NDF for the given roughness.
func ImportanceSampleGGX(xi math.Vec2, n math.Vec3, roughness float32) math.Vec3 {
	a := roughness * roughness

	phi := 2.0 * math.Pi * xi.X
	cosTheta := ksqrtf((1.0 - xi.Y) / (1.0 + (a*a-1.0)*xi.Y))
	sinTheta := ksqrtf(1.0 - cosTheta*cosTheta)

	h := math.Vec3{
		X: kcosf(phi) * sinTheta,
		Y: ksinf(phi) * sinTheta,
		Z: cosTheta,
	}

	// Tangent space to world space.
	up := math.Vec3{Z: 1.0}
	if kabsf(n.Z) > 0.999 {
		up = math.Vec3{X: 1.0}
	}
	tangent := up.Cross(n).Normalized()
	bitangent := n.Cross(tangent)

	return tangent.MulScalar(h.X).Add(bitangent.MulScalar(h.Y)).Add(n.MulScalar(h.Z)).Normalized()
}

// IntegrateBRDF computes one texel of the split-sum BRDF LUT: the scale and
// bias applied to F0 for a given (N.V, roughness) pair.
func IntegrateBRDF(nDotV, roughness float32, samples uint32) math.Vec2 {
	v := math.Vec3{
		X: ksqrtf(1.0 - nDotV*nDotV),
		Y: 0.0,
		Z: nDotV,
	}
	n := math.Vec3{Z: 1.0}

	var scale, bias float32
	for i := uint32(0); i < samples; i++ {
		xi := Hammersley(i, samples)
		h := ImportanceSampleGGX(xi, n, roughness)
		l := h.MulScalar(2.0 * v.Dot(h)).Sub(v).Normalized()

		nDotL := math.Max(l.Z, 0.0)
		if nDotL <= 0 {
			continue
		}
		nDotH := math.Max(h.Z, 0.0)
		vDotH := math.Max(v.Dot(h), 0.0)

		g := geometrySmithIBL(nDotV, nDotL, roughness)
		gVis := (g * vDotH) / (nDotH * nDotV)
		fc := pow5(1.0 - vDotH)

		scale += (1.0 - fc) * gVis
		bias += fc * gVis
	}
	inv := 1.0 / float32(samples)
	return math.Vec2{X: scale * inv, Y: bias * inv}
}

// geometrySmithIBL uses the IBL k remapping k = r^2 / 2 rather than the
// direct-lighting one.
func geometrySmithIBL(nDotV, nDotL, roughness float32) float32 {
	a := roughness * roughness
	k := a / 2.0
	gv := nDotV / (nDotV*(1.0-k) + k)
	gl := nDotL / (nDotL*(1.0-k) + k)
	return gv * gl
}

// ProceduralSky is the fallback environment: blue zenith blending to a white
// horizon and a warm ground below.
func ProceduralSky(dir math.Vec3) math.Vec3 {
	d := dir.Normalized()
	zenith := math.Vec3{X: 0.25, Y: 0.45, Z: 0.85}
	horizon := math.Vec3{X: 0.95, Y: 0.95, Z: 0.98}
	ground := math.Vec3{X: 0.35, Y: 0.30, Z: 0.25}

	if d.Y >= 0 {
		t := kpowf(d.Y, 0.6)
		return horizon.Lerp(zenith, t)
	}
	t := math.Clamp(-d.Y*3.0, 0.0, 1.0)
	return horizon.Lerp(ground, t)
}

// EquirectUV maps a direction to equirectangular texture coordinates, the
// same mapping the cubemap conversion shader uses.
func EquirectUV(dir math.Vec3) math.Vec2 {
	d := dir.Normalized()
	u := float32(gomath.Atan2(float64(d.Z), float64(d.X)))/(2.0*math.Pi) + 0.5
	v := float32(gomath.Asin(float64(math.Clamp(d.Y, -1.0, 1.0))))/math.Pi + 0.5
	return math.Vec2{X: u, Y: v}
}

// ConvolveIrradiance integrates the diffuse irradiance around normal n by
// sampling env over the hemisphere with the given angular step. This is the
// CPU reference of the irradiance convolution shader.
func ConvolveIrradiance(env func(math.Vec3) math.Vec3, n math.Vec3, step float32) math.Vec3 {
	n = n.Normalized()
	up := math.Vec3{Y: 1.0}
	if kabsf(n.Y) > 0.999 {
		up = math.Vec3{X: 1.0}
	}
	right := up.Cross(n).Normalized()
	up = n.Cross(right)

	var irradiance math.Vec3
	var count float32
	for phi := float32(0); phi < 2.0*math.Pi; phi += step {
		for theta := float32(0); theta < 0.5*math.Pi; theta += step {
			// Spherical to tangent space.
			tangentSample := math.Vec3{
				X: ksinf(theta) * kcosf(phi),
				Y: ksinf(theta) * ksinf(phi),
				Z: kcosf(theta),
			}
			sampleDir := right.MulScalar(tangentSample.X).
				Add(up.MulScalar(tangentSample.Y)).
				Add(n.MulScalar(tangentSample.Z))

			irradiance = irradiance.Add(env(sampleDir).MulScalar(kcosf(theta) * ksinf(theta)))
			count++
		}
	}
	return irradiance.MulScalar(math.Pi / count)
}

// CubeFaceDirection returns the world direction for a texel center on a
// cubemap face, face order +X,-X,+Y,-Y,+Z,-Z.
func CubeFaceDirection(face int, u, v float32) math.Vec3 {
	// Map [0,1] to [-1,1].
	a := 2.0*u - 1.0
	b := 2.0*v - 1.0
	switch face {
	case 0:
		return math.Vec3{X: 1, Y: -b, Z: -a}.Normalized()
	case 1:
		return math.Vec3{X: -1, Y: -b, Z: a}.Normalized()
	case 2:
		return math.Vec3{X: a, Y: 1, Z: b}.Normalized()
	case 3:
		return math.Vec3{X: a, Y: -1, Z: -b}.Normalized()
	case 4:
		return math.Vec3{X: a, Y: -b, Z: 1}.Normalized()
	default:
		return math.Vec3{X: -a, Y: -b, Z: -1}.Normalized()
	}
}

// CubeFaceViewMatrices returns the six 90-degree look-at view matrices used
// to rasterize a unit cube into each cubemap face.
func CubeFaceViewMatrices() [6]math.Mat4 {
	eye := math.NewVec3Zero()
	return [6]math.Mat4{
		math.NewMat4LookAt(eye, math.NewVec3(1, 0, 0), math.NewVec3(0, -1, 0)),
		math.NewMat4LookAt(eye, math.NewVec3(-1, 0, 0), math.NewVec3(0, -1, 0)),
		math.NewMat4LookAt(eye, math.NewVec3(0, 1, 0), math.NewVec3(0, 0, 1)),
		math.NewMat4LookAt(eye, math.NewVec3(0, -1, 0), math.NewVec3(0, 0, -1)),
		math.NewMat4LookAt(eye, math.NewVec3(0, 0, 1), math.NewVec3(0, -1, 0)),
		math.NewMat4LookAt(eye, math.NewVec3(0, 0, -1), math.NewVec3(0, -1, 0)),
	}
}

func ksqrtf(x float32) float32 { return float32(gomath.Sqrt(float64(x))) }
func kcosf(x float32) float32  { return float32(gomath.Cos(float64(x))) }
func ksinf(x float32) float32  { return float32(gomath.Sin(float64(x))) }
