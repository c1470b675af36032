// Package shading is the backend-neutral contract for the deferred lighting
// model. Every backend shader (GLSL, SPIR-V, MSL) implements exactly this
// math; the Go forms here are the reference the test suite runs against, and
// the place where the constants live that all three backends must agree on.
package shading

import (
	"github.com/spaghettifunk/lumen/engine/math"
)

// ClearcoatF0 is the fixed clearcoat Fresnel reflectance at normal incidence
// (IOR 1.5 polyurethane coat).
const ClearcoatF0 = 0.04

// SubsurfaceWrap is the wrap-lighting constant for the subsurface diffuse
// approximation.
const SubsurfaceWrap = 0.5

// AmbientFloor is the flat ambient factor applied when no IBL environment is
// bound.
const AmbientFloor = 0.03

// DielectricF0 is the base reflectance used for non-metals.
const DielectricF0 = 0.04

// DistributionGGX is the Trowbridge-Reitz normal distribution function.
func DistributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	denom := nDotH*nDotH*(a2-1.0) + 1.0
	return a2 / (math.Pi * denom * denom)
}

// GeometrySchlickGGX is the Schlick-GGX single-direction geometry term with
// the direct-lighting k remapping k = (r+1)^2 / 8.
func GeometrySchlickGGX(nDotV, roughness float32) float32 {
	r := roughness + 1.0
	k := (r * r) / 8.0
	return nDotV / (nDotV*(1.0-k) + k)
}

// GeometrySmith combines the view and light Schlick-GGX terms.
func GeometrySmith(nDotV, nDotL, roughness float32) float32 {
	return GeometrySchlickGGX(nDotV, roughness) * GeometrySchlickGGX(nDotL, roughness)
}

// FresnelSchlick is the Schlick approximation of the Fresnel term.
func FresnelSchlick(cosTheta float32, f0 math.Vec3) math.Vec3 {
	f := pow5(1.0 - cosTheta)
	return math.Vec3{
		X: f0.X + (1.0-f0.X)*f,
		Y: f0.Y + (1.0-f0.Y)*f,
		Z: f0.Z + (1.0-f0.Z)*f,
	}
}

// FresnelSchlickRoughness is the roughness-aware Fresnel used for the IBL
// ambient term.
func FresnelSchlickRoughness(cosTheta float32, f0 math.Vec3, roughness float32) math.Vec3 {
	f := pow5(1.0 - cosTheta)
	smooth := 1.0 - roughness
	return math.Vec3{
		X: f0.X + (math.Max(smooth, f0.X)-f0.X)*f,
		Y: f0.Y + (math.Max(smooth, f0.Y)-f0.Y)*f,
		Z: f0.Z + (math.Max(smooth, f0.Z)-f0.Z)*f,
	}
}

// BaseReflectivity mixes the dielectric F0 toward albedo by metalness.
func BaseReflectivity(albedo math.Vec3, metallic float32) math.Vec3 {
	return math.Vec3{
		X: math.Lerp(DielectricF0, albedo.X, metallic),
		Y: math.Lerp(DielectricF0, albedo.Y, metallic),
		Z: math.Lerp(DielectricF0, albedo.Z, metallic),
	}
}

// PointLightAttenuation implements inverse-square falloff with a smooth range
// cutoff: rangeFactor = clamp(1 - (d/range)^4, 0, 1), squared, over d^2.
func PointLightAttenuation(distance, lightRange float32) float32 {
	if lightRange <= 0 {
		return 0
	}
	ratio := distance / lightRange
	rangeFactor := math.Clamp(1.0-ratio*ratio*ratio*ratio, 0.0, 1.0)
	rangeFactor *= rangeFactor
	return rangeFactor / math.Max(distance*distance, 1e-4)
}

// DiffuseWeight is the energy-conserving Lambertian weight
// kD = (1 - F) * (1 - metallic).
func DiffuseWeight(fresnel math.Vec3, metallic float32) math.Vec3 {
	return math.Vec3{
		X: (1.0 - fresnel.X) * (1.0 - metallic),
		Y: (1.0 - fresnel.Y) * (1.0 - metallic),
		Z: (1.0 - fresnel.Z) * (1.0 - metallic),
	}
}

// DirectLight evaluates the full Cook-Torrance contribution of one light:
// GGX specular plus energy-conserving Lambert diffuse, scaled by N.L and the
// light radiance.
func DirectLight(n, v, l math.Vec3, albedo math.Vec3, metallic, roughness float32, radiance math.Vec3) math.Vec3 {
	h := v.Add(l).Normalized()
	nDotL := math.Max(n.Dot(l), 0.0)
	if nDotL <= 0 {
		return math.Vec3{}
	}
	nDotV := math.Max(n.Dot(v), 0.0)
	nDotH := math.Max(n.Dot(h), 0.0)
	hDotV := math.Max(h.Dot(v), 0.0)

	f0 := BaseReflectivity(albedo, metallic)
	ndf := DistributionGGX(nDotH, roughness)
	g := GeometrySmith(nDotV, nDotL, roughness)
	f := FresnelSchlick(hDotV, f0)

	denom := 4.0*nDotV*nDotL + 1e-4
	specular := f.MulScalar(ndf * g / denom)

	kd := DiffuseWeight(f, metallic)
	diffuse := kd.Mul(albedo).MulScalar(1.0 / math.Pi)

	return diffuse.Add(specular).Mul(radiance).MulScalar(nDotL)
}

// ClearcoatLobe evaluates the second specular lobe and its Fresnel weight.
// The caller blends: Lo = Lo*(1 - clearcoat*Fc) + clearcoat*Lo_cc.
func ClearcoatLobe(n, v, l math.Vec3, clearcoatRoughness float32, radiance math.Vec3) (lobe math.Vec3, fresnel float32) {
	h := v.Add(l).Normalized()
	nDotL := math.Max(n.Dot(l), 0.0)
	if nDotL <= 0 {
		return math.Vec3{}, 0
	}
	nDotV := math.Max(n.Dot(v), 0.0)
	nDotH := math.Max(n.Dot(h), 0.0)
	hDotV := math.Max(h.Dot(v), 0.0)

	ndf := DistributionGGX(nDotH, clearcoatRoughness)
	g := GeometrySmith(nDotV, nDotL, clearcoatRoughness)
	fc := ClearcoatF0 + (1.0-ClearcoatF0)*pow5(1.0-hDotV)

	denom := 4.0*nDotV*nDotL + 1e-4
	return radiance.MulScalar(ndf * g * fc / denom * nDotL), fc
}

// SubsurfaceTerm is the wrap-lighting diffuse plus a view-dependent
// back-scatter term, modulated by the subsurface color. The result is
// additively blended by the material's subsurface scalar.
func SubsurfaceTerm(n, v, l math.Vec3, subsurfaceColor, radiance math.Vec3) math.Vec3 {
	wrapped := math.Clamp((n.Dot(l)+SubsurfaceWrap)/(1.0+SubsurfaceWrap), 0.0, 1.0)

	// Light bleeding through from behind the surface toward the viewer.
	back := math.Clamp(v.Dot(l.MulScalar(-1)), 0.0, 1.0)
	scatter := back * back * back * back * wrapped

	return subsurfaceColor.Mul(radiance).MulScalar((wrapped + scatter) / math.Pi)
}

// AmbientIBL is the split-sum ambient term:
// kD*irradiance*albedo + prefiltered*(F*brdf.x + brdf.y).
func AmbientIBL(nDotV float32, albedo, irradiance, prefiltered math.Vec3, brdf math.Vec2, metallic, roughness, ao, intensity float32) math.Vec3 {
	f0 := BaseReflectivity(albedo, metallic)
	f := FresnelSchlickRoughness(nDotV, f0, roughness)
	kd := DiffuseWeight(f, metallic)

	diffuse := kd.Mul(irradiance).Mul(albedo)
	specular := prefiltered.Mul(f.MulScalar(brdf.X).Add(math.Vec3{X: brdf.Y, Y: brdf.Y, Z: brdf.Y}))
	return diffuse.Add(specular).MulScalar(ao * intensity)
}

// AmbientFlat is the fallback ambient used when no environment is bound.
func AmbientFlat(albedo math.Vec3, ao float32) math.Vec3 {
	return albedo.MulScalar(AmbientFloor * ao)
}

// PrefilterMip maps roughness to the specular prefilter mip level.
func PrefilterMip(roughness float32, mipCount int) float32 {
	return roughness * float32(mipCount-1)
}

func pow5(x float32) float32 {
	x2 := x * x
	return x2 * x2 * x
}
