package resources

import "github.com/spaghettifunk/lumen/engine/math"

/**
 * @brief A PBR material. Scalar factors are always applied; texture map paths
 * are optional and, when set, drive shader variant selection in the geometry
 * pass.
 */
type Material struct {
	Name string

	// Base PBR factors.
	AlbedoColor    math.Vec4 // rgb + opacity
	Metallic       float32
	Roughness      float32
	AO             float32
	Emissive       math.Vec3
	EmissiveFactor float32

	// Alpha-cutoff materials discard fragments below this threshold.
	// Zero disables the cutoff.
	AlphaCutoff float32

	// Clearcoat second specular lobe.
	Clearcoat          float32
	ClearcoatRoughness float32

	// Subsurface wrap-lighting approximation.
	Subsurface      float32
	SubsurfaceColor math.Vec3

	// Optional texture map file paths, resolved through the texture cache.
	AlbedoMap            string
	NormalMap            string
	MetallicRoughnessMap string
	AOMap                string
	EmissiveMap          string
	HeightMap            string

	// Parallax occlusion mapping displacement scale, used with HeightMap.
	HeightScale float32
}

// NewDefaultMaterial returns a mid-grey dielectric.
func NewDefaultMaterial() *Material {
	return &Material{
		Name:               "default",
		AlbedoColor:        math.NewVec4(0.8, 0.8, 0.8, 1.0),
		Metallic:           0.0,
		Roughness:          0.5,
		AO:                 1.0,
		EmissiveFactor:     1.0,
		HeightScale:        0.05,
		ClearcoatRoughness: 0.1,
		SubsurfaceColor:    math.NewVec3(1.0, 0.3, 0.2),
	}
}
