package scene

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// Entity is an opaque scene object identifier. Zero is never a valid entity.
type Entity uint32

const InvalidEntity Entity = 0

// MeshComponent attaches renderable geometry to an entity.
type MeshComponent struct {
	Mesh        *resources.MeshData
	CastShadows bool
	// LODAlpha drives the dithered LOD cross-fade in the geometry pass.
	// 1 means fully visible; values below 1 discard fragments with a 4x4
	// Bayer pattern.
	LODAlpha float32
}

// MaterialComponent attaches a material to an entity. Entities without one
// render with the default material.
type MaterialComponent struct {
	Material *resources.Material
}

// CameraComponent marks an entity as a camera. The entity's transform places
// the camera in the world.
type CameraComponent struct {
	FOV      float32 // vertical field of view, radians
	NearClip float32
	FarClip  float32
	Active   bool
}

// ViewMatrix derives the view matrix from the camera's world transform.
func (c *CameraComponent) ViewMatrix(world math.Mat4) math.Mat4 {
	return world.Inverse()
}

// PointLightComponent is a positional light with inverse-square falloff and a
// smooth range cutoff.
type PointLightComponent struct {
	Color     math.Vec3
	Intensity float32
	Range     float32
}

// DirectionalLightComponent is an infinitely-distant light. Only the first
// directional light in the scene casts shadows.
type DirectionalLightComponent struct {
	Direction math.Vec3
	Color     math.Vec3
	Intensity float32
}

// EnvironmentComponent requests image-based lighting. If HDRPath is empty a
// procedural sky gradient is used as the source environment.
type EnvironmentComponent struct {
	HDRPath   string
	Intensity float32
}
