package resources

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

// NewCubeMesh builds a unit-extent cube centered on the origin with per-face
// normals, UVs and tangents.
func NewCubeMesh(name string, width, height, depth float32) *MeshData {
	hw := width * 0.5
	hh := height * 0.5
	hd := depth * 0.5

	// 4 vertices per face, 6 faces.
	positions := [6][4]math.Vec3{
		// +Z
		{{X: -hw, Y: -hh, Z: hd}, {X: hw, Y: -hh, Z: hd}, {X: hw, Y: hh, Z: hd}, {X: -hw, Y: hh, Z: hd}},
		// -Z
		{{X: hw, Y: -hh, Z: -hd}, {X: -hw, Y: -hh, Z: -hd}, {X: -hw, Y: hh, Z: -hd}, {X: hw, Y: hh, Z: -hd}},
		// +X
		{{X: hw, Y: -hh, Z: hd}, {X: hw, Y: -hh, Z: -hd}, {X: hw, Y: hh, Z: -hd}, {X: hw, Y: hh, Z: hd}},
		// -X
		{{X: -hw, Y: -hh, Z: -hd}, {X: -hw, Y: -hh, Z: hd}, {X: -hw, Y: hh, Z: hd}, {X: -hw, Y: hh, Z: -hd}},
		// +Y
		{{X: -hw, Y: hh, Z: hd}, {X: hw, Y: hh, Z: hd}, {X: hw, Y: hh, Z: -hd}, {X: -hw, Y: hh, Z: -hd}},
		// -Y
		{{X: -hw, Y: -hh, Z: -hd}, {X: hw, Y: -hh, Z: -hd}, {X: hw, Y: -hh, Z: hd}, {X: -hw, Y: -hh, Z: hd}},
	}
	normals := [6]math.Vec3{
		{Z: 1}, {Z: -1}, {X: 1}, {X: -1}, {Y: 1}, {Y: -1},
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	mesh := &MeshData{Name: name}
	for face := 0; face < 6; face++ {
		base := uint32(len(mesh.Vertices))
		for i := 0; i < 4; i++ {
			mesh.Vertices = append(mesh.Vertices, math.Vertex3D{
				Position: positions[face][i],
				Normal:   normals[face],
				Texcoord: uvs[i],
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	math.GeometryGenerateTangents(mesh.Vertices, mesh.Indices)
	mesh.Extents = math.GeometryExtents(mesh.Vertices)
	return mesh
}

// NewPlaneMesh builds a flat XZ plane facing +Y.
func NewPlaneMesh(name string, width, depth float32, tilesU, tilesV float32) *MeshData {
	hw := width * 0.5
	hd := depth * 0.5
	mesh := &MeshData{
		Name: name,
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(-hw, 0, -hd), Normal: math.NewVec3Up(), Texcoord: math.NewVec2(0, 0)},
			{Position: math.NewVec3(-hw, 0, hd), Normal: math.NewVec3Up(), Texcoord: math.NewVec2(0, tilesV)},
			{Position: math.NewVec3(hw, 0, hd), Normal: math.NewVec3Up(), Texcoord: math.NewVec2(tilesU, tilesV)},
			{Position: math.NewVec3(hw, 0, -hd), Normal: math.NewVec3Up(), Texcoord: math.NewVec2(tilesU, 0)},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	math.GeometryGenerateTangents(mesh.Vertices, mesh.Indices)
	mesh.Extents = math.GeometryExtents(mesh.Vertices)
	return mesh
}

// NewSphereMesh builds a UV sphere.
func NewSphereMesh(name string, radius float32, rings, sectors int) *MeshData {
	mesh := &MeshData{Name: name}
	for r := 0; r <= rings; r++ {
		v := float32(r) / float32(rings)
		phi := v * math.Pi
		for s := 0; s <= sectors; s++ {
			u := float32(s) / float32(sectors)
			theta := u * 2.0 * math.Pi

			x := kcosf(theta) * ksinf(phi)
			y := kcosf(phi)
			z := ksinf(theta) * ksinf(phi)

			normal := math.NewVec3(x, y, z)
			mesh.Vertices = append(mesh.Vertices, math.Vertex3D{
				Position: normal.MulScalar(radius),
				Normal:   normal,
				Texcoord: math.NewVec2(u, v),
			})
		}
	}
	for r := 0; r < rings; r++ {
		for s := 0; s < sectors; s++ {
			i0 := uint32(r*(sectors+1) + s)
			i1 := i0 + uint32(sectors) + 1
			mesh.Indices = append(mesh.Indices, i0, i1, i0+1, i1, i1+1, i0+1)
		}
	}
	math.GeometryGenerateTangents(mesh.Vertices, mesh.Indices)
	mesh.Extents = math.GeometryExtents(mesh.Vertices)
	return mesh
}

func kcosf(x float32) float32 { return float32(gomath.Cos(float64(x))) }
func ksinf(x float32) float32 { return float32(gomath.Sin(float64(x))) }
