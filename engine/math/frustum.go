package math

// Plane4 is a plane in Hessian normal form: ax + by + cz + d = 0.
type Plane4 [4]float32

// Frustum holds the six clipping planes of a view-projection matrix in the
// order left, right, bottom, top, near, far.
type Frustum [6]Plane4

// NewFrustumFromViewProjection extracts the six frustum planes with the
// Gribb-Hartmann method and normalizes them.
func NewFrustumFromViewProjection(vp Mat4) Frustum {
	// Rows of the column-major matrix.
	row := func(r int) Vec4 {
		return Vec4{vp.Data[0*4+r], vp.Data[1*4+r], vp.Data[2*4+r], vp.Data[3*4+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]Vec4{
		r3.Add(r0),               // left
		r3.Add(r0.MulScalar(-1)), // right
		r3.Add(r1),               // bottom
		r3.Add(r1.MulScalar(-1)), // top
		r3.Add(r2),               // near
		r3.Add(r2.MulScalar(-1)), // far
	}

	f := Frustum{}
	for i, p := range planes {
		length := ksqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		if length > 1e-8 {
			p = p.MulScalar(1.0 / length)
		}
		f[i] = Plane4{p.X, p.Y, p.Z, p.W}
	}
	return f
}

// IntersectsSphere reports whether a bounding sphere is inside or intersects
// the frustum.
func (f Frustum) IntersectsSphere(center Vec3, radius float32) bool {
	for _, plane := range f {
		dist := plane[0]*center.X + plane[1]*center.Y + plane[2]*center.Z + plane[3]
		if dist < -radius {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether an axis-aligned bounding box is inside or
// intersects the frustum, testing the box's most-positive vertex per plane.
func (f Frustum) IntersectsAABB(extents Extents3D) bool {
	for _, plane := range f {
		p := extents.Min
		if plane[0] >= 0 {
			p.X = extents.Max.X
		}
		if plane[1] >= 0 {
			p.Y = extents.Max.Y
		}
		if plane[2] >= 0 {
			p.Z = extents.Max.Z
		}
		if plane[0]*p.X+plane[1]*p.Y+plane[2]*p.Z+plane[3] < 0 {
			return false
		}
	}
	return true
}
