package math

import "testing"

const testEpsilon = 1e-4

func vec3Near(t *testing.T, got, want Vec3, context string) {
	t.Helper()
	if !got.Compare(want, testEpsilon) {
		t.Fatalf("%s: got %v, want %v", context, got, want)
	}
}

func float32Near(t *testing.T, got, want float32, context string) {
	t.Helper()
	d := got - want
	if d < 0 {
		d = -d
	}
	if d > testEpsilon {
		t.Fatalf("%s: got %v, want %v", context, got, want)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Translation(Vec3{1, 2, 3}).Mul(NewMat4EulerY(0.7))
	got := m.Mul(NewMat4Identity())
	for i := range got.Data {
		float32Near(t, got.Data[i], m.Data[i], "m * I")
	}
	got = NewMat4Identity().Mul(m)
	for i := range got.Data {
		float32Near(t, got.Data[i], m.Data[i], "I * m")
	}
}

func TestMat4TranslationThenScale(t *testing.T) {
	// Composition is right-to-left: scale first, then translate.
	m := NewMat4Translation(Vec3{10, 0, 0}).Mul(NewMat4Scale(Vec3{2, 2, 2}))
	vec3Near(t, m.TransformPoint(Vec3{1, 1, 1}), Vec3{12, 2, 2}, "T*S point")

	// Directions ignore translation.
	vec3Near(t, m.TransformDirection(Vec3{1, 0, 0}), Vec3{2, 0, 0}, "T*S direction")
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4Translation(Vec3{3, -4, 7}).
		Mul(NewMat4EulerXYZ(0.3, 1.1, -0.5)).
		Mul(NewMat4Scale(Vec3{2, 3, 0.5}))

	p := Vec3{1.5, -2.25, 4}
	back := m.Inverse().TransformPoint(m.TransformPoint(p))
	vec3Near(t, back, p, "inverse round trip")

	id := m.Mul(m.Inverse())
	want := NewMat4Identity()
	for i := range id.Data {
		float32Near(t, id.Data[i], want.Data[i], "m * m^-1")
	}
}

func TestMat4LookAtBasis(t *testing.T) {
	view := NewMat4LookAt(Vec3{0, 0, 10}, Vec3{0, 0, 0}, Vec3{0, 1, 0})

	// The camera sits on +Z looking down -Z: the origin lands 10 units in
	// front of the camera, which view space puts at z = -10.
	vec3Near(t, view.TransformPoint(Vec3{0, 0, 0}), Vec3{0, 0, -10}, "origin in view space")
	vec3Near(t, view.TransformPoint(Vec3{0, 0, 10}), Vec3{0, 0, 0}, "eye in view space")
	vec3Near(t, view.TransformPoint(Vec3{1, 0, 10}), Vec3{1, 0, 0}, "right offset preserved")
}

func TestMat4PerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(100.0)
	proj := NewMat4Perspective(DegToRad(60), 16.0/9.0, near, far)

	nearNDC := proj.TransformPoint(Vec3{0, 0, -near})
	farNDC := proj.TransformPoint(Vec3{0, 0, -far})
	float32Near(t, nearNDC.Z, -1, "near plane maps to -1")
	float32Near(t, farNDC.Z, 1, "far plane maps to +1")
}

func TestMat4OrthographicMapsToNDC(t *testing.T) {
	proj := NewMat4Orthographic(-10, 10, -5, 5, 0.1, 50)
	vec3Near(t, proj.TransformPoint(Vec3{-10, -5, -0.1}), Vec3{-1, -1, -1}, "min corner")
	vec3Near(t, proj.TransformPoint(Vec3{10, 5, -50}), Vec3{1, 1, 1}, "max corner")
	got := proj.TransformPoint(Vec3{0, 0, -25.05})
	float32Near(t, got.X, 0, "center x")
	float32Near(t, got.Y, 0, "center y")
}

func TestMat4BasisAccessors(t *testing.T) {
	m := NewMat4EulerY(Pi / 2)
	// Rotating +90 degrees around Y sends -Z (forward) to -X.
	vec3Near(t, m.Forward(), Vec3{-1, 0, 0}, "forward")
	vec3Near(t, m.Up(), Vec3{0, 1, 0}, "up")
	vec3Near(t, m.Right(), Vec3{0, 0, -1}, "right")

	tr := NewMat4Translation(Vec3{4, 5, 6})
	vec3Near(t, tr.Position(), Vec3{4, 5, 6}, "position column")
}

func TestQuaternionAxisAngleMatchesEulerMatrix(t *testing.T) {
	angle := float32(0.8)
	q := NewQuatFromAxisAngle(Vec3{0, 1, 0}, angle, true)
	qm := q.ToMat4()
	em := NewMat4EulerY(angle)

	p := Vec3{1, 2, 3}
	vec3Near(t, qm.TransformPoint(p), em.TransformPoint(p), "quaternion vs euler rotation")
}

func TestQuaternionMulComposes(t *testing.T) {
	qa := NewQuatFromAxisAngle(Vec3{0, 1, 0}, 0.4, true)
	qb := NewQuatFromAxisAngle(Vec3{0, 1, 0}, 0.6, true)
	combined := qa.Mul(qb)
	want := NewQuatFromAxisAngle(Vec3{0, 1, 0}, 1.0, true)

	p := Vec3{3, 0, 1}
	vec3Near(t, combined.ToMat4().TransformPoint(p), want.ToMat4().TransformPoint(p), "q composition")
}

func TestQuaternionConjugateUndoesRotation(t *testing.T) {
	q := NewQuatFromAxisAngle(Vec3{1, 1, 0}.Normalized(), 1.3, true)
	p := Vec3{2, -1, 5}
	back := q.Conjugate().ToMat4().TransformPoint(q.ToMat4().TransformPoint(p))
	vec3Near(t, back, p, "conjugate round trip")
}

func TestQuaternionNormalizedZeroIsIdentity(t *testing.T) {
	q := Quaternion{0, 0, 0, 0}.Normalized()
	if q != NewQuatIdentity() {
		t.Fatalf("zero quaternion normalized to %v, want identity", q)
	}
}

func TestTransformLocalOrder(t *testing.T) {
	tr := TransformFromPositionRotationScale(
		Vec3{5, 0, 0},
		NewQuatIdentity(),
		Vec3{2, 2, 2},
	)
	// T * R * S: the point scales before it translates.
	vec3Near(t, tr.Local().TransformPoint(Vec3{1, 0, 0}), Vec3{7, 0, 0}, "local TRS order")
}

func TestTransformDirtyTracking(t *testing.T) {
	tr := TransformCreate()
	first := tr.Local()
	vec3Near(t, first.Position(), Vec3{0, 0, 0}, "identity transform")

	tr.SetPosition(Vec3{1, 2, 3})
	vec3Near(t, tr.Local().Position(), Vec3{1, 2, 3}, "after SetPosition")

	tr.Translate(Vec3{1, 0, 0})
	vec3Near(t, tr.Local().Position(), Vec3{2, 2, 3}, "after Translate")
}

func TestTransformWorldParentChain(t *testing.T) {
	root := TransformFromPosition(Vec3{10, 0, 0})
	child := TransformFromPosition(Vec3{0, 5, 0})
	child.Parent = root
	grandchild := TransformFromPosition(Vec3{0, 0, 2})
	grandchild.Parent = child

	vec3Near(t, grandchild.World().Position(), Vec3{10, 5, 2}, "chained world position")

	// Rotating the root swings the whole chain around.
	root.SetRotation(NewQuatFromAxisAngle(Vec3{0, 1, 0}, Pi/2, true))
	vec3Near(t, child.World().Position(), Vec3{10, 5, 0}, "rotated parent, child on axis-adjacent offset")
}

func TestFrustumSphereCulling(t *testing.T) {
	view := NewMat4LookAt(Vec3{0, 0, 10}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	proj := NewMat4Perspective(DegToRad(60), 1.0, 0.1, 100)
	f := NewFrustumFromViewProjection(proj.Mul(view))

	if !f.IntersectsSphere(Vec3{0, 0, 0}, 1) {
		t.Fatal("sphere at the look target culled")
	}
	if f.IntersectsSphere(Vec3{0, 0, 200}, 1) {
		t.Fatal("sphere behind the camera not culled")
	}
	if f.IntersectsSphere(Vec3{0, 0, -200}, 1) {
		t.Fatal("sphere past the far plane not culled")
	}
	// A big sphere straddling the near plane still intersects.
	if !f.IntersectsSphere(Vec3{0, 0, 12}, 5) {
		t.Fatal("sphere straddling the near plane culled")
	}
}

func TestFrustumAABBCulling(t *testing.T) {
	view := NewMat4LookAt(Vec3{0, 0, 10}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	proj := NewMat4Perspective(DegToRad(60), 1.0, 0.1, 100)
	f := NewFrustumFromViewProjection(proj.Mul(view))

	inside := Extents3D{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}
	if !f.IntersectsAABB(inside) {
		t.Fatal("box at the look target culled")
	}
	behind := Extents3D{Min: Vec3{-1, -1, 100}, Max: Vec3{1, 1, 102}}
	if f.IntersectsAABB(behind) {
		t.Fatal("box behind the camera not culled")
	}
}

func TestClampLerpSmoothstep(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp(5,0,3) = %d", got)
	}
	if got := Clamp(-1.5, 0.0, 3.0); got != 0 {
		t.Fatalf("Clamp(-1.5,0,3) = %v", got)
	}
	float32Near(t, Lerp(2, 10, 0.25), 4, "Lerp")
	float32Near(t, Smoothstep(0, 1, 0), 0, "Smoothstep edge0")
	float32Near(t, Smoothstep(0, 1, 1), 1, "Smoothstep edge1")
	float32Near(t, Smoothstep(0, 1, 0.5), 0.5, "Smoothstep midpoint")
}

func TestDegRadRoundTrip(t *testing.T) {
	float32Near(t, DegToRad(180), Pi, "DegToRad")
	float32Near(t, RadToDeg(DegToRad(73.5)), 73.5, "round trip")
}

func TestVec3Operations(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -5, 6}
	vec3Near(t, a.Add(b), Vec3{5, -3, 9}, "Add")
	vec3Near(t, a.Sub(b), Vec3{-3, 7, -3}, "Sub")
	float32Near(t, a.Dot(b), 12, "Dot")
	vec3Near(t, Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0}), Vec3{0, 0, 1}, "Cross")
	float32Near(t, Vec3{3, 4, 0}.Normalized().Length(), 1, "Normalized length")
	vec3Near(t, a.Lerp(b, 0.5), Vec3{2.5, -1.5, 4.5}, "Lerp")
}
