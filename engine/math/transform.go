package math

/**
 * @brief Represents the transform of an object in the world. Transforms can
 * have a parent whose own transform is then taken into account.
 */
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
	// Indicates the local matrix needs to be recalculated.
	isDirty bool
	local   Mat4
	Parent  *Transform
}

func TransformCreate() *Transform {
	return TransformFromPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func TransformFromPosition(position Vec3) *Transform {
	return TransformFromPositionRotationScale(position, NewQuatIdentity(), NewVec3One())
}

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	return &Transform{
		Position: position,
		Rotation: rotation,
		Scale:    scale,
		isDirty:  true,
		local:    NewMat4Identity(),
	}
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation
	t.isDirty = true
}

func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = t.Rotation.Mul(rotation)
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.isDirty = true
}

// Local returns the local transformation matrix (T * R * S), recalculating it
// if position, rotation or scale changed since the last call.
func (t *Transform) Local() Mat4 {
	if t.isDirty {
		tr := NewMat4Translation(t.Position)
		rot := t.Rotation.ToMat4()
		sc := NewMat4Scale(t.Scale)
		t.local = tr.Mul(rot).Mul(sc)
		t.isDirty = false
	}
	return t.local
}

// World resolves the full parent chain into a world matrix.
func (t *Transform) World() Mat4 {
	local := t.Local()
	if t.Parent != nil {
		return t.Parent.World().Mul(local)
	}
	return local
}
