package math

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	m := Mat4{}
	m.Data[0] = 1.0
	m.Data[5] = 1.0
	m.Data[10] = 1.0
	m.Data[15] = 1.0
	return m
}

// Mul returns m * other. Storage is column-major (Data[col*4+row]), so this
// composes right-to-left: (projection.Mul(view)).MulVec4(p) applies the view
// first.
func (m Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += m.Data[i*4+row] * other.Data[col*4+i]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

// MulVec4 applies the matrix to a column vector.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m.Data[0]*v.X + m.Data[4]*v.Y + m.Data[8]*v.Z + m.Data[12]*v.W,
		m.Data[1]*v.X + m.Data[5]*v.Y + m.Data[9]*v.Z + m.Data[13]*v.W,
		m.Data[2]*v.X + m.Data[6]*v.Y + m.Data[10]*v.Z + m.Data[14]*v.W,
		m.Data[3]*v.X + m.Data[7]*v.Y + m.Data[11]*v.Z + m.Data[15]*v.W,
	}
}

// TransformPoint applies the matrix to a point and performs the perspective
// divide. Used for depth-to-world reconstruction and frustum-corner math.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	v := m.MulVec4(p.ToVec4(1.0))
	if v.W != 0 && v.W != 1 {
		return Vec3{v.X / v.W, v.Y / v.W, v.Z / v.W}
	}
	return v.ToVec3()
}

// TransformDirection applies only the rotational part of the matrix.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	v := m.MulVec4(d.ToVec4(0.0))
	return v.ToVec3()
}

/**
 * @brief Creates and returns an orthographic projection matrix. Used for
 * directional shadow cascades.
 */
func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	m := NewMat4Identity()

	lr := 1.0 / (left - right)
	bt := 1.0 / (bottom - top)
	nf := 1.0 / (nearClip - farClip)

	m.Data[0] = -2.0 * lr
	m.Data[5] = -2.0 * bt
	m.Data[10] = 2.0 * nf

	m.Data[12] = (left + right) * lr
	m.Data[13] = (top + bottom) * bt
	m.Data[14] = (farClip + nearClip) * nf
	return m
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to render 3d scenes.
 */
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := ktan(fovRadians * 0.5)
	m := Mat4{}
	m.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	m.Data[5] = 1.0 / halfTanFov
	m.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	m.Data[11] = -1.0
	m.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return m
}

/**
 * @brief Creates and returns a look-at matrix, or a matrix looking
 * at target from the perspective of position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := target.Sub(position).Normalized()
	xAxis := zAxis.Cross(up).Normalized()
	yAxis := xAxis.Cross(zAxis)

	m := Mat4{}
	m.Data[0] = xAxis.X
	m.Data[1] = yAxis.X
	m.Data[2] = -zAxis.X
	m.Data[4] = xAxis.Y
	m.Data[5] = yAxis.Y
	m.Data[6] = -zAxis.Y
	m.Data[8] = xAxis.Z
	m.Data[9] = yAxis.Z
	m.Data[10] = -zAxis.Z
	m.Data[12] = -xAxis.Dot(position)
	m.Data[13] = -yAxis.Dot(position)
	m.Data[14] = zAxis.Dot(position)
	m.Data[15] = 1.0
	return m
}

func (m Mat4) Transposed() Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out.Data[row*4+col] = m.Data[col*4+row]
		}
	}
	return out
}

/**
 * @brief Returns the inverse of the matrix via the adjugate method. Singular
 * matrices return garbage; callers are expected to pass invertible transforms.
 */
func (m Mat4) Inverse() Mat4 {
	d := m.Data

	t0 := d[10] * d[15]
	t1 := d[14] * d[11]
	t2 := d[6] * d[15]
	t3 := d[14] * d[7]
	t4 := d[6] * d[11]
	t5 := d[10] * d[7]
	t6 := d[2] * d[15]
	t7 := d[14] * d[3]
	t8 := d[2] * d[11]
	t9 := d[10] * d[3]
	t10 := d[2] * d[7]
	t11 := d[6] * d[3]
	t12 := d[8] * d[13]
	t13 := d[12] * d[9]
	t14 := d[4] * d[13]
	t15 := d[12] * d[5]
	t16 := d[4] * d[9]
	t17 := d[8] * d[5]
	t18 := d[0] * d[13]
	t19 := d[12] * d[1]
	t20 := d[0] * d[9]
	t21 := d[8] * d[1]
	t22 := d[0] * d[5]
	t23 := d[4] * d[1]

	out := Mat4{}
	o := &out.Data

	o[0] = (t0*d[5] + t3*d[9] + t4*d[13]) - (t1*d[5] + t2*d[9] + t5*d[13])
	o[1] = (t1*d[1] + t6*d[9] + t9*d[13]) - (t0*d[1] + t7*d[9] + t8*d[13])
	o[2] = (t2*d[1] + t7*d[5] + t10*d[13]) - (t3*d[1] + t6*d[5] + t11*d[13])
	o[3] = (t5*d[1] + t8*d[5] + t11*d[9]) - (t4*d[1] + t9*d[5] + t10*d[9])

	det := 1.0 / (d[0]*o[0] + d[4]*o[1] + d[8]*o[2] + d[12]*o[3])

	o[0] *= det
	o[1] *= det
	o[2] *= det
	o[3] *= det
	o[4] = det * ((t1*d[4] + t2*d[8] + t5*d[12]) - (t0*d[4] + t3*d[8] + t4*d[12]))
	o[5] = det * ((t0*d[0] + t7*d[8] + t8*d[12]) - (t1*d[0] + t6*d[8] + t9*d[12]))
	o[6] = det * ((t3*d[0] + t6*d[4] + t11*d[12]) - (t2*d[0] + t7*d[4] + t10*d[12]))
	o[7] = det * ((t4*d[0] + t9*d[4] + t10*d[8]) - (t5*d[0] + t8*d[4] + t11*d[8]))
	o[8] = det * ((t12*d[7] + t15*d[11] + t16*d[15]) - (t13*d[7] + t14*d[11] + t17*d[15]))
	o[9] = det * ((t13*d[3] + t18*d[11] + t21*d[15]) - (t12*d[3] + t19*d[11] + t20*d[15]))
	o[10] = det * ((t14*d[3] + t19*d[7] + t22*d[15]) - (t15*d[3] + t18*d[7] + t23*d[15]))
	o[11] = det * ((t17*d[3] + t20*d[7] + t23*d[11]) - (t16*d[3] + t21*d[7] + t22*d[11]))
	o[12] = det * ((t14*d[10] + t17*d[14] + t13*d[6]) - (t16*d[14] + t12*d[6] + t15*d[10]))
	o[13] = det * ((t20*d[14] + t12*d[2] + t19*d[10]) - (t18*d[10] + t21*d[14] + t13*d[2]))
	o[14] = det * ((t18*d[6] + t23*d[14] + t15*d[2]) - (t22*d[14] + t14*d[2] + t19*d[6]))
	o[15] = det * ((t22*d[10] + t16*d[2] + t21*d[6]) - (t20*d[6] + t23*d[10] + t17*d[2]))

	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[12] = position.X
	m.Data[13] = position.Y
	m.Data[14] = position.Z
	return m
}

func NewMat4Scale(scale Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[0] = scale.X
	m.Data[5] = scale.Y
	m.Data[10] = scale.Z
	return m
}

func NewMat4EulerX(angleRadians float32) Mat4 {
	m := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)
	m.Data[5] = c
	m.Data[6] = s
	m.Data[9] = -s
	m.Data[10] = c
	return m
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	m := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)
	m.Data[0] = c
	m.Data[2] = -s
	m.Data[8] = s
	m.Data[10] = c
	return m
}

func NewMat4EulerZ(angleRadians float32) Mat4 {
	m := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)
	m.Data[0] = c
	m.Data[1] = s
	m.Data[4] = -s
	m.Data[5] = c
	return m
}

func NewMat4EulerXYZ(xRadians, yRadians, zRadians float32) Mat4 {
	rx := NewMat4EulerX(xRadians)
	ry := NewMat4EulerY(yRadians)
	rz := NewMat4EulerZ(zRadians)
	return rz.Mul(ry).Mul(rx)
}

// Forward returns the matrix's negative-Z basis direction, normalized.
func (m Mat4) Forward() Vec3 {
	return Vec3{-m.Data[8], -m.Data[9], -m.Data[10]}.Normalized()
}

func (m Mat4) Up() Vec3 {
	return Vec3{m.Data[4], m.Data[5], m.Data[6]}.Normalized()
}

func (m Mat4) Right() Vec3 {
	return Vec3{m.Data[0], m.Data[1], m.Data[2]}.Normalized()
}

// Position returns the translation column.
func (m Mat4) Position() Vec3 {
	return Vec3{m.Data[12], m.Data[13], m.Data[14]}
}

// NormalMatrix returns the inverse-transpose, used to transform normals under
// non-uniform scale.
func (m Mat4) NormalMatrix() Mat4 {
	return m.Inverse().Transposed()
}
