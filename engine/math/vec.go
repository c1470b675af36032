package math

import (
	gomath "math"
)

func ksin(x float32) float32  { return float32(gomath.Sin(float64(x))) }
func kcos(x float32) float32  { return float32(gomath.Cos(float64(x))) }
func ktan(x float32) float32  { return float32(gomath.Tan(float64(x))) }
func ksqrt(x float32) float32 { return float32(gomath.Sqrt(float64(x))) }
func kabs(x float32) float32  { return float32(gomath.Abs(float64(x))) }
func kpow(x, y float32) float32 {
	return float32(gomath.Pow(float64(x), float64(y)))
}

const Pi = float32(gomath.Pi)

func NewVec2(x, y float32) Vec2 { return Vec2{x, y} }

func (v Vec2) Add(other Vec2) Vec2 { return Vec2{v.X + other.X, v.Y + other.Y} }
func (v Vec2) Sub(other Vec2) Vec2 { return Vec2{v.X - other.X, v.Y - other.Y} }
func (v Vec2) MulScalar(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}
func (v Vec2) Length() float32 { return ksqrt(v.X*v.X + v.Y*v.Y) }

func NewVec3(x, y, z float32) Vec3 { return Vec3{x, y, z} }
func NewVec3Zero() Vec3            { return Vec3{} }
func NewVec3One() Vec3             { return Vec3{1.0, 1.0, 1.0} }
func NewVec3Up() Vec3              { return Vec3{0.0, 1.0, 0.0} }
func NewVec3Down() Vec3            { return Vec3{0.0, -1.0, 0.0} }
func NewVec3Forward() Vec3         { return Vec3{0.0, 0.0, -1.0} }

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float32 {
	return ksqrt(v.LengthSquared())
}

/**
 * @brief Returns a normalized copy of the supplied vector. Zero-length
 * vectors are returned unchanged.
 */
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return v
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return Vec3{
		v.X + (other.X-v.X)*t,
		v.Y + (other.Y-v.Y)*t,
		v.Z + (other.Z-v.Z)*t,
	}
}

/**
 * @brief Compares all elements of the two vectors and ensures the difference
 * is less than tolerance.
 */
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	return kabs(v.X-other.X) <= tolerance &&
		kabs(v.Y-other.Y) <= tolerance &&
		kabs(v.Z-other.Z) <= tolerance
}

func (v Vec3) ToVec4(w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

func NewVec4(x, y, z, w float32) Vec4 { return Vec4{x, y, z, w} }

func (v Vec4) ToVec3() Vec3 { return Vec3{v.X, v.Y, v.Z} }

func (v Vec4) Add(other Vec4) Vec4 {
	return Vec4{v.X + other.X, v.Y + other.Y, v.Z + other.Z, v.W + other.W}
}

func (v Vec4) MulScalar(scalar float32) Vec4 {
	return Vec4{v.X * scalar, v.Y * scalar, v.Z * scalar, v.W * scalar}
}

func (v Vec4) Dot(other Vec4) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z + v.W*other.W
}

func (v Vec4) Length() float32 {
	return ksqrt(v.Dot(v))
}

func (v Vec4) Normalized() Vec4 {
	length := v.Length()
	if length == 0 {
		return v
	}
	return Vec4{v.X / length, v.Y / length, v.Z / length, v.W / length}
}
