package shading

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

// EncodeNormal packs a unit world-space normal into the [0,1] range stored in
// the G-Buffer's normal attachment.
func EncodeNormal(n math.Vec3) math.Vec3 {
	return math.Vec3{
		X: n.X*0.5 + 0.5,
		Y: n.Y*0.5 + 0.5,
		Z: n.Z*0.5 + 0.5,
	}
}

// DecodeNormal is the lighting-pass inverse of EncodeNormal. The result is
// renormalized to absorb float16 storage error.
func DecodeNormal(packed math.Vec3) math.Vec3 {
	return math.Vec3{
		X: packed.X*2.0 - 1.0,
		Y: packed.Y*2.0 - 1.0,
		Z: packed.Z*2.0 - 1.0,
	}.Normalized()
}

// Float16Quantize rounds a float32 through IEEE half precision, matching what
// an RGBA16F attachment stores. Used to verify G-Buffer round-trip bounds.
func Float16Quantize(f float32) float32 {
	return halfToFloat(floatToHalf(f))
}

// QuantizeVec3F16 applies Float16Quantize componentwise.
func QuantizeVec3F16(v math.Vec3) math.Vec3 {
	return math.Vec3{
		X: Float16Quantize(v.X),
		Y: Float16Quantize(v.Y),
		Z: Float16Quantize(v.Z),
	}
}

// QuantizeUnorm8 rounds through 8-bit unsigned normalized storage (RGBA8),
// the format of the clearcoat/subsurface attachment.
func QuantizeUnorm8(f float32) float32 {
	u := uint8(math.Clamp(f, 0.0, 1.0)*255.0 + 0.5)
	return float32(u) / 255.0
}

// ReconstructWorldPosition unprojects a depth-buffer sample back to world
// space using the inverse view-projection matrix. uv and depth are in [0,1].
func ReconstructWorldPosition(uv math.Vec2, depth float32, invViewProjection math.Mat4) math.Vec3 {
	ndc := math.Vec4{
		X: uv.X*2.0 - 1.0,
		Y: uv.Y*2.0 - 1.0,
		Z: depth*2.0 - 1.0,
		W: 1.0,
	}
	world := invViewProjection.MulVec4(ndc)
	if world.W != 0 {
		return math.Vec3{X: world.X / world.W, Y: world.Y / world.W, Z: world.Z / world.W}
	}
	return world.ToVec3()
}

// LinearizeDepth converts a [0,1] depth-buffer value of a standard
// perspective projection to view-space distance.
func LinearizeDepth(depth, near, far float32) float32 {
	z := depth*2.0 - 1.0
	return (2.0 * near * far) / (far + near - z*(far-near))
}

// BayerThreshold returns the 4x4 ordered-dither threshold in [0,1) for a
// pixel coordinate. LOD-dithered fragments discard when lodAlpha is below it.
func BayerThreshold(x, y int) float32 {
	var bayer4 = [4][4]float32{
		{0, 8, 2, 10},
		{12, 4, 14, 6},
		{3, 11, 1, 9},
		{15, 7, 13, 5},
	}
	return bayer4[y&3][x&3] / 16.0
}

func floatToHalf(f float32) uint16 {
	bits := gomath.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	if exp <= 0 {
		// Denormal or zero.
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		return sign | uint16(mant>>shift)
	}
	if exp >= 0x1f {
		// Overflow to inf.
		return sign | 0x7c00
	}
	return sign | uint16(exp<<10) | uint16(mant>>13)
}

func halfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		if mant == 0 {
			return gomath.Float32frombits(sign)
		}
		// Denormal: renormalize.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
		return gomath.Float32frombits(sign | (exp-15+127)<<23 | mant<<13)
	case exp == 0x1f:
		return gomath.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return gomath.Float32frombits(sign | (exp-15+127)<<23 | mant<<13)
	}
}
