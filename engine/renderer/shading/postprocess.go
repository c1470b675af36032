package shading

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

// ToneMapOperator selects the composite stage's tone-mapping curve.
type ToneMapOperator int

const (
	ToneMapReinhard ToneMapOperator = iota
	ToneMapACES
	ToneMapUncharted2
)

func (t ToneMapOperator) String() string {
	switch t {
	case ToneMapReinhard:
		return "reinhard"
	case ToneMapACES:
		return "aces"
	case ToneMapUncharted2:
		return "uncharted2"
	}
	return "unknown"
}

// ParseToneMapOperator maps a config string to an operator, defaulting to ACES.
func ParseToneMapOperator(s string) ToneMapOperator {
	switch s {
	case "reinhard":
		return ToneMapReinhard
	case "uncharted2":
		return ToneMapUncharted2
	default:
		return ToneMapACES
	}
}

// Luminance is the Rec. 709 luma of a linear color.
func Luminance(c math.Vec3) float32 {
	return 0.2126*c.X + 0.7152*c.Y + 0.0722*c.Z
}

// BrightExtract implements the bloom threshold: colors at or below the
// threshold luminance contribute nothing; above it the full color passes.
func BrightExtract(c math.Vec3, threshold float32) math.Vec3 {
	if Luminance(c) > threshold {
		return c
	}
	return math.Vec3{}
}

// Reinhard is simple luminance-relative compression c/(1+c).
func Reinhard(c math.Vec3) math.Vec3 {
	return math.Vec3{
		X: c.X / (1.0 + c.X),
		Y: c.Y / (1.0 + c.Y),
		Z: c.Z / (1.0 + c.Z),
	}
}

// ACES is the Narkowicz fitted approximation of the ACES filmic curve.
func ACES(c math.Vec3) math.Vec3 {
	fit := func(x float32) float32 {
		const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
		return math.Clamp((x*(a*x+b))/(x*(cc*x+d)+e), 0.0, 1.0)
	}
	return math.Vec3{X: fit(c.X), Y: fit(c.Y), Z: fit(c.Z)}
}

// Uncharted2 is Hable's filmic operator with white point 11.2 and a 2.0
// exposure bias.
func Uncharted2(c math.Vec3) math.Vec3 {
	const w = 11.2
	whiteScale := 1.0 / uncharted2Partial(w)
	tone := func(x float32) float32 {
		return math.Clamp(uncharted2Partial(x*2.0)*whiteScale, 0.0, 1.0)
	}
	return math.Vec3{X: tone(c.X), Y: tone(c.Y), Z: tone(c.Z)}
}

func uncharted2Partial(x float32) float32 {
	const a, b, c, d, e, f = 0.15, 0.50, 0.10, 0.20, 0.02, 0.30
	return ((x*(a*x+c*b) + d*e) / (x*(a*x+b) + d*f)) - e/f
}

// ToneMap dispatches on the operator enum.
func ToneMap(c math.Vec3, op ToneMapOperator) math.Vec3 {
	switch op {
	case ToneMapReinhard:
		return Reinhard(c)
	case ToneMapUncharted2:
		return Uncharted2(c)
	default:
		return ACES(c)
	}
}

// ColorGrade applies brightness, contrast and saturation pivoting around
// mid-gray (0.5) as the composite shader does.
func ColorGrade(c math.Vec3, brightness, contrast, saturation float32) math.Vec3 {
	c = c.MulScalar(brightness)

	mid := math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	c = mid.Add(c.Sub(mid).MulScalar(contrast))

	luma := Luminance(c)
	gray := math.Vec3{X: luma, Y: luma, Z: luma}
	return gray.Lerp(c, saturation)
}

// Vignette returns the multiplicative darkening factor for a screen UV.
func Vignette(uv math.Vec2, intensity, radius, softness float32) float32 {
	centered := math.Vec2{X: uv.X - 0.5, Y: uv.Y - 0.5}
	dist := centered.Length()
	v := math.Smoothstep(radius, radius-softness, dist)
	return 1.0 - intensity*(1.0-v)
}

// ApplyGamma encodes a linear color for display.
func ApplyGamma(c math.Vec3, gamma float32) math.Vec3 {
	inv := 1.0 / gamma
	return math.Vec3{
		X: kpowf(math.Max(c.X, 0.0), inv),
		Y: kpowf(math.Max(c.Y, 0.0), inv),
		Z: kpowf(math.Max(c.Z, 0.0), inv),
	}
}

// CircleOfConfusion computes the [0,1] depth-of-field blur factor for a
// view-space depth against the focus plane.
func CircleOfConfusion(viewDepth, focusDistance, focusRange float32) float32 {
	return math.Clamp(kabsf(viewDepth-focusDistance)/focusRange, 0.0, 1.0)
}

// GaussianWeights5 are the classic 5-tap separable blur weights used by the
// bloom ping-pong passes.
var GaussianWeights5 = [5]float32{0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216}

// ClampVelocity limits a screen-space motion vector to maxMagnitude.
func ClampVelocity(v math.Vec2, maxMagnitude float32) math.Vec2 {
	length := v.Length()
	if length > maxMagnitude && length > 0 {
		return v.MulScalar(maxMagnitude / length)
	}
	return v
}

func kpowf(x, y float32) float32 {
	return float32(gomath.Pow(float64(x), float64(y)))
}

func kabsf(x float32) float32 {
	return float32(gomath.Abs(float64(x)))
}
