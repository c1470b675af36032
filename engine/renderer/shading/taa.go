package shading

import "github.com/spaghettifunk/lumen/engine/math"

// DefaultTAAFeedback is the history blend weight: out = mix(current, history, feedback).
const DefaultTAAFeedback = 0.9

// RGBToYCoCg converts linear RGB to the YCoCg space used for neighborhood
// clamping; the luma/chroma separation gives tighter perceptual bounds.
func RGBToYCoCg(c math.Vec3) math.Vec3 {
	return math.Vec3{
		X: 0.25*c.X + 0.5*c.Y + 0.25*c.Z,
		Y: 0.5*c.X - 0.5*c.Z,
		Z: -0.25*c.X + 0.5*c.Y - 0.25*c.Z,
	}
}

// YCoCgToRGB inverts RGBToYCoCg.
func YCoCgToRGB(c math.Vec3) math.Vec3 {
	return math.Vec3{
		X: c.X + c.Y - c.Z,
		Y: c.X + c.Z,
		Z: c.X - c.Y - c.Z,
	}
}

// ClampToNeighborhood clamps a history color (in YCoCg) to the axis-aligned
// bounding box of the 3x3 current-frame neighborhood, suppressing ghosting.
func ClampToNeighborhood(history math.Vec3, neighborhood []math.Vec3) math.Vec3 {
	if len(neighborhood) == 0 {
		return history
	}
	lo := neighborhood[0]
	hi := neighborhood[0]
	for _, c := range neighborhood[1:] {
		lo.X = math.Min(lo.X, c.X)
		lo.Y = math.Min(lo.Y, c.Y)
		lo.Z = math.Min(lo.Z, c.Z)
		hi.X = math.Max(hi.X, c.X)
		hi.Y = math.Max(hi.Y, c.Y)
		hi.Z = math.Max(hi.Z, c.Z)
	}
	return math.Vec3{
		X: math.Clamp(history.X, lo.X, hi.X),
		Y: math.Clamp(history.Y, lo.Y, hi.Y),
		Z: math.Clamp(history.Z, lo.Z, hi.Z),
	}
}

// ResolveTAA blends the clamped history with the current sample.
func ResolveTAA(current, history math.Vec3, neighborhood []math.Vec3, feedback float32) math.Vec3 {
	historyY := RGBToYCoCg(history)
	box := make([]math.Vec3, len(neighborhood))
	for i, c := range neighborhood {
		box[i] = RGBToYCoCg(c)
	}
	clamped := YCoCgToRGB(ClampToNeighborhood(historyY, box))
	return current.Lerp(clamped, feedback)
}
