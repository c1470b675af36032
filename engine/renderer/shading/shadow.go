package shading

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

// DefaultCascadeCount is the cascade count used when the config does not
// override it.
const DefaultCascadeCount = 4

// DefaultPSSMLambda blends logarithmic and uniform splits; 1 is fully
// logarithmic.
const DefaultPSSMLambda = 0.75

// ComputeCascadeSplits returns numCascades+1 view-space distances using the
// practical split scheme: a lambda blend of logarithmic and linear splits.
// splits[0] == near, splits[numCascades] == far, strictly increasing.
func ComputeCascadeSplits(near, far float32, numCascades int, lambda float32) []float32 {
	splits := make([]float32, 0, numCascades+1)
	splits = append(splits, near)
	for i := 1; i <= numCascades; i++ {
		p := float32(i) / float32(numCascades)
		cLog := near * kpowf(far/near, p)
		cLinear := near + (far-near)*p
		splits = append(splits, lambda*cLog+(1.0-lambda)*cLinear)
	}
	return splits
}

// SelectCascade returns the index of the cascade whose split range contains
// the view-space depth, falling back to the last cascade beyond the far split.
func SelectCascade(viewDepth float32, splits []float32) int {
	numCascades := len(splits) - 1
	for i := 0; i < numCascades; i++ {
		if viewDepth < splits[i+1] {
			return i
		}
	}
	return numCascades - 1
}

// ShadowBias is the slope-scaled depth bias, attenuated for the farther
// (larger texel footprint) cascades.
func ShadowBias(nDotL float32, cascadeIndex int) float32 {
	bias := math.Max(0.005*(1.0-nDotL), 0.001)
	return bias / float32(cascadeIndex+1)
}

// PCFKernelOffsets3x3 returns the 9 texel offsets of the 3x3
// percentage-closer filter, in texel units.
func PCFKernelOffsets3x3() [9][2]float32 {
	var offsets [9][2]float32
	i := 0
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			offsets[i] = [2]float32{float32(x), float32(y)}
			i++
		}
	}
	return offsets
}

// ViewSpaceDepth returns the positive view-space distance of a world point,
// the value compared against cascade splits.
func ViewSpaceDepth(view math.Mat4, worldPos math.Vec3) float32 {
	v := view.MulVec4(worldPos.ToVec4(1.0))
	return float32(gomath.Abs(float64(v.Z)))
}
