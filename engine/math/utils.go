package math

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/rand"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Lerp linearly interpolates between a and b by t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Smoothstep is the classic Hermite interpolation of t between edge0 and edge1.
func Smoothstep(edge0, edge1, t float32) float32 {
	x := Clamp((t-edge0)/(edge1-edge0), 0.0, 1.0)
	return x * x * (3.0 - 2.0*x)
}

func DegToRad(degrees float32) float32 {
	return degrees * (Pi / 180.0)
}

func RadToDeg(radians float32) float32 {
	return radians * (180.0 / Pi)
}

// RandomFloat returns a pseudo-random float32 in [0, 1).
func RandomFloat() float32 {
	return rand.Float32()
}

// RandomFloatRange returns a pseudo-random float32 in [min, max).
func RandomFloatRange(min, max float32) float32 {
	return min + rand.Float32()*(max-min)
}
