package vulkan

import (
	gomath "math"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer"
)

// unpackHalf is the inverse of packHalf, for round-trip checks.
func unpackHalf(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mantissa := uint32(h & 0x3ff)

	switch {
	case exp == 0 && mantissa == 0:
		return gomath.Float32frombits(sign)
	case exp == 0:
		// Subnormal half.
		f := float32(mantissa) / 1024.0 * float32(gomath.Pow(2, -14))
		if sign != 0 {
			return -f
		}
		return f
	case exp == 31:
		return gomath.Float32frombits(sign | 0x7f800000)
	}
	return gomath.Float32frombits(sign | (exp-15+127)<<23 | mantissa<<13)
}

func TestPackHalfExactValues(t *testing.T) {
	cases := []struct {
		in   float32
		want uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{-1, 0xbc00},
		{0.5, 0x3800},
		{2, 0x4000},
		{65504, 0x7bff}, // largest finite half
	}
	for _, tc := range cases {
		if got := packHalf(tc.in); got != tc.want {
			t.Errorf("packHalf(%v) = %#04x, want %#04x", tc.in, got, tc.want)
		}
	}
}

func TestPackHalfOverflowAndUnderflow(t *testing.T) {
	if got := packHalf(1e6); got != 0x7c00 {
		t.Errorf("packHalf(1e6) = %#04x, want +inf", got)
	}
	if got := packHalf(-1e6); got != 0xfc00 {
		t.Errorf("packHalf(-1e6) = %#04x, want -inf", got)
	}
	// Below the smallest subnormal the value collapses to signed zero.
	if got := packHalf(1e-10); got != 0x0000 {
		t.Errorf("packHalf(1e-10) = %#04x, want +0", got)
	}
	if got := packHalf(-1e-10); got != 0x8000 {
		t.Errorf("packHalf(-1e-10) = %#04x, want -0", got)
	}
}

func TestPackHalfRoundTripAccuracy(t *testing.T) {
	// Half precision keeps ~3 decimal digits; verify relative error across
	// the range HDR pixel data lives in.
	values := []float32{0.001, 0.125, 0.3333, 0.9, 1.7, 42.5, 1000, 60000}
	for _, v := range values {
		back := unpackHalf(packHalf(v))
		relErr := gomath.Abs(float64(back-v)) / float64(v)
		if relErr > 1.0/1024.0 {
			t.Errorf("packHalf(%v) round trip %v, relative error %g", v, back, relErr)
		}
	}
}

func TestPackHalfPixelsLittleEndian(t *testing.T) {
	out := packHalfPixels([]float32{1, 0.5})
	want := []byte{0x00, 0x3c, 0x00, 0x38}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d = %#02x, want %#02x", i, out[i], want[i])
		}
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, alignment, want vk.DeviceSize
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{100, 64, 128},
	}
	for _, tc := range cases {
		if got := alignUp(tc.v, tc.alignment); got != tc.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tc.v, tc.alignment, got, tc.want)
		}
	}
}

func TestMapFormat(t *testing.T) {
	cases := []struct {
		in   renderer.TextureFormat
		want vk.Format
	}{
		{renderer.FormatRGBA8, vk.FormatR8g8b8a8Unorm},
		{renderer.FormatSRGBA8, vk.FormatR8g8b8a8Srgb},
		{renderer.FormatRGBA16F, vk.FormatR16g16b16a16Sfloat},
		{renderer.FormatRG16F, vk.FormatR16g16Sfloat},
		{renderer.FormatR8, vk.FormatR8Unorm},
		{renderer.FormatDepth32F, vk.FormatD32Sfloat},
	}
	for _, tc := range cases {
		got, err := mapFormat(tc.in)
		if err != nil {
			t.Fatalf("mapFormat(%d): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("mapFormat(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if _, err := mapFormat(renderer.TextureFormat(99)); err == nil {
		t.Fatal("unknown format accepted")
	}
}
