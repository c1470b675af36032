package assets

import (
	"bytes"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"testing"
)

// writeFlatHDR writes a minimal uncompressed Radiance file with every pixel
// set to the same RGBE quadruple.
func writeFlatHDR(t *testing.T, width, height int, rgbe [4]byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "-Y %d +X %d\n", height, width)
	for i := 0; i < width*height; i++ {
		buf.Write(rgbe[:])
	}
	path := filepath.Join(t.TempDir(), "test.hdr")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadHDRFlat(t *testing.T) {
	// e=128 scales the mantissa by 2^0/256, so a mantissa of 128 decodes
	// to 0.5.
	path := writeFlatHDR(t, 4, 2, [4]byte{128, 64, 32, 128})

	img, err := LoadHDR(path)
	if err != nil {
		t.Fatalf("LoadHDR: %v", err)
	}
	if img.Width != 4 || img.Height != 2 {
		t.Fatalf("size = %dx%d", img.Width, img.Height)
	}
	if !img.IsHDR() {
		t.Fatal("decoded image not flagged HDR")
	}
	if got := len(img.PixelsF); got != 4*2*4 {
		t.Fatalf("pixel floats = %d, want %d", got, 4*2*4)
	}

	want := [4]float32{0.5, 0.25, 0.125, 1}
	for i := 0; i < 4; i++ {
		if diff := gomath.Abs(float64(img.PixelsF[i] - want[i])); diff > 1e-6 {
			t.Fatalf("channel %d = %v, want %v", i, img.PixelsF[i], want[i])
		}
	}
}

func TestLoadHDRBlackPixels(t *testing.T) {
	// A zero exponent means black regardless of mantissa.
	path := writeFlatHDR(t, 2, 2, [4]byte{255, 255, 255, 0})
	img, err := LoadHDR(path)
	if err != nil {
		t.Fatalf("LoadHDR: %v", err)
	}
	for i := 0; i < 3; i++ {
		if img.PixelsF[i] != 0 {
			t.Fatalf("channel %d = %v, want 0", i, img.PixelsF[i])
		}
	}
	if img.PixelsF[3] != 1 {
		t.Fatalf("alpha = %v, want 1", img.PixelsF[3])
	}
}

func TestLoadHDRNewStyleRLE(t *testing.T) {
	const width, height = 4, 2
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n")
	fmt.Fprintf(&buf, "-Y %d +X %d\n", height, width)
	for y := 0; y < height; y++ {
		buf.Write([]byte{2, 2, 0, width})
		// Red: run of 4. Green: two literals then a run of 2.
		buf.Write([]byte{128 + 4, 128})
		buf.Write([]byte{2, 64, 64, 128 + 2, 64})
		// Blue: run of 4. Exponent: run of 4.
		buf.Write([]byte{128 + 4, 32})
		buf.Write([]byte{128 + 4, 128})
	}
	path := filepath.Join(t.TempDir(), "rle.hdr")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := LoadHDR(path)
	if err != nil {
		t.Fatalf("LoadHDR: %v", err)
	}
	want := [4]float32{0.5, 0.25, 0.125, 1}
	for p := 0; p < width*height; p++ {
		for c := 0; c < 4; c++ {
			got := img.PixelsF[p*4+c]
			if diff := gomath.Abs(float64(got - want[c])); diff > 1e-6 {
				t.Fatalf("pixel %d channel %d = %v, want %v", p, c, got, want[c])
			}
		}
	}
}

func TestLoadHDRRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong magic", "P6\n2 2\n255\n"},
		{"wrong format", "#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 2 +X 2\n"},
		{"missing format", "#?RADIANCE\n\n-Y 2 +X 2\n"},
		{"bad resolution", "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n+X 2 -Y 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.hdr")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadHDR(path); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestLoadHDRTruncatedPixels(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 4 +X 4\n")
	buf.Write([]byte{128, 128, 128, 128}) // one pixel of sixteen
	path := filepath.Join(t.TempDir(), "short.hdr")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHDR(path); err == nil {
		t.Fatal("truncated file must fail")
	}
}
