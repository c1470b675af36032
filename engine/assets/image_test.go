package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, dir, name string, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadImagePNG(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, dir, "red.png", color.NRGBA{R: 200, G: 10, B: 30, A: 255})

	m := NewManager(dir)
	img, err := m.LoadImage("red.png")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("size = %dx%d", img.Width, img.Height)
	}
	if img.ChannelCount != 4 {
		t.Fatalf("channels = %d", img.ChannelCount)
	}
	if img.IsHDR() {
		t.Fatal("PNG flagged as HDR")
	}
	if got := len(img.Pixels); got != 2*2*4 {
		t.Fatalf("pixel bytes = %d", got)
	}
	if img.Pixels[0] != 200 || img.Pixels[1] != 10 || img.Pixels[2] != 30 || img.Pixels[3] != 255 {
		t.Fatalf("first pixel = %v", img.Pixels[:4])
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.LoadImage("nope.png"); err == nil {
		t.Fatal("missing file must fail")
	}
}

func TestResolve(t *testing.T) {
	m := NewManager("/assets")
	if got := m.Resolve("textures/a.png"); got != filepath.Join("/assets", "textures/a.png") {
		t.Fatalf("relative resolve = %q", got)
	}
	abs := filepath.Join(string(filepath.Separator), "tmp", "b.png")
	if got := m.Resolve(abs); got != abs {
		t.Fatalf("absolute resolve = %q", got)
	}
}

func TestTextureLoaderRoutesHDR(t *testing.T) {
	dir := t.TempDir()
	path := writeFlatHDR(t, 2, 2, [4]byte{128, 128, 128, 128})
	// writeFlatHDR puts the file in its own temp dir; use its absolute path.
	m := NewManager(dir)
	img, err := m.TextureLoader()(path)
	if err != nil {
		t.Fatalf("TextureLoader: %v", err)
	}
	if !img.IsHDR() {
		t.Fatal("HDR file not routed to the Radiance decoder")
	}
}
