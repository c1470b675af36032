// Package assets resolves files on disk into CPU-side resource data: decoded
// images, HDR environment maps and shader sources, with optional hot reload.
package assets

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	// Register the decoders the loader supports.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// Manager resolves asset paths relative to a root directory.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

func (m *Manager) Root() string { return m.root }

// Resolve joins a relative asset path with the root. Absolute paths pass
// through untouched.
func (m *Manager) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.root, path)
}

// LoadImage decodes the file at path into ImageData. Radiance .hdr files
// produce linear float pixels, everything else 8-bit sRGB.
func (m *Manager) LoadImage(path string) (*resources.ImageData, error) {
	full := m.Resolve(path)
	if strings.EqualFold(filepath.Ext(full), ".hdr") {
		return LoadHDR(full)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", full, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", full, err)
	}
	core.LogDebug("Loaded %s image %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())

	rgba, ok := img.(*image.RGBA)
	if !ok {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &resources.ImageData{
		ChannelCount: 4,
		Width:        uint32(rgba.Bounds().Dx()),
		Height:       uint32(rgba.Bounds().Dy()),
		Pixels:       rgba.Pix,
	}, nil
}

// TextureLoader adapts the manager to the renderer's loader contract.
func (m *Manager) TextureLoader() func(path string) (*resources.ImageData, error) {
	return m.LoadImage
}
