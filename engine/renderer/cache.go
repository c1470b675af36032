package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// MeshCache lazily uploads entity geometry and keeps it resident until the
// entity's mesh is explicitly evicted or the cache is destroyed. Mutated only
// from the render thread.
type MeshCache struct {
	backend Backend
	meshes  map[scene.Entity]Mesh
}

func NewMeshCache(backend Backend) *MeshCache {
	return &MeshCache{
		backend: backend,
		meshes:  make(map[scene.Entity]Mesh),
	}
}

// Get returns the GPU mesh for an entity, uploading it on first use.
func (mc *MeshCache) Get(e scene.Entity, data *resources.MeshData) (Mesh, error) {
	if m, ok := mc.meshes[e]; ok {
		return m, nil
	}
	m, err := mc.backend.CreateMesh(data)
	if err != nil {
		return nil, fmt.Errorf("mesh upload for entity %d: %w", e, err)
	}
	mc.meshes[e] = m
	return m, nil
}

// Evict destroys the GPU mesh of an entity, if resident.
func (mc *MeshCache) Evict(e scene.Entity) {
	if m, ok := mc.meshes[e]; ok {
		m.Destroy()
		delete(mc.meshes, e)
	}
}

func (mc *MeshCache) Len() int { return len(mc.meshes) }

func (mc *MeshCache) Destroy() {
	for _, m := range mc.meshes {
		m.Destroy()
	}
	mc.meshes = make(map[scene.Entity]Mesh)
}

// TextureLoader resolves a path to decoded pixels. The asset layer provides
// the real implementation; tests substitute fakes.
type TextureLoader func(path string) (*resources.ImageData, error)

// TextureCache is keyed by file path. Failed loads are cached as the default
// texture so a missing file warns once, not every frame.
type TextureCache struct {
	backend Backend
	loader  TextureLoader

	textures map[string]Texture
	fallback Texture
}

func NewTextureCache(backend Backend, loader TextureLoader) (*TextureCache, error) {
	tc := &TextureCache{
		backend:  backend,
		loader:   loader,
		textures: make(map[string]Texture),
	}

	// 4x4 magenta/black checker, the classic "texture missing" pattern.
	pixels := make([]uint8, 4*4*4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := (y*4 + x) * 4
			if (x+y)%2 == 0 {
				pixels[i+0] = 255
				pixels[i+2] = 255
			}
			pixels[i+3] = 255
		}
	}
	fallback, err := backend.CreateTexture(TextureDesc{
		Name:   "texture.fallback",
		Type:   TextureType2D,
		Format: FormatRGBA8,
		Width:  4, Height: 4,
		Filter: FilterNearest,
		Wrap:   WrapRepeat,
		Pixels: pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback texture: %w", err)
	}
	tc.fallback = fallback
	return tc, nil
}

// Get returns the GPU texture for a path, loading and uploading on first use.
func (tc *TextureCache) Get(path string) Texture {
	if t, ok := tc.textures[path]; ok {
		return t
	}

	img, err := tc.loader(path)
	if err != nil {
		core.LogWarn("texture '%s' failed to load, using fallback: %s", path, err)
		tc.textures[path] = tc.fallback
		return tc.fallback
	}

	desc := TextureDesc{
		Name:      path,
		Type:      TextureType2D,
		Width:     img.Width,
		Height:    img.Height,
		MipLevels: fullMipChain(img.Width, img.Height),
		Filter:    FilterTrilinear,
		Wrap:      WrapRepeat,
	}
	if img.IsHDR() {
		desc.Format = FormatRGBA16F
		desc.PixelsF = img.PixelsF
	} else {
		desc.Format = FormatSRGBA8
		desc.Pixels = img.Pixels
	}

	t, err := tc.backend.CreateTexture(desc)
	if err != nil {
		core.LogWarn("texture '%s' failed to upload, using fallback: %s", path, err)
		tc.textures[path] = tc.fallback
		return tc.fallback
	}
	if desc.MipLevels > 1 {
		if err := tc.backend.GenerateMipmaps(t); err != nil {
			core.LogWarn("texture '%s': mipmap generation failed: %s", path, err)
		}
	}
	tc.textures[path] = t
	return t
}

// Evict destroys the texture cached under path, if any.
func (tc *TextureCache) Evict(path string) {
	if t, ok := tc.textures[path]; ok {
		if t != tc.fallback {
			t.Destroy()
		}
		delete(tc.textures, path)
	}
}

func (tc *TextureCache) Len() int { return len(tc.textures) }

func (tc *TextureCache) Destroy() {
	for _, t := range tc.textures {
		if t != tc.fallback {
			t.Destroy()
		}
	}
	tc.textures = make(map[string]Texture)
	if tc.fallback != nil {
		tc.fallback.Destroy()
		tc.fallback = nil
	}
}

func fullMipChain(w, h uint32) uint32 {
	levels := uint32(1)
	for w > 1 || h > 1 {
		w = maxU32(w/2, 1)
		h = maxU32(h/2, 1)
		levels++
	}
	return levels
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
