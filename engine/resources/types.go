package resources

import "github.com/spaghettifunk/lumen/engine/math"

/**
 * @brief A structure to hold decoded image data. Loaders resolve files into
 * this before any GPU upload happens; the renderer never touches disk.
 */
type ImageData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief 8-bit pixel data for LDR images. Nil for HDR images. */
	Pixels []uint8
	/** @brief Linear float pixel data for HDR images (RGBA, alpha forced to 1). Nil for LDR. */
	PixelsF []float32
}

// IsHDR reports whether the image carries float pixel data.
func (i *ImageData) IsHDR() bool {
	return len(i.PixelsF) > 0
}

/**
 * @brief CPU-side mesh data ready for upload: interleaved vertices plus a
 * 32-bit index list.
 */
type MeshData struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
	Extents  math.Extents3D
}

// BoundingSphere returns the center and radius of the mesh bounds, used for
// frustum culling.
func (m *MeshData) BoundingSphere() (math.Vec3, float32) {
	center := m.Extents.Min.Add(m.Extents.Max).MulScalar(0.5)
	radius := m.Extents.Max.Sub(center).Length()
	return center, radius
}

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
)
