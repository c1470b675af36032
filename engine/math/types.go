package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/** @brief A 4x4 column-major matrix, typically used to represent object transformations. */
type Mat4 struct {
	Data [16]float32
}

/**
 * @brief Represents a single vertex in 3D space. This is the layout every
 * backend's vertex input expects: position, normal, texcoord, tangent.
 */
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
	Texcoord Vec2
	Tangent  Vec3
}

/** @brief Represents the extents of a 3d object. */
type Extents3D struct {
	Min Vec3
	Max Vec3
}
