// Package shadersrc embeds the GLSL sources for every pipeline pass. The
// sources are written once against GLSL 4.50 and composed per backend: the
// OpenGL backend compiles them at runtime, the Vulkan build compiles them
// ahead of time with glslc -DVULKAN (see the Shaders mage target).
//
// Binding slot numbers in the sources must match the renderer package's
// UniformSlot* and TexSlot* constants; the UBO struct layouts must match the
// std140 Go structs in renderer/uniforms.go field for field.
package shadersrc

import (
	"fmt"
	"strings"
)

// Prelude is prepended to every composed source. It papers over the GL/Vulkan
// GLSL dialect differences: descriptor sets and the vertex index builtin.
const Prelude = `
#if defined(VULKAN)
#define UBO_BINDING(n) layout(std140, set = 0, binding = n)
#define TEX_BINDING(n) layout(set = 1, binding = n)
#define VERTEX_INDEX gl_VertexIndex
#else
#define UBO_BINDING(n) layout(std140, binding = n)
#define TEX_BINDING(n) layout(binding = n)
#define VERTEX_INDEX gl_VertexID
#endif
`

// Compose assembles a compilable translation unit from a source body, its
// variant defines and the target dialect.
func Compose(source string, defines []string, vulkan bool) string {
	var b strings.Builder
	b.WriteString("#version 450\n")
	if vulkan {
		b.WriteString("#define VULKAN 1\n")
	}
	for _, d := range defines {
		fmt.Fprintf(&b, "#define %s 1\n", d)
	}
	b.WriteString(Prelude)
	b.WriteString(source)
	return b.String()
}

// FullscreenVert generates a fullscreen triangle from the vertex index alone;
// no vertex buffer is bound.
const FullscreenVert = `
layout(location = 0) out vec2 vUV;

void main() {
    vec2 uv = vec2((VERTEX_INDEX << 1) & 2, VERTEX_INDEX & 2);
    vUV = uv;
    gl_Position = vec4(uv * 2.0 - 1.0, 0.0, 1.0);
}
`

// CubeVert rasterizes the unit cube for the cubemap precompute passes; the
// local position doubles as the sampling direction.
const CubeVert = `
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexcoord;
layout(location = 3) in vec3 aTangent;

UBO_BINDING(4) uniform IBLPass {
    mat4 uFaceViewProjection;
    vec4 uIBLParams; // x: roughness, y: sampleCount, z: irradianceStep
};

layout(location = 0) out vec3 vDirection;

void main() {
    vDirection = aPosition;
    gl_Position = uFaceViewProjection * vec4(aPosition, 1.0);
}
`

// PerFrameBlock is the shared declaration of uniform slot 0, spliced into
// every source that needs camera state.
const PerFrameBlock = `
UBO_BINDING(0) uniform PerFrame {
    mat4 uView;
    mat4 uProjection;
    mat4 uViewProjection;
    mat4 uInvViewProjection;
    mat4 uPrevViewProjection;
    vec4 uCameraPosition;
    vec4 uNearFarTime;  // near, far, elapsed, delta
    vec4 uScreenSize;   // w, h, 1/w, 1/h
};
`

// ReconstructBlock rebuilds world-space position from depth, shared by the
// lighting and screen-space passes. Requires PerFrameBlock.
const ReconstructBlock = `
vec3 reconstructWorldPos(vec2 uv, float depth) {
    vec4 ndc = vec4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    vec4 world = uInvViewProjection * ndc;
    return world.xyz / world.w;
}
`
