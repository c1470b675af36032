// Package mslsrc embeds the Metal Shading Language sources for every
// pipeline pass. They mirror the GLSL sources in shadersrc pass for pass:
// the same uniform block layouts, texture slots and math, so the three
// backends stay in lockstep with the CPU reference in renderer/shading.
//
// The Metal backend binds uniform slot n at buffer index n+1; buffer 0
// carries vertex geometry. Texture slot numbers match the renderer package's
// TexSlot* constants directly. Every translation unit exports the entry
// points vertexMain and fragmentMain (depth-only passes omit the latter).
package mslsrc

import (
	"fmt"
	"strings"
)

// Prelude opens every composed translation unit.
const Prelude = `
#include <metal_stdlib>
using namespace metal;

constexpr sampler linearSampler(address::clamp_to_edge, filter::linear, mip_filter::linear);
constexpr sampler repeatSampler(address::repeat, filter::linear, mip_filter::linear);
`

// Compose assembles a compilable translation unit from a source body and its
// variant defines.
func Compose(source string, defines []string) string {
	var b strings.Builder
	for _, d := range defines {
		fmt.Fprintf(&b, "#define %s 1\n", d)
	}
	b.WriteString(Prelude)
	b.WriteString(source)
	return b.String()
}

// Source returns the MSL body for a pipeline shader name. G-Buffer variants
// share one source; the feature set arrives as preprocessor defines.
func Source(name string) (string, bool) {
	if strings.HasPrefix(name, "gbuffer.") {
		return GBuffer, true
	}
	src, ok := sources[name]
	return src, ok
}

var sources = map[string]string{
	"deferred.lighting": DeferredLighting,
	"skybox":            Skybox,
	"shadow.depth":      ShadowDepth,
	"ssao":              SSAO,
	"ssao.blur":         SSAOBlur,
	"ssr":               SSR,
	"taa":               TAA,
	"bloom.extract":     BloomExtract,
	"bloom.blur":        BloomBlur,
	"dof.blur":          DOFBlur,
	"dof.composite":     DOFComposite,
	"motionblur":        MotionBlur,
	"composite":         Composite,
	"fxaa":              FXAA,
	"ibl.equirect":      EquirectToCube,
	"ibl.irradiance":    Irradiance,
	"ibl.prefilter":     Prefilter,
	"ibl.brdflut":       BRDFLUT,
}

// perFrameStruct mirrors renderer.PerFrameUBO (uniform slot 0, buffer 1).
const perFrameStruct = `
struct PerFrame {
    float4x4 view;
    float4x4 projection;
    float4x4 viewProjection;
    float4x4 invViewProjection;
    float4x4 prevViewProjection;
    float4 cameraPosition;
    float4 nearFarTime;  // near, far, elapsed, delta
    float4 screenSize;   // w, h, 1/w, 1/h
};
`

// postParamsStruct is the generic slot-4 parameter block (buffer 5) of the
// post-processing passes.
const postParamsStruct = `
struct PostParams {
    float4 params0;
    float4 params1;
    float4 params2;
    float4 params3;
};
`

// meshVertexIn matches the interleaved vertex layout in resources.MeshData.
const meshVertexIn = `
struct VertexIn {
    float3 position [[attribute(0)]];
    float3 normal   [[attribute(1)]];
    float2 texcoord [[attribute(2)]];
    float3 tangent  [[attribute(3)]];
};
`

// fullscreenVert generates a fullscreen triangle from the vertex index
// alone; no vertex buffer is bound.
const fullscreenVert = `
struct FSOut {
    float4 position [[position]];
    float2 uv;
};

vertex FSOut vertexMain(uint vid [[vertex_id]]) {
    float2 uv = float2((vid << 1) & 2, vid & 2);
    FSOut out;
    out.uv = uv;
    out.position = float4(uv * 2.0 - 1.0, 0.0, 1.0);
    return out;
}
`

// reconstructBlock rebuilds world-space position from depth, shared by the
// lighting and screen-space passes.
const reconstructBlock = `
static float3 reconstructWorldPos(float2 uv, float depth, constant PerFrame& frame) {
    float4 ndc = float4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    float4 world = frame.invViewProjection * ndc;
    return world.xyz / world.w;
}
`

// iblPassStruct is the uniform slot the cube precompute passes share
// (slot 4, buffer 5).
const iblPassStruct = `
struct IBLPass {
    float4x4 faceViewProjection;
    float4 iblParams; // x: roughness, y: sampleCount, z: irradianceStep
};
`

// cubeVert rasterizes the unit cube for the cubemap precompute passes; the
// local position doubles as the sampling direction.
const cubeVert = meshVertexIn + `
struct CubeOut {
    float4 position [[position]];
    float3 direction;
};

vertex CubeOut vertexMain(VertexIn in [[stage_in]],
                          constant IBLPass& pass [[buffer(5)]]) {
    CubeOut out;
    out.direction = in.position;
    out.position = pass.faceViewProjection * float4(in.position, 1.0);
    return out;
}
`
