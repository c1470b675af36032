package shadersrc

// SkyboxFrag paints the environment cubemap wherever the depth buffer is
// still at the far plane, leaving shaded geometry untouched.
const SkyboxFrag = PerFrameBlock + `
UBO_BINDING(4) uniform SkyParams {
    vec4 uParams0; // x: intensity
    vec4 uParams1;
    vec4 uParams2;
    vec4 uParams3;
};

TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform samplerCube tEnvmap;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + ReconstructBlock + `

void main() {
    float depth = texture(tDepth, vUV).r;
    if (depth < 1.0) {
        discard;
    }
    vec3 dir = normalize(reconstructWorldPos(vUV, 1.0) - uCameraPosition.xyz);
    oColor = vec4(texture(tEnvmap, dir).rgb * uParams0.x, 1.0);
}
`
