package mslsrc

// Skybox paints the environment cubemap wherever the depth buffer is still
// at the far plane, leaving shaded geometry untouched.
const Skybox = perFrameStruct + fullscreenVert + postParamsStruct + reconstructBlock + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texturecube<float> tEnvmap [[texture(13)]]) {
    float depth = tDepth.sample(linearSampler, in.uv).r;
    if (depth < 1.0) {
        discard_fragment();
    }
    float3 dir = normalize(reconstructWorldPos(in.uv, 1.0, frame) - frame.cameraPosition.xyz);
    return float4(tEnvmap.sample(linearSampler, dir).rgb * params.params0.x, 1.0);
}
`

// ShadowDepth is the depth-only cascade pass. The light-space transform
// already includes the model matrix, so no fragment function is bound.
const ShadowDepth = meshVertexIn + `
struct ShadowPass {
    float4x4 lightSpaceModel;
};

struct ShadowOut {
    float4 position [[position]];
};

vertex ShadowOut vertexMain(VertexIn in [[stage_in]],
                            constant ShadowPass& pass [[buffer(5)]]) {
    ShadowOut out;
    out.position = pass.lightSpaceModel * float4(in.position, 1.0);
    return out;
}
`
