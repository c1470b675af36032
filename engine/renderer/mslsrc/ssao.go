package mslsrc

// SSAO estimates ambient occlusion by sampling a normal-oriented hemisphere
// kernel against the depth buffer in view space.
const SSAO = perFrameStruct + fullscreenVert + `
#define KERNEL_SIZE 32

struct SSAOParams {
    float4 kernel[KERNEL_SIZE];
    float4 params; // radius, bias, power, noiseSize
};

static float3 viewPosFromDepth(float2 uv, float depth, constant PerFrame& frame) {
    float4 ndc = float4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    // The projection inverse arrives premultiplied into invViewProjection,
    // so rebuild view space through world space.
    float4 world = frame.invViewProjection * ndc;
    float4 view = frame.view * float4(world.xyz / world.w, 1.0);
    return view.xyz;
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant SSAOParams& ssao [[buffer(5)]],
                             texture2d<float> tNormalRoughness [[texture(1)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tNoise [[texture(13)]]) {
    float2 uv = in.uv;
    float depth = tDepth.sample(linearSampler, uv).r;
    if (depth >= 1.0) {
        return float4(1.0);
    }

    float3 viewPos = viewPosFromDepth(uv, depth, frame);
    float3 worldNormal = normalize(tNormalRoughness.sample(linearSampler, uv).xyz * 2.0 - 1.0);
    float3x3 view3 = float3x3(frame.view[0].xyz, frame.view[1].xyz, frame.view[2].xyz);
    float3 N = normalize(view3 * worldNormal);

    float2 noiseScale = frame.screenSize.xy / ssao.params.w;
    float3 randomVec = normalize(float3(tNoise.sample(repeatSampler, uv * noiseScale).xy, 0.0) + float3(1e-4));

    float3 T = normalize(randomVec - N * dot(randomVec, N));
    float3 B = cross(N, T);
    float3x3 TBN = float3x3(T, B, N);

    float radius = ssao.params.x;
    float bias = ssao.params.y;

    float occlusion = 0.0;
    for (int i = 0; i < KERNEL_SIZE; i++) {
        float3 samplePos = viewPos + TBN * ssao.kernel[i].xyz * radius;

        float4 offset = frame.projection * float4(samplePos, 1.0);
        float3 proj = offset.xyz / offset.w;
        float2 sampleUV = proj.xy * 0.5 + 0.5;
        if (sampleUV.x < 0.0 || sampleUV.x > 1.0 || sampleUV.y < 0.0 || sampleUV.y > 1.0) {
            continue;
        }

        float sampleDepth = viewPosFromDepth(sampleUV, tDepth.sample(linearSampler, sampleUV).r, frame).z;
        float rangeCheck = smoothstep(0.0, 1.0, radius / max(abs(viewPos.z - sampleDepth), 1e-4));
        occlusion += (sampleDepth >= samplePos.z + bias ? 1.0 : 0.0) * rangeCheck;
    }
    occlusion = 1.0 - occlusion / float(KERNEL_SIZE);
    return float4(pow(occlusion, ssao.params.z));
}
`

// SSAOBlur is a 4x4 box blur wide enough to erase the rotation noise tile.
const SSAOBlur = fullscreenVert + postParamsStruct + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tOcclusion [[texture(13)]]) {
    float2 texel = params.params0.xy;
    float sum = 0.0;
    for (int x = -2; x < 2; x++) {
        for (int y = -2; y < 2; y++) {
            sum += tOcclusion.sample(linearSampler, in.uv + float2(x, y) * texel).r;
        }
    }
    return float4(sum / 16.0);
}
`
