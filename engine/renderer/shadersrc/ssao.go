package shadersrc

// SSAOFrag estimates ambient occlusion by sampling a normal-oriented
// hemisphere kernel against the depth buffer in view space.
const SSAOFrag = PerFrameBlock + `
#define KERNEL_SIZE 32

UBO_BINDING(4) uniform SSAOParams {
    vec4 uKernel[KERNEL_SIZE];
    vec4 uParams; // radius, bias, power, noiseSize
};

TEX_BINDING(1) uniform sampler2D tNormalRoughness;
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tNoise;

layout(location = 0) in vec2 vUV;
layout(location = 0) out float oOcclusion;

vec3 viewPosFromDepth(vec2 uv, float depth) {
    vec4 ndc = vec4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    vec4 view = inverse(uProjection) * ndc;
    return view.xyz / view.w;
}

void main() {
    float depth = texture(tDepth, vUV).r;
    if (depth >= 1.0) {
        oOcclusion = 1.0;
        return;
    }

    vec3 viewPos = viewPosFromDepth(vUV, depth);
    vec3 worldNormal = normalize(texture(tNormalRoughness, vUV).xyz * 2.0 - 1.0);
    vec3 N = normalize(mat3(uView) * worldNormal);

    vec2 noiseScale = uScreenSize.xy / uParams.w;
    vec3 randomVec = normalize(vec3(texture(tNoise, vUV * noiseScale).xy, 0.0) + vec3(1e-4));

    vec3 T = normalize(randomVec - N * dot(randomVec, N));
    vec3 B = cross(N, T);
    mat3 TBN = mat3(T, B, N);

    float radius = uParams.x;
    float bias = uParams.y;

    float occlusion = 0.0;
    for (int i = 0; i < KERNEL_SIZE; i++) {
        vec3 samplePos = viewPos + TBN * uKernel[i].xyz * radius;

        vec4 offset = uProjection * vec4(samplePos, 1.0);
        offset.xyz /= offset.w;
        vec2 sampleUV = offset.xy * 0.5 + 0.5;
        if (sampleUV.x < 0.0 || sampleUV.x > 1.0 || sampleUV.y < 0.0 || sampleUV.y > 1.0) {
            continue;
        }

        float sampleDepth = viewPosFromDepth(sampleUV, texture(tDepth, sampleUV).r).z;
        float rangeCheck = smoothstep(0.0, 1.0, radius / max(abs(viewPos.z - sampleDepth), 1e-4));
        occlusion += (sampleDepth >= samplePos.z + bias ? 1.0 : 0.0) * rangeCheck;
    }
    occlusion = 1.0 - occlusion / float(KERNEL_SIZE);
    oOcclusion = pow(occlusion, uParams.z);
}
`

// SSAOBlurFrag is a 4x4 box blur wide enough to erase the rotation noise
// tile.
const SSAOBlurFrag = `
UBO_BINDING(4) uniform BlurParams {
    vec4 uParams0; // x: 1/width, y: 1/height
    vec4 uParams1;
    vec4 uParams2;
    vec4 uParams3;
};

TEX_BINDING(13) uniform sampler2D tOcclusion;

layout(location = 0) in vec2 vUV;
layout(location = 0) out float oOcclusion;

void main() {
    vec2 texel = uParams0.xy;
    float sum = 0.0;
    for (int x = -2; x < 2; x++) {
        for (int y = -2; y < 2; y++) {
            sum += texture(tOcclusion, vUV + vec2(x, y) * texel).r;
        }
    }
    oOcclusion = sum / 16.0;
}
`
