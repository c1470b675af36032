package mslsrc

// EquirectToCube samples the equirectangular source along the cube
// direction.
const EquirectToCube = iblPassStruct + cubeVert + `
constant float PI = 3.14159265359;

static float2 equirectUV(float3 d) {
    return float2(atan2(d.z, d.x) / (2.0 * PI) + 0.5,
                  asin(clamp(d.y, -1.0, 1.0)) / PI + 0.5);
}

fragment float4 fragmentMain(CubeOut in [[stage_in]],
                             texture2d<float> tEquirect [[texture(13)]]) {
    float3 d = normalize(in.direction);
    return float4(tEquirect.sample(linearSampler, equirectUV(d)).rgb, 1.0);
}
`

// Irradiance convolves the environment over the hemisphere around each
// output direction. The angular step is configurable; halving it quadruples
// the sample count.
const Irradiance = iblPassStruct + cubeVert + `
constant float PI = 3.14159265359;

fragment float4 fragmentMain(CubeOut in [[stage_in]],
                             constant IBLPass& pass [[buffer(5)]],
                             texturecube<float> tEnvmap [[texture(13)]]) {
    float3 N = normalize(in.direction);
    float3 up = abs(N.y) > 0.999 ? float3(1.0, 0.0, 0.0) : float3(0.0, 1.0, 0.0);
    float3 right = normalize(cross(up, N));
    up = cross(N, right);

    float step = max(pass.iblParams.z, 0.001);
    float3 irradiance = float3(0.0);
    float count = 0.0;
    for (float phi = 0.0; phi < 2.0 * PI; phi += step) {
        for (float theta = 0.0; theta < 0.5 * PI; theta += step) {
            float3 tangentSample = float3(sin(theta) * cos(phi), sin(theta) * sin(phi), cos(theta));
            float3 dir = tangentSample.x * right + tangentSample.y * up + tangentSample.z * N;
            irradiance += tEnvmap.sample(linearSampler, dir).rgb * cos(theta) * sin(theta);
            count += 1.0;
        }
    }
    return float4(irradiance * PI / count, 1.0);
}
`

// hammersleyGGXBlock is shared between the prefilter and BRDF LUT passes.
const hammersleyGGXBlock = `
constant float PI = 3.14159265359;

static float radicalInverseVdC(uint bits) {
    bits = (bits << 16u) | (bits >> 16u);
    bits = ((bits & 0x55555555u) << 1u) | ((bits & 0xAAAAAAAAu) >> 1u);
    bits = ((bits & 0x33333333u) << 2u) | ((bits & 0xCCCCCCCCu) >> 2u);
    bits = ((bits & 0x0F0F0F0Fu) << 4u) | ((bits & 0xF0F0F0F0u) >> 4u);
    bits = ((bits & 0x00FF00FFu) << 8u) | ((bits & 0xFF00FF00u) >> 8u);
    return float(bits) * 2.3283064365386963e-10;
}

static float2 hammersley(uint i, uint n) {
    return float2(float(i) / float(n), radicalInverseVdC(i));
}

static float3 importanceSampleGGX(float2 xi, float3 N, float roughness) {
    float a = roughness * roughness;
    float phi = 2.0 * PI * xi.x;
    float cosTheta = sqrt((1.0 - xi.y) / (1.0 + (a * a - 1.0) * xi.y));
    float sinTheta = sqrt(1.0 - cosTheta * cosTheta);

    float3 H = float3(cos(phi) * sinTheta, sin(phi) * sinTheta, cosTheta);

    float3 up = abs(N.z) < 0.999 ? float3(0.0, 0.0, 1.0) : float3(1.0, 0.0, 0.0);
    float3 tangent = normalize(cross(up, N));
    float3 bitangent = cross(N, tangent);
    return normalize(tangent * H.x + bitangent * H.y + N * H.z);
}
`

// Prefilter importance-samples the environment for one roughness bin of the
// specular prefilter chain.
const Prefilter = iblPassStruct + cubeVert + hammersleyGGXBlock + `
fragment float4 fragmentMain(CubeOut in [[stage_in]],
                             constant IBLPass& pass [[buffer(5)]],
                             texturecube<float> tEnvmap [[texture(13)]]) {
    float3 N = normalize(in.direction);
    float3 V = N;

    float roughness = pass.iblParams.x;
    uint sampleCount = uint(pass.iblParams.y);

    float3 prefiltered = float3(0.0);
    float totalWeight = 0.0;
    for (uint i = 0u; i < sampleCount; i++) {
        float2 xi = hammersley(i, sampleCount);
        float3 H = importanceSampleGGX(xi, N, roughness);
        float3 L = normalize(2.0 * dot(V, H) * H - V);
        float nDotL = max(dot(N, L), 0.0);
        if (nDotL > 0.0) {
            prefiltered += tEnvmap.sample(linearSampler, L).rgb * nDotL;
            totalWeight += nDotL;
        }
    }
    return float4(prefiltered / max(totalWeight, 1e-4), 1.0);
}
`

// BRDFLUT integrates the split-sum environment BRDF over (nDotV, roughness),
// using the IBL geometry remapping k = a^2 / 2.
const BRDFLUT = iblPassStruct + fullscreenVert + hammersleyGGXBlock + `
static float geometrySmithIBL(float nDotV, float nDotL, float roughness) {
    float a = roughness * roughness;
    float k = a / 2.0;
    float gv = nDotV / (nDotV * (1.0 - k) + k);
    float gl = nDotL / (nDotL * (1.0 - k) + k);
    return gv * gl;
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant IBLPass& pass [[buffer(5)]]) {
    float nDotV = max(in.uv.x, 1e-3);
    float roughness = in.uv.y;
    uint sampleCount = uint(pass.iblParams.y);

    float3 V = float3(sqrt(1.0 - nDotV * nDotV), 0.0, nDotV);
    float3 N = float3(0.0, 0.0, 1.0);

    float scale = 0.0;
    float bias = 0.0;
    for (uint i = 0u; i < sampleCount; i++) {
        float2 xi = hammersley(i, sampleCount);
        float3 H = importanceSampleGGX(xi, N, roughness);
        float3 L = normalize(2.0 * dot(V, H) * H - V);

        float nDotL = max(L.z, 0.0);
        if (nDotL > 0.0) {
            float nDotH = max(H.z, 0.0);
            float vDotH = max(dot(V, H), 0.0);
            float G = geometrySmithIBL(nDotV, nDotL, roughness);
            float gVis = (G * vDotH) / (nDotH * nDotV);
            float fc = pow(1.0 - vDotH, 5.0);
            scale += (1.0 - fc) * gVis;
            bias += fc * gVis;
        }
    }
    return float4(scale / float(sampleCount), bias / float(sampleCount), 0.0, 1.0);
}
`
