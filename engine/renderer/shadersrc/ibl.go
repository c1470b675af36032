package shadersrc

// iblParamsBlock is the uniform slot the cube precompute passes share with
// CubeVert.
const iblParamsBlock = `
UBO_BINDING(4) uniform IBLPass {
    mat4 uFaceViewProjection;
    vec4 uIBLParams; // x: roughness, y: sampleCount, z: irradianceStep
};
`

// EquirectToCubeFrag samples the equirectangular source along the cube
// direction.
const EquirectToCubeFrag = iblParamsBlock + `
TEX_BINDING(13) uniform sampler2D tEquirect;

layout(location = 0) in vec3 vDirection;
layout(location = 0) out vec4 oColor;

const float PI = 3.14159265359;

vec2 equirectUV(vec3 d) {
    return vec2(atan(d.z, d.x) / (2.0 * PI) + 0.5,
                asin(clamp(d.y, -1.0, 1.0)) / PI + 0.5);
}

void main() {
    vec3 d = normalize(vDirection);
    oColor = vec4(texture(tEquirect, equirectUV(d)).rgb, 1.0);
}
`

// IrradianceFrag convolves the environment over the hemisphere around each
// output direction. The angular step is configurable; halving it quadruples
// the sample count.
const IrradianceFrag = iblParamsBlock + `
TEX_BINDING(13) uniform samplerCube tEnvmap;

layout(location = 0) in vec3 vDirection;
layout(location = 0) out vec4 oColor;

const float PI = 3.14159265359;

void main() {
    vec3 N = normalize(vDirection);
    vec3 up = abs(N.y) > 0.999 ? vec3(1.0, 0.0, 0.0) : vec3(0.0, 1.0, 0.0);
    vec3 right = normalize(cross(up, N));
    up = cross(N, right);

    float step = max(uIBLParams.z, 0.001);
    vec3 irradiance = vec3(0.0);
    float count = 0.0;
    for (float phi = 0.0; phi < 2.0 * PI; phi += step) {
        for (float theta = 0.0; theta < 0.5 * PI; theta += step) {
            vec3 tangentSample = vec3(sin(theta) * cos(phi), sin(theta) * sin(phi), cos(theta));
            vec3 dir = tangentSample.x * right + tangentSample.y * up + tangentSample.z * N;
            irradiance += texture(tEnvmap, dir).rgb * cos(theta) * sin(theta);
            count += 1.0;
        }
    }
    oColor = vec4(irradiance * PI / count, 1.0);
}
`

// hammersleyGGXBlock is shared between the prefilter and BRDF LUT passes.
const hammersleyGGXBlock = `
const float PI = 3.14159265359;

float radicalInverseVdC(uint bits) {
    bits = (bits << 16u) | (bits >> 16u);
    bits = ((bits & 0x55555555u) << 1u) | ((bits & 0xAAAAAAAAu) >> 1u);
    bits = ((bits & 0x33333333u) << 2u) | ((bits & 0xCCCCCCCCu) >> 2u);
    bits = ((bits & 0x0F0F0F0Fu) << 4u) | ((bits & 0xF0F0F0F0u) >> 4u);
    bits = ((bits & 0x00FF00FFu) << 8u) | ((bits & 0xFF00FF00u) >> 8u);
    return float(bits) * 2.3283064365386963e-10;
}

vec2 hammersley(uint i, uint n) {
    return vec2(float(i) / float(n), radicalInverseVdC(i));
}

vec3 importanceSampleGGX(vec2 xi, vec3 N, float roughness) {
    float a = roughness * roughness;
    float phi = 2.0 * PI * xi.x;
    float cosTheta = sqrt((1.0 - xi.y) / (1.0 + (a * a - 1.0) * xi.y));
    float sinTheta = sqrt(1.0 - cosTheta * cosTheta);

    vec3 H = vec3(cos(phi) * sinTheta, sin(phi) * sinTheta, cosTheta);

    vec3 up = abs(N.z) < 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(1.0, 0.0, 0.0);
    vec3 tangent = normalize(cross(up, N));
    vec3 bitangent = cross(N, tangent);
    return normalize(tangent * H.x + bitangent * H.y + N * H.z);
}
`

// PrefilterFrag importance-samples the environment for one roughness bin of
// the specular prefilter chain.
const PrefilterFrag = iblParamsBlock + `
TEX_BINDING(13) uniform samplerCube tEnvmap;

layout(location = 0) in vec3 vDirection;
layout(location = 0) out vec4 oColor;

` + hammersleyGGXBlock + `

void main() {
    vec3 N = normalize(vDirection);
    vec3 R = N;
    vec3 V = N;

    float roughness = uIBLParams.x;
    uint sampleCount = uint(uIBLParams.y);

    vec3 prefiltered = vec3(0.0);
    float totalWeight = 0.0;
    for (uint i = 0u; i < sampleCount; i++) {
        vec2 xi = hammersley(i, sampleCount);
        vec3 H = importanceSampleGGX(xi, N, roughness);
        vec3 L = normalize(2.0 * dot(V, H) * H - V);
        float nDotL = max(dot(N, L), 0.0);
        if (nDotL > 0.0) {
            prefiltered += texture(tEnvmap, L).rgb * nDotL;
            totalWeight += nDotL;
        }
    }
    oColor = vec4(prefiltered / max(totalWeight, 1e-4), 1.0);
}
`

// BRDFLUTFrag integrates the split-sum environment BRDF over (nDotV,
// roughness), using the IBL geometry remapping k = a^2 / 2.
const BRDFLUTFrag = iblParamsBlock + `
layout(location = 0) in vec2 vUV;
layout(location = 0) out vec2 oScaleBias;

` + hammersleyGGXBlock + `

float geometrySmithIBL(float nDotV, float nDotL, float roughness) {
    float a = roughness * roughness;
    float k = a / 2.0;
    float gv = nDotV / (nDotV * (1.0 - k) + k);
    float gl = nDotL / (nDotL * (1.0 - k) + k);
    return gv * gl;
}

void main() {
    float nDotV = max(vUV.x, 1e-3);
    float roughness = vUV.y;
    uint sampleCount = uint(uIBLParams.y);

    vec3 V = vec3(sqrt(1.0 - nDotV * nDotV), 0.0, nDotV);
    vec3 N = vec3(0.0, 0.0, 1.0);

    float scale = 0.0;
    float bias = 0.0;
    for (uint i = 0u; i < sampleCount; i++) {
        vec2 xi = hammersley(i, sampleCount);
        vec3 H = importanceSampleGGX(xi, N, roughness);
        vec3 L = normalize(2.0 * dot(V, H) * H - V);

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
    oScaleBias = vec2(scale, bias) / float(sampleCount);
}
`
