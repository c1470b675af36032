package shadersrc

// DeferredLightingFrag shades every G-Buffer pixel with Cook-Torrance direct
// lighting, cascaded shadow lookup and split-sum image-based ambient light.
// The math must stay in lockstep with the CPU reference in renderer/shading.
const DeferredLightingFrag = PerFrameBlock + `
#define MAX_POINT_LIGHTS 16
#define MAX_DIR_LIGHTS 4
#define MAX_CASCADES 4

UBO_BINDING(3) uniform Lights {
    vec4 uPointPositions[MAX_POINT_LIGHTS]; // xyz + range
    vec4 uPointColors[MAX_POINT_LIGHTS];    // rgb + intensity
    vec4 uDirDirections[MAX_DIR_LIGHTS];
    vec4 uDirColors[MAX_DIR_LIGHTS];        // rgb + intensity
    mat4 uLightSpace[MAX_CASCADES];
    vec4 uCascadeSplits;
    vec4 uCounts;       // numPoint, numDir, iblEnabled, iblIntensity
    vec4 uShadowParams; // cascadeCount, shadowMapSize, prefilterMips, 0
    vec4 uClearColor;
};

TEX_BINDING(0) uniform sampler2D tGBuffer0; // albedo + metallic
TEX_BINDING(1) uniform sampler2D tGBuffer1; // normal + roughness
TEX_BINDING(2) uniform sampler2D tGBuffer2; // emissive + ao
TEX_BINDING(3) uniform sampler2D tGBuffer3; // clearcoat, ccRoughness, subsurface
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(5) uniform sampler2D tShadow0;
TEX_BINDING(6) uniform sampler2D tShadow1;
TEX_BINDING(7) uniform sampler2D tShadow2;
TEX_BINDING(8) uniform sampler2D tShadow3;
TEX_BINDING(9) uniform samplerCube tIrradiance;
TEX_BINDING(10) uniform samplerCube tPrefilter;
TEX_BINDING(11) uniform sampler2D tBRDFLUT;
TEX_BINDING(12) uniform sampler2D tSSAO;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

const float PI = 3.14159265359;
const float CLEARCOAT_F0 = 0.04;
const float SUBSURFACE_WRAP = 0.5;
const float AMBIENT_FLOOR = 0.03;

` + ReconstructBlock + `

float distributionGGX(float nDotH, float roughness) {
    float a = roughness * roughness;
    float a2 = a * a;
    float d = nDotH * nDotH * (a2 - 1.0) + 1.0;
    return a2 / max(PI * d * d, 1e-7);
}

float geometrySchlickGGX(float nDotV, float roughness) {
    float r = roughness + 1.0;
    float k = (r * r) / 8.0;
    return nDotV / (nDotV * (1.0 - k) + k);
}

float geometrySmith(float nDotV, float nDotL, float roughness) {
    return geometrySchlickGGX(nDotV, roughness) * geometrySchlickGGX(nDotL, roughness);
}

vec3 fresnelSchlick(float cosTheta, vec3 f0) {
    return f0 + (1.0 - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 fresnelSchlickRoughness(float cosTheta, vec3 f0, float roughness) {
    return f0 + (max(vec3(1.0 - roughness), f0) - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 directLight(vec3 N, vec3 V, vec3 L, vec3 radiance, vec3 albedo, float metallic, float roughness, vec3 f0) {
    vec3 H = normalize(V + L);
    float nDotL = max(dot(N, L), 0.0);
    float nDotV = max(dot(N, V), 0.0);
    float nDotH = max(dot(N, H), 0.0);
    float hDotV = max(dot(H, V), 0.0);

    float D = distributionGGX(nDotH, roughness);
    float G = geometrySmith(nDotV, nDotL, roughness);
    vec3 F = fresnelSchlick(hDotV, f0);

    vec3 specular = (D * G * F) / max(4.0 * nDotV * nDotL, 1e-4);
    vec3 kD = (vec3(1.0) - F) * (1.0 - metallic);
    return (kD * albedo / PI + specular) * radiance * nDotL;
}

// Second specular lobe over the base layer; the base is attenuated by the
// clearcoat Fresnel so energy is not added.
float clearcoatLobe(vec3 N, vec3 V, vec3 L, float ccRoughness, out float ccFresnel) {
    vec3 H = normalize(V + L);
    float nDotL = max(dot(N, L), 0.0);
    float nDotV = max(dot(N, V), 0.0);
    float nDotH = max(dot(N, H), 0.0);
    float hDotV = max(dot(H, V), 0.0);

    float r = clamp(ccRoughness, 0.03, 1.0);
    float D = distributionGGX(nDotH, r);
    float G = geometrySmith(nDotV, nDotL, r);
    float F = CLEARCOAT_F0 + (1.0 - CLEARCOAT_F0) * pow(clamp(1.0 - hDotV, 0.0, 1.0), 5.0);
    ccFresnel = F;
    return (D * G * F) / max(4.0 * nDotV * nDotL, 1e-4) * nDotL;
}

// Wrap diffuse plus a view-dependent back-scatter term. The G-Buffer has no
// room for the subsurface tint, so the deferred path tints with albedo.
vec3 subsurfaceTerm(vec3 N, vec3 V, vec3 L, vec3 radiance, vec3 ssColor, float amount) {
    float wrapped = clamp((dot(N, L) + SUBSURFACE_WRAP) / (1.0 + SUBSURFACE_WRAP), 0.0, 1.0);
    float scatter = pow(clamp(dot(V, -L), 0.0, 1.0), 4.0) * wrapped;
    return ssColor * radiance * (wrapped + scatter) * amount / PI;
}

float pointAttenuation(float dist, float range) {
    float rangeFactor = clamp(1.0 - pow(dist / max(range, 1e-4), 4.0), 0.0, 1.0);
    return rangeFactor * rangeFactor / max(dist * dist, 1e-4);
}

float sampleCascade(int cascade, vec4 lightSpacePos, float bias) {
    vec3 proj = lightSpacePos.xyz / lightSpacePos.w;
    proj = proj * 0.5 + 0.5;
    if (proj.z > 1.0) {
        return 1.0;
    }
    float texel = 1.0 / uShadowParams.y;
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            vec2 uv = proj.xy + vec2(x, y) * texel;
            float closest;
            if (cascade == 0)      closest = texture(tShadow0, uv).r;
            else if (cascade == 1) closest = texture(tShadow1, uv).r;
            else if (cascade == 2) closest = texture(tShadow2, uv).r;
            else                   closest = texture(tShadow3, uv).r;
            shadow += (proj.z - bias) > closest ? 0.0 : 1.0;
        }
    }
    return shadow / 9.0;
}

float shadowFactor(vec3 worldPos, float nDotL) {
    int count = int(uShadowParams.x);
    if (count == 0) {
        return 1.0;
    }
    float viewDepth = abs((uView * vec4(worldPos, 1.0)).z);
    int cascade = count - 1;
    if (viewDepth < uCascadeSplits.x)      cascade = 0;
    else if (viewDepth < uCascadeSplits.y) cascade = 1;
    else if (viewDepth < uCascadeSplits.z) cascade = 2;
    float bias = max(0.005 * (1.0 - nDotL), 0.001) / float(cascade + 1);
    return sampleCascade(cascade, uLightSpace[cascade] * vec4(worldPos, 1.0), bias);
}

void main() {
    float depth = texture(tDepth, vUV).r;
    if (depth >= 1.0) {
        oColor = vec4(uClearColor.rgb, 1.0);
        return;
    }

    vec4 g0 = texture(tGBuffer0, vUV);
    vec4 g1 = texture(tGBuffer1, vUV);
    vec4 g2 = texture(tGBuffer2, vUV);
    vec4 g3 = texture(tGBuffer3, vUV);

    vec3 albedo = g0.rgb;
    float metallic = g0.a;
    vec3 N = normalize(g1.xyz * 2.0 - 1.0);
    float roughness = clamp(g1.a, 0.04, 1.0);
    vec3 emissive = g2.rgb;
    float ao = g2.a * texture(tSSAO, vUV).r;
    float clearcoat = g3.x;
    float ccRoughness = g3.y;
    float subsurface = g3.z;

    vec3 worldPos = reconstructWorldPos(vUV, depth);
    vec3 V = normalize(uCameraPosition.xyz - worldPos);
    vec3 f0 = mix(vec3(0.04), albedo, metallic);

    vec3 Lo = vec3(0.0);

    int numPoint = int(uCounts.x);
    for (int i = 0; i < numPoint; i++) {
        vec3 toLight = uPointPositions[i].xyz - worldPos;
        float dist = length(toLight);
        vec3 L = toLight / max(dist, 1e-5);
        float atten = pointAttenuation(dist, uPointPositions[i].w);
        vec3 radiance = uPointColors[i].rgb * uPointColors[i].a * atten;

        vec3 contrib = directLight(N, V, L, radiance, albedo, metallic, roughness, f0);
        if (clearcoat > 0.0) {
            float ccF;
            float cc = clearcoatLobe(N, V, L, ccRoughness, ccF);
            contrib = contrib * (1.0 - clearcoat * ccF) + vec3(cc * clearcoat) * radiance;
        }
        if (subsurface > 0.0) {
            contrib += subsurfaceTerm(N, V, L, radiance, albedo, subsurface);
        }
        Lo += contrib;
    }

    int numDir = int(uCounts.y);
    for (int i = 0; i < numDir; i++) {
        vec3 L = normalize(-uDirDirections[i].xyz);
        vec3 radiance = uDirColors[i].rgb * uDirColors[i].a;

        vec3 contrib = directLight(N, V, L, radiance, albedo, metallic, roughness, f0);
        if (clearcoat > 0.0) {
            float ccF;
            float cc = clearcoatLobe(N, V, L, ccRoughness, ccF);
            contrib = contrib * (1.0 - clearcoat * ccF) + vec3(cc * clearcoat) * radiance;
        }
        if (subsurface > 0.0) {
            contrib += subsurfaceTerm(N, V, L, radiance, albedo, subsurface);
        }
        if (i == 0) {
            contrib *= shadowFactor(worldPos, max(dot(N, L), 0.0));
        }
        Lo += contrib;
    }

    vec3 ambient;
    if (uCounts.z > 0.5) {
        float nDotV = max(dot(N, V), 0.0);
        vec3 F = fresnelSchlickRoughness(nDotV, f0, roughness);
        vec3 kD = (vec3(1.0) - F) * (1.0 - metallic);

        vec3 irradiance = texture(tIrradiance, N).rgb;
        vec3 diffuse = kD * irradiance * albedo;

        vec3 R = reflect(-V, N);
        float maxMip = uShadowParams.z - 1.0;
        vec3 prefiltered = textureLod(tPrefilter, R, roughness * maxMip).rgb;
        vec2 brdf = texture(tBRDFLUT, vec2(nDotV, roughness)).rg;
        vec3 specular = prefiltered * (F * brdf.x + brdf.y);

        ambient = (diffuse + specular) * ao * uCounts.w;
    } else {
        ambient = vec3(AMBIENT_FLOOR) * albedo * ao;
    }

    oColor = vec4(ambient + Lo + emissive, 1.0);
}
`
