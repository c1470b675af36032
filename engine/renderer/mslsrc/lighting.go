package mslsrc

// DeferredLighting shades every G-Buffer pixel with Cook-Torrance direct
// lighting, cascaded shadow lookup and split-sum image-based ambient light.
// The math must stay in lockstep with the CPU reference in renderer/shading.
const DeferredLighting = perFrameStruct + fullscreenVert + `
#define MAX_POINT_LIGHTS 16
#define MAX_DIR_LIGHTS 4
#define MAX_CASCADES 4

struct Lights {
    float4 pointPositions[MAX_POINT_LIGHTS]; // xyz + range
    float4 pointColors[MAX_POINT_LIGHTS];    // rgb + intensity
    float4 dirDirections[MAX_DIR_LIGHTS];
    float4 dirColors[MAX_DIR_LIGHTS];        // rgb + intensity
    float4x4 lightSpace[MAX_CASCADES];
    float4 cascadeSplits;
    float4 counts;       // numPoint, numDir, iblEnabled, iblIntensity
    float4 shadowParams; // cascadeCount, shadowMapSize, prefilterMips, 0
    float4 clearColor;
};

constant float PI = 3.14159265359;
constant float CLEARCOAT_F0 = 0.04;
constant float SUBSURFACE_WRAP = 0.5;
constant float AMBIENT_FLOOR = 0.03;

` + reconstructBlock + `

static float distributionGGX(float nDotH, float roughness) {
    float a = roughness * roughness;
    float a2 = a * a;
    float d = nDotH * nDotH * (a2 - 1.0) + 1.0;
    return a2 / max(PI * d * d, 1e-7);
}

static float geometrySchlickGGX(float nDotV, float roughness) {
    float r = roughness + 1.0;
    float k = (r * r) / 8.0;
    return nDotV / (nDotV * (1.0 - k) + k);
}

static float geometrySmith(float nDotV, float nDotL, float roughness) {
    return geometrySchlickGGX(nDotV, roughness) * geometrySchlickGGX(nDotL, roughness);
}

static float3 fresnelSchlick(float cosTheta, float3 f0) {
    return f0 + (1.0 - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

static float3 fresnelSchlickRoughness(float cosTheta, float3 f0, float roughness) {
    return f0 + (max(float3(1.0 - roughness), f0) - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

static float3 directLight(float3 N, float3 V, float3 L, float3 radiance, float3 albedo, float metallic, float roughness, float3 f0) {
    float3 H = normalize(V + L);
    float nDotL = max(dot(N, L), 0.0);
    float nDotV = max(dot(N, V), 0.0);
    float nDotH = max(dot(N, H), 0.0);
    float hDotV = max(dot(H, V), 0.0);

    float D = distributionGGX(nDotH, roughness);
    float G = geometrySmith(nDotV, nDotL, roughness);
    float3 F = fresnelSchlick(hDotV, f0);

    float3 specular = (D * G * F) / max(4.0 * nDotV * nDotL, 1e-4);
    float3 kD = (float3(1.0) - F) * (1.0 - metallic);
    return (kD * albedo / PI + specular) * radiance * nDotL;
}

// Second specular lobe over the base layer; the base is attenuated by the
// clearcoat Fresnel so energy is not added.
static float clearcoatLobe(float3 N, float3 V, float3 L, float ccRoughness, thread float& ccFresnel) {
    float3 H = normalize(V + L);
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
static float3 subsurfaceTerm(float3 N, float3 V, float3 L, float3 radiance, float3 ssColor, float amount) {
    float wrapped = clamp((dot(N, L) + SUBSURFACE_WRAP) / (1.0 + SUBSURFACE_WRAP), 0.0, 1.0);
    float scatter = pow(clamp(dot(V, -L), 0.0, 1.0), 4.0) * wrapped;
    return ssColor * radiance * (wrapped + scatter) * amount / PI;
}

static float pointAttenuation(float dist, float range) {
    float rangeFactor = clamp(1.0 - pow(dist / max(range, 1e-4), 4.0), 0.0, 1.0);
    return rangeFactor * rangeFactor / max(dist * dist, 1e-4);
}

static float sampleCascade(int cascade, float4 lightSpacePos, float bias, float shadowMapSize,
                           texture2d<float> tShadow0, texture2d<float> tShadow1,
                           texture2d<float> tShadow2, texture2d<float> tShadow3) {
    float3 proj = lightSpacePos.xyz / lightSpacePos.w;
    proj = proj * 0.5 + 0.5;
    if (proj.z > 1.0) {
        return 1.0;
    }
    float texel = 1.0 / shadowMapSize;
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            float2 uv = proj.xy + float2(x, y) * texel;
            float closest;
            if (cascade == 0)      closest = tShadow0.sample(linearSampler, uv).r;
            else if (cascade == 1) closest = tShadow1.sample(linearSampler, uv).r;
            else if (cascade == 2) closest = tShadow2.sample(linearSampler, uv).r;
            else                   closest = tShadow3.sample(linearSampler, uv).r;
            shadow += (proj.z - bias) > closest ? 0.0 : 1.0;
        }
    }
    return shadow / 9.0;
}

static float shadowFactor(float3 worldPos, float nDotL, constant PerFrame& frame, constant Lights& lights,
                          texture2d<float> tShadow0, texture2d<float> tShadow1,
                          texture2d<float> tShadow2, texture2d<float> tShadow3) {
    int count = int(lights.shadowParams.x);
    if (count == 0) {
        return 1.0;
    }
    float viewDepth = abs((frame.view * float4(worldPos, 1.0)).z);
    int cascade = count - 1;
    if (viewDepth < lights.cascadeSplits.x)      cascade = 0;
    else if (viewDepth < lights.cascadeSplits.y) cascade = 1;
    else if (viewDepth < lights.cascadeSplits.z) cascade = 2;
    float bias = max(0.005 * (1.0 - nDotL), 0.001) / float(cascade + 1);
    return sampleCascade(cascade, lights.lightSpace[cascade] * float4(worldPos, 1.0), bias,
                         lights.shadowParams.y, tShadow0, tShadow1, tShadow2, tShadow3);
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant Lights& lights [[buffer(4)]],
                             texture2d<float> tGBuffer0 [[texture(0)]],
                             texture2d<float> tGBuffer1 [[texture(1)]],
                             texture2d<float> tGBuffer2 [[texture(2)]],
                             texture2d<float> tGBuffer3 [[texture(3)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tShadow0 [[texture(5)]],
                             texture2d<float> tShadow1 [[texture(6)]],
                             texture2d<float> tShadow2 [[texture(7)]],
                             texture2d<float> tShadow3 [[texture(8)]],
                             texturecube<float> tIrradiance [[texture(9)]],
                             texturecube<float> tPrefilter [[texture(10)]],
                             texture2d<float> tBRDFLUT [[texture(11)]],
                             texture2d<float> tSSAO [[texture(12)]]) {
    float2 uv = in.uv;
    float depth = tDepth.sample(linearSampler, uv).r;
    if (depth >= 1.0) {
        return float4(lights.clearColor.rgb, 1.0);
    }

    float4 g0 = tGBuffer0.sample(linearSampler, uv);
    float4 g1 = tGBuffer1.sample(linearSampler, uv);
    float4 g2 = tGBuffer2.sample(linearSampler, uv);
    float4 g3 = tGBuffer3.sample(linearSampler, uv);

    float3 albedo = g0.rgb;
    float metallic = g0.a;
    float3 N = normalize(g1.xyz * 2.0 - 1.0);
    float roughness = clamp(g1.a, 0.04, 1.0);
    float3 emissive = g2.rgb;
    float ao = g2.a * tSSAO.sample(linearSampler, uv).r;
    float clearcoat = g3.x;
    float ccRoughness = g3.y;
    float subsurface = g3.z;

    float3 worldPos = reconstructWorldPos(uv, depth, frame);
    float3 V = normalize(frame.cameraPosition.xyz - worldPos);
    float3 f0 = mix(float3(0.04), albedo, metallic);

    float3 Lo = float3(0.0);

    int numPoint = int(lights.counts.x);
    for (int i = 0; i < numPoint; i++) {
        float3 toLight = lights.pointPositions[i].xyz - worldPos;
        float dist = length(toLight);
        float3 L = toLight / max(dist, 1e-5);
        float atten = pointAttenuation(dist, lights.pointPositions[i].w);
        float3 radiance = lights.pointColors[i].rgb * lights.pointColors[i].a * atten;

        float3 contrib = directLight(N, V, L, radiance, albedo, metallic, roughness, f0);
        if (clearcoat > 0.0) {
            float ccF;
            float cc = clearcoatLobe(N, V, L, ccRoughness, ccF);
            contrib = contrib * (1.0 - clearcoat * ccF) + float3(cc * clearcoat) * radiance;
        }
        if (subsurface > 0.0) {
            contrib += subsurfaceTerm(N, V, L, radiance, albedo, subsurface);
        }
        Lo += contrib;
    }

    int numDir = int(lights.counts.y);
    for (int i = 0; i < numDir; i++) {
        float3 L = normalize(-lights.dirDirections[i].xyz);
        float3 radiance = lights.dirColors[i].rgb * lights.dirColors[i].a;

        float3 contrib = directLight(N, V, L, radiance, albedo, metallic, roughness, f0);
        if (clearcoat > 0.0) {
            float ccF;
            float cc = clearcoatLobe(N, V, L, ccRoughness, ccF);
            contrib = contrib * (1.0 - clearcoat * ccF) + float3(cc * clearcoat) * radiance;
        }
        if (subsurface > 0.0) {
            contrib += subsurfaceTerm(N, V, L, radiance, albedo, subsurface);
        }
        if (i == 0) {
            contrib *= shadowFactor(worldPos, max(dot(N, L), 0.0), frame, lights,
                                    tShadow0, tShadow1, tShadow2, tShadow3);
        }
        Lo += contrib;
    }

    float3 ambient;
    if (lights.counts.z > 0.5) {
        float nDotV = max(dot(N, V), 0.0);
        float3 F = fresnelSchlickRoughness(nDotV, f0, roughness);
        float3 kD = (float3(1.0) - F) * (1.0 - metallic);

        float3 irradiance = tIrradiance.sample(linearSampler, N).rgb;
        float3 diffuse = kD * irradiance * albedo;

        float3 R = reflect(-V, N);
        float maxMip = lights.shadowParams.z - 1.0;
        float3 prefiltered = tPrefilter.sample(linearSampler, R, level(roughness * maxMip)).rgb;
        float2 brdf = tBRDFLUT.sample(linearSampler, float2(nDotV, roughness)).rg;
        float3 specular = prefiltered * (F * brdf.x + brdf.y);

        ambient = (diffuse + specular) * ao * lights.counts.w;
    } else {
        ambient = float3(AMBIENT_FLOOR) * albedo * ao;
    }

    return float4(ambient + Lo + emissive, 1.0);
}
`
