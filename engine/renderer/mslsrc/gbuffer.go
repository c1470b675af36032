package mslsrc

// GBuffer writes the fixed four-target layout:
//
//	0: albedo.rgb, metallic
//	1: normal.xyz packed [0,1], roughness
//	2: emissive.rgb, ao
//	3: clearcoat, clearcoatRoughness, subsurface, reserved
const GBuffer = perFrameStruct + meshVertexIn + `
struct PerObject {
    float4x4 model;
    float4x4 normalMatrix;
    float4 objectParams; // x: lodAlpha
};

struct Material {
    float4 albedoOpacity;
    float4 metallicRoughness;   // metallic, roughness, ao, alphaCutoff
    float4 emissiveFactor;      // rgb, factor
    float4 clearcoatSubsurface; // clearcoat, ccRoughness, subsurface, heightScale
    float4 subsurfaceColor;
};

struct VSOut {
    float4 position [[position]];
    float3 worldPos;
    float3 normal;
    float2 uv;
    float3 tangent;
};

vertex VSOut vertexMain(VertexIn in [[stage_in]],
                        constant PerFrame& frame [[buffer(1)]],
                        constant PerObject& object [[buffer(2)]]) {
    float4 world = object.model * float4(in.position, 1.0);
    VSOut out;
    out.worldPos = world.xyz;
    out.normal = normalize((object.normalMatrix * float4(in.normal, 0.0)).xyz);
    out.tangent = normalize((object.model * float4(in.tangent, 0.0)).xyz);
    out.uv = in.texcoord;
    out.position = frame.viewProjection * world;
    return out;
}

struct GBufferOut {
    float4 albedoMetallic  [[color(0)]];
    float4 normalRoughness [[color(1)]];
    float4 emissiveAO      [[color(2)]];
    float4 extended        [[color(3)]];
};

#ifdef HAS_LOD_DITHER
// 4x4 Bayer matrix, thresholds in [0,1).
constant float bayer[16] = {
     0.0 / 16.0,  8.0 / 16.0,  2.0 / 16.0, 10.0 / 16.0,
    12.0 / 16.0,  4.0 / 16.0, 14.0 / 16.0,  6.0 / 16.0,
     3.0 / 16.0, 11.0 / 16.0,  1.0 / 16.0,  9.0 / 16.0,
    15.0 / 16.0,  7.0 / 16.0, 13.0 / 16.0,  5.0 / 16.0};
#endif

#ifdef HAS_PARALLAX
// Parallax occlusion mapping: march the height field in tangent space, then
// interpolate between the straddling layers (relief mapping).
static float2 parallaxUV(float2 uv, float3 viewDirTS, float heightScale, texture2d<float> heightMap) {
    // Fewer layers when looking straight on, more at grazing angles.
    float numLayers = mix(32.0, 8.0, clamp(abs(viewDirTS.z), 0.0, 1.0));
    float layerDepth = 1.0 / numLayers;

    float2 delta = viewDirTS.xy / max(viewDirTS.z, 0.1) * heightScale / numLayers;

    float2 currUV = uv;
    float currDepth = 0.0;
    float currHeight = heightMap.sample(repeatSampler, currUV).r;
    while (currDepth < currHeight) {
        currUV -= delta;
        currHeight = heightMap.sample(repeatSampler, currUV).r;
        currDepth += layerDepth;
    }

    float2 prevUV = currUV + delta;
    float after = currHeight - currDepth;
    float before = heightMap.sample(repeatSampler, prevUV).r - currDepth + layerDepth;
    float weight = after / (after - before);
    return mix(currUV, prevUV, weight);
}
#endif

fragment GBufferOut fragmentMain(VSOut in [[stage_in]],
                                 constant PerFrame& frame [[buffer(1)]],
                                 constant PerObject& object [[buffer(2)]],
                                 constant Material& material [[buffer(3)]],
                                 texture2d<float> tAlbedo [[texture(0)]],
                                 texture2d<float> tNormal [[texture(1)]],
                                 texture2d<float> tMetallicRoughness [[texture(2)]],
                                 texture2d<float> tAO [[texture(3)]],
                                 texture2d<float> tEmissive [[texture(4)]],
                                 texture2d<float> tHeight [[texture(5)]]) {
#ifdef HAS_LOD_DITHER
    int2 pix = int2(in.position.xy) % 4;
    if (object.objectParams.x < bayer[pix.y * 4 + pix.x]) {
        discard_fragment();
    }
#endif

    float3 N = normalize(in.normal);
    float3 T = normalize(in.tangent - N * dot(in.tangent, N));
    float3 B = cross(N, T);

    float2 uv = in.uv;
#ifdef HAS_PARALLAX
    float3x3 invTBN = transpose(float3x3(T, B, N));
    float3 viewDirTS = normalize(invTBN * (frame.cameraPosition.xyz - in.worldPos));
    uv = parallaxUV(uv, viewDirTS, material.clearcoatSubsurface.w, tHeight);
    if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        discard_fragment();
    }
#endif

    float4 albedo = material.albedoOpacity;
#ifdef HAS_ALBEDO_MAP
    albedo *= tAlbedo.sample(repeatSampler, uv);
#endif

#ifdef HAS_ALPHA_CUTOFF
    if (albedo.a < material.metallicRoughness.w) {
        discard_fragment();
    }
#endif

    float metallic = material.metallicRoughness.x;
    float roughness = material.metallicRoughness.y;
#ifdef HAS_METALLIC_ROUGHNESS_MAP
    // glTF convention: g = roughness, b = metallic.
    float3 mr = tMetallicRoughness.sample(repeatSampler, uv).rgb;
    roughness *= mr.g;
    metallic *= mr.b;
#endif

#ifdef HAS_NORMAL_MAP
    float3 tn = tNormal.sample(repeatSampler, uv).xyz * 2.0 - 1.0;
    N = normalize(float3x3(T, B, N) * tn);
#endif

    float ao = material.metallicRoughness.z;
#ifdef HAS_AO_MAP
    ao *= tAO.sample(repeatSampler, uv).r;
#endif

    float3 emissive = material.emissiveFactor.rgb * material.emissiveFactor.w;
#ifdef HAS_EMISSIVE_MAP
    emissive *= tEmissive.sample(repeatSampler, uv).rgb;
#endif

    GBufferOut out;
    out.albedoMetallic = float4(albedo.rgb, metallic);
    out.normalRoughness = float4(N * 0.5 + 0.5, roughness);
    out.emissiveAO = float4(emissive, ao);
    out.extended = float4(material.clearcoatSubsurface.xyz, 0.0);
    return out;
}
`
