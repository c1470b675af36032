package shadersrc

// GBufferVert transforms geometry into clip space and hands the fragment
// stage a world-space TBN basis.
const GBufferVert = PerFrameBlock + `
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexcoord;
layout(location = 3) in vec3 aTangent;

UBO_BINDING(1) uniform PerObject {
    mat4 uModel;
    mat4 uNormalMatrix;
    vec4 uObjectParams; // x: lodAlpha
};

layout(location = 0) out vec3 vWorldPos;
layout(location = 1) out vec3 vNormal;
layout(location = 2) out vec2 vUV;
layout(location = 3) out vec3 vTangent;

void main() {
    vec4 world = uModel * vec4(aPosition, 1.0);
    vWorldPos = world.xyz;
    vNormal = normalize(mat3(uNormalMatrix) * aNormal);
    vTangent = normalize(mat3(uModel) * aTangent);
    vUV = aTexcoord;
    gl_Position = uViewProjection * world;
}
`

// GBufferFrag writes the fixed four-target layout:
//
//	0: albedo.rgb, metallic
//	1: normal.xyz packed [0,1], roughness
//	2: emissive.rgb, ao
//	3: clearcoat, clearcoatRoughness, subsurface, reserved
const GBufferFrag = PerFrameBlock + `
UBO_BINDING(1) uniform PerObject {
    mat4 uModel;
    mat4 uNormalMatrix;
    vec4 uObjectParams; // x: lodAlpha
};

UBO_BINDING(2) uniform Material {
    vec4 uAlbedoOpacity;
    vec4 uMetallicRoughness;   // metallic, roughness, ao, alphaCutoff
    vec4 uEmissiveFactor;      // rgb, factor
    vec4 uClearcoatSubsurface; // clearcoat, ccRoughness, subsurface, heightScale
    vec4 uSubsurfaceColor;
};

TEX_BINDING(0) uniform sampler2D tAlbedo;
TEX_BINDING(1) uniform sampler2D tNormal;
TEX_BINDING(2) uniform sampler2D tMetallicRoughness;
TEX_BINDING(3) uniform sampler2D tAO;
TEX_BINDING(4) uniform sampler2D tEmissive;
TEX_BINDING(5) uniform sampler2D tHeight;

layout(location = 0) in vec3 vWorldPos;
layout(location = 1) in vec3 vNormal;
layout(location = 2) in vec2 vUV;
layout(location = 3) in vec3 vTangent;

layout(location = 0) out vec4 oAlbedoMetallic;
layout(location = 1) out vec4 oNormalRoughness;
layout(location = 2) out vec4 oEmissiveAO;
layout(location = 3) out vec4 oExtended;

#ifdef HAS_LOD_DITHER
// 4x4 Bayer matrix, thresholds in [0,1).
const float bayer[16] = float[16](
     0.0 / 16.0,  8.0 / 16.0,  2.0 / 16.0, 10.0 / 16.0,
    12.0 / 16.0,  4.0 / 16.0, 14.0 / 16.0,  6.0 / 16.0,
     3.0 / 16.0, 11.0 / 16.0,  1.0 / 16.0,  9.0 / 16.0,
    15.0 / 16.0,  7.0 / 16.0, 13.0 / 16.0,  5.0 / 16.0);
#endif

#ifdef HAS_PARALLAX
// Parallax occlusion mapping: march the height field in tangent space, then
// interpolate between the straddling layers (relief mapping).
vec2 parallaxUV(vec2 uv, vec3 viewDirTS) {
    float heightScale = uClearcoatSubsurface.w;
    // Fewer layers when looking straight on, more at grazing angles.
    float numLayers = mix(32.0, 8.0, clamp(abs(viewDirTS.z), 0.0, 1.0));
    float layerDepth = 1.0 / numLayers;

    vec2 delta = viewDirTS.xy / max(viewDirTS.z, 0.1) * heightScale / numLayers;

    vec2 currUV = uv;
    float currDepth = 0.0;
    float currHeight = texture(tHeight, currUV).r;
    while (currDepth < currHeight) {
        currUV -= delta;
        currHeight = texture(tHeight, currUV).r;
        currDepth += layerDepth;
    }

    vec2 prevUV = currUV + delta;
    float after = currHeight - currDepth;
    float before = texture(tHeight, prevUV).r - currDepth + layerDepth;
    float weight = after / (after - before);
    return mix(currUV, prevUV, weight);
}
#endif

void main() {
#ifdef HAS_LOD_DITHER
    ivec2 pix = ivec2(gl_FragCoord.xy) % 4;
    if (uObjectParams.x < bayer[pix.y * 4 + pix.x]) {
        discard;
    }
#endif

    vec3 N = normalize(vNormal);
    vec3 T = normalize(vTangent - N * dot(vTangent, N));
    vec3 B = cross(N, T);

    vec2 uv = vUV;
#ifdef HAS_PARALLAX
    mat3 invTBN = transpose(mat3(T, B, N));
    vec3 viewDirTS = normalize(invTBN * (uCameraPosition.xyz - vWorldPos));
    uv = parallaxUV(uv, viewDirTS);
    if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        discard;
    }
#endif

    vec4 albedo = uAlbedoOpacity;
#ifdef HAS_ALBEDO_MAP
    albedo *= texture(tAlbedo, uv);
#endif

#ifdef HAS_ALPHA_CUTOFF
    if (albedo.a < uMetallicRoughness.w) {
        discard;
    }
#endif

    float metallic = uMetallicRoughness.x;
    float roughness = uMetallicRoughness.y;
#ifdef HAS_METALLIC_ROUGHNESS_MAP
    // glTF convention: g = roughness, b = metallic.
    vec3 mr = texture(tMetallicRoughness, uv).rgb;
    roughness *= mr.g;
    metallic *= mr.b;
#endif

#ifdef HAS_NORMAL_MAP
    vec3 tn = texture(tNormal, uv).xyz * 2.0 - 1.0;
    N = normalize(mat3(T, B, N) * tn);
#endif

    float ao = uMetallicRoughness.z;
#ifdef HAS_AO_MAP
    ao *= texture(tAO, uv).r;
#endif

    vec3 emissive = uEmissiveFactor.rgb * uEmissiveFactor.w;
#ifdef HAS_EMISSIVE_MAP
    emissive *= texture(tEmissive, uv).rgb;
#endif

    oAlbedoMetallic = vec4(albedo.rgb, metallic);
    oNormalRoughness = vec4(N * 0.5 + 0.5, roughness);
    oEmissiveAO = vec4(emissive, ao);
    oExtended = vec4(uClearcoatSubsurface.xyz, 0.0);
}
`
