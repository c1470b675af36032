package shadersrc

// SSRFrag ray-marches reflections through the depth buffer and blends them
// onto the lit scene, weighted by smoothness and a screen-edge fade.
const SSRFrag = PerFrameBlock + `
UBO_BINDING(4) uniform SSRParams {
    vec4 uParams0; // x: maxDistance, y: thickness, z: maxSteps
    vec4 uParams1;
    vec4 uParams2;
    vec4 uParams3;
};

TEX_BINDING(1) uniform sampler2D tNormalRoughness;
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tScene;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + ReconstructBlock + `

void main() {
    vec3 scene = texture(tScene, vUV).rgb;
    float depth = texture(tDepth, vUV).r;
    vec4 g1 = texture(tNormalRoughness, vUV);
    float roughness = g1.a;

    // Rough surfaces get no screen-space reflection.
    if (depth >= 1.0 || roughness > 0.6) {
        oColor = vec4(scene, 1.0);
        return;
    }

    vec3 worldPos = reconstructWorldPos(vUV, depth);
    vec3 N = normalize(g1.xyz * 2.0 - 1.0);
    vec3 V = normalize(worldPos - uCameraPosition.xyz);
    vec3 R = normalize(reflect(V, N));

    float maxDistance = uParams0.x;
    float thickness = uParams0.y;
    int maxSteps = int(uParams0.z);
    float stepLen = maxDistance / float(maxSteps);

    vec3 reflection = vec3(0.0);
    float hit = 0.0;
    vec3 marchPos = worldPos;
    for (int i = 0; i < maxSteps; i++) {
        marchPos += R * stepLen;

        vec4 clip = uViewProjection * vec4(marchPos, 1.0);
        if (clip.w <= 0.0) {
            break;
        }
        vec3 ndc = clip.xyz / clip.w;
        vec2 uv = ndc.xy * 0.5 + 0.5;
        if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
            break;
        }

        float sceneDepth = texture(tDepth, uv).r;
        if (sceneDepth >= 1.0) {
            continue;
        }
        vec3 scenePos = reconstructWorldPos(uv, sceneDepth);
        float marchView = abs((uView * vec4(marchPos, 1.0)).z);
        float sceneView = abs((uView * vec4(scenePos, 1.0)).z);
        float delta = marchView - sceneView;
        if (delta > 0.0 && delta < thickness + stepLen) {
            vec2 edge = abs(uv * 2.0 - 1.0);
            float fade = 1.0 - smoothstep(0.7, 1.0, max(edge.x, edge.y));
            reflection = texture(tScene, uv).rgb;
            hit = fade;
            break;
        }
    }

    float strength = hit * (1.0 - roughness / 0.6);
    oColor = vec4(mix(scene, reflection, strength * 0.5), 1.0);
}
`
