package mslsrc

// SSR ray-marches reflections through the depth buffer and blends them onto
// the lit scene, weighted by smoothness and a screen-edge fade.
const SSR = perFrameStruct + fullscreenVert + postParamsStruct + reconstructBlock + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tNormalRoughness [[texture(1)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tScene [[texture(13)]]) {
    float2 vUV = in.uv;
    float3 scene = tScene.sample(linearSampler, vUV).rgb;
    float depth = tDepth.sample(linearSampler, vUV).r;
    float4 g1 = tNormalRoughness.sample(linearSampler, vUV);
    float roughness = g1.a;

    // Rough surfaces get no screen-space reflection.
    if (depth >= 1.0 || roughness > 0.6) {
        return float4(scene, 1.0);
    }

    float3 worldPos = reconstructWorldPos(vUV, depth, frame);
    float3 N = normalize(g1.xyz * 2.0 - 1.0);
    float3 V = normalize(worldPos - frame.cameraPosition.xyz);
    float3 R = normalize(reflect(V, N));

    float maxDistance = params.params0.x;
    float thickness = params.params0.y;
    int maxSteps = int(params.params0.z);
    float stepLen = maxDistance / float(maxSteps);

    float3 reflection = float3(0.0);
    float hit = 0.0;
    float3 marchPos = worldPos;
    for (int i = 0; i < maxSteps; i++) {
        marchPos += R * stepLen;

        float4 clip = frame.viewProjection * float4(marchPos, 1.0);
        if (clip.w <= 0.0) {
            break;
        }
        float3 ndc = clip.xyz / clip.w;
        float2 uv = ndc.xy * 0.5 + 0.5;
        if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
            break;
        }

        float sceneDepth = tDepth.sample(linearSampler, uv).r;
        if (sceneDepth >= 1.0) {
            continue;
        }
        float3 scenePos = reconstructWorldPos(uv, sceneDepth, frame);
        float marchView = abs((frame.view * float4(marchPos, 1.0)).z);
        float sceneView = abs((frame.view * float4(scenePos, 1.0)).z);
        float delta = marchView - sceneView;
        if (delta > 0.0 && delta < thickness + stepLen) {
            float2 edge = abs(uv * 2.0 - 1.0);
            float fade = 1.0 - smoothstep(0.7, 1.0, max(edge.x, edge.y));
            reflection = tScene.sample(linearSampler, uv).rgb;
            hit = fade;
            break;
        }
    }

    float strength = hit * (1.0 - roughness / 0.6);
    return float4(mix(scene, reflection, strength * 0.5), 1.0);
}
`

// TAA reprojects the history buffer through the previous view-projection,
// clamps it to the 3x3 neighborhood of the current frame in YCoCg space and
// blends. Feedback of 0 (first frame, post-resize) writes through.
const TAA = perFrameStruct + fullscreenVert + postParamsStruct + reconstructBlock + `
static float3 rgbToYCoCg(float3 c) {
    return float3(
        0.25 * c.r + 0.5 * c.g + 0.25 * c.b,
        0.5 * c.r - 0.5 * c.b,
        -0.25 * c.r + 0.5 * c.g - 0.25 * c.b);
}

static float3 yCoCgToRGB(float3 c) {
    return float3(
        c.x + c.y - c.z,
        c.x + c.z,
        c.x - c.y - c.z);
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tCurrent [[texture(13)]],
                             texture2d<float> tHistory [[texture(14)]]) {
    float2 vUV = in.uv;
    float3 current = tCurrent.sample(linearSampler, vUV).rgb;
    float feedback = params.params0.x;
    if (feedback <= 0.0) {
        return float4(current, 1.0);
    }

    // Reproject through the previous frame's camera.
    float depth = tDepth.sample(linearSampler, vUV).r;
    float3 worldPos = reconstructWorldPos(vUV, depth, frame);
    float4 prevClip = frame.prevViewProjection * float4(worldPos, 1.0);
    float2 prevUV = (prevClip.xy / prevClip.w) * 0.5 + 0.5;
    if (prevUV.x < 0.0 || prevUV.x > 1.0 || prevUV.y < 0.0 || prevUV.y > 1.0) {
        return float4(current, 1.0);
    }

    float3 history = tHistory.sample(linearSampler, prevUV).rgb;

    float2 texel = params.params0.yz;
    float3 minC = float3(1e9);
    float3 maxC = float3(-1e9);
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            float3 n = rgbToYCoCg(tCurrent.sample(linearSampler, vUV + float2(x, y) * texel).rgb);
            minC = min(minC, n);
            maxC = max(maxC, n);
        }
    }
    float3 clamped = yCoCgToRGB(clamp(rgbToYCoCg(history), minC, maxC));

    return float4(mix(current, clamped, feedback), 1.0);
}
`
