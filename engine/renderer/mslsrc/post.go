package mslsrc

// BloomExtract keeps pixels whose luminance exceeds the threshold
// (params0.x) and zeroes the rest.
const BloomExtract = fullscreenVert + postParamsStruct + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tScene [[texture(13)]]) {
    float3 c = tScene.sample(linearSampler, in.uv).rgb;
    float luma = dot(c, float3(0.2126, 0.7152, 0.0722));
    return float4(luma > params.params0.x ? c : float3(0.0), 1.0);
}
`

// BloomBlur is one direction of the separable 5-tap Gaussian; params0.xy
// selects the axis.
const BloomBlur = fullscreenVert + postParamsStruct + `
constant float weights[5] = {0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216};

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tSource [[texture(13)]]) {
    float2 texel = 1.0 / float2(tSource.get_width(), tSource.get_height());
    float2 dir = params.params0.xy * texel;

    float3 result = tSource.sample(linearSampler, in.uv).rgb * weights[0];
    for (int i = 1; i < 5; i++) {
        result += tSource.sample(linearSampler, in.uv + dir * float(i)).rgb * weights[i];
        result += tSource.sample(linearSampler, in.uv - dir * float(i)).rgb * weights[i];
    }
    return float4(result, 1.0);
}
`

// linearDepthBlock converts a depth-buffer sample to eye-space distance.
// Needs near/far in params1.xy.
const linearDepthBlock = `
static float linearizeDepth(float depth, constant PostParams& params) {
    float near = params.params1.x;
    float far = params.params1.y;
    float z = depth * 2.0 - 1.0;
    return 2.0 * near * far / (far + near - z * (far - near));
}

static float circleOfConfusion(float depth, constant PostParams& params) {
    float dist = linearizeDepth(depth, params);
    return clamp(abs(dist - params.params0.x) / max(params.params0.y, 1e-4), 0.0, 1.0);
}
`

// DOFBlur is one direction of the CoC-weighted separable blur at half
// resolution. params0: focusDistance, focusRange, bokehRadius; params2.xy:
// blur axis.
const DOFBlur = fullscreenVert + postParamsStruct + linearDepthBlock + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tScene [[texture(13)]]) {
    float2 texel = 1.0 / float2(tScene.get_width(), tScene.get_height());
    float2 dir = params.params2.xy * texel;
    float radius = params.params0.z;

    float centerCoC = circleOfConfusion(tDepth.sample(linearSampler, in.uv).r, params);

    float3 sum = float3(0.0);
    float weightSum = 0.0;
    for (int i = -4; i <= 4; i++) {
        float2 uv = in.uv + dir * float(i) * radius * 0.25;
        float coc = circleOfConfusion(tDepth.sample(linearSampler, uv).r, params);
        // Taps blur no wider than their own CoC allows, so sharp foreground
        // objects do not smear over the background.
        float w = max(centerCoC, coc);
        sum += tScene.sample(linearSampler, uv).rgb * w;
        weightSum += w;
    }
    float3 color = weightSum > 0.0 ? sum / weightSum : tScene.sample(linearSampler, in.uv).rgb;
    return float4(color, 1.0);
}
`

// DOFComposite blends the sharp scene with the blurred half-resolution layer
// by the per-pixel circle of confusion.
const DOFComposite = fullscreenVert + postParamsStruct + linearDepthBlock + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tSharp [[texture(13)]],
                             texture2d<float> tBlurred [[texture(14)]]) {
    float coc = circleOfConfusion(tDepth.sample(linearSampler, in.uv).r, params);
    float3 sharp = tSharp.sample(linearSampler, in.uv).rgb;
    float3 blurred = tBlurred.sample(linearSampler, in.uv).rgb;
    return float4(mix(sharp, blurred, smoothstep(0.1, 1.0, coc)), 1.0);
}
`

// MotionBlur blurs along the per-pixel velocity derived from camera
// reprojection. params0: intensity, samples, maxVelocity.
const MotionBlur = perFrameStruct + fullscreenVert + postParamsStruct + reconstructBlock + `
fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PerFrame& frame [[buffer(1)]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tDepth [[texture(4)]],
                             texture2d<float> tScene [[texture(13)]]) {
    float2 vUV = in.uv;
    float depth = tDepth.sample(linearSampler, vUV).r;
    if (depth >= 1.0) {
        return tScene.sample(linearSampler, vUV);
    }

    float3 worldPos = reconstructWorldPos(vUV, depth, frame);
    float4 prevClip = frame.prevViewProjection * float4(worldPos, 1.0);
    float2 prevUV = (prevClip.xy / prevClip.w) * 0.5 + 0.5;

    float2 velocity = (vUV - prevUV) * params.params0.x;
    float maxVel = params.params0.z;
    float len = length(velocity);
    if (len > maxVel) {
        velocity *= maxVel / len;
    }

    int samples = int(params.params0.y);
    float3 sum = float3(0.0);
    for (int i = 0; i < samples; i++) {
        float t = float(i) / float(max(samples - 1, 1)) - 0.5;
        sum += tScene.sample(linearSampler, vUV + velocity * t).rgb;
    }
    return float4(sum / float(samples), 1.0);
}
`

// Composite performs tone mapping, optional bloom add, color grading,
// vignette and the final gamma encode. params0: bloomEnabled, bloomIntensity,
// operator, gamma; params1: gradingEnabled, brightness, contrast,
// saturation; params2: vignetteEnabled, intensity, radius, softness.
const Composite = fullscreenVert + postParamsStruct + `
static float3 toneMapReinhard(float3 c) {
    return c / (c + float3(1.0));
}

static float3 toneMapACES(float3 c) {
    return clamp((c * (2.51 * c + 0.03)) / (c * (2.43 * c + 0.59) + 0.14), 0.0, 1.0);
}

static float3 uncharted2Partial(float3 x) {
    const float A = 0.15, B = 0.50, C = 0.10, D = 0.20, E = 0.02, F = 0.30;
    return ((x * (A * x + C * B) + D * E) / (x * (A * x + B) + D * F)) - E / F;
}

static float3 toneMapUncharted2(float3 c) {
    const float W = 11.2;
    float3 mapped = uncharted2Partial(c * 2.0);
    return clamp(mapped / uncharted2Partial(float3(W)), 0.0, 1.0);
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tScene [[texture(13)]],
                             texture2d<float> tBloom [[texture(14)]]) {
    float3 hdr = tScene.sample(linearSampler, in.uv).rgb;
    if (params.params0.x > 0.5) {
        hdr += tBloom.sample(linearSampler, in.uv).rgb * params.params0.y;
    }

    int op = int(params.params0.z);
    float3 ldr;
    if (op == 0)      ldr = toneMapReinhard(hdr);
    else if (op == 2) ldr = toneMapUncharted2(hdr);
    else              ldr = toneMapACES(hdr);

    if (params.params1.x > 0.5) {
        ldr *= params.params1.y;
        ldr = (ldr - 0.5) * params.params1.z + 0.5;
        float luma = dot(ldr, float3(0.2126, 0.7152, 0.0722));
        ldr = mix(float3(luma), ldr, params.params1.w);
        ldr = clamp(ldr, 0.0, 1.0);
    }

    if (params.params2.x > 0.5) {
        float dist = length(in.uv - 0.5);
        float v = smoothstep(params.params2.z, params.params2.z - params.params2.w, dist);
        ldr *= mix(1.0 - params.params2.y, 1.0, v);
    }

    return float4(pow(ldr, float3(1.0 / params.params0.w)), 1.0);
}
`

// FXAA is the standard luminance-gradient FXAA pass over the LDR image.
// params0.xy: texel size.
const FXAA = fullscreenVert + postParamsStruct + `
constant float FXAA_SPAN_MAX = 8.0;
constant float FXAA_REDUCE_MUL = 1.0 / 8.0;
constant float FXAA_REDUCE_MIN = 1.0 / 128.0;

static float luma(float3 c) {
    return dot(c, float3(0.299, 0.587, 0.114));
}

fragment float4 fragmentMain(FSOut in [[stage_in]],
                             constant PostParams& params [[buffer(5)]],
                             texture2d<float> tScene [[texture(13)]]) {
    float2 vUV = in.uv;
    float2 texel = params.params0.xy;

    float3 rgbNW = tScene.sample(linearSampler, vUV + float2(-1.0, -1.0) * texel).rgb;
    float3 rgbNE = tScene.sample(linearSampler, vUV + float2(1.0, -1.0) * texel).rgb;
    float3 rgbSW = tScene.sample(linearSampler, vUV + float2(-1.0, 1.0) * texel).rgb;
    float3 rgbSE = tScene.sample(linearSampler, vUV + float2(1.0, 1.0) * texel).rgb;
    float3 rgbM = tScene.sample(linearSampler, vUV).rgb;

    float lumaNW = luma(rgbNW), lumaNE = luma(rgbNE);
    float lumaSW = luma(rgbSW), lumaSE = luma(rgbSE);
    float lumaM = luma(rgbM);

    float lumaMin = min(lumaM, min(min(lumaNW, lumaNE), min(lumaSW, lumaSE)));
    float lumaMax = max(lumaM, max(max(lumaNW, lumaNE), max(lumaSW, lumaSE)));

    float2 dir = float2(
        -((lumaNW + lumaNE) - (lumaSW + lumaSE)),
        ((lumaNW + lumaSW) - (lumaNE + lumaSE)));

    float dirReduce = max((lumaNW + lumaNE + lumaSW + lumaSE) * 0.25 * FXAA_REDUCE_MUL, FXAA_REDUCE_MIN);
    float rcpDirMin = 1.0 / (min(abs(dir.x), abs(dir.y)) + dirReduce);
    dir = clamp(dir * rcpDirMin, -FXAA_SPAN_MAX, FXAA_SPAN_MAX) * texel;

    float3 rgbA = 0.5 * (
        tScene.sample(linearSampler, vUV + dir * (1.0 / 3.0 - 0.5)).rgb +
        tScene.sample(linearSampler, vUV + dir * (2.0 / 3.0 - 0.5)).rgb);
    float3 rgbB = rgbA * 0.5 + 0.25 * (
        tScene.sample(linearSampler, vUV + dir * -0.5).rgb +
        tScene.sample(linearSampler, vUV + dir * 0.5).rgb);

    float lumaB = luma(rgbB);
    return float4((lumaB < lumaMin || lumaB > lumaMax) ? rgbA : rgbB, 1.0);
}
`
