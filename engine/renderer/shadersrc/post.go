package shadersrc

// postParamsBlock is the generic slot-4 parameter block of the
// post-processing passes.
const postParamsBlock = `
UBO_BINDING(4) uniform PostParams {
    vec4 uParams0;
    vec4 uParams1;
    vec4 uParams2;
    vec4 uParams3;
};
`

// BloomExtractFrag keeps pixels whose luminance exceeds the threshold
// (uParams0.x) and zeroes the rest.
const BloomExtractFrag = postParamsBlock + `
TEX_BINDING(13) uniform sampler2D tScene;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

void main() {
    vec3 c = texture(tScene, vUV).rgb;
    float luma = dot(c, vec3(0.2126, 0.7152, 0.0722));
    oColor = vec4(luma > uParams0.x ? c : vec3(0.0), 1.0);
}
`

// BloomBlurFrag is one direction of the separable 5-tap Gaussian;
// uParams0.xy selects the axis.
const BloomBlurFrag = postParamsBlock + `
TEX_BINDING(13) uniform sampler2D tSource;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

const float weights[5] = float[5](0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);

void main() {
    vec2 texel = 1.0 / vec2(textureSize(tSource, 0));
    vec2 dir = uParams0.xy * texel;

    vec3 result = texture(tSource, vUV).rgb * weights[0];
    for (int i = 1; i < 5; i++) {
        result += texture(tSource, vUV + dir * float(i)).rgb * weights[i];
        result += texture(tSource, vUV - dir * float(i)).rgb * weights[i];
    }
    oColor = vec4(result, 1.0);
}
`

// linearDepthBlock converts a depth-buffer sample to eye-space distance.
// Needs near/far in uParams1.xy.
const linearDepthBlock = `
float linearizeDepth(float depth) {
    float near = uParams1.x;
    float far = uParams1.y;
    float z = depth * 2.0 - 1.0;
    return 2.0 * near * far / (far + near - z * (far - near));
}

float circleOfConfusion(float depth) {
    float dist = linearizeDepth(depth);
    return clamp(abs(dist - uParams0.x) / max(uParams0.y, 1e-4), 0.0, 1.0);
}
`

// DOFBlurFrag is one direction of the CoC-weighted separable blur at half
// resolution. uParams0: focusDistance, focusRange, bokehRadius; uParams2.xy:
// blur axis.
const DOFBlurFrag = postParamsBlock + `
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tScene;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + linearDepthBlock + `

void main() {
    vec2 texel = 1.0 / vec2(textureSize(tScene, 0));
    vec2 dir = uParams2.xy * texel;
    float radius = uParams0.z;

    float centerCoC = circleOfConfusion(texture(tDepth, vUV).r);

    vec3 sum = vec3(0.0);
    float weightSum = 0.0;
    for (int i = -4; i <= 4; i++) {
        vec2 uv = vUV + dir * float(i) * radius * 0.25;
        float coc = circleOfConfusion(texture(tDepth, uv).r);
        // Taps blur no wider than their own CoC allows, so sharp foreground
        // objects do not smear over the background.
        float w = max(centerCoC, coc);
        sum += texture(tScene, uv).rgb * w;
        weightSum += w;
    }
    oColor = vec4(weightSum > 0.0 ? sum / weightSum : texture(tScene, vUV).rgb, 1.0);
}
`

// DOFCompositeFrag blends the sharp scene with the blurred half-resolution
// layer by the per-pixel circle of confusion.
const DOFCompositeFrag = postParamsBlock + `
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tSharp;
TEX_BINDING(14) uniform sampler2D tBlurred;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + linearDepthBlock + `

void main() {
    float coc = circleOfConfusion(texture(tDepth, vUV).r);
    vec3 sharp = texture(tSharp, vUV).rgb;
    vec3 blurred = texture(tBlurred, vUV).rgb;
    oColor = vec4(mix(sharp, blurred, smoothstep(0.1, 1.0, coc)), 1.0);
}
`

// MotionBlurFrag blurs along the per-pixel velocity derived from camera
// reprojection. uParams0: intensity, samples, maxVelocity.
const MotionBlurFrag = PerFrameBlock + postParamsBlock + `
TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tScene;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + ReconstructBlock + `

void main() {
    float depth = texture(tDepth, vUV).r;
    if (depth >= 1.0) {
        oColor = texture(tScene, vUV);
        return;
    }

    vec3 worldPos = reconstructWorldPos(vUV, depth);
    vec4 prevClip = uPrevViewProjection * vec4(worldPos, 1.0);
    vec2 prevUV = (prevClip.xy / prevClip.w) * 0.5 + 0.5;

    vec2 velocity = (vUV - prevUV) * uParams0.x;
    float maxVel = uParams0.z;
    float len = length(velocity);
    if (len > maxVel) {
        velocity *= maxVel / len;
    }

    int samples = int(uParams0.y);
    vec3 sum = vec3(0.0);
    for (int i = 0; i < samples; i++) {
        float t = float(i) / float(max(samples - 1, 1)) - 0.5;
        sum += texture(tScene, vUV + velocity * t).rgb;
    }
    oColor = vec4(sum / float(samples), 1.0);
}
`

// CompositeFrag performs tone mapping, optional bloom add, color grading,
// vignette and the final gamma encode. uParams0: bloomEnabled, bloomIntensity,
// operator, gamma; uParams1: gradingEnabled, brightness, contrast,
// saturation; uParams2: vignetteEnabled, intensity, radius, softness.
const CompositeFrag = postParamsBlock + `
TEX_BINDING(13) uniform sampler2D tScene;
TEX_BINDING(14) uniform sampler2D tBloom;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

vec3 toneMapReinhard(vec3 c) {
    return c / (c + vec3(1.0));
}

vec3 toneMapACES(vec3 c) {
    return clamp((c * (2.51 * c + 0.03)) / (c * (2.43 * c + 0.59) + 0.14), 0.0, 1.0);
}

vec3 uncharted2Partial(vec3 x) {
    const float A = 0.15, B = 0.50, C = 0.10, D = 0.20, E = 0.02, F = 0.30;
    return ((x * (A * x + C * B) + D * E) / (x * (A * x + B) + D * F)) - E / F;
}

vec3 toneMapUncharted2(vec3 c) {
    const float W = 11.2;
    vec3 mapped = uncharted2Partial(c * 2.0);
    return clamp(mapped / uncharted2Partial(vec3(W)), 0.0, 1.0);
}

void main() {
    vec3 hdr = texture(tScene, vUV).rgb;
    if (uParams0.x > 0.5) {
        hdr += texture(tBloom, vUV).rgb * uParams0.y;
    }

    int op = int(uParams0.z);
    vec3 ldr;
    if (op == 0)      ldr = toneMapReinhard(hdr);
    else if (op == 2) ldr = toneMapUncharted2(hdr);
    else              ldr = toneMapACES(hdr);

    if (uParams1.x > 0.5) {
        ldr *= uParams1.y;
        ldr = (ldr - 0.5) * uParams1.z + 0.5;
        float luma = dot(ldr, vec3(0.2126, 0.7152, 0.0722));
        ldr = mix(vec3(luma), ldr, uParams1.w);
        ldr = clamp(ldr, 0.0, 1.0);
    }

    if (uParams2.x > 0.5) {
        float dist = length(vUV - 0.5);
        float v = smoothstep(uParams2.z, uParams2.z - uParams2.w, dist);
        ldr *= mix(1.0 - uParams2.y, 1.0, v);
    }

    oColor = vec4(pow(ldr, vec3(1.0 / uParams0.w)), 1.0);
}
`

// FXAAFrag is the standard luminance-gradient FXAA pass over the LDR image.
// uParams0.xy: texel size.
const FXAAFrag = postParamsBlock + `
TEX_BINDING(13) uniform sampler2D tScene;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

const float FXAA_SPAN_MAX = 8.0;
const float FXAA_REDUCE_MUL = 1.0 / 8.0;
const float FXAA_REDUCE_MIN = 1.0 / 128.0;

float luma(vec3 c) {
    return dot(c, vec3(0.299, 0.587, 0.114));
}

void main() {
    vec2 texel = uParams0.xy;

    vec3 rgbNW = texture(tScene, vUV + vec2(-1.0, -1.0) * texel).rgb;
    vec3 rgbNE = texture(tScene, vUV + vec2(1.0, -1.0) * texel).rgb;
    vec3 rgbSW = texture(tScene, vUV + vec2(-1.0, 1.0) * texel).rgb;
    vec3 rgbSE = texture(tScene, vUV + vec2(1.0, 1.0) * texel).rgb;
    vec3 rgbM = texture(tScene, vUV).rgb;

    float lumaNW = luma(rgbNW), lumaNE = luma(rgbNE);
    float lumaSW = luma(rgbSW), lumaSE = luma(rgbSE);
    float lumaM = luma(rgbM);

    float lumaMin = min(lumaM, min(min(lumaNW, lumaNE), min(lumaSW, lumaSE)));
    float lumaMax = max(lumaM, max(max(lumaNW, lumaNE), max(lumaSW, lumaSE)));

    vec2 dir = vec2(
        -((lumaNW + lumaNE) - (lumaSW + lumaSE)),
        ((lumaNW + lumaSW) - (lumaNE + lumaSE)));

    float dirReduce = max((lumaNW + lumaNE + lumaSW + lumaSE) * 0.25 * FXAA_REDUCE_MUL, FXAA_REDUCE_MIN);
    float rcpDirMin = 1.0 / (min(abs(dir.x), abs(dir.y)) + dirReduce);
    dir = clamp(dir * rcpDirMin, -FXAA_SPAN_MAX, FXAA_SPAN_MAX) * texel;

    vec3 rgbA = 0.5 * (
        texture(tScene, vUV + dir * (1.0 / 3.0 - 0.5)).rgb +
        texture(tScene, vUV + dir * (2.0 / 3.0 - 0.5)).rgb);
    vec3 rgbB = rgbA * 0.5 + 0.25 * (
        texture(tScene, vUV + dir * -0.5).rgb +
        texture(tScene, vUV + dir * 0.5).rgb);

    float lumaB = luma(rgbB);
    oColor = vec4((lumaB < lumaMin || lumaB > lumaMax) ? rgbA : rgbB, 1.0);
}
`
