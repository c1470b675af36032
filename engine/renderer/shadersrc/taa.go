package shadersrc

// TAAFrag reprojects the history buffer through the previous view-projection,
// clamps it to the 3x3 neighborhood of the current frame in YCoCg space and
// blends. Feedback of 0 (first frame, post-resize) writes through.
const TAAFrag = PerFrameBlock + `
UBO_BINDING(4) uniform TAAParams {
    vec4 uParams0; // x: feedback, y: 1/width, z: 1/height
    vec4 uParams1;
    vec4 uParams2;
    vec4 uParams3;
};

TEX_BINDING(4) uniform sampler2D tDepth;
TEX_BINDING(13) uniform sampler2D tCurrent;
TEX_BINDING(14) uniform sampler2D tHistory;

layout(location = 0) in vec2 vUV;
layout(location = 0) out vec4 oColor;

` + ReconstructBlock + `

vec3 rgbToYCoCg(vec3 c) {
    return vec3(
        0.25 * c.r + 0.5 * c.g + 0.25 * c.b,
        0.5 * c.r - 0.5 * c.b,
        -0.25 * c.r + 0.5 * c.g - 0.25 * c.b);
}

vec3 yCoCgToRGB(vec3 c) {
    return vec3(
        c.x + c.y - c.z,
        c.x + c.z,
        c.x - c.y - c.z);
}

void main() {
    vec3 current = texture(tCurrent, vUV).rgb;
    float feedback = uParams0.x;
    if (feedback <= 0.0) {
        oColor = vec4(current, 1.0);
        return;
    }

    // Reproject through the previous frame's camera.
    float depth = texture(tDepth, vUV).r;
    vec3 worldPos = reconstructWorldPos(vUV, depth);
    vec4 prevClip = uPrevViewProjection * vec4(worldPos, 1.0);
    vec2 prevUV = (prevClip.xy / prevClip.w) * 0.5 + 0.5;
    if (prevUV.x < 0.0 || prevUV.x > 1.0 || prevUV.y < 0.0 || prevUV.y > 1.0) {
        oColor = vec4(current, 1.0);
        return;
    }

    vec3 history = texture(tHistory, prevUV).rgb;

    vec2 texel = uParams0.yz;
    vec3 minC = vec3(1e9);
    vec3 maxC = vec3(-1e9);
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            vec3 n = rgbToYCoCg(texture(tCurrent, vUV + vec2(x, y) * texel).rgb);
            minC = min(minC, n);
            maxC = max(maxC, n);
        }
    }
    vec3 clamped = yCoCgToRGB(clamp(rgbToYCoCg(history), minC, maxC));

    oColor = vec4(mix(current, clamped, feedback), 1.0);
}
`
