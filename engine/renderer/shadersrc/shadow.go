package shadersrc

// ShadowDepthVert is the depth-only cascade pass. The light-space transform
// already includes the model matrix, so the fragment stage is empty and the
// pipeline binds no fragment shader.
const ShadowDepthVert = `
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexcoord;
layout(location = 3) in vec3 aTangent;

UBO_BINDING(4) uniform ShadowPass {
    mat4 uLightSpaceModel;
};

void main() {
    gl_Position = uLightSpaceModel * vec4(aPosition, 1.0);
}
`
