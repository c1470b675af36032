package shadersrc

import (
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	src := "void main() {}"

	gl := Compose(src, []string{"HAS_NORMAL_MAP"}, false)
	if !strings.HasPrefix(gl, "#version 450\n") {
		t.Fatal("composed source must start with the version directive")
	}
	if strings.Contains(gl, "#define VULKAN") {
		t.Fatal("GL composition must not define VULKAN")
	}
	if !strings.Contains(gl, "#define HAS_NORMAL_MAP 1") {
		t.Fatal("variant define missing")
	}
	if !strings.Contains(gl, src) {
		t.Fatal("source body missing")
	}

	vk := Compose(src, nil, true)
	if !strings.Contains(vk, "#define VULKAN 1") {
		t.Fatal("Vulkan composition must define VULKAN")
	}
	// Defines must land before the prelude so the dialect macros see them.
	if strings.Index(vk, "#define VULKAN 1") > strings.Index(vk, "UBO_BINDING") {
		t.Fatal("defines must precede the prelude")
	}
}

func TestSourcesReferenceDialectMacros(t *testing.T) {
	// Every fragment source that binds resources must go through the
	// dialect macros, never raw layout(set=...) qualifiers.
	sources := map[string]string{
		"gbuffer.frag":  GBufferFrag,
		"lighting":      DeferredLightingFrag,
		"skybox":        SkyboxFrag,
		"ssao":          SSAOFrag,
		"ssr":           SSRFrag,
		"taa":           TAAFrag,
		"composite":     CompositeFrag,
		"fxaa":          FXAAFrag,
		"bloom.extract": BloomExtractFrag,
	}
	for name, src := range sources {
		if strings.Contains(src, "layout(set") {
			t.Errorf("%s uses a raw set qualifier instead of the dialect macros", name)
		}
		if !strings.Contains(src, "UBO_BINDING") && !strings.Contains(src, "TEX_BINDING") {
			t.Errorf("%s binds nothing through the dialect macros", name)
		}
	}
}

func TestFullscreenVertUsesVertexIndex(t *testing.T) {
	if !strings.Contains(FullscreenVert, "VERTEX_INDEX") {
		t.Fatal("fullscreen vertex shader must use the portable vertex index macro")
	}
}
