package mslsrc

import (
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	src := "fragment float4 fragmentMain() { return float4(0.0); }"

	out := Compose(src, []string{"HAS_NORMAL_MAP", "HAS_PARALLAX"})
	if !strings.Contains(out, "#define HAS_NORMAL_MAP 1") {
		t.Fatal("variant define missing")
	}
	if !strings.Contains(out, "#include <metal_stdlib>") {
		t.Fatal("prelude missing")
	}
	if !strings.Contains(out, src) {
		t.Fatal("source body missing")
	}
	// Defines must land before the prelude and the body.
	if strings.Index(out, "#define HAS_PARALLAX 1") > strings.Index(out, "metal_stdlib") {
		t.Fatal("defines must precede the prelude")
	}

	plain := Compose(src, nil)
	if strings.Contains(plain, "#define HAS") {
		t.Fatal("composition without defines emitted defines")
	}
}

func TestSourceCoversEveryPipelineShader(t *testing.T) {
	names := []string{
		"deferred.lighting", "skybox", "shadow.depth",
		"ssao", "ssao.blur", "ssr", "taa",
		"bloom.extract", "bloom.blur", "dof.blur", "dof.composite",
		"motionblur", "composite", "fxaa",
		"ibl.equirect", "ibl.irradiance", "ibl.prefilter", "ibl.brdflut",
	}
	for _, name := range names {
		src, ok := Source(name)
		if !ok {
			t.Errorf("no MSL source for %q", name)
			continue
		}
		if !strings.Contains(src, "vertexMain") {
			t.Errorf("%q has no vertexMain entry point", name)
		}
		if name != "shadow.depth" && !strings.Contains(src, "fragmentMain") {
			t.Errorf("%q has no fragmentMain entry point", name)
		}
	}

	// The depth-only pass binds no fragment function.
	if src, _ := Source("shadow.depth"); strings.Contains(src, "fragmentMain") {
		t.Error("shadow.depth must not carry a fragment function")
	}

	if _, ok := Source("nonsense"); ok {
		t.Error("unknown shader name resolved to a source")
	}
}

func TestGBufferVariantsShareOneSource(t *testing.T) {
	base, ok := Source("gbuffer.base")
	if !ok {
		t.Fatal("gbuffer.base unresolved")
	}
	variant, ok := Source("gbuffer.v00000003")
	if !ok {
		t.Fatal("gbuffer variant unresolved")
	}
	if base != variant {
		t.Fatal("variants must share the single G-Buffer source")
	}
	// Feature code is guarded by the defines the variant cache passes in.
	for _, feature := range []string{"HAS_ALBEDO_MAP", "HAS_NORMAL_MAP", "HAS_PARALLAX", "HAS_LOD_DITHER", "HAS_ALPHA_CUTOFF"} {
		if !strings.Contains(base, feature) {
			t.Errorf("G-Buffer source missing the %s block", feature)
		}
	}
}

func TestSourcesKeepLightingConstantsAligned(t *testing.T) {
	// The MSL lighting pass must carry the same model constants as the GLSL
	// source and the CPU reference.
	checks := []string{
		"CLEARCOAT_F0 = 0.04",
		"SUBSURFACE_WRAP = 0.5",
		"AMBIENT_FLOOR = 0.03",
		"MAX_POINT_LIGHTS 16",
		"MAX_DIR_LIGHTS 4",
		"MAX_CASCADES 4",
	}
	for _, c := range checks {
		if !strings.Contains(DeferredLighting, c) {
			t.Errorf("lighting source missing %q", c)
		}
	}
}
