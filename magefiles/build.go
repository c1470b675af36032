//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/shadersrc"
)

type Build mg.Namespace

const spvDir = "assets/shaders/spv"

// Binary compiles the engine with the testbed application.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Shaders precompiles every pipeline shader to SPIR-V with glslc. The Vulkan
// backend loads these by name at startup; OpenGL compiles the same sources
// at runtime and does not need this step.
func (Build) Shaders() error {
	if err := os.MkdirAll(spvDir, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "lumen-shaders")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for _, sd := range shaderDescs() {
		if err := compileShader(tmp, sd.Name, sd.VertexSource, sd.Defines, "vert"); err != nil {
			return err
		}
		if sd.FragmentSource == "" {
			continue
		}
		if err := compileShader(tmp, sd.Name, sd.FragmentSource, sd.Defines, "frag"); err != nil {
			return err
		}
	}
	return nil
}

func compileShader(tmp, name, source string, defines []string, stage string) error {
	composed := shadersrc.Compose(source, defines, true)
	src := filepath.Join(tmp, fmt.Sprintf("%s.%s", name, stage))
	if err := os.WriteFile(src, []byte(composed), 0o644); err != nil {
		return err
	}
	out := filepath.Join(spvDir, fmt.Sprintf("%s.%s.spv", name, stage))
	_, err := executeCmd("glslc", withArgs(src, "-o", out), withStream())
	return err
}

// shaderDescs lists everything the deferred pipeline can ask the Vulkan
// backend for. Geometry-pass variants are open-ended; the base variant, each
// single-feature variant and the all-features variant cover the testbed and
// give a template for adding project-specific combinations.
func shaderDescs() []renderer.ShaderDesc {
	shaders := renderer.DefaultShaders()

	descs := []renderer.ShaderDesc{
		shaders.Lighting,
		shaders.Skybox,
		shaders.SSAO,
		shaders.SSAOBlur,
		shaders.SSR,
		shaders.TAA,
		shaders.Post.Extract,
		shaders.Post.Blur,
		shaders.Post.DOFBlur,
		shaders.Post.DOFComposite,
		shaders.Post.MotionBlur,
		shaders.Post.Composite,
		shaders.Post.FXAA,
		shaders.IBL.EquirectToCube,
		shaders.IBL.Irradiance,
		shaders.IBL.Prefilter,
		shaders.IBL.BRDFLUT,
		{
			Name:         "shadow.depth",
			VertexSource: shaders.ShadowVert,
		},
	}

	for _, features := range gbufferVariants() {
		descs = append(descs, renderer.ShaderDesc{
			Name:           "gbuffer." + features.Key(),
			VertexSource:   shaders.GBufferVert,
			FragmentSource: shaders.GBufferFrag,
			Defines:        features.Defines(),
			ColorTargets:   4,
		})
	}
	return descs
}

func gbufferVariants() []renderer.MaterialFeatures {
	single := []renderer.MaterialFeatures{
		renderer.FeatureAlbedoMap,
		renderer.FeatureNormalMap,
		renderer.FeatureMetallicRoughnessMap,
		renderer.FeatureAOMap,
		renderer.FeatureEmissiveMap,
		renderer.FeatureAlphaCutoff,
		renderer.FeatureClearcoat,
		renderer.FeatureParallax,
		renderer.FeatureSubsurface,
		renderer.FeatureLODDither,
	}
	variants := []renderer.MaterialFeatures{0}
	var all renderer.MaterialFeatures
	for _, f := range single {
		variants = append(variants, f)
		all |= f
	}
	return append(variants, all)
}
