package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spaghettifunk/lumen/engine/resources"
)

// MaterialFeatures is a bitset of the material capabilities that change the
// geometry-pass shader. Each bit maps to one #define.
type MaterialFeatures uint32

const (
	FeatureAlbedoMap MaterialFeatures = 1 << iota
	FeatureNormalMap
	FeatureMetallicRoughnessMap
	FeatureAOMap
	FeatureEmissiveMap
	FeatureAlphaCutoff
	FeatureClearcoat
	FeatureParallax
	FeatureSubsurface
	FeatureLODDither
)

var featureDefines = map[MaterialFeatures]string{
	FeatureAlbedoMap:            "HAS_ALBEDO_MAP",
	FeatureNormalMap:            "HAS_NORMAL_MAP",
	FeatureMetallicRoughnessMap: "HAS_METALLIC_ROUGHNESS_MAP",
	FeatureAOMap:                "HAS_AO_MAP",
	FeatureEmissiveMap:          "HAS_EMISSIVE_MAP",
	FeatureAlphaCutoff:          "HAS_ALPHA_CUTOFF",
	FeatureClearcoat:            "HAS_CLEARCOAT",
	FeatureParallax:             "HAS_PARALLAX",
	FeatureSubsurface:           "HAS_SUBSURFACE",
	FeatureLODDither:            "HAS_LOD_DITHER",
}

// FeaturesForMaterial derives the variant key from which maps and extensions
// a material actually uses.
func FeaturesForMaterial(m *resources.Material, lodDither bool) MaterialFeatures {
	var f MaterialFeatures
	if m.AlbedoMap != "" {
		f |= FeatureAlbedoMap
	}
	if m.NormalMap != "" {
		f |= FeatureNormalMap
	}
	if m.MetallicRoughnessMap != "" {
		f |= FeatureMetallicRoughnessMap
	}
	if m.AOMap != "" {
		f |= FeatureAOMap
	}
	if m.EmissiveMap != "" {
		f |= FeatureEmissiveMap
	}
	if m.AlphaCutoff > 0 {
		f |= FeatureAlphaCutoff
	}
	if m.Clearcoat > 0 {
		f |= FeatureClearcoat
	}
	if m.HeightMap != "" {
		f |= FeatureParallax
	}
	if m.Subsurface > 0 {
		f |= FeatureSubsurface
	}
	if lodDither {
		f |= FeatureLODDither
	}
	return f
}

// Has reports whether every bit of the given feature is set.
func (f MaterialFeatures) Has(feature MaterialFeatures) bool {
	return f&feature == feature
}

// Defines returns the sorted define list for the feature set. Sorting keeps
// the key canonical so equal feature sets always produce the same variant.
func (f MaterialFeatures) Defines() []string {
	defines := make([]string, 0, 10)
	for bit, name := range featureDefines {
		if f&bit != 0 {
			defines = append(defines, name)
		}
	}
	sort.Strings(defines)
	return defines
}

// Key is a stable human-readable variant identifier, also used to name
// precompiled SPIR-V artifacts.
func (f MaterialFeatures) Key() string {
	if f == 0 {
		return "base"
	}
	return fmt.Sprintf("v%08x", uint32(f))
}

func (f MaterialFeatures) String() string {
	defines := f.Defines()
	if len(defines) == 0 {
		return "base"
	}
	return strings.Join(defines, "|")
}

// VariantCache memoizes compiled geometry-pass shader variants by feature
// key. Compile-once, cache-forever: a variant is never evicted while the
// cache lives. The cache is owned by the deferred pipeline, not a package
// global, so independent render contexts don't share GPU objects.
type VariantCache struct {
	backend Backend
	compile func(features MaterialFeatures) ShaderDesc
	shaders map[MaterialFeatures]Shader

	// hits/misses are kept for frame diagnostics.
	hits   uint64
	misses uint64
}

func NewVariantCache(backend Backend, compile func(features MaterialFeatures) ShaderDesc) *VariantCache {
	return &VariantCache{
		backend: backend,
		compile: compile,
		shaders: make(map[MaterialFeatures]Shader),
	}
}

// Get returns the compiled shader for a feature set, compiling it on first
// use.
func (vc *VariantCache) Get(features MaterialFeatures) (Shader, error) {
	if s, ok := vc.shaders[features]; ok {
		vc.hits++
		return s, nil
	}
	vc.misses++
	desc := vc.compile(features)
	desc.Defines = append(desc.Defines, features.Defines()...)
	s, err := vc.backend.CreateShader(desc)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", features.Key(), err)
	}
	vc.shaders[features] = s
	return s, nil
}

// Len reports the number of resident variants.
func (vc *VariantCache) Len() int { return len(vc.shaders) }

// Stats reports cache hits and misses since creation.
func (vc *VariantCache) Stats() (hits, misses uint64) { return vc.hits, vc.misses }

// Destroy releases every compiled variant.
func (vc *VariantCache) Destroy() {
	for _, s := range vc.shaders {
		s.Destroy()
	}
	vc.shaders = make(map[MaterialFeatures]Shader)
}
