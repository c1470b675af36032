// Package config loads engine settings from a TOML file, filling anything
// missing with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Backend names accepted in [renderer].
const (
	BackendOpenGL = "opengl"
	BackendVulkan = "vulkan"
	BackendMetal  = "metal"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	Backend          string  `toml:"backend"`
	ShadowResolution uint32  `toml:"shadow_resolution"`
	CascadeCount     int     `toml:"cascade_count"`
	PSSMLambda       float32 `toml:"pssm_lambda"`
	IrradianceStep   float32 `toml:"irradiance_step"`
	Validation       bool    `toml:"validation"`
	ShaderDir        string  `toml:"shader_dir"`
}

type PostConfig struct {
	BloomEnabled   bool    `toml:"bloom"`
	BloomThreshold float32 `toml:"bloom_threshold"`
	BloomIntensity float32 `toml:"bloom_intensity"`
	ToneMapping    string  `toml:"tone_mapping"`
	Gamma          float32 `toml:"gamma"`
	FXAAEnabled    bool    `toml:"fxaa"`
	SSAOEnabled    bool    `toml:"ssao"`
	SSREnabled     bool    `toml:"ssr"`
	TAAEnabled     bool    `toml:"taa"`
	DOFEnabled     bool    `toml:"dof"`
	MotionBlur     bool    `toml:"motion_blur"`
	Vignette       bool    `toml:"vignette"`
}

type AssetsConfig struct {
	Root      string `toml:"root"`
	HotReload bool   `toml:"hot_reload"`
}

type Config struct {
	LogLevel string         `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Post     PostConfig     `toml:"post"`
	Assets   AssetsConfig   `toml:"assets"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "debug",
		Window: WindowConfig{
			Title:  "Lumen",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:          BackendOpenGL,
			ShadowResolution: 2048,
			CascadeCount:     4,
			PSSMLambda:       0.95,
			IrradianceStep:   0.125,
		},
		Post: PostConfig{
			BloomEnabled:   true,
			BloomThreshold: 1.0,
			BloomIntensity: 0.8,
			ToneMapping:    "aces",
			Gamma:          2.2,
			FXAAEnabled:    true,
			SSAOEnabled:    true,
			TAAEnabled:     true,
		},
		Assets: AssetsConfig{
			Root:      "assets",
			HotReload: false,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogInfo("No config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Renderer.Backend {
	case BackendOpenGL, BackendVulkan, BackendMetal:
	default:
		return fmt.Errorf("unknown renderer backend %q", c.Renderer.Backend)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.CascadeCount < 1 || c.Renderer.CascadeCount > 4 {
		return fmt.Errorf("cascade_count must be 1..4, got %d", c.Renderer.CascadeCount)
	}
	if c.Renderer.PSSMLambda < 0 || c.Renderer.PSSMLambda > 1 {
		return fmt.Errorf("pssm_lambda must be 0..1, got %f", c.Renderer.PSSMLambda)
	}
	if c.Post.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %f", c.Post.Gamma)
	}
	switch c.Post.ToneMapping {
	case "", "reinhard", "aces", "uncharted2":
	default:
		return fmt.Errorf("unknown tone_mapping %q", c.Post.ToneMapping)
	}
	return nil
}
