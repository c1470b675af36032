package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer.Backend != Default().Renderer.Backend {
		t.Fatalf("backend = %q, want default", cfg.Renderer.Backend)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	content := `
[window]
title = "Test"
width = 1920
height = 1080

[renderer]
backend = "vulkan"
cascade_count = 3

[post]
tone_mapping = "reinhard"
bloom = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "Test" || cfg.Window.Width != 1920 {
		t.Fatalf("window = %+v", cfg.Window)
	}
	if cfg.Renderer.Backend != BackendVulkan {
		t.Fatalf("backend = %q", cfg.Renderer.Backend)
	}
	if cfg.Renderer.CascadeCount != 3 {
		t.Fatalf("cascades = %d", cfg.Renderer.CascadeCount)
	}
	if cfg.Post.ToneMapping != "reinhard" || !cfg.Post.BloomEnabled {
		t.Fatalf("post = %+v", cfg.Post)
	}
	// Unset keys keep their defaults.
	if cfg.Renderer.ShadowResolution != Default().Renderer.ShadowResolution {
		t.Fatalf("shadow resolution = %d, want default", cfg.Renderer.ShadowResolution)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("window = {{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed file must fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"metal backend", func(c *Config) { c.Renderer.Backend = BackendMetal }, true},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "directx" }, false},
		{"zero window", func(c *Config) { c.Window.Width = 0 }, false},
		{"too many cascades", func(c *Config) { c.Renderer.CascadeCount = 5 }, false},
		{"zero cascades", func(c *Config) { c.Renderer.CascadeCount = 0 }, false},
		{"lambda over 1", func(c *Config) { c.Renderer.PSSMLambda = 1.5 }, false},
		{"zero gamma", func(c *Config) { c.Post.Gamma = 0 }, false},
		{"unknown tone mapping", func(c *Config) { c.Post.ToneMapping = "filmic2000" }, false},
		{"empty tone mapping", func(c *Config) { c.Post.ToneMapping = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
