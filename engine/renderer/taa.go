package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
)

// TAAPass accumulates the scene color against a history buffer, clamping
// history to the 3x3 neighborhood of the current frame in YCoCg space before
// blending. The first frame after creation or resize writes through without
// history.
type TAAPass struct {
	backend    Backend
	width      uint32
	height     uint32
	shader     Shader
	resolved   RenderTarget
	history    RenderTarget
	feedback   float32
	hasHistory bool
}

func newTAAPass(backend Backend, width, height uint32, desc ShaderDesc) (*TAAPass, error) {
	shader, err := backend.CreateShader(desc)
	if err != nil {
		return nil, fmt.Errorf("taa shader: %w", err)
	}
	return &TAAPass{
		backend:  backend,
		width:    width,
		height:   height,
		shader:   shader,
		feedback: shading.DefaultTAAFeedback,
	}, nil
}

// Resize invalidates history so the next frame writes through.
func (t *TAAPass) Resize(width, height uint32) {
	t.width = width
	t.height = height
	t.destroyTargets()
	t.hasHistory = false
}

// Resolve blends input against history and returns the resolved target.
func (t *TAAPass) Resolve(input RenderTarget, depth Texture, frame *PerFrameUBO) (RenderTarget, error) {
	if t.resolved == nil {
		var err error
		if t.resolved, err = t.createTarget("taa.resolved"); err != nil {
			return nil, err
		}
		if t.history, err = t.createTarget("taa.history"); err != nil {
			return nil, err
		}
	}

	feedback := t.feedback
	if !t.hasHistory {
		feedback = 0
	}
	params := PostParamsUBO{
		Params0: math.Vec4{
			X: feedback,
			Y: 1.0 / float32(t.width),
			Z: 1.0 / float32(t.height),
		},
	}

	clear := math.NewVec4(0, 0, 0, 1)
	if err := t.backend.BeginPass(PassDesc{Label: "taa.resolve", Target: t.resolved, ClearColor: &clear}); err != nil {
		return nil, err
	}
	if err := t.backend.BindShader(t.shader); err != nil {
		return nil, err
	}
	if err := t.backend.BindUniform(UniformSlotPerFrame, UniformBytes(frame)); err != nil {
		return nil, err
	}
	if err := t.backend.BindUniform(UniformSlotParams, UniformBytes(&params)); err != nil {
		return nil, err
	}
	if err := t.backend.BindTexture(TexSlotExtra0, input.ColorTexture(0)); err != nil {
		return nil, err
	}
	if err := t.backend.BindTexture(TexSlotExtra1, t.history.ColorTexture(0)); err != nil {
		return nil, err
	}
	if err := t.backend.BindTexture(TexSlotDepth, depth); err != nil {
		return nil, err
	}
	if err := t.backend.DrawFullscreen(); err != nil {
		return nil, err
	}
	if err := t.backend.EndPass(); err != nil {
		return nil, err
	}

	if err := t.backend.CopyTarget(t.resolved, t.history); err != nil {
		return nil, err
	}
	t.hasHistory = true
	return t.resolved, nil
}

func (t *TAAPass) createTarget(name string) (RenderTarget, error) {
	rt, err := t.backend.CreateRenderTarget(RenderTargetDesc{
		Name:         name,
		Width:        t.width,
		Height:       t.height,
		ColorFormats: []TextureFormat{FormatRGBA16F},
		Filter:       FilterLinear,
		Wrap:         WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("%s target: %w", name, err)
	}
	return rt, nil
}

func (t *TAAPass) destroyTargets() {
	if t.resolved != nil {
		t.resolved.Destroy()
		t.resolved = nil
	}
	if t.history != nil {
		t.history.Destroy()
		t.history = nil
	}
}

// Destroy releases targets and the resolve shader.
func (t *TAAPass) Destroy() {
	t.destroyTargets()
	if t.shader != nil {
		t.shader.Destroy()
	}
}
