package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

// uniformSlotCount matches the renderer's UniformSlot* constants.
const uniformSlotCount = 5

// GLBackend implements renderer.Backend on an OpenGL 4.5+ core context. The
// context must be current on the calling goroutine before Initialize and stay
// there; GL is not thread-safe and the engine never calls the backend from
// more than one goroutine.
type GLBackend struct {
	width  uint32
	height uint32

	// One persistent UBO per slot, orphaned on every upload so the driver
	// can pipeline draws without a sync point.
	uniformBuffers [uniformSlotCount]uint32
	// Empty VAO for attribute-less fullscreen triangles.
	emptyVAO uint32
	// Scratch FBO for cubemap-face passes.
	cubeFBO uint32

	currentShader *glShader
	inPass        bool
	passIsCube    bool
}

// New returns an uninitialized backend.
func New() *GLBackend {
	return &GLBackend{}
}

func (b *GLBackend) Initialize(appName string, width, height uint32) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("opengl init: %w", err)
	}
	b.width = width
	b.height = height

	version := gl.GoStr(gl.GetString(gl.VERSION))
	vendor := gl.GoStr(gl.GetString(gl.RENDERER))
	core.LogInfo("OpenGL backend for %s: %s on %s", appName, version, vendor)

	gl.GenVertexArrays(1, &b.emptyVAO)
	gl.GenFramebuffers(1, &b.cubeFBO)

	for i := range b.uniformBuffers {
		gl.GenBuffers(1, &b.uniformBuffers[i])
		gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(i), b.uniformBuffers[i])
	}

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	gl.Disable(gl.BLEND)
	return nil
}

func (b *GLBackend) Shutdown() error {
	for i := range b.uniformBuffers {
		if b.uniformBuffers[i] != 0 {
			gl.DeleteBuffers(1, &b.uniformBuffers[i])
			b.uniformBuffers[i] = 0
		}
	}
	if b.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &b.emptyVAO)
		b.emptyVAO = 0
	}
	if b.cubeFBO != 0 {
		gl.DeleteFramebuffers(1, &b.cubeFBO)
		b.cubeFBO = 0
	}
	return nil
}

func (b *GLBackend) Resized(width, height uint32) error {
	b.width = width
	b.height = height
	return nil
}

func (b *GLBackend) BeginFrame(deltaTime float64) error { return nil }

func (b *GLBackend) EndFrame(deltaTime float64) error { return nil }

func (b *GLBackend) BeginPass(desc renderer.PassDesc) error {
	if b.inPass {
		return fmt.Errorf("pass %q begun inside another pass", desc.Label)
	}
	b.inPass = true
	b.passIsCube = false

	var fbw, fbh uint32
	switch {
	case desc.TargetCube != nil:
		cube, ok := desc.TargetCube.(*glTexture)
		if !ok {
			return fmt.Errorf("pass %q: foreign cubemap texture", desc.Label)
		}
		b.passIsCube = true
		gl.BindFramebuffer(gl.FRAMEBUFFER, b.cubeFBO)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0,
			gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(desc.Face), cube.id, int32(desc.Mip))
		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			return fmt.Errorf("pass %q: cube face framebuffer incomplete (0x%x)", desc.Label, status)
		}
		fbw, fbh = desc.ViewportWidth, desc.ViewportHeight
	case desc.Target != nil:
		rt, ok := desc.Target.(*glRenderTarget)
		if !ok {
			return fmt.Errorf("pass %q: foreign render target", desc.Label)
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
		fbw, fbh = rt.width, rt.height
	default:
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		fbw, fbh = b.width, b.height
	}
	if desc.ViewportWidth != 0 {
		fbw = desc.ViewportWidth
	}
	if desc.ViewportHeight != 0 {
		fbh = desc.ViewportHeight
	}
	gl.Viewport(0, 0, int32(fbw), int32(fbh))

	var clearBits uint32
	if desc.ClearColor != nil {
		c := *desc.ClearColor
		gl.ClearColor(c.X, c.Y, c.Z, c.W)
		clearBits |= gl.COLOR_BUFFER_BIT
	}
	if desc.ClearDepth {
		// Depth writes must be on for the clear to land.
		gl.DepthMask(true)
		gl.ClearDepth(1.0)
		clearBits |= gl.DEPTH_BUFFER_BIT
	}
	if clearBits != 0 {
		gl.Clear(clearBits)
	}
	return nil
}

func (b *GLBackend) EndPass() error {
	if !b.inPass {
		return fmt.Errorf("EndPass without BeginPass")
	}
	if b.passIsCube {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, 0, 0)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	b.inPass = false
	b.currentShader = nil
	return nil
}

func (b *GLBackend) BindShader(shader renderer.Shader) error {
	s, ok := shader.(*glShader)
	if !ok {
		return fmt.Errorf("foreign shader %q", shader.Name())
	}
	gl.UseProgram(s.program)
	applyPipelineState(s.desc)
	b.currentShader = s
	return nil
}

func (b *GLBackend) BindUniform(slot int, data []byte) error {
	if slot < 0 || slot >= uniformSlotCount {
		return fmt.Errorf("uniform slot %d out of range", slot)
	}
	buf := b.uniformBuffers[slot]
	gl.BindBuffer(gl.UNIFORM_BUFFER, buf)
	// Orphan then upload.
	gl.BufferData(gl.UNIFORM_BUFFER, len(data), nil, gl.DYNAMIC_DRAW)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(slot), buf)
	return nil
}

func (b *GLBackend) BindTexture(slot int, texture renderer.Texture) error {
	t, ok := texture.(*glTexture)
	if !ok {
		return fmt.Errorf("foreign texture at slot %d", slot)
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
	gl.BindTexture(t.target, t.id)
	return nil
}

func (b *GLBackend) DrawMesh(mesh renderer.Mesh) error {
	m, ok := mesh.(*glMesh)
	if !ok {
		return fmt.Errorf("foreign mesh")
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, int32(m.indexCount), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
	return nil
}

func (b *GLBackend) DrawFullscreen() error {
	gl.BindVertexArray(b.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	return nil
}

func (b *GLBackend) CopyTarget(src, dst renderer.RenderTarget) error {
	s, ok := src.(*glRenderTarget)
	if !ok {
		return fmt.Errorf("foreign source target")
	}
	d, ok := dst.(*glRenderTarget)
	if !ok {
		return fmt.Errorf("foreign destination target")
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, d.fbo)
	gl.BlitFramebuffer(
		0, 0, int32(s.width), int32(s.height),
		0, 0, int32(d.width), int32(d.height),
		gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (b *GLBackend) BlitToSwapchain(src renderer.RenderTarget) error {
	s, ok := src.(*glRenderTarget)
	if !ok {
		return fmt.Errorf("foreign source target")
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(
		0, 0, int32(s.width), int32(s.height),
		0, 0, int32(b.width), int32(b.height),
		gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (b *GLBackend) GenerateMipmaps(texture renderer.Texture) error {
	t, ok := texture.(*glTexture)
	if !ok {
		return fmt.Errorf("foreign texture")
	}
	gl.BindTexture(t.target, t.id)
	gl.GenerateMipmap(t.target)
	gl.BindTexture(t.target, 0)
	return nil
}
