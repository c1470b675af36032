package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/shadersrc"
	"github.com/spaghettifunk/lumen/engine/resources"
)

type glShader struct {
	name    string
	program uint32
	desc    renderer.ShaderDesc
}

func (s *glShader) Name() string { return s.name }
func (s *glShader) Destroy() {
	if s.program != 0 {
		gl.DeleteProgram(s.program)
		s.program = 0
	}
}

// CreateShader compiles and links GLSL at runtime. Depth-only pipelines
// (empty fragment source) link without a fragment stage.
func (b *GLBackend) CreateShader(desc renderer.ShaderDesc) (renderer.Shader, error) {
	vsSrc := shadersrc.Compose(desc.VertexSource, desc.Defines, false)
	vs, err := compileStage(vsSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("shader %q vertex: %w", desc.Name, err)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)

	var fs uint32
	if desc.FragmentSource != "" {
		fsSrc := shadersrc.Compose(desc.FragmentSource, desc.Defines, false)
		fs, err = compileStage(fsSrc, gl.FRAGMENT_SHADER)
		if err != nil {
			gl.DeleteShader(vs)
			gl.DeleteProgram(program)
			return nil, fmt.Errorf("shader %q fragment: %w", desc.Name, err)
		}
		gl.AttachShader(program, fs)
	}

	gl.LinkProgram(program)
	gl.DeleteShader(vs)
	if fs != 0 {
		gl.DeleteShader(fs)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("shader %q link: %s", desc.Name, strings.TrimRight(log, "\x00"))
	}
	return &glShader{name: desc.Name, program: program, desc: desc}, nil
}

func compileStage(src string, stage uint32) (uint32, error) {
	sh := gl.CreateShader(stage)
	csrc, free := gl.Strs(src + "\x00")
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

// applyPipelineState sets the fixed-function state a shader was described
// with. GL has no pipeline objects, so this runs on every bind.
func applyPipelineState(desc renderer.ShaderDesc) {
	if desc.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(desc.DepthWrite)

	switch desc.CullMode {
	case resources.FaceCullModeFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case resources.FaceCullModeBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	default:
		gl.Disable(gl.CULL_FACE)
	}

	if desc.BlendAdd {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	} else {
		gl.Disable(gl.BLEND)
	}
}
