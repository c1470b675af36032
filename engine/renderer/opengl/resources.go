package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/resources"
)

type glTexture struct {
	id     uint32
	target uint32 // TEXTURE_2D or TEXTURE_CUBE_MAP
	width  uint32
	height uint32
	format renderer.TextureFormat
}

func (t *glTexture) Width() uint32                  { return t.width }
func (t *glTexture) Height() uint32                 { return t.height }
func (t *glTexture) Format() renderer.TextureFormat { return t.format }
func (t *glTexture) Destroy() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

type glFormat struct {
	internal uint32
	layout   uint32
	dataType uint32
}

func mapFormat(f renderer.TextureFormat) (glFormat, error) {
	switch f {
	case renderer.FormatRGBA8:
		return glFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case renderer.FormatSRGBA8:
		return glFormat{gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case renderer.FormatRGBA16F:
		return glFormat{gl.RGBA16F, gl.RGBA, gl.FLOAT}, nil
	case renderer.FormatRG16F:
		return glFormat{gl.RG16F, gl.RG, gl.FLOAT}, nil
	case renderer.FormatR8:
		return glFormat{gl.R8, gl.RED, gl.UNSIGNED_BYTE}, nil
	case renderer.FormatDepth32F:
		return glFormat{gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT}, nil
	default:
		return glFormat{}, fmt.Errorf("unmapped texture format %d", f)
	}
}

func applySampler(target uint32, desc renderer.TextureDesc, mips uint32) {
	switch desc.Filter {
	case renderer.FilterNearest:
		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	case renderer.FilterTrilinear:
		min := int32(gl.LINEAR_MIPMAP_LINEAR)
		if mips <= 1 {
			min = gl.LINEAR
		}
		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, min)
		gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	default:
		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}

	wrap := int32(gl.REPEAT)
	switch desc.Wrap {
	case renderer.WrapClampToEdge:
		wrap = gl.CLAMP_TO_EDGE
	case renderer.WrapClampToBorder:
		wrap = gl.CLAMP_TO_BORDER
		border := []float32{1, 1, 1, 1}
		gl.TexParameterfv(target, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, wrap)
	if target == gl.TEXTURE_CUBE_MAP {
		gl.TexParameteri(target, gl.TEXTURE_WRAP_R, wrap)
	}
}

func (b *GLBackend) CreateTexture(desc renderer.TextureDesc) (renderer.Texture, error) {
	format, err := mapFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Name, err)
	}

	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	target := uint32(gl.TEXTURE_2D)
	if desc.Type == renderer.TextureTypeCube {
		target = gl.TEXTURE_CUBE_MAP
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(target, id)
	gl.TexStorage2D(target, int32(mips), format.internal, int32(desc.Width), int32(desc.Height))

	pixels := pixelPointer(desc)
	if pixels != nil {
		if desc.Type == renderer.TextureTypeCube {
			// The source buffer stacks the six faces +X,-X,+Y,-Y,+Z,-Z.
			faceBytes := faceByteSize(desc, format)
			base := uintptr(pixels)
			for face := 0; face < 6; face++ {
				gl.TexSubImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), 0, 0, 0,
					int32(desc.Width), int32(desc.Height),
					format.layout, format.dataType, unsafe.Pointer(base+uintptr(face)*faceBytes))
			}
		} else {
			gl.TexSubImage2D(target, 0, 0, 0, int32(desc.Width), int32(desc.Height),
				format.layout, format.dataType, pixels)
		}
	}
	applySampler(target, desc, mips)
	gl.BindTexture(target, 0)

	return &glTexture{
		id:     id,
		target: target,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

func pixelPointer(desc renderer.TextureDesc) unsafe.Pointer {
	if len(desc.PixelsF) > 0 {
		return gl.Ptr(desc.PixelsF)
	}
	if len(desc.Pixels) > 0 {
		return gl.Ptr(desc.Pixels)
	}
	return nil
}

func faceByteSize(desc renderer.TextureDesc, format glFormat) uintptr {
	channels := uintptr(4)
	if format.layout == gl.RG {
		channels = 2
	} else if format.layout == gl.RED {
		channels = 1
	}
	bytesPer := uintptr(1)
	if format.dataType == gl.FLOAT {
		bytesPer = 4
	}
	return uintptr(desc.Width) * uintptr(desc.Height) * channels * bytesPer
}

type glMesh struct {
	vao        uint32
	vbo        uint32
	ibo        uint32
	indexCount uint32
}

func (m *glMesh) IndexCount() uint32 { return m.indexCount }
func (m *glMesh) Destroy() {
	if m.ibo != 0 {
		gl.DeleteBuffers(1, &m.ibo)
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
	}
	m.vao, m.vbo, m.ibo = 0, 0, 0
}

// CreateMesh interleaves the Vertex3D layout: position, normal, texcoord,
// tangent (11 floats).
func (b *GLBackend) CreateMesh(data *resources.MeshData) (renderer.Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", data.Name)
	}

	const floatsPerVertex = 11
	verts := make([]float32, 0, len(data.Vertices)*floatsPerVertex)
	for _, v := range data.Vertices {
		verts = append(verts,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z)
	}

	m := &glMesh{indexCount: uint32(len(data.Indices))}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ibo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ibo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data.Indices)*4, gl.Ptr(data.Indices), gl.STATIC_DRAW)

	const stride = floatsPerVertex * 4
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(0)))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(6*4)))
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(8*4)))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return m, nil
}

type glRenderTarget struct {
	fbo    uint32
	width  uint32
	height uint32
	colors []*glTexture
	depth  *glTexture
}

func (rt *glRenderTarget) Width() uint32  { return rt.width }
func (rt *glRenderTarget) Height() uint32 { return rt.height }

func (rt *glRenderTarget) ColorTexture(index int) renderer.Texture {
	if index < 0 || index >= len(rt.colors) {
		return nil
	}
	return rt.colors[index]
}

func (rt *glRenderTarget) DepthTexture() renderer.Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}

func (rt *glRenderTarget) Destroy() {
	for _, c := range rt.colors {
		c.Destroy()
	}
	if rt.depth != nil {
		rt.depth.Destroy()
	}
	if rt.fbo != 0 {
		gl.DeleteFramebuffers(1, &rt.fbo)
		rt.fbo = 0
	}
}

func (b *GLBackend) CreateRenderTarget(desc renderer.RenderTargetDesc) (renderer.RenderTarget, error) {
	rt := &glRenderTarget{width: desc.Width, height: desc.Height}
	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)

	attach := func(format renderer.TextureFormat, attachment uint32) (*glTexture, error) {
		tex, err := b.CreateTexture(renderer.TextureDesc{
			Name:   desc.Name,
			Format: format,
			Width:  desc.Width,
			Height: desc.Height,
			Filter: desc.Filter,
			Wrap:   desc.Wrap,
		})
		if err != nil {
			return nil, err
		}
		t := tex.(*glTexture)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, t.id, 0)
		return t, nil
	}

	drawBuffers := make([]uint32, 0, len(desc.ColorFormats))
	for i, format := range desc.ColorFormats {
		t, err := attach(format, gl.COLOR_ATTACHMENT0+uint32(i))
		if err != nil {
			rt.Destroy()
			return nil, fmt.Errorf("target %q color %d: %w", desc.Name, i, err)
		}
		rt.colors = append(rt.colors, t)
		drawBuffers = append(drawBuffers, gl.COLOR_ATTACHMENT0+uint32(i))
	}

	if desc.HasDepth || len(desc.ColorFormats) == 0 {
		t, err := attach(renderer.FormatDepth32F, gl.DEPTH_ATTACHMENT)
		if err != nil {
			rt.Destroy()
			return nil, fmt.Errorf("target %q depth: %w", desc.Name, err)
		}
		rt.depth = t
	}

	if len(drawBuffers) > 0 {
		gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		rt.Destroy()
		return nil, fmt.Errorf("target %q framebuffer incomplete (0x%x)", desc.Name, status)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return rt, nil
}
