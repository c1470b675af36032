package renderer

import (
	"fmt"
	gomath "math"

	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// CascadedShadowMap owns one depth-only render target per cascade plus the
// per-frame light-space matrices. Matrices are recomputed every frame from
// the current camera and light; they are never cached across frames.
type CascadedShadowMap struct {
	backend    Backend
	resolution uint32
	lambda     float32

	cascades []RenderTarget
	matrices []math.Mat4
	splits   []float32

	depthShader Shader
}

// NewCascadedShadowMap allocates numCascades square depth targets.
func NewCascadedShadowMap(backend Backend, resolution uint32, numCascades int, lambda float32, depthShader Shader) (*CascadedShadowMap, error) {
	if numCascades < 1 || numCascades > MaxShadowCascades {
		return nil, fmt.Errorf("cascade count %d out of range [1,%d]", numCascades, MaxShadowCascades)
	}
	csm := &CascadedShadowMap{
		backend:     backend,
		resolution:  resolution,
		lambda:      lambda,
		matrices:    make([]math.Mat4, numCascades),
		depthShader: depthShader,
	}
	for i := 0; i < numCascades; i++ {
		target, err := backend.CreateRenderTarget(RenderTargetDesc{
			Name:          fmt.Sprintf("shadow.cascade%d.%s", i, uuid.New().String()),
			Width:         resolution,
			Height:        resolution,
			HasDepth:      true,
			DepthReadable: true,
			Filter:        FilterLinear,
			Wrap:          WrapClampToBorder,
		})
		if err != nil {
			csm.Destroy()
			return nil, fmt.Errorf("cascade %d target: %w", i, err)
		}
		csm.cascades = append(csm.cascades, target)
	}
	return csm, nil
}

func (csm *CascadedShadowMap) NumCascades() int      { return len(csm.cascades) }
func (csm *CascadedShadowMap) Resolution() uint32    { return csm.resolution }
func (csm *CascadedShadowMap) Splits() []float32     { return csm.splits }
func (csm *CascadedShadowMap) Matrices() []math.Mat4 { return csm.matrices }

// CascadeTexture returns the depth texture of cascade i for lighting-pass
// sampling.
func (csm *CascadedShadowMap) CascadeTexture(i int) Texture {
	return csm.cascades[i].DepthTexture()
}

// Update recomputes split distances and a tight orthographic light-space
// matrix per cascade for the current camera.
func (csm *CascadedShadowMap) Update(camPos, camForward, camUp math.Vec3, fov, aspect, near, far float32, lightDir math.Vec3) {
	n := len(csm.cascades)
	csm.splits = shading.ComputeCascadeSplits(near, far, n, csm.lambda)

	for i := 0; i < n; i++ {
		csm.matrices[i] = lightSpaceMatrix(
			camPos, camForward, camUp, fov, aspect,
			csm.splits[i], csm.splits[i+1], lightDir,
		)
	}
}

// lightSpaceMatrix builds an orthographic projection enclosing the view
// frustum slice [sliceNear, sliceFar] as seen from the light direction.
func lightSpaceMatrix(camPos, camForward, camUp math.Vec3, fov, aspect, sliceNear, sliceFar float32, lightDir math.Vec3) math.Mat4 {
	corners := frustumSliceCorners(camPos, camForward, camUp, fov, aspect, sliceNear, sliceFar)

	center := math.Vec3{}
	for _, c := range corners {
		center = center.Add(c)
	}
	center = center.MulScalar(1.0 / float32(len(corners)))

	// Radius of the slice's bounding sphere keeps the ortho box stable as
	// the camera rotates.
	radius := float32(0)
	for _, c := range corners {
		radius = math.Max(radius, c.Distance(center))
	}

	up := math.NewVec3Up()
	if kabs32(lightDir.Normalized().Dot(up)) > 0.99 {
		up = math.NewVec3(0, 0, 1)
	}
	lightPos := center.Sub(lightDir.Normalized().MulScalar(radius * 2.0))
	lightView := math.NewMat4LookAt(lightPos, center, up)

	// Enclose the corners in light space.
	first := lightView.TransformPoint(corners[0])
	minB, maxB := first, first
	for _, c := range corners[1:] {
		p := lightView.TransformPoint(c)
		minB.X = math.Min(minB.X, p.X)
		minB.Y = math.Min(minB.Y, p.Y)
		minB.Z = math.Min(minB.Z, p.Z)
		maxB.X = math.Max(maxB.X, p.X)
		maxB.Y = math.Max(maxB.Y, p.Y)
		maxB.Z = math.Max(maxB.Z, p.Z)
	}

	// Pull the near plane back so casters behind the slice still shadow it.
	lightProjection := math.NewMat4Orthographic(
		minB.X, maxB.X, minB.Y, maxB.Y,
		-maxB.Z-radius*2.0, -minB.Z,
	)
	return lightProjection.Mul(lightView)
}

// frustumSliceCorners returns the 8 world-space corners of the camera
// frustum slice between the two view-space distances.
func frustumSliceCorners(camPos, camForward, camUp math.Vec3, fov, aspect, sliceNear, sliceFar float32) [8]math.Vec3 {
	right := camForward.Cross(camUp).Normalized()
	up := right.Cross(camForward).Normalized()

	tanHalf := tan32(fov * 0.5)

	var corners [8]math.Vec3
	for i, dist := range [2]float32{sliceNear, sliceFar} {
		hh := tanHalf * dist
		hw := hh * aspect
		c := camPos.Add(camForward.MulScalar(dist))
		corners[i*4+0] = c.Add(up.MulScalar(hh)).Add(right.MulScalar(hw))
		corners[i*4+1] = c.Add(up.MulScalar(hh)).Sub(right.MulScalar(hw))
		corners[i*4+2] = c.Sub(up.MulScalar(hh)).Add(right.MulScalar(hw))
		corners[i*4+3] = c.Sub(up.MulScalar(hh)).Sub(right.MulScalar(hw))
	}
	return corners
}

// Render draws all shadow-casting items depth-only into every cascade,
// culling front faces to reduce peter-panning.
func (csm *CascadedShadowMap) Render(items []RenderItem) error {
	for i, target := range csm.cascades {
		if err := csm.backend.BeginPass(PassDesc{
			Label:      fmt.Sprintf("shadow.cascade%d", i),
			Target:     target,
			ClearDepth: true,
			DepthOnly:  true,
		}); err != nil {
			return err
		}
		if err := csm.backend.BindShader(csm.depthShader); err != nil {
			return err
		}
		for _, item := range items {
			if !item.CastShadows {
				continue
			}
			ubo := ShadowPassUBO{LightSpace: csm.matrices[i].Mul(item.Model)}
			if err := csm.backend.BindUniform(UniformSlotParams, UniformBytes(&ubo)); err != nil {
				return err
			}
			if err := csm.backend.DrawMesh(item.Mesh); err != nil {
				return err
			}
		}
		if err := csm.backend.EndPass(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases the cascade targets. The depth shader is owned by the
// pipeline and not destroyed here.
func (csm *CascadedShadowMap) Destroy() {
	for _, t := range csm.cascades {
		if t != nil {
			t.Destroy()
		}
	}
	csm.cascades = nil
}

// shadowDepthShaderDesc is the depth-only pipeline used by every cascade.
// Front faces are culled, not back faces.
func shadowDepthShaderDesc(vert string) ShaderDesc {
	return ShaderDesc{
		Name:         "shadow.depth",
		VertexSource: vert,
		DepthTest:    true,
		DepthWrite:   true,
		CullMode:     resources.FaceCullModeFront,
		ColorTargets: 0,
	}
}

func kabs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func tan32(x float32) float32 {
	return float32(gomath.Tan(float64(x)))
}
