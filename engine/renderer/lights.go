package renderer

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// FrameLightData is the transient per-frame light snapshot, rebuilt from
// scene queries every frame and never mutated in place.
type FrameLightData struct {
	PointPositions   []math.Vec3
	PointColors      []math.Vec3
	PointIntensities []float32
	PointRanges      []float32

	DirDirections  []math.Vec3
	DirColors      []math.Vec3
	DirIntensities []float32

	IBLEnabled   bool
	IBLIntensity float32
}

// GatherLights snapshots the scene's lights, clamping to the uniform-block
// capacity.
func GatherLights(s *scene.Scene) *FrameLightData {
	data := &FrameLightData{}

	s.EachPointLight(func(e scene.Entity, light *scene.PointLightComponent) {
		if len(data.PointPositions) >= MaxPointLights {
			core.LogWarn("point light on entity %d exceeds the %d-light limit, dropping", e, MaxPointLights)
			return
		}
		pos := s.WorldTransform(e).Position()
		data.PointPositions = append(data.PointPositions, pos)
		data.PointColors = append(data.PointColors, light.Color)
		data.PointIntensities = append(data.PointIntensities, light.Intensity)
		data.PointRanges = append(data.PointRanges, light.Range)
	})

	s.EachDirectionalLight(func(e scene.Entity, light *scene.DirectionalLightComponent) {
		if len(data.DirDirections) >= MaxDirectionalLights {
			return
		}
		if light.Direction.LengthSquared() == 0 {
			core.LogWarn("directional light on entity %d has zero direction, skipping", e)
			return
		}
		dir := light.Direction.Normalized()
		data.DirDirections = append(data.DirDirections, dir)
		data.DirColors = append(data.DirColors, light.Color)
		data.DirIntensities = append(data.DirIntensities, light.Intensity)
	})

	if _, env := s.ActiveEnvironment(); env != nil {
		data.IBLEnabled = true
		data.IBLIntensity = env.Intensity
	}
	return data
}

// PrimaryShadowLight returns the direction of the first directional light,
// the only shadow-casting light. ok is false when the scene has none.
func (f *FrameLightData) PrimaryShadowLight() (math.Vec3, bool) {
	if len(f.DirDirections) == 0 {
		return math.Vec3{}, false
	}
	return f.DirDirections[0], true
}

// fillLightsUBO writes the snapshot into the std140 block. Colors carry
// intensity in w; point positions carry range in w.
func (f *FrameLightData) fillLightsUBO(ubo *LightsUBO) {
	for i := range f.PointPositions {
		p := f.PointPositions[i]
		ubo.PointPositions[i] = math.Vec4{X: p.X, Y: p.Y, Z: p.Z, W: f.PointRanges[i]}
		c := f.PointColors[i]
		ubo.PointColors[i] = math.Vec4{X: c.X, Y: c.Y, Z: c.Z, W: f.PointIntensities[i]}
	}
	for i := range f.DirDirections {
		d := f.DirDirections[i]
		ubo.DirDirections[i] = math.Vec4{X: d.X, Y: d.Y, Z: d.Z}
		c := f.DirColors[i]
		ubo.DirColors[i] = math.Vec4{X: c.X, Y: c.Y, Z: c.Z, W: f.DirIntensities[i]}
	}
	iblEnabled := float32(0)
	if f.IBLEnabled {
		iblEnabled = 1
	}
	ubo.Counts = math.Vec4{
		X: float32(len(f.PointPositions)),
		Y: float32(len(f.DirDirections)),
		Z: iblEnabled,
		W: f.IBLIntensity,
	}
}
