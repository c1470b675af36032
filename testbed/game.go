package testbed

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/scene"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera   scene.Entity
	cubes    []scene.Entity
	sphere   scene.Entity
	sun      scene.Entity
	yaw      float32
	pitch    float32
	distance float32
}

func NewTestGame(cfgPath string) (*TestGame, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				yaw:      0.6,
				pitch:    0.35,
				distance: 14.0,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogInfo("initializing testbed scene")
	s := e.Scene()
	state := g.State.(*gameState)

	state.camera = s.CreateEntity()
	s.SetCamera(state.camera, &scene.CameraComponent{
		FOV:      math.DegToRad(60),
		NearClip: 0.1,
		FarClip:  200.0,
		Active:   true,
	})

	// Ground plane.
	ground := s.CreateEntity()
	s.SetMesh(ground, &scene.MeshComponent{
		Mesh:        resources.NewPlaneMesh("ground", 40, 40, 8, 8),
		CastShadows: false,
		LODAlpha:    1,
	})
	groundMat := resources.NewDefaultMaterial()
	groundMat.Name = "ground"
	groundMat.AlbedoColor = math.NewVec4(0.35, 0.35, 0.38, 1)
	groundMat.Roughness = 0.9
	s.SetMaterial(ground, &scene.MaterialComponent{Material: groundMat})

	// A row of cubes with roughness sweeping 0.1 to 0.9.
	for i := 0; i < 5; i++ {
		cube := s.CreateEntity()
		s.SetMesh(cube, &scene.MeshComponent{
			Mesh:        resources.NewCubeMesh("cube", 2, 2, 2),
			CastShadows: true,
			LODAlpha:    1,
		})
		mat := resources.NewDefaultMaterial()
		mat.Name = "cube"
		mat.AlbedoColor = math.NewVec4(0.8, 0.2, 0.2, 1)
		mat.Metallic = 0.9
		mat.Roughness = 0.1 + float32(i)*0.2
		s.SetMaterial(cube, &scene.MaterialComponent{Material: mat})
		s.Transform(cube).SetPosition(math.NewVec3(float32(i-2)*3.5, 1.0, 0))
		state.cubes = append(state.cubes, cube)
	}

	// A clearcoat sphere.
	state.sphere = s.CreateEntity()
	s.SetMesh(state.sphere, &scene.MeshComponent{
		Mesh:        resources.NewSphereMesh("sphere", 1.5, 32, 48),
		CastShadows: true,
		LODAlpha:    1,
	})
	sphereMat := resources.NewDefaultMaterial()
	sphereMat.Name = "sphere"
	sphereMat.AlbedoColor = math.NewVec4(0.1, 0.3, 0.8, 1)
	sphereMat.Roughness = 0.4
	sphereMat.Clearcoat = 1.0
	sphereMat.ClearcoatRoughness = 0.1
	s.SetMaterial(state.sphere, &scene.MaterialComponent{Material: sphereMat})
	s.Transform(state.sphere).SetPosition(math.NewVec3(0, 1.5, 5))

	// Sun plus a couple of fill lights.
	state.sun = s.CreateEntity()
	s.SetDirectionalLight(state.sun, &scene.DirectionalLightComponent{
		Direction: math.NewVec3(-0.4, -1.0, -0.3),
		Color:     math.NewVec3(1.0, 0.96, 0.9),
		Intensity: 3.0,
	})

	fill := s.CreateEntity()
	s.SetPointLight(fill, &scene.PointLightComponent{
		Color:     math.NewVec3(0.3, 0.5, 1.0),
		Intensity: 8.0,
		Range:     15.0,
	})
	s.Transform(fill).SetPosition(math.NewVec3(-6, 4, 4))

	// Procedural sky environment (no HDR file shipped with the testbed).
	env := s.CreateEntity()
	s.SetEnvironment(env, &scene.EnvironmentComponent{Intensity: 1.0})

	return nil
}

func (g *TestGame) Update(e *engine.Engine, s *scene.Scene, delta float64) error {
	state := g.State.(*gameState)

	// Slow tumble on the cubes.
	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), float32(0.5*delta), false)
	for _, cube := range state.cubes {
		s.Transform(cube).Rotate(rotation)
	}

	g.updateCamera(s, state, delta)
	return nil
}

// updateCamera is a simple orbit rig: WASD orbits, Q/E zooms.
func (g *TestGame) updateCamera(s *scene.Scene, state *gameState, delta float64) {
	speed := float32(delta)
	if core.InputIsKeyDown(core.KEY_A) {
		state.yaw -= speed
	}
	if core.InputIsKeyDown(core.KEY_D) {
		state.yaw += speed
	}
	if core.InputIsKeyDown(core.KEY_W) {
		state.pitch = clamp(state.pitch+speed, -1.2, 1.2)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		state.pitch = clamp(state.pitch-speed, -1.2, 1.2)
	}
	if core.InputIsKeyDown(core.KEY_Q) {
		state.distance = clamp(state.distance-speed*10, 4, 60)
	}
	if core.InputIsKeyDown(core.KEY_E) {
		state.distance = clamp(state.distance+speed*10, 4, 60)
	}

	x := state.distance * kcos(state.pitch) * ksin(state.yaw)
	y := state.distance * ksin(state.pitch)
	z := state.distance * kcos(state.pitch) * kcos(state.yaw)
	eye := math.NewVec3(x, y+1, z)

	t := s.Transform(state.camera)
	t.SetPosition(eye)
	t.SetRotation(lookRotation(eye, math.NewVec3(0, 1, 0)))
}

func (g *TestGame) OnResize(width, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down")
	return nil
}

// lookRotation builds the quaternion that orients -Z from eye toward target.
func lookRotation(eye, target math.Vec3) math.Quaternion {
	forward := target.Sub(eye).Normalized()
	yaw := katan2(forward.X, forward.Z)
	pitch := kasin(-forward.Y)
	qYaw := math.NewQuatFromAxisAngle(math.NewVec3Up(), yaw+kpi, false)
	qPitch := math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), pitch, false)
	return qYaw.Mul(qPitch)
}

const kpi = float32(gomath.Pi)

func kcos(x float32) float32      { return float32(gomath.Cos(float64(x))) }
func ksin(x float32) float32      { return float32(gomath.Sin(float64(x))) }
func kasin(x float32) float32     { return float32(gomath.Asin(float64(x))) }
func katan2(y, x float32) float32 { return float32(gomath.Atan2(float64(y), float64(x))) }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
