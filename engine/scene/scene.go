package scene

import (
	"sort"

	"github.com/spaghettifunk/lumen/engine/math"
)

// Scene is a minimal entity-component store. Component mutation is expected
// from a single thread; the renderer only ever reads it during a frame.
type Scene struct {
	nextEntity Entity
	alive      map[Entity]bool

	transforms        map[Entity]*math.Transform
	meshes            map[Entity]*MeshComponent
	materials         map[Entity]*MaterialComponent
	cameras           map[Entity]*CameraComponent
	pointLights       map[Entity]*PointLightComponent
	directionalLights map[Entity]*DirectionalLightComponent
	environments      map[Entity]*EnvironmentComponent
}

func New() *Scene {
	return &Scene{
		nextEntity:        1,
		alive:             make(map[Entity]bool),
		transforms:        make(map[Entity]*math.Transform),
		meshes:            make(map[Entity]*MeshComponent),
		materials:         make(map[Entity]*MaterialComponent),
		cameras:           make(map[Entity]*CameraComponent),
		pointLights:       make(map[Entity]*PointLightComponent),
		directionalLights: make(map[Entity]*DirectionalLightComponent),
		environments:      make(map[Entity]*EnvironmentComponent),
	}
}

func (s *Scene) CreateEntity() Entity {
	e := s.nextEntity
	s.nextEntity++
	s.alive[e] = true
	s.transforms[e] = math.TransformCreate()
	return e
}

func (s *Scene) DestroyEntity(e Entity) {
	delete(s.alive, e)
	delete(s.transforms, e)
	delete(s.meshes, e)
	delete(s.materials, e)
	delete(s.cameras, e)
	delete(s.pointLights, e)
	delete(s.directionalLights, e)
	delete(s.environments, e)
}

func (s *Scene) IsAlive(e Entity) bool { return s.alive[e] }

func (s *Scene) SetMesh(e Entity, c *MeshComponent)             { s.meshes[e] = c }
func (s *Scene) SetMaterial(e Entity, c *MaterialComponent)     { s.materials[e] = c }
func (s *Scene) SetCamera(e Entity, c *CameraComponent)         { s.cameras[e] = c }
func (s *Scene) SetPointLight(e Entity, c *PointLightComponent) { s.pointLights[e] = c }
func (s *Scene) SetDirectionalLight(e Entity, c *DirectionalLightComponent) {
	s.directionalLights[e] = c
}
func (s *Scene) SetEnvironment(e Entity, c *EnvironmentComponent) { s.environments[e] = c }

func (s *Scene) Transform(e Entity) *math.Transform { return s.transforms[e] }

func (s *Scene) Mesh(e Entity) (*MeshComponent, bool) {
	c, ok := s.meshes[e]
	return c, ok
}

func (s *Scene) Material(e Entity) (*MaterialComponent, bool) {
	c, ok := s.materials[e]
	return c, ok
}

func (s *Scene) Camera(e Entity) (*CameraComponent, bool) {
	c, ok := s.cameras[e]
	return c, ok
}

func (s *Scene) PointLight(e Entity) (*PointLightComponent, bool) {
	c, ok := s.pointLights[e]
	return c, ok
}

func (s *Scene) DirectionalLight(e Entity) (*DirectionalLightComponent, bool) {
	c, ok := s.directionalLights[e]
	return c, ok
}

func (s *Scene) Environment(e Entity) (*EnvironmentComponent, bool) {
	c, ok := s.environments[e]
	return c, ok
}

// WorldTransform resolves the entity's world matrix through its parent chain.
// Entities without a transform resolve to identity.
func (s *Scene) WorldTransform(e Entity) math.Mat4 {
	if t, ok := s.transforms[e]; ok {
		return t.World()
	}
	return math.NewMat4Identity()
}

// EachMesh iterates (entity, mesh) pairs in deterministic entity order.
func (s *Scene) EachMesh(fn func(e Entity, mesh *MeshComponent)) {
	for _, e := range sortedKeys(s.meshes) {
		fn(e, s.meshes[e])
	}
}

// EachPointLight iterates point lights in deterministic entity order.
func (s *Scene) EachPointLight(fn func(e Entity, light *PointLightComponent)) {
	for _, e := range sortedKeys(s.pointLights) {
		fn(e, s.pointLights[e])
	}
}

// EachDirectionalLight iterates directional lights in deterministic entity order.
func (s *Scene) EachDirectionalLight(fn func(e Entity, light *DirectionalLightComponent)) {
	for _, e := range sortedKeys(s.directionalLights) {
		fn(e, s.directionalLights[e])
	}
}

// ActiveCamera returns the first active camera entity, or InvalidEntity when
// the scene has none.
func (s *Scene) ActiveCamera() (Entity, *CameraComponent) {
	for _, e := range sortedKeys(s.cameras) {
		if s.cameras[e].Active {
			return e, s.cameras[e]
		}
	}
	return InvalidEntity, nil
}

// ActiveEnvironment returns the first environment component, or nil.
func (s *Scene) ActiveEnvironment() (Entity, *EnvironmentComponent) {
	for _, e := range sortedKeys(s.environments) {
		return e, s.environments[e]
	}
	return InvalidEntity, nil
}

func sortedKeys[T any](m map[Entity]T) []Entity {
	keys := make([]Entity, 0, len(m))
	for e := range m {
		keys = append(keys, e)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
