package scene

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
)

func TestEntityLifecycle(t *testing.T) {
	s := New()
	e := s.CreateEntity()
	if e == InvalidEntity {
		t.Fatal("CreateEntity returned the invalid entity")
	}
	if !s.IsAlive(e) {
		t.Fatal("fresh entity not alive")
	}
	if s.Transform(e) == nil {
		t.Fatal("fresh entity has no transform")
	}

	s.SetMesh(e, &MeshComponent{LODAlpha: 1})
	if _, ok := s.Mesh(e); !ok {
		t.Fatal("mesh component missing")
	}

	s.DestroyEntity(e)
	if s.IsAlive(e) {
		t.Fatal("destroyed entity still alive")
	}
	if _, ok := s.Mesh(e); ok {
		t.Fatal("destroyed entity kept its mesh")
	}
}

func TestEntityIDsNeverReused(t *testing.T) {
	s := New()
	a := s.CreateEntity()
	s.DestroyEntity(a)
	b := s.CreateEntity()
	if a == b {
		t.Fatal("entity id reused after destroy")
	}
}

func TestActiveCamera(t *testing.T) {
	s := New()
	if _, cam := s.ActiveCamera(); cam != nil {
		t.Fatal("empty scene has a camera")
	}

	inactive := s.CreateEntity()
	s.SetCamera(inactive, &CameraComponent{Active: false})
	if _, cam := s.ActiveCamera(); cam != nil {
		t.Fatal("inactive camera reported active")
	}

	active := s.CreateEntity()
	s.SetCamera(active, &CameraComponent{Active: true})
	e, cam := s.ActiveCamera()
	if cam == nil || e != active {
		t.Fatalf("active camera = %v, want %v", e, active)
	}
}

func TestWorldTransformParentChain(t *testing.T) {
	s := New()
	parent := s.CreateEntity()
	child := s.CreateEntity()

	s.Transform(parent).SetPosition(math.NewVec3(10, 0, 0))
	s.Transform(child).SetPosition(math.NewVec3(0, 5, 0))
	s.Transform(child).Parent = s.Transform(parent)

	world := s.WorldTransform(child)
	pos := world.Position()
	if !pos.Compare(math.NewVec3(10, 5, 0), 1e-5) {
		t.Fatalf("child world position = %v", pos)
	}
}

func TestEachMeshDeterministicOrder(t *testing.T) {
	s := New()
	var created []Entity
	for i := 0; i < 8; i++ {
		e := s.CreateEntity()
		s.SetMesh(e, &MeshComponent{LODAlpha: 1})
		created = append(created, e)
	}
	for run := 0; run < 3; run++ {
		var got []Entity
		s.EachMesh(func(e Entity, _ *MeshComponent) { got = append(got, e) })
		if len(got) != len(created) {
			t.Fatalf("iterated %d meshes, want %d", len(got), len(created))
		}
		for i := range got {
			if got[i] != created[i] {
				t.Fatalf("run %d: order %v, want %v", run, got, created)
			}
		}
	}
}
