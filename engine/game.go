package engine

import (
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// Game is the application the engine drives. The hooks are plain function
// fields so a game can be assembled without embedding.
type Game struct {
	Config *config.Config
	State  interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(e *Engine) error
type Update func(e *Engine, s *scene.Scene, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
