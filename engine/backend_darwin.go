package engine

import (
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metal"
)

func (e *Engine) newMetalBackend(cfg config.RendererConfig) (renderer.Backend, error) {
	return metal.New(e.platform.Window.GetCocoaWindow(), cfg.ShaderDir), nil
}
