//go:build !darwin

package engine

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

func (e *Engine) newMetalBackend(cfg config.RendererConfig) (renderer.Backend, error) {
	return nil, fmt.Errorf("the metal backend is only available on darwin")
}
