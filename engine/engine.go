package engine

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/shading"
	"github.com/spaghettifunk/lumen/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.Manager
	renderer     *renderer.Renderer
	scene        *scene.Scene
	watcher      *assets.Watcher
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g.Config == nil {
		g.Config = config.Default()
	}
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	if g.Config.LogLevel != "" {
		core.SetLogLevel(g.Config.LogLevel)
	}

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: assets.NewManager(g.Config.Assets.Root),
		scene:        scene.New(),
		isRunning:    true,
		isSuspended:  false,
		width:        g.Config.Window.Width,
		height:       g.Config.Window.Height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.Config

	core.InputInitialize()
	core.EventInitialize()
	core.MetricsInitialize()

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	api := platform.WindowAPINone
	if cfg.Renderer.Backend == config.BackendOpenGL {
		api = platform.WindowAPIOpenGL
	}
	if err := e.platform.Startup(cfg.Window.Title, api,
		cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}

	backend, err := e.newBackend(cfg)
	if err != nil {
		return err
	}

	opts := pipelineOptionsFromConfig(cfg)
	opts.TextureLoader = e.assetManager.TextureLoader()
	r, err := renderer.New(backend, cfg.Window.Title, e.width, e.height, opts)
	if err != nil {
		return err
	}
	e.renderer = r
	e.renderer.SetPostProcess(postProcessFromConfig(cfg.Post))

	if cfg.Assets.HotReload {
		if err := e.startHotReload(); err != nil {
			core.LogWarn("asset hot reload disabled: %v", err)
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Scene exposes the entity store for game code.
func (e *Engine) Scene() *scene.Scene { return e.scene }

// Renderer exposes the renderer, mainly for post-process tweaks at runtime.
func (e *Engine) Renderer() *renderer.Renderer { return e.renderer }

// Assets exposes the asset manager.
func (e *Engine) Assets() *assets.Manager { return e.assetManager }

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, e.scene, delta); err != nil {
				core.LogFatal("Game update failed, shutting down: %v", err)
				e.isRunning = false
				break
			}
		}

		if err := e.renderer.DrawFrame(e.scene, currentTime, delta); err != nil {
			core.LogFatal("Frame draw failed, shutting down: %v", err)
			e.isRunning = false
			break
		}
		e.platform.SwapBuffers()

		core.MetricsUpdate(e.platform.AbsoluteTime() - frameStartTime)

		// Input state copying happens after anything that reads it this
		// frame.
		core.InputUpdate(delta)
		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false
	if e.watcher != nil {
		e.watcher.Close()
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %v", err)
		}
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			return err
		}
		e.renderer = nil
	}
	core.InputShutdown()
	if err := core.EventShutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("quit event received, shutting down")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_KEY_PRESSED {
		key := core.KeyCode(data.Data.U16[0])
		if key == core.KEY_ESCAPE {
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
			return true
		}
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending")
		e.isSuspended = true
		return true
	}
	e.isSuspended = false

	if err := e.renderer.OnResize(width, height); err != nil {
		core.LogError("resize failed: %v", err)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize hook failed: %v", err)
		}
	}
	return true
}

// newBackend builds the configured backend. Metal is only available on
// darwin; newMetalBackend has a stub on other platforms.
func (e *Engine) newBackend(cfg *config.Config) (renderer.Backend, error) {
	switch cfg.Renderer.Backend {
	case config.BackendOpenGL:
		return newOpenGLBackend(), nil
	case config.BackendVulkan:
		return newVulkanBackend(e.platform, cfg.Renderer), nil
	case config.BackendMetal:
		return e.newMetalBackend(cfg.Renderer)
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
	}
}

func (e *Engine) startHotReload() error {
	exts := []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".hdr"}
	w, err := assets.NewWatcher(exts, func(path string) {
		core.LogInfo("asset changed: %s", path)
		// Materials reference textures by root-relative path; evict both
		// spellings so the next reference reloads from disk.
		e.renderer.EvictTexture(path)
		if rel, err := filepath.Rel(e.assetManager.Root(), path); err == nil {
			e.renderer.EvictTexture(rel)
		}
	})
	if err != nil {
		return err
	}
	if err := w.Add(e.assetManager.Root()); err != nil {
		w.Close()
		return err
	}
	e.watcher = w
	return nil
}

// postProcessFromConfig maps the file-level post settings onto the renderer
// configuration, keeping the renderer defaults for anything the file does
// not express.
// pipelineOptionsFromConfig layers the configured renderer settings over the
// pipeline defaults; unset fields keep their default values.
func pipelineOptionsFromConfig(cfg *config.Config) renderer.PipelineOptions {
	opts := renderer.DefaultPipelineOptions()
	if cfg.Renderer.ShadowResolution > 0 {
		opts.ShadowResolution = cfg.Renderer.ShadowResolution
	}
	if cfg.Renderer.CascadeCount > 0 {
		opts.CascadeCount = cfg.Renderer.CascadeCount
	}
	if cfg.Renderer.PSSMLambda > 0 {
		opts.PSSMLambda = cfg.Renderer.PSSMLambda
	}
	if cfg.Renderer.IrradianceStep > 0 {
		opts.IrradianceStep = cfg.Renderer.IrradianceStep
	}
	return opts
}

func postProcessFromConfig(p config.PostConfig) renderer.PostProcessConfig {
	cfg := renderer.DefaultPostProcessConfig()
	cfg.BloomEnabled = p.BloomEnabled
	if p.BloomThreshold > 0 {
		cfg.BloomThreshold = p.BloomThreshold
	}
	if p.BloomIntensity > 0 {
		cfg.BloomIntensity = p.BloomIntensity
	}
	cfg.ToneMapping = shading.ParseToneMapOperator(p.ToneMapping)
	if p.Gamma > 0 {
		cfg.Gamma = p.Gamma
	}
	cfg.FXAAEnabled = p.FXAAEnabled
	cfg.SSAOEnabled = p.SSAOEnabled
	cfg.SSREnabled = p.SSREnabled
	cfg.TAAEnabled = p.TAAEnabled
	cfg.DOFEnabled = p.DOFEnabled
	cfg.MotionBlurEnabled = p.MotionBlur
	cfg.VignetteEnabled = p.Vignette
	return cfg
}
