package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

// WindowAPI selects how the window's drawable is set up, which depends on the
// rendering backend driving it.
type WindowAPI int

const (
	// WindowAPINone creates a surfaceless window (Vulkan, Metal).
	WindowAPINone WindowAPI = iota
	// WindowAPIOpenGL creates a 4.6 core profile context.
	WindowAPIOpenGL
)

type Platform struct {
	Window *glfw.Window
	api    WindowAPI
}

func New() (*Platform, error) {
	return &Platform{}, nil
}

func (p *Platform) Startup(applicationName string, api WindowAPI, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	p.api = api

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	switch api {
	case WindowAPIOpenGL:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 6)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	default:
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create window: %w", err)
	}
	p.Window = window

	if api == WindowAPIOpenGL {
		window.MakeContextCurrent()
		glfw.SwapInterval(1)
	} else if api == WindowAPINone {
		// Prepare the Vulkan loader so the backend can create an instance.
		vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
		if err := vk.Init(); err != nil {
			window.Destroy()
			glfw.Terminate()
			return fmt.Errorf("failed to initialize Vulkan loader: %w", err)
		}
	}

	window.SetKeyCallback(keyCallback)
	window.SetMouseButtonCallback(mouseButtonCallback)
	window.SetCursorPosCallback(cursorPosCallback)
	window.SetScrollCallback(scrollCallback)
	window.SetFramebufferSizeCallback(framebufferSizeCallback)
	window.SetPos(int(x), int(y))
	window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events; returns false once the window
// was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// SwapBuffers presents the GL backbuffer. A no-op for surfaceless APIs where
// the backend presents through its own swapchain.
func (p *Platform) SwapBuffers() {
	if p.api == WindowAPIOpenGL {
		p.Window.SwapBuffers()
	}
}

// FramebufferSize reports the drawable size in pixels, which can differ from
// the window size on high-DPI displays.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) AbsoluteTime() float64 {
	return glfw.GetTime()
}

// VulkanSurfaceFactory adapts the window to the Vulkan backend's surface
// constructor.
func (p *Platform) VulkanSurfaceFactory() func(instance vk.Instance) (vk.Surface, error) {
	return func(instance vk.Instance) (vk.Surface, error) {
		surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
		if err != nil {
			return vk.NullSurface, err
		}
		return vk.SurfaceFromPointer(surfacePtr), nil
	}
}

// RequiredVulkanExtensions lists the instance extensions the window system
// needs for presentation.
func (p *Platform) RequiredVulkanExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		core.InputProcessKey(code, true)
	case glfw.Release:
		core.InputProcessKey(code, false)
	}
}

func mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	core.InputProcessButton(b, action == glfw.Press)
}

func cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	core.InputProcessMouseMove(int16(xpos), int16(ypos))
}

func scrollCallback(w *glfw.Window, xoff, yoff float64) {
	core.InputProcessMouseWheel(float32(yoff))
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	context := core.EventContext{}
	context.Data.U32[0] = uint32(width)
	context.Data.U32[1] = uint32(height)
	core.EventFire(core.EVENT_CODE_RESIZED, w, context)
}

// translateKey maps GLFW keys onto the engine's key codes.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch key {
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE, true
	case glfw.KeyEnter:
		return core.KEY_ENTER, true
	case glfw.KeyTab:
		return core.KEY_TAB, true
	case glfw.KeyLeftShift, glfw.KeyRightShift:
		return core.KEY_SHIFT, true
	case glfw.KeyLeftControl, glfw.KeyRightControl:
		return core.KEY_CONTROL, true
	case glfw.KeyEscape:
		return core.KEY_ESCAPE, true
	case glfw.KeySpace:
		return core.KEY_SPACE, true
	case glfw.KeyLeft:
		return core.KEY_LEFT, true
	case glfw.KeyUp:
		return core.KEY_UP, true
	case glfw.KeyRight:
		return core.KEY_RIGHT, true
	case glfw.KeyDown:
		return core.KEY_DOWN, true
	case glfw.KeyA:
		return core.KEY_A, true
	case glfw.KeyB:
		return core.KEY_B, true
	case glfw.KeyC:
		return core.KEY_C, true
	case glfw.KeyD:
		return core.KEY_D, true
	case glfw.KeyE:
		return core.KEY_E, true
	case glfw.KeyF:
		return core.KEY_F, true
	case glfw.KeyQ:
		return core.KEY_Q, true
	case glfw.KeyR:
		return core.KEY_R, true
	case glfw.KeyS:
		return core.KEY_S, true
	case glfw.KeyW:
		return core.KEY_W, true
	case glfw.KeyZ:
		return core.KEY_Z, true
	default:
		return 0, false
	}
}
