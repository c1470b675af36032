package core

import (
	"errors"
)

var (
	// ErrSwapchainBooting signals that the swapchain was resized or recreated
	// mid-frame and the frame should be skipped, not treated as a failure.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	// ErrNoActiveCamera is reported when a frame is requested but the scene
	// has no camera; the renderer falls back to a flat clear.
	ErrNoActiveCamera = errors.New("no active camera in scene")
	ErrUnknown        = errors.New("unknown")
)
