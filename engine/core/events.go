package core

import "sync"

// EventContext carries a small fixed payload alongside a fired event. Which
// fields are meaningful depends on the event code.
type EventContext struct {
	Data struct {
		U32 [4]uint32
		F32 [4]float32
		U16 [8]uint16
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. u16[0] = key code.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. u16[0] = key code.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Mouse button pressed. u16[0] = button.
	EVENT_CODE_BUTTON_PRESSED SystemEventCode = 0x04

	// Mouse button released. u16[0] = button.
	EVENT_CODE_BUTTON_RELEASED SystemEventCode = 0x05

	// Mouse moved. u16[0] = x, u16[1] = y.
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06

	// Mouse wheel. f32[0] = delta.
	EVENT_CODE_MOUSE_WHEEL SystemEventCode = 0x07

	// Resized/resolution changed from the OS. u32[0] = width, u32[1] = height.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

const MAX_MESSAGE_CODES = 4096

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	registered [MAX_MESSAGE_CODES][]*registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState

func EventInitialize() {
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
}

func EventShutdown() error {
	if eventState == nil {
		return nil
	}
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		eventState.registered[i] = nil
	}
	return nil
}

// EventRegister subscribes a listener/callback pair to a code. Duplicate
// listeners on the same code are rejected.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("event listener already registered for code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if eventState == nil {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire dispatches to listeners of the given code until one reports the
// event handled.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
