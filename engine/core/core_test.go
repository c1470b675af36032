package core

import "testing"

// The event and input systems are package-level singletons; reset them
// between tests so ordering does not matter.
func resetSystems(t *testing.T) {
	t.Helper()
	EventInitialize()
	if err := EventShutdown(); err != nil {
		t.Fatalf("EventShutdown: %v", err)
	}
	InputInitialize()
	t.Cleanup(InputShutdown)
}

func TestEventRegisterAndFire(t *testing.T) {
	resetSystems(t)

	var got EventContext
	fired := 0
	listener := &struct{}{}
	ok := EventRegister(EVENT_CODE_RESIZED, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		fired++
		got = data
		return true
	})
	if !ok {
		t.Fatal("EventRegister rejected a fresh listener")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 1280
	ctx.Data.U32[1] = 720
	if !EventFire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("EventFire reported unhandled")
	}
	if fired != 1 || got.Data.U32[0] != 1280 || got.Data.U32[1] != 720 {
		t.Fatalf("listener fired=%d payload=%v", fired, got.Data.U32)
	}
}

func TestEventRegisterRejectsDuplicateListener(t *testing.T) {
	resetSystems(t)

	listener := &struct{}{}
	cb := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }
	if !EventRegister(EVENT_CODE_KEY_PRESSED, listener, cb) {
		t.Fatal("first registration rejected")
	}
	if EventRegister(EVENT_CODE_KEY_PRESSED, listener, cb) {
		t.Fatal("duplicate listener accepted")
	}
}

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	resetSystems(t)

	order := []string{}
	la, lb := &struct{}{}, &struct{}{}
	EventRegister(EVENT_CODE_MOUSE_WHEEL, la, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		order = append(order, "a")
		return true
	})
	EventRegister(EVENT_CODE_MOUSE_WHEEL, lb, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		order = append(order, "b")
		return true
	})

	EventFire(EVENT_CODE_MOUSE_WHEEL, nil, EventContext{})
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("dispatch order %v, want first handler only", order)
	}
}

func TestEventUnregister(t *testing.T) {
	resetSystems(t)

	fired := 0
	listener := &struct{}{}
	EventRegister(EVENT_CODE_APPLICATION_QUIT, listener, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		fired++
		return true
	})
	if !EventUnregister(EVENT_CODE_APPLICATION_QUIT, listener) {
		t.Fatal("EventUnregister failed for a registered listener")
	}
	if EventUnregister(EVENT_CODE_APPLICATION_QUIT, listener) {
		t.Fatal("EventUnregister succeeded twice")
	}
	EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	if fired != 0 {
		t.Fatalf("unregistered listener fired %d times", fired)
	}
}

func TestInputKeyStateAndEvents(t *testing.T) {
	resetSystems(t)

	var pressedKey, releasedKey uint16
	lp, lr := &struct{}{}, &struct{}{}
	EventRegister(EVENT_CODE_KEY_PRESSED, lp, func(_ SystemEventCode, _, _ interface{}, data EventContext) bool {
		pressedKey = data.Data.U16[0]
		return true
	})
	EventRegister(EVENT_CODE_KEY_RELEASED, lr, func(_ SystemEventCode, _, _ interface{}, data EventContext) bool {
		releasedKey = data.Data.U16[0]
		return true
	})

	InputProcessKey(KEY_W, true)
	if !InputIsKeyDown(KEY_W) {
		t.Fatal("KEY_W not down after press")
	}
	if InputWasKeyDown(KEY_W) {
		t.Fatal("KEY_W reported down last frame before any update")
	}
	if pressedKey != uint16(KEY_W) {
		t.Fatalf("pressed event carried key %#x", pressedKey)
	}

	// Repeated press with no state change fires no event.
	pressedKey = 0
	InputProcessKey(KEY_W, true)
	if pressedKey != 0 {
		t.Fatal("repeat press fired an event")
	}

	InputUpdate(0.016)
	if !InputWasKeyDown(KEY_W) {
		t.Fatal("previous frame state not rolled over")
	}

	InputProcessKey(KEY_W, false)
	if InputIsKeyDown(KEY_W) {
		t.Fatal("KEY_W still down after release")
	}
	if releasedKey != uint16(KEY_W) {
		t.Fatalf("released event carried key %#x", releasedKey)
	}
}

func TestInputMouseDelta(t *testing.T) {
	resetSystems(t)

	InputProcessMouseMove(100, 50)
	InputUpdate(0.016)
	InputProcessMouseMove(110, 45)

	dx, dy := InputMouseDelta()
	if dx != 10 || dy != -5 {
		t.Fatalf("mouse delta (%d, %d), want (10, -5)", dx, dy)
	}
	x, y := InputMousePosition()
	if x != 110 || y != 45 {
		t.Fatalf("mouse position (%d, %d)", x, y)
	}
}

func TestInputButtons(t *testing.T) {
	resetSystems(t)

	InputProcessButton(BUTTON_LEFT, true)
	if !InputIsButtonDown(BUTTON_LEFT) {
		t.Fatal("left button not down")
	}
	InputProcessButton(BUTTON_LEFT, false)
	if InputIsButtonDown(BUTTON_LEFT) {
		t.Fatal("left button still down after release")
	}
}
