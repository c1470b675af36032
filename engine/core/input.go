package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions. Values match the platform layer's translation table.
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_ENTER     KeyCode = 0x0D
	KEY_TAB       KeyCode = 0x09
	KEY_SHIFT     KeyCode = 0x10
	KEY_CONTROL   KeyCode = 0x11
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_B         KeyCode = 0x42
	KEY_C         KeyCode = 0x43
	KEY_D         KeyCode = 0x44
	KEY_E         KeyCode = 0x45
	KEY_F         KeyCode = 0x46
	KEY_Q         KeyCode = 0x51
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_W         KeyCode = 0x57
	KEY_Z         KeyCode = 0x5A
	KEYS_MAX_KEYS KeyCode = 0x100
)

type keyboardState struct {
	keys [KEYS_MAX_KEYS]bool
}

type mouseState struct {
	x, y    int16
	buttons [BUTTON_MAX_BUTTONS]bool
}

type inputState struct {
	keyboardCurrent  keyboardState
	keyboardPrevious keyboardState
	mouseCurrent     mouseState
	mousePrevious    mouseState
}

var input *inputState

func InputInitialize() {
	input = &inputState{}
}

func InputShutdown() {
	input = nil
}

// InputUpdate rolls current state into previous state. Called once per frame
// after the game update has consumed input.
func InputUpdate(_ float64) {
	if input == nil {
		return
	}
	input.keyboardPrevious = input.keyboardCurrent
	input.mousePrevious = input.mouseCurrent
}

func InputProcessKey(key KeyCode, pressed bool) {
	if input == nil || input.keyboardCurrent.keys[key] == pressed {
		return
	}
	input.keyboardCurrent.keys[key] = pressed

	context := EventContext{}
	context.Data.U16[0] = uint16(key)
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(code, nil, context)
}

func InputProcessButton(button Button, pressed bool) {
	if input == nil || input.mouseCurrent.buttons[button] == pressed {
		return
	}
	input.mouseCurrent.buttons[button] = pressed

	context := EventContext{}
	context.Data.U16[0] = uint16(button)
	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	EventFire(code, nil, context)
}

func InputProcessMouseMove(x, y int16) {
	if input == nil || (input.mouseCurrent.x == x && input.mouseCurrent.y == y) {
		return
	}
	input.mouseCurrent.x = x
	input.mouseCurrent.y = y

	context := EventContext{}
	context.Data.U16[0] = uint16(x)
	context.Data.U16[1] = uint16(y)
	EventFire(EVENT_CODE_MOUSE_MOVED, nil, context)
}

func InputProcessMouseWheel(delta float32) {
	context := EventContext{}
	context.Data.F32[0] = delta
	EventFire(EVENT_CODE_MOUSE_WHEEL, nil, context)
}

func InputIsKeyDown(key KeyCode) bool {
	return input != nil && input.keyboardCurrent.keys[key]
}

func InputWasKeyDown(key KeyCode) bool {
	return input != nil && input.keyboardPrevious.keys[key]
}

func InputIsButtonDown(button Button) bool {
	return input != nil && input.mouseCurrent.buttons[button]
}

func InputMousePosition() (int16, int16) {
	if input == nil {
		return 0, 0
	}
	return input.mouseCurrent.x, input.mouseCurrent.y
}

func InputMouseDelta() (int16, int16) {
	if input == nil {
		return 0, 0
	}
	return input.mouseCurrent.x - input.mousePrevious.x,
		input.mouseCurrent.y - input.mousePrevious.y
}
