package gui

import (
	"github.com/inkyblackness/imgui-go/v4"
	"github.com/vkngwrapper/guidemo/event"
)

// ioSink is the part of imgui.IO that window events are fed into.
type ioSink interface {
	SetMousePosition(imgui.Vec2)
	AddMouseWheelDelta(horizontal, vertical float32)
	KeyPress(key int)
	KeyRelease(key int)
	KeyShift(left, right int)
	KeyCtrl(left, right int)
	KeyAlt(left, right int)
	KeySuper(left, right int)
	AddInputCharacters(chars string)
	WantCaptureMouse() bool
	WantCaptureKeyboard() bool
}

// keyMap lists the keys ImGui navigates and edits text with. Event keys are
// scancodes, which is what the KeysDown array is indexed by.
var keyMap = map[int]event.Key{
	imgui.KeyTab:        event.KeyTab,
	imgui.KeyLeftArrow:  event.KeyLeft,
	imgui.KeyRightArrow: event.KeyRight,
	imgui.KeyUpArrow:    event.KeyUp,
	imgui.KeyDownArrow:  event.KeyDown,
	imgui.KeyPageUp:     event.KeyPageUp,
	imgui.KeyPageDown:   event.KeyPageDown,
	imgui.KeyHome:       event.KeyHome,
	imgui.KeyEnd:        event.KeyEnd,
	imgui.KeyInsert:     event.KeyInsert,
	imgui.KeyDelete:     event.KeyDelete,
	imgui.KeyBackspace:  event.KeyBackspace,
	imgui.KeySpace:      event.KeySpace,
	imgui.KeyEnter:      event.KeyReturn,
	imgui.KeyEscape:     event.KeyEscape,
	imgui.KeyA:          event.KeyA,
	imgui.KeyC:          event.KeyC,
	imgui.KeyV:          event.KeyV,
	imgui.KeyX:          event.KeyX,
	imgui.KeyY:          event.KeyY,
	imgui.KeyZ:          event.KeyZ,
}

// mouseState remembers presses until the next pass so that a click shorter
// than a frame is still seen.
type mouseState struct {
	down    [3]bool
	pressed [3]bool
}

func (m *mouseState) button(b event.Button, pressed bool) {
	if b < 0 || int(b) >= len(m.down) {
		return
	}
	m.down[b] = pressed
	if pressed {
		m.pressed[b] = true
	}
}

// frameButtons returns what ImGui should see as held this frame.
func (m *mouseState) frameButtons() [3]bool {
	var out [3]bool
	for i := range out {
		out[i] = m.down[i] || m.pressed[i]
		m.pressed[i] = false
	}
	return out
}

// feed hands ev to ImGui and reports whether ImGui claims it. Claims are
// based on the capture flags of the previous pass.
func feed(io ioSink, mouse *mouseState, ev event.Event) bool {
	switch e := ev.(type) {
	case event.MouseMoved:
		io.SetMousePosition(imgui.Vec2{X: e.X, Y: e.Y})
		return io.WantCaptureMouse()
	case event.MouseButton:
		mouse.button(e.Button, e.Pressed)
		return io.WantCaptureMouse()
	case event.MouseWheel:
		io.AddMouseWheelDelta(e.DX, e.DY)
		return io.WantCaptureMouse()
	case event.KeyboardInput:
		if e.Pressed {
			io.KeyPress(int(e.Key))
		} else {
			io.KeyRelease(int(e.Key))
		}
		io.KeyShift(int(event.KeyLShift), int(event.KeyRShift))
		io.KeyCtrl(int(event.KeyLCtrl), int(event.KeyRCtrl))
		io.KeyAlt(int(event.KeyLAlt), int(event.KeyRAlt))
		io.KeySuper(int(event.KeyLSuper), int(event.KeyRSuper))
		return io.WantCaptureKeyboard()
	case event.TextInput:
		io.AddInputCharacters(e.Text)
		return io.WantCaptureKeyboard()
	}
	return false
}
