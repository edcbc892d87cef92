package platform

import (
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/guidemo/event"
)

type sizeFunc func() (int32, int32)

// translator turns SDL events into package event values. It remembers the
// last scale so ScaleFactorChanged is only emitted on an actual change.
type translator struct {
	drawableSize sizeFunc
	pointSize    sizeFunc
	scale        float32
}

func scaleOf(drawable, point sizeFunc) float32 {
	dw, _ := drawable()
	pw, _ := point()
	if pw <= 0 || dw <= 0 {
		return 1
	}
	return float32(dw) / float32(pw)
}

func (t *translator) translate(ev sdl.Event, emit func(event.Event)) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		emit(event.CloseRequested{})

	case *sdl.WindowEvent:
		t.window(e, emit)

	case *sdl.KeyboardEvent:
		emit(event.KeyboardInput{
			Key:       event.Key(e.Keysym.Scancode),
			Pressed:   e.State == sdl.PRESSED,
			Repeat:    e.Repeat != 0,
			Modifiers: modifiers(uint16(e.Keysym.Mod)),
		})

	case *sdl.MouseMotionEvent:
		emit(event.MouseMoved{X: float32(e.X), Y: float32(e.Y)})

	case *sdl.MouseButtonEvent:
		button, ok := mouseButton(e.Button)
		if !ok {
			return
		}
		emit(event.MouseButton{Button: button, Pressed: e.State == sdl.PRESSED})

	case *sdl.MouseWheelEvent:
		dx, dy := float32(e.X), float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dx, dy = -dx, -dy
		}
		emit(event.MouseWheel{DX: dx, DY: dy})

	case *sdl.TextInputEvent:
		if text := e.GetText(); text != "" {
			emit(event.TextInput{Text: text})
		}
	}
}

func (t *translator) window(e *sdl.WindowEvent, emit func(event.Event)) {
	switch e.Event {
	case sdl.WINDOWEVENT_SIZE_CHANGED:
		// Data1/Data2 are in points; the surface wants pixels.
		w, h := t.drawableSize()
		emit(event.Resized{Width: int(w), Height: int(h)})
		if scale := scaleOf(t.drawableSize, t.pointSize); scale != t.scale {
			t.scale = scale
			emit(event.ScaleFactorChanged{Scale: scale})
		}
	case sdl.WINDOWEVENT_CLOSE:
		emit(event.CloseRequested{})
	case sdl.WINDOWEVENT_FOCUS_GAINED:
		emit(event.Focused{Focused: true})
	case sdl.WINDOWEVENT_FOCUS_LOST:
		emit(event.Focused{Focused: false})
	case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_HIDDEN:
		emit(event.Occluded{Occluded: true})
	case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN:
		emit(event.Occluded{Occluded: false})
	case sdl.WINDOWEVENT_EXPOSED:
		emit(event.RedrawRequested{})
	}
}

func mouseButton(b uint8) (event.Button, bool) {
	switch b {
	case sdl.BUTTON_LEFT:
		return event.ButtonLeft, true
	case sdl.BUTTON_RIGHT:
		return event.ButtonRight, true
	case sdl.BUTTON_MIDDLE:
		return event.ButtonMiddle, true
	}
	return 0, false
}

func modifiers(mod uint16) event.Modifiers {
	var m event.Modifiers
	if mod&uint16(sdl.KMOD_SHIFT) != 0 {
		m |= event.ModShift
	}
	if mod&uint16(sdl.KMOD_CTRL) != 0 {
		m |= event.ModCtrl
	}
	if mod&uint16(sdl.KMOD_ALT) != 0 {
		m |= event.ModAlt
	}
	if mod&uint16(sdl.KMOD_GUI) != 0 {
		m |= event.ModSuper
	}
	return m
}
