package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/guidemo/event"
)

func fixedSize(w, h int32) sizeFunc {
	return func() (int32, int32) { return w, h }
}

func collect(tr *translator, evs ...sdl.Event) []event.Event {
	var out []event.Event
	for _, ev := range evs {
		tr.translate(ev, func(e event.Event) { out = append(out, e) })
	}
	return out
}

func TestTranslateResizeUsesDrawablePixels(t *testing.T) {
	tr := &translator{drawableSize: fixedSize(1600, 1200), pointSize: fixedSize(800, 600), scale: 2}

	out := collect(tr, &sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 800, Data2: 600})
	assert.Equal(t, []event.Event{event.Resized{Width: 1600, Height: 1200}}, out)
}

func TestTranslateScaleChange(t *testing.T) {
	tr := &translator{drawableSize: fixedSize(1600, 1200), pointSize: fixedSize(800, 600), scale: 1}

	out := collect(tr, &sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED})
	assert.Equal(t, []event.Event{
		event.Resized{Width: 1600, Height: 1200},
		event.ScaleFactorChanged{Scale: 2},
	}, out)
	assert.Equal(t, float32(2), tr.scale)
}

func TestTranslateInput(t *testing.T) {
	tr := &translator{drawableSize: fixedSize(800, 600), pointSize: fixedSize(800, 600), scale: 1}

	out := collect(tr,
		&sdl.QuitEvent{},
		&sdl.WindowEvent{Event: sdl.WINDOWEVENT_CLOSE},
		&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED},
		&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED},
		&sdl.WindowEvent{Event: sdl.WINDOWEVENT_FOCUS_LOST},
		&sdl.KeyboardEvent{State: sdl.PRESSED, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_ESCAPE, Mod: uint16(sdl.KMOD_LCTRL)}},
		&sdl.KeyboardEvent{State: sdl.RELEASED, Repeat: 1, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_A}},
		&sdl.MouseMotionEvent{X: 10, Y: 20},
		&sdl.MouseButtonEvent{Button: sdl.BUTTON_RIGHT, State: sdl.PRESSED},
		&sdl.MouseButtonEvent{Button: sdl.BUTTON_X1, State: sdl.PRESSED},
		&sdl.MouseWheelEvent{X: 0, Y: -1},
	)

	assert.Equal(t, []event.Event{
		event.CloseRequested{},
		event.CloseRequested{},
		event.Occluded{Occluded: true},
		event.Occluded{Occluded: false},
		event.Focused{Focused: false},
		event.KeyboardInput{Key: event.KeyEscape, Pressed: true, Modifiers: event.ModCtrl},
		event.KeyboardInput{Key: event.KeyA, Pressed: false, Repeat: true},
		event.MouseMoved{X: 10, Y: 20},
		event.MouseButton{Button: event.ButtonRight, Pressed: true},
		event.MouseWheel{DX: 0, DY: -1},
	}, out)
}

func TestModifiers(t *testing.T) {
	m := modifiers(uint16(sdl.KMOD_RSHIFT | sdl.KMOD_LALT | sdl.KMOD_RGUI))
	assert.Equal(t, event.ModShift|event.ModAlt|event.ModSuper, m)
	assert.Equal(t, event.Modifiers(0), modifiers(0))
}

func TestScaleOfDegenerate(t *testing.T) {
	assert.Equal(t, float32(1), scaleOf(fixedSize(0, 0), fixedSize(0, 0)))
	assert.Equal(t, float32(1.5), scaleOf(fixedSize(1200, 900), fixedSize(800, 600)))
}

func TestRefCount(t *testing.T) {
	destroyed := 0
	r := newRefCount(func() { destroyed++ })

	r.retain()
	assert.Equal(t, 2, r.count())

	r.release()
	assert.Equal(t, 0, destroyed)
	r.release()
	assert.Equal(t, 1, destroyed)

	r.release()
	assert.Equal(t, 1, destroyed, "extra release must not destroy twice")
	assert.Panics(t, r.retain)
}
