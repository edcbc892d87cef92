package gui

import (
	"testing"

	"github.com/inkyblackness/imgui-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/guidemo/event"
	"github.com/vkngwrapper/guidemo/frame"
)

type fakeIO struct {
	wantMouse    bool
	wantKeyboard bool

	mouse    imgui.Vec2
	wheel    [2]float32
	keysDown map[int]bool
	text     string
}

func newFakeIO() *fakeIO {
	return &fakeIO{keysDown: make(map[int]bool)}
}

func (f *fakeIO) SetMousePosition(v imgui.Vec2) { f.mouse = v }
func (f *fakeIO) AddMouseWheelDelta(h, v float32) {
	f.wheel[0] += h
	f.wheel[1] += v
}
func (f *fakeIO) KeyPress(key int) { f.keysDown[key] = true }
func (f *fakeIO) KeyRelease(key int) { f.keysDown[key] = false }
func (f *fakeIO) KeyShift(int, int) {}
func (f *fakeIO) KeyCtrl(int, int) {}
func (f *fakeIO) KeyAlt(int, int) {}
func (f *fakeIO) KeySuper(int, int) {}
func (f *fakeIO) AddInputCharacters(chars string) { f.text += chars }
func (f *fakeIO) WantCaptureMouse() bool { return f.wantMouse }
func (f *fakeIO) WantCaptureKeyboard() bool { return f.wantKeyboard }

func TestFeedConsumption(t *testing.T) {
	pointer := []event.Event{
		event.MouseMoved{X: 1, Y: 2},
		event.MouseButton{Button: event.ButtonLeft, Pressed: true},
		event.MouseWheel{DY: 1},
	}
	keyboard := []event.Event{
		event.KeyboardInput{Key: event.KeyEscape, Pressed: true},
		event.TextInput{Text: "a"},
	}
	lifecycle := []event.Event{
		event.Resized{Width: 800, Height: 600},
		event.CloseRequested{},
		event.ScaleFactorChanged{Scale: 2},
		event.RedrawRequested{},
		event.Occluded{Occluded: true},
	}

	tests := []struct {
		name         string
		wantMouse    bool
		wantKeyboard bool
		consumed     map[string]bool
	}{
		{name: "idle", consumed: map[string]bool{}},
		{name: "mouse", wantMouse: true, consumed: map[string]bool{"pointer": true}},
		{name: "keyboard", wantKeyboard: true, consumed: map[string]bool{"keyboard": true}},
		{name: "both", wantMouse: true, wantKeyboard: true, consumed: map[string]bool{"pointer": true, "keyboard": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io := newFakeIO()
			io.wantMouse, io.wantKeyboard = tt.wantMouse, tt.wantKeyboard
			var mouse mouseState

			for _, ev := range pointer {
				assert.Equal(t, tt.consumed["pointer"], feed(io, &mouse, ev), "%T", ev)
			}
			for _, ev := range keyboard {
				assert.Equal(t, tt.consumed["keyboard"], feed(io, &mouse, ev), "%T", ev)
			}
			for _, ev := range lifecycle {
				assert.False(t, feed(io, &mouse, ev), "%T", ev)
			}
		})
	}
}

func TestFeedForwardsInput(t *testing.T) {
	io := newFakeIO()
	var mouse mouseState

	feed(io, &mouse, event.MouseMoved{X: 10, Y: 20})
	feed(io, &mouse, event.MouseWheel{DX: 1, DY: -2})
	feed(io, &mouse, event.KeyboardInput{Key: event.KeyA, Pressed: true})
	feed(io, &mouse, event.TextInput{Text: "hé"})

	assert.Equal(t, imgui.Vec2{X: 10, Y: 20}, io.mouse)
	assert.Equal(t, [2]float32{1, -2}, io.wheel)
	assert.True(t, io.keysDown[int(event.KeyA)])
	assert.Equal(t, "hé", io.text)

	feed(io, &mouse, event.KeyboardInput{Key: event.KeyA, Pressed: false})
	assert.False(t, io.keysDown[int(event.KeyA)])
}

func TestMouseClickShorterThanFrame(t *testing.T) {
	var mouse mouseState
	mouse.button(event.ButtonLeft, true)
	mouse.button(event.ButtonLeft, false)

	assert.Equal(t, [3]bool{true, false, false}, mouse.frameButtons())
	assert.Equal(t, [3]bool{}, mouse.frameButtons())

	mouse.button(event.ButtonRight, true)
	assert.Equal(t, [3]bool{false, true, false}, mouse.frameButtons())
	assert.Equal(t, [3]bool{false, true, false}, mouse.frameButtons(), "still held")

	assert.NotPanics(t, func() { mouse.button(event.Button(7), true) })
}

func TestKeyMapCoversNavigation(t *testing.T) {
	assert.Equal(t, event.KeyTab, keyMap[imgui.KeyTab])
	assert.Equal(t, event.KeyReturn, keyMap[imgui.KeyEnter])
	assert.Equal(t, event.KeyEscape, keyMap[imgui.KeyEscape])
	assert.Equal(t, event.KeyLeft, keyMap[imgui.KeyLeftArrow])

	seen := make(map[event.Key]bool)
	for _, key := range keyMap {
		assert.False(t, seen[key], "%v mapped twice", key)
		seen[key] = true
	}
}

func rgba(w, h int) frame.ImageDelta {
	return frame.ImageDelta{Width: w, Height: h, Pixels: make([]byte, w*h*4)}
}

func TestTextureBook(t *testing.T) {
	b := newTextureBook()
	b.set(FontTexture, rgba(4, 4))

	first, err := b.register(rgba(2, 2))
	require.NoError(t, err)
	second, err := b.register(rgba(1, 1))
	require.NoError(t, err)
	assert.NotEqual(t, FontTexture, first)
	assert.NotEqual(t, first, second)

	delta := b.take()
	require.Len(t, delta.Set, 3)
	assert.Equal(t, FontTexture, delta.Set[0].ID)
	assert.Equal(t, first, delta.Set[1].ID)
	assert.Empty(t, delta.Free)
	assert.True(t, b.take().IsEmpty())

	b.unregister(first)
	b.unregister(first)
	b.unregister(FontTexture)
	b.unregister(99)
	assert.Equal(t, []frame.TextureID{first}, b.take().Free)

	third, err := b.register(rgba(1, 1))
	require.NoError(t, err)
	assert.Greater(t, third, second, "ids are never reused")
}

func TestTextureBookRejectsBadImages(t *testing.T) {
	b := newTextureBook()

	_, err := b.register(frame.ImageDelta{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	assert.Error(t, err)

	partial := rgba(1, 1)
	partial.Pos = &[2]int{0, 0}
	_, err = b.register(partial)
	assert.Error(t, err)

	assert.True(t, b.take().IsEmpty())
}

type fakeWindow struct {
	clipboard string
	textInput bool
	width     int
	height    int
}

func (w *fakeWindow) Clipboard() (string, error) { return w.clipboard, nil }
func (w *fakeWindow) SetClipboard(text string) { w.clipboard = text }
func (w *fakeWindow) SetTextInput(on bool) { w.textInput = on }
func (w *fakeWindow) PointSize() (int, int) { return w.width, w.height }

func TestClipboardHoldsCopiesUntilTaken(t *testing.T) {
	w := &fakeWindow{clipboard: "pasted"}
	c := &clipboard{source: w}

	text, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, "pasted", text)

	c.SetText("copied")
	assert.Equal(t, "pasted", w.clipboard)
	assert.Equal(t, "copied", c.take())
	assert.Equal(t, "", c.take())
}

func TestHandlePlatformOutput(t *testing.T) {
	w := &fakeWindow{clipboard: "old"}
	a := &Adapter{}

	a.HandlePlatformOutput(w, frame.PlatformOutput{WantTextInput: true})
	assert.Equal(t, "old", w.clipboard)
	assert.True(t, w.textInput)

	a.HandlePlatformOutput(w, frame.PlatformOutput{CopiedText: "new"})
	assert.Equal(t, "new", w.clipboard)
	assert.False(t, w.textInput)
}

func TestPassDeliversFontAtlasOnce(t *testing.T) {
	w := &fakeWindow{width: 800, height: 600}
	a := New(w, Options{PixelsPerPoint: 2})
	defer a.Destroy()

	in := a.TakeInput(w)
	assert.Equal(t, [2]float32{800, 600}, in.ScreenSize)
	assert.Equal(t, float32(2), in.PixelsPerPoint)

	var on bool
	a.BeginPass(in)
	Widgets{}.Panel("panel", in.ScreenSize, func() {
		Widgets{}.Heading("heading")
		Widgets{}.Checkbox("switch", &on)
	})
	out := a.EndPass()

	require.Len(t, out.Textures.Set, 1)
	font := out.Textures.Set[0]
	assert.Equal(t, FontTexture, font.ID)
	assert.NoError(t, font.Delta.Validate())
	assert.Equal(t, float32(2), out.PixelsPerPoint)

	prims, err := a.Tessellate(out.Shapes, out.PixelsPerPoint)
	require.NoError(t, err)
	assert.NotEmpty(t, prims)
	for _, p := range prims {
		assert.Equal(t, FontTexture, p.TextureID)
	}

	a.SetPixelsPerPoint(0)
	assert.Equal(t, float32(2), a.PixelsPerPoint())
	a.SetPixelsPerPoint(1.5)
	assert.Equal(t, float32(1.5), a.PixelsPerPoint())

	a.BeginPass(a.TakeInput(w))
	out = a.EndPass()
	assert.True(t, out.Textures.IsEmpty())
	assert.Equal(t, float32(1.5), out.PixelsPerPoint)
}
