// Package gui adapts Dear ImGui to the window events and frame payloads used
// by the rest of the demo.
package gui

import (
	"log/slog"
	"unsafe"

	"github.com/inkyblackness/imgui-go/v4"
	"github.com/vkngwrapper/guidemo/event"
	"github.com/vkngwrapper/guidemo/frame"
)

// Window is what the adapter needs from the platform window.
type Window interface {
	Clipboard
	PointSize() (int, int)
	SetTextInput(on bool)
}

type Options struct {
	// PixelsPerPoint is the initial scale factor. Zero means 1.
	PixelsPerPoint float32
	Logger         *slog.Logger
}

// Adapter owns one ImGui context. It is not safe for concurrent use, and
// only one Adapter may exist at a time.
type Adapter struct {
	context   *imgui.Context
	io        imgui.IO
	logger    *slog.Logger
	ppp       float32
	focused   bool
	mouse     mouseState
	textures  *textureBook
	clipboard *clipboard
	inPass    bool
}

func New(window Window, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.PixelsPerPoint <= 0 {
		opts.PixelsPerPoint = 1
	}

	a := &Adapter{
		context:   imgui.CreateContext(nil),
		logger:    opts.Logger,
		ppp:       opts.PixelsPerPoint,
		focused:   true,
		textures:  newTextureBook(),
		clipboard: &clipboard{source: window},
	}
	a.io = imgui.CurrentIO()
	a.io.SetIniFilename("")
	a.io.SetClipboard(a.clipboard)
	for imguiKey, key := range keyMap {
		a.io.KeyMap(imguiKey, int(key))
	}

	fonts := a.io.Fonts()
	atlas := fonts.TextureDataRGBA32()
	fonts.SetTextureID(imgui.TextureID(FontTexture))
	a.textures.set(FontTexture, frame.ImageDelta{
		Width:  atlas.Width,
		Height: atlas.Height,
		Pixels: copyBytes(unsafe.Pointer(atlas.Pixels), atlas.Width*atlas.Height*4),
	})
	a.logger.Debug("font atlas built", "width", atlas.Width, "height", atlas.Height)
	return a
}

// Destroy releases the ImGui context.
func (a *Adapter) Destroy() {
	if a.context != nil {
		a.context.Destroy()
		a.context = nil
	}
}

// OnWindowEvent feeds ev to ImGui and reports whether ImGui consumed it.
// Pointer events are consumed while ImGui wants the mouse, key and text
// events while it wants the keyboard. Window lifecycle events never are.
func (a *Adapter) OnWindowEvent(ev event.Event) bool {
	if f, ok := ev.(event.Focused); ok {
		a.focused = f.Focused
		return false
	}
	return feed(a.io, &a.mouse, ev)
}

// SetPixelsPerPoint records the window scale factor reported with payloads.
func (a *Adapter) SetPixelsPerPoint(scale float32) {
	if scale > 0 {
		a.ppp = scale
	}
}

// PixelsPerPoint is the current scale factor.
func (a *Adapter) PixelsPerPoint() float32 {
	return a.ppp
}

// TakeInput collects the per-frame input that is not event driven. The
// caller fills in DeltaTime.
func (a *Adapter) TakeInput(window Window) frame.Input {
	w, h := window.PointSize()
	return frame.Input{
		ScreenSize:     [2]float32{float32(w), float32(h)},
		PixelsPerPoint: a.ppp,
		Focused:        a.focused,
	}
}

// BeginPass starts an ImGui frame. Widgets may be declared until EndPass.
func (a *Adapter) BeginPass(in frame.Input) {
	a.io.SetDisplaySize(imgui.Vec2{X: in.ScreenSize[0], Y: in.ScreenSize[1]})
	dt := in.DeltaTime
	if dt <= 0 {
		dt = 1.0 / 60.0
	}
	a.io.SetDeltaTime(dt)
	for i, down := range a.mouse.frameButtons() {
		a.io.SetMouseButtonDown(i, down)
	}
	imgui.NewFrame()
	a.inPass = true
}

// EndPass finishes the frame and returns everything the renderer and the
// platform need from it.
func (a *Adapter) EndPass() frame.FullOutput {
	if !a.inPass {
		return frame.FullOutput{Textures: a.textures.take(), PixelsPerPoint: a.ppp}
	}
	a.inPass = false
	imgui.Render()

	return frame.FullOutput{
		Textures:       a.textures.take(),
		Shapes:         snapshot(imgui.RenderedDrawData()),
		PixelsPerPoint: a.ppp,
		Platform: frame.PlatformOutput{
			CopiedText:    a.clipboard.take(),
			WantTextInput: a.io.WantTextInput(),
		},
	}
}

// Tessellate converts shapes into primitives for the renderer.
func (a *Adapter) Tessellate(shapes frame.Shapes, pixelsPerPoint float32) ([]frame.Primitive, error) {
	return frame.Tessellate(shapes, pixelsPerPoint)
}

// HandlePlatformOutput applies clipboard and text input requests.
func (a *Adapter) HandlePlatformOutput(window Window, out frame.PlatformOutput) {
	if out.CopiedText != "" {
		window.SetClipboard(out.CopiedText)
	}
	window.SetTextInput(out.WantTextInput)
}

// RegisterImage makes an RGBA8 image drawable with Widgets.Image. The
// upload is delivered with the next EndPass.
func (a *Adapter) RegisterImage(delta frame.ImageDelta) (frame.TextureID, error) {
	return a.textures.register(delta)
}

// UnregisterImage frees an image registered earlier.
func (a *Adapter) UnregisterImage(id frame.TextureID) {
	a.textures.unregister(id)
}
