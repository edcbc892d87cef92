// Package platform is the SDL2 surface provider: it owns the native window,
// translates SDL events into package event values and exposes the hooks the
// Vulkan context needs to build a surface.
package platform

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/guidemo/event"
)

type Options struct {
	Title   string
	Width   int
	Height  int
	HighDPI bool
	Logger  *slog.Logger
}

// Window is a reference-counted SDL window. The creator holds the first
// reference; every other long-lived holder calls Retain and later Release.
// The SDL window is destroyed when the count reaches zero.
type Window struct {
	handle *sdl.Window
	title  string
	logger *slog.Logger

	refs    *refCount
	redraw  bool
	tr      translator
	textOn  bool
	pending sdl.Event
	pollFor func() sdl.Event
}

// NewWindow initialises the SDL video subsystem and opens a resizable
// Vulkan-capable window. It must be called from the locked main thread.
func NewWindow(opts Options) (*Window, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "platform: init SDL video")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN | sdl.WINDOW_RESIZABLE)
	if opts.HighDPI {
		flags |= sdl.WINDOW_ALLOW_HIGHDPI
	}
	handle, err := sdl.CreateWindow(opts.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(opts.Width), int32(opts.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrapf(err, "platform: create window %q", opts.Title)
	}

	w := &Window{
		handle:  handle,
		title:   opts.Title,
		logger:  opts.Logger,
		pollFor: sdl.PollEvent,
	}
	w.refs = newRefCount(func() {
		w.logger.Debug("destroying window", "title", w.title)
		_ = handle.Destroy()
		sdl.Quit()
	})
	w.tr = translator{
		drawableSize: handle.VulkanGetDrawableSize,
		pointSize:    handle.GetSize,
	}
	w.tr.scale = w.ScaleFactor()

	pw, ph := w.InnerSize()
	w.logger.Info("window created", "title", opts.Title, "width", pw, "height", ph, "scale", w.tr.scale)
	return w, nil
}

// Retain adds a reference and returns w for chaining.
func (w *Window) Retain() *Window {
	w.refs.retain()
	return w
}

// Release drops a reference.
func (w *Window) Release() {
	w.refs.release()
}

// Handle is the underlying SDL window. Only valid while a reference is held.
func (w *Window) Handle() *sdl.Window {
	return w.handle
}

func (w *Window) Title() string {
	return w.title
}

// InnerSize is the drawable size in physical pixels.
func (w *Window) InnerSize() (int, int) {
	pw, ph := w.handle.VulkanGetDrawableSize()
	return int(pw), int(ph)
}

// PointSize is the window size in logical points.
func (w *Window) PointSize() (int, int) {
	pw, ph := w.handle.GetSize()
	return int(pw), int(ph)
}

// ScaleFactor is the number of pixels per point.
func (w *Window) ScaleFactor() float32 {
	return scaleOf(w.handle.VulkanGetDrawableSize, w.handle.GetSize)
}

// RequestRedraw schedules a single RedrawRequested at the end of the next
// PollEvents. Repeated requests before then coalesce.
func (w *Window) RequestRedraw() {
	w.redraw = true
}

// PollEvents drains every pending SDL event without blocking and hands the
// translated events to fn.
func (w *Window) PollEvents(fn func(event.Event)) {
	if w.pending != nil {
		w.tr.translate(w.pending, fn)
		w.pending = nil
	}
	for ev := w.pollFor(); ev != nil; ev = w.pollFor() {
		w.tr.translate(ev, fn)
	}
	if w.redraw {
		w.redraw = false
		fn(event.RedrawRequested{})
	}
}

// WaitEvent blocks for up to timeoutMs until an event arrives. The event is
// delivered by the next PollEvents.
func (w *Window) WaitEvent(timeoutMs int) {
	if w.pending != nil || w.redraw {
		return
	}
	w.pending = sdl.WaitEventTimeout(timeoutMs)
}

func (w *Window) Clipboard() (string, error) {
	text, err := sdl.GetClipboardText()
	if err != nil {
		return "", errors.Wrap(err, "platform: read clipboard")
	}
	return text, nil
}

func (w *Window) SetClipboard(text string) {
	if err := sdl.SetClipboardText(text); err != nil {
		w.logger.Warn("clipboard write failed", "error", err)
	}
}

// SetTextInput turns SDL text input events on or off.
func (w *Window) SetTextInput(on bool) {
	if on == w.textOn {
		return
	}
	w.textOn = on
	if on {
		sdl.StartTextInput()
	} else {
		sdl.StopTextInput()
	}
}

// VulkanInstanceExtensions lists the instance extensions SDL needs to create
// a surface for this window.
func (w *Window) VulkanInstanceExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

type refCount struct {
	mu      sync.Mutex
	n       int
	destroy func()
}

func newRefCount(destroy func()) *refCount {
	return &refCount{n: 1, destroy: destroy}
}

func (r *refCount) retain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		panic("platform: retain of destroyed window")
	}
	r.n++
}

func (r *refCount) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return
	}
	r.n--
	if r.n == 0 {
		r.destroy()
	}
}

func (r *refCount) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
