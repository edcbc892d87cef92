// Package app runs the demo's event loop: window events go to the GUI first,
// then to the loop itself, and every redraw produces one rendered frame.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/guidemo/event"
	"github.com/vkngwrapper/guidemo/frame"
	"github.com/vkngwrapper/guidemo/gui"
)

// idleWait bounds how long the loop sleeps while nothing can be drawn.
const idleWait = 100 // milliseconds

type Window interface {
	gui.Window
	InnerSize() (int, int)
	ScaleFactor() float32
	RequestRedraw()
}

// EventSource delivers window events.
type EventSource interface {
	PollEvents(fn func(event.Event))
	WaitEvent(timeoutMs int)
}

type GUI interface {
	OnWindowEvent(ev event.Event) bool
	SetPixelsPerPoint(scale float32)
	TakeInput(window gui.Window) frame.Input
	BeginPass(in frame.Input)
	EndPass() frame.FullOutput
	Tessellate(shapes frame.Shapes, pixelsPerPoint float32) ([]frame.Primitive, error)
	HandlePlatformOutput(window gui.Window, out frame.PlatformOutput)
	RegisterImage(delta frame.ImageDelta) (frame.TextureID, error)
	UnregisterImage(id frame.TextureID)
}

type Renderer interface {
	Resize(width, height int) error
	RenderFrame(screen frame.ScreenDescriptor, primitives []frame.Primitive, textures frame.TexturesDelta) error
}

type Options struct {
	// ExitKey ends the loop when pressed outside the GUI. Zero means Escape.
	ExitKey event.Key
	// SurfaceErrors chooses what happens when a frame cannot be presented.
	SurfaceErrors SurfacePolicy
	// Transient reports whether a resize or render error only loses the
	// current frame. Nil means no error is transient.
	Transient func(error) bool
	Logger    *slog.Logger
	// Clock is a monotonic time source. Nil means hrtime.Now.
	Clock func() time.Duration
}

// Stats counts what the loop has done so far.
type Stats struct {
	Frames  uint64
	Skipped uint64
}

type App struct {
	window    Window
	gui       GUI
	renderer  Renderer
	ui        UI
	logger    *slog.Logger
	exitKey   event.Key
	policy    SurfacePolicy
	transient func(error) bool
	clock     func() time.Duration

	state    State
	size     [2]int
	occluded bool
	last     time.Duration
	started  bool
	stats    Stats

	demo demo
}

func New(window Window, g GUI, r Renderer, ui UI, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ExitKey == event.KeyUnknown {
		opts.ExitKey = event.KeyEscape
	}
	if opts.Clock == nil {
		opts.Clock = hrtime.Now
	}
	if opts.Transient == nil {
		opts.Transient = func(error) bool { return false }
	}

	a := &App{
		window:    window,
		gui:       g,
		renderer:  r,
		ui:        ui,
		logger:    opts.Logger,
		exitKey:   opts.ExitKey,
		policy:    opts.SurfaceErrors,
		transient: opts.Transient,
		clock:     opts.Clock,
	}
	a.size[0], a.size[1] = window.InnerSize()
	g.SetPixelsPerPoint(window.ScaleFactor())
	return a
}

func (a *App) State() State { return a.state }

// Size is the last known drawable size in pixels.
func (a *App) Size() (int, int) { return a.size[0], a.size[1] }

func (a *App) Stats() Stats { return a.stats }

// HandleEvent runs one event through the GUI and then the loop. Once the
// loop is exiting every event is ignored.
func (a *App) HandleEvent(ev event.Event) error {
	if a.state == Exiting {
		return nil
	}
	a.state = HandlingInput
	err := a.handle(ev)
	if a.state != Exiting {
		a.state = Idle
	}
	return err
}

func (a *App) handle(ev event.Event) error {
	if a.gui.OnWindowEvent(ev) {
		return nil
	}

	switch e := ev.(type) {
	case event.Resized:
		return a.resize(e.Width, e.Height)
	case event.ScaleFactorChanged:
		a.gui.SetPixelsPerPoint(e.Scale)
	case event.CloseRequested:
		a.exit("close requested")
	case event.KeyboardInput:
		if e.Pressed && !e.Repeat && e.Key == a.exitKey {
			a.exit("exit key")
		}
	case event.Occluded:
		a.occluded = e.Occluded
		if !a.paused() {
			a.window.RequestRedraw()
		}
	case event.RedrawRequested:
		return a.redraw()
	}
	return nil
}

func (a *App) exit(reason string) {
	a.logger.Info("exiting", "reason", reason)
	a.state = Exiting
}

func (a *App) resize(width, height int) error {
	a.size = [2]int{width, height}
	a.gui.SetPixelsPerPoint(a.window.ScaleFactor())
	if err := a.renderer.Resize(width, height); err != nil {
		if !a.tolerate(err) {
			return errors.Wrapf(err, "app: resize to %dx%d", width, height)
		}
		a.logger.Warn("resize failed, retrying on next frame", "width", width, "height", height, "error", err)
	}
	if !a.paused() {
		a.window.RequestRedraw()
	}
	return nil
}

// paused reports whether there is nothing visible to draw into.
func (a *App) paused() bool {
	return a.occluded || a.size[0] <= 0 || a.size[1] <= 0
}

func (a *App) tolerate(err error) bool {
	return a.policy == SkipFrame && a.transient(err)
}

// redraw runs one GUI pass and renders its output.
func (a *App) redraw() error {
	if a.paused() {
		return nil
	}
	a.state = Redrawing

	now := a.clock()
	var dt time.Duration
	if a.started {
		dt = now - a.last
	}
	a.last, a.started = now, true

	in := a.gui.TakeInput(a.window)
	in.DeltaTime = float32(dt.Seconds())
	a.gui.BeginPass(in)
	a.demo.build(a.ui, a.gui, in, dt, a.logger)
	out := a.gui.EndPass()
	a.gui.HandlePlatformOutput(a.window, out.Platform)

	primitives, err := a.gui.Tessellate(out.Shapes, out.PixelsPerPoint)
	if err != nil {
		return errors.Wrap(err, "app: tessellate")
	}

	screen := frame.ScreenDescriptor{
		SizeInPixels:   [2]uint32{uint32(a.size[0]), uint32(a.size[1])},
		PixelsPerPoint: out.PixelsPerPoint,
	}
	if err = a.renderer.RenderFrame(screen, primitives, out.Textures); err != nil {
		if !a.tolerate(err) {
			return errors.Wrap(err, "app: render frame")
		}
		a.stats.Skipped++
		a.logger.Warn("frame skipped", "error", err)
	} else {
		a.stats.Frames++
	}

	a.window.RequestRedraw()
	return nil
}

// Run dispatches events until the loop exits, an event fails, or ctx is
// done.
func (a *App) Run(ctx context.Context, source EventSource) error {
	a.window.RequestRedraw()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		source.PollEvents(func(ev event.Event) {
			if err == nil {
				err = a.HandleEvent(ev)
			}
		})
		if err != nil {
			return err
		}
		if a.state == Exiting {
			a.logger.Info("loop finished", "frames", a.stats.Frames, "skipped", a.stats.Skipped)
			return nil
		}
		if a.paused() {
			source.WaitEvent(idleWait)
		}
	}
}
