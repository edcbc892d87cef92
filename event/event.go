// Package event defines the window events exchanged between the platform
// layer, the GUI adapter and the application loop.
package event

import "fmt"

// Event is any of the concrete event types in this package.
type Event interface{}

// Resized reports a new drawable size in physical pixels.
type Resized struct {
	Width, Height int
}

// ScaleFactorChanged reports a new pixels-per-point ratio for the window.
type ScaleFactorChanged struct {
	Scale float32
}

// CloseRequested is sent when the user asks the window to close.
type CloseRequested struct{}

// KeyboardInput is a physical key transition.
type KeyboardInput struct {
	Key       Key
	Pressed   bool
	Repeat    bool
	Modifiers Modifiers
}

// MouseMoved carries the cursor position in points.
type MouseMoved struct {
	X, Y float32
}

// MouseButton is a mouse button transition.
type MouseButton struct {
	Button  Button
	Pressed bool
}

// MouseWheel carries scroll deltas in lines.
type MouseWheel struct {
	DX, DY float32
}

// TextInput carries committed UTF-8 text.
type TextInput struct {
	Text string
}

// Focused reports keyboard focus changes of the window.
type Focused struct {
	Focused bool
}

// Occluded is sent when the window is minimised (true) or restored (false).
type Occluded struct {
	Occluded bool
}

// RedrawRequested is emitted once per poll after RequestRedraw was called.
type RedrawRequested struct{}

// Button identifies a mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)
