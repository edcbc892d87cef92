package app

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// State is where the loop is in its cycle.
type State int

const (
	Idle State = iota
	HandlingInput
	Redrawing
	Exiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HandlingInput:
		return "handling-input"
	case Redrawing:
		return "redrawing"
	case Exiting:
		return "exiting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SurfacePolicy decides what a frame that could not reach the surface does.
type SurfacePolicy int

const (
	// SkipFrame logs the failure and tries again on the next redraw.
	SkipFrame SurfacePolicy = iota
	// FailFast ends the loop with the error.
	FailFast
)

// ParseSurfacePolicy accepts the config names "skip" and "fatal".
func ParseSurfacePolicy(name string) (SurfacePolicy, error) {
	switch name {
	case "", "skip":
		return SkipFrame, nil
	case "fatal":
		return FailFast, nil
	}
	return SkipFrame, errors.Newf("app: unknown surface error policy %q", name)
}
