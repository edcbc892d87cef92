package gpu

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// PowerPreference orders candidate adapters.
type PowerPreference int

const (
	PowerBalanced PowerPreference = iota
	PowerLowPower
	PowerHighPerformance
)

func (p PowerPreference) String() string {
	switch p {
	case PowerLowPower:
		return "low-power"
	case PowerHighPerformance:
		return "high-performance"
	}
	return "balanced"
}

func ParsePowerPreference(name string) (PowerPreference, error) {
	switch name {
	case "", "balanced":
		return PowerBalanced, nil
	case "low-power":
		return PowerLowPower, nil
	case "high-performance":
		return PowerHighPerformance, nil
	}
	return PowerBalanced, errors.Newf("gpu: unknown power preference %q", name)
}

func ParsePresentMode(name string) (khr_surface.PresentMode, error) {
	switch name {
	case "", "fifo":
		return khr_surface.PresentModeFIFO, nil
	case "mailbox":
		return khr_surface.PresentModeMailbox, nil
	case "immediate":
		return khr_surface.PresentModeImmediate, nil
	}
	return khr_surface.PresentModeFIFO, errors.Newf("gpu: unknown present mode %q", name)
}

type Options struct {
	ApplicationName string

	// Validation enables VK_LAYER_KHRONOS_validation and routes its messages
	// to Logger.
	Validation bool

	PowerPreference PowerPreference

	// PresentMode is "fifo", "mailbox" or "immediate". It is used when the
	// surface supports it, FIFO otherwise.
	PresentMode string

	// MaxFrameLatency is the number of frames the CPU may queue ahead of the
	// GPU. Zero means 2, and anything above maxFrameLatency is capped.
	MaxFrameLatency int

	Logger *slog.Logger
}

// maxFrameLatency bounds presentation latency in frames.
const maxFrameLatency = 2

func (o *Options) setDefaults() {
	if o.ApplicationName == "" {
		o.ApplicationName = "guidemo"
	}
	if o.MaxFrameLatency <= 0 || o.MaxFrameLatency > maxFrameLatency {
		o.MaxFrameLatency = maxFrameLatency
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}
