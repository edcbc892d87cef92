package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vkngwrapper/guidemo/frame"
)

const (
	Heading     = "sdl2/imgui/vulkan sample"
	SwitchLabel = "an imgui switch"

	swatchSize = 16
)

// UI declares widgets during a GUI pass. gui.Widgets implements it.
type UI interface {
	Panel(id string, size [2]float32, body func())
	Heading(text string)
	Checkbox(label string, value *bool) bool
	Image(id frame.TextureID, size [2]float32)
	Label(text string)
}

// images is the part of the GUI that owns user textures.
type images interface {
	RegisterImage(delta frame.ImageDelta) (frame.TextureID, error)
	UnregisterImage(id frame.TextureID)
}

// demo is the panel shown in the window. The swatch texture exists only
// while the switch is on.
type demo struct {
	switchOn bool
	swatch   frame.TextureID
}

func (d *demo) build(ui UI, img images, in frame.Input, dt time.Duration, logger *slog.Logger) {
	ui.Panel("guidemo", in.ScreenSize, func() {
		ui.Heading(Heading)
		if ui.Checkbox(SwitchLabel, &d.switchOn) {
			d.syncSwatch(img, logger)
		}
		if d.swatch != 0 {
			ui.Image(d.swatch, [2]float32{4 * swatchSize, 4 * swatchSize})
		}
		ui.Label(fmt.Sprintf("frame time %.2f ms", float64(dt.Microseconds())/1000))
	})
}

func (d *demo) syncSwatch(img images, logger *slog.Logger) {
	switch {
	case d.switchOn && d.swatch == 0:
		id, err := img.RegisterImage(swatchImage())
		if err != nil {
			logger.Warn("swatch not registered", "error", err)
			return
		}
		d.swatch = id
	case !d.switchOn && d.swatch != 0:
		img.UnregisterImage(d.swatch)
		d.swatch = 0
	}
}

// swatchImage is a red to blue gradient over a green ramp.
func swatchImage() frame.ImageDelta {
	pixels := make([]byte, 0, swatchSize*swatchSize*4)
	for y := 0; y < swatchSize; y++ {
		for x := 0; x < swatchSize; x++ {
			r := byte(255 * (swatchSize - 1 - x) / (swatchSize - 1))
			g := byte(255 * y / (swatchSize - 1))
			b := byte(255 * x / (swatchSize - 1))
			pixels = append(pixels, r, g, b, 255)
		}
	}
	return frame.ImageDelta{Width: swatchSize, Height: swatchSize, Pixels: pixels}
}
