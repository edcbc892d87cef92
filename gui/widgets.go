package gui

import (
	"github.com/inkyblackness/imgui-go/v4"
	"github.com/vkngwrapper/guidemo/frame"
)

const panelFlags = imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoResize |
	imgui.WindowFlagsNoMove | imgui.WindowFlagsNoCollapse | imgui.WindowFlagsNoSavedSettings

// Widgets declares ImGui widgets between BeginPass and EndPass.
type Widgets struct{}

// Panel fills size points from the top-left corner of the window and lays
// out body inside it.
func (Widgets) Panel(id string, size [2]float32, body func()) {
	imgui.SetNextWindowPos(imgui.Vec2{})
	imgui.SetNextWindowSize(imgui.Vec2{X: size[0], Y: size[1]})
	if imgui.BeginV(id, nil, panelFlags) {
		body()
	}
	imgui.End()
}

func (Widgets) Heading(text string) {
	imgui.Text(text)
	imgui.Separator()
}

// Checkbox reports whether value changed this frame.
func (Widgets) Checkbox(label string, value *bool) bool {
	return imgui.Checkbox(label, value)
}

func (Widgets) Image(id frame.TextureID, size [2]float32) {
	imgui.Image(imgui.TextureID(id), imgui.Vec2{X: size[0], Y: size[1]})
}

func (Widgets) Label(text string) {
	imgui.Text(text)
}
