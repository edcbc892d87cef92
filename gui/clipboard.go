package gui

// Clipboard is the window side of copy and paste.
type Clipboard interface {
	Clipboard() (string, error)
	SetClipboard(text string)
}

// clipboard plugs into imgui.IO. Pastes read the window directly; copies are
// held back and reported as platform output at the end of the pass.
type clipboard struct {
	source Clipboard
	copied string
}

func (c *clipboard) Text() (string, error) {
	return c.source.Clipboard()
}

func (c *clipboard) SetText(value string) {
	c.copied = value
}

func (c *clipboard) take() string {
	s := c.copied
	c.copied = ""
	return s
}
