package frame

// Input is the GUI input gathered since the previous frame.
type Input struct {
	// ScreenSize is the window size in points.
	ScreenSize [2]float32
	// PixelsPerPoint is the window scale factor.
	PixelsPerPoint float32
	// DeltaTime is the time since the previous pass, in seconds.
	DeltaTime float32
	Focused   bool
}

// PlatformOutput is what the GUI asks the windowing layer to do after a pass.
type PlatformOutput struct {
	// CopiedText is non-empty when the GUI copied text to the clipboard.
	CopiedText string
	// WantTextInput asks the platform to deliver text input events.
	WantTextInput bool
}

// FullOutput is the result of one GUI layout pass.
type FullOutput struct {
	Textures       TexturesDelta
	Shapes         Shapes
	PixelsPerPoint float32
	Platform       PlatformOutput
}
