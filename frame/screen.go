package frame

import "math"

// Rect is an axis-aligned rectangle in GUI points.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// ScreenDescriptor sizes the render target for one frame.
type ScreenDescriptor struct {
	SizeInPixels   [2]uint32
	PixelsPerPoint float32
}

// SizeInPoints is the target size in GUI coordinates.
func (s ScreenDescriptor) SizeInPoints() [2]float32 {
	ppp := s.PixelsPerPoint
	if ppp <= 0 {
		ppp = 1
	}
	return [2]float32{float32(s.SizeInPixels[0]) / ppp, float32(s.SizeInPixels[1]) / ppp}
}

// Scissor is a pixel rectangle on the render target.
type Scissor struct {
	X, Y          int
	Width, Height int
}

// ScissorFor converts a clip rectangle in points into a pixel scissor clamped
// to the target. ok is false when nothing of the rectangle is visible.
func (s ScreenDescriptor) ScissorFor(clip Rect) (sc Scissor, ok bool) {
	ppp := s.PixelsPerPoint
	if ppp <= 0 {
		ppp = 1
	}
	w := int(s.SizeInPixels[0])
	h := int(s.SizeInPixels[1])

	minX := clampInt(int(math.Round(float64(clip.MinX*ppp))), 0, w)
	minY := clampInt(int(math.Round(float64(clip.MinY*ppp))), 0, h)
	maxX := clampInt(int(math.Round(float64(clip.MaxX*ppp))), minX, w)
	maxY := clampInt(int(math.Round(float64(clip.MaxY*ppp))), minY, h)

	sc = Scissor{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	return sc, sc.Width > 0 && sc.Height > 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
