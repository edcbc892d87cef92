package frame

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// TextureID names a GUI-managed texture.
type TextureID uint64

func (id TextureID) String() string {
	return fmt.Sprintf("tex#%d", uint64(id))
}

// ImageDelta is new RGBA8 content for a texture. A nil Pos replaces the whole
// texture; otherwise the region starting at Pos is overwritten in place.
type ImageDelta struct {
	Width  int
	Height int
	Pixels []byte
	Pos    *[2]int
}

// IsWhole reports whether the delta replaces the entire texture.
func (d ImageDelta) IsWhole() bool {
	return d.Pos == nil
}

// Validate checks that the pixel slice matches the dimensions.
func (d ImageDelta) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return errors.Newf("frame: invalid image size %dx%d", d.Width, d.Height)
	}
	if want := d.Width * d.Height * 4; len(d.Pixels) != want {
		return errors.Newf("frame: image %dx%d needs %d bytes, got %d", d.Width, d.Height, want, len(d.Pixels))
	}
	if d.Pos != nil && (d.Pos[0] < 0 || d.Pos[1] < 0) {
		return errors.Newf("frame: negative update origin %v", *d.Pos)
	}
	return nil
}

// TextureSet uploads Delta into the texture ID.
type TextureSet struct {
	ID    TextureID
	Delta ImageDelta
}

// TexturesDelta lists the texture changes since the previous frame.
type TexturesDelta struct {
	Set  []TextureSet
	Free []TextureID
}

// IsEmpty reports whether there is nothing to apply.
func (d TexturesDelta) IsEmpty() bool {
	return len(d.Set) == 0 && len(d.Free) == 0
}

// Append queues other after d, keeping the order of both.
func (d *TexturesDelta) Append(other TexturesDelta) {
	d.Set = append(d.Set, other.Set...)
	d.Free = append(d.Free, other.Free...)
}

// Clear empties d, keeping the backing arrays.
func (d *TexturesDelta) Clear() {
	d.Set = d.Set[:0]
	d.Free = d.Free[:0]
}
