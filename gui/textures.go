package gui

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/guidemo/frame"
)

// FontTexture is the id the font atlas is delivered under.
const FontTexture frame.TextureID = 1

// textureBook tracks the textures the GUI has handed out and the changes the
// renderer has not seen yet.
type textureBook struct {
	next    frame.TextureID
	live    map[frame.TextureID]struct{}
	pending frame.TexturesDelta
}

func newTextureBook() *textureBook {
	return &textureBook{
		next: FontTexture + 1,
		live: make(map[frame.TextureID]struct{}),
	}
}

func (b *textureBook) set(id frame.TextureID, delta frame.ImageDelta) {
	b.live[id] = struct{}{}
	b.pending.Set = append(b.pending.Set, frame.TextureSet{ID: id, Delta: delta})
}

func (b *textureBook) register(delta frame.ImageDelta) (frame.TextureID, error) {
	if !delta.IsWhole() {
		return 0, errors.New("gui: a new image needs a whole delta")
	}
	if err := delta.Validate(); err != nil {
		return 0, err
	}
	id := b.next
	b.next++
	b.set(id, delta)
	return id, nil
}

// unregister queues a free. Unknown ids and the font atlas are ignored.
func (b *textureBook) unregister(id frame.TextureID) {
	if id == FontTexture {
		return
	}
	if _, ok := b.live[id]; !ok {
		return
	}
	delete(b.live, id)
	b.pending.Free = append(b.pending.Free, id)
}

// take returns the queued changes and starts a fresh batch.
func (b *textureBook) take() frame.TexturesDelta {
	out := b.pending
	b.pending = frame.TexturesDelta{}
	return out
}
