// Package texcache keeps the GPU textures referenced by GUI draw commands and
// applies per-frame texture deltas to them.
package texcache

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/guidemo/frame"
)

// ErrUnknownTexture is returned for a partial update of a texture that was
// never set (or was already freed).
var ErrUnknownTexture = errors.New("texcache: partial update of unknown texture")

// Uploader creates and destroys the backing resources of the cache.
type Uploader[T any] interface {
	// Create allocates a texture holding delta, which is always a whole image.
	Create(id frame.TextureID, delta frame.ImageDelta) (T, error)
	// Update writes a partial delta into an existing texture.
	Update(tex T, delta frame.ImageDelta) error
	Destroy(tex T)
}

// Cache maps texture ids onto uploaded textures. It is not safe for
// concurrent use.
type Cache[T any] struct {
	uploader Uploader[T]
	textures map[frame.TextureID]T
}

// New returns an empty cache backed by uploader.
func New[T any](uploader Uploader[T]) *Cache[T] {
	return &Cache[T]{
		uploader: uploader,
		textures: make(map[frame.TextureID]T),
	}
}

// Apply uploads every set entry, then releases every free entry. Sets and
// frees arriving in the same batch are therefore never reordered so that a
// free runs first. A free finalises its id: a set arriving later creates a
// fresh texture.
func (c *Cache[T]) Apply(delta frame.TexturesDelta) error {
	for _, set := range delta.Set {
		if err := c.set(set.ID, set.Delta); err != nil {
			return errors.Wrapf(err, "texcache: set %s", set.ID)
		}
	}
	for _, id := range delta.Free {
		c.free(id)
	}
	return nil
}

func (c *Cache[T]) set(id frame.TextureID, delta frame.ImageDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	existing, ok := c.textures[id]
	if !delta.IsWhole() {
		if !ok {
			return errors.Wrapf(ErrUnknownTexture, "%s", id)
		}
		return c.uploader.Update(existing, delta)
	}

	tex, err := c.uploader.Create(id, delta)
	if err != nil {
		return err
	}
	if ok {
		c.uploader.Destroy(existing)
	}
	c.textures[id] = tex
	return nil
}

func (c *Cache[T]) free(id frame.TextureID) {
	tex, ok := c.textures[id]
	if !ok {
		return
	}
	delete(c.textures, id)
	c.uploader.Destroy(tex)
}

// Get returns the texture for id.
func (c *Cache[T]) Get(id frame.TextureID) (T, bool) {
	tex, ok := c.textures[id]
	return tex, ok
}

// Len is the number of live textures.
func (c *Cache[T]) Len() int {
	return len(c.textures)
}

// IDs returns the live texture ids in ascending order.
func (c *Cache[T]) IDs() []frame.TextureID {
	ids := make([]frame.TextureID, 0, len(c.textures))
	for id := range c.textures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close destroys every texture still held.
func (c *Cache[T]) Close() {
	for _, id := range c.IDs() {
		c.free(id)
	}
}
