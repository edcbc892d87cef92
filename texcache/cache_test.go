package texcache

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/guidemo/frame"
)

type fakeTexture struct {
	serial    int
	id        frame.TextureID
	width     int
	height    int
	updates   int
	destroyed bool
}

type fakeUploader struct {
	serial    int
	live      map[int]*fakeTexture
	failNext  bool
	destroyed []int
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{live: make(map[int]*fakeTexture)}
}

func (u *fakeUploader) Create(id frame.TextureID, delta frame.ImageDelta) (*fakeTexture, error) {
	if u.failNext {
		u.failNext = false
		return nil, errors.New("out of device memory")
	}
	u.serial++
	tex := &fakeTexture{serial: u.serial, id: id, width: delta.Width, height: delta.Height}
	u.live[tex.serial] = tex
	return tex, nil
}

func (u *fakeUploader) Update(tex *fakeTexture, _ frame.ImageDelta) error {
	tex.updates++
	return nil
}

func (u *fakeUploader) Destroy(tex *fakeTexture) {
	tex.destroyed = true
	delete(u.live, tex.serial)
	u.destroyed = append(u.destroyed, tex.serial)
}

func whole(w, h int) frame.ImageDelta {
	return frame.ImageDelta{Width: w, Height: h, Pixels: make([]byte, w*h*4)}
}

func partial(x, y, w, h int) frame.ImageDelta {
	d := whole(w, h)
	d.Pos = &[2]int{x, y}
	return d
}

func TestApplySetThenGet(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{
		{ID: 1, Delta: whole(4, 4)},
		{ID: 2, Delta: whole(8, 2)},
	}}))

	tex, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, 8, tex.width)
	assert.Equal(t, []frame.TextureID{1, 2}, c.IDs())
	assert.Equal(t, 2, c.Len())
}

func TestApplyWholeSetReplaces(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(4, 4)}}}))
	first, _ := c.Get(1)

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(16, 16)}}}))
	second, _ := c.Get(1)

	assert.True(t, first.destroyed)
	assert.False(t, second.destroyed)
	assert.Equal(t, 16, second.width)
	assert.Len(t, up.live, 1)
}

func TestApplyPartialUpdate(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(4, 4)}}}))
	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: partial(1, 1, 2, 2)}}}))

	tex, _ := c.Get(1)
	assert.Equal(t, 1, tex.updates)
	assert.Equal(t, 1, up.serial, "partial update must not recreate")

	err := c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 9, Delta: partial(0, 0, 1, 1)}}})
	assert.True(t, errors.Is(err, ErrUnknownTexture))
}

func TestApplySetsBeforeFreesInOneBatch(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)

	// Free listed first but delivered together with the set: the set runs
	// first and the free then releases it.
	require.NoError(t, c.Apply(frame.TexturesDelta{
		Free: []frame.TextureID{1},
		Set:  []frame.TextureSet{{ID: 1, Delta: whole(2, 2)}},
	}))
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Empty(t, up.live)
}

func TestFreeIsFinal(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 5, Delta: whole(2, 2)}}}))
	old, _ := c.Get(5)
	require.NoError(t, c.Apply(frame.TexturesDelta{Free: []frame.TextureID{5}}))
	assert.True(t, old.destroyed)

	err := c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 5, Delta: partial(0, 0, 1, 1)}}})
	assert.True(t, errors.Is(err, ErrUnknownTexture), "a freed id cannot be patched")

	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 5, Delta: whole(2, 2)}}}))
	fresh, ok := c.Get(5)
	require.True(t, ok)
	assert.NotEqual(t, old.serial, fresh.serial)
}

func TestFreeUnknownIsNoop(t *testing.T) {
	c := New[*fakeTexture](newFakeUploader())
	assert.NoError(t, c.Apply(frame.TexturesDelta{Free: []frame.TextureID{42}}))
	assert.Equal(t, 0, c.Len())
}

func TestDistinctIDsOrderIndependent(t *testing.T) {
	seed := frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(2, 2)}}}

	run := func(delta frame.TexturesDelta) []frame.TextureID {
		c := New[*fakeTexture](newFakeUploader())
		require.NoError(t, c.Apply(seed))
		require.NoError(t, c.Apply(delta))
		return c.IDs()
	}

	freeThenSet := run(frame.TexturesDelta{
		Free: []frame.TextureID{1},
		Set:  []frame.TextureSet{{ID: 2, Delta: whole(2, 2)}},
	})
	setThenFree := run(frame.TexturesDelta{
		Set:  []frame.TextureSet{{ID: 2, Delta: whole(2, 2)}},
		Free: []frame.TextureID{1},
	})

	// Two separate batches, opposite order.
	c := New[*fakeTexture](newFakeUploader())
	require.NoError(t, c.Apply(seed))
	require.NoError(t, c.Apply(frame.TexturesDelta{Free: []frame.TextureID{1}}))
	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 2, Delta: whole(2, 2)}}}))

	assert.Equal(t, []frame.TextureID{2}, freeThenSet)
	assert.Equal(t, freeThenSet, setThenFree)
	assert.Equal(t, freeThenSet, c.IDs())
}

func TestApplyErrorsKeepState(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)
	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(2, 2)}}}))

	up.failNext = true
	err := c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 1, Delta: whole(4, 4)}}})
	require.Error(t, err)

	tex, ok := c.Get(1)
	require.True(t, ok, "failed replacement keeps the old texture")
	assert.False(t, tex.destroyed)

	bad := frame.ImageDelta{Width: 2, Height: 2, Pixels: make([]byte, 3)}
	assert.Error(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{{ID: 3, Delta: bad}}}))
}

func TestClose(t *testing.T) {
	up := newFakeUploader()
	c := New[*fakeTexture](up)
	require.NoError(t, c.Apply(frame.TexturesDelta{Set: []frame.TextureSet{
		{ID: 3, Delta: whole(1, 1)},
		{ID: 1, Delta: whole(1, 1)},
	}}))

	c.Close()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, up.live)
	assert.Equal(t, []int{2, 1}, up.destroyed, "destroyed in id order")
}
