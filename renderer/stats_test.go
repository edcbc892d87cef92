package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/guidemo/gpu"
)

func TestStatsCountSurfaceLoss(t *testing.T) {
	var s Stats

	s.count(nil)
	assert.Equal(t, Stats{Frames: 1}, s)

	// Out of date at acquire and at present are both lost frames.
	s.count(errors.Mark(errors.New("acquire: out of date"), gpu.ErrSurfaceOutdated))
	s.count(errors.Wrap(errors.Mark(errors.New("present: out of date"), gpu.ErrSurfaceOutdated), "present"))
	assert.Equal(t, Stats{Frames: 1, Skipped: 2}, s)

	s.count(errors.New("device lost"))
	assert.Equal(t, Stats{Frames: 1, Skipped: 2}, s)
}
