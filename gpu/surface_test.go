package gpu

import (
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	unorm := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	assert.Equal(t, unorm, chooseSurfaceFormat([]khr_surface.SurfaceFormat{srgb, unorm}))
	assert.Equal(t, srgb, chooseSurfaceFormat([]khr_surface.SurfaceFormat{srgb}), "falls back to the first format")

	packedSRGB := khr_surface.SurfaceFormat{Format: core1_0.FormatA8B8G8R8SRGBPacked, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	packedUnorm := khr_surface.SurfaceFormat{Format: core1_0.FormatA8B8G8R8UnsignedNormalizedPacked, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	assert.Equal(t, packedUnorm, chooseSurfaceFormat([]khr_surface.SurfaceFormat{packedSRGB, packedUnorm}))

	for _, format := range []core1_0.Format{
		core1_0.FormatR8SRGB,
		core1_0.FormatR8G8SRGB,
		core1_0.FormatR8G8B8SRGB,
		core1_0.FormatB8G8R8SRGB,
		core1_0.FormatR8G8B8A8SRGB,
	} {
		first := khr_surface.SurfaceFormat{Format: format, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
		assert.Equal(t, unorm, chooseSurfaceFormat([]khr_surface.SurfaceFormat{first, unorm}), "%s is colour corrected", format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	available := []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}

	assert.Equal(t, khr_surface.PresentModeMailbox, choosePresentMode(available, khr_surface.PresentModeMailbox))
	assert.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode(available, khr_surface.PresentModeImmediate))
}

func TestChooseCompositeAlpha(t *testing.T) {
	assert.Equal(t, khr_surface.CompositeAlphaOpaque,
		chooseCompositeAlpha(khr_surface.CompositeAlphaOpaque|khr_surface.CompositeAlphaInherit))
	assert.Equal(t, khr_surface.CompositeAlphaPreMultiplied,
		chooseCompositeAlpha(khr_surface.CompositeAlphaPreMultiplied|khr_surface.CompositeAlphaInherit))
	assert.Equal(t, khr_surface.CompositeAlphaInherit, chooseCompositeAlpha(khr_surface.CompositeAlphaInherit))
}

func TestChooseExtent(t *testing.T) {
	caps := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 2048},
	}
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, 800, 600))
	assert.Equal(t, core1_0.Extent2D{Width: 4096, Height: 2048}, chooseExtent(caps, 5000, 3000))

	caps.CurrentExtent = core1_0.Extent2D{Width: 1024, Height: 768}
	assert.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, chooseExtent(caps, 800, 600), "surface-dictated extent wins")
}

func TestChooseImageCount(t *testing.T) {
	for _, tc := range []struct {
		min, max, latency, want int
	}{
		{min: 2, max: 8, latency: 2, want: 3},
		{min: 3, max: 8, latency: 1, want: 3},
		{min: 2, max: 2, latency: 3, want: 2},
		{min: 2, max: 0, latency: 3, want: 4},
	} {
		caps := &khr_surface.SurfaceCapabilities{MinImageCount: tc.min, MaxImageCount: tc.max}
		assert.Equal(t, tc.want, chooseImageCount(caps, tc.latency), "%+v", tc)
	}
}

type configureRecorder struct {
	calls []SurfaceConfig
	err   error
}

func (r *configureRecorder) configure(cfg SurfaceConfig) error {
	r.calls = append(r.calls, cfg)
	return r.err
}

func newTestContext(width, height int) (*Context, *configureRecorder) {
	rec := &configureRecorder{}
	c := &Context{
		logger:    slog.New(slog.DiscardHandler),
		config:    SurfaceConfig{Width: width, Height: height, ImageCount: 3},
		configure: rec.configure,
	}
	return c, rec
}

func TestResizeReconfigures(t *testing.T) {
	c, rec := newTestContext(800, 600)

	require.NoError(t, c.Resize(1024, 768))
	assert.Equal(t, 1024, c.Config().Width)
	assert.Equal(t, 768, c.Config().Height)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 1024, rec.calls[0].Width)
	assert.Equal(t, uint64(1), c.Generation())
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	c, rec := newTestContext(800, 600)

	require.NoError(t, c.Resize(800, 600))
	assert.Empty(t, rec.calls)
	assert.Equal(t, uint64(0), c.Generation())
}

func TestResizeZeroDefers(t *testing.T) {
	c, rec := newTestContext(800, 600)

	require.NoError(t, c.Resize(0, 0))
	assert.Empty(t, rec.calls)
	assert.True(t, c.Stale())
	assert.Equal(t, 0, c.Config().Width)

	// Restoring to the pre-minimise size must still reconfigure.
	require.NoError(t, c.Resize(800, 600))
	assert.Len(t, rec.calls, 1)
	assert.False(t, c.Stale())
}

func TestResizeFailureLeavesStale(t *testing.T) {
	c, rec := newTestContext(800, 600)
	rec.err = errors.New("device lost")

	assert.Error(t, c.Resize(640, 480))
	assert.True(t, c.Stale())
	assert.Equal(t, 640, c.Config().Width, "size is recorded even when configure fails")
	assert.Equal(t, uint64(0), c.Generation())

	rec.err = nil
	require.NoError(t, c.Resize(640, 480), "stale surface retries at the same size")
	assert.Len(t, rec.calls, 2)
}

func TestResizeSequenceTracksLastSize(t *testing.T) {
	c, _ := newTestContext(800, 600)
	for _, size := range [][2]int{{1024, 768}, {0, 0}, {300, 200}, {300, 200}, {1920, 1080}} {
		require.NoError(t, c.Resize(size[0], size[1]))
		assert.Equal(t, size[0], c.Config().Width)
		assert.Equal(t, size[1], c.Config().Height)
	}
}

func TestAcquireZeroSizeIsOutdated(t *testing.T) {
	c, rec := newTestContext(800, 600)
	require.NoError(t, c.Resize(0, 0))

	_, err := c.AcquireNextImage(core1_0.Semaphore{})
	assert.True(t, errors.Is(err, ErrSurfaceOutdated))
	assert.Empty(t, rec.calls)
}

func TestOptionsCapFrameLatency(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{0, 2}, {1, 1}, {2, 2}, {3, 2}} {
		opts := Options{MaxFrameLatency: tc.in}
		opts.setDefaults()
		assert.Equal(t, tc.want, opts.MaxFrameLatency, "latency %d", tc.in)
	}
}

func TestParseOptions(t *testing.T) {
	mode, err := ParsePresentMode("mailbox")
	require.NoError(t, err)
	assert.Equal(t, khr_surface.PresentModeMailbox, mode)
	_, err = ParsePresentMode("vsync")
	assert.Error(t, err)

	pref, err := ParsePowerPreference("low-power")
	require.NoError(t, err)
	assert.Equal(t, PowerLowPower, pref)
	assert.Equal(t, "low-power", pref.String())
	_, err = ParsePowerPreference("turbo")
	assert.Error(t, err)
}
