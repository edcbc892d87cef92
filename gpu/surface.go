package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// SurfaceConfig is the negotiated swapchain configuration. Width and Height
// are the last requested drawable size; the swapchain extent may differ
// where the surface clamps it.
type SurfaceConfig struct {
	Width, Height  int
	Format         core1_0.Format
	ColorSpace     khr_surface.ColorSpace
	PresentMode    khr_surface.PresentMode
	CompositeAlpha khr_surface.CompositeAlphaFlags
	ImageCount     int
}

var srgbFormats = map[core1_0.Format]bool{
	core1_0.FormatR8SRGB:             true,
	core1_0.FormatR8G8SRGB:           true,
	core1_0.FormatR8G8B8SRGB:         true,
	core1_0.FormatB8G8R8SRGB:         true,
	core1_0.FormatR8G8B8A8SRGB:       true,
	core1_0.FormatB8G8R8A8SRGB:       true,
	core1_0.FormatA8B8G8R8SRGBPacked: true,
}

// chooseSurfaceFormat prefers the first non-sRGB format: GUI colours are
// already gamma encoded and must not be converted again on store.
func chooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range formats {
		if !srgbFormats[format.Format] {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(available []khr_surface.PresentMode, preferred khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range available {
		if mode == preferred {
			return mode
		}
	}
	return khr_surface.PresentModeFIFO
}

func chooseCompositeAlpha(supported khr_surface.CompositeAlphaFlags) khr_surface.CompositeAlphaFlags {
	for _, mode := range []khr_surface.CompositeAlphaFlags{
		khr_surface.CompositeAlphaOpaque,
		khr_surface.CompositeAlphaPreMultiplied,
		khr_surface.CompositeAlphaPostMultiplied,
		khr_surface.CompositeAlphaInherit,
	} {
		if supported&mode != 0 {
			return mode
		}
	}
	return khr_surface.CompositeAlphaOpaque
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for one image more than the frame latency, within
// the surface limits. MaxImageCount zero means unbounded.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities, maxFrameLatency int) int {
	count := maxFrameLatency + 1
	if count < capabilities.MinImageCount {
		count = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// Resize records the new drawable size and reconfigures the swapchain. A
// zero dimension, as reported while minimised, defers the reconfigure until
// a usable size arrives.
func (c *Context) Resize(width, height int) error {
	if width == c.config.Width && height == c.config.Height && !c.stale {
		return nil
	}
	c.config.Width, c.config.Height = width, height
	if width <= 0 || height <= 0 {
		c.stale = true
		c.logger.Debug("deferring surface configure", "width", width, "height", height)
		return nil
	}
	return c.reconfigure()
}

func (c *Context) reconfigure() error {
	if err := c.configure(c.config); err != nil {
		c.stale = true
		return err
	}
	c.stale = false
	c.generation++
	return nil
}

// configureSwapchain builds a swapchain for cfg, replacing the current one.
func (c *Context) configureSwapchain(cfg SurfaceConfig) error {
	if _, err := c.deviceDriver.DeviceWaitIdle(); err != nil {
		return errors.Wrap(err, "gpu: wait idle before configure")
	}

	support, err := c.querySurfaceSupport()
	if err != nil {
		return err
	}
	extent := chooseExtent(support.capabilities, cfg.Width, cfg.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return errors.Mark(errors.Newf("gpu: surface extent %dx%d", extent.Width, extent.Height), ErrSurfaceOutdated)
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if c.adapter.graphicsFamily != c.adapter.presentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = []int{c.adapter.graphicsFamily, c.adapter.presentFamily}
	}

	c.destroySwapchain()

	swapchain, _, err := c.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: c.surface,

		MinImageCount:    cfg.ImageCount,
		ImageFormat:      cfg.Format,
		ImageColorSpace:  cfg.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.capabilities.CurrentTransform,
		CompositeAlpha: cfg.CompositeAlpha,
		PresentMode:    cfg.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "gpu: create swapchain")
	}
	c.swapchain = swapchain
	c.extent = extent

	images, _, err := c.swapchainExtension.GetSwapchainImages(swapchain)
	if err != nil {
		return errors.Wrap(err, "gpu: swapchain images")
	}
	for _, image := range images {
		view, _, err := c.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   cfg.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return errors.Wrap(err, "gpu: swapchain image view")
		}
		c.imageViews = append(c.imageViews, view)
	}

	c.logger.Debug("swapchain configured",
		"width", extent.Width, "height", extent.Height,
		"images", len(images), "format", cfg.Format, "present_mode", cfg.PresentMode)
	return nil
}

func (c *Context) destroySwapchain() {
	for _, view := range c.imageViews {
		c.deviceDriver.DestroyImageView(view, nil)
	}
	c.imageViews = nil

	if c.swapchain.Initialized() {
		c.swapchainExtension.DestroySwapchain(c.swapchain, nil)
		c.swapchain = khr_swapchain.Swapchain{}
	}
}

// AcquireNextImage returns the index of the next swapchain image, signalling
// signal once it is ready. A stale surface is reconfigured first. When the
// surface is out of date the returned error is marked ErrSurfaceOutdated and
// the frame must be skipped.
func (c *Context) AcquireNextImage(signal core1_0.Semaphore) (int, error) {
	if c.stale {
		if c.config.Width <= 0 || c.config.Height <= 0 {
			return -1, errors.Mark(errors.New("gpu: surface has zero size"), ErrSurfaceOutdated)
		}
		if err := c.reconfigure(); err != nil {
			return -1, err
		}
	}

	index, res, err := c.swapchainExtension.AcquireNextImage(c.swapchain, common.NoTimeout, &signal, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		c.stale = true
		return -1, errors.Mark(errors.Newf("gpu: acquire: %v", res), ErrSurfaceOutdated)
	} else if err != nil {
		return -1, errors.Wrap(err, "gpu: acquire next image")
	}
	if res == khr_swapchain.VKSuboptimal {
		// The image is usable; rebuild before the next one.
		c.stale = true
	}
	return index, nil
}

// Present queues image index for display once wait is signalled.
func (c *Context) Present(index int, wait core1_0.Semaphore) error {
	res, err := c.swapchainExtension.QueuePresent(c.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{c.swapchain},
		ImageIndices:   []int{index},
	})
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		c.stale = true
		return errors.Mark(errors.Newf("gpu: present: %v", res), ErrSurfaceOutdated)
	case res == khr_swapchain.VKSuboptimal:
		c.stale = true
		return nil
	case err != nil:
		return errors.Wrap(err, "gpu: present")
	}
	return nil
}
