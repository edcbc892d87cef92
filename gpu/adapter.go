package gpu

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"golang.org/x/sync/errgroup"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

// adapter is a physical device that can render to and present on the
// window surface.
type adapter struct {
	order          int
	device         core1_0.PhysicalDevice
	name           string
	kind           core1_0.PhysicalDeviceType
	maxImageDim    int
	pipelineCache  uuid.UUID
	graphicsFamily int
	presentFamily  int
	portability    bool
}

func (a adapter) score(pref PowerPreference) int {
	switch pref {
	case PowerLowPower:
		return a.typeRank(core1_0.PhysicalDeviceTypeIntegratedGPU, core1_0.PhysicalDeviceTypeDiscreteGPU)*1_000_000 + a.maxImageDim
	case PowerHighPerformance:
		return a.typeRank(core1_0.PhysicalDeviceTypeDiscreteGPU, core1_0.PhysicalDeviceTypeIntegratedGPU)*1_000_000 + a.maxImageDim
	}
	// Balanced: a capable integrated GPU can outrank a small discrete one.
	score := a.maxImageDim
	if a.kind == core1_0.PhysicalDeviceTypeDiscreteGPU {
		score += 1000
	}
	return score
}

func (a adapter) typeRank(best, second core1_0.PhysicalDeviceType) int {
	switch a.kind {
	case best:
		return 2
	case second:
		return 1
	}
	return 0
}

// rankAdapters orders candidates best first; ties keep enumeration order.
func rankAdapters(adapters []adapter, pref PowerPreference) {
	sort.SliceStable(adapters, func(i, j int) bool {
		si, sj := adapters[i].score(pref), adapters[j].score(pref)
		if si != sj {
			return si > sj
		}
		return adapters[i].order < adapters[j].order
	})
}

// probeAdapters inspects every physical device concurrently and returns the
// ones that qualify. The probes only issue instance-level queries, which
// Vulkan allows from any thread; nothing touches SDL or the swapchain, and
// New waits for every probe before it continues on the locked main thread.
// MoltenVK surface support queries are assumed to be thread safe as well.
func (c *Context) probeAdapters(ctx context.Context) ([]adapter, error) {
	devices, _, err := c.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "gpu: enumerate physical devices")
	}

	results := make([]*adapter, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	for i, device := range devices {
		i, device := i, device
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := c.probe(device)
			if err != nil {
				c.logger.Debug("skipping physical device", "index", i, "reason", err)
				return nil
			}
			a.order = i
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "gpu: probe adapters")
	}

	var adapters []adapter
	for _, a := range results {
		if a != nil {
			adapters = append(adapters, *a)
		}
	}
	return adapters, nil
}

func (c *Context) probe(device core1_0.PhysicalDevice) (*adapter, error) {
	props, err := c.instanceDriver.GetPhysicalDeviceProperties(device)
	if err != nil {
		return nil, errors.Wrap(err, "properties")
	}

	a := &adapter{
		device:         device,
		name:           props.DriverName,
		kind:           props.DriverType,
		maxImageDim:    props.Limits.MaxImageDimension2D,
		pipelineCache:  props.PipelineCacheUUID,
		graphicsFamily: -1,
		presentFamily:  -1,
	}

	for idx, family := range c.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device) {
		if a.graphicsFamily < 0 && family.QueueFlags&core1_0.QueueGraphics != 0 {
			a.graphicsFamily = idx
		}
		supported, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceSupport(c.surface, device, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "surface support for family %d", idx)
		}
		// A family doing both avoids concurrent sharing of swapchain images.
		if supported && (a.presentFamily < 0 || idx == a.graphicsFamily) {
			a.presentFamily = idx
		}
	}
	if a.graphicsFamily < 0 {
		return nil, errors.New("no graphics queue")
	}
	if a.presentFamily < 0 {
		return nil, errors.New("cannot present to the window surface")
	}

	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, errors.Wrap(err, "device extensions")
	}
	for _, ext := range deviceExtensions {
		if _, ok := extensions[ext]; !ok {
			return nil, errors.Newf("missing extension %s", ext)
		}
	}
	_, a.portability = extensions[khr_portability_subset.ExtensionName]

	formats, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, device)
	if err != nil {
		return nil, errors.Wrap(err, "surface formats")
	}
	modes, _, err := c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, device)
	if err != nil {
		return nil, errors.Wrap(err, "present modes")
	}
	if len(formats) == 0 || len(modes) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}

	return a, nil
}

// surfaceSupport is what the surface allows on the selected adapter.
type surfaceSupport struct {
	capabilities *khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

func (c *Context) querySurfaceSupport() (surfaceSupport, error) {
	var support surfaceSupport
	var err error

	support.capabilities, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(c.surface, c.adapter.device)
	if err != nil {
		return support, errors.Wrap(err, "gpu: surface capabilities")
	}

	support.formats, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, c.adapter.device)
	if err != nil {
		return support, errors.Wrap(err, "gpu: surface formats")
	}

	support.presentModes, _, err = c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, c.adapter.device)
	return support, errors.Wrap(err, "gpu: present modes")
}
