// Package gpu owns the Vulkan instance, the window surface, the logical
// device and the swapchain, and keeps the swapchain in step with the window
// size.
package gpu

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/guidemo/platform"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

var (
	// ErrNoAdapter means no physical device can render to the window.
	ErrNoAdapter = errors.New("gpu: no suitable adapter")
	// ErrSurfaceOutdated marks acquire and present failures that are cured
	// by reconfiguring the swapchain.
	ErrSurfaceOutdated = errors.New("gpu: surface outdated")
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// Context is the GPU side of one window. All methods must be called from
// the thread that created it.
type Context struct {
	logger *slog.Logger
	window *platform.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	adapter       adapter
	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension khr_swapchain.ExtensionDriver
	swapchain          khr_swapchain.Swapchain
	imageViews         []core1_0.ImageView
	extent             core1_0.Extent2D

	config         SurfaceConfig
	framesInFlight int
	stale          bool
	generation     uint64
	configure      func(SurfaceConfig) error
}

// New creates the GPU context for window at the given drawable size. It
// blocks until the device and swapchain are ready. The context holds a
// reference on window until Destroy.
func New(ctx context.Context, window *platform.Window, width, height int, opts Options) (_ *Context, err error) {
	opts.setDefaults()
	preferredMode, err := ParsePresentMode(opts.PresentMode)
	if err != nil {
		return nil, err
	}

	c := &Context{
		logger:         opts.Logger,
		window:         window.Retain(),
		framesInFlight: opts.MaxFrameLatency,
	}
	c.configure = c.configureSwapchain
	defer func() {
		if err != nil {
			c.Destroy()
		}
	}()

	c.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "gpu: load vulkan")
	}
	if err = c.createInstance(opts); err != nil {
		return nil, err
	}

	c.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	c.surface, err = vkng_sdl2.CreateSurface(c.instanceDriver.Instance(), c.surfaceExtension, window.Handle())
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create surface")
	}

	adapters, err := c.probeAdapters(ctx)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, errors.WithStack(ErrNoAdapter)
	}
	rankAdapters(adapters, opts.PowerPreference)
	c.adapter = adapters[0]
	c.logger.Info("adapter selected",
		"name", c.adapter.name,
		"type", c.adapter.kind,
		"pipeline_cache", c.adapter.pipelineCache.String(),
		"candidates", len(adapters),
		"power_preference", opts.PowerPreference)

	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "gpu: cancelled before device creation")
	}
	if err = c.createDevice(); err != nil {
		return nil, err
	}

	support, err := c.querySurfaceSupport()
	if err != nil {
		return nil, err
	}
	format := chooseSurfaceFormat(support.formats)
	c.config = SurfaceConfig{
		Width:          width,
		Height:         height,
		Format:         format.Format,
		ColorSpace:     format.ColorSpace,
		PresentMode:    choosePresentMode(support.presentModes, preferredMode),
		CompositeAlpha: chooseCompositeAlpha(support.capabilities.SupportedCompositeAlpha),
		ImageCount:     chooseImageCount(support.capabilities, opts.MaxFrameLatency),
	}

	if width <= 0 || height <= 0 {
		c.stale = true
		return c, nil
	}
	if err = c.reconfigure(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) createInstance(opts Options) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "guidemo",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := c.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "gpu: instance extensions")
	}
	for _, ext := range c.window.VulkanInstanceExtensions() {
		if _, ok := extensions[ext]; !ok {
			return errors.Newf("gpu: window needs missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	validation := opts.Validation
	if validation {
		layers, _, err := c.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "gpu: instance layers")
		}
		for _, layer := range validationLayers {
			if _, ok := layers[layer]; !ok {
				c.logger.Warn("validation requested but layer is not installed", "layer", layer)
				validation = false
			}
		}
	}
	if validation {
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayers...)
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		instanceOptions.Next = c.debugMessengerOptions()
	}

	c.instanceDriver, _, err = c.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "gpu: create instance")
	}

	if validation {
		c.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
		c.debugMessenger, _, err = c.debugDriver.CreateDebugUtilsMessenger(nil, c.debugMessengerOptions())
		if err != nil {
			return errors.Wrap(err, "gpu: create debug messenger")
		}
	}
	return nil
}

func (c *Context) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    c.logDebug,
	}
}

func (c *Context) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}
	c.logger.Log(context.Background(), level, data.Message, "source", "vulkan", "type", msgType.String())
	return false
}

func (c *Context) createDevice() error {
	families := []int{c.adapter.graphicsFamily}
	if c.adapter.presentFamily != c.adapter.graphicsFamily {
		families = append(families, c.adapter.presentFamily)
	}

	var queueOptions []core1_0.DeviceQueueCreateInfo
	for _, family := range families {
		queueOptions = append(queueOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensionNames := append([]string{}, deviceExtensions...)
	if c.adapter.portability {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	var err error
	c.deviceDriver, _, err = c.instanceDriver.CreateDevice(c.adapter.device, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueOptions,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrapf(err, "gpu: create device on %s", c.adapter.name)
	}

	c.graphicsQueue = c.deviceDriver.GetQueue(c.adapter.graphicsFamily, 0)
	c.presentQueue = c.deviceDriver.GetQueue(c.adapter.presentFamily, 0)
	c.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.deviceDriver)
	return nil
}

// Config is the current surface configuration.
func (c *Context) Config() SurfaceConfig { return c.config }

// Generation increases every time the swapchain is rebuilt. Anything built
// from ImageViews must be rebuilt when it changes.
func (c *Context) Generation() uint64 { return c.generation }

func (c *Context) ImageViews() []core1_0.ImageView { return c.imageViews }

func (c *Context) Extent() core1_0.Extent2D { return c.extent }

func (c *Context) Format() core1_0.Format { return c.config.Format }

// FramesInFlight is how many frames the renderer may record ahead.
func (c *Context) FramesInFlight() int { return c.framesInFlight }

// Stale reports whether the next acquisition will reconfigure first.
func (c *Context) Stale() bool { return c.stale }

func (c *Context) Device() core1_0.CoreDeviceDriver { return c.deviceDriver }

func (c *Context) GraphicsQueue() core1_0.Queue { return c.graphicsQueue }

func (c *Context) GraphicsFamily() int { return c.adapter.graphicsFamily }

func (c *Context) Logger() *slog.Logger { return c.logger }

// FindMemoryType returns the first memory type allowed by typeFilter that
// has all of properties.
func (c *Context) FindMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := c.instanceDriver.GetPhysicalDeviceMemoryProperties(c.adapter.device)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("gpu: no memory type for filter %#x with %s", typeFilter, properties)
}

// Destroy waits for the device to go idle and releases everything in
// reverse creation order. The window reference is released last.
func (c *Context) Destroy() {
	if c.deviceDriver != nil {
		_, _ = c.deviceDriver.DeviceWaitIdle()
		c.destroySwapchain()
		c.deviceDriver.DestroyDevice(nil)
		c.deviceDriver = nil
	}

	if c.debugMessenger.Initialized() {
		c.debugDriver.DestroyDebugUtilsMessenger(c.debugMessenger, nil)
		c.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.surface.Initialized() {
		c.surfaceExtension.DestroySurface(c.surface, nil)
		c.surface = khr_surface.Surface{}
	}

	if c.instanceDriver != nil {
		c.instanceDriver.DestroyInstance(nil)
		c.instanceDriver = nil
	}

	if c.window != nil {
		c.window.Release()
		c.window = nil
	}
}
