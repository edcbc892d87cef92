// Package renderer draws tessellated GUI primitives into the swapchain
// images of a gpu.Context.
package renderer

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/guidemo/frame"
	"github.com/vkngwrapper/guidemo/gpu"
	"github.com/vkngwrapper/guidemo/texcache"
)

const texturesPerPool = 32

// frameSlot holds what one frame in flight needs. Its buffers are only
// touched after inFlight has signalled.
type frameSlot struct {
	imageAvailable core1_0.Semaphore
	inFlight       core1_0.Fence
	commandBuffer  core1_0.CommandBuffer

	uniform    hostBuffer
	uniformSet core1_0.DescriptorSet
	vertices   hostBuffer
	indices    hostBuffer
}

// target is the per swapchain image state, rebuilt with the swapchain.
type target struct {
	framebuffer    core1_0.Framebuffer
	renderFinished core1_0.Semaphore
	// lastFence is the slot fence of the last frame that drew into this
	// image. It is not owned.
	lastFence core1_0.Fence
}

// Stats describes the CPU cost of the last frame.
type Stats struct {
	Frames    uint64
	Skipped   uint64
	LastFrame time.Duration
}

// count files the outcome of one frame. A frame lost to an outdated surface,
// at acquire or at present, is skipped rather than rendered.
func (s *Stats) count(err error) {
	switch {
	case err == nil:
		s.Frames++
	case errors.Is(err, gpu.ErrSurfaceOutdated):
		s.Skipped++
	}
}

type Renderer struct {
	gpu    *gpu.Context
	device core1_0.CoreDeviceDriver
	logger *slog.Logger

	renderPass     core1_0.RenderPass
	globalLayout   core1_0.DescriptorSetLayout
	textureLayout  core1_0.DescriptorSetLayout
	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline
	sampler        core1_0.Sampler
	commandPool    core1_0.CommandPool
	uniformPool    core1_0.DescriptorPool

	slots   []*frameSlot
	current int

	targets    []target
	generation uint64

	descriptors *descriptorAllocator
	textures    *texcache.Cache[*texture]

	stats Stats
}

// New builds the GUI pipeline for ctx. The renderer must be destroyed before
// ctx.
func New(ctx *gpu.Context) (_ *Renderer, err error) {
	r := &Renderer{
		gpu:    ctx,
		device: ctx.Device(),
		logger: ctx.Logger(),
	}
	r.descriptors = &descriptorAllocator{r: r, perPool: texturesPerPool}
	r.textures = texcache.New[*texture](textureUploader{r: r})
	defer func() {
		if err != nil {
			r.Destroy()
		}
	}()

	if err = r.createRenderPass(ctx.Format()); err != nil {
		return nil, err
	}
	if err = r.createDescriptorSetLayouts(); err != nil {
		return nil, err
	}
	if err = r.createPipeline(); err != nil {
		return nil, err
	}
	if err = r.createSampler(); err != nil {
		return nil, err
	}

	r.commandPool, _, err = r.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: ctx.GraphicsFamily(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "renderer: create command pool")
	}

	if err = r.createSlots(ctx.FramesInFlight()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) createSlots(count int) error {
	var err error
	r.uniformPool, _, err = r.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: count,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: count},
		},
	})
	if err != nil {
		return errors.Wrap(err, "renderer: create uniform descriptor pool")
	}

	for i := 0; i < count; i++ {
		slot := &frameSlot{
			uniform:  hostBuffer{usage: core1_0.BufferUsageUniformBuffer},
			vertices: hostBuffer{usage: core1_0.BufferUsageVertexBuffer},
			indices:  hostBuffer{usage: core1_0.BufferUsageIndexBuffer},
		}
		r.slots = append(r.slots, slot)

		slot.imageAvailable, _, err = r.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "renderer: create semaphore")
		}
		slot.inFlight, _, err = r.device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return errors.Wrap(err, "renderer: create fence")
		}

		// The projection is 64 bytes; ensure rounds up to the minimum size.
		if err = r.ensure(&slot.uniform, 64); err != nil {
			return err
		}
		sets, _, err := r.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
			DescriptorPool: r.uniformPool,
			SetLayouts:     []core1_0.DescriptorSetLayout{r.globalLayout},
		})
		if err != nil {
			return errors.Wrap(err, "renderer: allocate uniform set")
		}
		slot.uniformSet = sets[0]
		err = r.device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          slot.uniformSet,
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: slot.uniform.buffer,
						Offset: 0,
						Range:  64,
					},
				},
			},
		}, nil)
		if err != nil {
			return errors.Wrap(err, "renderer: write uniform set")
		}
	}
	return nil
}

// syncTargets rebuilds framebuffers and present semaphores whenever the
// swapchain has been reconfigured.
func (r *Renderer) syncTargets() error {
	if r.targets != nil && r.generation == r.gpu.Generation() {
		return nil
	}
	if _, err := r.device.DeviceWaitIdle(); err != nil {
		return errors.Wrap(err, "renderer: wait idle before rebuilding targets")
	}
	r.destroyTargets()

	extent := r.gpu.Extent()
	for _, view := range r.gpu.ImageViews() {
		framebuffer, _, err := r.device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  r.renderPass,
			Layers:      1,
			Attachments: []core1_0.ImageView{view},
			Width:       extent.Width,
			Height:      extent.Height,
		})
		if err != nil {
			return errors.Wrap(err, "renderer: create framebuffer")
		}
		semaphore, _, err := r.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			r.device.DestroyFramebuffer(framebuffer, nil)
			return errors.Wrap(err, "renderer: create present semaphore")
		}
		r.targets = append(r.targets, target{framebuffer: framebuffer, renderFinished: semaphore})
	}
	r.generation = r.gpu.Generation()
	r.logger.Debug("render targets rebuilt", "count", len(r.targets), "generation", r.generation,
		"width", extent.Width, "height", extent.Height)
	return nil
}

func (r *Renderer) destroyTargets() {
	for _, t := range r.targets {
		r.device.DestroyFramebuffer(t.framebuffer, nil)
		r.device.DestroySemaphore(t.renderFinished, nil)
	}
	r.targets = nil
}

// Resize reconfigures the surface for the new drawable size.
func (r *Renderer) Resize(width, height int) error {
	return r.gpu.Resize(width, height)
}

// Stats returns counters for the frames rendered so far.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// RenderFrame applies textures, uploads the primitives' geometry, acquires
// a swapchain image, draws into it and presents it. When the surface is out
// of date the error is marked gpu.ErrSurfaceOutdated; the texture updates
// have been applied regardless.
func (r *Renderer) RenderFrame(screen frame.ScreenDescriptor, primitives []frame.Primitive, textures frame.TexturesDelta) error {
	start := hrtime.Now()
	slot := r.slots[r.current]

	_, err := r.device.WaitForFences(true, common.NoTimeout, slot.inFlight)
	if err != nil {
		return errors.Wrap(err, "renderer: wait for frame")
	}
	if slot.commandBuffer.Initialized() {
		r.device.FreeCommandBuffers(slot.commandBuffer)
		slot.commandBuffer = core1_0.CommandBuffer{}
	}

	// 1. Textures. Replacing or freeing may hit images an earlier frame is
	// still sampling, so drain the queue first.
	if !textures.IsEmpty() {
		if _, err = r.device.QueueWaitIdle(r.gpu.GraphicsQueue()); err != nil {
			return errors.Wrap(err, "renderer: wait before texture update")
		}
		if err = r.textures.Apply(textures); err != nil {
			return err
		}
	}

	// 2. Geometry and uniforms.
	geom := buildGeometry(screen, primitives)
	if err = r.uploadGeometry(slot, screen, geom); err != nil {
		return err
	}

	// 3. Acquire.
	imageIndex, err := r.gpu.AcquireNextImage(slot.imageAvailable)
	if err != nil {
		r.stats.count(err)
		return err
	}
	if err = r.syncTargets(); err != nil {
		return err
	}
	tgt := &r.targets[imageIndex]
	if tgt.lastFence.Initialized() {
		if _, err = r.device.WaitForFences(true, common.NoTimeout, tgt.lastFence); err != nil {
			return errors.Wrap(err, "renderer: wait for image")
		}
	}
	tgt.lastFence = slot.inFlight

	// 4 and 5. Record the pass.
	commandBuffer, err := r.record(tgt.framebuffer, slot, geom)
	if err != nil {
		return err
	}
	slot.commandBuffer = commandBuffer

	// 6. Submit and present.
	if _, err = r.device.ResetFences(slot.inFlight); err != nil {
		return errors.Wrap(err, "renderer: reset fence")
	}
	_, err = r.device.QueueSubmit(r.gpu.GraphicsQueue(), &slot.inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{slot.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{tgt.renderFinished},
		},
	)
	if err != nil {
		return errors.Wrap(err, "renderer: submit")
	}
	r.current = (r.current + 1) % len(r.slots)

	err = r.gpu.Present(imageIndex, tgt.renderFinished)
	r.stats.count(err)
	r.stats.LastFrame = hrtime.Since(start)
	return err
}

func (r *Renderer) uploadGeometry(slot *frameSlot, screen frame.ScreenDescriptor, geom geometry) error {
	uniform, err := uniformBytes(screen)
	if err != nil {
		return errors.Wrap(err, "renderer: encode projection")
	}
	if err = r.writeMemory(slot.uniform.memory, uniform); err != nil {
		return err
	}
	if len(geom.draws) == 0 {
		return nil
	}

	vertices, err := geom.vertexBytes()
	if err != nil {
		return errors.Wrap(err, "renderer: encode vertices")
	}
	if err = r.upload(&slot.vertices, vertices); err != nil {
		return err
	}
	indices, err := geom.indexBytes()
	if err != nil {
		return errors.Wrap(err, "renderer: encode indices")
	}
	return r.upload(&slot.indices, indices)
}

func (r *Renderer) record(framebuffer core1_0.Framebuffer, slot *frameSlot, geom geometry) (core1_0.CommandBuffer, error) {
	buffers, _, err := r.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "renderer: allocate command buffer")
	}
	buffer := buffers[0]

	fail := func(err error, msg string) (core1_0.CommandBuffer, error) {
		r.device.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, errors.Wrap(err, msg)
	}

	if _, err = r.device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	}); err != nil {
		return fail(err, "renderer: begin command buffer")
	}

	extent := r.gpu.Extent()
	err = r.device.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.renderPass,
			Framebuffer: framebuffer,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 0},
			},
		})
	if err != nil {
		return fail(err, "renderer: begin render pass")
	}

	if len(geom.draws) > 0 {
		r.device.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, r.pipeline)
		r.device.CmdSetViewport(buffer, core1_0.Viewport{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		})
		r.device.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{slot.vertices.buffer}, []int{0})
		r.device.CmdBindIndexBuffer(buffer, slot.indices.buffer, 0, core1_0.IndexTypeUInt32)
		r.device.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, r.pipelineLayout, 0,
			[]core1_0.DescriptorSet{slot.uniformSet}, nil)

		bound := frame.TextureID(0)
		haveBound := false
		for _, d := range geom.draws {
			if !haveBound || d.texture != bound {
				tex, ok := r.textures.Get(d.texture)
				if !ok {
					r.logger.Debug("skipping draw with unknown texture", "texture", d.texture)
					continue
				}
				r.device.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, r.pipelineLayout, 1,
					[]core1_0.DescriptorSet{tex.set}, nil)
				bound, haveBound = d.texture, true
			}
			scissor, ok := clampScissor(d.scissor, extent)
			if !ok {
				continue
			}
			r.device.CmdSetScissor(buffer, scissor)
			r.device.CmdDrawIndexed(buffer, d.indexCount, 1, d.firstIndex, d.vertexOffset, 0)
		}
	}

	r.device.CmdEndRenderPass(buffer)
	if _, err = r.device.EndCommandBuffer(buffer); err != nil {
		return fail(err, "renderer: end command buffer")
	}
	return buffer, nil
}

// clampScissor limits s to the framebuffer. The swapchain may have been
// rebuilt at a different size after the geometry was built.
func clampScissor(s frame.Scissor, extent core1_0.Extent2D) (core1_0.Rect2D, bool) {
	width := min(s.Width, extent.Width-s.X)
	height := min(s.Height, extent.Height-s.Y)
	if width <= 0 || height <= 0 {
		return core1_0.Rect2D{}, false
	}
	return core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: s.X, Y: s.Y},
		Extent: core1_0.Extent2D{Width: width, Height: height},
	}, true
}

// Destroy releases every renderer resource. The GPU context stays alive.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	_, _ = r.device.DeviceWaitIdle()

	r.textures.Close()
	r.descriptors.destroy()
	r.destroyTargets()

	for _, slot := range r.slots {
		if slot.commandBuffer.Initialized() {
			r.device.FreeCommandBuffers(slot.commandBuffer)
		}
		r.destroyHostBuffer(&slot.uniform)
		r.destroyHostBuffer(&slot.vertices)
		r.destroyHostBuffer(&slot.indices)
		if slot.inFlight.Initialized() {
			r.device.DestroyFence(slot.inFlight, nil)
		}
		if slot.imageAvailable.Initialized() {
			r.device.DestroySemaphore(slot.imageAvailable, nil)
		}
	}
	r.slots = nil

	if r.uniformPool.Initialized() {
		r.device.DestroyDescriptorPool(r.uniformPool, nil)
	}
	if r.commandPool.Initialized() {
		r.device.DestroyCommandPool(r.commandPool, nil)
	}
	if r.sampler.Initialized() {
		r.device.DestroySampler(r.sampler, nil)
	}
	if r.pipeline.Initialized() {
		r.device.DestroyPipeline(r.pipeline, nil)
	}
	if r.pipelineLayout.Initialized() {
		r.device.DestroyPipelineLayout(r.pipelineLayout, nil)
	}
	if r.textureLayout.Initialized() {
		r.device.DestroyDescriptorSetLayout(r.textureLayout, nil)
	}
	if r.globalLayout.Initialized() {
		r.device.DestroyDescriptorSetLayout(r.globalLayout, nil)
	}
	if r.renderPass.Initialized() {
		r.device.DestroyRenderPass(r.renderPass, nil)
	}
	r.device = nil
}
