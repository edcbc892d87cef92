package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// hostBuffer is a host-visible buffer that grows on demand.
type hostBuffer struct {
	usage  core1_0.BufferUsageFlags
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

func (r *Renderer) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := r.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "renderer: create buffer")
	}

	memRequirements := r.device.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := r.gpu.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		r.device.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := r.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		r.device.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "renderer: allocate buffer memory")
	}

	if _, err = r.device.BindBufferMemory(buffer, memory, 0); err != nil {
		r.device.DestroyBuffer(buffer, nil)
		r.device.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "renderer: bind buffer memory")
	}
	return buffer, memory, nil
}

// ensure makes b hold at least needed bytes. The old buffer is destroyed, so
// the caller must know the GPU is done with it.
func (r *Renderer) ensure(b *hostBuffer, needed int) error {
	size := grownSize(b.size, needed)
	if size == b.size && b.buffer.Initialized() {
		return nil
	}
	r.destroyHostBuffer(b)

	buffer, memory, err := r.createBuffer(size, b.usage, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}
	b.buffer, b.memory, b.size = buffer, memory, size
	return nil
}

func (r *Renderer) destroyHostBuffer(b *hostBuffer) {
	if b.buffer.Initialized() {
		r.device.DestroyBuffer(b.buffer, nil)
		b.buffer = core1_0.Buffer{}
	}
	if b.memory.Initialized() {
		r.device.FreeMemory(b.memory, nil)
		b.memory = core1_0.DeviceMemory{}
	}
	b.size = 0
}

func (r *Renderer) writeMemory(memory core1_0.DeviceMemory, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	memoryPtr, _, err := r.device.MapMemory(memory, 0, len(data), 0)
	if err != nil {
		return errors.Wrap(err, "renderer: map memory")
	}
	defer r.device.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}

// upload grows b to fit data and copies data into it.
func (r *Renderer) upload(b *hostBuffer, data []byte) error {
	if err := r.ensure(b, len(data)); err != nil {
		return err
	}
	return r.writeMemory(b.memory, data)
}

func (r *Renderer) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := r.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "renderer: allocate upload commands")
	}

	buffer := buffers[0]
	_, err = r.device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return buffer, errors.Wrap(err, "renderer: begin upload commands")
}

func (r *Renderer) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	defer r.device.FreeCommandBuffers(buffer)

	if _, err := r.device.EndCommandBuffer(buffer); err != nil {
		return errors.Wrap(err, "renderer: end upload commands")
	}

	_, err := r.device.QueueSubmit(r.gpu.GraphicsQueue(), nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "renderer: submit upload")
	}

	_, err = r.device.QueueWaitIdle(r.gpu.GraphicsQueue())
	return errors.Wrap(err, "renderer: wait for upload")
}
