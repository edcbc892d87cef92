package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/guidemo/frame"
)

// texture is a sampled RGBA8 image plus the descriptor set binding it.
type texture struct {
	id     frame.TextureID
	width  int
	height int
	image  core1_0.Image
	memory core1_0.DeviceMemory
	view   core1_0.ImageView
	set    core1_0.DescriptorSet
}

// textureUploader implements texcache.Uploader on top of the renderer.
type textureUploader struct {
	r *Renderer
}

func (u textureUploader) Create(id frame.TextureID, delta frame.ImageDelta) (*texture, error) {
	r := u.r
	tex := &texture{id: id, width: delta.Width, height: delta.Height}

	image, _, err := r.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  delta.Width,
			Height: delta.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        textureFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "renderer: create image for %s", id)
	}
	tex.image = image

	memReqs := r.device.GetImageMemoryRequirements(image)
	memoryIndex, err := r.gpu.FindMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		u.Destroy(tex)
		return nil, err
	}
	tex.memory, _, err = r.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		u.Destroy(tex)
		return nil, errors.Wrapf(err, "renderer: allocate image memory for %s", id)
	}
	if _, err = r.device.BindImageMemory(image, tex.memory, 0); err != nil {
		u.Destroy(tex)
		return nil, errors.Wrapf(err, "renderer: bind image memory for %s", id)
	}

	tex.view, _, err = r.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   textureFormat,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		u.Destroy(tex)
		return nil, errors.Wrapf(err, "renderer: create image view for %s", id)
	}

	if err = r.copyToImage(tex, delta, core1_0.ImageLayoutUndefined); err != nil {
		u.Destroy(tex)
		return nil, err
	}

	tex.set, err = r.descriptors.allocate()
	if err != nil {
		u.Destroy(tex)
		return nil, err
	}
	err = r.device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:         tex.set,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeSampledImage,
			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   tex.view,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
		{
			DstSet:         tex.set,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeSampler,
			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					Sampler: r.sampler,
				},
			},
		},
	}, nil)
	if err != nil {
		u.Destroy(tex)
		return nil, errors.Wrapf(err, "renderer: write descriptors for %s", id)
	}

	r.logger.Debug("texture created", "id", id, "width", delta.Width, "height", delta.Height)
	return tex, nil
}

func (u textureUploader) Update(tex *texture, delta frame.ImageDelta) error {
	x, y := delta.Pos[0], delta.Pos[1]
	if x < 0 || y < 0 || x+delta.Width > tex.width || y+delta.Height > tex.height {
		return errors.Newf("renderer: patch %dx%d at (%d,%d) outside %s of %dx%d",
			delta.Width, delta.Height, x, y, tex.id, tex.width, tex.height)
	}
	return u.r.copyToImage(tex, delta, core1_0.ImageLayoutShaderReadOnlyOptimal)
}

func (u textureUploader) Destroy(tex *texture) {
	r := u.r
	if tex.set.Initialized() {
		r.descriptors.release(tex.set)
		tex.set = core1_0.DescriptorSet{}
	}
	if tex.view.Initialized() {
		r.device.DestroyImageView(tex.view, nil)
		tex.view = core1_0.ImageView{}
	}
	if tex.image.Initialized() {
		r.device.DestroyImage(tex.image, nil)
		tex.image = core1_0.Image{}
	}
	if tex.memory.Initialized() {
		r.device.FreeMemory(tex.memory, nil)
		tex.memory = core1_0.DeviceMemory{}
	}
}

// copyToImage stages delta and copies it into tex, leaving the image ready
// for sampling. from is the layout the image is currently in.
func (r *Renderer) copyToImage(tex *texture, delta frame.ImageDelta, from core1_0.ImageLayout) error {
	staging, stagingMemory, err := r.createBuffer(len(delta.Pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}
	defer r.device.DestroyBuffer(staging, nil)
	defer r.device.FreeMemory(stagingMemory, nil)

	if err = r.writeMemory(stagingMemory, delta.Pixels); err != nil {
		return err
	}

	buffer, err := r.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	subresource := core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	srcAccess := core1_0.AccessFlags(0)
	srcStage := core1_0.PipelineStageTopOfPipe
	if from == core1_0.ImageLayoutShaderReadOnlyOptimal {
		srcAccess = core1_0.AccessShaderRead
		srcStage = core1_0.PipelineStageFragmentShader
	}

	err = r.device.CmdPipelineBarrier(buffer, srcStage, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           from,
			NewLayout:           core1_0.ImageLayoutTransferDstOptimal,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               tex.image,
			SubresourceRange:    subresource,
			SrcAccessMask:       srcAccess,
			DstAccessMask:       core1_0.AccessTransferWrite,
		},
	})
	if err != nil {
		r.device.FreeCommandBuffers(buffer)
		return errors.Wrap(err, "renderer: barrier to transfer")
	}

	var x, y int
	if delta.Pos != nil {
		x, y = delta.Pos[0], delta.Pos[1]
	}
	err = r.device.CmdCopyBufferToImage(buffer, staging, tex.image, core1_0.ImageLayoutTransferDstOptimal,
		core1_0.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,

			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: x, Y: y, Z: 0},
			ImageExtent: core1_0.Extent3D{Width: delta.Width, Height: delta.Height, Depth: 1},
		},
	)
	if err != nil {
		r.device.FreeCommandBuffers(buffer)
		return errors.Wrap(err, "renderer: copy to image")
	}

	err = r.device.CmdPipelineBarrier(buffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           core1_0.ImageLayoutTransferDstOptimal,
			NewLayout:           core1_0.ImageLayoutShaderReadOnlyOptimal,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               tex.image,
			SubresourceRange:    subresource,
			SrcAccessMask:       core1_0.AccessTransferWrite,
			DstAccessMask:       core1_0.AccessShaderRead,
		},
	})
	if err != nil {
		r.device.FreeCommandBuffers(buffer)
		return errors.Wrap(err, "renderer: barrier to shader read")
	}

	return r.endSingleTimeCommands(buffer)
}

// descriptorAllocator hands out texture descriptor sets from a growing list
// of pools. Released sets are reused rather than freed back to the pool.
type descriptorAllocator struct {
	r       *Renderer
	perPool int
	pools   []core1_0.DescriptorPool
	inPool  int
	free    []core1_0.DescriptorSet
}

func (a *descriptorAllocator) allocate() (core1_0.DescriptorSet, error) {
	if n := len(a.free); n > 0 {
		set := a.free[n-1]
		a.free = a.free[:n-1]
		return set, nil
	}

	if len(a.pools) == 0 || a.inPool == a.perPool {
		pool, _, err := a.r.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
			MaxSets: a.perPool,
			PoolSizes: []core1_0.DescriptorPoolSize{
				{Type: core1_0.DescriptorTypeSampledImage, DescriptorCount: a.perPool},
				{Type: core1_0.DescriptorTypeSampler, DescriptorCount: a.perPool},
			},
		})
		if err != nil {
			return core1_0.DescriptorSet{}, errors.Wrap(err, "renderer: create texture descriptor pool")
		}
		a.pools = append(a.pools, pool)
		a.inPool = 0
	}

	sets, _, err := a.r.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: a.pools[len(a.pools)-1],
		SetLayouts:     []core1_0.DescriptorSetLayout{a.r.textureLayout},
	})
	if err != nil {
		return core1_0.DescriptorSet{}, errors.Wrap(err, "renderer: allocate texture descriptor set")
	}
	a.inPool++
	return sets[0], nil
}

func (a *descriptorAllocator) release(set core1_0.DescriptorSet) {
	a.free = append(a.free, set)
}

func (a *descriptorAllocator) destroy() {
	for _, pool := range a.pools {
		a.r.device.DestroyDescriptorPool(pool, nil)
	}
	a.pools = nil
	a.free = nil
	a.inPool = 0
}
