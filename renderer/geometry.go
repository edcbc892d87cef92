package renderer

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/guidemo/frame"
)

// draw is one indexed draw call into the frame's shared vertex and index
// buffers.
type draw struct {
	scissor      frame.Scissor
	texture      frame.TextureID
	firstIndex   int
	indexCount   int
	vertexOffset int
}

type geometry struct {
	vertices []frame.Vertex
	indices  []uint32
	draws    []draw
}

// buildGeometry packs primitives into one vertex and one index array.
// Primitives sharing a vertex slice share its copy too. Primitives with no
// indices or a scissor outside the target are left out.
func buildGeometry(screen frame.ScreenDescriptor, primitives []frame.Primitive) geometry {
	var g geometry
	var lastVerts *frame.Vertex
	lastOffset := 0

	for _, p := range primitives {
		if len(p.Indices) == 0 || len(p.Vertices) == 0 {
			continue
		}
		scissor, ok := screen.ScissorFor(p.ClipRect)
		if !ok {
			continue
		}

		if &p.Vertices[0] != lastVerts {
			lastVerts = &p.Vertices[0]
			lastOffset = len(g.vertices)
			g.vertices = append(g.vertices, p.Vertices...)
		}

		g.draws = append(g.draws, draw{
			scissor:      scissor,
			texture:      p.TextureID,
			firstIndex:   len(g.indices),
			indexCount:   len(p.Indices),
			vertexOffset: lastOffset,
		})
		g.indices = append(g.indices, p.Indices...)
	}
	return g
}

func (g geometry) vertexBytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(len(g.vertices) * frame.VertexSize)
	err := binary.Write(buf, common.ByteOrder, g.vertices)
	return buf.Bytes(), err
}

func (g geometry) indexBytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(len(g.indices) * 4)
	err := binary.Write(buf, common.ByteOrder, g.indices)
	return buf.Bytes(), err
}

// projection maps GUI points onto Vulkan clip space: (0,0) is the top-left
// corner and y grows downwards.
func projection(screen frame.ScreenDescriptor) mgl32.Mat4 {
	size := screen.SizeInPoints()
	return mgl32.Ortho(0, size[0], 0, size[1], -1, 1)
}

func uniformBytes(screen frame.ScreenDescriptor) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, projection(screen))
	return buf.Bytes(), err
}

// grownSize is the capacity to allocate for needed bytes: the next power of
// two, at least minBufferSize. current is kept when it already fits.
func grownSize(current, needed int) int {
	if needed <= current {
		return current
	}
	size := minBufferSize
	for size < needed {
		size *= 2
	}
	return size
}

const minBufferSize = 64 * 1024
