package frame

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrBadLayout is returned when Shapes describe buffers that cannot be decoded.
var ErrBadLayout = errors.New("frame: bad draw list layout")

// DrawCommand draws ElementCount indices of its list, starting where the
// previous command of the list ended.
type DrawCommand struct {
	ElementCount int
	ClipRect     Rect
	TextureID    TextureID
}

// DrawList is a copy of one GUI draw list: raw vertex and index bytes laid
// out as described by the owning Shapes.
type DrawList struct {
	Vertices []byte
	Indices  []byte
	Commands []DrawCommand
}

// Shapes is the GUI library's draw output copied out of library-owned memory,
// so it stays valid after the next layout pass begins.
type Shapes struct {
	VertexSize  int
	PosOffset   int
	UVOffset    int
	ColorOffset int
	IndexSize   int
	Lists       []DrawList
}

func (s Shapes) validate() error {
	if len(s.Lists) == 0 {
		return nil
	}
	if s.VertexSize <= 0 {
		return errors.Wrapf(ErrBadLayout, "vertex size %d", s.VertexSize)
	}
	if s.PosOffset < 0 || s.PosOffset+8 > s.VertexSize ||
		s.UVOffset < 0 || s.UVOffset+8 > s.VertexSize ||
		s.ColorOffset < 0 || s.ColorOffset+4 > s.VertexSize {
		return errors.Wrapf(ErrBadLayout, "offsets pos=%d uv=%d col=%d exceed vertex size %d",
			s.PosOffset, s.UVOffset, s.ColorOffset, s.VertexSize)
	}
	if s.IndexSize != 2 && s.IndexSize != 4 {
		return errors.Wrapf(ErrBadLayout, "index size %d", s.IndexSize)
	}
	return nil
}

// Tessellate turns a Shapes snapshot into renderable primitives. Commands
// with no elements, or whose clip rectangle covers less than a pixel at the
// given scale, produce nothing.
func Tessellate(shapes Shapes, pixelsPerPoint float32) ([]Primitive, error) {
	if pixelsPerPoint <= 0 {
		return nil, errors.Newf("frame: invalid pixels per point %v", pixelsPerPoint)
	}
	if err := shapes.validate(); err != nil {
		return nil, err
	}

	var prims []Primitive
	for listIdx, list := range shapes.Lists {
		if len(list.Vertices)%shapes.VertexSize != 0 {
			return nil, errors.Wrapf(ErrBadLayout, "list %d: %d vertex bytes is not a multiple of %d",
				listIdx, len(list.Vertices), shapes.VertexSize)
		}
		if len(list.Indices)%shapes.IndexSize != 0 {
			return nil, errors.Wrapf(ErrBadLayout, "list %d: %d index bytes is not a multiple of %d",
				listIdx, len(list.Indices), shapes.IndexSize)
		}

		vertices := decodeVertices(shapes, list.Vertices)
		indices := decodeIndices(shapes.IndexSize, list.Indices)

		offset := 0
		for cmdIdx, cmd := range list.Commands {
			if cmd.ElementCount < 0 || offset+cmd.ElementCount > len(indices) {
				return nil, errors.Wrapf(ErrBadLayout, "list %d command %d: indices [%d,%d) out of %d",
					listIdx, cmdIdx, offset, offset+cmd.ElementCount, len(indices))
			}
			idx := indices[offset : offset+cmd.ElementCount]
			offset += cmd.ElementCount

			if len(idx) == 0 || tooSmall(cmd.ClipRect, pixelsPerPoint) {
				continue
			}
			for _, i := range idx {
				if int(i) >= len(vertices) {
					return nil, errors.Wrapf(ErrBadLayout, "list %d command %d: vertex %d out of %d",
						listIdx, cmdIdx, i, len(vertices))
				}
			}
			prims = append(prims, Primitive{
				ClipRect:  cmd.ClipRect,
				TextureID: cmd.TextureID,
				Vertices:  vertices,
				Indices:   idx,
			})
		}
	}
	return prims, nil
}

func tooSmall(clip Rect, ppp float32) bool {
	return (clip.MaxX-clip.MinX)*ppp < 1 || (clip.MaxY-clip.MinY)*ppp < 1
}

func decodeVertices(shapes Shapes, raw []byte) []Vertex {
	n := len(raw) / shapes.VertexSize
	out := make([]Vertex, n)
	for i := range out {
		b := raw[i*shapes.VertexSize : (i+1)*shapes.VertexSize]
		out[i] = Vertex{
			Pos:   [2]float32{f32(b[shapes.PosOffset:]), f32(b[shapes.PosOffset+4:])},
			UV:    [2]float32{f32(b[shapes.UVOffset:]), f32(b[shapes.UVOffset+4:])},
			Color: binary.LittleEndian.Uint32(b[shapes.ColorOffset:]),
		}
	}
	return out
}

func decodeIndices(size int, raw []byte) []uint32 {
	n := len(raw) / size
	out := make([]uint32, n)
	for i := range out {
		if size == 2 {
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		} else {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	}
	return out
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
