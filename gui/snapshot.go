package gui

import (
	"unsafe"

	"github.com/inkyblackness/imgui-go/v4"
	"github.com/vkngwrapper/guidemo/frame"
)

// snapshot copies the rendered draw data out of ImGui-owned memory.
func snapshot(data imgui.DrawData) frame.Shapes {
	vertexSize, posOffset, uvOffset, colOffset := imgui.VertexBufferLayout()
	shapes := frame.Shapes{
		VertexSize:  vertexSize,
		PosOffset:   posOffset,
		UVOffset:    uvOffset,
		ColorOffset: colOffset,
		IndexSize:   imgui.IndexBufferLayout(),
	}
	if !data.Valid() {
		return shapes
	}

	for _, list := range data.CommandLists() {
		vertexPtr, vertexBytes := list.VertexBuffer()
		indexPtr, indexBytes := list.IndexBuffer()

		out := frame.DrawList{
			Vertices: copyBytes(vertexPtr, vertexBytes),
			Indices:  copyBytes(indexPtr, indexBytes),
		}
		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				continue
			}
			clip := cmd.ClipRect()
			out.Commands = append(out.Commands, frame.DrawCommand{
				ElementCount: cmd.ElementCount(),
				ClipRect:     frame.Rect{MinX: clip.X, MinY: clip.Y, MaxX: clip.Z, MaxY: clip.W},
				TextureID:    frame.TextureID(cmd.TextureID()),
			})
		}
		shapes.Lists = append(shapes.Lists, out)
	}
	return shapes
}

func copyBytes(ptr unsafe.Pointer, n int) []byte {
	if ptr == nil || n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(ptr), n))
	return out
}
