package frame

// Vertex is one GUI vertex: position in points, texture coordinate and a
// packed RGBA8 colour (red in the low byte). The layout is 20 bytes with no
// padding and is uploaded to vertex buffers as is.
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color uint32
}

// VertexSize is the size of Vertex in bytes.
const VertexSize = 20

// Primitive is a clipped, textured triangle list. Primitives built from the
// same draw list share their Vertices slice.
type Primitive struct {
	ClipRect  Rect
	TextureID TextureID
	Vertices  []Vertex
	Indices   []uint32
}
