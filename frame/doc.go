// Package frame holds the per-frame data handed from the GUI adapter to the
// frame renderer: textures to upload or free, tessellated primitives, and the
// screen descriptor that maps GUI points onto the render target.
//
// Everything in a payload is produced fresh every frame. The only state that
// outlives a frame is the renderer's texture cache, which is keyed by
// TextureID and driven by TexturesDelta.
package frame
