package renderchunk

// BufferID is an opaque GPU buffer handle issued by a Device.
type BufferID uint32

// Device is the GPU boundary. CreateBuffer allocates a vertex buffer with its
// attribute layout; UpdateBuffer replaces the contents of an existing buffer
// in place and keeps its bindings.
type Device interface {
	CreateBuffer(f Feature, stride int, data []float32) (BufferID, error)
	UpdateBuffer(id BufferID, data []float32) error
	DeleteBuffer(id BufferID)
}

// Buffer is the registry's record of one (render chunk, feature) buffer.
type Buffer struct {
	ID       BufferID
	Feature  Feature
	X, Y     int
	Vertices int
	// Builds counts uploads, creation included.
	Builds int
}

// Bytes is the size of the vertex data last uploaded.
func (b *Buffer) Bytes() int {
	return b.Vertices * b.Feature.Stride() * 4
}
