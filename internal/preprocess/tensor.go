package preprocess

// Tensor is a dense float32 buffer in NCHW order.
// Element [n, c, y, x] is stored at Data[((n*C+c)*H+y)*W+x].
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// Dims returns the shape as a slice, the form runtime APIs expect.
func (t *Tensor) Dims() []int64 {
	return t.Shape[:]
}

// Index returns the flat offset of element [n, c, y, x].
func (t *Tensor) Index(n, c, y, x int) int {
	ch, h, w := int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3])
	return ((n*ch+c)*h+y)*w + x
}

// At returns element [n, c, y, x].
func (t *Tensor) At(n, c, y, x int) float32 {
	return t.Data[t.Index(n, c, y, x)]
}

// Plane returns the contiguous values of channel c for batch item 0.
func (t *Tensor) Plane(c int) []float32 {
	size := int(t.Shape[2] * t.Shape[3])
	return t.Data[c*size : (c+1)*size]
}
