// Package guda reference implementations for verification
package guda

// Reference contains simple, correct implementations of the device kernels.
// These are used for testing and verification of the parallel versions.
// Arithmetic wraps around on overflow, like the device.
type Reference struct{}

// AddScalar performs x[i] += alpha in place.
func (r Reference) AddScalar(alpha int32, x []int32) {
	for i := range x {
		x[i] += alpha
	}
}

// InclusiveScan replaces x[i] with x[0] + ... + x[i] in place.
func (r Reference) InclusiveScan(x []int32) {
	var acc int32
	for i, v := range x {
		acc += v
		x[i] = acc
	}
}

// ExclusiveScan replaces x[i] with x[0] + ... + x[i-1] in place.
func (r Reference) ExclusiveScan(x []int32) {
	var acc int32
	for i, v := range x {
		x[i] = acc
		acc += v
	}
}

// Sum returns the sum of all elements.
func (r Reference) Sum(x []int32) int32 {
	var sum int32
	for _, v := range x {
		sum += v
	}
	return sum
}

// Transpose writes the height x width row-major matrix src into dst as a
// width x height matrix.
func (r Reference) Transpose(dst, src []int32, width, height int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst[x*height+y] = src[y*width+x]
		}
	}
}
