package scan

import (
	guda "github.com/LynnColeArt/gudascan"
)

// Transpose transposes Height x Width row-major matrices from Src into Dst
// through a TileDim x TileDim tile of local memory. The third launch
// dimension selects the matrix of a batch, each Width*Height elements long.
//
// Each tile row in local memory is padded by one element so that column
// reads fall into different banks.
type Transpose struct {
	Dst       *guda.Buffer
	DstOffset int
	Src       *guda.Buffer
	SrcOffset int
	Width     int
	Height    int
	TotalSize int
	TileDim   int
}

func (k *Transpose) Name() string { return "transpose_i32" }

func (k *Transpose) Buffers() []*guda.Buffer { return []*guda.Buffer{k.Dst, k.Src} }

func (k *Transpose) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.Dst, c.Src = bufs[0], bufs[1]
	return &c
}

func (k *Transpose) Cooperative() bool { return true }

// Global returns the NDRange for batches matrices.
func (k *Transpose) Global(batches int) guda.Dim3 {
	return guda.Dim3{
		X: guda.RoundUp(k.Width, k.TileDim),
		Y: guda.RoundUp(k.Height, k.TileDim),
		Z: batches,
	}
}

// Local returns the group shape, one work-item per tile element.
func (k *Transpose) Local() guda.Dim3 {
	return guda.Dim3{X: k.TileDim, Y: k.TileDim, Z: 1}
}

// LocalInts returns the local memory needed per group.
func (k *Transpose) LocalInts() int {
	return (k.TileDim + 1) * k.TileDim
}

func (k *Transpose) Execute(wi *guda.WorkItem) {
	d := k.TileDim
	tile := wi.Local()
	batch := wi.GlobalID(2) * k.Width * k.Height
	in := k.Src.Int32()[k.SrcOffset+batch:]
	out := k.Dst.Int32()[k.DstOffset+batch:]
	lx, ly := wi.LocalID(0), wi.LocalID(1)

	// read the matrix tile into local memory
	x, y := wi.GlobalID(0), wi.GlobalID(1)
	indexIn := y*k.Width + x
	if x < k.Width && y < k.Height && indexIn < k.TotalSize {
		tile[ly*(d+1)+lx] = in[indexIn]
	}
	wi.Barrier()

	// write the transposed tile to global memory
	x = wi.GroupID(1)*d + lx
	y = wi.GroupID(0)*d + ly
	indexOut := y*k.Height + x
	if x < k.Height && y < k.Width && indexOut < k.TotalSize {
		out[indexOut] = tile[lx*(d+1)+ly]
	}
}

// TransposeBuffer enqueues the transposition of batches height x width
// matrices from src into dst.
func TransposeBuffer(q *guda.Queue, dst, src *guda.Buffer, width, height, batches, tileDim int) error {
	k := &Transpose{
		Dst:       dst,
		Src:       src,
		Width:     width,
		Height:    height,
		TotalSize: width * height * batches,
		TileDim:   tileDim,
	}
	return q.Launch(k, k.Global(batches), k.Local(), k.LocalInts())
}
