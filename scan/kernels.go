package scan

import (
	guda "github.com/LynnColeArt/gudascan"
)

// MapAdd computes Out[i] = In[i] + Addend for i < Size.
type MapAdd struct {
	In     *guda.Buffer
	Out    *guda.Buffer
	Size   int
	Addend int32
}

func (k *MapAdd) Name() string { return "map_add" }

func (k *MapAdd) Buffers() []*guda.Buffer { return []*guda.Buffer{k.In, k.Out} }

func (k *MapAdd) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.In, c.Out = bufs[0], bufs[1]
	return &c
}

func (k *MapAdd) Execute(wi *guda.WorkItem) {
	i := wi.GlobalID(0)
	if i >= k.Size {
		return
	}
	k.Out.Int32()[i] = k.In.Int32()[i] + k.Addend
}

// GroupLasts reads, for every group g > 0, the inclusive total of the
// preceding group: Lasts[g] = Totals[(g-1)*GroupSize + GroupSize-1].
// Lasts[0] is 0.
type GroupLasts struct {
	Totals    *guda.Buffer
	Lasts     *guda.Buffer
	NumGroups int
	GroupSize int
}

func (k *GroupLasts) Name() string { return "group_lasts" }

func (k *GroupLasts) Buffers() []*guda.Buffer { return []*guda.Buffer{k.Totals, k.Lasts} }

func (k *GroupLasts) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.Totals, c.Lasts = bufs[0], bufs[1]
	return &c
}

func (k *GroupLasts) Execute(wi *guda.WorkItem) {
	g := wi.GlobalID(0)
	if g >= k.NumGroups {
		return
	}
	var last int32
	if g > 0 {
		last = k.Totals.Int32()[(g-1)*k.GroupSize+k.GroupSize-1]
	}
	k.Lasts.Int32()[g] = last
}

// CarryBroadcast computes ThreadCarry[g*GroupSize + l] =
// GroupCarry[g] + Totals[g*GroupSize + l], the inclusive prefix of chunk
// totals through thread g*GroupSize + l.
type CarryBroadcast struct {
	GroupCarry  *guda.Buffer
	Totals      *guda.Buffer
	ThreadCarry *guda.Buffer
	NumGroups   int
	GroupSize   int
}

func (k *CarryBroadcast) Name() string { return "carry_broadcast" }

func (k *CarryBroadcast) Buffers() []*guda.Buffer {
	return []*guda.Buffer{k.GroupCarry, k.Totals, k.ThreadCarry}
}

func (k *CarryBroadcast) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.GroupCarry, c.Totals, c.ThreadCarry = bufs[0], bufs[1], bufs[2]
	return &c
}

func (k *CarryBroadcast) Execute(wi *guda.WorkItem) {
	i := wi.GlobalID(0)
	if i >= k.NumGroups*k.GroupSize {
		return
	}
	g, l := i/k.GroupSize, i%k.GroupSize
	k.ThreadCarry.Int32()[g*k.GroupSize+l] = k.GroupCarry.Int32()[g] + k.Totals.Int32()[g*k.GroupSize+l]
}

// Combine adds to every element the carry of the threads before its owner:
// Out[j] = Scanned[j] + ThreadCarry[j/ElemsPerThread - 1], with no carry
// for the elements of thread 0.
type Combine struct {
	Scanned        *guda.Buffer
	ThreadCarry    *guda.Buffer
	Out            *guda.Buffer
	ElemsPerThread int
	GroupSize      int
	Size           int
}

func (k *Combine) Name() string { return "combine" }

func (k *Combine) Buffers() []*guda.Buffer {
	return []*guda.Buffer{k.Scanned, k.ThreadCarry, k.Out}
}

func (k *Combine) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.Scanned, c.ThreadCarry, c.Out = bufs[0], bufs[1], bufs[2]
	return &c
}

func (k *Combine) Execute(wi *guda.WorkItem) {
	j := wi.GlobalID(0)
	if j >= k.Size {
		return
	}
	v := k.Scanned.Int32()[j]
	if t := j / k.ElemsPerThread; t > 0 {
		prev := t - 1
		v += k.ThreadCarry.Int32()[prev/k.GroupSize*k.GroupSize+prev%k.GroupSize]
	}
	k.Out.Int32()[j] = v
}
