package scan

import (
	guda "github.com/LynnColeArt/gudascan"
)

// HierarchicalScan is the local scan. Each of the NumThreads work-items owns
// a chunk of up to ElemsPerThread elements, stored transposed: element k of
// thread t lives at In[k*NumThreads + t]. A work-item scans its chunk
// sequentially into Out (same layout), then the chunk totals are scanned
// across the group, first within each wave and then across waves.
//
// Totals[group*GroupSize + local] receives the inclusive prefix of chunk
// totals within the group. Work-items past Size own an empty chunk and
// contribute 0.
type HierarchicalScan struct {
	In             *guda.Buffer
	Out            *guda.Buffer
	Totals         *guda.Buffer
	ElemsPerThread int
	NumThreads     int
	Size           int
	GroupSize      int
	Lockstep       int
}

func (k *HierarchicalScan) Name() string { return "scan_local" }

func (k *HierarchicalScan) Buffers() []*guda.Buffer {
	return []*guda.Buffer{k.In, k.Out, k.Totals}
}

func (k *HierarchicalScan) Bind(bufs []*guda.Buffer) guda.Kernel {
	c := *k
	c.In, c.Out, c.Totals = bufs[0], bufs[1], bufs[2]
	return &c
}

func (k *HierarchicalScan) Cooperative() bool { return true }

func (k *HierarchicalScan) WaveWidth() int { return k.Lockstep }

// chunk returns the number of elements owned by thread t.
func (k *HierarchicalScan) chunk(t int) int {
	start := t * k.ElemsPerThread
	if start >= k.Size {
		return 0
	}
	return min(k.ElemsPerThread, k.Size-start)
}

func (k *HierarchicalScan) Execute(wi *guda.WorkItem) {
	in, out, totals := k.In.Int32(), k.Out.Int32(), k.Totals.Int32()
	local := wi.Local()
	t := wi.GlobalID(0)
	l := wi.LocalID(0)
	w := max(k.Lockstep, 1)
	wave, lane := l/w, l%w

	// sequentially scan a chunk
	var acc int32
	for e := 0; e < k.chunk(t); e++ {
		i := e*k.NumThreads + t
		acc += in[i]
		out[i] = acc
	}

	local[l] = acc
	acc = waveScan(wi, local, l, lane, w, acc, true)
	wi.Barrier()

	// last work-item of wave i writes its wave total to slot i
	if lane == w-1 {
		local[wave] = acc
	}
	wi.Barrier()

	// the first wave scans the slots, W at a time, after which slot i holds
	// the carry-in for wave i+1
	if wave == 0 {
		waves := (k.GroupSize + w - 1) / w
		for base := 0; base < waves; base += w {
			slot := base + lane
			active := slot < waves
			var v int32
			if active {
				v = local[slot]
			}
			v = waveScan(wi, local, slot, lane, w, v, active)
			if base > 0 && active {
				v += local[base-1]
			}
			if active {
				local[slot] = v
			}
			wi.WaveSync()
		}
	}
	wi.Barrier()

	// carry-in for every wave except the first
	if wave > 0 {
		acc += local[wave-1]
	}
	totals[wi.GroupID(0)*k.GroupSize+l] = acc
}

// waveScan is an in-place Hillis-Steele inclusive scan of local[pos] across
// the lanes of a wave, where v is the current value at pos. Every lane of the
// wave must call it after storing v; inactive lanes only take part in the
// synchronization. Reads and writes of a step are separated by WaveSync, as
// if the wave ran in lockstep.
func waveScan(wi *guda.WorkItem, local []int32, pos, lane, w int, v int32, active bool) int32 {
	wi.WaveSync()
	for skip := 1; skip < w; skip *= 2 {
		var x int32
		combine := active && skip <= lane
		if combine {
			x = local[pos-skip]
		}
		wi.WaveSync()
		if combine {
			v += x
			local[pos] = v
		}
		wi.WaveSync()
	}
	return v
}
