package guda

import (
	"fmt"
	"testing"

	"github.com/dustin/go-humanize"
)

// Benchmark queue copy bandwidth
func BenchmarkCopyBandwidth(b *testing.B) {
	sizes := []int{
		1 << 8,  // 1KB
		1 << 13, // 32KB
		1 << 16, // 256KB
		1 << 21, // 8MB
	}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("Copy_%s", humanize.IBytes(uint64(n*4))), func(b *testing.B) {
			ctx := NewContext(nil)
			defer ctx.Destroy()
			src, _ := ctx.AllocateInt32(DeviceSpace, n)
			dst, _ := ctx.AllocateInt32(DeviceSpace, n)
			defer src.Release()
			defer dst.Release()
			q := ctx.Queue()

			b.SetBytes(int64(n * 4 * 2)) // Read + Write
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				q.Copy(dst, src, 0, 0, n)
			}
			q.Finish()
		})
	}
}

// Benchmark launch overhead of flat and cooperative kernels
func BenchmarkLaunch(b *testing.B) {
	const n = 1 << 14
	for _, groupSize := range []int{32, 256} {
		b.Run(fmt.Sprintf("Flat_G%d", groupSize), func(b *testing.B) {
			ctx := NewContext(nil)
			defer ctx.Destroy()
			buf, _ := ctx.AllocateInt32(DeviceSpace, n)
			defer buf.Release()
			k := &addOne{Data: buf, N: n}

			b.SetBytes(int64(n * 4 * 2))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ctx.Queue().Launch(k, Dim3{X: n}, Dim3{X: groupSize}, 0)
			}
			ctx.Queue().Finish()
		})

		b.Run(fmt.Sprintf("Cooperative_G%d", groupSize), func(b *testing.B) {
			ctx := NewContext(nil)
			defer ctx.Destroy()
			in, _ := ctx.AllocateInt32(DeviceSpace, n)
			out, _ := ctx.AllocateInt32(DeviceSpace, n)
			defer in.Release()
			defer out.Release()
			k := &reverseGroup{In: in, Out: out}

			b.SetBytes(int64(n * 4 * 2))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ctx.Queue().Launch(k, Dim3{X: n}, Dim3{X: groupSize}, groupSize)
			}
			ctx.Queue().Finish()
		})
	}
}
