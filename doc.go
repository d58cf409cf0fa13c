// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guda provides a GPU-style execution model on the CPU.
//
// A Context owns one emulated Device, a MemoryPool and a single ordered
// command Queue. Kernels are launched over an NDRange split into work-groups;
// work-items of a cooperative kernel run concurrently and may synchronize
// with Barrier, share group-local scratch memory, and emulate the lockstep
// execution of a hardware wave with WaveSync.
//
// Memory is handed out as reference-counted Buffers that live in host,
// device or group-local space. A Buffer is freed exactly once, when the last
// shared handle is released.
//
// Backend failures are fatal: Context.Succeed reports them, with the call
// site, to the context's FatalHandler, which by default terminates the
// process.
package guda
