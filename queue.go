package guda

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Queue is an ordered command queue. Commands execute one at a time in
// submission order on a dedicated worker goroutine, so a command always
// observes the effects of every command enqueued before it.
//
// Errors are sticky: once a command fails, the commands behind it are
// skipped and every later enqueue and Finish returns the first error.
type Queue struct {
	ctx   *Context
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	err   error
}

func newQueue(ctx *Context) *Queue {
	q := &Queue{
		ctx:   ctx,
		tasks: make(chan func(), QueueDepth),
		done:  make(chan struct{}),
	}
	go q.worker()
	return q
}

// worker processes commands for the queue
func (q *Queue) worker() {
	for task := range q.tasks {
		task()
		q.wg.Done()
	}
	close(q.done)
}

// submit adds a command to the queue. In synchronous mode it also waits
// for the command to complete. When the command cannot be enqueued, drop
// (if not nil) is called instead of the command.
func (q *Queue) submit(op string, task func() error, drop func()) error {
	err := q.ctx.alive(op)
	if err == nil {
		err = q.Err()
	}
	if err != nil {
		if drop != nil {
			drop()
		}
		return err
	}

	q.closeMu.RLock()
	if q.closed {
		q.closeMu.RUnlock()
		if drop != nil {
			drop()
		}
		return NewDeviceError(op, "context has been destroyed")
	}
	q.wg.Add(1)
	q.tasks <- func() {
		if q.Err() != nil {
			if drop != nil {
				drop()
			}
			return
		}
		if err := task(); err != nil {
			q.fail(err)
		}
	}
	q.closeMu.RUnlock()

	if q.ctx.synchronous {
		return q.Finish()
	}
	return nil
}

func (q *Queue) fail(err error) {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

// Err returns the first error raised by a command, if any.
func (q *Queue) Err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.err
}

// Finish waits for all enqueued commands to complete.
func (q *Queue) Finish() error {
	q.wg.Wait()
	return q.Err()
}

// close drains the queue and stops its worker.
func (q *Queue) close() error {
	err := q.Finish()
	q.closeMu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.closeMu.Unlock()
	<-q.done
	return err
}

// Launch enqueues kernel k over the NDRange global, split into groups of
// local work-items, each group getting localInts int32 of local memory.
// Global must be a multiple of local in every dimension. The queue holds
// its own handle to every buffer in k.Buffers() until the launch completes
// and runs k.Bind over those handles, so callers may release theirs right
// after enqueueing.
func (q *Queue) Launch(k Kernel, global, local Dim3, localInts int) error {
	global, local = global.norm(), local.norm()
	if err := q.validateLaunch(k, global, local, localInts); err != nil {
		return err
	}
	if global.Size() == 0 {
		// Submit an empty command to maintain queue ordering
		return q.submit("Launch", func() error { return nil }, nil)
	}

	args := k.Buffers()
	retained := make([]*Buffer, 0, len(args))
	for i, b := range args {
		if !b.Valid() {
			releaseAll(retained)
			return errors.Wrapf(ErrInvalidBuffer, "%s: argument %d", k.Name(), i)
		}
		retained = append(retained, b.Retain())
	}
	bound := k.Bind(retained)

	log := q.ctx.log
	return q.submit("Launch", func() error {
		defer releaseAll(retained)
		if q.ctx.synchronous {
			log.Debug("launching kernel",
				"name", k.Name(),
				"global", []int{global.X, global.Y, global.Z},
				"local", []int{local.X, local.Y, local.Z})
		}
		start := time.Now()
		if err := q.ctx.execute(bound, global, local, localInts); err != nil {
			return err
		}
		elapsed := time.Since(start)
		q.ctx.stats.record(k.Name(), elapsed)
		if q.ctx.synchronous {
			log.Debug("kernel finished", "name", k.Name(), "elapsed", elapsed)
		}
		return nil
	}, func() { releaseAll(retained) })
}

func (q *Queue) validateLaunch(k Kernel, global, local Dim3, localInts int) error {
	op := "Launch " + k.Name()
	for d := 0; d < 3; d++ {
		if local.At(d) <= 0 {
			return NewInvalidArgError(op, fmt.Sprintf("local size must be positive, got %v", local))
		}
		if global.At(d) < 0 {
			return NewInvalidArgError(op, fmt.Sprintf("global size must not be negative, got %v", global))
		}
		if global.At(d)%local.At(d) != 0 {
			return NewInvalidArgError(op, fmt.Sprintf("global size %v is not a multiple of local size %v", global, local))
		}
	}
	if limit := q.ctx.device.MaxGroupSize; limit > 0 && local.Size() > limit {
		return NewInvalidArgError(op, fmt.Sprintf("local size %d exceeds the device maximum %d", local.Size(), limit))
	}
	if localInts < 0 {
		return NewInvalidArgError(op, "local memory size must not be negative")
	}
	if limit := q.ctx.device.LocalMemSize; limit > 0 && localInts*4 > limit {
		return NewInvalidArgError(op, fmt.Sprintf("%d bytes of local memory exceed the device maximum %d", localInts*4, limit))
	}
	return nil
}

// Write enqueues a copy of src into the start of dst. src is captured at
// enqueue time and may be reused immediately.
func (q *Queue) Write(dst *Buffer, src []int32) error {
	if !dst.Valid() {
		return errors.Wrap(ErrInvalidBuffer, "Write")
	}
	if len(src) > dst.Len() {
		return NewInvalidArgError("Write", fmt.Sprintf("writing %d values into a buffer of %d", len(src), dst.Len()))
	}
	data := slices.Clone(src)
	target := dst.Retain()
	return q.submit("Write", func() error {
		defer target.Release()
		copy(target.Int32(), data)
		return nil
	}, func() { _ = target.Release() })
}

// Read copies the start of src into dst and waits for completion, so dst
// holds the data when Read returns without error.
func (q *Queue) Read(dst []int32, src *Buffer) error {
	if !src.Valid() {
		return errors.Wrap(ErrInvalidBuffer, "Read")
	}
	if len(dst) > src.Len() {
		return NewInvalidArgError("Read", fmt.Sprintf("reading %d values from a buffer of %d", len(dst), src.Len()))
	}
	source := src.Retain()
	err := q.submit("Read", func() error {
		defer source.Release()
		copy(dst, source.Int32())
		return nil
	}, func() { _ = source.Release() })
	if err != nil {
		return err
	}
	return q.Finish()
}

// Copy enqueues a device-side copy of n int32 values from src[srcOff:] to
// dst[dstOff:]. Copying zero values is a no-op that keeps ordering.
func (q *Queue) Copy(dst, src *Buffer, dstOff, srcOff, n int) error {
	if !dst.Valid() || !src.Valid() {
		return errors.Wrap(ErrInvalidBuffer, "Copy")
	}
	if n < 0 || dstOff < 0 || srcOff < 0 || dstOff+n > dst.Len() || srcOff+n > src.Len() {
		return NewInvalidArgError("Copy", fmt.Sprintf(
			"copy of %d values from offset %d (of %d) to offset %d (of %d) is out of bounds",
			n, srcOff, src.Len(), dstOff, dst.Len()))
	}
	if n == 0 {
		return q.submit("Copy", func() error { return nil }, nil)
	}
	to, from := dst.Retain(), src.Retain()
	return q.submit("Copy", func() error {
		defer releaseAll([]*Buffer{to, from})
		copy(to.Int32()[dstOff:dstOff+n], from.Int32()[srcOff:srcOff+n])
		return nil
	}, func() { releaseAll([]*Buffer{to, from}) })
}

func releaseAll(bufs []*Buffer) {
	for _, b := range bufs {
		_ = b.Release()
	}
}
