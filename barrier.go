package guda

import "sync"

// barrier is a reusable rendezvous for a fixed set of work-items. A
// work-item that finishes (or faults) retires, so the remaining parties
// never wait for it again.
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

func newBarrier(parties int) *barrier {
	b := &barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until every active party has called Wait.
func (b *barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.waiting++
	if b.waiting >= b.parties {
		b.trip()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

// Retire removes one party.
func (b *barrier) Retire() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.parties--
	if b.waiting > 0 && b.waiting >= b.parties {
		b.trip()
	}
}

// must be called with b.mu held
func (b *barrier) trip() {
	b.generation++
	b.waiting = 0
	b.cond.Broadcast()
}
