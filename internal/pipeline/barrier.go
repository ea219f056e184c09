package pipeline

import "sync/atomic"

// Barrier is a one-shot rendezvous point: every party calls Wait exactly
// once, and all of them return together once the last one arrives. It
// gates the capture/process/playback startup described in spec.md §4.1 (a
// supervisor may join as a fourth party so it can release the gate itself
// once both devices report ready).
type Barrier struct {
	n       int32
	arrived int32
	release chan struct{}
}

// NewBarrier returns a barrier that releases once n parties have called
// Wait.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: int32(n), release: make(chan struct{})}
}

// Wait blocks until every party has called Wait.
func (b *Barrier) Wait() {
	if atomic.AddInt32(&b.arrived, 1) == b.n {
		close(b.release)
		return
	}
	<-b.release
}
