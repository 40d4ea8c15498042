package session

import (
	"sync"

	"github.com/ayusman/swingcoach/internal/pose"
)

// mailbox is a single-slot frame buffer between any number of producers and
// exactly one consumer. A publish overwrites an unconsumed frame, so the
// consumer always sees the most recent pose and producers never block.
type mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	frame *pose.Frame

	// lastSeq is the highest Seq accepted so far, pending or consumed.
	lastSeq uint64

	received uint64
	dropped  uint64
	stale    uint64

	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// publish stores f for the consumer. Frames whose Seq is not greater than
// the last accepted one are rejected so the consumer sees an in-order subsequence.
// A zero Seq means the producer does not number its frames; it is assigned the next one.
// Returns false when the frame was rejected or the mailbox is closed.
func (m *mailbox) publish(f *pose.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.received++

	if f.Seq == 0 {
		f.Seq = m.lastSeq + 1
	}
	if f.Seq <= m.lastSeq {
		m.stale++
		return false
	}
	m.lastSeq = f.Seq

	if m.frame != nil {
		m.dropped++
	}
	m.frame = f
	m.cond.Signal()
	return true
}

// next blocks until a frame is available and takes it.
// Returns nil once the mailbox is closed.
func (m *mailbox) next() *pose.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return nil
	}

	f := m.frame
	m.frame = nil
	return f
}

// close wakes the consumer and makes further publishes no-ops.
// A pending frame is discarded.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame != nil {
		m.dropped++
		m.frame = nil
	}
	m.closed = true
	m.cond.Broadcast()
}

// reopen makes a closed mailbox usable again, keeping its counters and sequence.
func (m *mailbox) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

// counts returns the received, dropped and stale counters.
func (m *mailbox) counts() (received, dropped, stale uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received, m.dropped, m.stale
}
