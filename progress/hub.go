// Package progress carries per-cycle driver snapshots out to an external,
// out-of-scope observer: a fan-out Hub (unbounded or bounded drop-on-full)
// and a synchronous per-cycle CSV appender.
package progress

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Event is one cycle's snapshot, as emitted by the driver.
type Event struct {
	Cycle      int
	NegTwoLL   float64
	DeltaObjf  float64
	NumSupport int
	Gamma      float64
	Theta      *mat.Dense
}

// sink is one subscriber's delivery channel: push never blocks the
// publisher, regardless of whether the sink is bounded or unbounded.
type sink interface {
	push(Event)
	out() <-chan Event
	close()
}

// Hub fans Events out to any number of subscribers. The driver is the
// sole producer; observers are consumers. No back-pressure reaches the
// driver from a slow or absent observer.
type Hub struct {
	mu       sync.Mutex
	subs     map[int]sink
	nextID   int
	capacity int // 0 = unbounded, >0 = bounded with drop-on-full
}

// NewHub creates a Hub whose subscribers never drop events: each
// subscriber is served by its own unbounded internal queue.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]sink)}
}

// NewBoundedHub creates a Hub whose subscribers hold at most capacity
// buffered events; a publish to a full subscriber is dropped rather than
// blocking the driver.
func NewBoundedHub(capacity int) *Hub {
	return &Hub{subs: make(map[int]sink), capacity: capacity}
}

// Subscribe registers a new observer, returning its event channel and a
// cancel function that unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++

	var s sink
	if h.capacity > 0 {
		s = newBoundedSink(h.capacity)
	} else {
		s = newUnboundedSink()
	}
	h.subs[id] = s
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		s.close()
	}
	return s.out(), cancel
}

// Publish fans e out to every current subscriber.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	snapshot := make([]sink, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		s.push(e)
	}
}

// boundedSink drops a push when its buffer is full, mirroring the
// non-blocking-select-with-default fan-out idiom.
type boundedSink struct {
	ch chan Event
}

func newBoundedSink(capacity int) *boundedSink {
	return &boundedSink{ch: make(chan Event, capacity)}
}

func (s *boundedSink) push(e Event) {
	select {
	case s.ch <- e:
	default:
		// Slow subscriber: drop this event rather than block the driver.
	}
}
func (s *boundedSink) out() <-chan Event { return s.ch }
func (s *boundedSink) close()            { close(s.ch) }

// unboundedSink never drops: pushes append to a growing queue guarded by
// a mutex/condvar, and a relay goroutine drains it into the subscriber's
// channel as the subscriber reads.
type unboundedSink struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	outCh  chan Event
}

func newUnboundedSink() *unboundedSink {
	s := &unboundedSink{outCh: make(chan Event)}
	s.cond = sync.NewCond(&s.mu)
	go s.relay()
	return s
}

func (s *unboundedSink) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *unboundedSink) relay() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.outCh)
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.outCh <- e
	}
}

func (s *unboundedSink) out() <-chan Event { return s.outCh }

func (s *unboundedSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Signal()
}
