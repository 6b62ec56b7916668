package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBufferSize = 256

// Stream is an in-process, ordered publish mechanism. Every subscriber owns a
// bounded buffer; when it is full the oldest event is dropped and the
// stream-wide dropped counter is incremented, so Publish never waits on a
// slow observer.
type Stream struct {
	mu         sync.Mutex
	seq        uint64
	nextSubID  uint64
	subs       map[uint64]*Subscription
	bufferSize int
	closed     bool

	dropped atomic.Uint64
}

type StreamOption func(*Stream)

// WithBufferSize sets the per-subscriber buffer capacity.
func WithBufferSize(n int) StreamOption {
	return func(s *Stream) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

func NewStream(opts ...StreamOption) *Stream {
	s := &Stream{
		subs:       make(map[uint64]*Subscription),
		bufferSize: DefaultBufferSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Publish stamps the event with the next sequence number (and a timestamp if
// missing) and hands it to every subscriber.
func (s *Stream) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	e.Seq = s.seq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, sub := range s.subs {
		if sub.push(e) {
			s.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events discarded because a subscriber buffer
// was full.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Subscribe registers h. Events published after this call are delivered to h
// in order on a dedicated goroutine.
func (s *Stream) Subscribe(h Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	sub := &Subscription{
		id:      s.nextSubID,
		stream:  s,
		handler: h,
		buf:     make([]Event, s.bufferSize),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if s.closed {
		close(sub.done)
		close(sub.stopped)
		return sub
	}
	s.subs[sub.id] = sub
	go sub.deliver()
	return sub
}

// Close stops accepting events and waits until every subscriber has drained
// its buffer.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = map[uint64]*Subscription{}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (s *Stream) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

var _ Publisher = (*Stream)(nil)

// Subscription is a single observer of a Stream.
type Subscription struct {
	id      uint64
	stream  *Stream
	handler Handler

	mu   sync.Mutex
	buf  []Event
	head int
	size int

	notify   chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// push appends e, evicting the oldest buffered event when full. It reports
// whether an event was dropped.
func (sub *Subscription) push(e Event) bool {
	sub.mu.Lock()
	dropped := false
	if sub.size == len(sub.buf) {
		sub.head = (sub.head + 1) % len(sub.buf)
		sub.size--
		dropped = true
	}
	sub.buf[(sub.head+sub.size)%len(sub.buf)] = e
	sub.size++
	sub.mu.Unlock()

	select {
	case sub.notify <- struct{}{}:
	default:
	}
	return dropped
}

func (sub *Subscription) drain() []Event {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.size == 0 {
		return nil
	}
	out := make([]Event, 0, sub.size)
	for sub.size > 0 {
		out = append(out, sub.buf[sub.head])
		sub.buf[sub.head] = Event{}
		sub.head = (sub.head + 1) % len(sub.buf)
		sub.size--
	}
	return out
}

func (sub *Subscription) deliver() {
	defer close(sub.stopped)
	for {
		select {
		case <-sub.notify:
			sub.dispatch(sub.drain())
		case <-sub.done:
			sub.dispatch(sub.drain())
			return
		}
	}
}

func (sub *Subscription) dispatch(batch []Event) {
	for _, e := range batch {
		sub.call(e)
	}
}

func (sub *Subscription) call(e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("kind", string(e.Kind)).Msg("events: subscriber panicked")
		}
	}()
	sub.handler.OnEvent(e)
}

func (sub *Subscription) stop() {
	sub.stopOnce.Do(func() {
		close(sub.done)
	})
	<-sub.stopped
}

// Close detaches the subscription. Already buffered events are still
// delivered before Close returns.
func (sub *Subscription) Close() {
	sub.stream.remove(sub.id)
	sub.stop()
}
