// Package pubsub implements a small single-producer, multi-consumer
// publisher used to expose observable state (cached lists, data origin).
//
// Delivery is conflating: every subscriber has a one-slot buffer, and a
// newer value replaces one the subscriber has not read yet. A subscriber
// therefore always converges on the latest published value, and values
// arrive in publish order.
package pubsub

import "sync"

// Publisher fans a stream of values out to its subscribers.
// The zero value is not usable; call New.
type Publisher[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[*Subscription[T]]struct{}
	closed  bool
}

// Subscription receives values from a Publisher on C until Close is
// called or the publisher is closed, at which point C is closed.
type Subscription[T any] struct {
	C   <-chan T
	ch  chan T
	pub *Publisher[T]
}

// New returns a Publisher whose current value is initial.
func New[T any](initial T) *Publisher[T] {
	return &Publisher[T]{
		current: initial,
		subs:    make(map[*Subscription[T]]struct{}),
	}
}

// Publish stores v as the current value and hands it to every subscriber.
// It never blocks on a slow subscriber.
func (p *Publisher[T]) Publish(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.current = v
	for sub := range p.subs {
		deliver(sub.ch, v)
	}
}

// Current returns the last published value.
func (p *Publisher[T]) Current() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribers returns how many subscriptions are still open.
func (p *Publisher[T]) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Subscribe registers a new subscriber. The current value is delivered
// immediately so late subscribers do not miss the state.
func (p *Publisher[T]) Subscribe() *Subscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan T, 1)
	sub := &Subscription[T]{C: ch, ch: ch, pub: p}
	if p.closed {
		close(ch)
		return sub
	}
	ch <- p.current
	p.subs[sub] = struct{}{}
	return sub
}

// Close unsubscribes everyone and closes their channels.
func (p *Publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for sub := range p.subs {
		close(sub.ch)
		delete(p.subs, sub)
	}
}

// Close stops delivery to this subscription and closes C.
// It is safe to call more than once.
func (s *Subscription[T]) Close() {
	p := s.pub
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subs[s]; !ok {
		return
	}
	delete(p.subs, s)
	close(s.ch)
}

// deliver puts v into a one-slot channel, dropping the stale value first
// if the reader has fallen behind. Callers hold the publisher lock, so
// there is no competing sender.
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
