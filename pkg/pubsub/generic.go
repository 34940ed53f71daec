package pubsub

import (
	"sync"
)

// DefaultBuffer is the number of messages a subscriber may lag behind
// before Publish starts dropping messages for it.
const DefaultBuffer = 16

type PubSub[T any] struct {
	mu     sync.Mutex
	subs   map[string][]chan T
	buffer int
	closed bool
}

func NewPubSub[T any]() *PubSub[T] {
	return NewBufferedPubSub[T](DefaultBuffer)
}

func NewBufferedPubSub[T any](buffer int) *PubSub[T] {
	return &PubSub[T]{
		subs:   make(map[string][]chan T),
		buffer: buffer,
	}
}

func (ps *PubSub[T]) Subscribe(topic string) <-chan T {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ch := make(chan T, ps.buffer)
	if ps.closed {
		close(ch)
		return ch
	}
	ps.subs[topic] = append(ps.subs[topic], ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (ps *PubSub[T]) Unsubscribe(topic string, sub <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	chans := ps.subs[topic]
	for i, ch := range chans {
		if ch == sub {
			ps.subs[topic] = append(chans[:i:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(ps.subs[topic]) == 0 {
		delete(ps.subs, topic)
	}
}

// Publish hands data to every subscriber of topic without blocking. It
// returns the number of subscribers that received it.
func (ps *PubSub[T]) Publish(topic string, data T) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delivered := 0
	for _, ch := range ps.subs[topic] {
		select {
		case ch <- data:
			delivered++
		default:
		}
	}
	return delivered
}

// Close closes every subscription. Later subscriptions are closed at once.
func (ps *PubSub[T]) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.closed = true
	for topic, chans := range ps.subs {
		for _, ch := range chans {
			close(ch)
		}
		delete(ps.subs, topic)
	}
}
