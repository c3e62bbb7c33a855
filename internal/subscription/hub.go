// Package subscription fans state snapshots out to subscribers.
package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub delivers every published value to all current subscribers. A slow
// subscriber only ever misses intermediate values: its buffer keeps the
// most recent one.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan T
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uuid.UUID]chan T)}
}

// Subscribe registers a subscriber. The returned function removes it and
// closes the channel; it is safe to call more than once. The subscription
// also ends when ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context) (uuid.UUID, <-chan T, func()) {
	id := uuid.New()
	c := make(chan T, 1)

	h.mu.Lock()
	h.subs[id] = c
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(c)
			h.mu.Unlock()
		})
	}
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, cancel)
		return id, c, func() {
			stop()
			cancel()
		}
	}
	return id, c, cancel
}

// Notify publishes v without blocking.
func (h *Hub[T]) Notify(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.subs {
		select {
		case c <- v:
			continue
		default:
		}
		// Drop the stale value and keep the newest.
		select {
		case <-c:
		default:
		}
		select {
		case c <- v:
		default:
		}
	}
}

// Len is the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
