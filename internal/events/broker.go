// Package events is a small typed publish/subscribe broker used to tell
// views that shared state changed.
package events

import (
	"maps"
	"slices"
	"sync"
)

type Broker[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(T)
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{handlers: make(map[int]func(T))}
}

// Subscribe registers fn and returns a func that removes it again.
func (b *Broker[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
		})
	}
}

// Publish calls every handler synchronously in subscription order.
// Handlers may subscribe or unsubscribe without deadlocking.
func (b *Broker[T]) Publish(event T) {
	b.mu.RLock()
	snapshot := maps.Clone(b.handlers)
	b.mu.RUnlock()

	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		snapshot[id](event)
	}
}
