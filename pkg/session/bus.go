package session

import "sync"

// Bus fans session snapshots out to independent observers (UI, logging, ...).
// Subscribing returns an unsubscribe func; removing one observer never
// affects the others. Handlers are invoked synchronously in subscription
// order outside any publisher lock, so they may read back session state, but
// they must not block.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Snapshot)
	order    []int
}

// NewBus returns an empty observer bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]func(Snapshot))}
}

// Subscribe registers a handler for future snapshots and returns the
// function that removes it. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(handler func(Snapshot)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers the snapshot to every live observer.
func (b *Bus) Publish(snap Snapshot) {
	b.mu.Lock()
	handlers := make([]func(Snapshot), 0, len(b.handlers))
	for _, id := range b.order {
		if h, ok := b.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}

// Len returns the number of live observers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
