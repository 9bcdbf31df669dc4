// Package bus is a small in-process broadcast channel for signals that any
// component may want to observe, such as a forced logout.
package bus

import "sync"

const TopicLogout = "auth:logout"

// Bus is ready to use as a zero value; New is a convenience.
type Bus struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]func()
}

func New() *Bus {
	return &Bus{handlers: make(map[string]map[int]func())}
}

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.handlers == nil {
		b.handlers = make(map[string]map[int]func())
	}
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]func())
	}
	b.handlers[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[topic], id)
		})
	}
}

// Publish calls every handler of topic once, outside the lock.
func (b *Bus) Publish(topic string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.handlers[topic]))
	for _, fn := range b.handlers[topic] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
