package realtime

import (
	"context"
	"sync"
)

// MemoryBroker delivers events within the process. Handlers run on the
// publishing goroutine.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func([]byte)
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]func([]byte))}
}

func (m *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	handlers := make([]func([]byte), 0, len(m.subs[topic]))
	for _, fn := range m.subs[topic] {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}

func (m *MemoryBroker) Subscribe(topic string, onInsert func([]byte)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[int]func([]byte))
	}
	m.subs[topic][id] = onInsert

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[topic], id)
			if len(m.subs[topic]) == 0 {
				delete(m.subs, topic)
			}
		})
	}, nil
}

// Subscribers returns the number of handlers on topic.
func (m *MemoryBroker) Subscribers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic])
}

func (m *MemoryBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = make(map[string]map[int]func([]byte))
	return nil
}
