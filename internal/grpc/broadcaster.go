package grpc

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/flood-alerts/internal/models"
)

const defaultBuffer = 100

// Broadcaster fans persisted alerts out to stream subscribers. A subscriber
// whose buffer is full misses the alert rather than blocking the sender.
type Broadcaster struct {
	subscribers map[uint64]chan *models.Alert
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	buffer      int
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return NewBroadcasterSize(defaultBuffer)
}

func NewBroadcasterSize(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.Alert),
		buffer:      buffer,
	}
}

// Subscribe returns a closed channel once the broadcaster is closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan *models.Alert) {
	id := b.nextID.Add(1)
	ch := make(chan *models.Alert, b.buffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(a *models.Alert) {
	if a == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- a:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels, causing streams to exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
