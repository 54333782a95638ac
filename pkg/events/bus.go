package events

import (
	"log/slog"
	"sync"
)

// defaultQueueSize bounds each subscriber's buffer. A slow subscriber loses
// its oldest updates rather than blocking the publisher.
const defaultQueueSize = 64

// Bus is the in-process pub/sub for job updates. Publish never blocks.
type Bus struct {
	mu        sync.RWMutex
	subs      map[int]chan JobUpdate
	nextID    int
	queueSize int
}

func NewBus() *Bus {
	return NewBusWithQueueSize(defaultQueueSize)
}

func NewBusWithQueueSize(queueSize int) *Bus {
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		subs:      make(map[int]chan JobUpdate),
		queueSize: queueSize,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (b *Bus) Subscribe() (<-chan JobUpdate, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan JobUpdate, b.queueSize)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the update to every subscriber. A full subscriber queue
// drops its oldest update to make room.
func (b *Bus) Publish(update JobUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
				slog.Debug("Subscriber queue full, dropped oldest update", "subscriber", id)
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
