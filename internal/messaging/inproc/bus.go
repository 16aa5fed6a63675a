package inproc

import (
	"errors"
	"fmt"
	"sync"

	"valvenet/internal/domain"
)

var ErrSubscriberQueueFull = errors.New("subscriber queue is full")

// Bus fans run events out to every registered subscriber.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.RunEvent
	buffer int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan domain.RunEvent),
		buffer: buffer,
	}
}

func (b *Bus) Register(subscriberID string) <-chan domain.RunEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[subscriberID]; ok {
		return ch
	}
	ch := make(chan domain.RunEvent, b.buffer)
	b.subs[subscriberID] = ch
	return ch
}

func (b *Bus) Unregister(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[subscriberID]
	if !ok {
		return
	}
	delete(b.subs, subscriberID)
	close(ch)
}

// Publish never blocks. Subscribers that cannot keep up miss the event and
// are reported in the returned error.
func (b *Bus) Publish(evt domain.RunEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var errs []error
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrSubscriberQueueFull, id))
		}
	}
	return errors.Join(errs...)
}
