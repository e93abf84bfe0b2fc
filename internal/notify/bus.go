// Package notify fans out service state snapshots to in-process
// subscribers and an optional websocket endpoint.
package notify

import (
	"sync"

	"github.com/geopaparazzi/tracklog/internal/channel"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

// Bus broadcasts snapshots to subscribers. Delivery is latest-wins: a
// subscriber that falls behind sees the most recent snapshot, never a
// backlog, and a slow subscriber never blocks the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*channel.Conflated[*core.Snapshot]
	nextID int
	last   *core.Snapshot
	closed bool
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*channel.Conflated[*core.Snapshot])}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes its channel. A subscriber joining
// after publishes started immediately receives the latest snapshot.
func (b *Bus) Subscribe() (channel.Receiver[*core.Snapshot], func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := channel.NewConflated[*core.Snapshot]()
	if b.closed {
		ch.Close()
		return ch, func() {}
	}
	b.subs[id] = ch
	if b.last != nil {
		ch.Send(b.last)
	}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			sub.Close()
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber.
func (b *Bus) Publish(s *core.Snapshot) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = s
	for _, sub := range b.subs {
		sub.Send(s)
	}
}

// Last returns the most recently published snapshot, nil before the
// first publish.
func (b *Bus) Last() *core.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.Close()
	}
}
