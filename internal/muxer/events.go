package muxer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventKind names a change reported by the muxer.
type EventKind int

const (
	EventRegistered EventKind = iota + 1
	EventRemoved
	EventActiveStateChanged
	EventVisiblePriorityChanged
	EventAutoSelectChanged
	EventChanged
)

func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventRemoved:
		return "removed"
	case EventActiveStateChanged:
		return "activeStateChanged"
	case EventVisiblePriorityChanged:
		return "visiblePriorityChanged"
	case EventAutoSelectChanged:
		return "autoSelectChanged"
	case EventChanged:
		return "changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one notification. Priority is set for priority related kinds, Active for
// EventActiveStateChanged, Enabled for EventAutoSelectChanged. Countdown marks the
// rate limited EventChanged sent while timed color or effect inputs run.
type Event struct {
	Kind      EventKind
	Priority  int
	Active    bool
	Enabled   bool
	Countdown bool
}

func registered(p int) Event { return Event{Kind: EventRegistered, Priority: p} }
func removed(p int) Event { return Event{Kind: EventRemoved, Priority: p} }
func visibleChanged(p int) Event { return Event{Kind: EventVisiblePriorityChanged, Priority: p} }
func autoSelectChanged(e bool) Event { return Event{Kind: EventAutoSelectChanged, Enabled: e} }
func changed() Event { return Event{Kind: EventChanged} }

func activeChanged(p int, active bool) Event {
	return Event{Kind: EventActiveStateChanged, Priority: p, Active: active}
}

const defaultSubscriberBuffer = 64

// Bus fans events out to subscribers in emission order. A subscriber that does not
// keep up loses events instead of stalling the muxer.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel receiving every event published from now on, and a
// function that ends the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			logger.With(zap.Int("subscriber", id), zap.Stringer("event", ev.Kind)).Warn("Subscriber is full, dropping event")
		}
	}
}

// Dropped returns how many deliveries were lost to full subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
