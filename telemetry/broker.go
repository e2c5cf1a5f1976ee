package telemetry

import "sync"

// Broker fans Events out to any number of subscribers. Publish never
// blocks: a subscriber that falls behind simply misses events rather than
// stalling the session that published them.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan Event
	bufLen int
}

// New allocates a Broker whose subscriber channels are each buffered to
// bufLen.
func New(bufLen int) *Broker {
	return &Broker{
		subs:   make(map[uint64]chan Event),
		bufLen: bufLen,
	}
}

// Subscribe registers a new subscriber and returns its event channel plus
// an unsubscribe function that removes and closes it. Calling unsubscribe
// more than once is a no-op.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufLen)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
	return ch, unsub
}

// Publish fans ev out to every current subscriber. A subscriber whose
// channel is full does not receive ev; it is not disconnected.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the current subscriber count, for diagnostics.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
