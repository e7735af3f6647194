package store

import (
	"sync"
)

// Broadcaster fans snapshots out to any number of subscriptions. Backends that
// produce change notifications locally (sqlite, memory) push through it after
// each mutation; the mongo backend pushes from its change-stream loop.
//
// Delivery keeps only the latest snapshot per subscriber: if a subscriber is
// slow, intermediate snapshots are dropped in favor of the newest one, which
// is safe because every snapshot is the full state.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*broadcastSub]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*broadcastSub]struct{})}
}

// Publish delivers snap to all live subscriptions.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.push(snap)
	}
}

// Subscribe registers a new subscription primed with initial.
func (b *Broadcaster) Subscribe(initial Snapshot) Subscription {
	s := &broadcastSub{
		ch:     make(chan Snapshot, 1),
		parent: b,
	}
	s.push(initial)
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// FailAll closes every live subscription with err; used by backends whose
// change feed breaks irrecoverably.
func (b *Broadcaster) FailAll(err error) {
	b.mu.Lock()
	subs := make([]*broadcastSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.fail(err)
	}
}

// CloseAll cancels every live subscription; used on store shutdown.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	subs := make([]*broadcastSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

type broadcastSub struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
	err    error
	parent *Broadcaster
}

// push replaces any undelivered snapshot with the newer one.
func (s *broadcastSub) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *broadcastSub) Snapshots() <-chan Snapshot { return s.ch }

func (s *broadcastSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *broadcastSub) Cancel() {
	s.parent.mu.Lock()
	delete(s.parent.subs, s)
	s.parent.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// fail closes the subscription with an error; used by backends whose feed
// breaks (for example a lost change stream).
func (s *broadcastSub) fail(err error) {
	s.parent.mu.Lock()
	delete(s.parent.subs, s)
	s.parent.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.err = err
		close(s.ch)
	}
}
