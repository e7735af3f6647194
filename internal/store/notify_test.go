package store

import (
	"errors"
	"testing"
	"time"

	"ipon/internal/core"
)

func snapshotWithMembers(names ...string) Snapshot {
	members := make([]core.Member, 0, len(names))
	for i, n := range names {
		members = append(members, core.Member{ID: string(rune('a' + i)), Name: n})
	}
	return Snapshot{Members: members}
}

func recv(t *testing.T, sub Subscription) (Snapshot, bool) {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		return snap, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}, false
	}
}

func TestSubscribePrimesWithInitial(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(snapshotWithMembers("Ana"))
	defer sub.Cancel()

	snap, ok := recv(t, sub)
	if !ok || len(snap.Members) != 1 {
		t.Fatalf("initial snapshot = %+v, %v", snap, ok)
	}
}

func TestLatestSnapshotWins(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(snapshotWithMembers())
	defer sub.Cancel()

	// Without draining, later publishes replace the undelivered snapshot.
	b.Publish(snapshotWithMembers("Ana"))
	b.Publish(snapshotWithMembers("Ana", "Bo"))
	b.Publish(snapshotWithMembers("Ana", "Bo", "Cy"))

	snap, ok := recv(t, sub)
	if !ok {
		t.Fatal("channel closed unexpectedly")
	}
	if len(snap.Members) != 3 {
		t.Errorf("got %d members, want the newest snapshot with 3", len(snap.Members))
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(snapshotWithMembers())
	recv(t, sub) // drain the primed snapshot

	sub.Cancel()

	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("channel should be closed after Cancel")
	}
	if sub.Err() != nil {
		t.Errorf("Cancel should not set an error, got %v", sub.Err())
	}

	// Publishing after cancel must not panic or block.
	b.Publish(snapshotWithMembers("Ana"))
}

func TestFailAllSetsError(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(snapshotWithMembers())
	recv(t, sub)

	feedErr := errors.New("change stream lost")
	b.FailAll(feedErr)

	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("channel should be closed after FailAll")
	}
	if !errors.Is(sub.Err(), feedErr) {
		t.Errorf("Err = %v, want %v", sub.Err(), feedErr)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	first := b.Subscribe(snapshotWithMembers())
	second := b.Subscribe(snapshotWithMembers())
	defer first.Cancel()
	defer second.Cancel()
	recv(t, first)
	recv(t, second)

	b.Publish(snapshotWithMembers("Ana"))

	for _, sub := range []Subscription{first, second} {
		snap, ok := recv(t, sub)
		if !ok || len(snap.Members) != 1 {
			t.Errorf("subscriber snapshot = %+v, %v", snap, ok)
		}
	}
}
