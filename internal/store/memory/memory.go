// Package memory is an in-process Store backend used in tests and for local
// development without external services. It mimics the document stores: IDs
// are assigned on create, snapshots are pushed on every mutation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ipon/internal/core"
	"ipon/internal/store"
)

type Store struct {
	mu       sync.Mutex
	members  map[string]core.Member
	contribs map[string]core.Contribution
	bcast    *store.Broadcaster

	// now is swappable in tests to control CreatedAt ordering.
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		members:  make(map[string]core.Member),
		contribs: make(map[string]core.Contribution),
		bcast:    store.NewBroadcaster(),
		now:      time.Now,
	}
}

// SetClock replaces the creation-instant clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Subscribe(_ context.Context) (store.Subscription, error) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.bcast.Subscribe(snap), nil
}

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersLocked(), nil
}

func (s *Store) AddMember(_ context.Context, name string) (core.Member, error) {
	s.mu.Lock()
	m := core.Member{ID: uuid.NewString(), Name: name}
	s.members[m.ID] = m
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return m, nil
}

func (s *Store) RenameMember(_ context.Context, id, name string) error {
	s.mu.Lock()
	m, ok := s.members[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	m.Name = name
	s.members[id] = m
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return nil
}

// DeleteMember removes only the member record. Contributions attributed to
// the name stay in the ledger untouched.
func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.members[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.members, id)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return nil
}

func (s *Store) ListContributions(_ context.Context) ([]core.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contribsLocked(), nil
}

func (s *Store) AddContribution(_ context.Context, c core.Contribution) (core.Contribution, error) {
	s.mu.Lock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	if c.Date == "" {
		c.Date = c.DisplayDate()
	}
	s.contribs[c.ID] = c
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return c, nil
}

func (s *Store) UpdateContribution(_ context.Context, id string, upd store.ContributionUpdate) error {
	s.mu.Lock()
	c, ok := s.contribs[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	c.Amount = upd.Amount
	if upd.ProofOfPayment != "" {
		c.ProofOfPayment = upd.ProofOfPayment
	}
	s.contribs[id] = c
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return nil
}

func (s *Store) DeleteContribution(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.contribs[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.contribs, id)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bcast.Publish(snap)
	return nil
}

func (s *Store) Close() error {
	s.bcast.CloseAll()
	return nil
}

func (s *Store) membersLocked() []core.Member {
	out := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) contribsLocked() []core.Contribution {
	out := make([]core.Contribution, 0, len(s.contribs))
	for _, c := range s.contribs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) snapshotLocked() store.Snapshot {
	return store.Snapshot{
		Members:       s.membersLocked(),
		Contributions: s.contribsLocked(),
	}
}
