// Package store defines the document-store port the tracker is built
// against. Persistence and change notification are delegated to a backend
// (MongoDB, SQLite, or in-memory); the application only ever sees full,
// ordered snapshots and explicit mutation calls.
package store

import (
	"context"
	"errors"

	"ipon/internal/core"
)

// ErrNotFound is returned by mutations that reference a document the backend
// does not hold.
var ErrNotFound = errors.New("document not found")

// Snapshot is the full state of both collections at one point in time.
// Members are ordered by name ascending, contributions by creation instant
// descending (the ledger feed order). Snapshots are immutable; consumers must
// not modify the slices.
type Snapshot struct {
	Members       []core.Member
	Contributions []core.Contribution
}

// Subscription is a cancellable handle on the store's change feed. The store
// pushes a fresh Snapshot whenever any document changes, starting with the
// current state. The channel is closed after Cancel or when the feed fails;
// Err reports why.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Err() error
	Cancel()
}

// ContributionUpdate carries the only two fields that are mutable after
// creation. Member attribution and the effective date are fixed at entry time.
// An empty ProofOfPayment keeps the stored proof; a proof URL, once attached,
// can be replaced but not removed.
type ContributionUpdate struct {
	Amount         core.Money
	ProofOfPayment string
}

// Store is the persistence capability consumed by the tracker. Every call may
// fail (network, permissions); callers surface the failure and leave derived
// state untouched — lists shown to users always reflect confirmed store state
// arriving through Subscribe, never optimistic local mutation.
type Store interface {
	Subscribe(ctx context.Context) (Subscription, error)

	ListMembers(ctx context.Context) ([]core.Member, error)
	AddMember(ctx context.Context, name string) (core.Member, error)
	RenameMember(ctx context.Context, id, name string) error
	DeleteMember(ctx context.Context, id string) error

	ListContributions(ctx context.Context) ([]core.Contribution, error)
	AddContribution(ctx context.Context, c core.Contribution) (core.Contribution, error)
	UpdateContribution(ctx context.Context, id string, upd ContributionUpdate) error
	DeleteContribution(ctx context.Context, id string) error

	Close() error
}
