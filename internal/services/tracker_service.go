// Package services orchestrates tracker operations across the document store,
// the media host, and the AMQP event fan-out.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ipon/internal/amqp"
	"ipon/internal/core"
	"ipon/internal/media"
	"ipon/internal/store"
)

// ProofFile is an optional proof-of-payment image attached to a contribution.
type ProofFile struct {
	Filename string
	Content  io.Reader
}

// ContributionInput is what a caller supplies to record a payment.
type ContributionInput struct {
	MemberName string
	Amount     core.Money
	Timestamp  time.Time
	Proof      *ProofFile
}

// Tracker is the application service behind the HTTP handlers. The store is
// required; uploader and amqpClient may be nil, in which case proof uploads
// are rejected and events are skipped.
type Tracker struct {
	store      store.Store
	uploader   media.Uploader
	amqpClient *amqp.Client
}

func NewTracker(st store.Store, uploader media.Uploader, amqpClient *amqp.Client) *Tracker {
	return &Tracker{
		store:      st,
		uploader:   uploader,
		amqpClient: amqpClient,
	}
}

// AddMember validates and persists a new member. Names are unique
// case-insensitively; display casing is stored as given.
func (t *Tracker) AddMember(ctx context.Context, name string) (core.Member, error) {
	if err := core.ValidateMemberName(name); err != nil {
		return core.Member{}, err
	}

	members, err := t.store.ListMembers(ctx)
	if err != nil {
		return core.Member{}, fmt.Errorf("list members: %w", err)
	}
	normalized := core.NormalizeName(name)
	for _, m := range members {
		if core.NormalizeName(m.Name) == normalized {
			return core.Member{}, core.ErrDuplicateName
		}
	}

	member, err := t.store.AddMember(ctx, name)
	if err != nil {
		return core.Member{}, fmt.Errorf("add member: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityMember, amqp.OpCreate, member.ID)
	return member, nil
}

// RenameMember changes a member's display name. Past contributions keep the
// old name; the ledger records what was true at entry time.
func (t *Tracker) RenameMember(ctx context.Context, id, name string) error {
	if err := core.ValidateMemberName(name); err != nil {
		return err
	}

	members, err := t.store.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	normalized := core.NormalizeName(name)
	for _, m := range members {
		if m.ID != id && core.NormalizeName(m.Name) == normalized {
			return core.ErrDuplicateName
		}
	}

	if err := t.store.RenameMember(ctx, id, name); err != nil {
		return fmt.Errorf("rename member: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityMember, amqp.OpUpdate, id)
	return nil
}

// DeleteMember removes a member from the roster. Their contributions stay in
// the ledger under the recorded name.
func (t *Tracker) DeleteMember(ctx context.Context, id string) error {
	if err := t.store.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityMember, amqp.OpDelete, id)
	return nil
}

// AddContribution records a payment. When a proof image is attached it is
// uploaded first; a failed upload aborts the whole operation and nothing is
// written to the ledger.
func (t *Tracker) AddContribution(ctx context.Context, in ContributionInput) (core.Contribution, error) {
	members, err := t.store.ListMembers(ctx)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("list members: %w", err)
	}
	known := false
	for _, m := range members {
		if m.Name == in.MemberName {
			known = true
			break
		}
	}
	if !known {
		return core.Contribution{}, core.ErrUnknownMember
	}

	contribution := core.Contribution{
		MemberName: in.MemberName,
		Amount:     in.Amount,
		Timestamp:  in.Timestamp,
	}
	if err := contribution.Validate(); err != nil {
		return core.Contribution{}, err
	}

	if in.Proof != nil {
		url, err := t.uploadProof(ctx, in.Proof)
		if err != nil {
			return core.Contribution{}, err
		}
		contribution.ProofOfPayment = url
	}

	saved, err := t.store.AddContribution(ctx, contribution)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("save contribution: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityContribution, amqp.OpCreate, saved.ID)
	return saved, nil
}

// UpdateContribution changes the amount of an existing ledger entry and,
// when a new proof image is attached, replaces its proof URL. Member
// attribution and the effective date are fixed at entry time.
func (t *Tracker) UpdateContribution(ctx context.Context, id string, amount core.Money, proof *ProofFile) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	upd := store.ContributionUpdate{Amount: amount}
	if proof != nil {
		url, err := t.uploadProof(ctx, proof)
		if err != nil {
			return err
		}
		upd.ProofOfPayment = url
	}

	if err := t.store.UpdateContribution(ctx, id, upd); err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityContribution, amqp.OpUpdate, id)
	return nil
}

// DeleteContribution removes a ledger entry.
func (t *Tracker) DeleteContribution(ctx context.Context, id string) error {
	if err := t.store.DeleteContribution(ctx, id); err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}

	t.publishEvent(ctx, amqp.EntityContribution, amqp.OpDelete, id)
	return nil
}

func (t *Tracker) uploadProof(ctx context.Context, proof *ProofFile) (string, error) {
	if t.uploader == nil {
		return "", fmt.Errorf("proof upload not configured")
	}
	url, err := t.uploader.Upload(ctx, proof.Filename, proof.Content)
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	return url, nil
}

func (t *Tracker) publishEvent(ctx context.Context, entity, op, id string) {
	if t.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "entity", entity, "op", op)
		return
	}
	if err := t.amqpClient.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, op, id)); err != nil {
		// The mutation already succeeded; consumers catch up on their
		// periodic resync.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "op", op, "id", id, "error", err)
	}
}

// Close releases the service's connections.
func (t *Tracker) Close() error {
	var errs []error

	if t.store != nil {
		if err := t.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if t.amqpClient != nil {
		if err := t.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close tracker: %v", errs)
	}
	return nil
}
