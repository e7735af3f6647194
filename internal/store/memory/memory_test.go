package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ipon/internal/core"
	"ipon/internal/store"
)

func TestMemberLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ana, err := s.AddMember(ctx, "Ana")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if ana.ID == "" {
		t.Fatal("AddMember did not assign an ID")
	}

	if _, err := s.AddMember(ctx, "Bo"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	members, err := s.ListMembers(ctx)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 || members[0].Name != "Ana" || members[1].Name != "Bo" {
		t.Fatalf("members = %+v, want Ana then Bo", members)
	}

	if err := s.RenameMember(ctx, ana.ID, "Anita"); err != nil {
		t.Fatalf("RenameMember: %v", err)
	}
	members, _ = s.ListMembers(ctx)
	if members[0].Name != "Anita" {
		t.Errorf("after rename, first member = %q, want Anita", members[0].Name)
	}

	if err := s.RenameMember(ctx, "missing", "X"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rename missing member error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteMember(ctx, ana.ID); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if err := s.DeleteMember(ctx, ana.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestContributionFeedOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	for _, name := range []string{"Ana", "Bo", "Cy"} {
		_, err := s.AddContribution(ctx, core.Contribution{
			MemberName: name,
			Amount:     core.Money{Centavos: 50000},
			Timestamp:  base,
		})
		if err != nil {
			t.Fatalf("AddContribution(%s): %v", name, err)
		}
	}

	contribs, err := s.ListContributions(ctx)
	if err != nil {
		t.Fatalf("ListContributions: %v", err)
	}
	if len(contribs) != 3 {
		t.Fatalf("got %d contributions, want 3", len(contribs))
	}
	// Newest first.
	if contribs[0].MemberName != "Cy" || contribs[2].MemberName != "Ana" {
		t.Errorf("feed order = %q..%q, want Cy..Ana", contribs[0].MemberName, contribs[2].MemberName)
	}
	if contribs[0].Date != "3/1/2025" {
		t.Errorf("derived display date = %q, want 3/1/2025", contribs[0].Date)
	}
}

func TestUpdateContribution(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	saved, err := s.AddContribution(ctx, core.Contribution{
		MemberName:     "Ana",
		Amount:         core.Money{Centavos: 50000},
		Timestamp:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ProofOfPayment: "https://example.com/original.png",
	})
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	// Amount-only update keeps the existing proof.
	if err := s.UpdateContribution(ctx, saved.ID, store.ContributionUpdate{Amount: core.Money{Centavos: 20000}}); err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}
	contribs, _ := s.ListContributions(ctx)
	if contribs[0].Amount.Centavos != 20000 {
		t.Errorf("amount = %d, want 20000", contribs[0].Amount.Centavos)
	}
	if contribs[0].ProofOfPayment != "https://example.com/original.png" {
		t.Errorf("proof was lost on amount-only update: %q", contribs[0].ProofOfPayment)
	}

	// A new proof replaces the old one.
	err = s.UpdateContribution(ctx, saved.ID, store.ContributionUpdate{
		Amount:         core.Money{Centavos: 20000},
		ProofOfPayment: "https://example.com/new.png",
	})
	if err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}
	contribs, _ = s.ListContributions(ctx)
	if contribs[0].ProofOfPayment != "https://example.com/new.png" {
		t.Errorf("proof = %q, want the replacement URL", contribs[0].ProofOfPayment)
	}

	if err := s.UpdateContribution(ctx, "missing", store.ContributionUpdate{Amount: core.Money{Centavos: 1}}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing contribution error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMemberKeepsContributions(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ana, _ := s.AddMember(ctx, "Ana")
	_, err := s.AddContribution(ctx, core.Contribution{
		MemberName: "Ana",
		Amount:     core.Money{Centavos: 50000},
		Timestamp:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	if err := s.DeleteMember(ctx, ana.ID); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}

	contribs, _ := s.ListContributions(ctx)
	if len(contribs) != 1 || contribs[0].MemberName != "Ana" {
		t.Fatalf("ledger after member delete = %+v, want the Ana entry intact", contribs)
	}
}

func TestSubscriptionPushesSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	sub, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	// The subscription is primed with current state.
	snap := waitSnapshot(t, sub)
	if len(snap.Members) != 0 {
		t.Fatalf("initial snapshot has %d members, want 0", len(snap.Members))
	}

	if _, err := s.AddMember(ctx, "Ana"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	snap = waitSnapshot(t, sub)
	if len(snap.Members) != 1 || snap.Members[0].Name != "Ana" {
		t.Fatalf("pushed snapshot = %+v, want Ana", snap.Members)
	}
}

func waitSnapshot(t *testing.T, sub store.Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatalf("snapshot channel closed: %v", sub.Err())
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return store.Snapshot{}
	}
}
