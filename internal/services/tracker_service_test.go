package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"ipon/internal/core"
	"ipon/internal/store/memory"
)

type fakeUploader struct {
	url     string
	err     error
	uploads int
}

func (f *fakeUploader) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	f.uploads++
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, r)
	return f.url, nil
}

func newTracker(t *testing.T, uploader *fakeUploader) (*Tracker, *memory.Store) {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	if uploader == nil {
		return NewTracker(st, nil, nil), st
	}
	return NewTracker(st, uploader, nil), st
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker(t, nil)

	member, err := tracker.AddMember(ctx, "Ana")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if member.Name != "Ana" || member.ID == "" {
		t.Fatalf("member = %+v", member)
	}

	if _, err := tracker.AddMember(ctx, ""); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
	if _, err := tracker.AddMember(ctx, strings.Repeat("x", 101)); !errors.Is(err, core.ErrNameTooLong) {
		t.Errorf("long name error = %v, want ErrNameTooLong", err)
	}

	// Duplicate detection is case-insensitive.
	if _, err := tracker.AddMember(ctx, "ANA"); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("duplicate error = %v, want ErrDuplicateName", err)
	}
	if _, err := tracker.AddMember(ctx, "  ana "); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("whitespace duplicate error = %v, want ErrDuplicateName", err)
	}
}

func TestRenameMember(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker(t, nil)

	ana, _ := tracker.AddMember(ctx, "Ana")
	bo, _ := tracker.AddMember(ctx, "Bo")

	// Renaming to your own name (case change) is allowed.
	if err := tracker.RenameMember(ctx, ana.ID, "ANA"); err != nil {
		t.Errorf("case-only rename failed: %v", err)
	}
	// Renaming onto another member is not.
	if err := tracker.RenameMember(ctx, bo.ID, "ana"); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("rename collision error = %v, want ErrDuplicateName", err)
	}
}

func TestAddContribution(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker(t, nil)
	tracker.AddMember(ctx, "Ana")

	input := ContributionInput{
		MemberName: "Ana",
		Amount:     core.Money{Centavos: 50000},
		Timestamp:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	saved, err := tracker.AddContribution(ctx, input)
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if saved.ID == "" || saved.Date != "3/5/2025" {
		t.Fatalf("saved = %+v", saved)
	}

	unknown := input
	unknown.MemberName = "Nobody"
	if _, err := tracker.AddContribution(ctx, unknown); !errors.Is(err, core.ErrUnknownMember) {
		t.Errorf("unknown member error = %v, want ErrUnknownMember", err)
	}

	// Member match is exact; a different casing is a different name.
	wrongCase := input
	wrongCase.MemberName = "ana"
	if _, err := tracker.AddContribution(ctx, wrongCase); !errors.Is(err, core.ErrUnknownMember) {
		t.Errorf("wrong-case member error = %v, want ErrUnknownMember", err)
	}

	badAmount := input
	badAmount.Amount = core.Money{}
	if _, err := tracker.AddContribution(ctx, badAmount); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}

	noDate := input
	noDate.Timestamp = time.Time{}
	if _, err := tracker.AddContribution(ctx, noDate); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("zero timestamp error = %v, want ErrInvalidDate", err)
	}
}

func TestAddContributionWithProof(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{url: "https://res.cloudinary.com/demo/proof.png"}
	tracker, _ := newTracker(t, uploader)
	tracker.AddMember(ctx, "Ana")

	saved, err := tracker.AddContribution(ctx, ContributionInput{
		MemberName: "Ana",
		Amount:     core.Money{Centavos: 50000},
		Timestamp:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Proof:      &ProofFile{Filename: "proof.png", Content: strings.NewReader("bytes")},
	})
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if saved.ProofOfPayment != uploader.url {
		t.Errorf("proof = %q, want %q", saved.ProofOfPayment, uploader.url)
	}
	if uploader.uploads != 1 {
		t.Errorf("uploads = %d, want 1", uploader.uploads)
	}
}

func TestFailedUploadWritesNothing(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{err: errors.New("host unreachable")}
	tracker, st := newTracker(t, uploader)
	tracker.AddMember(ctx, "Ana")

	_, err := tracker.AddContribution(ctx, ContributionInput{
		MemberName: "Ana",
		Amount:     core.Money{Centavos: 50000},
		Timestamp:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Proof:      &ProofFile{Filename: "proof.png", Content: strings.NewReader("bytes")},
	})
	if err == nil {
		t.Fatal("expected upload failure to propagate")
	}

	contribs, _ := st.ListContributions(ctx)
	if len(contribs) != 0 {
		t.Fatalf("ledger has %d entries after failed upload, want 0", len(contribs))
	}
}

func TestUpdateContribution(t *testing.T) {
	ctx := context.Background()
	tracker, st := newTracker(t, nil)
	tracker.AddMember(ctx, "Ana")

	saved, _ := tracker.AddContribution(ctx, ContributionInput{
		MemberName: "Ana",
		Amount:     core.Money{Centavos: 50000},
		Timestamp:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	if err := tracker.UpdateContribution(ctx, saved.ID, core.Money{Centavos: 20000}, nil); err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}
	contribs, _ := st.ListContributions(ctx)
	if contribs[0].Amount.Centavos != 20000 {
		t.Errorf("amount = %d, want 20000", contribs[0].Amount.Centavos)
	}

	if err := tracker.UpdateContribution(ctx, saved.ID, core.Money{}, nil); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
}

func TestSnapshotCache(t *testing.T) {
	cache := NewSnapshotCache()

	if _, ok := cache.Get(); ok {
		t.Fatal("empty cache should not be ready")
	}
	if cache.Ready() {
		t.Fatal("Ready before first snapshot")
	}

	st := memory.New()
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cache.Run(ctx, st) }()

	if _, err := st.AddMember(ctx, "Ana"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if snap, ok := cache.Get(); ok && len(snap.Members) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("cache never observed the new member")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
