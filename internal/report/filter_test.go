package report

import (
	"testing"
	"time"

	"ipon/internal/core"
)

func feed() []core.Contribution {
	return []core.Contribution{
		contribution("Juan", 50000, date(2025, time.March, 20)),
		contribution("Ana", 20000, date(2025, time.March, 10)),
		contribution("Bo", 30000, date(2025, time.February, 28)),
	}
}

func TestFilterContributionsByName(t *testing.T) {
	got := FilterContributions(feed(), "an", time.Time{}, time.Time{})
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	// Substring match is case-insensitive and preserves feed order.
	if got[0].MemberName != "Juan" || got[1].MemberName != "Ana" {
		t.Errorf("matches = %q, %q; want Juan, Ana", got[0].MemberName, got[1].MemberName)
	}

	if got := FilterContributions(feed(), "AN", time.Time{}, time.Time{}); len(got) != 2 {
		t.Errorf("uppercase query got %d results, want 2", len(got))
	}
	if got := FilterContributions(feed(), "zzz", time.Time{}, time.Time{}); len(got) != 0 {
		t.Errorf("no-match query got %d results, want 0", len(got))
	}
}

func TestFilterContributionsByDateRange(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{name: "open range", want: 3},
		{name: "from only", from: date(2025, time.March, 1), want: 2},
		{name: "to only", to: date(2025, time.February, 28), want: 1},
		{name: "inclusive bounds", from: date(2025, time.March, 10), to: date(2025, time.March, 20), want: 2},
		{name: "single day", from: date(2025, time.March, 10), to: date(2025, time.March, 10), want: 1},
		{name: "empty window", from: date(2025, time.April, 1), to: date(2025, time.April, 30), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterContributions(feed(), "", tt.from, tt.to)
			if len(got) != tt.want {
				t.Errorf("got %d results, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterContributionsCombined(t *testing.T) {
	got := FilterContributions(feed(), "an", date(2025, time.March, 15), time.Time{})
	if len(got) != 1 || got[0].MemberName != "Juan" {
		t.Fatalf("combined filter = %+v, want single Juan entry", got)
	}
}

func TestFilterContributionsIdempotent(t *testing.T) {
	from := date(2025, time.March, 1)
	once := FilterContributions(feed(), "an", from, time.Time{})
	twice := FilterContributions(once, "an", from, time.Time{})
	if len(once) != len(twice) {
		t.Fatalf("refiltering changed result size: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].MemberName != twice[i].MemberName {
			t.Errorf("refiltering changed order at %d", i)
		}
	}
}
