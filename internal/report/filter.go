package report

import (
	"strings"
	"time"

	"ipon/internal/core"
)

// FilterContributions narrows the ledger by a case-insensitive name substring
// and an inclusive effective-date range. An empty query matches everything; a
// zero bound leaves that side of the range open. Both predicates are ANDed and
// the input order (createdAt descending, set by the store) is preserved, so
// the function is idempotent.
func FilterContributions(contribs []core.Contribution, nameQuery string, from, to time.Time) []core.Contribution {
	query := strings.ToLower(strings.TrimSpace(nameQuery))
	hasFrom := !from.IsZero()
	hasTo := !to.IsZero()

	var out []core.Contribution
	for _, c := range contribs {
		if query != "" && !strings.Contains(strings.ToLower(c.MemberName), query) {
			continue
		}
		if hasFrom || hasTo {
			d := dateOnly(c.Timestamp)
			if hasFrom && d.Before(dateOnly(from)) {
				continue
			}
			if hasTo && d.After(dateOnly(to)) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// dateOnly truncates an instant to its calendar date so the range test is
// inclusive on whole days regardless of time-of-day noise in the bounds.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
