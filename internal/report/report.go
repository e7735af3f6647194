// Package report implements the aggregation engine: pure functions deriving
// totals, month buckets, and the per-member monthly compliance report from a
// snapshot of members and ledger contributions.
//
// Every function recomputes from its full input on each call. There is no
// caching and no incremental maintenance; inputs are group-scale and the
// functions are referentially transparent, which keeps them trivially testable
// without a live store.
package report

import (
	"ipon/internal/core"
)

// TotalSavings sums every contribution in the ledger.
func TotalSavings(contribs []core.Contribution) core.Money {
	var total core.Money
	for _, c := range contribs {
		total = total.Add(c.Amount)
	}
	return total
}

// MemberTotal sums contributions attributed to the given member name. The
// match is exact and case-sensitive: the name as stored at sign-up time.
// Deleting the member does not change the result; history stays attributed to
// the name string.
func MemberTotal(contribs []core.Contribution, memberName string) core.Money {
	var total core.Money
	for _, c := range contribs {
		if c.MemberName == memberName {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// MonthlyContributions returns the contributions whose effective date falls in
// the given 1-indexed month and 4-digit year. A record with a zero (absent or
// unparseable) timestamp is excluded rather than failing the aggregation.
func MonthlyContributions(contribs []core.Contribution, month, year int) []core.Contribution {
	var out []core.Contribution
	for _, c := range contribs {
		if c.Timestamp.IsZero() {
			continue
		}
		if int(c.Timestamp.Month()) == month && c.Timestamp.Year() == year {
			out = append(out, c)
		}
	}
	return out
}

// MemberMonthlyTotal sums the month bucket for a single member name.
func MemberMonthlyTotal(contribs []core.Contribution, memberName string, month, year int) core.Money {
	return MemberTotal(MonthlyContributions(contribs, month, year), memberName)
}

// Monthly builds the compliance report for one month: a row per registered
// member regardless of activity, plus collected and expected totals.
//
// Statuses: paid >= expected is "Paid Full" (equality counts as full),
// 0 < paid < expected is "Partial", zero is "Not Paid". Balance floors at
// zero; overpayment is not carried as credit.
//
// Returns core.ErrInvalidPeriod when the month/year selection is out of range,
// mirroring the UI returning no report for an absent selection.
func Monthly(members []core.Member, contribs []core.Contribution, month, year int, expected core.Money) (*core.MonthlyReport, error) {
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return nil, core.ErrInvalidPeriod
	}

	bucket := MonthlyContributions(contribs, month, year)
	totalCollected := TotalSavings(bucket)

	rows := make([]core.MemberReport, 0, len(members))
	for _, m := range members {
		paid := MemberTotal(bucket, m.Name)
		var status core.PaymentStatus
		switch {
		case paid.Centavos >= expected.Centavos:
			status = core.StatusPaidFull
		case paid.Centavos > 0:
			status = core.StatusPartial
		default:
			status = core.StatusNotPaid
		}
		balance := core.Money{Centavos: expected.Centavos - paid.Centavos}
		if balance.Centavos < 0 {
			balance.Centavos = 0
		}
		rows = append(rows, core.MemberReport{
			Name:    m.Name,
			Paid:    paid,
			Balance: balance,
			Status:  status,
		})
	}

	return &core.MonthlyReport{
		Month:          month,
		Year:           year,
		TotalCollected: totalCollected,
		ExpectedTotal:  core.Money{Centavos: int64(len(members)) * expected.Centavos},
		Members:        rows,
	}, nil
}
