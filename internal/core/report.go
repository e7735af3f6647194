package core

// PaymentStatus classifies how much of the expected monthly amount a member
// has paid in a given month.
type PaymentStatus string

const (
	StatusPaidFull PaymentStatus = "Paid Full"
	StatusPartial  PaymentStatus = "Partial"
	StatusNotPaid  PaymentStatus = "Not Paid"
)

// MemberReport is one row of the monthly compliance report.
type MemberReport struct {
	Name    string        `json:"name"`
	Paid    Money         `json:"paidAmount"`
	Balance Money         `json:"balance"`
	Status  PaymentStatus `json:"status"`
}

// MonthlyReport is the full compliance report for one month/year.
//
// TotalCollected covers every contribution in the month bucket, including ones
// attributed to names no longer in the registry; such orphaned entries count
// toward the total but produce no member row.
type MonthlyReport struct {
	Month          int            `json:"month"`
	Year           int            `json:"year"`
	TotalCollected Money          `json:"totalCollected"`
	ExpectedTotal  Money          `json:"expectedTotal"`
	Members        []MemberReport `json:"memberReports"`
}

// Shortfall is the gap between what was expected and what came in. Display
// convenience only; it can be negative when the group overshoots.
func (r MonthlyReport) Shortfall() Money {
	return Money{Centavos: r.ExpectedTotal.Centavos - r.TotalCollected.Centavos}
}
