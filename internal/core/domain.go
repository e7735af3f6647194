package core

import (
	"errors"
	"strings"
	"time"
)

// DisplayDateFormat is the format used for the denormalized Date string on a
// contribution. It is derived from Timestamp once, at write time.
const DisplayDateFormat = "1/2/2006"

type (
	// Member is a named participant of the savings group. Names are unique
	// case-insensitively at add/rename time; uniqueness is never enforced
	// retroactively against historical ledger entries.
	Member struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Contribution is a single payment record in the ledger.
	//
	// MemberName is a soft reference: it is a denormalized copy of the member's
	// name at entry time, not a foreign key. Renaming or deleting a member
	// leaves past contributions untouched.
	//
	// Timestamp is the user-chosen effective date (backdatable) and drives
	// month bucketing; CreatedAt is the record-creation instant and drives the
	// ledger feed order. The two are deliberately distinct.
	Contribution struct {
		ID             string    `json:"id"`
		MemberName     string    `json:"memberName"`
		Amount         Money     `json:"amount"`
		Date           string    `json:"date"`
		Timestamp      time.Time `json:"timestamp"`
		CreatedAt      time.Time `json:"createdAt"`
		ProofOfPayment string    `json:"proofOfPayment,omitempty"`
	}
)

var (
	ErrEmptyName     = errors.New("empty member name")
	ErrNameTooLong   = errors.New("member name too long (max 100 characters)")
	ErrDuplicateName = errors.New("member already exists")
	ErrUnknownMember = errors.New("unknown member")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid contribution date")
	ErrInvalidPeriod = errors.New("invalid month/year selection")
)

// NormalizeName is the canonical form used for case-insensitive uniqueness
// checks. Display casing is preserved on the record itself.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateMemberName checks a display name for add/rename operations.
func ValidateMemberName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len(trimmed) > 100 {
		return ErrNameTooLong
	}
	return nil
}

func (m Member) Validate() error {
	return ValidateMemberName(m.Name)
}

// Validate checks a contribution before it reaches storage. Records already in
// the ledger are never re-validated; a stored record with a broken timestamp
// is excluded from month bucketing instead of failing aggregation.
func (c Contribution) Validate() error {
	if strings.TrimSpace(c.MemberName) == "" {
		return ErrUnknownMember
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if c.Timestamp.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// DisplayDate renders the effective date the way the ledger feed shows it.
func (c Contribution) DisplayDate() string {
	if c.Timestamp.IsZero() {
		return ""
	}
	return c.Timestamp.Format(DisplayDateFormat)
}
