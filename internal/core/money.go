// Package core defines the domain model of the group savings tracker:
// members, ledger contributions, money in integer centavos, and the monthly
// report shapes derived from them.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in the group's single implicit currency, held as integer
// centavos. All arithmetic stays in minor units; floats appear only at the
// display boundary.
type Money struct {
	Centavos int64 `json:"centavos"`
}

// Validate rejects non-positive amounts. Contributions are strictly positive
// for both create and edit.
func (m Money) Validate() error {
	if m.Centavos <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Centavos: m.Centavos + other.Centavos}
}

// Pesos returns the value as a float64 for display purposes only.
func (m Money) Pesos() float64 {
	return float64(m.Centavos) / 100.0
}

// String renders the amount as a plain decimal, e.g. "512.50".
func (m Money) String() string {
	neg := m.Centavos < 0
	c := m.Centavos
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

// ParseDecimalToCentavos converts a decimal string to centavos with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and comma
// (12,34) separators. Only strictly positive values are accepted.
//
// Examples:
//
//	ParseDecimalToCentavos("500")    -> 50000, nil
//	ParseDecimalToCentavos("12,34")  -> 1234, nil
//	ParseDecimalToCentavos("12.345") -> 1234, nil (rounds down)
//	ParseDecimalToCentavos("12.346") -> 1235, nil (rounds up)
func ParseDecimalToCentavos(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCentavos int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCentavos = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCentavos += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCentavos++
			}
		}
	}
	centavos := iv*100 + fracCentavos
	if centavos <= 0 {
		return 0, ErrInvalidAmount
	}
	return centavos, nil
}

// ParseAmount is ParseDecimalToCentavos wrapped into a Money value.
func ParseAmount(s string) (Money, error) {
	c, err := ParseDecimalToCentavos(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Centavos: c}, nil
}
