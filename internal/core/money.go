// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from form input,
// the derived values computed from a patient's payments, and the display
// formatting used by the views.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultCurrencySymbol prefixes amounts rendered by FormatMoney.
const DefaultCurrencySymbol = "$"

// Units returns a whole-unit money value.
func Units(n int64) Money {
	return Money{Cents: n * 100}
}

// Add returns m + o, clamped to the int64 range instead of wrapping.
func (m Money) Add(o Money) Money {
	switch {
	case o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && m.Cents < math.MinInt64-o.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o, clamped like Add.
func (m Money) Sub(o Money) Money {
	switch {
	case o.Cents < 0 && m.Cents > math.MaxInt64+o.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents > 0 && m.Cents < math.MinInt64+o.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: m.Cents - o.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Validate checks the amount is usable as a payment.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal renders the amount with two decimals and a dot separator, the
// shape ParseMoney accepts back.
func (m Money) Decimal() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	frac := strconv.FormatInt(c%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + frac
}

// SumAmounts adds up payment amounts; zero for an empty list. The total
// saturates at the int64 limit.
func SumAmounts(payments []Payment) Money {
	var total Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Balance is the patient's total fee minus everything paid so far.
// Overpayment yields a negative balance.
func Balance(p Patient) Money {
	return p.TotalFee.Sub(SumAmounts(p.Payments))
}

// ParseMoney converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is accepted (a fee may be
// waived); signs, grouping and any other character are rejected.
//
// Examples:
//
//	ParseMoney("1200")   -> 120000 cents
//	ParseMoney("12,34")  -> 1234 cents
//	ParseMoney("12.346") -> 1235 cents
//	ParseMoney("abc")    -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return Money{}, ErrInvalidAmount
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// allDigits accepts ASCII digits only; the fraction is decoded byte-wise.
func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Formatter renders money for display: whole units, thousands grouping and a
// currency symbol.
type Formatter struct {
	Symbol string
}

// NewFormatter returns a formatter using symbol, or the default one when blank.
func NewFormatter(symbol string) Formatter {
	if strings.TrimSpace(symbol) == "" {
		symbol = DefaultCurrencySymbol
	}
	return Formatter{Symbol: symbol}
}

// Format rounds half away from zero to whole units: 5000.00 -> "$5,000",
// -250.49 -> "-$250".
func (f Formatter) Format(m Money) string {
	units, rem := m.Cents/100, m.Cents%100
	switch {
	case rem >= 50:
		units++
	case rem <= -50:
		units--
	}
	if units < 0 {
		return "-" + f.Symbol + humanize.Comma(-units)
	}
	return f.Symbol + humanize.Comma(units)
}

// FormatMoney formats with the default currency symbol.
func FormatMoney(m Money) string {
	return NewFormatter(DefaultCurrencySymbol).Format(m)
}
