// Package core provides the inheritance tax model.
//
// This file contains parsing and formatting of man-yen amounts and heir
// counts as they arrive from forms, flags and files.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MaxChildren bounds the children count accepted from user input.
const MaxChildren = 100

// DefaultChildren is used when the children field is left empty.
const DefaultChildren = 1

var jaPrinter = message.NewPrinter(language.Japanese)

// ParseManYen converts a user-entered amount in man-yen to a decimal.
//
// Empty input is zero. Both "1234.5" and "1,234.5" are accepted; the comma
// is only ever a thousands separator. Negative, signed or non-numeric input
// returns ErrInvalidAmount.
//
// Examples:
//
//	ParseManYen("3000")    -> 3000, nil
//	ParseManYen("1,250.5") -> 1250.5, nil
//	ParseManYen("")        -> 0, nil
//	ParseManYen("-1")      -> 0, ErrInvalidAmount
func ParseManYen(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.Count(s, ".") > 1 || s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseChildren parses the number of children. Empty input yields
// DefaultChildren.
func ParseChildren(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultChildren, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidChildren
	}
	if n > MaxChildren {
		return 0, ErrTooManyChildren
	}
	return n, nil
}

// FormatManYen renders an amount with Japanese digit grouping, keeping up
// to two decimals ("12,345.5").
func FormatManYen(v float64) string {
	return jaPrinter.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatDecimal is FormatManYen for exact amounts.
func FormatDecimal(d decimal.Decimal) string {
	return FormatManYen(d.InexactFloat64())
}
