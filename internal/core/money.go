// Package core provides the ledger domain types and the parsing rules for
// the spreadsheet wire format.
//
// This file contains the monetary and date conversions. The row store is a
// spreadsheet edited by humans, so two distinct policies apply: strict
// parsing for values typed into the submission form, and lenient coercion
// for whatever comes back out of stored rows.
package core

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the day-first format used everywhere in the ledgers.
const DateLayout = "02/01/2006"

// CoerceAmount converts a raw cell to a float64 amount. Spaces are
// stripped, a decimal comma is accepted, and anything unparsable yields
// 0.0 rather than an error. Dirty spreadsheet input is tolerated on
// purpose; reads must never fail on a bad cell.
func CoerceAmount(s string) float64 {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

// CoerceDate parses a day/month/year cell. Unparsable or empty cells
// yield the zero time, never an error.
func CoerceDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{DateLayout, "2/1/2006", "02/01/06", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseAmount converts a user-typed decimal string to a float64 amount.
// It accepts both dot (12.34) and comma (12,34) separators, but unlike
// CoerceAmount it rejects malformed or negative input, since submission
// errors must be reported back to the caller.
func ParseAmount(s string) (float64, error) {
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
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// FormatAmount renders an amount the way rows are written back to the
// store, with two decimals and a dot separator.
func FormatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// FormatDate renders a date cell; the zero time becomes an empty cell.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Day truncates a timestamp to its calendar day. The result is pinned to
// UTC so that days compare by calendar date: stored cells parse in UTC
// while clock readings carry the server's local zone, and comparing those
// as instants would shift the day boundary by the zone offset.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
