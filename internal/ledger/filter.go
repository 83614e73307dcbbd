package ledger

import (
	"strings"
	"time"

	"megafin/internal/core"
)

// Filter restricts a typed record collection. Zero-valued criteria are
// ignored; supplied criteria compose conjunctively.
type Filter struct {
	From     time.Time // inclusive lower bound on the entry date
	To       time.Time // inclusive upper bound on the entry date
	Text     string    // case-insensitive substring over text-bearing fields
	Employee string    // exact, case-insensitive, trimmed
}

// IsZero reports whether the filter carries no criteria at all.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && f.Text == "" && f.Employee == ""
}

func (f Filter) matchDate(d time.Time) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	// Entries without a date are excluded as soon as a bound is supplied.
	if d.IsZero() {
		return false
	}
	day := core.Day(d)
	if !f.From.IsZero() && day.Before(core.Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(core.Day(f.To)) {
		return false
	}
	return true
}

func (f Filter) matchEmployee(employee string) bool {
	if f.Employee == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(employee), strings.TrimSpace(f.Employee))
}

// matchText is substring matching, not tokenization: "wa" matches any
// field merely containing it. An entry matches if any field does.
func (f Filter) matchText(fields ...string) bool {
	if f.Text == "" {
		return true
	}
	needle := strings.ToLower(f.Text)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// MatchRevenue reports whether a revenue entry passes every supplied
// criterion.
func (f Filter) MatchRevenue(e core.RevenueEntry) bool {
	return f.matchDate(e.Date) &&
		f.matchEmployee(e.Employee) &&
		f.matchText(e.Label, e.Category, e.Mode, e.Employee, e.Note)
}

// MatchExpense reports whether an expense entry passes every supplied
// criterion. The source account participates in free-text matching.
func (f Filter) MatchExpense(e core.ExpenseEntry) bool {
	return f.matchDate(e.Date) &&
		f.matchEmployee(e.Employee) &&
		f.matchText(e.Label, e.Category, e.Mode, e.Employee, e.Note, string(e.Source))
}

// FilterRevenue returns the matching entries in their original order. An
// empty filter returns a copy of the input unchanged.
func FilterRevenue(entries []core.RevenueEntry, f Filter) []core.RevenueEntry {
	out := make([]core.RevenueEntry, 0, len(entries))
	for _, e := range entries {
		if f.MatchRevenue(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterExpense returns the matching entries in their original order.
func FilterExpense(entries []core.ExpenseEntry, f Filter) []core.ExpenseEntry {
	out := make([]core.ExpenseEntry, 0, len(entries))
	for _, e := range entries {
		if f.MatchExpense(e) {
			out = append(out, e)
		}
	}
	return out
}
