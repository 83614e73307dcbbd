package ledger

import (
	"fmt"
	"strings"

	"megafin/internal/core"
)

// MonthEntries is one branch-month revenue ledger tagged with its month
// name, in the order the months were scanned.
type MonthEntries struct {
	Month   string
	Entries []core.RevenueEntry
}

// ClientMatch is one prior payment found for a client.
type ClientMatch struct {
	Month string
	Entry core.RevenueEntry
}

// ClientHistory is the cross-month payment history of one client. The
// total is informational only: a new entry's remaining balance is always
// computed within its own branch-month ledger, never from this figure.
type ClientHistory struct {
	Matches       []ClientMatch
	TotalPaid     float64 // sum of Montant_Total across matches
	LastRemaining float64 // Reste of the last match in scan order
}

// PaymentLabel derives the canonical revenue label for a client payment.
func PaymentLabel(formation, name string) string {
	return fmt.Sprintf("Paiement %s - %s", strings.TrimSpace(formation), strings.TrimSpace(name))
}

// phoneDigits keeps only the digits of a phone number for substring
// matching inside note fields.
func phoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveClientHistory scans the given ledgers, in the order provided
// (the fixed month-name list filtered to existing ledgers, not calendar
// order), for entries matching the candidate label exactly
// (case-insensitive) or whose note contains the phone digits.
//
// The scan is linear over every row of every month; fine at branch scale,
// O(rows x months) if ever pointed at something bigger.
func ResolveClientHistory(label, phone string, months []MonthEntries) ClientHistory {
	wantLabel := strings.ToLower(strings.TrimSpace(label))
	digits := phoneDigits(phone)

	var h ClientHistory
	for _, m := range months {
		for _, e := range m.Entries {
			byLabel := wantLabel != "" && strings.ToLower(strings.TrimSpace(e.Label)) == wantLabel
			byPhone := digits != "" && strings.Contains(e.Note, digits)
			if !byLabel && !byPhone {
				continue
			}
			h.Matches = append(h.Matches, ClientMatch{Month: m.Month, Entry: e})
			h.TotalPaid += e.AmountTotal
			h.LastRemaining = e.Remaining
		}
	}
	return h
}
