package ledger

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"megafin/internal/core"
)

// Alert is the read-time payment state of a revenue entry. Alerts are
// derived on every read and never stored with the row.
type Alert string

const (
	AlertNone     Alert = ""
	AlertOverdue  Alert = "overdue"
	AlertDueToday Alert = "due today"
)

// AlertFor derives the alert for one revenue entry relative to today.
// Only entries with a due date and an unpaid remainder can alert.
func AlertFor(e core.RevenueEntry, today time.Time) Alert {
	if e.DueDate.IsZero() || e.Remaining <= 0 {
		return AlertNone
	}
	due := core.Day(e.DueDate)
	now := core.Day(today)
	switch {
	case due.Before(now):
		return AlertOverdue
	case due.Equal(now):
		return AlertDueToday
	}
	return AlertNone
}

// PaidSoFar sums the Montant_Total of existing entries whose label matches
// the given label, case-insensitively and ignoring surrounding whitespace.
// Only entries of the same branch-month ledger should be passed in.
func PaidSoFar(existing []core.RevenueEntry, label string) float64 {
	want := strings.ToLower(strings.TrimSpace(label))
	var sum float64
	for _, e := range existing {
		if strings.ToLower(strings.TrimSpace(e.Label)) == want {
			sum += e.AmountTotal
		}
	}
	return sum
}

// RemainingAfter computes the remaining balance stored with a new revenue
// entry: the agreed price minus everything paid within the ledger for that
// label, including the new payment itself. Never negative. The value is
// frozen at write time; older rows are not recomputed when later payments
// arrive for the same label.
func RemainingAfter(price, paidSoFar, newTotal float64) float64 {
	r := price - (paidSoFar + newTotal)
	if r < 0 {
		return 0.0
	}
	return r
}

// AccountBalance is the monthly position of one sub-account.
type AccountBalance struct {
	Revenue float64
	Expense float64
	Balance float64
}

// MonthlySummary is the admin view of a branch-month: one position per
// sub-account plus ledger-wide totals.
type MonthlySummary struct {
	Admin       AccountBalance
	Structure   AccountBalance
	Inscription AccountBalance

	TotalRevenue float64 // Montant_Total across all revenue rows
	TotalExpense float64
	TotalDue     float64 // Reste across all revenue rows
}

// Summarize computes the monthly per-account balances, fresh from the
// rows; nothing here is persisted.
func Summarize(rev []core.RevenueEntry, dep []core.ExpenseEntry) MonthlySummary {
	var s MonthlySummary
	for _, e := range rev {
		s.Admin.Revenue += e.AmountAdmin
		s.Structure.Revenue += e.AmountStructure
		s.Inscription.Revenue += e.AmountPreInscr
		s.TotalRevenue += e.AmountTotal
		s.TotalDue += e.Remaining
	}
	for _, e := range dep {
		switch e.Source {
		case core.AccountAdmin:
			s.Admin.Expense += e.Amount
		case core.AccountStructure:
			s.Structure.Expense += e.Amount
		case core.AccountInscription:
			s.Inscription.Expense += e.Amount
		}
		s.TotalExpense += e.Amount
	}
	s.Admin.Balance = s.Admin.Revenue - s.Admin.Expense
	s.Structure.Balance = s.Structure.Revenue - s.Structure.Expense
	s.Inscription.Balance = s.Inscription.Revenue - s.Inscription.Expense
	return s
}

// AccountDay is the daily position of one sub-account, with the running
// cumulative balance since the first day of the month.
type AccountDay struct {
	Revenue    float64
	Expense    float64
	Balance    float64
	Cumulative float64
}

// DayBalance is one row of the daily summary table.
type DayBalance struct {
	Date        time.Time
	Admin       AccountDay
	Structure   AccountDay
	Inscription AccountDay
}

// SummarizeDaily groups revenue and expense rows by calendar day over the
// whole month (1st through last day, days without entries included at
// zero) and computes daily and cumulative per-account balances. Rows with
// no parsable date are skipped; time of day is discarded.
func SummarizeDaily(rev []core.RevenueEntry, dep []core.ExpenseEntry, year, month int) []DayBalance {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	type daySums struct {
		revAdmin, revStructure, revInscr float64
		depAdmin, depStructure, depInscr float64
	}
	byDay := make(map[time.Time]*daySums)
	at := func(t time.Time) *daySums {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		s, ok := byDay[d]
		if !ok {
			s = &daySums{}
			byDay[d] = s
		}
		return s
	}

	for _, e := range rev {
		if e.Date.IsZero() {
			continue
		}
		s := at(e.Date)
		s.revAdmin += e.AmountAdmin
		s.revStructure += e.AmountStructure
		s.revInscr += e.AmountPreInscr
	}
	for _, e := range dep {
		if e.Date.IsZero() {
			continue
		}
		s := at(e.Date)
		switch e.Source {
		case core.AccountAdmin:
			s.depAdmin += e.Amount
		case core.AccountStructure:
			s.depStructure += e.Amount
		case core.AccountInscription:
			s.depInscr += e.Amount
		}
	}

	days := make([]DayBalance, 0, last.Day())
	var cumAdmin, cumStructure, cumInscr float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		s := byDay[d]
		if s == nil {
			s = &daySums{}
		}
		admin := AccountDay{Revenue: s.revAdmin, Expense: s.depAdmin, Balance: s.revAdmin - s.depAdmin}
		structure := AccountDay{Revenue: s.revStructure, Expense: s.depStructure, Balance: s.revStructure - s.depStructure}
		inscr := AccountDay{Revenue: s.revInscr, Expense: s.depInscr, Balance: s.revInscr - s.depInscr}
		cumAdmin += admin.Balance
		cumStructure += structure.Balance
		cumInscr += inscr.Balance
		admin.Cumulative = cumAdmin
		structure.Cumulative = cumStructure
		inscr.Cumulative = cumInscr
		days = append(days, DayBalance{Date: d, Admin: admin, Structure: structure, Inscription: inscr})
	}
	return days
}

// WriteDailyCSV renders a daily summary as CSV, one row per calendar day.
func WriteDailyCSV(w io.Writer, days []DayBalance) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Date",
		"Rev_Admin", "Dep_Admin", "Reste_Admin_Journalier", "Reste_Admin_Cumule",
		"Rev_Structure", "Dep_Structure", "Reste_Structure_Journalier", "Reste_Structure_Cumule",
		"Rev_Inscription", "Dep_Inscription", "Reste_Inscription_Journalier", "Reste_Inscription_Cumule",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range days {
		row := []string{
			core.FormatDate(d.Date),
			core.FormatAmount(d.Admin.Revenue), core.FormatAmount(d.Admin.Expense),
			core.FormatAmount(d.Admin.Balance), core.FormatAmount(d.Admin.Cumulative),
			core.FormatAmount(d.Structure.Revenue), core.FormatAmount(d.Structure.Expense),
			core.FormatAmount(d.Structure.Balance), core.FormatAmount(d.Structure.Cumulative),
			core.FormatAmount(d.Inscription.Revenue), core.FormatAmount(d.Inscription.Expense),
			core.FormatAmount(d.Inscription.Balance), core.FormatAmount(d.Inscription.Cumulative),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
