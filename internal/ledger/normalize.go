// Package ledger implements reconciliation over branch-month revenue and
// expense ledgers: row normalization, remaining-balance computation,
// due-date alerts, aggregate summaries, filtering, and cross-month client
// history lookup.
//
// The package is pure: it consumes raw rows already fetched from the row
// store and never talks to a backend itself.
package ledger

import (
	"strings"

	"megafin/internal/core"
)

// headerIndex maps each column name to its position. Duplicate names keep
// the first occurrence, matching how the sheet header is repaired.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i < 0 || i >= len(row) {
		// Missing columns are synthesized as empty cells.
		return ""
	}
	return row[i]
}

// ParseRevenueRows converts raw rows (header first) into typed revenue
// entries, preserving input row order. Dirty cells are coerced, never
// rejected.
func ParseRevenueRows(rows [][]string) []core.RevenueEntry {
	if len(rows) < 2 {
		return nil
	}
	idx := headerIndex(rows[0])
	out := make([]core.RevenueEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, core.RevenueEntry{
			Date:            core.CoerceDate(cell(row, idx, "Date")),
			Label:           strings.TrimSpace(cell(row, idx, "Libellé")),
			Price:           core.CoerceAmount(cell(row, idx, "Prix")),
			AmountAdmin:     core.CoerceAmount(cell(row, idx, "Montant_Admin")),
			AmountStructure: core.CoerceAmount(cell(row, idx, "Montant_Structure")),
			AmountPreInscr:  core.CoerceAmount(cell(row, idx, "Montant_PreInscription")),
			AmountTotal:     core.CoerceAmount(cell(row, idx, "Montant_Total")),
			DueDate:         core.CoerceDate(cell(row, idx, "Echeance")),
			Remaining:       core.CoerceAmount(cell(row, idx, "Reste")),
			Mode:            strings.TrimSpace(cell(row, idx, "Mode")),
			Employee:        strings.TrimSpace(cell(row, idx, "Employé")),
			Category:        strings.TrimSpace(cell(row, idx, "Catégorie")),
			Note:            strings.TrimSpace(cell(row, idx, "Note")),
		})
	}
	return out
}

// ParseExpenseRows converts raw rows (header first) into typed expense
// entries, preserving input row order.
func ParseExpenseRows(rows [][]string) []core.ExpenseEntry {
	if len(rows) < 2 {
		return nil
	}
	idx := headerIndex(rows[0])
	out := make([]core.ExpenseEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, core.ExpenseEntry{
			Date:     core.CoerceDate(cell(row, idx, "Date")),
			Label:    strings.TrimSpace(cell(row, idx, "Libellé")),
			Amount:   core.CoerceAmount(cell(row, idx, "Montant")),
			Source:   core.Account(strings.TrimSpace(cell(row, idx, "Caisse_Source"))),
			Mode:     strings.TrimSpace(cell(row, idx, "Mode")),
			Employee: strings.TrimSpace(cell(row, idx, "Employé")),
			Category: strings.TrimSpace(cell(row, idx, "Catégorie")),
			Note:     strings.TrimSpace(cell(row, idx, "Note")),
		})
	}
	return out
}

// RevenueWireRow serializes a revenue entry into cells ordered by the
// canonical revenue header.
func RevenueWireRow(e core.RevenueEntry) []string {
	return []string{
		core.FormatDate(e.Date),
		e.Label,
		core.FormatAmount(e.Price),
		core.FormatAmount(e.AmountAdmin),
		core.FormatAmount(e.AmountStructure),
		core.FormatAmount(e.AmountPreInscr),
		core.FormatAmount(e.AmountTotal),
		core.FormatDate(e.DueDate),
		core.FormatAmount(e.Remaining),
		e.Mode,
		e.Employee,
		e.Category,
		e.Note,
	}
}

// ExpenseWireRow serializes an expense entry into cells ordered by the
// canonical expense header.
func ExpenseWireRow(e core.ExpenseEntry) []string {
	return []string{
		core.FormatDate(e.Date),
		e.Label,
		core.FormatAmount(e.Amount),
		string(e.Source),
		e.Mode,
		e.Employee,
		e.Category,
		e.Note,
	}
}
