package worker

import (
	"context"
	"fmt"
	"log/slog"

	"megafin/internal/amqp"
	"megafin/internal/core"
	"megafin/internal/storage"
)

// MirrorWorker archives appended ledger rows into the local SQLite mirror.
// The spreadsheet stays authoritative; the mirror is append-only and used
// for offline reporting.
type MirrorWorker struct {
	storage *storage.SQLiteRepository
}

func NewMirrorWorker(storage *storage.SQLiteRepository) *MirrorWorker {
	return &MirrorWorker{storage: storage}
}

// HandleEntryAppended processes one mirror message from AMQP
func (w *MirrorWorker) HandleEntryAppended(ctx context.Context, msg *amqp.EntryAppendedMessage) error {
	slog.InfoContext(ctx, "Processing mirror message",
		"ledger", msg.Ledger,
		"kind", msg.Kind)

	entry := storage.MirroredEntry{
		Ledger: msg.Ledger,
		Kind:   msg.Kind,
		Branch: msg.Branch,
		Month:  msg.Month,
		Values: msg.Values,
	}
	entry.EntryDate, entry.Label, entry.Amount = denormalize(msg.Kind, msg.Values)

	id, err := w.storage.InsertMirroredEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("insert mirrored entry: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored entry",
		"id", id,
		"ledger", msg.Ledger,
		"label", entry.Label)

	return nil
}

// denormalize pulls the date, label and main amount out of a serialized row.
// Revenue rows carry the amount in Montant_Total, expense rows in Montant.
// Rows are trusted only as far as lenient coercion allows.
func denormalize(kind string, values []string) (date, label string, amount float64) {
	columns := core.ExpenseColumns
	amountCol := "Montant"
	if kind == string(core.Revenue) {
		columns = core.RevenueColumns
		amountCol = "Montant_Total"
	}

	cell := func(name string) string {
		for i, col := range columns {
			if col == name && i < len(values) {
				return values[i]
			}
		}
		return ""
	}

	return cell("Date"), cell("Libellé"), core.CoerceAmount(cell(amountCol))
}
