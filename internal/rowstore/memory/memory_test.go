package memory

import (
	"context"
	"testing"

	"megafin/internal/core"
)

func TestEnsureCreatesWithHeader(t *testing.T) {
	s := New()
	ctx := context.Background()
	title := core.LedgerTitle(core.Revenue, "Janvier", core.BranchMenzelBourguiba)

	if err := s.Ensure(ctx, title, core.RevenueColumns); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rows, err := s.ReadAll(ctx, title)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "Libellé" {
		t.Fatalf("unexpected header: %v", rows)
	}
}

func TestEnsureRepairsHeaderDrift(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Seed("Dépense Mars (BZ)", [][]string{
		{"Date", "Label", "Montant"}, // drifted header
		{"01/03/2025", "Loyer", "450"},
	})
	if err := s.Ensure(ctx, "Dépense Mars (BZ)", core.ExpenseColumns); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rows, _ := s.ReadAll(ctx, "Dépense Mars (BZ)")
	if rows[0][1] != "Libellé" || len(rows[0]) != len(core.ExpenseColumns) {
		t.Fatalf("header not repaired: %v", rows[0])
	}
	if rows[1][1] != "Loyer" {
		t.Fatalf("data rows must survive a header repair: %v", rows[1])
	}
	// Second ensure is a no-op.
	if err := s.Ensure(ctx, "Dépense Mars (BZ)", core.ExpenseColumns); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}
}

func TestAppendAndTitles(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Ensure(ctx, "Revenue Janvier (MB)", core.RevenueColumns)
	_ = s.Ensure(ctx, "Revenue Février (MB)", core.RevenueColumns)

	if err := s.Append(ctx, "Revenue Janvier (MB)", []string{"01/01/2025", "X"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, "Revenue Avril (MB)", nil); err == nil {
		t.Fatalf("append to a missing ledger must fail")
	}

	titles, _ := s.Titles(ctx)
	if len(titles) != 2 || titles[0] != "Revenue Janvier (MB)" {
		t.Fatalf("titles: %v", titles)
	}

	// ReadAll returns a copy; mutating it must not leak into the store.
	rows, _ := s.ReadAll(ctx, "Revenue Janvier (MB)")
	rows[1][1] = "mutated"
	again, _ := s.ReadAll(ctx, "Revenue Janvier (MB)")
	if again[1][1] != "X" {
		t.Fatalf("store rows must be isolated from callers")
	}
}
