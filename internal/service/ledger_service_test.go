package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"megafin/internal/amqp"
	"megafin/internal/cache"
	"megafin/internal/core"
	"megafin/internal/ledger"
	"megafin/internal/rowstore/memory"
	"megafin/internal/session"
)

type capturingPublisher struct {
	mu       sync.Mutex
	messages []*amqp.EntryAppendedMessage
	fail     bool
}

func (p *capturingPublisher) PublishEntryAppended(_ context.Context, msg *amqp.EntryAppendedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newTestService(t *testing.T) (*LedgerService, *memory.Store, *capturingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &capturingPublisher{}
	guard := session.Guard{AdminTTL: 30 * time.Minute, EmployeeTTL: 20 * time.Minute}
	svc := NewLedgerService(store, cache.New[[][]string](64, 2*time.Minute), guard, pub)
	return svc, store, pub
}

func adminSession(now time.Time) session.Session {
	return session.Session{
		Role:             session.RoleAdmin,
		Branch:           core.BranchMenzelBourguiba,
		Employee:         "Sonia",
		BranchUnlockedAt: now,
		AdminUnlockedAt:  now,
	}
}

func TestCommitRevenueComputesRemaining(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	stored, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label:           "Paiement Java - Wael",
		Price:           900,
		AmountAdmin:     100,
		AmountStructure: 200,
	})
	if err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}
	if stored.AmountTotal != 300 {
		t.Errorf("AmountTotal = %v, want 300", stored.AmountTotal)
	}
	if stored.Remaining != 600 {
		t.Errorf("Remaining = %v, want 600", stored.Remaining)
	}
}

func TestCommitRevenueSecondPaymentReachesZero(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := core.RevenueEntry{Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 300}
	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", first); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	second := core.RevenueEntry{Label: "paiement java - wael", Price: 900, AmountAdmin: 400, AmountStructure: 200}
	stored, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", second)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if stored.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0 (900 - (300+600))", stored.Remaining)
	}
}

func TestCommitRevenueClampsOverpayment(t *testing.T) {
	svc, _, _ := newTestService(t)

	stored, err := svc.CommitRevenue(context.Background(), core.BranchBizerte, "Avril", core.RevenueEntry{
		Label:       "Paiement Python - Amine",
		Price:       500,
		AmountAdmin: 700,
	})
	if err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}
	if stored.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0 after clamp", stored.Remaining)
	}
}

func TestCommitRevenueValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		branch  core.Branch
		month   string
		entry   core.RevenueEntry
		wantErr error
	}{
		{
			name:    "empty label",
			branch:  core.BranchMenzelBourguiba,
			month:   "Mars",
			entry:   core.RevenueEntry{Price: 100, AmountAdmin: 50},
			wantErr: core.ErrEmptyLabel,
		},
		{
			name:    "zero price",
			branch:  core.BranchMenzelBourguiba,
			month:   "Mars",
			entry:   core.RevenueEntry{Label: "x", AmountAdmin: 50},
			wantErr: core.ErrInvalidPrice,
		},
		{
			name:    "no amounts",
			branch:  core.BranchMenzelBourguiba,
			month:   "Mars",
			entry:   core.RevenueEntry{Label: "x", Price: 100},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown month",
			branch:  core.BranchMenzelBourguiba,
			month:   "Brumaire",
			entry:   core.RevenueEntry{Label: "x", Price: 100, AmountAdmin: 50},
			wantErr: core.ErrInvalidMonth,
		},
		{
			name:    "unknown branch",
			branch:  core.Branch("Tunis"),
			month:   "Mars",
			entry:   core.RevenueEntry{Label: "x", Price: 100, AmountAdmin: 50},
			wantErr: core.ErrInvalidBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CommitRevenue(ctx, tt.branch, tt.month, tt.entry)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommitRevenuePreInscriptionOnly(t *testing.T) {
	svc, _, _ := newTestService(t)

	stored, err := svc.CommitRevenue(context.Background(), core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label:          "Inscription Java - Rim",
		Price:          900,
		AmountPreInscr: 50,
	})
	if err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}
	if stored.AmountTotal != 0 {
		t.Errorf("AmountTotal = %v, want 0", stored.AmountTotal)
	}
	if stored.Remaining != 900 {
		t.Errorf("Remaining = %v, want 900 (pre-inscription does not reduce)", stored.Remaining)
	}
}

func TestCommitExpenseAppearsInList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CommitExpense(ctx, core.BranchBizerte, "Mai", core.ExpenseEntry{
		Label:  "Loyer",
		Amount: 450,
		Source: core.AccountStructure,
	}); err != nil {
		t.Fatalf("CommitExpense: %v", err)
	}

	got, err := svc.ListExpenses(ctx, core.BranchBizerte, "Mai", ledger.Filter{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(got))
	}
	if got[0].Label != "Loyer" || got[0].Amount != 450 {
		t.Errorf("unexpected entry: %+v", got[0])
	}
}

func TestCommitExpenseRejectsUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CommitExpense(context.Background(), core.BranchBizerte, "Mai", core.ExpenseEntry{
		Label:  "Divers",
		Amount: 10,
		Source: core.Account("Caisse_Inexistante"),
	})
	if !errors.Is(err, core.ErrInvalidAccount) {
		t.Errorf("error = %v, want ErrInvalidAccount", err)
	}
}

func TestCommitInvalidatesSnapshot(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Prime the cache with the empty ledger.
	if _, err := svc.ListRevenue(ctx, core.BranchMenzelBourguiba, "Juin", ledger.Filter{}); err != nil {
		t.Fatalf("ListRevenue: %v", err)
	}

	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Juin", core.RevenueEntry{
		Label: "Paiement PHP - Ines", Price: 600, AmountAdmin: 600,
	}); err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}

	got, err := svc.ListRevenue(ctx, core.BranchMenzelBourguiba, "Juin", ledger.Filter{})
	if err != nil {
		t.Fatalf("ListRevenue after commit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected fresh read after append, got %d rows", len(got))
	}
}

func TestListRevenueServesCachedSnapshot(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	title := core.LedgerTitle(core.Revenue, "Juillet", core.BranchMenzelBourguiba)
	if _, err := svc.ListRevenue(ctx, core.BranchMenzelBourguiba, "Juillet", ledger.Filter{}); err != nil {
		t.Fatalf("ListRevenue: %v", err)
	}

	// A row written behind the service's back stays invisible until the
	// snapshot expires or an append invalidates it.
	row := make([]string, len(core.RevenueColumns))
	row[0], row[1], row[6] = "01/07/2025", "Paiement Java - Ghost", "100.00"
	if err := store.Append(ctx, title, row); err != nil {
		t.Fatalf("direct append: %v", err)
	}

	got, err := svc.ListRevenue(ctx, core.BranchMenzelBourguiba, "Juillet", ledger.Filter{})
	if err != nil {
		t.Fatalf("ListRevenue: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected cached snapshot without the direct append, got %d rows", len(got))
	}
}

func TestListRevenueAlerts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	entries := []core.RevenueEntry{
		{Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 100, DueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{Label: "Paiement PHP - Rim", Price: 600, AmountAdmin: 100, DueDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{Label: "Paiement C - Omar", Price: 300, AmountAdmin: 100, DueDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", e); err != nil {
			t.Fatalf("CommitRevenue: %v", err)
		}
	}

	rows, err := svc.ListRevenue(ctx, core.BranchMenzelBourguiba, "Mars", ledger.Filter{})
	if err != nil {
		t.Fatalf("ListRevenue: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Alert != ledger.AlertOverdue {
		t.Errorf("rows[0].Alert = %q, want overdue", rows[0].Alert)
	}
	if rows[1].Alert != ledger.AlertDueToday {
		t.Errorf("rows[1].Alert = %q, want due today", rows[1].Alert)
	}
	if rows[2].Alert != ledger.AlertNone {
		t.Errorf("rows[2].Alert = %q, want none", rows[2].Alert)
	}
}

func TestCommitPublishesMirrorMessage(t *testing.T) {
	svc, _, pub := newTestService(t)

	if _, err := svc.CommitRevenue(context.Background(), core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 300,
	}); err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 mirror message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Ledger != "Revenue Mars (MB)" {
		t.Errorf("msg.Ledger = %q", msg.Ledger)
	}
	if msg.Kind != "Revenue" || msg.Branch != "MB" || msg.Month != "Mars" {
		t.Errorf("unexpected message envelope: %+v", msg)
	}
	if len(msg.Values) != len(core.RevenueColumns) {
		t.Errorf("msg.Values length = %d, want %d", len(msg.Values), len(core.RevenueColumns))
	}
}

func TestCommitSurvivesMirrorFailure(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.fail = true

	if _, err := svc.CommitRevenue(context.Background(), core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 300,
	}); err != nil {
		t.Fatalf("commit should not fail on mirror errors: %v", err)
	}
}

func TestMonthlySummaryRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	employee := session.Session{
		Role:             session.RoleEmployee,
		Branch:           core.BranchMenzelBourguiba,
		BranchUnlockedAt: now,
	}
	_, err := svc.MonthlySummary(context.Background(), employee, core.BranchMenzelBourguiba, "Mars")
	if !errors.Is(err, ErrAdminLocked) {
		t.Errorf("error = %v, want ErrAdminLocked", err)
	}

	expired := adminSession(now.Add(-31 * time.Minute))
	_, err = svc.MonthlySummary(context.Background(), expired, core.BranchMenzelBourguiba, "Mars")
	if !errors.Is(err, ErrAdminLocked) {
		t.Errorf("error for expired unlock = %v, want ErrAdminLocked", err)
	}
}

func TestMonthlySummaryBalances(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 100, AmountStructure: 150, AmountPreInscr: 50,
	}); err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}
	if _, err := svc.CommitExpense(ctx, core.BranchMenzelBourguiba, "Mars", core.ExpenseEntry{
		Label: "Fournitures", Amount: 40, Source: core.AccountAdmin,
	}); err != nil {
		t.Fatalf("CommitExpense: %v", err)
	}

	sum, err := svc.MonthlySummary(ctx, adminSession(now), core.BranchMenzelBourguiba, "Mars")
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if sum.Admin.Balance != 60 {
		t.Errorf("Admin balance = %v, want 60", sum.Admin.Balance)
	}
	if sum.Structure.Balance != 150 {
		t.Errorf("Structure balance = %v, want 150", sum.Structure.Balance)
	}
	if sum.Inscription.Balance != 50 {
		t.Errorf("Inscription balance = %v, want 50", sum.Inscription.Balance)
	}
}

func TestDailySummaryCoversWholeMonth(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	days, err := svc.DailySummary(context.Background(), adminSession(now), core.BranchMenzelBourguiba, "Février", 2025)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if len(days) != 28 {
		t.Errorf("expected 28 days for Février 2025, got %d", len(days))
	}
}

func TestDailySummaryCSV(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Date:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 300,
	}); err != nil {
		t.Fatalf("CommitRevenue: %v", err)
	}

	var buf strings.Builder
	if err := svc.DailySummaryCSV(ctx, &buf, adminSession(now), core.BranchMenzelBourguiba, "Mars", 2025); err != nil {
		t.Fatalf("DailySummaryCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 32 {
		t.Errorf("expected header + 31 days, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Date,") {
		t.Errorf("unexpected CSV header: %q", lines[0])
	}
}

func TestClientHistoryAcrossMonths(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Janvier", core.RevenueEntry{
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 300,
	}); err != nil {
		t.Fatalf("commit Janvier: %v", err)
	}
	if _, err := svc.CommitRevenue(ctx, core.BranchMenzelBourguiba, "Mars", core.RevenueEntry{
		Label: "Paiement Java - Wael", Price: 900, AmountAdmin: 200,
	}); err != nil {
		t.Fatalf("commit Mars: %v", err)
	}

	hist, err := svc.ClientHistory(ctx, core.BranchMenzelBourguiba, "Paiement Java - Wael", "")
	if err != nil {
		t.Fatalf("ClientHistory: %v", err)
	}
	if len(hist.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(hist.Matches))
	}
	if hist.Matches[0].Month != "Janvier" || hist.Matches[1].Month != "Mars" {
		t.Errorf("matches out of calendar order: %+v", hist.Matches)
	}
	if hist.TotalPaid != 500 {
		t.Errorf("TotalPaid = %v, want 500", hist.TotalPaid)
	}
	// Remaining is frozen within each ledger: the Mars commit saw no
	// prior Mars payments, so 900 - 200 = 700.
	if hist.LastRemaining != 700 {
		t.Errorf("LastRemaining = %v, want 700", hist.LastRemaining)
	}
}

func TestEnsureYearCreatesAllLedgers(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureYear(ctx, core.BranchBizerte); err != nil {
		t.Fatalf("EnsureYear: %v", err)
	}

	titles, err := store.Titles(ctx)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(titles) != 24 {
		t.Errorf("expected 24 ledgers, got %d", len(titles))
	}
}
