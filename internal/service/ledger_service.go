// Package service orchestrates ledger operations across the row store,
// the snapshot cache, the session guard and the mirror queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"megafin/internal/amqp"
	"megafin/internal/cache"
	"megafin/internal/core"
	"megafin/internal/ledger"
	"megafin/internal/rowstore"
	"megafin/internal/session"
)

var (
	ErrBranchLocked = errors.New("branch session is not active")
	ErrAdminLocked  = errors.New("admin unlock required")
)

// MirrorPublisher publishes appended rows for the SQLite mirror. It is
// optional; a nil publisher disables mirroring.
type MirrorPublisher interface {
	PublishEntryAppended(ctx context.Context, msg *amqp.EntryAppendedMessage) error
}

// RevenueRow is a stored revenue entry with its read-time due alert.
type RevenueRow struct {
	core.RevenueEntry
	Alert ledger.Alert
}

type LedgerService struct {
	store  rowstore.Store
	cache  *cache.TTLCache[[][]string]
	guard  session.Guard
	mirror MirrorPublisher
	now    func() time.Time
}

func NewLedgerService(store rowstore.Store, snapshots *cache.TTLCache[[][]string], guard session.Guard, mirror MirrorPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		cache:  snapshots,
		guard:  guard,
		mirror: mirror,
		now:    time.Now,
	}
}

// readLedger returns the raw rows of one ledger, creating it if absent.
// Snapshots are served from the cache until TTL expiry or an append.
func (s *LedgerService) readLedger(ctx context.Context, kind core.EntryKind, month string, branch core.Branch) ([][]string, error) {
	title := core.LedgerTitle(kind, month, branch)

	if rows, ok := s.cache.Get(title); ok {
		return rows, nil
	}

	if err := s.store.Ensure(ctx, title, kind.Columns()); err != nil {
		return nil, fmt.Errorf("ensure ledger %q: %w", title, err)
	}

	rows, err := s.store.ReadAll(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("read ledger %q: %w", title, err)
	}

	s.cache.Set(title, rows)
	return rows, nil
}

func (s *LedgerService) validateScope(branch core.Branch, month string) error {
	if err := branch.Validate(); err != nil {
		return err
	}
	if _, err := core.MonthIndex(month); err != nil {
		return err
	}
	return nil
}

// ListRevenue returns the revenue entries of one branch-month ledger in
// insertion order, filtered and annotated with due alerts.
func (s *LedgerService) ListRevenue(ctx context.Context, branch core.Branch, month string, f ledger.Filter) ([]RevenueRow, error) {
	if err := s.validateScope(branch, month); err != nil {
		return nil, err
	}

	raw, err := s.readLedger(ctx, core.Revenue, month, branch)
	if err != nil {
		return nil, err
	}

	entries := ledger.FilterRevenue(ledger.ParseRevenueRows(raw), f)
	today := s.now()

	rows := make([]RevenueRow, len(entries))
	for i, e := range entries {
		rows[i] = RevenueRow{RevenueEntry: e, Alert: ledger.AlertFor(e, today)}
	}
	return rows, nil
}

// ListExpenses returns the expense entries of one branch-month ledger in
// insertion order, filtered.
func (s *LedgerService) ListExpenses(ctx context.Context, branch core.Branch, month string, f ledger.Filter) ([]core.ExpenseEntry, error) {
	if err := s.validateScope(branch, month); err != nil {
		return nil, err
	}

	raw, err := s.readLedger(ctx, core.Expense, month, branch)
	if err != nil {
		return nil, err
	}

	return ledger.FilterExpense(ledger.ParseExpenseRows(raw), f), nil
}

// CommitRevenue validates and appends one revenue entry. The remaining
// balance is computed against the rows already stored and frozen into the
// appended row. Returns the entry as stored.
func (s *LedgerService) CommitRevenue(ctx context.Context, branch core.Branch, month string, e core.RevenueEntry) (core.RevenueEntry, error) {
	if err := s.validateScope(branch, month); err != nil {
		return core.RevenueEntry{}, err
	}

	e.AmountTotal = e.AmountAdmin + e.AmountStructure
	if err := e.Validate(); err != nil {
		return core.RevenueEntry{}, err
	}
	if e.Date.IsZero() {
		e.Date = core.Day(s.now())
	}

	raw, err := s.readLedger(ctx, core.Revenue, month, branch)
	if err != nil {
		return core.RevenueEntry{}, err
	}

	existing := ledger.ParseRevenueRows(raw)
	paid := ledger.PaidSoFar(existing, e.Label)
	e.Remaining = ledger.RemainingAfter(e.Price, paid, e.AmountTotal)

	title := core.LedgerTitle(core.Revenue, month, branch)
	values := ledger.RevenueWireRow(e)
	if err := s.store.Append(ctx, title, values); err != nil {
		return core.RevenueEntry{}, fmt.Errorf("append to %q: %w", title, err)
	}
	s.cache.Invalidate(title)

	slog.InfoContext(ctx, "Revenue entry committed",
		"ledger", title,
		"label", e.Label,
		"amount", e.AmountTotal,
		"remaining", e.Remaining)

	s.publishMirror(ctx, title, core.Revenue, branch, month, values)
	return e, nil
}

// CommitExpense validates and appends one expense entry.
func (s *LedgerService) CommitExpense(ctx context.Context, branch core.Branch, month string, e core.ExpenseEntry) (core.ExpenseEntry, error) {
	if err := s.validateScope(branch, month); err != nil {
		return core.ExpenseEntry{}, err
	}
	if err := e.Validate(); err != nil {
		return core.ExpenseEntry{}, err
	}
	if e.Date.IsZero() {
		e.Date = core.Day(s.now())
	}

	title := core.LedgerTitle(core.Expense, month, branch)
	if err := s.store.Ensure(ctx, title, core.ExpenseColumns); err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("ensure ledger %q: %w", title, err)
	}

	values := ledger.ExpenseWireRow(e)
	if err := s.store.Append(ctx, title, values); err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("append to %q: %w", title, err)
	}
	s.cache.Invalidate(title)

	slog.InfoContext(ctx, "Expense entry committed",
		"ledger", title,
		"label", e.Label,
		"amount", e.Amount,
		"account", string(e.Source))

	s.publishMirror(ctx, title, core.Expense, branch, month, values)
	return e, nil
}

// publishMirror is best-effort: the spreadsheet append already succeeded,
// so a mirror failure is logged and swallowed.
func (s *LedgerService) publishMirror(ctx context.Context, title string, kind core.EntryKind, branch core.Branch, month string, values []string) {
	if s.mirror == nil {
		return
	}
	msg := amqp.NewEntryAppendedMessage(title, string(kind), branch.ShortCode(), month, values)
	if err := s.mirror.PublishEntryAppended(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mirror message",
			"ledger", title, "error", err)
	}
}

// MonthlySummary computes per-account balances for one branch-month. The
// caller's admin unlock must still be active.
func (s *LedgerService) MonthlySummary(ctx context.Context, sess session.Session, branch core.Branch, month string) (ledger.MonthlySummary, error) {
	if !s.guard.AdminActive(sess, s.now()) {
		return ledger.MonthlySummary{}, ErrAdminLocked
	}
	if err := s.validateScope(branch, month); err != nil {
		return ledger.MonthlySummary{}, err
	}

	rev, dep, err := s.readBoth(ctx, branch, month)
	if err != nil {
		return ledger.MonthlySummary{}, err
	}
	return ledger.Summarize(rev, dep), nil
}

// DailySummary computes the day-by-day account balances for one
// branch-month, covering every calendar day of the month.
func (s *LedgerService) DailySummary(ctx context.Context, sess session.Session, branch core.Branch, month string, year int) ([]ledger.DayBalance, error) {
	if !s.guard.AdminActive(sess, s.now()) {
		return nil, ErrAdminLocked
	}
	if err := s.validateScope(branch, month); err != nil {
		return nil, err
	}

	monthIdx, err := core.MonthIndex(month)
	if err != nil {
		return nil, err
	}

	rev, dep, err := s.readBoth(ctx, branch, month)
	if err != nil {
		return nil, err
	}
	return ledger.SummarizeDaily(rev, dep, year, monthIdx), nil
}

// DailySummaryCSV writes the daily summary as CSV.
func (s *LedgerService) DailySummaryCSV(ctx context.Context, w io.Writer, sess session.Session, branch core.Branch, month string, year int) error {
	days, err := s.DailySummary(ctx, sess, branch, month, year)
	if err != nil {
		return err
	}
	return ledger.WriteDailyCSV(w, days)
}

func (s *LedgerService) readBoth(ctx context.Context, branch core.Branch, month string) ([]core.RevenueEntry, []core.ExpenseEntry, error) {
	rawRev, err := s.readLedger(ctx, core.Revenue, month, branch)
	if err != nil {
		return nil, nil, err
	}
	rawDep, err := s.readLedger(ctx, core.Expense, month, branch)
	if err != nil {
		return nil, nil, err
	}
	return ledger.ParseRevenueRows(rawRev), ledger.ParseExpenseRows(rawDep), nil
}

// ClientHistory scans every existing revenue ledger of the branch for
// payments matching the label or the phone digits. Only ledgers that
// already exist are read; months are scanned in calendar order.
func (s *LedgerService) ClientHistory(ctx context.Context, branch core.Branch, label, phone string) (ledger.ClientHistory, error) {
	if err := branch.Validate(); err != nil {
		return ledger.ClientHistory{}, err
	}

	titles, err := s.store.Titles(ctx)
	if err != nil {
		return ledger.ClientHistory{}, fmt.Errorf("list ledgers: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	var months []ledger.MonthEntries
	for _, month := range core.MonthNames {
		title := core.LedgerTitle(core.Revenue, month, branch)
		if !existing[title] {
			continue
		}

		var raw [][]string
		if cached, ok := s.cache.Get(title); ok {
			raw = cached
		} else {
			raw, err = s.store.ReadAll(ctx, title)
			if err != nil {
				return ledger.ClientHistory{}, fmt.Errorf("read ledger %q: %w", title, err)
			}
			s.cache.Set(title, raw)
		}

		months = append(months, ledger.MonthEntries{
			Month:   month,
			Entries: ledger.ParseRevenueRows(raw),
		})
	}

	return ledger.ResolveClientHistory(label, phone, months), nil
}

// EnsureYear creates every revenue and expense ledger of the branch for
// all twelve months. Used at provisioning time.
func (s *LedgerService) EnsureYear(ctx context.Context, branch core.Branch) error {
	if err := branch.Validate(); err != nil {
		return err
	}

	for _, month := range core.MonthNames {
		for _, kind := range []core.EntryKind{core.Revenue, core.Expense} {
			title := core.LedgerTitle(kind, month, branch)
			if err := s.store.Ensure(ctx, title, kind.Columns()); err != nil {
				return fmt.Errorf("ensure ledger %q: %w", title, err)
			}
		}
	}
	return nil
}
