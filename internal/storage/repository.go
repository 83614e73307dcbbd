package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository holds the local mirror of ledger rows. The spreadsheet
// remains the source of truth; the mirror only ever receives appends.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// MirroredEntry is one archived ledger row.
type MirroredEntry struct {
	ID         int64
	Ledger     string
	Kind       string
	Branch     string
	Month      string
	EntryDate  string
	Label      string
	Amount     float64
	Values     []string
	MirroredAt time.Time
}

// InsertMirroredEntry archives one appended row and returns its ID. The
// date, label and amount columns are denormalized out of the row values for
// querying; the full row is kept as JSON.
func (r *SQLiteRepository) InsertMirroredEntry(ctx context.Context, e MirroredEntry) (int64, error) {
	rowJSON, err := json.Marshal(e.Values)
	if err != nil {
		return 0, fmt.Errorf("marshal row values: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO mirrored_entries (ledger, kind, branch, month, entry_date, label, amount, row_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Ledger, e.Kind, e.Branch, e.Month, e.EntryDate, e.Label, e.Amount, string(rowJSON))
	if err != nil {
		return 0, fmt.Errorf("insert mirrored entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Entry mirrored to SQLite",
		"id", id,
		"ledger", e.Ledger,
		"label", e.Label,
		"amount", e.Amount)

	return id, nil
}

// ListByLedger returns mirrored rows for one ledger in insertion order.
func (r *SQLiteRepository) ListByLedger(ctx context.Context, ledger string) ([]MirroredEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ledger, kind, branch, month, entry_date, label, amount, row_json, mirrored_at
		FROM mirrored_entries
		WHERE ledger = ?
		ORDER BY id`, ledger)
	if err != nil {
		return nil, fmt.Errorf("query mirrored entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByBranchMonth returns all mirrored rows for a branch and month, both
// revenue and expense, in insertion order.
func (r *SQLiteRepository) ListByBranchMonth(ctx context.Context, branch, month string) ([]MirroredEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ledger, kind, branch, month, entry_date, label, amount, row_json, mirrored_at
		FROM mirrored_entries
		WHERE branch = ? AND month = ?
		ORDER BY id`, branch, month)
	if err != nil {
		return nil, fmt.Errorf("query mirrored entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountByLedger returns the number of mirrored rows for a ledger.
func (r *SQLiteRepository) CountByLedger(ctx context.Context, ledger string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mirrored_entries WHERE ledger = ?`, ledger).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count mirrored entries: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]MirroredEntry, error) {
	var entries []MirroredEntry
	for rows.Next() {
		var e MirroredEntry
		var rowJSON string
		if err := rows.Scan(&e.ID, &e.Ledger, &e.Kind, &e.Branch, &e.Month,
			&e.EntryDate, &e.Label, &e.Amount, &rowJSON, &e.MirroredAt); err != nil {
			return nil, fmt.Errorf("scan mirrored entry: %w", err)
		}
		if err := json.Unmarshal([]byte(rowJSON), &e.Values); err != nil {
			return nil, fmt.Errorf("unmarshal row values: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirrored entries: %w", err)
	}
	return entries, nil
}
