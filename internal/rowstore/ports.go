package rowstore

import "context"

// Ports for the spreadsheet-shaped row store. A ledger is one worksheet:
// an ordered sequence of string rows with the header first. The store is
// the sole persistence owner and serializes concurrent appends itself.
type (
	Reader interface {
		// ReadAll returns every row of the ledger, header row first.
		ReadAll(ctx context.Context, title string) ([][]string, error)
	}

	Appender interface {
		// Append writes one row whose values are ordered by the current
		// header. Appends are all-or-nothing per row.
		Append(ctx context.Context, title string, values []string) error
	}

	Ensurer interface {
		// Ensure creates the ledger with the given header if absent, and
		// repairs header drift if present. Idempotent.
		Ensure(ctx context.Context, title string, columns []string) error
	}

	Lister interface {
		// Titles returns the names of all existing ledgers.
		Titles(ctx context.Context) ([]string, error)
	}
)

// Store is the full row-store surface the service layer binds to.
type Store interface {
	Reader
	Appender
	Ensurer
	Lister
}
