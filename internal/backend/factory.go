// Package backend selects and builds the row store implementation from
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"megafin/internal/config"
	"megafin/internal/rowstore"
	"megafin/internal/rowstore/google"
	"megafin/internal/rowstore/memory"
)

// Type identifies a row store implementation.
type Type string

const (
	GoogleBackend Type = "google"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known
func (t Type) IsValid() bool {
	switch t {
	case GoogleBackend, MemoryBackend:
		return true
	}
	return false
}

// CleanupFunc releases backend resources
type CleanupFunc func() error

// Result contains the built store and its optional cleanup function
type Result struct {
	Store   rowstore.Store
	Cleanup CleanupFunc
}

// Factory builds row stores from application config
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateStore builds the row store named by cfg.DataBackend
func (f *Factory) CreateStore(ctx context.Context, cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case GoogleBackend:
		return f.createGoogleStore(ctx, cfg)
	default:
		return f.createMemoryStore()
	}
}

func (f *Factory) createGoogleStore(ctx context.Context, cfg *config.Config) (*Result, error) {
	retry := rowstore.RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseWait,
		Multiplier:  2.0,
	}

	cli, err := google.New(ctx, cfg.SpreadsheetID, retry)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets store: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", cfg.SpreadsheetID,
		"retry_attempts", cfg.RetryAttempts)

	return &Result{Store: cli, Cleanup: nil}, nil
}

func (f *Factory) createMemoryStore() (*Result, error) {
	f.logger.Info("Initialized memory backend")
	return &Result{Store: memory.New(), Cleanup: nil}, nil
}
