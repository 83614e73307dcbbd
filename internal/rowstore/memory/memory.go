// Package memory is an in-process row store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"megafin/internal/rowstore"
)

type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
	order  []string
}

var _ rowstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// Seed replaces the content of a ledger wholesale, header included.
func (s *Store) Seed(title string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; !ok {
		s.order = append(s.order, title)
	}
	s.sheets[title] = copyRows(rows)
}

func (s *Store) Ensure(_ context.Context, title string, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		s.sheets[title] = [][]string{append([]string(nil), columns...)}
		s.order = append(s.order, title)
		return nil
	}
	if len(rows) == 0 || headerDrifted(rows[0], columns) {
		header := append([]string(nil), columns...)
		if len(rows) == 0 {
			s.sheets[title] = [][]string{header}
		} else {
			rows[0] = header
		}
	}
	return nil
}

func (s *Store) ReadAll(_ context.Context, title string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return nil, fmt.Errorf("ledger %q not found", title)
	}
	return copyRows(rows), nil
}

func (s *Store) Append(_ context.Context, title string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return fmt.Errorf("ledger %q not found", title)
	}
	s.sheets[title] = append(rows, append([]string(nil), values...))
	return nil
}

func (s *Store) Titles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func headerDrifted(header, columns []string) bool {
	if len(header) < len(columns) {
		return true
	}
	for i, col := range columns {
		if header[i] != col {
			return true
		}
	}
	return false
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
