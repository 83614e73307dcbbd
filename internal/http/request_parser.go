package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"megafin/internal/core"
	"megafin/internal/ledger"
)

// parseBranch resolves a branch from its short code or full name.
func parseBranch(v string) (core.Branch, error) {
	switch strings.TrimSpace(v) {
	case "MB", string(core.BranchMenzelBourguiba):
		return core.BranchMenzelBourguiba, nil
	case "BZ", string(core.BranchBizerte):
		return core.BranchBizerte, nil
	}
	return "", core.ErrInvalidBranch
}

// parseMonth validates a worksheet month name.
func parseMonth(v string) (string, error) {
	month := strings.TrimSpace(v)
	if _, err := core.MonthIndex(month); err != nil {
		return "", err
	}
	return month, nil
}

// parseYear extracts a year, defaulting to the current one.
func parseYear(query url.Values) int {
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			return y
		}
	}
	return time.Now().Year()
}

// parseFilter builds the entry filter from query parameters. Bounds are
// submitted in the ledger's own date format and rejected when malformed.
func parseFilter(query url.Values) (ledger.Filter, error) {
	var f ledger.Filter

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := time.Parse(core.DateLayout, v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid from date %q, want JJ/MM/AAAA", v)
		}
		f.From = t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := time.Parse(core.DateLayout, v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid to date %q, want JJ/MM/AAAA", v)
		}
		f.To = t
	}
	f.Text = sanitizeInput(query.Get("q"))
	f.Employee = sanitizeInput(query.Get("employee"))
	return f, nil
}

// parseOptionalDate parses a submitted date field; empty means unset.
func parseOptionalDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(core.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want JJ/MM/AAAA", v)
	}
	return t, nil
}

// parseOptionalAmount parses a submitted amount field; empty means zero.
// Non-empty values must parse strictly.
func parseOptionalAmount(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return core.ParseAmount(v)
}
