package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"megafin/internal/service"
	"megafin/internal/session"
)

// handleMonthSummary returns the per-account monthly balances. Admin only.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	branch, err := parseBranch(query.Get("branch"))
	if err != nil {
		branch = sess.Branch
	}
	month, err := parseMonth(query.Get("month"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown month")
		return
	}

	summary, err := s.ledgers.MonthlySummary(r.Context(), sess, branch, month)
	if err != nil {
		if errors.Is(err, service.ErrAdminLocked) {
			writeError(w, http.StatusForbidden, "admin unlock required")
			return
		}
		slog.ErrorContext(r.Context(), "Monthly summary failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "could not compute the summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleDailySummary returns per-day running balances for every day of the
// month, including days with no entries. Admin only.
func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	branch, err := parseBranch(query.Get("branch"))
	if err != nil {
		branch = sess.Branch
	}
	month, err := parseMonth(query.Get("month"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown month")
		return
	}
	year := parseYear(query)

	days, err := s.ledgers.DailySummary(r.Context(), sess, branch, month, year)
	if err != nil {
		if errors.Is(err, service.ErrAdminLocked) {
			writeError(w, http.StatusForbidden, "admin unlock required")
			return
		}
		slog.ErrorContext(r.Context(), "Daily summary failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "could not compute the summary")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"month": month, "year": year, "days": days})
}

// handleDailySummaryCSV streams the daily balances as a CSV download.
func (s *Server) handleDailySummaryCSV(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	branch, err := parseBranch(query.Get("branch"))
	if err != nil {
		branch = sess.Branch
	}
	month, err := parseMonth(query.Get("month"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown month")
		return
	}
	year := parseYear(query)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("solde_%s_%s_%d.csv", branch.ShortCode(), month, year)))

	if err := s.ledgers.DailySummaryCSV(r.Context(), w, sess, branch, month, year); err != nil {
		if errors.Is(err, service.ErrAdminLocked) {
			// Headers are already set but nothing has been written yet.
			w.Header().Del("Content-Disposition")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusForbidden, "admin unlock required")
			return
		}
		slog.ErrorContext(r.Context(), "Daily summary CSV failed", "error", err, "month", month)
	}
}
