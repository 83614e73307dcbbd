package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"megafin/internal/core"
	applog "megafin/internal/log"
	"megafin/internal/service"
	"megafin/internal/session"
)

// revenueDTO is the wire shape of a revenue entry. Amounts and dates
// travel as strings in the ledger's own formats.
type revenueDTO struct {
	Date            string `json:"date"`
	Label           string `json:"label"`
	Price           string `json:"price"`
	AmountAdmin     string `json:"amount_admin"`
	AmountStructure string `json:"amount_structure"`
	AmountPreInscr  string `json:"amount_preinscription"`
	AmountTotal     string `json:"amount_total,omitempty"`
	DueDate         string `json:"due_date"`
	Remaining       string `json:"remaining,omitempty"`
	Mode            string `json:"mode"`
	Employee        string `json:"employee"`
	Category        string `json:"category"`
	Note            string `json:"note"`
	Alert           string `json:"alert,omitempty"`
}

type expenseDTO struct {
	Date     string `json:"date"`
	Label    string `json:"label"`
	Amount   string `json:"amount"`
	Source   string `json:"source"`
	Mode     string `json:"mode"`
	Employee string `json:"employee"`
	Category string `json:"category"`
	Note     string `json:"note"`
}

func revenueToDTO(row service.RevenueRow) revenueDTO {
	e := row.RevenueEntry
	return revenueDTO{
		Date:            core.FormatDate(e.Date),
		Label:           e.Label,
		Price:           core.FormatAmount(e.Price),
		AmountAdmin:     core.FormatAmount(e.AmountAdmin),
		AmountStructure: core.FormatAmount(e.AmountStructure),
		AmountPreInscr:  core.FormatAmount(e.AmountPreInscr),
		AmountTotal:     core.FormatAmount(e.AmountTotal),
		DueDate:         core.FormatDate(e.DueDate),
		Remaining:       core.FormatAmount(e.Remaining),
		Mode:            e.Mode,
		Employee:        e.Employee,
		Category:        e.Category,
		Note:            e.Note,
		Alert:           string(row.Alert),
	}
}

func expenseToDTO(e core.ExpenseEntry) expenseDTO {
	return expenseDTO{
		Date:     core.FormatDate(e.Date),
		Label:    e.Label,
		Amount:   core.FormatAmount(e.Amount),
		Source:   string(e.Source),
		Mode:     e.Mode,
		Employee: e.Employee,
		Category: e.Category,
		Note:     e.Note,
	}
}

type commitEntryRequest struct {
	Kind   string `json:"kind"`
	Branch string `json:"branch"`
	Month  string `json:"month"`

	Date            string `json:"date"`
	Label           string `json:"label"`
	Price           string `json:"price"`
	AmountAdmin     string `json:"amount_admin"`
	AmountStructure string `json:"amount_structure"`
	AmountPreInscr  string `json:"amount_preinscription"`
	DueDate         string `json:"due_date"`
	Amount          string `json:"amount"`
	Source          string `json:"source"`
	Mode            string `json:"mode"`
	Category        string `json:"category"`
	Note            string `json:"note"`
}

// handleEntries lists one branch-month ledger or commits a new entry.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		s.listEntries(w, r, sess)
	case http.MethodPost:
		s.commitEntry(w, r, sess)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request, sess session.Session) {
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
	filter, err := parseFilter(query)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// Employees only see their own entries. The whole ledger is visible
	// only while the admin unlock is still live, not just because the
	// session was elevated once.
	admin := sess.Role == session.RoleAdmin && s.sessions.Guard().AdminActive(sess, time.Now())
	if !admin && sess.Employee != "" {
		filter.Employee = sess.Employee
	}

	kind := strings.TrimSpace(query.Get("kind"))
	switch kind {
	case "", "revenue":
		rows, err := s.ledgers.ListRevenue(r.Context(), branch, month, filter)
		if err != nil {
			s.slogger.LogError(r.Context(), "List revenue failed", err,
				applog.ComponentLedger, applog.OpList,
				applog.NewFields().WithLedger(core.LedgerTitle(core.Revenue, month, branch), branch.ShortCode(), month))
			writeError(w, http.StatusInternalServerError, "could not read the ledger")
			return
		}
		out := make([]revenueDTO, len(rows))
		for i, row := range rows {
			out[i] = revenueToDTO(row)
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "revenue", "entries": out})

	case "expense":
		entries, err := s.ledgers.ListExpenses(r.Context(), branch, month, filter)
		if err != nil {
			slog.ErrorContext(r.Context(), "List expenses failed", "error", err, "month", month)
			writeError(w, http.StatusInternalServerError, "could not read the ledger")
			return
		}
		out := make([]expenseDTO, len(entries))
		for i, e := range entries {
			out[i] = expenseToDTO(e)
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "expense", "entries": out})

	default:
		writeError(w, http.StatusUnprocessableEntity, "kind must be revenue or expense")
	}
}

func (s *Server) commitEntry(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req commitEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	branch, err := parseBranch(req.Branch)
	if err != nil {
		branch = sess.Branch
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown month")
		return
	}

	switch req.Kind {
	case "revenue":
		s.commitRevenue(w, r, sess, branch, month, req)
	case "expense":
		s.commitExpense(w, r, sess, branch, month, req)
	default:
		writeError(w, http.StatusUnprocessableEntity, "kind must be revenue or expense")
	}
}

func (s *Server) commitRevenue(w http.ResponseWriter, r *http.Request, sess session.Session, branch core.Branch, month string, req commitEntryRequest) {
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	due, err := parseOptionalDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	price, err := parseOptionalAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid price")
		return
	}
	admin, err := parseOptionalAmount(req.AmountAdmin)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid admin amount")
		return
	}
	structure, err := parseOptionalAmount(req.AmountStructure)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid structure amount")
		return
	}
	preInscr, err := parseOptionalAmount(req.AmountPreInscr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid pre-inscription amount")
		return
	}

	entry := core.RevenueEntry{
		Date:            date,
		Label:           sanitizeInput(req.Label),
		Price:           price,
		AmountAdmin:     admin,
		AmountStructure: structure,
		AmountPreInscr:  preInscr,
		DueDate:         due,
		Mode:            sanitizeInput(req.Mode),
		Employee:        sess.Employee,
		Category:        sanitizeInput(req.Category),
		Note:            sanitizeInput(req.Note),
	}

	stored, err := s.ledgers.CommitRevenue(r.Context(), branch, month, entry)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Commit revenue failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "could not save the entry")
		return
	}

	s.slogger.LogEntryCommitted(r.Context(), core.LedgerTitle(core.Revenue, month, branch),
		stored.Label, stored.AmountTotal, stored.Employee)
	writeJSON(w, http.StatusCreated, revenueToDTO(service.RevenueRow{RevenueEntry: stored}))
}

func (s *Server) commitExpense(w http.ResponseWriter, r *http.Request, sess session.Session, branch core.Branch, month string, req commitEntryRequest) {
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	amount, err := parseOptionalAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	entry := core.ExpenseEntry{
		Date:     date,
		Label:    sanitizeInput(req.Label),
		Amount:   amount,
		Source:   core.Account(strings.TrimSpace(req.Source)),
		Mode:     sanitizeInput(req.Mode),
		Employee: sess.Employee,
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
	}

	stored, err := s.ledgers.CommitExpense(r.Context(), branch, month, entry)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Commit expense failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "could not save the entry")
		return
	}

	s.slogger.LogEntryCommitted(r.Context(), core.LedgerTitle(core.Expense, month, branch),
		stored.Label, stored.Amount, stored.Employee)
	writeJSON(w, http.StatusCreated, expenseToDTO(stored))
}

// isValidationError separates caller mistakes from infrastructure failures.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrEmptyLabel) ||
		errors.Is(err, core.ErrInvalidPrice) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidAccount) ||
		errors.Is(err, core.ErrInvalidBranch) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidKind)
}
