package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"megafin/internal/core"
	"megafin/internal/crm"
	"megafin/internal/ledger"
	"megafin/internal/session"
)

type clientDTO struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	ContactType  string `json:"contact_type"`
	Formation    string `json:"formation"`
	Remark       string `json:"remark"`
	AddedAt      string `json:"added_at"`
	FollowUpAt   string `json:"follow_up_at"`
	FollowUpDue  bool   `json:"follow_up_due"`
	Inscription  string `json:"inscription"`
	Employee     string `json:"employee"`
	Tag          string `json:"tag"`
	PaymentLabel string `json:"payment_label"`
}

func clientToDTO(c crm.Client) clientDTO {
	return clientDTO{
		Name:         c.Name,
		Phone:        c.Phone,
		ContactType:  c.ContactType,
		Formation:    c.Formation,
		Remark:       c.Remark,
		AddedAt:      core.FormatDate(c.AddedAt),
		FollowUpAt:   core.FormatDate(c.FollowUpAt),
		FollowUpDue:  c.FollowUpDue,
		Inscription:  c.Inscription,
		Employee:     c.Employee,
		Tag:          c.Tag,
		PaymentLabel: c.PaymentLabel(),
	}
}

type addClientRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	ContactType string `json:"contact_type"`
	Formation   string `json:"formation"`
	Remark      string `json:"remark"`
	FollowUpAt  string `json:"follow_up_at"`
	Inscription string `json:"inscription"`
	Tag         string `json:"tag"`
}

// handleClients lists the contact directory or registers a new client.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		s.listClients(w, r)
	case http.MethodPost:
		s.addClient(w, r, sess)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	employee := sanitizeInput(r.URL.Query().Get("employee"))

	clients, err := s.directory.ListClients(r.Context(), employee)
	if err != nil {
		if errors.Is(err, crm.ErrUnknownEmploye) {
			writeError(w, http.StatusNotFound, "unknown employee")
			return
		}
		slog.ErrorContext(r.Context(), "List clients failed", "error", err, "employee", employee)
		writeError(w, http.StatusInternalServerError, "could not read the directory")
		return
	}

	out := make([]clientDTO, len(clients))
	for i, c := range clients {
		out[i] = clientToDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (s *Server) addClient(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req addClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var followUp time.Time
	if strings.TrimSpace(req.FollowUpAt) != "" {
		parsed, err := time.Parse(core.DateLayout, strings.TrimSpace(req.FollowUpAt))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "follow_up_at must be JJ/MM/AAAA")
			return
		}
		followUp = parsed
	}

	client := crm.Client{
		Name:        sanitizeInput(req.Name),
		Phone:       sanitizeInput(req.Phone),
		ContactType: sanitizeInput(req.ContactType),
		Formation:   sanitizeInput(req.Formation),
		Remark:      sanitizeInput(req.Remark),
		FollowUpAt:  followUp,
		Inscription: sanitizeInput(req.Inscription),
		Employee:    sess.Employee,
		Tag:         sanitizeInput(req.Tag),
	}

	stored, err := s.directory.AddClient(r.Context(), client)
	if err != nil {
		switch {
		case errors.Is(err, crm.ErrMissingFields):
			writeError(w, http.StatusUnprocessableEntity, "name, phone and formation are required")
		case errors.Is(err, crm.ErrDuplicatePhone):
			writeError(w, http.StatusConflict, "a client with this phone already exists")
		default:
			slog.ErrorContext(r.Context(), "Add client failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save the client")
		}
		return
	}

	writeJSON(w, http.StatusCreated, clientToDTO(stored))
}

type clientMatchDTO struct {
	Month string     `json:"month"`
	Entry revenueDTO `json:"entry"`
}

type clientHistoryDTO struct {
	Matches       []clientMatchDTO `json:"matches"`
	TotalPaid     string           `json:"total_paid"`
	LastRemaining string           `json:"last_remaining"`
}

// handleClientLookup resolves a client's payment history across the
// year's revenue ledgers of the session branch.
func (s *Server) handleClientLookup(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	label := sanitizeInput(query.Get("label"))
	phone := sanitizeInput(query.Get("phone"))
	if label == "" && phone == "" {
		writeError(w, http.StatusUnprocessableEntity, "label or phone is required")
		return
	}

	branch, err := parseBranch(query.Get("branch"))
	if err != nil {
		branch = sess.Branch
	}

	history, err := s.ledgers.ClientHistory(r.Context(), branch, label, phone)
	if err != nil {
		slog.ErrorContext(r.Context(), "Client lookup failed", "error", err, "label", label)
		writeError(w, http.StatusInternalServerError, "could not resolve the client history")
		return
	}

	writeJSON(w, http.StatusOK, historyToDTO(history))
}

func historyToDTO(h ledger.ClientHistory) clientHistoryDTO {
	out := clientHistoryDTO{
		Matches:       make([]clientMatchDTO, len(h.Matches)),
		TotalPaid:     core.FormatAmount(h.TotalPaid),
		LastRemaining: core.FormatAmount(h.LastRemaining),
	}
	for i, m := range h.Matches {
		out.Matches[i] = clientMatchDTO{
			Month: m.Month,
			Entry: revenueDTO{
				Date:        core.FormatDate(m.Entry.Date),
				Label:       m.Entry.Label,
				Price:       core.FormatAmount(m.Entry.Price),
				AmountTotal: core.FormatAmount(m.Entry.AmountTotal),
				Remaining:   core.FormatAmount(m.Entry.Remaining),
				Employee:    m.Entry.Employee,
			},
		}
	}
	return out
}
