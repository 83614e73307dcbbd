package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"megafin/internal/service"
)

type unlockBranchRequest struct {
	Branch   string `json:"branch"`
	Employee string `json:"employee"`
	Password string `json:"password"`
}

type unlockAdminRequest struct {
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Branch   string `json:"branch"`
	Employee string `json:"employee,omitempty"`
}

// handleUnlockBranch opens an employee session and returns its bearer token.
func (s *Server) handleUnlockBranch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req unlockBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	branch, err := parseBranch(req.Branch)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown branch")
		return
	}

	sess, err := s.sessions.UnlockBranch(branch, sanitizeInput(req.Employee), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadPassword) {
			slog.WarnContext(r.Context(), "Branch unlock rejected",
				"branch", branch.ShortCode(),
				"client_ip", extractClientIP(r))
			writeError(w, http.StatusUnauthorized, "wrong password")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token := generateSessionToken()
	s.tokens.Set(token, sess)

	slog.InfoContext(r.Context(), "Branch unlocked",
		"branch", branch.ShortCode(),
		"employee", sess.Employee)

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		Role:     string(sess.Role),
		Branch:   string(sess.Branch),
		Employee: sess.Employee,
	})
}

// handleUnlockAdmin elevates the caller's session for the admin TTL.
func (s *Server) handleUnlockAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	sess, ok := s.tokens.Get(token)
	if !ok || !s.sessions.Guard().BranchActive(sess, time.Now()) {
		writeError(w, http.StatusUnauthorized, "session expired, unlock the branch again")
		return
	}

	var req unlockAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	elevated, err := s.sessions.UnlockAdmin(sess, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadPassword):
			slog.WarnContext(r.Context(), "Admin unlock rejected",
				"branch", sess.Branch.ShortCode(),
				"client_ip", extractClientIP(r))
			writeError(w, http.StatusUnauthorized, "wrong password")
		case errors.Is(err, service.ErrBranchLocked):
			writeError(w, http.StatusUnauthorized, "session expired, unlock the branch again")
		default:
			writeError(w, http.StatusInternalServerError, "unlock failed")
		}
		return
	}

	s.tokens.Set(token, elevated)

	slog.InfoContext(r.Context(), "Admin unlocked",
		"branch", elevated.Branch,
		"employee", elevated.Employee)

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		Role:     string(elevated.Role),
		Branch:   string(elevated.Branch),
		Employee: elevated.Employee,
	})
}
