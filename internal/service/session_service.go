package service

import (
	"errors"
	"time"

	"megafin/internal/core"
	"megafin/internal/session"
)

var ErrBadPassword = errors.New("wrong password")

// Secrets holds the configured passwords. Branch secrets are keyed by
// short code.
type Secrets struct {
	BranchMB string
	BranchBZ string
	Admin    string
}

func (s Secrets) branchPassword(shortCode string) string {
	switch shortCode {
	case "MB":
		return s.BranchMB
	case "BZ":
		return s.BranchBZ
	}
	return ""
}

// SessionService hands out branch and admin sessions against the
// configured secrets.
type SessionService struct {
	guard   session.Guard
	secrets Secrets
	now     func() time.Time
}

func NewSessionService(guard session.Guard, secrets Secrets) *SessionService {
	return &SessionService{
		guard:   guard,
		secrets: secrets,
		now:     time.Now,
	}
}

// UnlockBranch opens an employee session on a branch. The password is
// checked against the branch's configured secret.
func (s *SessionService) UnlockBranch(branch core.Branch, employee, password string) (session.Session, error) {
	if err := branch.Validate(); err != nil {
		return session.Session{}, err
	}
	if !session.VerifySecret(s.secrets.branchPassword(branch.ShortCode()), password) {
		return session.Session{}, ErrBadPassword
	}

	return session.Session{
		Role:             session.RoleEmployee,
		Branch:           branch,
		Employee:         employee,
		BranchUnlockedAt: s.now(),
	}, nil
}

// UnlockAdmin elevates an active branch session. The elevation expires on
// its own clock, independent of the branch session.
func (s *SessionService) UnlockAdmin(sess session.Session, password string) (session.Session, error) {
	if !s.guard.BranchActive(sess, s.now()) {
		return session.Session{}, ErrBranchLocked
	}
	if !session.VerifySecret(s.secrets.Admin, password) {
		return session.Session{}, ErrBadPassword
	}

	sess.Role = session.RoleAdmin
	sess.AdminUnlockedAt = s.now()
	return sess, nil
}

// Guard exposes the TTL rules for callers that check activity directly.
func (s *SessionService) Guard() session.Guard {
	return s.guard
}
