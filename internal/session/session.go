// Package session models the identity context of a request: a role, a
// branch, an optional employee name, and unlock timestamps. Expiry is a
// pure comparison against the clock; nothing here is ambient state.
package session

import (
	"crypto/subtle"
	"time"

	"megafin/internal/core"
)

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Default unlock lifetimes.
const (
	DefaultAdminTTL    = 30 * time.Minute
	DefaultEmployeeTTL = 20 * time.Minute
)

type Role string

// Session is passed explicitly into every core operation that needs
// identity. The zero value is a locked, anonymous session.
type Session struct {
	Role     Role
	Branch   core.Branch
	Employee string

	BranchUnlockedAt time.Time
	AdminUnlockedAt  time.Time
}

// Guard holds the unlock lifetimes. A zero field falls back to the
// default for that role.
type Guard struct {
	AdminTTL    time.Duration
	EmployeeTTL time.Duration
}

func (g Guard) adminTTL() time.Duration {
	if g.AdminTTL > 0 {
		return g.AdminTTL
	}
	return DefaultAdminTTL
}

func (g Guard) employeeTTL() time.Duration {
	if g.EmployeeTTL > 0 {
		return g.EmployeeTTL
	}
	return DefaultEmployeeTTL
}

// BranchActive reports whether the branch unlock is still valid at now.
func (g Guard) BranchActive(s Session, now time.Time) bool {
	if s.BranchUnlockedAt.IsZero() {
		return false
	}
	return now.Sub(s.BranchUnlockedAt) <= g.employeeTTL()
}

// AdminActive reports whether the admin unlock is still valid at now.
// Admin views (monthly and daily summaries) require this.
func (g Guard) AdminActive(s Session, now time.Time) bool {
	if s.Role != RoleAdmin || s.AdminUnlockedAt.IsZero() {
		return false
	}
	return now.Sub(s.AdminUnlockedAt) <= g.adminTTL()
}

// VerifySecret compares an attempt against an opaque stored secret.
// Secrets are deployment-provided shared passwords, not hashes.
func VerifySecret(stored, attempt string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(attempt)) == 1
}
