package service

import (
	"errors"
	"testing"
	"time"

	"megafin/internal/core"
	"megafin/internal/session"
)

func newSessionService() *SessionService {
	guard := session.Guard{AdminTTL: 30 * time.Minute, EmployeeTTL: 20 * time.Minute}
	return NewSessionService(guard, Secrets{
		BranchMB: "secret-mb",
		BranchBZ: "secret-bz",
		Admin:    "secret-admin",
	})
}

func TestUnlockBranch(t *testing.T) {
	svc := newSessionService()

	sess, err := svc.UnlockBranch(core.BranchMenzelBourguiba, "Sonia", "secret-mb")
	if err != nil {
		t.Fatalf("UnlockBranch: %v", err)
	}
	if sess.Role != session.RoleEmployee {
		t.Errorf("Role = %v, want employee", sess.Role)
	}
	if sess.Branch != core.BranchMenzelBourguiba {
		t.Errorf("Branch = %v", sess.Branch)
	}
	if sess.Employee != "Sonia" {
		t.Errorf("Employee = %v", sess.Employee)
	}
	if sess.BranchUnlockedAt.IsZero() {
		t.Error("BranchUnlockedAt should be set")
	}
}

func TestUnlockBranchWrongPassword(t *testing.T) {
	svc := newSessionService()

	tests := []struct {
		name     string
		branch   core.Branch
		password string
		wantErr  error
	}{
		{"wrong password", core.BranchMenzelBourguiba, "nope", ErrBadPassword},
		{"other branch's password", core.BranchMenzelBourguiba, "secret-bz", ErrBadPassword},
		{"empty password", core.BranchBizerte, "", ErrBadPassword},
		{"unknown branch", core.Branch("Tunis"), "secret-mb", core.ErrInvalidBranch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UnlockBranch(tt.branch, "Sonia", tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnlockAdmin(t *testing.T) {
	svc := newSessionService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	branch := session.Session{
		Role:             session.RoleEmployee,
		Branch:           core.BranchBizerte,
		Employee:         "Karim",
		BranchUnlockedAt: now.Add(-5 * time.Minute),
	}

	elevated, err := svc.UnlockAdmin(branch, "secret-admin")
	if err != nil {
		t.Fatalf("UnlockAdmin: %v", err)
	}
	if elevated.Role != session.RoleAdmin {
		t.Errorf("Role = %v, want admin", elevated.Role)
	}
	if !elevated.AdminUnlockedAt.Equal(now) {
		t.Errorf("AdminUnlockedAt = %v, want %v", elevated.AdminUnlockedAt, now)
	}
	if elevated.Branch != core.BranchBizerte || elevated.Employee != "Karim" {
		t.Errorf("branch session fields lost: %+v", elevated)
	}
}

func TestUnlockAdminRequiresActiveBranch(t *testing.T) {
	svc := newSessionService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	stale := session.Session{
		Role:             session.RoleEmployee,
		Branch:           core.BranchBizerte,
		BranchUnlockedAt: now.Add(-25 * time.Minute),
	}
	if _, err := svc.UnlockAdmin(stale, "secret-admin"); !errors.Is(err, ErrBranchLocked) {
		t.Errorf("error = %v, want ErrBranchLocked", err)
	}
}

func TestUnlockAdminWrongPassword(t *testing.T) {
	svc := newSessionService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	branch := session.Session{
		Role:             session.RoleEmployee,
		Branch:           core.BranchBizerte,
		BranchUnlockedAt: now,
	}
	if _, err := svc.UnlockAdmin(branch, "secret-mb"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("error = %v, want ErrBadPassword", err)
	}
}
