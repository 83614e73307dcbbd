package session

import (
	"testing"
	"time"

	"megafin/internal/core"
)

func TestAdminActive(t *testing.T) {
	g := Guard{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{"unlocked 5 minutes ago", Session{Role: RoleAdmin, AdminUnlockedAt: now.Add(-5 * time.Minute)}, true},
		{"exactly at the TTL", Session{Role: RoleAdmin, AdminUnlockedAt: now.Add(-DefaultAdminTTL)}, true},
		{"expired", Session{Role: RoleAdmin, AdminUnlockedAt: now.Add(-31 * time.Minute)}, false},
		{"never unlocked", Session{Role: RoleAdmin}, false},
		{"employee role cannot be admin-active", Session{Role: RoleEmployee, AdminUnlockedAt: now}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.AdminActive(tc.s, now); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBranchActive(t *testing.T) {
	g := Guard{EmployeeTTL: 15 * time.Minute}
	now := time.Now()
	s := Session{Role: RoleEmployee, Branch: core.BranchBizerte, BranchUnlockedAt: now.Add(-10 * time.Minute)}
	if !g.BranchActive(s, now) {
		t.Fatalf("10 minutes into a 15 minute unlock should be active")
	}
	if g.BranchActive(s, now.Add(10*time.Minute)) {
		t.Fatalf("20 minutes into a 15 minute unlock should be expired")
	}
	if g.BranchActive(Session{}, now) {
		t.Fatalf("zero session must be locked")
	}
}

func TestVerifySecret(t *testing.T) {
	if !VerifySecret("MB_2025!", "MB_2025!") {
		t.Fatalf("equal secrets must verify")
	}
	if VerifySecret("MB_2025!", "wrong") {
		t.Fatalf("wrong secret must not verify")
	}
	if VerifySecret("", "") {
		t.Fatalf("empty stored secret must never verify")
	}
}
