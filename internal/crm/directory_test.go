package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"megafin/internal/core"
	"megafin/internal/rowstore/memory"
)

func newDirectory(t *testing.T) (*Directory, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewDirectory(store), store
}

func TestEmployeesExcludesLedgers(t *testing.T) {
	d, store := newDirectory(t)
	ctx := context.Background()

	if err := store.Ensure(ctx, core.LedgerTitle(core.Revenue, "Mars", core.BranchMenzelBourguiba), core.RevenueColumns); err != nil {
		t.Fatalf("Ensure ledger: %v", err)
	}
	if err := d.AddEmployee(ctx, "Sonia"); err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}
	if err := d.AddEmployee(ctx, "Karim"); err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}

	employees, err := d.Employees(ctx)
	if err != nil {
		t.Fatalf("Employees: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %v", employees)
	}
	if employees[0] != "Sonia" || employees[1] != "Karim" {
		t.Errorf("unexpected employee list: %v", employees)
	}
}

func TestAddClientAndList(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()

	if err := d.AddEmployee(ctx, "Sonia"); err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}

	added, err := d.AddClient(ctx, Client{
		Name:        "Wael Trabelsi",
		Phone:       "21612345",
		ContactType: "WhatsApp",
		Formation:   "Java",
		Employee:    "Sonia",
	})
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if added.AddedAt.IsZero() {
		t.Error("AddedAt should be stamped")
	}

	clients, err := d.ListClients(ctx, "Sonia")
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}
	c := clients[0]
	if c.Name != "Wael Trabelsi" || c.Phone != "21612345" || c.Formation != "Java" {
		t.Errorf("unexpected client: %+v", c)
	}
	if c.Employee != "Sonia" {
		t.Errorf("Employee = %q, want Sonia", c.Employee)
	}
}

func TestAddClientValidation(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		client Client
	}{
		{"missing name", Client{Phone: "216", Formation: "Java", Employee: "Sonia"}},
		{"missing phone", Client{Name: "X", Formation: "Java", Employee: "Sonia"}},
		{"missing formation", Client{Name: "X", Phone: "216", Employee: "Sonia"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.AddClient(ctx, tt.client); !errors.Is(err, ErrMissingFields) {
				t.Errorf("error = %v, want ErrMissingFields", err)
			}
		})
	}
}

func TestAddClientRejectsDuplicatePhone(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()

	first := Client{Name: "Wael", Phone: "21612345", Formation: "Java", Employee: "Sonia"}
	if _, err := d.AddClient(ctx, first); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	// Same phone under a different employee is still a duplicate.
	dup := Client{Name: "Autre", Phone: "21612345", Formation: "PHP", Employee: "Karim"}
	if _, err := d.AddClient(ctx, dup); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("error = %v, want ErrDuplicatePhone", err)
	}
}

func TestListClientsUnknownEmployee(t *testing.T) {
	d, _ := newDirectory(t)

	_, err := d.ListClients(context.Background(), "Personne")
	if !errors.Is(err, ErrUnknownEmploye) {
		t.Errorf("error = %v, want ErrUnknownEmploye", err)
	}
}

func TestFollowUpDue(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if _, err := d.AddClient(ctx, Client{
		Name: "Wael", Phone: "111", Formation: "Java", Employee: "Sonia",
		FollowUpAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if _, err := d.AddClient(ctx, Client{
		Name: "Rim", Phone: "222", Formation: "PHP", Employee: "Sonia",
		FollowUpAt: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	clients, err := d.ListClients(ctx, "Sonia")
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if !clients[0].FollowUpDue {
		t.Error("expected follow-up due for today's date")
	}
	if clients[1].FollowUpDue {
		t.Error("follow-up in the future should not be due")
	}
}

func TestFollowUpDueLocalClock(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	// Stored dates parse in UTC; the clock runs in the branches' zone.
	d.now = func() time.Time {
		return time.Date(2025, 3, 15, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	}

	if _, err := d.AddClient(ctx, Client{
		Name: "Wael", Phone: "333", Formation: "Java", Employee: "Sonia",
		FollowUpAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	clients, err := d.ListClients(ctx, "Sonia")
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if !clients[0].FollowUpDue {
		t.Error("expected follow-up due on the same calendar day")
	}
}

func TestPaymentLabel(t *testing.T) {
	c := Client{Name: " Wael Trabelsi ", Formation: " Java "}
	if got := c.PaymentLabel(); got != "Paiement Java - Wael Trabelsi" {
		t.Errorf("PaymentLabel = %q", got)
	}
}
