// Package crm keeps the client directory: one worksheet per employee,
// sharing the spreadsheet with the ledgers. Employee sheets are every
// worksheet that is not a ledger.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"megafin/internal/core"
	"megafin/internal/rowstore"
)

// Columns is the wire header of an employee's client sheet.
var Columns = []string{
	"Nom & Prénom", "Téléphone", "Type de contact", "Formation",
	"Remarque", "Date ajout", "Date de suivi", "Alerte", "Inscription", "Employe", "Tag",
}

// ContactTypes lists the accepted contact channels.
var ContactTypes = []string{"Visiteur", "Appel téléphonique", "WhatsApp", "Social media"}

var (
	ErrMissingFields  = errors.New("name, phone and formation are required")
	ErrDuplicatePhone = errors.New("a client with this phone already exists")
	ErrUnknownEmploye = errors.New("no sheet for this employee")
)

// Client is one row of an employee's sheet. FollowUpDue is derived at
// read time, never stored.
type Client struct {
	Name        string
	Phone       string
	ContactType string
	Formation   string
	Remark      string
	AddedAt     time.Time
	FollowUpAt  time.Time
	FollowUpDue bool
	Inscription string
	Employee    string
	Tag         string
}

// PaymentLabel returns the canonical revenue label for this client's
// formation payments.
func (c Client) PaymentLabel() string {
	return fmt.Sprintf("Paiement %s - %s", strings.TrimSpace(c.Formation), strings.TrimSpace(c.Name))
}

type Directory struct {
	store rowstore.Store
	now   func() time.Time
}

func NewDirectory(store rowstore.Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// isLedgerTitle reports whether a worksheet title belongs to a ledger
// rather than an employee.
func isLedgerTitle(title string) bool {
	for _, kind := range []core.EntryKind{core.Revenue, core.Expense} {
		for _, month := range core.MonthNames {
			for _, branch := range []core.Branch{core.BranchMenzelBourguiba, core.BranchBizerte} {
				if title == core.LedgerTitle(kind, month, branch) {
					return true
				}
			}
		}
	}
	return false
}

// Employees returns the employee sheet names in creation order.
func (d *Directory) Employees(ctx context.Context) ([]string, error) {
	titles, err := d.store.Titles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}

	var employees []string
	for _, t := range titles {
		if !isLedgerTitle(t) {
			employees = append(employees, t)
		}
	}
	return employees, nil
}

// AddEmployee creates the employee's client sheet. Idempotent.
func (d *Directory) AddEmployee(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrMissingFields
	}
	if err := d.store.Ensure(ctx, name, Columns); err != nil {
		return fmt.Errorf("ensure employee sheet %q: %w", name, err)
	}

	slog.InfoContext(ctx, "Employee sheet ready", "employee", name)
	return nil
}

// ListClients returns the clients of one employee, or of every employee
// when the name is empty. Follow-up alerts are derived against today.
func (d *Directory) ListClients(ctx context.Context, employee string) ([]Client, error) {
	var sheets []string
	if employee != "" {
		employees, err := d.Employees(ctx)
		if err != nil {
			return nil, err
		}
		found := false
		for _, e := range employees {
			if e == employee {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrUnknownEmploye
		}
		sheets = []string{employee}
	} else {
		employees, err := d.Employees(ctx)
		if err != nil {
			return nil, err
		}
		sheets = employees
	}

	today := core.Day(d.now())
	var clients []Client
	for _, sheet := range sheets {
		rows, err := d.store.ReadAll(ctx, sheet)
		if err != nil {
			return nil, fmt.Errorf("read employee sheet %q: %w", sheet, err)
		}
		for _, c := range parseRows(sheet, rows) {
			c.FollowUpDue = !c.FollowUpAt.IsZero() && core.Day(c.FollowUpAt).Equal(today)
			clients = append(clients, c)
		}
	}
	return clients, nil
}

// AddClient appends a client to their employee's sheet. The phone must not
// appear anywhere in the directory; the added-at date is stamped with
// today.
func (d *Directory) AddClient(ctx context.Context, c Client) (Client, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" || strings.TrimSpace(c.Formation) == "" {
		return Client{}, ErrMissingFields
	}

	existing, err := d.ListClients(ctx, "")
	if err != nil {
		return Client{}, err
	}
	phone := strings.TrimSpace(c.Phone)
	for _, other := range existing {
		if strings.Contains(other.Phone, phone) {
			return Client{}, ErrDuplicatePhone
		}
	}

	if err := d.AddEmployee(ctx, c.Employee); err != nil {
		return Client{}, err
	}

	c.AddedAt = core.Day(d.now())
	if err := d.store.Append(ctx, c.Employee, wireRow(c)); err != nil {
		return Client{}, fmt.Errorf("append client: %w", err)
	}

	slog.InfoContext(ctx, "Client added",
		"employee", c.Employee,
		"formation", c.Formation)

	return c, nil
}

func parseRows(employee string, rows [][]string) []Client {
	if len(rows) < 2 {
		return nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}
	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	clients := make([]Client, 0, len(rows)-1)
	for _, row := range rows[1:] {
		clients = append(clients, Client{
			Name:        cell(row, "Nom & Prénom"),
			Phone:       cell(row, "Téléphone"),
			ContactType: cell(row, "Type de contact"),
			Formation:   cell(row, "Formation"),
			Remark:      cell(row, "Remarque"),
			AddedAt:     core.CoerceDate(cell(row, "Date ajout")),
			FollowUpAt:  core.CoerceDate(cell(row, "Date de suivi")),
			Inscription: cell(row, "Inscription"),
			Employee:    employee,
			Tag:         cell(row, "Tag"),
		})
	}
	return clients
}

func wireRow(c Client) []string {
	return []string{
		c.Name, c.Phone, c.ContactType, c.Formation, c.Remark,
		core.FormatDate(c.AddedAt), core.FormatDate(c.FollowUpAt),
		"", c.Inscription, c.Employee, c.Tag,
	}
}
