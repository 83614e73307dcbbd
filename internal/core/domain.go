package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Revenue EntryKind = "Revenue"
	Expense EntryKind = "Dépense"
)

const (
	BranchMenzelBourguiba Branch = "Menzel Bourguiba"
	BranchBizerte         Branch = "Bizerte"
)

const (
	AccountAdmin       Account = "Caisse_Admin"
	AccountStructure   Account = "Caisse_Structure"
	AccountInscription Account = "Caisse_Inscription"
)

type (
	EntryKind string

	Branch string

	// Account is one of the three sub-accounts a branch keeps independent
	// running balances for.
	Account string

	// RevenueEntry is one payment row of a branch-month revenue ledger.
	// AmountTotal is always AmountAdmin+AmountStructure; Remaining is the
	// unpaid part of Price frozen at the moment the row was written.
	RevenueEntry struct {
		Date            time.Time
		Label           string
		Price           float64
		AmountAdmin     float64
		AmountStructure float64
		AmountPreInscr  float64
		AmountTotal     float64
		DueDate         time.Time
		Remaining       float64
		Mode            string
		Employee        string
		Category        string
		Note            string
	}

	// ExpenseEntry is one spending row of a branch-month expense ledger.
	ExpenseEntry struct {
		Date     time.Time
		Label    string
		Amount   float64
		Source   Account
		Mode     string
		Employee string
		Category string
		Note     string
	}
)

// MonthNames is the fixed worksheet month list, in scan order.
var MonthNames = []string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Aout", "Septembre", "Octobre", "Novembre", "Décembre",
}

// RevenueColumns is the wire header of a revenue ledger.
var RevenueColumns = []string{
	"Date", "Libellé", "Prix",
	"Montant_Admin", "Montant_Structure", "Montant_PreInscription", "Montant_Total",
	"Echeance", "Reste",
	"Mode", "Employé", "Catégorie", "Note",
}

// ExpenseColumns is the wire header of an expense ledger.
var ExpenseColumns = []string{
	"Date", "Libellé", "Montant", "Caisse_Source", "Mode", "Employé", "Catégorie", "Note",
}

// PaymentModes lists the accepted payment modes.
var PaymentModes = []string{"Espèces", "Virement", "Carte", "Chèque", "Autre"}

var (
	ErrEmptyLabel     = errors.New("label is required")
	ErrInvalidPrice   = errors.New("price must be greater than zero")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrInvalidAccount = errors.New("unknown source account")
	ErrInvalidBranch  = errors.New("unknown branch")
	ErrInvalidMonth   = errors.New("unknown month")
	ErrInvalidKind    = errors.New("unknown entry kind")
)

// ShortCode returns the branch code used in worksheet titles.
func (b Branch) ShortCode() string {
	if strings.Contains(string(b), "Menzel") {
		return "MB"
	}
	return "BZ"
}

// Validate checks the branch is one of the two known locations.
func (b Branch) Validate() error {
	switch b {
	case BranchMenzelBourguiba, BranchBizerte:
		return nil
	}
	return ErrInvalidBranch
}

// Validate checks the account is one of the three sub-accounts.
func (a Account) Validate() error {
	switch a {
	case AccountAdmin, AccountStructure, AccountInscription:
		return nil
	}
	return ErrInvalidAccount
}

// Validate checks the entry kind.
func (k EntryKind) Validate() error {
	switch k {
	case Revenue, Expense:
		return nil
	}
	return ErrInvalidKind
}

// Columns returns the wire header for this entry kind.
func (k EntryKind) Columns() []string {
	if k == Revenue {
		return RevenueColumns
	}
	return ExpenseColumns
}

// LedgerTitle derives the worksheet title for one (kind, month, branch)
// ledger. It is a pure function of its inputs.
func LedgerTitle(kind EntryKind, month string, branch Branch) string {
	return fmt.Sprintf("%s %s (%s)", string(kind), month, branch.ShortCode())
}

// MonthIndex returns the 1-based calendar month for a worksheet month name,
// or an error for names outside the fixed list.
func MonthIndex(month string) (int, error) {
	for i, m := range MonthNames {
		if m == month {
			return i + 1, nil
		}
	}
	return 0, ErrInvalidMonth
}

// Validate enforces the submission rules for a new revenue entry: a label,
// a positive price, and at least one positive amount (admin+structure total
// or pre-inscription).
func (e RevenueEntry) Validate() error {
	if strings.TrimSpace(e.Label) == "" {
		return ErrEmptyLabel
	}
	if e.Price <= 0 {
		return ErrInvalidPrice
	}
	if e.AmountTotal <= 0 && e.AmountPreInscr <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate enforces the submission rules for a new expense entry.
func (e ExpenseEntry) Validate() error {
	if strings.TrimSpace(e.Label) == "" {
		return ErrEmptyLabel
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return e.Source.Validate()
}
