// Package store loads the ledger seed data (accounts, open invoices, open
// bills) from a YAML file. In a full deployment this data comes from the
// external ledger; the YAML file stands in for it in single-instance setups
// and fixtures.
package store

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// seedFile mirrors the YAML layout. Amounts and dates are strings so the
// file stays hand-editable; they are parsed on load.
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
	Invoices []seedItem    `yaml:"invoices"`
	Bills    []seedItem    `yaml:"bills"`
}

type seedAccount struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Currency       string `yaml:"currency"`
	OpeningBalance string `yaml:"opening_balance"`
	Owner          string `yaml:"owner"`
}

type seedItem struct {
	ID           string `yaml:"id"`
	AccountID    string `yaml:"account_id"`
	Counterparty string `yaml:"counterparty"`
	AmountDue    string `yaml:"amount_due"`
	Currency     string `yaml:"currency"`
	DueDate      string `yaml:"due_date"`
	Reference    string `yaml:"reference"`
	Open         *bool  `yaml:"open"`
}

// LoadSeed reads the YAML seed file and registers its contents on the ledger.
// Items without an explicit open flag are treated as open.
func LoadSeed(path string, l *ledger.MemoryLedger, log logging.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	for _, a := range seed.Accounts {
		balance, err := parseAmount(a.OpeningBalance)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.ID, err)
		}
		l.AddAccount(models.BankAccount{
			ID:             a.ID,
			Name:           a.Name,
			Currency:       a.Currency,
			OpeningBalance: balance,
			Owner:          a.Owner,
		})
	}

	for _, item := range seed.Invoices {
		amount, due, open, err := parseItem(item)
		if err != nil {
			return fmt.Errorf("invoice %s: %w", item.ID, err)
		}
		l.AddInvoice(models.Invoice{
			ID:           item.ID,
			AccountID:    item.AccountID,
			Counterparty: item.Counterparty,
			AmountDue:    amount,
			Currency:     item.Currency,
			DueDate:      due,
			Reference:    item.Reference,
			Open:         open,
		})
	}

	for _, item := range seed.Bills {
		amount, due, open, err := parseItem(item)
		if err != nil {
			return fmt.Errorf("bill %s: %w", item.ID, err)
		}
		l.AddBill(models.Bill{
			ID:           item.ID,
			AccountID:    item.AccountID,
			Counterparty: item.Counterparty,
			AmountDue:    amount,
			Currency:     item.Currency,
			DueDate:      due,
			Reference:    item.Reference,
			Open:         open,
		})
	}

	log.Info("Loaded ledger seed",
		logging.F(logging.FieldFile, path),
		logging.F("accounts", len(seed.Accounts)),
		logging.F("invoices", len(seed.Invoices)),
		logging.F("bills", len(seed.Bills)))
	return nil
}

func parseItem(item seedItem) (decimal.Decimal, time.Time, bool, error) {
	amount, err := parseAmount(item.AmountDue)
	if err != nil {
		return decimal.Zero, time.Time{}, false, err
	}
	due, err := time.Parse("2006-01-02", item.DueDate)
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("invalid due_date '%s': %w", item.DueDate, err)
	}
	open := true
	if item.Open != nil {
		open = *item.Open
	}
	return amount, due, open, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", s, err)
	}
	return amount, nil
}
