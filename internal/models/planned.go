package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an open customer invoice expected to produce a credit.
type Invoice struct {
	ID           string          `json:"id" yaml:"id"`
	AccountID    string          `json:"accountId" yaml:"account_id"`
	Counterparty string          `json:"counterparty" yaml:"counterparty"`
	AmountDue    decimal.Decimal `json:"amountDue" yaml:"amount_due"`
	Currency     string          `json:"currency" yaml:"currency"`
	DueDate      time.Time       `json:"dueDate" yaml:"due_date"`
	Reference    string          `json:"reference" yaml:"reference"`
	Open         bool            `json:"open" yaml:"open"`
}

// Bill is an open vendor bill expected to produce a debit.
type Bill struct {
	ID           string          `json:"id" yaml:"id"`
	AccountID    string          `json:"accountId" yaml:"account_id"`
	Counterparty string          `json:"counterparty" yaml:"counterparty"`
	AmountDue    decimal.Decimal `json:"amountDue" yaml:"amount_due"`
	Currency     string          `json:"currency" yaml:"currency"`
	DueDate      time.Time       `json:"dueDate" yaml:"due_date"`
	Reference    string          `json:"reference" yaml:"reference"`
	Open         bool            `json:"open" yaml:"open"`
}

// PlannedItem is a known future scheduled cash movement derived from an open
// invoice (credit) or bill (debit). Planned items are deterministic and never
// receive confidence-band widening.
type PlannedItem struct {
	Date   time.Time
	Amount decimal.Decimal
	Source string
}
