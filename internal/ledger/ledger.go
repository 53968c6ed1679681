// Package ledger defines the narrow contract to the external ledger store and
// provides an in-memory implementation used by the server and the tests.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// ErrAccountNotFound is returned when an account ID is unknown to the store.
var ErrAccountNotFound = errors.New("account not found")

// Ledger is the collaborator contract expected from the ledger store.
// AppendTransactions must be atomic: either every transaction of the batch is
// applied or none is.
type Ledger interface {
	// Account returns the bank account with the given ID.
	Account(ctx context.Context, accountID string) (models.BankAccount, error)

	// Balance returns the account's current balance: opening balance plus
	// all committed transactions.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// AppendTransactions atomically appends a batch of committed
	// transactions. It fails the whole batch when any dedup hash already
	// exists for the account.
	AppendTransactions(ctx context.Context, accountID string, txs []models.NormalizedTransaction) error

	// QueryTransactions returns committed transactions with a booking date
	// in [from, to], ordered by date.
	QueryTransactions(ctx context.Context, accountID string, from, to time.Time) ([]models.NormalizedTransaction, error)

	// QueryOpenInvoices returns open customer invoices for the account.
	QueryOpenInvoices(ctx context.Context, accountID string) ([]models.Invoice, error)

	// QueryOpenBills returns open vendor bills for the account.
	QueryOpenBills(ctx context.Context, accountID string) ([]models.Bill, error)
}
