package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// MemoryLedger is a thread-safe in-memory Ledger. It backs single-instance
// deployments and tests; a database-backed implementation satisfies the same
// interface.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[string]models.BankAccount
	txs      map[string][]models.NormalizedTransaction
	hashes   map[string]map[string]struct{}
	invoices map[string][]models.Invoice
	bills    map[string][]models.Bill

	// failNext, when set, makes the next AppendTransactions fail after
	// validation. Used to exercise rollback behavior in tests.
	failNext error
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: map[string]models.BankAccount{},
		txs:      map[string][]models.NormalizedTransaction{},
		hashes:   map[string]map[string]struct{}{},
		invoices: map[string][]models.Invoice{},
		bills:    map[string][]models.Bill{},
	}
}

// AddAccount registers an account.
func (l *MemoryLedger) AddAccount(account models.BankAccount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[account.ID] = account
}

// AddInvoice registers an open customer invoice.
func (l *MemoryLedger) AddInvoice(inv models.Invoice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invoices[inv.AccountID] = append(l.invoices[inv.AccountID], inv)
}

// AddBill registers an open vendor bill.
func (l *MemoryLedger) AddBill(bill models.Bill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bills[bill.AccountID] = append(l.bills[bill.AccountID], bill)
}

// FailNextAppend arranges for the next AppendTransactions call to fail with
// err, leaving the ledger untouched.
func (l *MemoryLedger) FailNextAppend(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

// Account returns the bank account with the given ID.
func (l *MemoryLedger) Account(_ context.Context, accountID string) (models.BankAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	account, ok := l.accounts[accountID]
	if !ok {
		return models.BankAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	return account, nil
}

// Balance returns opening balance plus all committed transactions.
func (l *MemoryLedger) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	account, ok := l.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	balance := account.OpeningBalance
	for _, tx := range l.txs[accountID] {
		balance = balance.Add(tx.Amount)
	}
	return balance, nil
}

// AppendTransactions atomically appends a batch. Validation runs over the
// whole batch before anything is written, so a failure leaves no partial
// state behind.
func (l *MemoryLedger) AppendTransactions(_ context.Context, accountID string, txs []models.NormalizedTransaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[accountID]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}

	existing := l.hashes[accountID]
	if existing == nil {
		existing = map[string]struct{}{}
		l.hashes[accountID] = existing
	}

	seen := map[string]struct{}{}
	for _, tx := range txs {
		if tx.DedupHash == "" {
			return fmt.Errorf("transaction %s has no dedup hash", tx.ID)
		}
		if _, dup := existing[tx.DedupHash]; dup {
			return fmt.Errorf("duplicate transaction hash %s", tx.DedupHash)
		}
		if _, dup := seen[tx.DedupHash]; dup {
			return fmt.Errorf("duplicate transaction hash %s within batch", tx.DedupHash)
		}
		seen[tx.DedupHash] = struct{}{}
	}

	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}

	l.txs[accountID] = append(l.txs[accountID], txs...)
	sort.SliceStable(l.txs[accountID], func(i, j int) bool {
		return l.txs[accountID][i].Date.Before(l.txs[accountID][j].Date)
	})
	for hash := range seen {
		existing[hash] = struct{}{}
	}
	return nil
}

// QueryTransactions returns committed transactions within [from, to].
func (l *MemoryLedger) QueryTransactions(_ context.Context, accountID string, from, to time.Time) ([]models.NormalizedTransaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.NormalizedTransaction
	for _, tx := range l.txs[accountID] {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// QueryOpenInvoices returns open customer invoices for the account.
func (l *MemoryLedger) QueryOpenInvoices(_ context.Context, accountID string) ([]models.Invoice, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Invoice
	for _, inv := range l.invoices[accountID] {
		if inv.Open {
			out = append(out, inv)
		}
	}
	return out, nil
}

// QueryOpenBills returns open vendor bills for the account.
func (l *MemoryLedger) QueryOpenBills(_ context.Context, accountID string) ([]models.Bill, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Bill
	for _, bill := range l.bills[accountID] {
		if bill.Open {
			out = append(out, bill)
		}
	}
	return out, nil
}
