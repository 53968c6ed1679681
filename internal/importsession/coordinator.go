package importsession

import (
	"context"
	"io"
	"sync"

	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/reconcile"
	"github.com/salmenktata/quelyosSuite-sub025/internal/statement"
)

// CommitListener is notified after a successful commit, outside the commit
// transaction. Listeners run fire-and-forget work such as anomaly scoring
// and forecast cache invalidation.
type CommitListener func(accountID string, txs []models.NormalizedTransaction)

// Coordinator drives sessions through the wizard: it invokes the format
// adapter, the reconciliation engine and the atomic ledger commit, and it
// owns the per-account commit locks.
type Coordinator struct {
	store     *Store
	ledger    ledger.Ledger
	engine    *reconcile.Engine
	logger    logging.Logger
	listeners []CommitListener

	// accountLocks serializes commits per account so two sessions cannot
	// double-apply overlapping statement periods.
	accountLocks sync.Map // accountID -> *sync.Mutex
}

// NewCoordinator wires the import pipeline together.
func NewCoordinator(store *Store, l ledger.Ledger, engine *reconcile.Engine, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Coordinator{store: store, ledger: l, engine: engine, logger: logger}
}

// OnCommit registers a listener invoked after every successful commit.
func (c *Coordinator) OnCommit(fn CommitListener) {
	c.listeners = append(c.listeners, fn)
}

// Store exposes the session store.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Analyze creates a session, parses the uploaded statement and moves the
// session to the mapping step. On a parse failure the session stays at
// upload with the error recorded and is still returned, so the caller can
// retry against the same session.
func (c *Coordinator) Analyze(ctx context.Context, accountID, fileName, declaredFormat string, r io.Reader) (*Session, error) {
	format, err := statement.ParseFormat(declaredFormat)
	if err != nil {
		return nil, &financeerrors.ParseError{Format: declaredFormat, Reason: err.Error()}
	}
	if _, err := c.ledger.Account(ctx, accountID); err != nil {
		return nil, err
	}

	session := c.store.Create(format)
	session.FileSelected(fileName)
	if err := session.SelectAccount(accountID); err != nil {
		return session, err
	}

	session.AnalysisStart()
	adapter, err := statement.GetAdapter(format, c.logger)
	if err != nil {
		session.AnalysisError(err)
		return session, err
	}

	result, err := adapter.Parse(ctx, r)
	if err != nil {
		session.AnalysisError(err)
		c.logger.WithError(err).Warn("Statement analysis failed",
			logging.F(logging.FieldSessionID, session.ID),
			logging.F(logging.FieldFormat, string(format)),
			logging.F(logging.FieldState, string(session.State())))
		return session, err
	}

	session.AnalysisSuccess(result)
	c.logger.Info("Statement analyzed",
		logging.F(logging.FieldSessionID, session.ID),
		logging.F(logging.FieldFormat, string(format)),
		logging.F(logging.FieldCount, len(result.Lines)))
	return session, nil
}

// UpdateMapping applies caller mapping overrides to a session.
func (c *Coordinator) UpdateMapping(sessionID string, mapping models.FieldMapping) error {
	session := c.store.Get(sessionID)
	if session == nil {
		return &financeerrors.ReconciliationConflict{SessionID: sessionID, Reason: "unknown session"}
	}
	for field, col := range mapping {
		if err := session.UpdateMapping(field, col); err != nil {
			return err
		}
	}
	return nil
}

// Preview runs the reconciliation engine under the session's current mapping
// and advances the session to the validation step.
func (c *Coordinator) Preview(ctx context.Context, sessionID string) (*models.ReconcileResult, error) {
	session := c.store.Get(sessionID)
	if session == nil {
		return nil, &financeerrors.ReconciliationConflict{SessionID: sessionID, Reason: "unknown session"}
	}
	parseResult := session.ParseResult()
	if parseResult == nil {
		return nil, &financeerrors.MappingError{Reason: "no statement analyzed yet"}
	}

	snap := session.Snapshot()
	account, err := c.ledger.Account(ctx, snap.AccountID)
	if err != nil {
		return nil, err
	}

	result, err := c.engine.Reconcile(ctx, account, parseResult, session.Mapping())
	if err != nil {
		return nil, err
	}
	session.PreviewLoaded(result)
	return result, nil
}

// Commit atomically writes the session's non-duplicate transactions to the
// ledger. The session's commit slot and the per-account lock are both
// claimed up front; a concurrent attempt on either axis fails fast with a
// conflict error. Reconciliation is recomputed under the account lock so the
// dedup decision reflects commits that landed after the preview.
func (c *Coordinator) Commit(ctx context.Context, sessionID string) (*models.ImportResult, error) {
	session := c.store.Get(sessionID)
	if session == nil {
		return nil, &financeerrors.ReconciliationConflict{SessionID: sessionID, Reason: "unknown session"}
	}
	if err := session.ImportStart(); err != nil {
		return nil, err
	}

	snap := session.Snapshot()
	lock := c.lockFor(snap.AccountID)
	if !lock.TryLock() {
		err := &financeerrors.ReconciliationConflict{
			SessionID: sessionID,
			Reason:    "another commit for this account is in progress",
		}
		session.ImportError(err)
		return nil, err
	}
	defer lock.Unlock()

	account, err := c.ledger.Account(ctx, snap.AccountID)
	if err != nil {
		session.ImportError(err)
		return nil, err
	}

	result, err := c.engine.Reconcile(ctx, account, session.ParseResult(), session.Mapping())
	if err != nil {
		session.ImportError(err)
		return nil, err
	}

	txs := reconcile.CommittableTransactions(result)
	if len(txs) > 0 {
		if err := c.ledger.AppendTransactions(ctx, account.ID, txs); err != nil {
			failure := &financeerrors.CommitFailure{AccountID: account.ID, Err: err}
			session.ImportError(failure)
			c.logger.WithError(err).Error("Ledger commit failed, batch rolled back",
				logging.F(logging.FieldSessionID, sessionID),
				logging.F(logging.FieldAccountID, account.ID))
			return nil, failure
		}
	}

	importResult := &models.ImportResult{
		Imported:   len(txs),
		Duplicates: result.Duplicates,
		Errors:     result.Errors,
	}
	session.ImportSuccess(importResult)

	c.logger.Info("Statement committed",
		logging.F(logging.FieldSessionID, sessionID),
		logging.F(logging.FieldAccountID, account.ID),
		logging.F("imported", importResult.Imported),
		logging.F("duplicates", importResult.Duplicates))

	for _, fn := range c.listeners {
		fn(account.ID, txs)
	}
	return importResult, nil
}

// lockFor returns the commit mutex for an account, creating it on first use.
func (c *Coordinator) lockFor(accountID string) *sync.Mutex {
	actual, _ := c.accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
