package anomaly

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// maxRetries bounds how often a failed scoring job is re-attempted before it
// is dropped with an error log. Scoring is fire-and-forget relative to the
// commit path, so dropping is acceptable.
const maxRetries = 3

// retryDelay spaces out re-attempts of a failed job.
const retryDelay = time.Second

// scoreJob is one batch of freshly committed transactions awaiting scoring.
type scoreJob struct {
	ID        string
	AccountID string
	Txs       []models.NormalizedTransaction
	Attempts  int
}

// Worker consumes commit batches from an in-memory queue and stores the
// resulting anomaly scores. It is safe for concurrent use.
type Worker struct {
	detector *Detector
	logger   logging.Logger
	jobs     chan scoreJob

	mu     sync.RWMutex
	scores map[string][]models.AnomalyScore // accountID -> scores
	closed bool
}

// NewWorker creates a worker with the given queue depth.
func NewWorker(detector *Detector, bufferSize int, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Worker{
		detector: detector,
		logger:   logger,
		jobs:     make(chan scoreJob, bufferSize),
		scores:   map[string][]models.AnomalyScore{},
	}
}

// Publish enqueues a commit batch for scoring. A full queue drops the batch
// with a warning rather than blocking the commit path.
func (w *Worker) Publish(accountID string, txs []models.NormalizedTransaction) {
	if len(txs) == 0 {
		return
	}
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return
	}

	job := scoreJob{ID: uuid.New().String(), AccountID: accountID, Txs: txs}
	select {
	case w.jobs <- job:
	default:
		w.logger.Warn("Anomaly queue full, dropping batch",
			logging.F(logging.FieldAccountID, accountID),
			logging.F(logging.FieldCount, len(txs)))
	}
}

// Start launches the consumer goroutine. It stops when the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.mu.Lock()
				w.closed = true
				w.mu.Unlock()
				return
			case job := <-w.jobs:
				w.process(ctx, job)
			}
		}
	}()
}

// process scores one batch, re-queueing it on failure up to maxRetries.
func (w *Worker) process(ctx context.Context, job scoreJob) {
	var batch []models.AnomalyScore
	for _, tx := range job.Txs {
		score, err := w.detector.Score(ctx, tx)
		if err != nil {
			job.Attempts++
			if job.Attempts >= maxRetries {
				w.logger.WithError(err).Error("Anomaly scoring failed permanently",
					logging.F(logging.FieldJobID, job.ID),
					logging.F(logging.FieldAccountID, job.AccountID))
				return
			}
			w.logger.WithError(err).Warn("Anomaly scoring failed, retrying",
				logging.F(logging.FieldJobID, job.ID),
				logging.F("attempt", job.Attempts))
			go func() {
				select {
				case <-ctx.Done():
				case <-time.After(retryDelay):
					select {
					case w.jobs <- job:
					default:
					}
				}
			}()
			return
		}
		if score != nil {
			w.logger.Debug("Transaction flagged as anomalous",
				logging.F(logging.FieldTxID, score.TransactionID),
				logging.F("severity", string(score.Severity)))
			batch = append(batch, *score)
		}
	}

	if len(batch) > 0 {
		w.mu.Lock()
		w.scores[job.AccountID] = append(w.scores[job.AccountID], batch...)
		w.mu.Unlock()
		w.logger.Info("Anomalies flagged",
			logging.F(logging.FieldAccountID, job.AccountID),
			logging.F(logging.FieldCount, len(batch)))
	}
}

// Scores returns the anomaly scores recorded for an account.
func (w *Worker) Scores(accountID string) []models.AnomalyScore {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.AnomalyScore, len(w.scores[accountID]))
	copy(out, w.scores[accountID])
	return out
}
