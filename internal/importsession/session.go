// Package importsession holds the server-resident statement import wizard:
// an explicit finite-state machine per session, a TTL-bounded session store
// and the coordinator that drives parsing, preview and the guarded commit.
package importsession

import (
	"sync"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// State is a wizard step. State only advances forward except for the
// explicit PreviousStep and ResetWizard actions.
type State string

const (
	StateUpload     State = "upload"
	StateMapping    State = "mapping"
	StateValidation State = "validation"
	StateComplete   State = "complete"
)

// stepOrder bounds NextStep/PreviousStep. Complete is reachable only through
// a successful commit.
var stepOrder = []State{StateUpload, StateMapping, StateValidation, StateComplete}

func stepIndex(s State) int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return 0
}

// Session is one import wizard instance. All mutating transitions are
// serialized by the session mutex (single writer per session).
type Session struct {
	mu sync.Mutex

	ID        string
	AccountID string
	Format    models.Format
	FileName  string

	state        State
	lastError    string
	parseResult  *models.ParseResult
	userMappings models.FieldMapping
	preview      *models.ReconcileResult
	importResult *models.ImportResult

	analyzing    bool
	committing   bool
	committed    bool
	createdAt    time.Time
	lastActivity time.Time
}

func newSession(id string, format models.Format, now time.Time) *Session {
	return &Session{
		ID:           id,
		Format:       format,
		state:        StateUpload,
		userMappings: models.FieldMapping{},
		createdAt:    now,
		lastActivity: now,
	}
}

// Snapshot is an immutable view of a session for API responses.
type Snapshot struct {
	ID              string                 `json:"sessionId"`
	AccountID       string                 `json:"accountId"`
	Format          models.Format          `json:"format"`
	FileName        string                 `json:"fileName"`
	State           State                  `json:"state"`
	Error           string                 `json:"error,omitempty"`
	DetectedColumns models.FieldMapping    `json:"detectedColumns,omitempty"`
	Mapping         models.FieldMapping    `json:"mapping,omitempty"`
	Header          []string               `json:"header,omitempty"`
	LineCount       int                    `json:"lineCount"`
	Preview         *models.ReconcileResult `json:"preview,omitempty"`
	ImportResult    *models.ImportResult    `json:"importResult,omitempty"`
}

// Snapshot returns a consistent copy of the session's visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.ID,
		AccountID:    s.AccountID,
		Format:       s.Format,
		FileName:     s.FileName,
		State:        s.state,
		Error:        s.lastError,
		Mapping:      s.userMappings.Clone(),
		Preview:      s.preview,
		ImportResult: s.importResult,
	}
	if s.parseResult != nil {
		snap.DetectedColumns = s.parseResult.DetectedColumns.Clone()
		snap.Header = s.parseResult.Header
		snap.LineCount = len(s.parseResult.Lines)
	}
	return snap
}

// State returns the current wizard step.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// touch refreshes the inactivity clock. Callers hold s.mu.
func (s *Session) touch() {
	s.lastActivity = time.Now()
}

// FileSelected stores the uploaded file name and clears any previous error.
func (s *Session) FileSelected(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileName = name
	s.lastError = ""
	s.touch()
}

// SelectAccount records the target account. Allowed until the session
// completes.
func (s *Session) SelectAccount(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "session already completed"}
	}
	s.AccountID = accountID
	s.touch()
	return nil
}

// AnalysisStart marks the parse as running.
func (s *Session) AnalysisStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = true
	s.lastError = ""
	s.touch()
}

// AnalysisSuccess stores the parse result, seeds the mapping from the
// detected columns and advances to the mapping step.
func (s *Session) AnalysisSuccess(result *models.ParseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	s.parseResult = result
	s.userMappings = result.DetectedColumns.Clone()
	s.state = StateMapping
	s.lastError = ""
	s.touch()
}

// AnalysisError records the failure. The session stays at upload so the
// caller can retry with a corrected file.
func (s *Session) AnalysisError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	s.lastError = err.Error()
	s.state = StateUpload
	s.parseResult = nil
	s.userMappings = models.FieldMapping{}
	s.touch()
}

// UpdateMapping applies caller overrides without changing the step. A column
// of -1 removes the assignment.
func (s *Session) UpdateMapping(field models.Field, column int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "session already completed"}
	}
	if s.state == StateUpload {
		return &financeerrors.MappingError{Field: string(field), Reason: "no statement analyzed yet"}
	}
	if column < 0 {
		delete(s.userMappings, field)
	} else {
		s.userMappings[field] = column
	}
	// Mapping edits invalidate a previously computed preview.
	s.preview = nil
	s.touch()
	return nil
}

// ResetMappings restores the detected columns, discarding caller overrides.
func (s *Session) ResetMappings() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "session already completed"}
	}
	if s.parseResult != nil {
		s.userMappings = s.parseResult.DetectedColumns.Clone()
	} else {
		s.userMappings = models.FieldMapping{}
	}
	s.preview = nil
	s.touch()
	return nil
}

// Mapping returns the effective field mapping.
func (s *Session) Mapping() models.FieldMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userMappings.Clone()
}

// ParseResult returns the stored parse result, or nil before analysis.
func (s *Session) ParseResult() *models.ParseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseResult
}

// PreviewLoaded stores the reconciliation preview and advances to the
// validation step.
func (s *Session) PreviewLoaded(result *models.ReconcileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = result
	if s.state == StateMapping {
		s.state = StateValidation
	}
	s.lastError = ""
	s.touch()
}

// Preview returns the stored reconciliation preview, or nil.
func (s *Session) Preview() *models.ReconcileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// ImportStart claims the session's single commit slot. At most one commit
// may ever complete per session: a concurrent or repeated attempt fails fast
// with a conflict instead of double-applying transactions.
func (s *Session) ImportStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed || s.state == StateComplete {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "session already committed"}
	}
	if s.committing {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "commit already in progress"}
	}
	if s.state != StateValidation {
		return &financeerrors.ReconciliationConflict{SessionID: s.ID, Reason: "no validated preview to commit"}
	}
	s.committing = true
	s.touch()
	return nil
}

// ImportSuccess finalizes the commit. The session becomes immutable.
func (s *Session) ImportSuccess(result *models.ImportResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	s.committed = true
	s.importResult = result
	s.state = StateComplete
	s.lastError = ""
	s.touch()
}

// ImportError releases the commit slot and records the failure. The session
// stays at validation so the caller may retry.
func (s *Session) ImportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	s.lastError = err.Error()
	s.touch()
}

// NextStep advances one step within the wizard bounds. It is a no-op at the
// ends and never enters complete: completion requires a successful commit.
func (s *Session) NextStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return
	}
	idx := stepIndex(s.state)
	if idx+1 < len(stepOrder) && stepOrder[idx+1] != StateComplete {
		// Leaving upload requires a successful analysis.
		if s.state == StateUpload && s.parseResult == nil {
			return
		}
		s.state = stepOrder[idx+1]
	}
	s.touch()
}

// PreviousStep moves one step back. It is a no-op at the start and on a
// completed session.
func (s *Session) PreviousStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return
	}
	idx := stepIndex(s.state)
	if idx > 0 {
		s.state = stepOrder[idx-1]
	}
	s.touch()
}

// ResetWizard returns to the initial upload state, discarding everything.
// The committed flag survives the reset so a session that already applied a
// batch can never commit a second one.
func (s *Session) ResetWizard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUpload
	s.FileName = ""
	s.lastError = ""
	s.parseResult = nil
	s.userMappings = models.FieldMapping{}
	s.preview = nil
	s.importResult = nil
	s.analyzing = false
	s.committing = false
	s.touch()
}
