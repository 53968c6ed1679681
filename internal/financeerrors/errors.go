// Package financeerrors defines the typed error taxonomy shared by the
// statement import pipeline and the forecast engine.
package financeerrors

import "fmt"

// ParseError reports a malformed or unsupported statement file. The session
// stays at the upload step and the caller may retry with a corrected file.
// Line is 1-based and zero when the failure is not tied to a single line.
type ParseError struct {
	Format string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: parse failed at line %d: %s", e.Format, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: parse failed: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MappingError reports a required field left unmapped or a mapped column that
// cannot be interpreted. It blocks progression until the caller resubmits a
// corrected mapping.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("mapping invalid for field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("mapping invalid: %s", e.Reason)
}

// ReconciliationConflict reports a commit attempted while another commit on
// the same session or account is in flight, or after the session already
// committed. The caller must re-fetch session state.
type ReconciliationConflict struct {
	SessionID string
	Reason    string
}

func (e *ReconciliationConflict) Error() string {
	return fmt.Sprintf("commit conflict on session %s: %s", e.SessionID, e.Reason)
}

// CommitFailure reports a failed atomic ledger write. The entire batch was
// rolled back and nothing was partially applied.
type CommitFailure struct {
	AccountID string
	Err       error
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("ledger commit failed for account %s: %v", e.AccountID, e.Err)
}

func (e *CommitFailure) Unwrap() error {
	return e.Err
}

// ForecastUnavailable reports insufficient committed history to produce a
// forecast. It is a typed response condition, not an internal failure.
type ForecastUnavailable struct {
	AccountID   string
	HistoryDays int
	MinimumDays int
}

func (e *ForecastUnavailable) Error() string {
	return fmt.Sprintf("forecast unavailable for account %s: %d days of history, minimum %d required",
		e.AccountID, e.HistoryDays, e.MinimumDays)
}
