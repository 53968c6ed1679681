package importsession

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

func parseResultFixture() *models.ParseResult {
	return &models.ParseResult{
		Format: models.FormatCSV,
		Header: []string{"Date", "Amount"},
		DetectedColumns: models.FieldMapping{
			models.FieldBookingDate: 0,
			models.FieldAmount:      1,
		},
		Lines: []models.RawLine{{Index: 0, Cells: []string{"2023-01-15", "10.00"}}},
	}
}

func sessionAtValidation(t *testing.T) *Session {
	t.Helper()
	s := newSession("s-1", models.FormatCSV, time.Now())
	s.FileSelected("statement.csv")
	require.NoError(t, s.SelectAccount("acc-1"))
	s.AnalysisStart()
	s.AnalysisSuccess(parseResultFixture())
	s.PreviewLoaded(&models.ReconcileResult{})
	return s
}

func TestSession_AnalysisAdvancesToMapping(t *testing.T) {
	s := newSession("s-1", models.FormatCSV, time.Now())
	assert.Equal(t, StateUpload, s.State())

	s.AnalysisStart()
	s.AnalysisSuccess(parseResultFixture())

	assert.Equal(t, StateMapping, s.State())
	assert.Equal(t, 0, s.Mapping()[models.FieldBookingDate], "mapping is seeded from detected columns")
}

func TestSession_AnalysisErrorStaysAtUpload(t *testing.T) {
	s := newSession("s-1", models.FormatCSV, time.Now())
	s.AnalysisStart()
	s.AnalysisError(errors.New("bad file"))

	assert.Equal(t, StateUpload, s.State())
	assert.Nil(t, s.ParseResult())
	snap := s.Snapshot()
	assert.Equal(t, "bad file", snap.Error)

	// A retry on the same session is allowed.
	s.AnalysisStart()
	s.AnalysisSuccess(parseResultFixture())
	assert.Equal(t, StateMapping, s.State())
}

func TestSession_UpdateMapping(t *testing.T) {
	s := newSession("s-1", models.FormatCSV, time.Now())

	err := s.UpdateMapping(models.FieldAmount, 2)
	require.Error(t, err, "mapping before analysis is rejected")
	var mappingErr *financeerrors.MappingError
	assert.True(t, errors.As(err, &mappingErr))

	s.AnalysisSuccess(parseResultFixture())
	require.NoError(t, s.UpdateMapping(models.FieldDescription, 2))
	assert.Equal(t, 2, s.Mapping()[models.FieldDescription])

	// Column -1 removes the assignment.
	require.NoError(t, s.UpdateMapping(models.FieldDescription, -1))
	_, ok := s.Mapping()[models.FieldDescription]
	assert.False(t, ok)
}

func TestSession_MappingEditInvalidatesPreview(t *testing.T) {
	s := sessionAtValidation(t)
	require.NotNil(t, s.Preview())

	require.NoError(t, s.UpdateMapping(models.FieldAmount, 1))
	assert.Nil(t, s.Preview())
}

func TestSession_ResetMappings(t *testing.T) {
	s := newSession("s-1", models.FormatCSV, time.Now())
	s.AnalysisSuccess(parseResultFixture())
	require.NoError(t, s.UpdateMapping(models.FieldBookingDate, 5))

	require.NoError(t, s.ResetMappings())
	assert.Equal(t, 0, s.Mapping()[models.FieldBookingDate])
}

func TestSession_CommitLifecycle(t *testing.T) {
	s := sessionAtValidation(t)

	require.NoError(t, s.ImportStart())
	s.ImportSuccess(&models.ImportResult{Imported: 1})

	assert.Equal(t, StateComplete, s.State())
	snap := s.Snapshot()
	require.NotNil(t, snap.ImportResult)
	assert.Equal(t, 1, snap.ImportResult.Imported)
}

func TestSession_ImportStartGuards(t *testing.T) {
	t.Run("Before validation", func(t *testing.T) {
		s := newSession("s-1", models.FormatCSV, time.Now())
		s.AnalysisSuccess(parseResultFixture())
		assert.Error(t, s.ImportStart(), "mapping step has no validated preview")
	})

	t.Run("While committing", func(t *testing.T) {
		s := sessionAtValidation(t)
		require.NoError(t, s.ImportStart())

		err := s.ImportStart()
		require.Error(t, err)
		var conflict *financeerrors.ReconciliationConflict
		require.True(t, errors.As(err, &conflict))
		assert.Contains(t, conflict.Reason, "in progress")
	})

	t.Run("After commit", func(t *testing.T) {
		s := sessionAtValidation(t)
		require.NoError(t, s.ImportStart())
		s.ImportSuccess(&models.ImportResult{})

		err := s.ImportStart()
		require.Error(t, err)
		var conflict *financeerrors.ReconciliationConflict
		require.True(t, errors.As(err, &conflict))
		assert.Contains(t, conflict.Reason, "already committed")
	})
}

func TestSession_ImportErrorAllowsRetry(t *testing.T) {
	s := sessionAtValidation(t)
	require.NoError(t, s.ImportStart())
	s.ImportError(errors.New("ledger down"))

	assert.Equal(t, StateValidation, s.State())
	require.NoError(t, s.ImportStart(), "a failed commit releases the slot")
}

func TestSession_NextStep(t *testing.T) {
	s := newSession("s-1", models.FormatCSV, time.Now())

	// Upload cannot be left without a successful analysis.
	s.NextStep()
	assert.Equal(t, StateUpload, s.State())

	s.AnalysisSuccess(parseResultFixture())
	s.NextStep()
	assert.Equal(t, StateValidation, s.State())

	// NextStep never enters complete.
	s.NextStep()
	assert.Equal(t, StateValidation, s.State())
}

func TestSession_NextStepNoOpAtComplete(t *testing.T) {
	s := sessionAtValidation(t)
	require.NoError(t, s.ImportStart())
	s.ImportSuccess(&models.ImportResult{})

	s.NextStep()
	assert.Equal(t, StateComplete, s.State())
	s.PreviousStep()
	assert.Equal(t, StateComplete, s.State(), "a completed session is immutable")
}

func TestSession_PreviousStep(t *testing.T) {
	s := sessionAtValidation(t)
	assert.Equal(t, StateValidation, s.State())

	s.PreviousStep()
	assert.Equal(t, StateMapping, s.State())
	s.PreviousStep()
	assert.Equal(t, StateUpload, s.State())
	s.PreviousStep()
	assert.Equal(t, StateUpload, s.State(), "no-op at the start")
}

func TestSession_ResetWizard(t *testing.T) {
	s := sessionAtValidation(t)
	s.ResetWizard()

	assert.Equal(t, StateUpload, s.State())
	assert.Nil(t, s.ParseResult())
	assert.Nil(t, s.Preview())
	assert.Empty(t, s.Mapping())
	snap := s.Snapshot()
	assert.Empty(t, snap.FileName)
	assert.Nil(t, snap.ImportResult)
}

func TestSession_ResetWizardKeepsCommitGuard(t *testing.T) {
	s := sessionAtValidation(t)
	require.NoError(t, s.ImportStart())
	s.ImportSuccess(&models.ImportResult{})

	s.ResetWizard()
	assert.Equal(t, StateUpload, s.State())

	// Even after walking the wizard again, a second commit is rejected.
	s.AnalysisSuccess(parseResultFixture())
	s.PreviewLoaded(&models.ReconcileResult{})
	err := s.ImportStart()
	require.Error(t, err)
}

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore(time.Hour, logging.NewMockLogger())

	s := st.Create(models.FormatCSV)
	require.NotEmpty(t, s.ID)
	assert.Same(t, s, st.Get(s.ID))
	assert.Nil(t, st.Get("unknown"))
	assert.Equal(t, 1, st.Len())

	st.Delete(s.ID)
	assert.Nil(t, st.Get(s.ID))
	assert.Equal(t, 0, st.Len())
}

func TestStore_Reap(t *testing.T) {
	st := NewStore(time.Hour, logging.NewMockLogger())
	idle := st.Create(models.FormatCSV)
	fresh := st.Create(models.FormatCSV)

	// Backdate the idle session past the TTL.
	idle.mu.Lock()
	idle.lastActivity = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()

	removed := st.Reap(time.Now())
	assert.Equal(t, 1, removed)
	assert.Nil(t, st.Get(idle.ID))
	assert.NotNil(t, st.Get(fresh.ID))
}

func TestStore_ReapSkipsCommitting(t *testing.T) {
	st := NewStore(time.Hour, logging.NewMockLogger())
	s := st.Create(models.FormatCSV)
	s.AnalysisSuccess(parseResultFixture())
	s.PreviewLoaded(&models.ReconcileResult{})
	require.NoError(t, s.ImportStart())

	s.mu.Lock()
	s.lastActivity = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	assert.Equal(t, 0, st.Reap(time.Now()))
	assert.NotNil(t, st.Get(s.ID))
}
