package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmenktata/quelyosSuite-sub025/internal/anomaly"
	"github.com/salmenktata/quelyosSuite-sub025/internal/forecast"
	"github.com/salmenktata/quelyosSuite-sub025/internal/importsession"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/reconcile"
)

const statementCSV = `Date,Amount,Currency,Name,Reference,Description
2024-01-15,1'250.00,EUR,Acme Corp,INV-1,Invoice payment
2024-01-16,207.50,EUR,Beta GmbH,INV-2,Consulting retainer
`

func newTestHandler(t *testing.T) (http.Handler, *ledger.MemoryLedger, *anomaly.Worker) {
	t.Helper()
	log := logging.NewMockLogger()

	l := ledger.NewMemoryLedger()
	l.AddAccount(models.BankAccount{
		ID:             "acc-1",
		Name:           "Operating",
		Currency:       "EUR",
		OpeningBalance: decimal.NewFromInt(1000),
	})

	recon := reconcile.NewEngine(l, reconcile.DefaultOptions(), log)
	store := importsession.NewStore(time.Hour, log)
	coordinator := importsession.NewCoordinator(store, l, recon, log)

	engine := forecast.NewEngine(l, forecast.DefaultOptions(), 0, log)
	detector := anomaly.NewDetector(l, anomaly.DefaultOptions(), log)
	worker := anomaly.NewWorker(detector, 8, log)

	imports := NewImportHandler(coordinator, 8<<20, log)
	forecasts := NewForecastHandler(engine, worker, 90, 30, 365, log)
	srv := New(":0", imports, forecasts, time.Second, log)
	return srv.Handler(), l, worker
}

func multipartStatement(t *testing.T, accountID, format, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if accountID != "" {
		require.NoError(t, mw.WriteField("accountId", accountID))
	}
	if format != "" {
		require.NoError(t, mw.WriteField("format", format))
	}
	if content != "" {
		fw, err := mw.CreateFormFile("file", "statement.csv")
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(handler http.Handler, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func analyzeStatement(t *testing.T, handler http.Handler) string {
	t.Helper()
	body, contentType := multipartStatement(t, "acc-1", "csv", statementCSV)
	rec := doRequest(handler, http.MethodPost, "/bank-statements/analyze", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap importsession.Snapshot
	decodeBody(t, rec, &snap)
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func TestHealthz(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := doRequest(handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestImportWizardFlow(t *testing.T) {
	handler, l, _ := newTestHandler(t)

	// Analyze: the session lands on the mapping step with detected columns.
	body, contentType := multipartStatement(t, "acc-1", "csv", statementCSV)
	rec := doRequest(handler, http.MethodPost, "/bank-statements/analyze", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap importsession.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, importsession.StateMapping, snap.State)
	assert.Equal(t, "acc-1", snap.AccountID)
	assert.Equal(t, models.FormatCSV, snap.Format)
	assert.Equal(t, 2, snap.LineCount)
	assert.Contains(t, snap.Mapping, models.FieldBookingDate)
	assert.Contains(t, snap.Mapping, models.FieldAmount)

	// Preview runs reconciliation over the detected mapping.
	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+snap.ID+"/preview", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		Rows           []models.PreviewRow `json:"rows"`
		DuplicateCount int                 `json:"duplicateCount"`
	}
	decodeBody(t, rec, &preview)
	assert.Len(t, preview.Rows, 2)
	assert.Zero(t, preview.DuplicateCount)

	// Commit writes the batch to the ledger.
	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+snap.ID+"/commit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ImportResult
	decodeBody(t, rec, &result)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Duplicates)

	balance, err := l.Balance(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(2457.50)), "balance %s", balance)

	// The session is now complete and readable.
	rec = doRequest(handler, http.MethodGet, "/bank-statements/"+snap.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &snap)
	assert.Equal(t, importsession.StateComplete, snap.State)
	require.NotNil(t, snap.ImportResult)
	assert.Equal(t, 2, snap.ImportResult.Imported)
}

func TestAnalyzeValidation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		name       string
		accountID  string
		format     string
		content    string
		wantStatus int
	}{
		{name: "Missing account", accountID: "", format: "csv", content: statementCSV, wantStatus: http.StatusBadRequest},
		{name: "Missing format", accountID: "acc-1", format: "", content: statementCSV, wantStatus: http.StatusBadRequest},
		{name: "Missing file", accountID: "acc-1", format: "csv", content: "", wantStatus: http.StatusBadRequest},
		{name: "Unknown account", accountID: "ghost", format: "csv", content: statementCSV, wantStatus: http.StatusNotFound},
		{name: "Unsupported format", accountID: "acc-1", format: "qif", content: statementCSV, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartStatement(t, tt.accountID, tt.format, tt.content)
			rec := doRequest(handler, http.MethodPost, "/bank-statements/analyze", contentType, body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyzeParseFailureReturnsSession(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body, contentType := multipartStatement(t, "acc-1", "csv", "   ")
	rec := doRequest(handler, http.MethodPost, "/bank-statements/analyze", contentType, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp struct {
		Error   string                `json:"error"`
		Session importsession.Snapshot `json:"session"`
	}
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Session.ID)
	assert.Equal(t, importsession.StateUpload, resp.Session.State)
}

func TestUpdateMappingEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	sessionID := analyzeStatement(t, handler)

	// Removing the amount mapping makes the preview fail validation.
	rec := doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/mapping",
		"application/json", strings.NewReader(`{"mapping":{"amount":-1}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/preview", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Restoring it brings the wizard back on track.
	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/mapping",
		"application/json", strings.NewReader(`{"mapping":{"amount":1}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/preview", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateMappingRejectsBadRequests(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	sessionID := analyzeStatement(t, handler)

	tests := []struct {
		name       string
		sessionID  string
		body       string
		wantStatus int
	}{
		{name: "Invalid body", sessionID: sessionID, body: "not json", wantStatus: http.StatusBadRequest},
		{name: "Empty mapping", sessionID: sessionID, body: `{"mapping":{}}`, wantStatus: http.StatusBadRequest},
		{name: "Unknown session", sessionID: "ghost", body: `{"mapping":{"amount":1}}`, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/bank-statements/"+tt.sessionID+"/mapping",
				"application/json", strings.NewReader(tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestCommitConflicts(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	sessionID := analyzeStatement(t, handler)

	rec := doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/preview", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/commit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A second commit of the same session is a conflict.
	rec = doRequest(handler, http.MethodPost, "/bank-statements/"+sessionID+"/commit", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// So is any operation against a session that does not exist.
	rec = doRequest(handler, http.MethodPost, "/bank-statements/ghost/commit", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(handler, http.MethodGet, "/bank-statements/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForecastEndpoint(t *testing.T) {
	handler, l, _ := newTestHandler(t)
	seedForecastHistory(t, l, "acc-1", 30, 100)

	rec := doRequest(handler, http.MethodGet, "/finance/forecast?accountId=acc-1&days=14", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ForecastResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "acc-1", resp.AccountID)
	require.Len(t, resp.Points, 14)
	require.NotNil(t, resp.Points[0].Scenarios)
	assert.Equal(t, 14, resp.Model.HorizonDays)

	// scenarios=false strips the scenario sets from every point.
	rec = doRequest(handler, http.MethodGet, "/finance/forecast?accountId=acc-1&days=14&scenarios=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Points, 14)
	for i, p := range resp.Points {
		assert.Nil(t, p.Scenarios, "day %d", i+1)
	}
}

func TestForecastEndpointValidation(t *testing.T) {
	handler, l, _ := newTestHandler(t)
	seedForecastHistory(t, l, "acc-1", 30, 100)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{name: "Missing account", target: "/finance/forecast", wantStatus: http.StatusBadRequest},
		{name: "Zero days", target: "/finance/forecast?accountId=acc-1&days=0", wantStatus: http.StatusBadRequest},
		{name: "Days beyond maximum", target: "/finance/forecast?accountId=acc-1&days=1000", wantStatus: http.StatusBadRequest},
		{name: "Days not a number", target: "/finance/forecast?accountId=acc-1&days=soon", wantStatus: http.StatusBadRequest},
		{name: "Unknown account", target: "/finance/forecast?accountId=ghost", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestForecastEndpointInsufficientHistory(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	// The account exists but has no committed history: the endpoint answers
	// 200 with a typed unavailability body instead of an error status.
	rec := doRequest(handler, http.MethodGet, "/finance/forecast?accountId=acc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccountID          string `json:"accountId"`
		Available          bool   `json:"available"`
		HistoryDays        int    `json:"historyDays"`
		MinimumHistoryDays int    `json:"minimumHistoryDays"`
		Reason             string `json:"reason"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "acc-1", resp.AccountID)
	assert.False(t, resp.Available)
	assert.Zero(t, resp.HistoryDays)
	assert.Equal(t, forecast.DefaultOptions().MinimumHistoryDays, resp.MinimumHistoryDays)
	assert.NotEmpty(t, resp.Reason)
}

func TestAnomaliesEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := doRequest(handler, http.MethodGet, "/finance/anomalies?accountId=acc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Anomalies []models.AnomalyScore `json:"anomalies"`
		Count     int                   `json:"count"`
	}
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Anomalies)
	assert.Zero(t, resp.Count)

	rec = doRequest(handler, http.MethodGet, "/finance/anomalies", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// seedForecastHistory commits count days of a constant daily flow ending
// today, so the forecast engine has trainable history under real time.
func seedForecastHistory(t *testing.T, l *ledger.MemoryLedger, accountID string, count int, daily float64) {
	t.Helper()
	today := time.Now().Truncate(24 * time.Hour)
	txs := make([]models.NormalizedTransaction, 0, count)
	for i := 0; i < count; i++ {
		txs = append(txs, models.NormalizedTransaction{
			ID:        fmt.Sprintf("seed-%d", i),
			AccountID: accountID,
			Date:      today.AddDate(0, 0, -i),
			Amount:    decimal.NewFromFloat(daily),
			Currency:  "EUR",
			DedupHash: fmt.Sprintf("seed-hash-%d", i),
		})
	}
	require.NoError(t, l.AppendTransactions(context.Background(), accountID, txs))
}
