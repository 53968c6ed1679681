// Package server exposes the import wizard and the forecast engine over HTTP
// with JSON responses.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/salmenktata/quelyosSuite-sub025/internal/anomaly"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/forecast"
	"github.com/salmenktata/quelyosSuite-sub025/internal/importsession"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// ImportHandler handles the bank-statement import wizard endpoints.
type ImportHandler struct {
	coordinator    *importsession.Coordinator
	maxUploadBytes int64
	log            logging.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(coordinator *importsession.Coordinator, maxUploadBytes int64, log logging.Logger) *ImportHandler {
	return &ImportHandler{coordinator: coordinator, maxUploadBytes: maxUploadBytes, log: log}
}

// Analyze handles POST /bank-statements/analyze.
// Multipart form: "file" (the statement), "accountId", "format".
func (h *ImportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	accountID := r.FormValue("accountId")
	format := r.FormValue("format")
	if accountID == "" || format == "" {
		WriteError(w, http.StatusBadRequest, "accountId and format are required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	session, err := h.coordinator.Analyze(r.Context(), accountID, header.Filename, format, file)
	if err != nil {
		// A parse failure still carries a usable session: the caller can
		// retry the upload against it.
		if session != nil {
			WriteJSON(w, statusForError(err), map[string]interface{}{
				"error":   err.Error(),
				"session": session.Snapshot(),
			})
			return
		}
		writeTypedError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, session.Snapshot())
}

// mappingRequest is the body of a mapping update.
type mappingRequest struct {
	Mapping map[string]int `json:"mapping"`
}

// UpdateMapping handles POST /bank-statements/{sessionId}/mapping.
// A column of -1 removes the field from the mapping.
func (h *ImportHandler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Mapping) == 0 {
		WriteError(w, http.StatusBadRequest, "mapping is required")
		return
	}

	mapping := models.FieldMapping{}
	for field, col := range req.Mapping {
		mapping[models.Field(field)] = col
	}

	if err := h.coordinator.UpdateMapping(sessionID, mapping); err != nil {
		writeTypedError(w, err)
		return
	}

	session := h.coordinator.Store().Get(sessionID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"session": session.Snapshot(),
	})
}

// Preview handles POST /bank-statements/{sessionId}/preview.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	result, err := h.coordinator.Preview(r.Context(), sessionID)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows":           result.Rows,
		"duplicateCount": result.Duplicates,
		"matchSummary":   result.MatchSummary,
		"errors":         result.Errors,
	})
}

// Commit handles POST /bank-statements/{sessionId}/commit.
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	result, err := h.coordinator.Commit(r.Context(), sessionID)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Session handles GET /bank-statements/{sessionId}.
func (h *ImportHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := h.coordinator.Store().Get(r.PathValue("sessionId"))
	if session == nil {
		WriteError(w, http.StatusNotFound, "unknown session")
		return
	}
	WriteJSON(w, http.StatusOK, session.Snapshot())
}

// ForecastHandler handles the forecast and anomaly read endpoints.
type ForecastHandler struct {
	engine             *forecast.Engine
	worker             *anomaly.Worker
	defaultHistoryDays int
	defaultHorizonDays int
	maxHorizonDays     int
	log                logging.Logger
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(engine *forecast.Engine, worker *anomaly.Worker, defaultHistoryDays, defaultHorizonDays, maxHorizonDays int, log logging.Logger) *ForecastHandler {
	return &ForecastHandler{
		engine:             engine,
		worker:             worker,
		defaultHistoryDays: defaultHistoryDays,
		defaultHorizonDays: defaultHorizonDays,
		maxHorizonDays:     maxHorizonDays,
		log:                log,
	}
}

// Forecast handles GET /finance/forecast?accountId=&days=&scenarios=.
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	horizonDays := h.defaultHorizonDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 || days > h.maxHorizonDays {
			WriteError(w, http.StatusBadRequest, "days must be a positive integer up to "+strconv.Itoa(h.maxHorizonDays))
			return
		}
		horizonDays = days
	}

	response, err := h.engine.Forecast(r.Context(), accountID, h.defaultHistoryDays, horizonDays)
	if err != nil {
		// Insufficient history is an expected state, not a failure: the
		// caller gets a typed body explaining how much history is needed.
		var unavailable *financeerrors.ForecastUnavailable
		if errors.As(err, &unavailable) {
			WriteJSON(w, http.StatusOK, map[string]interface{}{
				"accountId":          unavailable.AccountID,
				"available":          false,
				"historyDays":        unavailable.HistoryDays,
				"minimumHistoryDays": unavailable.MinimumDays,
				"reason":             unavailable.Error(),
			})
			return
		}
		writeTypedError(w, err)
		return
	}

	// The engine may hand back a cached response, so strip scenarios on a
	// copy rather than in place.
	if r.URL.Query().Get("scenarios") == "false" {
		stripped := *response
		stripped.Points = make([]models.DailyForecastPoint, len(response.Points))
		copy(stripped.Points, response.Points)
		for i := range stripped.Points {
			stripped.Points[i].Scenarios = nil
		}
		WriteJSON(w, http.StatusOK, &stripped)
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// Anomalies handles GET /finance/anomalies?accountId=.
func (h *ForecastHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	scores := h.worker.Scores(accountID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": scores,
		"count":     len(scores),
	})
}

// writeTypedError maps the error taxonomy onto HTTP status codes.
func writeTypedError(w http.ResponseWriter, err error) {
	WriteError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	var parseErr *financeerrors.ParseError
	var mappingErr *financeerrors.MappingError
	var conflictErr *financeerrors.ReconciliationConflict
	var commitErr *financeerrors.CommitFailure
	var forecastErr *financeerrors.ForecastUnavailable

	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &mappingErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &commitErr):
		return http.StatusInternalServerError
	case errors.As(err, &forecastErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
