package logging

// Standardized field names for structured logging.
// Using the same keys everywhere keeps log output filterable across the
// import pipeline, the forecast engine and the HTTP layer.
const (
	FieldAccountID = "account_id"
	FieldSessionID = "session_id"
	FieldFormat    = "format"
	FieldFile      = "file_path"
	FieldLine      = "line"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldState     = "state"
	FieldHorizon   = "horizon_days"
	FieldJobID     = "job_id"
	FieldTxID      = "transaction_id"
	FieldDelimiter = "delimiter"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
)
