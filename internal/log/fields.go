package log

// Field names used across structured log lines.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldSessionID  = "session_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldFile    = "file"
	FieldBytes   = "bytes"
	FieldSheet   = "sheet"
	FieldOutcome = "outcome"
	FieldRows    = "rows"
	FieldDropped = "dropped"
	FieldMissing = "missing_columns"
	FieldChart   = "chart"
	FieldFormat  = "format"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentIngest  = "ingest"
	ComponentSheets  = "sheets"
	ComponentFrame   = "frame"
	ComponentCharts  = "charts"
	ComponentExport  = "export"
	ComponentSession = "session"
	ComponentCache   = "cache"
)

// Operation names.
const (
	OpUpload    = "upload"
	OpNormalize = "normalize"
	OpValidate  = "validate"
	OpAggregate = "aggregate"
	OpRender    = "render"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields is a small builder for slog key/value pairs.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRun adds the fields describing one ingestion run.
func (f LogFields) WithRun(sheet, outcome string, rows, dropped int) LogFields {
	f[FieldSheet] = sheet
	f[FieldOutcome] = outcome
	f[FieldRows] = rows
	f[FieldDropped] = dropped
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
