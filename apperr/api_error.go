package apperr

import "net/http"

// Kind identifies one entry of the request-facing error taxonomy.
type Kind string

const (
	KindBadJSON             Kind = "bad_json"
	KindMissingQuestion     Kind = "missing_question"
	KindGuardRejection      Kind = "guard_rejection"
	KindUnauthorized        Kind = "unauthorized"
	KindMethodNotAllowed    Kind = "method_not_allowed"
	KindDatabaseUnavailable Kind = "database_unavailable"
	KindLLMFailure          Kind = "llm_failure"
	KindPlannerParseError   Kind = "planner_parse_error"
	KindExecutionError      Kind = "execution_error"
	KindRetryExhausted      Kind = "retry_exhausted"
	KindDeadlineExceeded    Kind = "request_deadline_exceeded"
	KindInternal            Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindBadJSON:             http.StatusBadRequest,
	KindMissingQuestion:     http.StatusBadRequest,
	KindGuardRejection:      http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindMethodNotAllowed:    http.StatusMethodNotAllowed,
	KindDatabaseUnavailable: http.StatusInternalServerError,
	KindLLMFailure:          http.StatusInternalServerError,
	KindPlannerParseError:   http.StatusInternalServerError,
	KindExecutionError:      http.StatusInternalServerError,
	KindRetryExhausted:      http.StatusInternalServerError,
	KindDeadlineExceeded:    http.StatusGatewayTimeout,
	KindInternal:            http.StatusInternalServerError,
}

// APIError is the error shape that reaches the HTTP transport layer. Detail
// carries kind-specific, client-safe context (e.g. the GuardError kind and
// offending SQL fragment) — never raw internal error text for 5xx kinds.
type APIError struct {
	Kind   Kind
	Detail any
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ClientMessage returns the text safe to place in a response body.
// DatabaseUnavailable wraps the raw pgx connect/ping error (often
// containing "host=...port=...user=...database=..."), and Internal wraps
// whatever unexpected failure tripped it; neither kind carries a
// client-facing message field in the taxonomy, so both get a fixed,
// generic message instead of e.Err's text. Every other kind's Error()
// text is already client-safe by construction (structured Detail, or a
// message field the taxonomy defines for it, e.g. ExecutionError's SQL
// error).
func (e *APIError) ClientMessage() string {
	switch e.Kind {
	case KindDatabaseUnavailable:
		return "database unavailable"
	case KindInternal:
		return "internal error"
	default:
		return e.Error()
	}
}

// HTTPStatus returns the status code for this error's kind.
func (e *APIError) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(kind Kind, err error) *APIError {
	return &APIError{Kind: kind, Err: err}
}

func NewWithDetail(kind Kind, detail any, err error) *APIError {
	return &APIError{Kind: kind, Detail: detail, Err: err}
}

func BadJSON(err error) *APIError { return New(KindBadJSON, err) }

func MissingQuestion() *APIError {
	return New(KindMissingQuestion, nil)
}

func Unauthorized() *APIError {
	return New(KindUnauthorized, nil)
}

func MethodNotAllowed(method string) *APIError {
	return NewWithDetail(KindMethodNotAllowed, map[string]string{"method": method}, nil)
}

func DeadlineExceeded(err error) *APIError {
	return New(KindDeadlineExceeded, err)
}

func Internal(err error) *APIError {
	return New(KindInternal, err)
}

// GuardRejection reports a Guard violation. detail discriminates the
// specific rule (multi-statement, table not allowed, column not allowed,
// comment, write/DDL, system schema); sql is the offending candidate.
func GuardRejection(kind, detail, sql string) *APIError {
	return NewWithDetail(KindGuardRejection, map[string]string{
		"kind": kind, "detail": detail, "sql": sql,
	}, nil)
}

func DatabaseUnavailable(err error) *APIError {
	return New(KindDatabaseUnavailable, err)
}

func LLMFailure(stage string, err error) *APIError {
	return NewWithDetail(KindLLMFailure, map[string]string{"stage": stage}, err)
}

func PlannerParseError(raw string, err error) *APIError {
	return NewWithDetail(KindPlannerParseError, map[string]string{"raw": raw}, err)
}

func ExecutionError(sql string, err error) *APIError {
	return NewWithDetail(KindExecutionError, map[string]string{"sql": sql}, err)
}

func RetryExhausted(sql string, err error) *APIError {
	return NewWithDetail(KindRetryExhausted, map[string]string{"sql": sql}, err)
}
