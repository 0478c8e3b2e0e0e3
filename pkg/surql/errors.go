package surql

import "errors"

// Sentinel errors for query construction and rendering.
var (
	ErrUnknownOperator = errors.New("surql: unknown operator")
	ErrAmbiguousField  = errors.New("surql: ambiguous operator field")
	ErrEscape          = errors.New("surql: value has no literal representation")
	ErrPlan            = errors.New("surql: inconsistent query plan")
)

// QueryError reports a failed execution together with the rendered query
// text, so the caller can see exactly what was sent to the database.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return "surql: query failed: " + e.Message
	}
	if e.Err != nil {
		return "surql: query failed: " + e.Err.Error()
	}
	return "surql: query failed"
}

func (e *QueryError) Unwrap() error { return e.Err }
