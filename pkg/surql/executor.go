package surql

import "context"

// Statement is one per-statement entry of a raw SurrealDB response. Result
// holds whatever JSON shape the statement produced: a row array, a single
// object, a scalar, or an error message.
type Statement struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Result any    `json:"result,omitempty"`
	Time   string `json:"time,omitempty"`
}

// StatusOK and StatusErr are the statement status markers SurrealDB emits.
const (
	StatusOK  = "OK"
	StatusErr = "ERR"
)

// RawResponse is the ordered per-statement response of one submission.
// A rendered query may be a multi-statement batch, so there may be more
// than one entry.
type RawResponse []Statement

// Executor submits rendered query text to the database and returns the raw
// response. Implementations own transport, authentication and retries; the
// compiler holds no resources and needs nothing else from them.
type Executor interface {
	Submit(ctx context.Context, query string) (RawResponse, error)
}
