package surql

import "fmt"

// Row is the normalized unit of result data: output field name → value.
// Values keep their decoded JSON types; record references under the id,
// in and out keys are decoded into RecordID so callers can tell a
// reference from a string that merely looks like one.
type Row map[string]any

// refKeys are the row keys SurrealDB populates with record references.
var refKeys = map[string]struct{}{"id": {}, "in": {}, "out": {}}

// Normalize flattens a raw per-statement response into a uniform row
// sequence. Any statement-level error aborts the whole batch with a
// *QueryError and zero rows — batched execution is all-or-nothing from the
// caller's perspective even though the server ran statements independently.
func Normalize(query string, resp RawResponse) ([]Row, error) {
	for _, st := range resp {
		if st.Status == StatusErr || (st.Status != "" && st.Status != StatusOK) {
			return nil, &QueryError{Query: query, Message: statementMessage(st)}
		}
	}

	var rows []Row
	for _, st := range resp {
		rows = append(rows, normalizeResult(st.Result)...)
	}
	return rows, nil
}

func statementMessage(st Statement) string {
	if s, ok := st.Result.(string); ok && s != "" {
		return s
	}
	if st.Detail != "" {
		return st.Detail
	}
	return "statement failed with status " + st.Status
}

// normalizeResult reshapes one statement payload into rows. Grouped and
// aggregate statements sometimes arrive doubly nested ([[{...}]]); a
// single-element list wrapping another list is unwrapped one level so both
// shapes normalize identically.
func normalizeResult(result any) []Row {
	switch v := result.(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 1 {
			if inner, ok := v[0].([]any); ok {
				v = inner
			}
		}
		rows := make([]Row, 0, len(v))
		for _, e := range v {
			rows = append(rows, normalizeEntry(e))
		}
		return rows
	case map[string]any:
		return []Row{decodeRefs(v)}
	default:
		return []Row{{"value": v}}
	}
}

func normalizeEntry(e any) Row {
	if m, ok := e.(map[string]any); ok {
		return decodeRefs(m)
	}
	return Row{"value": e}
}

// decodeRefs copies a result object into a Row, turning record-id-shaped
// strings in reference positions into structured RecordID values. Other
// fields pass through untouched, never stringified.
func decodeRefs(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		if _, isRef := refKeys[k]; isRef {
			if s, ok := v.(string); ok {
				if rid, ok := ParseRecordID(s); ok {
					row[k] = rid
					continue
				}
			}
		}
		row[k] = v
	}
	return row
}

// Scalar extracts the single value of a one-row, one-column result, such
// as a count query.
func Scalar(rows []Row) (any, error) {
	if len(rows) != 1 {
		return nil, fmt.Errorf("surql: expected a single scalar row, got %d rows", len(rows))
	}
	row := rows[0]
	if v, ok := row["value"]; ok && len(row) == 1 {
		return v, nil
	}
	if len(row) == 1 {
		for _, v := range row {
			return v, nil
		}
	}
	return nil, fmt.Errorf("surql: expected a single scalar column, got %d", len(row))
}
