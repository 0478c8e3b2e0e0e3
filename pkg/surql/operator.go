package surql

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator identifies one entry of the condition operator table.
type Operator string

// The fixed operator table. Lookup suffixes map onto these; unknown
// suffixes fail at construction time, never at execution.
const (
	OpEq           Operator = "eq"
	OpNe           Operator = "ne"
	OpGt           Operator = "gt"
	OpGte          Operator = "gte"
	OpLt           Operator = "lt"
	OpLte          Operator = "lte"
	OpInside       Operator = "inside"
	OpNotInside    Operator = "not_inside"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "startswith"
	OpEndsWith     Operator = "endswith"
	OpRegex        Operator = "regex"
	OpContainsAny  Operator = "contains_any"
	OpContainsAll  Operator = "contains_all"
	OpContainsNone Operator = "contains_none"
	OpAllInside    Operator = "all_inside"
	OpAnyInside    Operator = "any_inside"
	OpNoneInside   Operator = "none_inside"
	OpKNN          Operator = "knn"
)

// KNN is the value shape for the knn operator: query vector plus candidate
// count. Renders to SurrealQL's nearest-neighbor operator field <|k|> [...].
type KNN struct {
	Vector []float64
	K      int
}

// operators maps lookup suffixes to table entries. "in" and "nin" are
// aliases kept for callers used to the shorter spelling.
var operators = map[string]Operator{
	"eq":            OpEq,
	"ne":            OpNe,
	"gt":            OpGt,
	"gte":           OpGte,
	"lt":            OpLt,
	"lte":           OpLte,
	"in":            OpInside,
	"inside":        OpInside,
	"nin":           OpNotInside,
	"not_inside":    OpNotInside,
	"contains":      OpContains,
	"startswith":    OpStartsWith,
	"endswith":      OpEndsWith,
	"regex":         OpRegex,
	"contains_any":  OpContainsAny,
	"contains_all":  OpContainsAll,
	"contains_none": OpContainsNone,
	"all_inside":    OpAllInside,
	"any_inside":    OpAnyInside,
	"none_inside":   OpNoneInside,
	"knn":           OpKNN,
}

// Valid reports whether op is a member of the operator table.
func (op Operator) Valid() bool {
	for _, known := range operators {
		if op == known {
			return true
		}
	}
	return false
}

var comparisons = map[Operator]string{
	OpEq:  "=",
	OpNe:  "!=",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

type fieldSet map[string]struct{}

// splitLookup resolves a lookup key like "settings__theme__ne" into a
// dotted field path and an operator. The delimiter is "__": the last
// segment must name an operator (longest suffix wins because segments
// never contain "__" themselves); keys without a delimiter read as plain
// equality. A field whose final segment collides with an operator name is
// disambiguated with an explicit trailing "__eq"; when a known-fields set
// is available the whole key is matched against it — both as the dotted
// path it would spell and verbatim — and a collision is reported instead
// of silently picking the operator reading.
func splitLookup(key string, known fieldSet) (string, Operator, error) {
	if !strings.Contains(key, "__") {
		return key, OpEq, nil
	}
	idx := strings.LastIndex(key, "__")
	head, tail := key[:idx], key[idx+2:]
	op, ok := operators[tail]
	if !ok {
		return "", "", fmt.Errorf("%w: %q in lookup %q", ErrUnknownOperator, tail, key)
	}
	field := strings.ReplaceAll(head, "__", ".")
	if known != nil && tail != "eq" {
		full := strings.ReplaceAll(key, "__", ".")
		_, clash := known[full]
		if !clash {
			_, clash = known[key]
		}
		if clash {
			return "", "", fmt.Errorf(
				"%w: %q reads as both field %q and a %s lookup on %q (append __eq to disambiguate)",
				ErrAmbiguousField, key, full, tail, field)
		}
	}
	return field, op, nil
}

// renderPredicate renders one field-operator-value triple as a SurrealQL
// boolean fragment.
func renderPredicate(field string, op Operator, value any) (string, error) {
	f := EscapeIdent(field)
	// Comparisons against the identity field expect native record literals.
	ref := field == "id" || strings.HasSuffix(field, ".id")

	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		lit, err := escapeValue(value, ref)
		if err != nil {
			return "", err
		}
		return f + " " + comparisons[op] + " " + lit, nil

	case OpInside, OpNotInside:
		// INSIDE array literals are a reference position: record-id-shaped
		// strings stay unquoted so membership compares records, not text.
		lit, err := escapeValue(value, true)
		if err != nil {
			return "", err
		}
		if op == OpNotInside {
			return f + " NOT INSIDE " + lit, nil
		}
		return f + " INSIDE " + lit, nil

	case OpContains:
		// Substring test for string values, array containment otherwise.
		if s, ok := value.(string); ok {
			return "string::contains(" + f + ", " + quoteString(s) + ")", nil
		}
		lit, err := escapeValue(value, false)
		if err != nil {
			return "", err
		}
		return f + " CONTAINS " + lit, nil

	case OpStartsWith, OpEndsWith, OpRegex:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s expects a string value, got %T", ErrEscape, op, value)
		}
		fn := map[Operator]string{
			OpStartsWith: "string::startsWith",
			OpEndsWith:   "string::endsWith",
			OpRegex:      "string::matches",
		}[op]
		return fn + "(" + f + ", " + quoteString(s) + ")", nil

	case OpContainsAny, OpContainsAll, OpContainsNone, OpAllInside, OpAnyInside, OpNoneInside:
		lit, err := escapeValue(value, true)
		if err != nil {
			return "", err
		}
		kw := map[Operator]string{
			OpContainsAny:  "CONTAINSANY",
			OpContainsAll:  "CONTAINSALL",
			OpContainsNone: "CONTAINSNONE",
			OpAllInside:    "ALLINSIDE",
			OpAnyInside:    "ANYINSIDE",
			OpNoneInside:   "NONEINSIDE",
		}[op]
		return f + " " + kw + " " + lit, nil

	case OpKNN:
		kv, ok := value.(KNN)
		if !ok {
			return "", fmt.Errorf("%w: knn expects a surql.KNN value, got %T", ErrEscape, value)
		}
		if kv.K <= 0 {
			return "", fmt.Errorf("%w: knn candidate count must be positive, got %d", ErrEscape, kv.K)
		}
		lit, err := escapeValue(kv.Vector, false)
		if err != nil {
			return "", err
		}
		return f + " <|" + strconv.Itoa(kv.K) + "|> " + lit, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, op)
}
