package surgo

import "github.com/kailas-cloud/surgo/pkg/surql"

// Re-exported compiler types so typical callers never import pkg/surql.
type (
	// Node is a compiled filter expression tree.
	Node = surql.Node
	// Row is a normalized result row.
	Row = surql.Row
	// RecordID is a structured record reference (table plus key).
	RecordID = surql.RecordID
	// Direction is a sort direction for OrderBy and Sort.
	Direction = surql.Direction
	// KNN is a vector nearest-neighbour operand for the knn lookup suffix.
	KNN = surql.KNN
	// Aggregate is a named aggregation for pipeline Group stages.
	Aggregate = surql.Aggregate
	// QueryError carries the failing query text alongside the database message.
	QueryError = surql.QueryError
	// Operator is a filter operator from the fixed lookup table.
	Operator = surql.Operator
)

const (
	OpEq           = surql.OpEq
	OpNe           = surql.OpNe
	OpGt           = surql.OpGt
	OpGte          = surql.OpGte
	OpLt           = surql.OpLt
	OpLte          = surql.OpLte
	OpInside       = surql.OpInside
	OpNotInside    = surql.OpNotInside
	OpContains     = surql.OpContains
	OpStartsWith   = surql.OpStartsWith
	OpEndsWith     = surql.OpEndsWith
	OpRegex        = surql.OpRegex
	OpContainsAny  = surql.OpContainsAny
	OpContainsAll  = surql.OpContainsAll
	OpContainsNone = surql.OpContainsNone
	OpAllInside    = surql.OpAllInside
	OpAnyInside    = surql.OpAnyInside
	OpNoneInside   = surql.OpNoneInside
	OpKNN          = surql.OpKNN
)

// Lookups is a set of field__operator expressions combined with AND.
type Lookups = map[string]any

const (
	Asc  = surql.Asc
	Desc = surql.Desc
)

// NewRecordID builds a record reference.
func NewRecordID(table, key string) RecordID { return surql.NewRecordID(table, key) }

// ParseRecordID parses "table:key" into a RecordID.
func ParseRecordID(s string) (RecordID, bool) { return surql.ParseRecordID(s) }

// Cond compiles a single lookup expression into a filter node.
func Cond(lookup string, value any) (Node, error) { return surql.Cond(lookup, value) }

// Pred builds a filter node from an explicit field, operator and value.
func Pred(field string, op Operator, value any) (Node, error) {
	return surql.Pred(field, op, value)
}

// Where compiles a lookup map into a filter node (conditions ANDed,
// deterministic field order).
func Where(lookups Lookups) (Node, error) { return surql.Where(lookups) }

// Raw wraps pre-rendered SurrealQL as a filter node. The text is embedded
// verbatim; the caller owns its safety.
func Raw(text string) Node { return surql.Raw(text) }

// And combines two nodes with AND. Nil operands are dropped.
func And(left, right Node) Node { return surql.And(left, right) }

// Or combines two nodes with OR. Nil operands are dropped.
func Or(left, right Node) Node { return surql.Or(left, right) }

// Not negates a node.
func Not(n Node) Node { return surql.Not(n) }

// Aggregation constructors for Group stages.

func Count() Aggregate                        { return surql.Count() }
func CountIf(cond Node) Aggregate             { return surql.CountIf(cond) }
func Sum(field string) Aggregate              { return surql.Sum(field) }
func SumIf(field string, cond Node) Aggregate { return surql.SumIf(field, cond) }
func Mean(field string) Aggregate             { return surql.Mean(field) }
func MeanIf(field string, cond Node) Aggregate {
	return surql.MeanIf(field, cond)
}
func Min(field string) Aggregate              { return surql.Min(field) }
func MinIf(field string, cond Node) Aggregate { return surql.MinIf(field, cond) }
func Max(field string) Aggregate              { return surql.Max(field) }
func MaxIf(field string, cond Node) Aggregate { return surql.MaxIf(field, cond) }
func Median(field string) Aggregate           { return surql.Median(field) }
func StdDev(field string) Aggregate           { return surql.StdDev(field) }
func Variance(field string) Aggregate         { return surql.Variance(field) }
func Percentile(field string, p float64) Aggregate {
	return surql.Percentile(field, p)
}
func Distinct(field string) Aggregate      { return surql.Distinct(field) }
func DistinctCount(field string) Aggregate { return surql.DistinctCount(field) }
func GroupConcat(field, sep string) Aggregate {
	return surql.GroupConcat(field, sep)
}
