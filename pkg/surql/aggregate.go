package surql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type aggKind int

const (
	aggCount aggKind = iota
	aggSum
	aggMean
	aggMin
	aggMax
	aggMedian
	aggStdDev
	aggVariance
	aggPercentile
	aggDistinct
	aggDistinctCount
	aggGroupConcat
)

// Aggregate is one aggregate function applied within a Group stage.
// Conditional variants carry an embedded condition compiled inline into the
// aggregate expression, never as a post-filter.
type Aggregate struct {
	kind  aggKind
	field string
	cond  Node
	p     float64
	sep   string
}

// Count counts rows in the group.
func Count() Aggregate { return Aggregate{kind: aggCount} }

// CountIf counts rows satisfying cond.
func CountIf(cond Node) Aggregate { return Aggregate{kind: aggCount, cond: cond} }

// Sum totals a numeric field.
func Sum(field string) Aggregate { return Aggregate{kind: aggSum, field: field} }

// SumIf totals a numeric field over rows satisfying cond.
func SumIf(field string, cond Node) Aggregate {
	return Aggregate{kind: aggSum, field: field, cond: cond}
}

// Mean averages a numeric field.
func Mean(field string) Aggregate { return Aggregate{kind: aggMean, field: field} }

// MeanIf averages a numeric field over rows satisfying cond.
func MeanIf(field string, cond Node) Aggregate {
	return Aggregate{kind: aggMean, field: field, cond: cond}
}

// Min takes the smallest value of a field.
func Min(field string) Aggregate { return Aggregate{kind: aggMin, field: field} }

// MinIf takes the smallest value over rows satisfying cond.
func MinIf(field string, cond Node) Aggregate {
	return Aggregate{kind: aggMin, field: field, cond: cond}
}

// Max takes the largest value of a field.
func Max(field string) Aggregate { return Aggregate{kind: aggMax, field: field} }

// MaxIf takes the largest value over rows satisfying cond.
func MaxIf(field string, cond Node) Aggregate {
	return Aggregate{kind: aggMax, field: field, cond: cond}
}

// Median takes the middle value of a numeric field.
func Median(field string) Aggregate { return Aggregate{kind: aggMedian, field: field} }

// StdDev computes the standard deviation of a numeric field.
func StdDev(field string) Aggregate { return Aggregate{kind: aggStdDev, field: field} }

// Variance computes the variance of a numeric field.
func Variance(field string) Aggregate { return Aggregate{kind: aggVariance, field: field} }

// Percentile computes the p-th percentile of a numeric field.
func Percentile(field string, p float64) Aggregate {
	return Aggregate{kind: aggPercentile, field: field, p: p}
}

// Distinct collects the deduplicated values of a field.
func Distinct(field string) Aggregate { return Aggregate{kind: aggDistinct, field: field} }

// DistinctCount counts deduplicated values: collect-distinct-then-length,
// not a naive count, because group aggregates operate on multisets.
func DistinctCount(field string) Aggregate {
	return Aggregate{kind: aggDistinctCount, field: field}
}

// GroupConcat joins the group's values of a field with sep.
func GroupConcat(field, sep string) Aggregate {
	return Aggregate{kind: aggGroupConcat, field: field, sep: sep}
}

// render produces the aggregate expression text (without alias).
func (a Aggregate) render() (string, error) {
	f := EscapeIdent(a.field)

	if a.kind == aggCount {
		if a.cond == nil {
			return "count()", nil
		}
		// count(expr) adds one per row where expr is truthy.
		c, err := a.cond.Compile()
		if err != nil {
			return "", err
		}
		return "count(" + c + ")", nil
	}

	// Conditional numeric variants wrap the field in a per-row IF that
	// yields a single-element or empty array; flattening across the group
	// leaves only the matching values.
	expr := f
	if a.cond != nil {
		c, err := a.cond.Compile()
		if err != nil {
			return "", err
		}
		expr = "array::flatten(IF " + c + " THEN [" + f + "] ELSE [] END)"
	}

	switch a.kind {
	case aggSum:
		return "math::sum(" + expr + ")", nil
	case aggMean:
		return "math::mean(" + expr + ")", nil
	case aggMin:
		return "math::min(" + expr + ")", nil
	case aggMax:
		return "math::max(" + expr + ")", nil
	case aggMedian:
		return "math::median(" + expr + ")", nil
	case aggStdDev:
		return "math::stddev(" + expr + ")", nil
	case aggVariance:
		return "math::variance(" + expr + ")", nil
	case aggPercentile:
		return "math::percentile(" + expr + ", " + strconv.FormatFloat(a.p, 'g', -1, 64) + ")", nil
	case aggDistinct:
		return "array::distinct(" + expr + ")", nil
	case aggDistinctCount:
		return "array::len(array::distinct(" + expr + "))", nil
	case aggGroupConcat:
		return "array::join(" + expr + ", " + quoteString(a.sep) + ")", nil
	}
	return "", fmt.Errorf("%w: unknown aggregate", ErrPlan)
}

// Pipeline is a staged aggregation over one table:
// match → group (once) → having → sort/limit. Like Plan, every method
// returns a derived copy and latches the first construction error.
type Pipeline struct {
	table    string
	match    Node
	grouped  bool
	groupBy  []string
	aggNames []string
	aggs     map[string]Aggregate
	having   Node
	orders   []Order
	limit    *int
	err      error
}

// NewPipeline creates an empty pipeline over a table.
func NewPipeline(table string) Pipeline {
	return Pipeline{table: table}
}

// Err returns the first construction error latched so far.
func (p Pipeline) Err() error { return p.err }

func (p Pipeline) fail(err error) Pipeline {
	if p.err == nil {
		p.err = err
	}
	return p
}

// Match conjoins a pre-aggregation filter. Only valid before Group.
func (p Pipeline) Match(n Node) Pipeline {
	if p.grouped {
		return p.fail(fmt.Errorf("%w: match after group stage", ErrPlan))
	}
	p.match = And(p.match, n)
	return p
}

// MatchLookups conjoins a lookup map as the pre-aggregation filter.
func (p Pipeline) MatchLookups(lookups map[string]any) Pipeline {
	n, err := Where(lookups)
	if err != nil {
		return p.fail(err)
	}
	return p.Match(n)
}

// Group sets the grouping fields and named aggregates. Valid once; a second
// call is a duplicate group stage error. Aggregates requested with no
// grouping fields collapse every row into a single GROUP ALL bucket.
func (p Pipeline) Group(by []string, aggs map[string]Aggregate) Pipeline {
	if p.grouped {
		return p.fail(fmt.Errorf("%w: duplicate group stage", ErrPlan))
	}
	p.grouped = true
	p.groupBy = appendCopy(nil, by...)

	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)
	p.aggNames = names
	m := make(map[string]Aggregate, len(aggs))
	for k, v := range aggs {
		m[k] = v
	}
	p.aggs = m
	return p
}

// Having filters grouped results. Conditions reference aggregate output
// aliases (or grouping fields), not source fields; referencing anything
// else is a plan error.
func (p Pipeline) Having(n Node) Pipeline {
	if !p.grouped {
		return p.fail(fmt.Errorf("%w: having before group stage", ErrPlan))
	}
	if err := p.checkAliases(n); err != nil {
		return p.fail(err)
	}
	p.having = And(p.having, n)
	return p
}

// HavingLookups filters grouped results with a lookup map over aliases.
func (p Pipeline) HavingLookups(lookups map[string]any) Pipeline {
	n, err := Where(lookups)
	if err != nil {
		return p.fail(err)
	}
	return p.Having(n)
}

// Sort orders the grouped result. Only valid after Group.
func (p Pipeline) Sort(field string, dir Direction) Pipeline {
	if !p.grouped {
		return p.fail(fmt.Errorf("%w: sort before group stage", ErrPlan))
	}
	if dir != Asc && dir != Desc {
		return p.fail(fmt.Errorf("%w: sort direction must be ASC or DESC, got %q", ErrPlan, dir))
	}
	orders := make([]Order, len(p.orders), len(p.orders)+1)
	copy(orders, p.orders)
	p.orders = append(orders, Order{Field: field, Dir: dir})
	return p
}

// Limit caps the number of grouped rows. Only valid after Group.
func (p Pipeline) Limit(n int) Pipeline {
	if !p.grouped {
		return p.fail(fmt.Errorf("%w: limit before group stage", ErrPlan))
	}
	if n < 0 {
		return p.fail(fmt.Errorf("%w: limit must be non-negative, got %d", ErrPlan, n))
	}
	p.limit = &n
	return p
}

// checkAliases verifies that every leaf of a having tree references an
// aggregate alias or a grouping field. Raw fragments are opaque and skip
// the check; they are the caller's responsibility.
func (p Pipeline) checkAliases(n Node) error {
	var bad string
	ok := walkLeaves(n, func(l leaf) bool {
		if _, found := p.aggs[l.field]; found {
			return true
		}
		for _, g := range p.groupBy {
			if g == l.field {
				return true
			}
		}
		bad = l.field
		return false
	})
	if !ok && bad != "" {
		return fmt.Errorf("%w: having references %q, which is neither an aggregate alias nor a grouping field", ErrPlan, bad)
	}
	return nil
}

// Render produces the aggregation query. SurrealQL has no HAVING keyword,
// so an alias filter wraps the grouped statement in an outer subquery
// select; ordering and pagination always attach to the outermost query.
func (p Pipeline) Render() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if !p.grouped {
		return "", fmt.Errorf("%w: pipeline has no group stage", ErrPlan)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	wrote := false
	for _, g := range p.groupBy {
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString(EscapeIdent(g))
		wrote = true
	}
	for _, name := range p.aggNames {
		expr, err := p.aggs[name].render()
		if err != nil {
			return "", err
		}
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString(expr)
		b.WriteString(" AS ")
		b.WriteString(EscapeIdent(name))
		wrote = true
	}
	if !wrote {
		return "", fmt.Errorf("%w: group stage with no fields and no aggregates", ErrPlan)
	}

	b.WriteString(" FROM ")
	b.WriteString(EscapeIdent(p.table))

	if p.match != nil {
		where, err := p.match.Compile()
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(p.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(joinIdents(p.groupBy))
	} else {
		b.WriteString(" GROUP ALL")
	}

	if p.having == nil {
		var tail strings.Builder
		writeTail(&tail, p.orders, p.limit, nil)
		return b.String() + tail.String(), nil
	}

	havingText, err := p.having.Compile()
	if err != nil {
		return "", err
	}
	var outer strings.Builder
	outer.WriteString("SELECT * FROM (")
	outer.WriteString(b.String())
	outer.WriteString(") WHERE ")
	outer.WriteString(havingText)
	writeTail(&outer, p.orders, p.limit, nil)
	return outer.String(), nil
}
