package surgo

import (
	"context"

	"github.com/kailas-cloud/surgo/pkg/surql"
)

// AggregateQuery is a fluent, immutable aggregation pipeline bound to a
// client. Stage order is enforced: Match before Group, Having/Sort/Limit
// after.
type AggregateQuery struct {
	c    *Client
	pipe surql.Pipeline
}

// Aggregate starts an aggregation pipeline against a table.
func (c *Client) Aggregate(table string) AggregateQuery {
	return AggregateQuery{c: c, pipe: surql.NewPipeline(table)}
}

// Err returns the first construction error, if any.
func (a AggregateQuery) Err() error { return a.pipe.Err() }

// Match filters input rows before grouping.
func (a AggregateQuery) Match(n Node) AggregateQuery {
	a.pipe = a.pipe.Match(n)
	return a
}

// MatchWhere filters input rows with lookup expressions.
func (a AggregateQuery) MatchWhere(lookups Lookups) AggregateQuery {
	a.pipe = a.pipe.MatchLookups(lookups)
	return a
}

// Group sets the grouping fields and named aggregations. Empty by means
// a single group over all rows.
func (a AggregateQuery) Group(by []string, aggs map[string]Aggregate) AggregateQuery {
	a.pipe = a.pipe.Group(by, aggs)
	return a
}

// Having filters grouped rows; conditions may reference aggregation
// aliases and grouping fields only.
func (a AggregateQuery) Having(n Node) AggregateQuery {
	a.pipe = a.pipe.Having(n)
	return a
}

// HavingWhere filters grouped rows with lookup expressions.
func (a AggregateQuery) HavingWhere(lookups Lookups) AggregateQuery {
	a.pipe = a.pipe.HavingLookups(lookups)
	return a
}

// Sort orders grouped rows.
func (a AggregateQuery) Sort(field string, dir Direction) AggregateQuery {
	a.pipe = a.pipe.Sort(field, dir)
	return a
}

// Limit caps the number of grouped rows.
func (a AggregateQuery) Limit(n int) AggregateQuery {
	a.pipe = a.pipe.Limit(n)
	return a
}

// Render returns the pipeline's SurrealQL text without executing it.
func (a AggregateQuery) Render() (string, error) {
	return a.pipe.Render()
}

// All executes the pipeline and returns normalized rows.
func (a AggregateQuery) All(ctx context.Context) ([]Row, error) {
	query, err := a.pipe.Render()
	if err != nil {
		return nil, err
	}
	return a.c.run(ctx, query)
}
