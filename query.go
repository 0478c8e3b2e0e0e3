package surgo

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/surgo/pkg/surql"
)

// Query is a fluent, immutable query builder bound to a client. Every
// builder method returns a copy; the first construction error latches and
// surfaces on execution.
type Query struct {
	c    *Client
	plan surql.Plan
}

// Query starts a query against a table.
func (c *Client) Query(table string) Query {
	return Query{c: c, plan: surql.NewPlan(table)}
}

// Err returns the first construction error, if any.
func (q Query) Err() error { return q.plan.Err() }

// Relations declares record-link fields (field name to target table).
// Declared relations validate Fetch targets and lookup field names.
func (q Query) Relations(rel map[string]string) Query {
	q.plan = q.plan.WithRelations(rel)
	return q
}

// Filter adds a compiled filter node, ANDed with previous filters.
func (q Query) Filter(n Node) Query {
	q.plan = q.plan.Filter(n)
	return q
}

// Where adds lookup-expression filters, ANDed with previous filters.
func (q Query) Where(lookups Lookups) Query {
	q.plan = q.plan.FilterLookups(lookups)
	return q
}

// Fields restricts the projection (default "*").
func (q Query) Fields(fields ...string) Query {
	q.plan = q.plan.Fields(fields...)
	return q
}

// Omit excludes fields from a "*" projection.
func (q Query) Omit(fields ...string) Query {
	q.plan = q.plan.Omit(fields...)
	return q
}

// OrderBy appends a sort key.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.plan = q.plan.OrderBy(field, dir)
	return q
}

// Limit caps the number of rows.
func (q Query) Limit(n int) Query {
	q.plan = q.plan.Limit(n)
	return q
}

// Start skips the first n rows.
func (q Query) Start(n int) Query {
	q.plan = q.plan.Start(n)
	return q
}

// Split flattens array fields into one row per element.
func (q Query) Split(fields ...string) Query {
	q.plan = q.plan.Split(fields...)
	return q
}

// GroupBy groups rows by the given fields.
func (q Query) GroupBy(fields ...string) Query {
	q.plan = q.plan.GroupBy(fields...)
	return q
}

// GroupAll collapses all rows into a single group.
func (q Query) GroupAll() Query {
	q.plan = q.plan.GroupAll()
	return q
}

// Fetch hydrates record-link fields in place. Targets must be declared
// via Relations.
func (q Query) Fetch(targets ...string) Query {
	q.plan = q.plan.Fetch(targets...)
	return q
}

// WithIndex forces the named indexes.
func (q Query) WithIndex(names ...string) Query {
	q.plan = q.plan.WithIndex(names...)
	return q
}

// NoIndex forces a table scan.
func (q Query) NoIndex() Query {
	q.plan = q.plan.NoIndex()
	return q
}

// Timeout bounds query execution on the server.
func (q Query) Timeout(d time.Duration) Query {
	q.plan = q.plan.Timeout(d)
	return q
}

// Parallel requests parallel execution.
func (q Query) Parallel() Query {
	q.plan = q.plan.Parallel()
	return q
}

// Tempfiles allows the server to spill to disk.
func (q Query) Tempfiles() Query {
	q.plan = q.plan.Tempfiles()
	return q
}

// Explain returns the query plan instead of rows.
func (q Query) Explain(full bool) Query {
	q.plan = q.plan.Explain(full)
	return q
}

// Out adds an outgoing graph hop over the edge table.
func (q Query) Out(edge string) Query {
	q.plan = q.plan.Out(edge)
	return q
}

// In adds an incoming graph hop over the edge table.
func (q Query) In(edge string) Query {
	q.plan = q.plan.In(edge)
	return q
}

// Both adds a bidirectional graph hop over the edge table.
func (q Query) Both(edge string) Query {
	q.plan = q.plan.Both(edge)
	return q
}

// Target hydrates the last hop with the target table's fields.
func (q Query) Target(table string) Query {
	q.plan = q.plan.Target(table)
	return q
}

// Traverse follows a graph path recursively up to maxDepth hops. With
// unique set, duplicate records are collapsed.
func (q Query) Traverse(path string, maxDepth int, unique bool) Query {
	q.plan = q.plan.Traverse(path, maxDepth, unique)
	return q
}

// Render returns the SELECT text without executing it.
func (q Query) Render() (string, error) {
	return q.plan.Render()
}

// All executes the query and returns normalized rows.
func (q Query) All(ctx context.Context) ([]Row, error) {
	query, err := q.plan.Render()
	if err != nil {
		return nil, err
	}
	return q.c.run(ctx, query)
}

// First returns the first matching row, or ErrNoRows.
func (q Query) First(ctx context.Context) (Row, error) {
	rows, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// One returns exactly one matching row; ErrNoRows on none and
// ErrMultipleRows if the match is not unique.
func (q Query) One(ctx context.Context) (Row, error) {
	rows, err := q.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNoRows
	case 1:
		return rows[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

// Count returns the number of rows matching the query's filters. Ordering
// and pagination are not part of the counted set: Limit and Start are
// dropped from the rendered count query, so the full filtered set is
// counted even on a paginated query.
func (q Query) Count(ctx context.Context) (int, error) {
	query, err := q.plan.RenderCount()
	if err != nil {
		return 0, err
	}
	rows, err := q.c.run(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	v, err := surql.Scalar(rows)
	if err != nil {
		return 0, err
	}
	return toInt(v)
}

// Page returns one page of results, 1-based.
func (q Query) Page(ctx context.Context, page, perPage int) ([]Row, error) {
	if page < 1 || perPage < 1 {
		return nil, fmt.Errorf("surgo: page and perPage must be positive")
	}
	return q.Limit(perPage).Start((page - 1) * perPage).All(ctx)
}

// Update replaces the given fields on all matching records.
func (q Query) Update(ctx context.Context, data map[string]any) ([]Row, error) {
	query, err := q.plan.RenderUpdate(data)
	if err != nil {
		return nil, err
	}
	return q.c.run(ctx, query)
}

// Merge deep-merges the given object into all matching records.
func (q Query) Merge(ctx context.Context, data map[string]any) ([]Row, error) {
	query, err := q.plan.RenderMerge(data)
	if err != nil {
		return nil, err
	}
	return q.c.run(ctx, query)
}

// Delete removes all matching records.
func (q Query) Delete(ctx context.Context) error {
	query, err := q.plan.RenderDelete()
	if err != nil {
		return err
	}
	_, err = q.c.run(ctx, query)
	return err
}

// Insert bulk-inserts documents into the query's table.
func (q Query) Insert(ctx context.Context, docs []map[string]any) ([]Row, error) {
	query, err := q.plan.RenderInsert(docs)
	if err != nil {
		return nil, err
	}
	return q.c.run(ctx, query)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("surgo: count is not numeric: %T", v)
	}
}
