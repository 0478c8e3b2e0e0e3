package surql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Direction orders query results.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY entry.
type Order struct {
	Field string
	Dir   Direction
}

// Plan is the accumulated, immutable description of a SELECT query. Every
// builder method returns a derived copy; a plan handed to one caller never
// changes because another caller kept chaining. The first construction
// error is latched and surfaced by Render.
type Plan struct {
	table     string
	fields    []string
	omit      []string
	cond      Node
	split     []string
	groupBy   []string
	groupAll  bool
	orders    []Order
	limit     *int
	start     *int
	fetch     []string
	timeout   time.Duration
	parallel  bool
	tempfiles bool
	explain   bool
	full      bool
	withIndex []string
	noIndex   bool

	hops    []Hop  // traversal steps, rendered as a projection
	rawPath string // raw traversal path from Traverse, overrides hops

	relations map[string]string // known relation fields, nil when no schema
	err       error
}

// NewPlan creates an empty plan over a table.
func NewPlan(table string) Plan {
	return Plan{table: table}
}

// Table returns the source table name.
func (p Plan) Table() string { return p.table }

// Err returns the first construction error latched so far.
func (p Plan) Err() error { return p.err }

// WithRelations attaches relation metadata (field name → target table).
// When present, Fetch targets are validated against it and lookup keys
// colliding with operator names are reported as ambiguous.
func (p Plan) WithRelations(rel map[string]string) Plan {
	m := make(map[string]string, len(rel))
	for k, v := range rel {
		m[k] = v
	}
	p.relations = m
	return p
}

func (p Plan) fail(err error) Plan {
	if p.err == nil {
		p.err = err
	}
	return p
}

// knownFields derives the ambiguity-check set from relation metadata.
func (p Plan) knownFields() fieldSet {
	if p.relations == nil {
		return nil
	}
	fs := make(fieldSet, len(p.relations))
	for f := range p.relations {
		fs[f] = struct{}{}
	}
	return fs
}

// Filter conjoins a condition tree with the existing one.
func (p Plan) Filter(n Node) Plan {
	p.cond = And(p.cond, n)
	return p
}

// FilterLookups conjoins a lookup map (sorted key order) with the existing
// condition tree. Unknown operator suffixes latch an error immediately.
func (p Plan) FilterLookups(lookups map[string]any) Plan {
	n, err := whereWithFields(lookups, p.knownFields())
	if err != nil {
		return p.fail(err)
	}
	return p.Filter(n)
}

// Fields replaces the projection (default is *).
func (p Plan) Fields(fields ...string) Plan {
	p.fields = appendCopy(nil, fields...)
	return p
}

// Omit adds fields to the OMIT clause.
func (p Plan) Omit(fields ...string) Plan {
	p.omit = appendCopy(p.omit, fields...)
	return p
}

// OrderBy appends an ORDER BY entry.
func (p Plan) OrderBy(field string, dir Direction) Plan {
	if dir != Asc && dir != Desc {
		return p.fail(fmt.Errorf("%w: order direction must be ASC or DESC, got %q", ErrPlan, dir))
	}
	orders := make([]Order, len(p.orders), len(p.orders)+1)
	copy(orders, p.orders)
	p.orders = append(orders, Order{Field: field, Dir: dir})
	return p
}

// Limit caps the number of returned rows. n must be non-negative.
func (p Plan) Limit(n int) Plan {
	if n < 0 {
		return p.fail(fmt.Errorf("%w: limit must be non-negative, got %d", ErrPlan, n))
	}
	p.limit = &n
	return p
}

// Start skips the first n rows. n must be non-negative.
func (p Plan) Start(n int) Plan {
	if n < 0 {
		return p.fail(fmt.Errorf("%w: start must be non-negative, got %d", ErrPlan, n))
	}
	p.start = &n
	return p
}

// Split adds SPLIT fields (one row per array element).
func (p Plan) Split(fields ...string) Plan {
	p.split = appendCopy(p.split, fields...)
	return p
}

// GroupBy groups by explicit fields. Mutually exclusive with GroupAll.
func (p Plan) GroupBy(fields ...string) Plan {
	if p.groupAll {
		return p.fail(fmt.Errorf("%w: group by fields combined with group all", ErrPlan))
	}
	p.groupBy = appendCopy(p.groupBy, fields...)
	return p
}

// GroupAll groups every row into a single bucket. Mutually exclusive with
// GroupBy.
func (p Plan) GroupAll() Plan {
	if len(p.groupBy) > 0 {
		return p.fail(fmt.Errorf("%w: group all combined with group by fields", ErrPlan))
	}
	p.groupAll = true
	return p
}

// Fetch dereferences relation fields in the result. When relation metadata
// is attached, unknown targets latch an error.
func (p Plan) Fetch(targets ...string) Plan {
	if p.relations != nil {
		for _, t := range targets {
			if _, ok := p.relations[t]; !ok {
				return p.fail(fmt.Errorf("%w: fetch target %q is not a declared relation", ErrPlan, t))
			}
		}
	}
	p.fetch = appendCopy(p.fetch, targets...)
	return p
}

// WithIndex hints the planner to use the named indexes. Mutually exclusive
// with NoIndex.
func (p Plan) WithIndex(names ...string) Plan {
	if p.noIndex {
		return p.fail(fmt.Errorf("%w: with index combined with no index", ErrPlan))
	}
	p.withIndex = appendCopy(p.withIndex, names...)
	return p
}

// NoIndex forces a table scan. Mutually exclusive with WithIndex.
func (p Plan) NoIndex() Plan {
	if len(p.withIndex) > 0 {
		return p.fail(fmt.Errorf("%w: no index combined with with index", ErrPlan))
	}
	p.noIndex = true
	return p
}

// Timeout aborts the query server-side after d.
func (p Plan) Timeout(d time.Duration) Plan {
	p.timeout = d
	return p
}

// Parallel requests parallel execution.
func (p Plan) Parallel() Plan {
	p.parallel = true
	return p
}

// Tempfiles allows the server to spill to disk.
func (p Plan) Tempfiles() Plan {
	p.tempfiles = true
	return p
}

// Explain returns the execution plan instead of data rows.
func (p Plan) Explain(full bool) Plan {
	p.explain = true
	p.full = full
	return p
}

// Render produces the final SELECT statement. It fails fast — no partial
// clause text — when the plan is inconsistent or a value cannot be escaped.
func (p Plan) Render() (string, error) {
	if p.err != nil {
		return "", p.err
	}

	source, where, err := p.sourceAndWhere()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(p.projection())

	if len(p.omit) > 0 {
		b.WriteString(" OMIT ")
		b.WriteString(joinIdents(p.omit))
	}

	b.WriteString(" FROM ")
	b.WriteString(source)

	if len(p.withIndex) > 0 {
		b.WriteString(" WITH INDEX ")
		b.WriteString(joinIdents(p.withIndex))
	} else if p.noIndex {
		b.WriteString(" WITH NOINDEX")
	}

	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(p.split) > 0 {
		b.WriteString(" SPLIT ")
		b.WriteString(joinIdents(p.split))
	}

	if p.groupAll {
		b.WriteString(" GROUP ALL")
	} else if len(p.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(joinIdents(p.groupBy))
	}

	writeTail(&b, p.orders, p.limit, p.start)

	// FETCH comes after ORDER BY/LIMIT/START: SurrealQL rejects it earlier.
	if len(p.fetch) > 0 {
		b.WriteString(" FETCH ")
		b.WriteString(joinIdents(p.fetch))
	}

	if p.timeout > 0 {
		b.WriteString(" TIMEOUT ")
		b.WriteString(formatDuration(p.timeout))
	}
	if p.parallel {
		b.WriteString(" PARALLEL")
	}
	if p.tempfiles {
		b.WriteString(" TEMPFILES")
	}
	if p.explain {
		b.WriteString(" EXPLAIN")
		if p.full {
			b.WriteString(" FULL")
		}
	}

	return b.String(), nil
}

// RenderCount wraps the plan in a count query: the inner statement keeps
// every filter but drops ordering and pagination, the outer one counts.
func (p Plan) RenderCount() (string, error) {
	inner := p
	inner.orders = nil
	inner.limit = nil
	inner.start = nil
	inner.fetch = nil
	sub, err := inner.Render()
	if err != nil {
		return "", err
	}
	return "SELECT count() AS count FROM (" + sub + ") GROUP ALL", nil
}

// RenderUpdate renders an UPDATE ... SET statement reusing the plan's
// source rewrite and WHERE tree. Field order is deterministic (sorted).
func (p Plan) RenderUpdate(data map[string]any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: update with no fields", ErrPlan)
	}
	source, where, err := p.sourceAndWhere()
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(source)
	b.WriteString(" SET ")
	for i, k := range keys {
		lit, err := EscapeLiteral(data[k])
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(EscapeIdent(k))
		b.WriteString(" = ")
		b.WriteString(lit)
	}
	p.writeWriteTail(&b, where)
	return b.String(), nil
}

// RenderMerge renders an UPDATE ... MERGE statement with an object literal.
func (p Plan) RenderMerge(data map[string]any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	source, where, err := p.sourceAndWhere()
	if err != nil {
		return "", err
	}
	obj, err := EscapeLiteral(data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(source)
	b.WriteString(" MERGE ")
	b.WriteString(obj)
	p.writeWriteTail(&b, where)
	return b.String(), nil
}

// RenderDelete renders a DELETE statement reusing the plan's source rewrite
// and WHERE tree.
func (p Plan) RenderDelete() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	source, where, err := p.sourceAndWhere()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("DELETE ")
	b.WriteString(source)
	p.writeWriteTail(&b, where)
	return b.String(), nil
}

// RenderInsert renders a bulk INSERT INTO statement.
func (p Plan) RenderInsert(docs []map[string]any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("%w: insert with no documents", ErrPlan)
	}
	lit, err := EscapeLiteral(docs)
	if err != nil {
		return "", err
	}
	return "INSERT INTO " + EscapeIdent(p.table) + " " + lit, nil
}

// RenderRelate renders a RELATE statement creating a graph edge, optionally
// with edge attributes.
func RenderRelate(from RecordID, edge string, to RecordID, attrs map[string]any) (string, error) {
	if from.IsZero() || to.IsZero() {
		return "", fmt.Errorf("%w: relate requires both endpoint records", ErrPlan)
	}
	q := "RELATE " + from.String() + "->" + EscapeIdent(edge) + "->" + to.String()
	if len(attrs) > 0 {
		obj, err := EscapeLiteral(attrs)
		if err != nil {
			return "", err
		}
		q += " CONTENT " + obj
	}
	return q, nil
}

// writeWriteTail appends WHERE/TIMEOUT/PARALLEL to a write statement.
func (p Plan) writeWriteTail(b *strings.Builder, where string) {
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if p.timeout > 0 {
		b.WriteString(" TIMEOUT ")
		b.WriteString(formatDuration(p.timeout))
	}
	if p.parallel {
		b.WriteString(" PARALLEL")
	}
}

// projection picks the SELECT expression: traversal path, explicit fields,
// or *.
func (p Plan) projection() string {
	if p.rawPath != "" {
		return p.rawPath
	}
	if len(p.hops) > 0 {
		return renderHops(p.hops)
	}
	if len(p.fields) > 0 {
		return joinIdents(p.fields)
	}
	return "*"
}

// sourceAndWhere resolves the FROM source and WHERE text, applying the
// direct-record rewrite when the condition tree is exactly an identity
// lookup. The rewrite bypasses a table scan; anything beyond the exact
// shape falls back to a generic WHERE.
func (p Plan) sourceAndWhere() (string, string, error) {
	if err := p.checkConsistency(); err != nil {
		return "", "", err
	}
	if src, ok := p.directRecordSource(); ok {
		return src, "", nil
	}
	source := EscapeIdent(p.table)
	if p.cond == nil {
		return source, "", nil
	}
	where, err := p.cond.Compile()
	if err != nil {
		return "", "", err
	}
	return source, where, nil
}

func (p Plan) checkConsistency() error {
	if len(p.withIndex) > 0 && p.noIndex {
		return fmt.Errorf("%w: with index combined with no index", ErrPlan)
	}
	if p.groupAll && len(p.groupBy) > 0 {
		return fmt.Errorf("%w: group all combined with group by fields", ErrPlan)
	}
	return nil
}

// directRecordSource rewrites identity-only condition trees into direct
// record access: id equality and id INSIDE become multi-key sources, a
// gte+lte conjunction becomes a key range. Equivalence with the WHERE form
// must hold, so any other shape is left alone.
func (p Plan) directRecordSource() (string, bool) {
	switch t := p.cond.(type) {
	case leaf:
		if t.field != "id" {
			return "", false
		}
		switch t.op {
		case OpEq:
			ref, ok := p.recordRef(t.value)
			if !ok {
				return "", false
			}
			return ref, true
		case OpInside:
			return p.recordList(t.value)
		}
	case andNode:
		lo, hi, ok := idRangeBounds(t)
		if !ok {
			return "", false
		}
		loRef, ok := p.recordKey(lo)
		if !ok {
			return "", false
		}
		hiRef, ok := p.recordKey(hi)
		if !ok {
			return "", false
		}
		return EscapeIdent(p.table) + ":" + loRef + "..=" + hiRef, true
	}
	return "", false
}

// idRangeBounds matches exactly (id >= lo AND id <= hi) in either order.
func idRangeBounds(n andNode) (lo, hi any, ok bool) {
	l, lok := n.left.(leaf)
	r, rok := n.right.(leaf)
	if !lok || !rok || l.field != "id" || r.field != "id" {
		return nil, nil, false
	}
	switch {
	case l.op == OpGte && r.op == OpLte:
		return l.value, r.value, true
	case l.op == OpLte && r.op == OpGte:
		return r.value, l.value, true
	}
	return nil, nil, false
}

// recordRef renders one identity value as a full record literal.
func (p Plan) recordRef(v any) (string, bool) {
	switch x := v.(type) {
	case RecordID:
		if x.Table != "" && x.Table != p.table {
			return "", false
		}
		return RecordID{Table: p.table, Key: x.Key}.String(), true
	case string:
		if rid, ok := ParseRecordID(x); ok {
			if rid.Table != p.table {
				return "", false
			}
			return rid.String(), true
		}
		return RecordID{Table: p.table, Key: x}.String(), true
	case int:
		return p.table + ":" + strconv.Itoa(x), true
	case int64:
		return p.table + ":" + strconv.FormatInt(x, 10), true
	}
	return "", false
}

// recordKey renders only the key part, for range sources.
func (p Plan) recordKey(v any) (string, bool) {
	ref, ok := p.recordRef(v)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(ref, p.table+":"), true
}

// recordList renders an INSIDE value list as a comma-joined record source.
func (p Plan) recordList(v any) (string, bool) {
	vals, ok := v.([]any)
	if !ok {
		// tolerate homogeneous slices callers build naturally
		switch xs := v.(type) {
		case []string:
			vals = make([]any, len(xs))
			for i, s := range xs {
				vals[i] = s
			}
		case []RecordID:
			vals = make([]any, len(xs))
			for i, r := range xs {
				vals[i] = r
			}
		case []int:
			vals = make([]any, len(xs))
			for i, n := range xs {
				vals[i] = n
			}
		default:
			return "", false
		}
	}
	if len(vals) == 0 {
		return "", false
	}
	refs := make([]string, len(vals))
	for i, v := range vals {
		ref, ok := p.recordRef(v)
		if !ok {
			return "", false
		}
		refs[i] = ref
	}
	return strings.Join(refs, ", "), true
}

// writeTail appends ORDER BY, LIMIT and START in their fixed legal order.
func writeTail(b *strings.Builder, orders []Order, limit, start *int) {
	if len(orders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range orders {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(EscapeIdent(o.Field))
			b.WriteString(" ")
			b.WriteString(string(o.Dir))
		}
	}
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*limit))
	}
	if start != nil {
		b.WriteString(" START ")
		b.WriteString(strconv.Itoa(*start))
	}
}

func joinIdents(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = EscapeIdent(n)
	}
	return strings.Join(parts, ", ")
}

// appendCopy appends to a fresh backing array so derived plans never alias
// a shared slice.
func appendCopy(dst []string, more ...string) []string {
	out := make([]string, len(dst), len(dst)+len(more))
	copy(out, dst)
	return append(out, more...)
}
