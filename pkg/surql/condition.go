package surql

import (
	"fmt"
	"sort"
)

// Node is one node of an immutable boolean condition tree. Compile renders
// the subtree as a self-contained SurrealQL boolean expression; composite
// nodes are always parenthesized so nesting never changes precedence.
//
// A nil Node means "no condition" and compiles to nothing (no WHERE clause).
type Node interface {
	Compile() (string, error)
}

type leaf struct {
	field string
	op    Operator
	value any
}

func (l leaf) Compile() (string, error) {
	return renderPredicate(l.field, l.op, l.value)
}

type rawNode struct{ text string }

func (n rawNode) Compile() (string, error) {
	return "(" + n.text + ")", nil
}

type andNode struct{ left, right Node }

func (n andNode) Compile() (string, error) {
	l, err := n.left.Compile()
	if err != nil {
		return "", err
	}
	r, err := n.right.Compile()
	if err != nil {
		return "", err
	}
	return "(" + l + " AND " + r + ")", nil
}

type orNode struct{ left, right Node }

func (n orNode) Compile() (string, error) {
	l, err := n.left.Compile()
	if err != nil {
		return "", err
	}
	r, err := n.right.Compile()
	if err != nil {
		return "", err
	}
	return "(" + l + " OR " + r + ")", nil
}

type notNode struct{ child Node }

func (n notNode) Compile() (string, error) {
	c, err := n.child.Compile()
	if err != nil {
		return "", err
	}
	return "!(" + c + ")", nil
}

// Cond builds a leaf condition from a lookup key like "age__gte" and a
// value. Keys without an operator suffix read as equality; unknown
// suffixes fail immediately with ErrUnknownOperator.
func Cond(lookup string, value any) (Node, error) {
	return condWithFields(lookup, value, nil)
}

func condWithFields(lookup string, value any, known fieldSet) (Node, error) {
	field, op, err := splitLookup(lookup, known)
	if err != nil {
		return nil, err
	}
	return leaf{field: field, op: op, value: value}, nil
}

// Pred builds a leaf condition from an explicit field path, operator and
// value, bypassing lookup-key parsing.
func Pred(field string, op Operator, value any) (Node, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	return leaf{field: field, op: op, value: value}, nil
}

// Raw wraps an opaque SurrealQL boolean fragment. The text is trusted as-is
// and parenthesized on compile.
func Raw(text string) Node {
	return rawNode{text: text}
}

// And conjoins two trees into a new node. Nil operands pass the other side
// through, so incremental filter merging needs no special casing.
func And(left, right Node) Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return andNode{left: left, right: right}
}

// Or disjoins two trees into a new node. Nil operands pass through.
func Or(left, right Node) Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return orNode{left: left, right: right}
}

// Not negates a tree. Not(nil) stays nil.
func Not(n Node) Node {
	if n == nil {
		return nil
	}
	return notNode{child: n}
}

// Where merges a lookup map into a single AND tree. Keys are processed in
// sorted order so the rendered clause is deterministic.
func Where(lookups map[string]any) (Node, error) {
	return whereWithFields(lookups, nil)
}

func whereWithFields(lookups map[string]any, known fieldSet) (Node, error) {
	keys := make([]string, 0, len(lookups))
	for k := range lookups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var root Node
	for _, k := range keys {
		n, err := condWithFields(k, lookups[k], known)
		if err != nil {
			return nil, err
		}
		root = And(root, n)
	}
	return root, nil
}

// walkLeaves visits every leaf predicate in the tree. Used by the plan
// renderer for the direct-record rewrite and by the aggregation pipeline
// for alias validation.
func walkLeaves(n Node, visit func(leaf) bool) bool {
	switch t := n.(type) {
	case nil:
		return true
	case leaf:
		return visit(t)
	case andNode:
		return walkLeaves(t.left, visit) && walkLeaves(t.right, visit)
	case orNode:
		return walkLeaves(t.left, visit) && walkLeaves(t.right, visit)
	case notNode:
		return walkLeaves(t.child, visit)
	default:
		return false
	}
}
