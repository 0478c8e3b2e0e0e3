package surql

import (
	"fmt"
	"strconv"
	"strings"
)

// HopDir is the direction of one graph traversal step.
type HopDir string

const (
	HopOut  HopDir = "->"
	HopIn   HopDir = "<-"
	HopBoth HopDir = "<->"
)

// Hop is one directional traversal step. An empty Edge is a wildcard hop;
// a non-empty Target hydrates the step's endpoint into full records.
type Hop struct {
	Dir    HopDir
	Edge   string
	Target string
}

// Out appends an outgoing edge hop. An empty edge name is a wildcard.
func (p Plan) Out(edge string) Plan {
	return p.hop(HopOut, edge)
}

// In appends an incoming edge hop.
func (p Plan) In(edge string) Plan {
	return p.hop(HopIn, edge)
}

// Both appends a bidirectional edge hop.
func (p Plan) Both(edge string) Plan {
	return p.hop(HopBoth, edge)
}

func (p Plan) hop(dir HopDir, edge string) Plan {
	hops := make([]Hop, len(p.hops), len(p.hops)+1)
	copy(hops, p.hops)
	p.hops = append(hops, Hop{Dir: dir, Edge: edge})
	return p
}

// Target hydrates the endpoint of the last hop into the named table's full
// records (->edge->table.* instead of a bare reference). Must follow a hop.
func (p Plan) Target(table string) Plan {
	if len(p.hops) == 0 {
		return p.fail(fmt.Errorf("%w: traversal target without a preceding hop", ErrPlan))
	}
	last := p.hops[len(p.hops)-1]
	if last.Target != "" {
		return p.fail(fmt.Errorf("%w: hop already targets %q", ErrPlan, last.Target))
	}
	hops := make([]Hop, len(p.hops))
	copy(hops, p.hops)
	hops[len(hops)-1].Target = table
	p.hops = hops
	return p
}

// Traverse sets a raw traversal path expression as the projection.
// maxDepth > 0 bounds recursion with SurrealQL's recursive path form;
// unique deduplicates repeated nodes, which keeps cyclic graphs from
// looping server-side.
func (p Plan) Traverse(path string, maxDepth int, unique bool) Plan {
	if maxDepth < 0 {
		return p.fail(fmt.Errorf("%w: traversal depth must be non-negative, got %d", ErrPlan, maxDepth))
	}
	expr := path
	if maxDepth > 0 {
		expr = "@.{.." + strconv.Itoa(maxDepth) + "}(" + path + ")"
	}
	if unique {
		expr = "array::distinct(" + expr + ")"
	}
	p.rawPath = expr + " AS related"
	return p
}

// renderHops composes hop declarations left-to-right into one path
// projection. Edge-only chains keep the source id alongside the lazy
// reference list; a hydrated final hop expands into the target's fields.
func renderHops(hops []Hop) string {
	var b strings.Builder
	for _, h := range hops {
		b.WriteString(string(h.Dir))
		if h.Edge == "" {
			b.WriteString("?")
		} else {
			b.WriteString(EscapeIdent(h.Edge))
		}
		b.WriteString(string(h.Dir))
		if h.Target != "" {
			b.WriteString(EscapeIdent(h.Target))
		} else {
			b.WriteString("?")
		}
	}
	path := b.String()
	if hops[len(hops)-1].Target != "" {
		return path + ".* AS related"
	}
	return "id, " + path + " AS related"
}

// RenderShortestPath renders a single-purpose shortest path query between
// two records over the given edge table (wildcard when empty). Not
// composable with hop chains by design.
func RenderShortestPath(start, end RecordID, edge string) (string, error) {
	if start.IsZero() || end.IsZero() {
		return "", fmt.Errorf("%w: shortest path requires both endpoint records", ErrPlan)
	}
	e := "?"
	if edge != "" {
		e = EscapeIdent(edge)
	}
	return "SELECT VALUE @.{..+shortest=" + end.String() + "}(->" + e + "->?) FROM " + start.String(), nil
}
