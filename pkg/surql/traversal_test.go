package surql

import (
	"errors"
	"strings"
	"testing"
)

func TestTraversal_EdgeOnlyProjection(t *testing.T) {
	got := render(t, NewPlan("person").Filter(mustCond(t, "id", "person:1")).Out("knows"))
	want := "SELECT id, ->knows->? AS related FROM person:1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// A typed target after an edge hop hydrates the projection instead of
// returning bare references.
func TestTraversal_HydratedProjection(t *testing.T) {
	got := render(t, NewPlan("person").Out("knows").Target("person"))
	want := "SELECT ->knows->person.* AS related FROM person"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTraversal_Directions(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{"incoming", NewPlan("person").In("knows"), "id, <-knows<-? AS related"},
		{"bidirectional", NewPlan("person").Both("knows"), "id, <->knows<->? AS related"},
		{"wildcard edge", NewPlan("person").Out(""), "id, ->?->? AS related"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := render(t, tc.plan)
			if !strings.Contains(got, tc.want) {
				t.Errorf("got %q, want fragment %q", got, tc.want)
			}
		})
	}
}

func TestTraversal_ChainedHops(t *testing.T) {
	got := render(t, NewPlan("person").Out("knows").Out("works_at").Target("company"))
	want := "SELECT ->knows->?->works_at->company.* AS related FROM person"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTarget_Errors(t *testing.T) {
	if _, err := NewPlan("person").Target("person").Render(); !errors.Is(err, ErrPlan) {
		t.Errorf("expected ErrPlan for target without hop, got %v", err)
	}
	if _, err := NewPlan("person").Out("knows").Target("a").Target("b").Render(); !errors.Is(err, ErrPlan) {
		t.Errorf("expected ErrPlan for double target, got %v", err)
	}
}

func TestTraverse(t *testing.T) {
	tests := []struct {
		name     string
		maxDepth int
		unique   bool
		want     string
	}{
		{"plain path", 0, false, "SELECT ->knows->person AS related FROM person:1"},
		{"bounded recursion", 3, false, "SELECT @.{..3}(->knows->person) AS related FROM person:1"},
		{"unique dedup", 0, true, "SELECT array::distinct(->knows->person) AS related FROM person:1"},
		{"bounded unique", 2, true, "SELECT array::distinct(@.{..2}(->knows->person)) AS related FROM person:1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPlan("person").
				Filter(mustCond(t, "id", "person:1")).
				Traverse("->knows->person", tc.maxDepth, tc.unique)
			got := render(t, p)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTraverse_NegativeDepth(t *testing.T) {
	if _, err := NewPlan("p").Traverse("->x->?", -1, false).Render(); !errors.Is(err, ErrPlan) {
		t.Errorf("expected ErrPlan, got %v", err)
	}
}

func TestRenderShortestPath(t *testing.T) {
	got, err := RenderShortestPath(NewRecordID("person", "1"), NewRecordID("person", "9"), "knows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT VALUE @.{..+shortest=person:9}(->knows->?) FROM person:1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := RenderShortestPath(RecordID{}, NewRecordID("person", "9"), ""); !errors.Is(err, ErrPlan) {
		t.Errorf("expected ErrPlan for missing endpoint, got %v", err)
	}
}
