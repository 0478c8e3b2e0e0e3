package surql

import (
	"errors"
	"strings"
	"testing"
)

func TestAggregate_Render(t *testing.T) {
	tests := []struct {
		name string
		agg  Aggregate
		want string
	}{
		{"count", Count(), "count()"},
		{"sum", Sum("amount"), "math::sum(amount)"},
		{"mean", Mean("amount"), "math::mean(amount)"},
		{"min", Min("amount"), "math::min(amount)"},
		{"max", Max("amount"), "math::max(amount)"},
		{"median", Median("amount"), "math::median(amount)"},
		{"stddev", StdDev("amount"), "math::stddev(amount)"},
		{"variance", Variance("amount"), "math::variance(amount)"},
		{"percentile", Percentile("amount", 95), "math::percentile(amount, 95)"},
		{"distinct", Distinct("city"), "array::distinct(city)"},
		{"distinct count", DistinctCount("city"), "array::len(array::distinct(city))"},
		{"group concat", GroupConcat("name", ", "), "array::join(name, ', ')"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.agg.render()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAggregate_ConditionalVariants(t *testing.T) {
	cond := Raw("amt > 1000")

	got, err := CountIf(cond).render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "count((amt > 1000))" {
		t.Errorf("CountIf: got %q", got)
	}

	got, err = SumIf("amt", cond).render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "math::sum(array::flatten(IF (amt > 1000) THEN [amt] ELSE [] END))"
	if got != want {
		t.Errorf("SumIf: got %q, want %q", got, want)
	}

	for _, agg := range []Aggregate{MeanIf("amt", cond), MinIf("amt", cond), MaxIf("amt", cond)} {
		text, err := agg.render()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "IF (amt > 1000) THEN [amt] ELSE [] END") {
			t.Errorf("conditional aggregate lost the inline condition: %q", text)
		}
	}
}

func TestPipeline_Render(t *testing.T) {
	p := NewPipeline("orders").
		MatchLookups(map[string]any{"status": "paid"}).
		Group([]string{"city"}, map[string]Aggregate{
			"total": Sum("amount"),
			"n":     Count(),
		}).
		Sort("total", Desc).
		Limit(5)

	got, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "SELECT city, count() AS n, math::sum(amount) AS total FROM orders" +
		" WHERE status = 'paid' GROUP BY city ORDER BY total DESC LIMIT 5"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

// Aggregates requested without grouping fields collapse into one GROUP ALL
// bucket instead of silently rendering an invalid statement.
func TestPipeline_DefaultGroupAll(t *testing.T) {
	p := NewPipeline("orders").Group(nil, map[string]Aggregate{"n": Count()})
	got, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "SELECT count() AS n FROM orders GROUP ALL" {
		t.Errorf("got %q", got)
	}
}

// SurrealQL has no HAVING keyword: alias filters wrap the grouped query in
// an outer subquery select, with ordering and pagination outermost.
func TestPipeline_HavingSubquery(t *testing.T) {
	p := NewPipeline("orders").
		Group([]string{"city"}, map[string]Aggregate{"total": Sum("amount")}).
		HavingLookups(map[string]any{"total__gt": 1000}).
		Sort("total", Desc).
		Limit(3)

	got, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "SELECT * FROM (SELECT city, math::sum(amount) AS total FROM orders GROUP BY city)" +
		" WHERE total > 1000 ORDER BY total DESC LIMIT 3"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestPipeline_StageErrors(t *testing.T) {
	grouped := NewPipeline("t").Group([]string{"a"}, map[string]Aggregate{"n": Count()})

	tests := []struct {
		name string
		pipe Pipeline
	}{
		{"duplicate group", grouped.Group([]string{"b"}, nil)},
		{"having before group", NewPipeline("t").HavingLookups(map[string]any{"n__gt": 1})},
		{"sort before group", NewPipeline("t").Sort("n", Asc)},
		{"limit before group", NewPipeline("t").Limit(5)},
		{"match after group", grouped.MatchLookups(map[string]any{"x": 1})},
		{"no group stage", NewPipeline("t").MatchLookups(map[string]any{"x": 1})},
		{"empty group", NewPipeline("t").Group(nil, nil)},
		{"negative limit", grouped.Limit(-1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.pipe.Render(); !errors.Is(err, ErrPlan) {
				t.Errorf("expected ErrPlan, got %v", err)
			}
		})
	}
}

// Having conditions reference output aliases, not source fields.
func TestPipeline_HavingAliasValidation(t *testing.T) {
	grouped := NewPipeline("orders").
		Group([]string{"city"}, map[string]Aggregate{"total": Sum("amount")})

	if _, err := grouped.HavingLookups(map[string]any{"amount__gt": 10}).Render(); !errors.Is(err, ErrPlan) {
		t.Errorf("expected ErrPlan for source-field having, got %v", err)
	}

	// Grouping fields are legal alias targets too.
	if _, err := grouped.HavingLookups(map[string]any{"city": "Oslo"}).Render(); err != nil {
		t.Errorf("unexpected error for grouping-field having: %v", err)
	}
}

// Stages derive new pipelines: the original keeps rendering the same text.
func TestPipeline_Immutable(t *testing.T) {
	base := NewPipeline("orders").Group([]string{"city"}, map[string]Aggregate{"n": Count()})
	before, err := base.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	_ = base.Sort("n", Desc).Limit(1).HavingLookups(map[string]any{"n__gt": 2})

	after, err := base.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if before != after {
		t.Errorf("base pipeline changed: %q -> %q", before, after)
	}
}

// The vip scenario: one group, conditional count over a threshold.
func TestPipeline_ConditionalCountScenario(t *testing.T) {
	p := NewPipeline("payments").
		Group(nil, map[string]Aggregate{"vip": CountIf(Raw("amt > 1000"))})

	got, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "SELECT count((amt > 1000)) AS vip FROM payments GROUP ALL"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
