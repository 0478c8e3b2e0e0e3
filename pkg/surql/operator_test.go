package surql

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitLookup(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		field string
		op    Operator
	}{
		{"bare equality", "age", "age", OpEq},
		{"explicit eq", "age__eq", "age", OpEq},
		{"gt", "age__gt", "age", OpGt},
		{"in alias", "status__in", "status", OpInside},
		{"nin alias", "status__nin", "status", OpNotInside},
		{"not_inside", "tags__not_inside", "tags", OpNotInside},
		{"contains_any", "tags__contains_any", "tags", OpContainsAny},
		{"nested path", "settings__theme__ne", "settings.theme", OpNe},
		{"dotted path", "settings.theme__ne", "settings.theme", OpNe},
		{"knn", "embedding__knn", "embedding", OpKNN},
		{"field named like operator", "contains__eq", "contains", OpEq},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			field, op, err := splitLookup(tc.key, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if field != tc.field || op != tc.op {
				t.Errorf("splitLookup(%q) = (%q, %q), want (%q, %q)", tc.key, field, op, tc.field, tc.op)
			}
		})
	}
}

func TestSplitLookup_UnknownOperator(t *testing.T) {
	for _, key := range []string{"age__gtt", "name__like", "a__b__c"} {
		if _, _, err := splitLookup(key, nil); !errors.Is(err, ErrUnknownOperator) {
			t.Errorf("splitLookup(%q): expected ErrUnknownOperator, got %v", key, err)
		}
	}
}

func TestSplitLookup_AmbiguousField(t *testing.T) {
	known := fieldSet{"meta.contains": {}}

	_, _, err := splitLookup("meta__contains", known)
	if !errors.Is(err, ErrAmbiguousField) {
		t.Fatalf("expected ErrAmbiguousField, got %v", err)
	}
	if !strings.Contains(err.Error(), "__eq") {
		t.Errorf("expected disambiguation hint in error, got %q", err.Error())
	}

	// Explicit __eq resolves the collision in favor of the field reading.
	field, op, err := splitLookup("meta__contains__eq", known)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field != "meta.contains" || op != OpEq {
		t.Errorf("got (%q, %q), want (meta.contains, eq)", field, op)
	}

	// Declarations spelled with the raw delimiter clash too.
	raw := fieldSet{"meta__contains": {}}
	if _, _, err := splitLookup("meta__contains", raw); !errors.Is(err, ErrAmbiguousField) {
		t.Fatalf("expected ErrAmbiguousField for verbatim declaration, got %v", err)
	}
}

func TestRenderPredicate(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    Operator
		value any
		want  string
	}{
		{"eq", "age", OpEq, 30, "age = 30"},
		{"ne", "age", OpNe, 30, "age != 30"},
		{"gt", "age", OpGt, 25, "age > 25"},
		{"gte", "age", OpGte, 25, "age >= 25"},
		{"lt", "age", OpLt, 25, "age < 25"},
		{"lte", "age", OpLte, 25, "age <= 25"},
		{"inside", "status", OpInside, []string{"new", "open"}, "status INSIDE ['new', 'open']"},
		{"not inside", "status", OpNotInside, []string{"done"}, "status NOT INSIDE ['done']"},
		{"contains string", "name", OpContains, "Jo", "string::contains(name, 'Jo')"},
		{"contains array value", "tags", OpContains, 5, "tags CONTAINS 5"},
		{"startswith", "name", OpStartsWith, "Jo", "string::startsWith(name, 'Jo')"},
		{"endswith", "name", OpEndsWith, "hn", "string::endsWith(name, 'hn')"},
		{"regex", "name", OpRegex, "^J.*", "string::matches(name, '^J.*')"},
		{"containsany", "tags", OpContainsAny, []string{"a", "b"}, "tags CONTAINSANY ['a', 'b']"},
		{"containsall", "tags", OpContainsAll, []string{"a"}, "tags CONTAINSALL ['a']"},
		{"containsnone", "tags", OpContainsNone, []string{"a"}, "tags CONTAINSNONE ['a']"},
		{"allinside", "tags", OpAllInside, []string{"a"}, "tags ALLINSIDE ['a']"},
		{"anyinside", "tags", OpAnyInside, []string{"a"}, "tags ANYINSIDE ['a']"},
		{"noneinside", "tags", OpNoneInside, []string{"a"}, "tags NONEINSIDE ['a']"},
		{"knn", "embedding", OpKNN, KNN{Vector: []float64{0.1, 0.2}, K: 5}, "embedding <|5|> [0.1, 0.2]"},
		{"id equality uses record literal", "id", OpEq, "user:42", "id = user:42"},
		{"record ids unquoted inside arrays", "id", OpInside, []string{"user:1", "user:2"}, "id INSIDE [user:1, user:2]"},
		{"plain strings stay quoted inside arrays", "status", OpInside, []string{"new"}, "status INSIDE ['new']"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := renderPredicate(tc.field, tc.op, tc.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("renderPredicate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderPredicate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    Operator
		value any
	}{
		{"startswith non-string", "name", OpStartsWith, 5},
		{"regex non-string", "name", OpRegex, 5},
		{"knn wrong value", "embedding", OpKNN, []float64{0.1}},
		{"knn zero k", "embedding", OpKNN, KNN{Vector: []float64{0.1}, K: 0}},
		{"unescapable value", "ch", OpEq, make(chan int)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := renderPredicate(tc.field, tc.op, tc.value); !errors.Is(err, ErrEscape) {
				t.Errorf("expected ErrEscape, got %v", err)
			}
		})
	}
}
