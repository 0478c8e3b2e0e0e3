package surgo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type article struct {
	ID        string    `surgo:"id,id"`
	Title     string    `surgo:"title"`
	Views     int       `surgo:"views"`
	Published bool      `surgo:"published"`
	Author    string    `surgo:"author,record=user"`
	Tags      []string  `surgo:"tags"`
	CreatedAt time.Time `surgo:"created_at"`
	internal  string    //nolint:unused // untagged fields stay unmapped
}

func TestParseModel(t *testing.T) {
	meta, err := parseModel[article]()
	if err != nil {
		t.Fatalf("parseModel: %v", err)
	}
	if meta.idIdx != 0 {
		t.Errorf("idIdx = %d, want 0", meta.idIdx)
	}
	if got := meta.relations["author"]; got != "user" {
		t.Errorf("relations[author] = %q, want user", got)
	}
	if len(meta.fields) != 7 {
		t.Errorf("expected 7 mapped fields, got %d", len(meta.fields))
	}
}

func TestParseModel_Errors(t *testing.T) {
	type twoIDs struct {
		A string `surgo:"a,id"`
		B string `surgo:"b,id"`
	}
	if _, err := parseModel[twoIDs](); err == nil {
		t.Error("expected error for duplicate id tag")
	}

	type badModifier struct {
		A string `surgo:"a,indexed"`
	}
	if _, err := parseModel[badModifier](); err == nil {
		t.Error("expected error for unknown modifier")
	}

	if _, err := parseModel[int](); err == nil {
		t.Error("expected error for non-struct type")
	}
}

func TestModel_Decode(t *testing.T) {
	fake := &fakeExecutor{}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	row := Row{
		"id":         NewRecordID("article", "intro"),
		"title":      "Intro",
		"views":      float64(12),
		"published":  true,
		"author":     NewRecordID("user", "ann"),
		"tags":       []any{"go", "db"},
		"created_at": "2026-08-01T10:00:00Z",
	}
	a, err := m.Decode(row)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a.ID != "article:intro" {
		t.Errorf("ID = %q", a.ID)
	}
	if a.Title != "Intro" || a.Views != 12 || !a.Published {
		t.Errorf("unexpected fields: %+v", a)
	}
	if a.Author != "user:ann" {
		t.Errorf("Author = %q", a.Author)
	}
	if len(a.Tags) != 2 || a.Tags[0] != "go" {
		t.Errorf("Tags = %v", a.Tags)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not decoded")
	}
}

func TestModel_Encode(t *testing.T) {
	c := newTestClient(t, &fakeExecutor{})
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	doc, err := m.encode(article{
		ID:     "intro",
		Title:  "Intro",
		Author: "ann",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if id, ok := doc["id"].(RecordID); !ok || id.String() != "article:intro" {
		t.Errorf("doc id = %v", doc["id"])
	}
	if author, ok := doc["author"].(RecordID); !ok || author.String() != "user:ann" {
		t.Errorf("doc author = %v", doc["author"])
	}
	if doc["title"] != "Intro" {
		t.Errorf("doc title = %v", doc["title"])
	}
}

func TestModel_Get(t *testing.T) {
	fake := &fakeExecutor{resp: okRows(map[string]any{
		"id": "article:intro", "title": "Intro",
	})}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	a, err := m.Get(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Direct record access: id filter rewrites into the FROM clause.
	want := "SELECT * FROM article:intro LIMIT 1"
	if got := fake.lastQuery(t); got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
	if a.Title != "Intro" {
		t.Errorf("Title = %q", a.Title)
	}
}

func TestModel_Create(t *testing.T) {
	fake := &fakeExecutor{resp: okRows(map[string]any{
		"id": "article:intro", "title": "Intro",
	})}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	a, err := m.Create(context.Background(), article{ID: "intro", Title: "Intro"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID != "article:intro" {
		t.Errorf("ID = %q", a.ID)
	}
}

func TestModel_FindWiresRelations(t *testing.T) {
	fake := &fakeExecutor{resp: okRows()}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	// Declared relation: Fetch("author") passes validation.
	if _, err := m.Find().Fetch("author").All(context.Background()); err != nil {
		t.Fatalf("fetch on declared relation: %v", err)
	}
	want := "SELECT * FROM article FETCH author"
	if got := fake.lastQuery(t); got != want {
		t.Errorf("query = %q, want %q", got, want)
	}

	// Undeclared target must fail at build time.
	if _, err := m.Find().Fetch("reviewer").All(context.Background()); err == nil {
		t.Error("expected error for undeclared fetch target")
	}
}

func TestModel_Delete(t *testing.T) {
	fake := &fakeExecutor{resp: okRows()}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	if err := m.Delete(context.Background(), "intro"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := "DELETE article:intro"
	if got := fake.lastQuery(t); got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
}

func TestModel_Update_NoRows(t *testing.T) {
	fake := &fakeExecutor{resp: okRows()}
	c := newTestClient(t, fake)
	m, err := NewModel[article](c, "article")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	_, err = m.Update(context.Background(), "ghost", article{Title: "x"})
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}
