package sqlite

import (
	"context"
	"errors"
	"testing"

	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/schema"
)

func mustParse(t *testing.T, doc string) *schema.Definition {
	t.Helper()
	def, err := schema.ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	return def
}

func TestSeedSchema_BuildsRegistry(t *testing.T) {
	s := newSeededStore(t)
	reg := s.Registry()

	types := reg.Types()
	if len(types) != 2 || types[0].Name != "article" || types[1].Name != "book" {
		t.Fatalf("types: got %+v", types)
	}

	want := []string{"author", "title", "journal", "year", "volume", "pages", "doi"}
	got := reg.FieldKeys("article")
	if len(got) != len(want) {
		t.Fatalf("article keys: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("article key %d: got %q, want %q", i, got[i], want[i])
		}
	}

	// Shared keys resolve to the same field row in both types.
	a, _ := reg.Resolve("article", "author")
	b, _ := reg.Resolve("book", "author")
	if a != b {
		t.Errorf("author field id differs across types: %d vs %d", a, b)
	}

	if _, ok := reg.Resolve("book", "journal"); ok {
		t.Error("journal must not resolve for book")
	}

	// Only fields bound to at least one type exist.
	if n := countRows(t, s, `SELECT COUNT(*) FROM fields`); n != 8 {
		t.Errorf("fields: got %d, want 8", n)
	}
}

func TestSeedSchema_ReseedKeepsIDs(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	before, _ := s.Registry().TypeByName("book")
	authorBefore, _ := s.Registry().Resolve("book", "author")

	if err := s.SeedSchema(ctx, mustParse(t, testDefinition)); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	after, _ := s.Registry().TypeByName("book")
	authorAfter, _ := s.Registry().Resolve("book", "author")
	if before.ID != after.ID {
		t.Errorf("book id changed: %d -> %d", before.ID, after.ID)
	}
	if authorBefore != authorAfter {
		t.Errorf("author field id changed: %d -> %d", authorBefore, authorAfter)
	}
}

func TestSeedSchema_RefusesToDropTypeInUse(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	saveOwned(t, s, nil, "Smith2020", true, map[string]string{"title": "T"})

	err := s.SeedSchema(ctx, mustParse(t, `{"book": [{"key": "title", "type": "str"}]}`))
	if !errors.Is(err, domainerrors.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	// The failed seed left the catalog untouched.
	if _, ok := s.Registry().TypeByName("article"); !ok {
		t.Error("article type vanished after failed seed")
	}
	if n := countRows(t, s, `SELECT COUNT(*) FROM reference_types`); n != 2 {
		t.Errorf("reference_types: got %d, want 2", n)
	}
}

func TestSeedSchema_DropsUnboundValues(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	saveOwned(t, s, nil, "Smith2020", true, map[string]string{
		"title": "Paper",
		"pages": "1-10",
	})

	narrowed := `{
	  "article": [{"key": "title", "type": "str", "required": true}],
	  "book": [{"key": "title", "type": "str", "required": true}]
	}`
	if err := s.SeedSchema(ctx, mustParse(t, narrowed)); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	if n := countRows(t, s, `SELECT COUNT(*) FROM reference_values`); n != 1 {
		t.Errorf("reference_values: got %d, want 1", n)
	}
	if n := countRows(t, s, `SELECT COUNT(*) FROM fields`); n != 1 {
		t.Errorf("fields: got %d, want 1", n)
	}

	ref, err := s.GetReference(ctx, "Smith2020", "")
	if err != nil {
		t.Fatalf("GetReference: %v", err)
	}
	if ref != nil {
		t.Fatalf("unowned reference should not be readable publicly, got %+v", ref)
	}
}

func TestSeedSchema_RejectsInvalidDefinition(t *testing.T) {
	s := newTestStore(t)

	def := &schema.Definition{Types: []schema.TypeSpec{
		{Name: "article", Fields: []schema.FieldSpec{{Key: "bib_key", Type: "str"}}},
	}}
	err := s.SeedSchema(context.Background(), def)
	if !errors.Is(err, domainerrors.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if len(s.Registry().Types()) != 0 {
		t.Error("registry changed after rejected seed")
	}
}

func TestInspect(t *testing.T) {
	s := newSeededStore(t)
	alice := createTestUser(t, s, "alice")
	saveOwned(t, s, alice, "Smith2020", true, map[string]string{"title": "A", "year": "2020"})
	saveOwned(t, s, alice, "Priv2024", false, map[string]string{"title": "B"})

	rep, err := s.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	if len(rep.Types) != 2 {
		t.Fatalf("types: got %d", len(rep.Types))
	}
	if rep.Types[0].Name != "article" || rep.Types[0].References != 2 {
		t.Errorf("article report: %+v", rep.Types[0])
	}
	if rep.Types[1].References != 0 {
		t.Errorf("book references: got %d", rep.Types[1].References)
	}
	if len(rep.Types[1].Required) != 4 {
		t.Errorf("book required: got %v", rep.Types[1].Required)
	}
	if rep.References != 2 || rep.Public != 1 || rep.Values != 3 || rep.Users != 1 || rep.FieldCount != 8 {
		t.Errorf("counts: %+v", rep)
	}
}
