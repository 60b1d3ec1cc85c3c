package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refshelf/refshelf-server/internal/domain"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	def, err := LoadDefinition(filepath.Join("testdata", "references.json"))
	require.NoError(t, err)
	return FromDefinition(def)
}

func TestRegistry_Lookup(t *testing.T) {
	r := testRegistry(t)

	fields := r.Lookup("book")
	require.Len(t, fields, 4)
	assert.Equal(t, []string{"author", "title", "publisher", "year"}, r.FieldKeys("book"))
	assert.Equal(t, "int", fields[3].Kind)
}

func TestRegistry_LookupUnknownIsEmpty(t *testing.T) {
	r := testRegistry(t)

	fields := r.Lookup("thesis")
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := testRegistry(t)

	fields := r.Lookup("book")
	fields[0].Key = "mutated"
	assert.Equal(t, "author", r.Lookup("book")[0].Key)
}

func TestRegistry_ResolveIsTypeScoped(t *testing.T) {
	r := testRegistry(t)

	journalID, ok := r.Resolve("article", "journal")
	require.True(t, ok)
	assert.Positive(t, journalID)

	_, ok = r.Resolve("book", "journal")
	assert.False(t, ok, "journal is not bound to book")

	_, ok = r.Resolve("thesis", "title")
	assert.False(t, ok)

	// Shared keys resolve to the same field across types.
	a, _ := r.Resolve("article", "author")
	b, _ := r.Resolve("book", "author")
	assert.Equal(t, a, b)
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry([]domain.ReferenceType{{ID: 3, Name: "misc"}, {ID: 1, Name: "article"}}, nil)

	assert.Equal(t, []domain.ReferenceType{{ID: 1, Name: "article"}, {ID: 3, Name: "misc"}}, r.Types())

	byName, ok := r.TypeByName("misc")
	require.True(t, ok)
	assert.Equal(t, int64(3), byName.ID)

	byID, ok := r.TypeByID(1)
	require.True(t, ok)
	assert.Equal(t, "article", byID.Name)

	_, ok = r.TypeByID(2)
	assert.False(t, ok)
	assert.Empty(t, r.Lookup("misc"))
}

func TestRegistry_MissingRequired(t *testing.T) {
	r := testRegistry(t)

	missing := r.MissingRequired("book", map[string]string{
		"author": "Jane Doe",
		"title":  "  ",
	})
	assert.Equal(t, []string{"title", "publisher", "year"}, missing)
}

func TestRegistry_MissingRequired_StorageBlank(t *testing.T) {
	r := testRegistry(t)

	missing := r.MissingRequired("book", map[string]string{
		"author":    "Jane Doe",
		"title":     "\x00",
		"publisher": " \x00 ",
		"year":      "2020",
	})
	assert.Equal(t, []string{"title", "publisher"}, missing)
}

func TestRegistry_Filter(t *testing.T) {
	r := testRegistry(t)

	got := r.Filter("book", map[string]string{
		"author":  "Jane Doe",
		"journal": "Not bound",
		"bib_key": "Doe2020",
		"year":    " ",
		"title":   "\x00",
	})
	assert.Equal(t, map[string]string{"author": "Jane Doe"}, got)
}
