package bibtex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/schema"
)

func smith2020() *domain.Reference {
	return &domain.Reference{
		Key:  "Smith2020",
		Type: "article",
		Fields: map[string]string{
			"author":  "John Smith",
			"title":   "A Great Paper",
			"journal": "Journal of Examples",
			"year":    "2020",
		},
	}
}

func TestRender_Alphabetical(t *testing.T) {
	got := Render(smith2020())

	want := "@article{Smith2020,\n" +
		"  author = {John Smith},\n" +
		"  journal = {Journal of Examples},\n" +
		"  title = {A Great Paper},\n" +
		"  year = {2020},\n" +
		"}"
	assert.Equal(t, want, got)
	assert.True(t, strings.HasPrefix(got, "@article{Smith2020,"))
	assert.Contains(t, got, "author = {John Smith}")
}

func TestRender_SchemaOrder(t *testing.T) {
	def, err := schema.ParseJSON([]byte(`{"article": [
		{"key": "title", "type": "str"},
		{"key": "author", "type": "str"},
		{"key": "year", "type": "int"},
		{"key": "journal", "type": "str"}
	]}`))
	require.NoError(t, err)

	ref := smith2020()
	ref.Fields["note"] = "unbound"

	got := NewEncoder(schema.FromDefinition(def)).Render(ref)

	want := "@article{Smith2020,\n" +
		"  title = {A Great Paper},\n" +
		"  author = {John Smith},\n" +
		"  year = {2020},\n" +
		"  journal = {Journal of Examples},\n" +
		"  note = {unbound},\n" +
		"}"
	assert.Equal(t, want, got)
}

func TestRender_SkipsBlankFields(t *testing.T) {
	ref := &domain.Reference{Key: "K", Type: "book", Fields: map[string]string{"title": "T", "publisher": "  "}}

	assert.Equal(t, "@book{K,\n  title = {T},\n}", Render(ref))
}

// braceDepth walks rendered the way BibTeX does, counting every brace.
// It returns the final depth and whether depth hit zero before the last rune.
func braceDepth(rendered string) (depth int, closedEarly bool) {
	runes := []rune(rendered)
	for i, r := range runes {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth <= 0 && i > 0 && i < len(runes)-1 && strings.ContainsRune("{}", r) {
			closedEarly = true
		}
	}
	return depth, closedEarly
}

func TestRender_Braces(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"The {TCP} Handshake", "The {TCP} Handshake"},
		{"broken } value", `broken \textbraceright{} value`},
		{"open { value", `open \textbraceleft{} value`},
		{"}{", `\textbraceright{}\textbraceleft{}`},
		{"keep {this} but } not", `keep {this} but \textbraceright{} not`},
		{`escaped \} brace`, `escaped \\textbraceright{} brace`},
		{"{{nested}", `\textbraceleft{}{nested}`},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			ref := &domain.Reference{Key: "K", Type: "misc", Fields: map[string]string{"title": tt.value, "note": "plain"}}

			got := Render(ref)

			assert.Contains(t, got, "title = {"+tt.want+"},")
			depth, closedEarly := braceDepth(got)
			assert.Equal(t, 0, depth, "entry braces must balance")
			assert.False(t, closedEarly, "entry must not close before its last brace")
		})
	}
}

func TestRenderAll(t *testing.T) {
	b := &domain.Reference{Key: "B", Type: "misc", Fields: map[string]string{"title": "Two"}}

	got := RenderAll([]*domain.Reference{smith2020(), b})

	entries := strings.Split(strings.TrimSuffix(got, "\n"), "\n\n")
	require.Len(t, entries, 2)
	assert.True(t, strings.HasPrefix(entries[0], "@article{Smith2020,"))
	assert.Equal(t, "@misc{B,\n  title = {Two},\n}", entries[1])
}

func TestRenderAll_Empty(t *testing.T) {
	got := RenderAll(nil)

	assert.Equal(t, EmptyExport, got)
	assert.NotEmpty(t, got)
	assert.Equal(t, 1, strings.Count(got, "\n"))
}
