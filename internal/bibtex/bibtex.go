// Package bibtex renders references as BibTeX entries.
package bibtex

import (
	"slices"
	"strings"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/schema"
)

// EmptyExport is rendered in place of an empty result set so callers can tell
// "nothing to export" from broken output.
const EmptyExport = "% No references found\n"

// ContentType is the media type of rendered exports.
const ContentType = "application/x-bibtex; charset=utf-8"

// Encoder renders references. With a registry, fields follow schema order and any
// stored field the type no longer binds is appended alphabetically; without one,
// all fields are alphabetical.
type Encoder struct {
	registry *schema.Registry
}

// NewEncoder returns an Encoder. reg may be nil.
func NewEncoder(reg *schema.Registry) *Encoder {
	return &Encoder{registry: reg}
}

// Render formats ref as a single entry without a trailing newline.
func (e *Encoder) Render(ref *domain.Reference) string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(ref.Type)
	b.WriteString("{")
	b.WriteString(ref.Key)
	b.WriteString(",\n")

	for _, key := range e.fieldOrder(ref) {
		v := strings.TrimSpace(ref.Fields[key])
		if v == "" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(" = {")
		b.WriteString(escape(v))
		b.WriteString("},\n")
	}
	b.WriteString("}")
	return b.String()
}

// RenderAll formats refs as blank-line separated entries ending in a newline.
// An empty set yields EmptyExport.
func (e *Encoder) RenderAll(refs []*domain.Reference) string {
	if len(refs) == 0 {
		return EmptyExport
	}
	var b strings.Builder
	for i, ref := range refs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.Render(ref))
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Encoder) fieldOrder(ref *domain.Reference) []string {
	var ordered []string
	seen := make(map[string]struct{}, len(ref.Fields))
	if e.registry != nil {
		for _, key := range e.registry.FieldKeys(ref.Type) {
			if _, ok := ref.Fields[key]; ok {
				ordered = append(ordered, key)
				seen[key] = struct{}{}
			}
		}
	}

	var rest []string
	for key := range ref.Fields {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	return append(ordered, rest...)
}

// escape keeps matched brace pairs and spells out unmatched braces as
// \textbraceleft{} and \textbraceright{}. BibTeX counts every brace, escaped or
// not, so the rendered value always balances inside its delimiters.
func escape(v string) string {
	if !strings.ContainsAny(v, "{}") {
		return v
	}
	runes := []rune(v)
	unmatched := make(map[int]struct{})
	var open []int
	for i, r := range runes {
		switch r {
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				unmatched[i] = struct{}{}
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, i := range open {
		unmatched[i] = struct{}{}
	}
	if len(unmatched) == 0 {
		return v
	}

	var b strings.Builder
	for i, r := range runes {
		if _, ok := unmatched[i]; !ok {
			b.WriteRune(r)
			continue
		}
		if r == '{' {
			b.WriteString(`\textbraceleft{}`)
		} else {
			b.WriteString(`\textbraceright{}`)
		}
	}
	return b.String()
}

// Render formats ref with alphabetical field order.
func Render(ref *domain.Reference) string {
	return NewEncoder(nil).Render(ref)
}

// RenderAll formats refs with alphabetical field order.
func RenderAll(refs []*domain.Reference) string {
	return NewEncoder(nil).RenderAll(refs)
}
