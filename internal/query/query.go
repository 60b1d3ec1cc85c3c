// Package query filters and orders visibility-scoped reference sets.
//
// The same Apply runs over a fresh listing and over search results, so both paths
// share one set of filter and sort semantics.
package query

import (
	"slices"
	"strings"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/normalize"
)

// Sort names an ordering of a reference set.
type Sort string

// Supported sort keys.
const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortBibKey Sort = "bib_key"
	SortTitle  Sort = "title"
	SortAuthor Sort = "author"
)

// Sorts lists every supported sort key.
var Sorts = []Sort{SortNewest, SortOldest, SortBibKey, SortTitle, SortAuthor}

// ParseSort maps s to a Sort. Empty or unknown values fall back to SortNewest.
func ParseSort(s string) Sort {
	candidate := Sort(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Sorts, candidate) {
		return candidate
	}
	return SortNewest
}

// Options are the optional filters and the sort key. Empty filters match everything.
type Options struct {
	Type string `query:"type"`
	Tag  string `query:"tag"`
	Sort Sort   `query:"sort"`
}

// Matches reports whether ref passes the type and tag filters.
// Both filters are exact matches and combine with AND.
func (o Options) Matches(ref *domain.Reference) bool {
	if o.Type != "" && ref.Type != o.Type {
		return false
	}
	if o.Tag != "" && ref.TagName() != o.Tag {
		return false
	}
	return true
}

// Apply returns a new slice holding the refs that match opts, in opts.Sort order.
// refs is not modified. Ties keep their input order.
func Apply(refs []*domain.Reference, opts Options) []*domain.Reference {
	out := make([]*domain.Reference, 0, len(refs))
	for _, r := range refs {
		if opts.Matches(r) {
			out = append(out, r)
		}
	}

	switch ParseSort(string(opts.Sort)) {
	case SortOldest:
		sortNewest(out)
		slices.Reverse(out)
	case SortBibKey:
		sortByKey(out, func(r *domain.Reference) string { return normalize.Fold(r.Key) })
	case SortTitle:
		sortByKey(out, func(r *domain.Reference) string { return normalize.SortKey(r.Field("title")) })
	case SortAuthor:
		sortByKey(out, func(r *domain.Reference) string { return normalize.SortKey(r.Field("author")) })
	default:
		sortNewest(out)
	}
	return out
}

func sortNewest(refs []*domain.Reference) {
	slices.SortStableFunc(refs, func(a, b *domain.Reference) int {
		switch {
		case a.NewerThan(b):
			return -1
		case b.NewerThan(a):
			return 1
		default:
			return 0
		}
	})
}

// sortByKey computes each key once, then stable-sorts ascending.
func sortByKey(refs []*domain.Reference, key func(*domain.Reference) string) {
	keys := make(map[*domain.Reference]string, len(refs))
	for _, r := range refs {
		keys[r] = key(r)
	}
	slices.SortStableFunc(refs, func(a, b *domain.Reference) int {
		return strings.Compare(keys[a], keys[b])
	})
}
