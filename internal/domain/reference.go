// Package domain contains the entities shared by the store, the query engine and the API.
package domain

import "time"

// Reference is one bibliographic entry with its attribute values resolved to field keys.
type Reference struct {
	ID        string            `json:"id"`
	Key       string            `json:"bib_key"`
	Type      string            `json:"reference_type"`
	CreatedAt time.Time         `json:"created_at"`
	IsPublic  bool              `json:"is_public"`
	Fields    map[string]string `json:"fields"`
	Tag       *Tag              `json:"tag,omitempty"`

	// Seq is the insertion sequence; it breaks created_at ties.
	Seq int64 `json:"-"`
}

// Field returns the value stored under key, or "" when unset.
func (r *Reference) Field(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// TagName returns the associated tag name, or "" when untagged.
func (r *Reference) TagName() string {
	if r.Tag == nil {
		return ""
	}
	return r.Tag.Name
}

// NewerThan orders by created_at, then by insertion sequence.
func (r *Reference) NewerThan(o *Reference) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.After(o.CreatedAt)
	}
	return r.Seq > o.Seq
}
