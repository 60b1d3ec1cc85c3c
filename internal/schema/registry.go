package schema

import (
	"sort"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/normalize"
)

// Registry is the immutable, in-memory view of the seeded catalog.
// It is safe for concurrent use because nothing mutates it after construction.
type Registry struct {
	types  []domain.ReferenceType
	byName map[string]domain.ReferenceType
	byID   map[int64]domain.ReferenceType
	fields map[string][]domain.FieldDefinition
	keys   map[string]map[string]int64
}

// NewRegistry builds a registry from catalog rows. fields maps a type name to its
// definitions in schema order; types are served ordered by id.
func NewRegistry(types []domain.ReferenceType, fields map[string][]domain.FieldDefinition) *Registry {
	r := &Registry{
		types:  make([]domain.ReferenceType, len(types)),
		byName: make(map[string]domain.ReferenceType, len(types)),
		byID:   make(map[int64]domain.ReferenceType, len(types)),
		fields: make(map[string][]domain.FieldDefinition, len(fields)),
		keys:   make(map[string]map[string]int64, len(fields)),
	}

	copy(r.types, types)
	sort.SliceStable(r.types, func(i, j int) bool { return r.types[i].ID < r.types[j].ID })

	for _, t := range r.types {
		r.byName[t.Name] = t
		r.byID[t.ID] = t

		defs := append([]domain.FieldDefinition(nil), fields[t.Name]...)
		r.fields[t.Name] = defs

		keys := make(map[string]int64, len(defs))
		for _, f := range defs {
			keys[f.Key] = f.ID
		}
		r.keys[t.Name] = keys
	}
	return r
}

// FromDefinition builds a registry straight from a definition, numbering types and
// fields the way a fresh seed would. Used where no catalog is available.
func FromDefinition(def *Definition) *Registry {
	var (
		types    []domain.ReferenceType
		fields   = make(map[string][]domain.FieldDefinition)
		fieldIDs = make(map[string]int64)
	)
	for i, t := range def.Types {
		types = append(types, domain.ReferenceType{ID: int64(i + 1), Name: t.Name})
		for _, f := range t.Fields {
			fid, ok := fieldIDs[f.Key]
			if !ok {
				fid = int64(len(fieldIDs) + 1)
				fieldIDs[f.Key] = fid
			}
			fields[t.Name] = append(fields[t.Name], domain.FieldDefinition{
				ID:         fid,
				Key:        f.Key,
				Kind:       f.Type,
				InputType:  f.InputType,
				Required:   f.Required,
				Additional: f.Additional,
			})
		}
	}
	return NewRegistry(types, fields)
}

// Lookup returns the ordered field definitions for typeName.
// An unknown type yields an empty slice, not an error.
func (r *Registry) Lookup(typeName string) []domain.FieldDefinition {
	defs, ok := r.fields[typeName]
	if !ok {
		return []domain.FieldDefinition{}
	}
	out := make([]domain.FieldDefinition, len(defs))
	copy(out, defs)
	return out
}

// Resolve maps an attribute key to its field id within typeName's bindings.
func (r *Registry) Resolve(typeName, key string) (int64, bool) {
	fid, ok := r.keys[typeName][key]
	return fid, ok
}

// Types returns all reference types ordered by id.
func (r *Registry) Types() []domain.ReferenceType {
	out := make([]domain.ReferenceType, len(r.types))
	copy(out, r.types)
	return out
}

// TypeByName looks up a type by name.
func (r *Registry) TypeByName(name string) (domain.ReferenceType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// TypeByID looks up a type by catalog id.
func (r *Registry) TypeByID(id int64) (domain.ReferenceType, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// FieldKeys returns the keys bound to typeName in schema order.
func (r *Registry) FieldKeys(typeName string) []string {
	defs := r.fields[typeName]
	keys := make([]string, len(defs))
	for i, f := range defs {
		keys[i] = f.Key
	}
	return keys
}

// MissingRequired lists required keys of typeName that attrs leaves blank once
// cleaned for storage, so a value of only NUL bytes or spaces counts as missing.
// The store itself writes leniently; callers that want form-style checks use this.
func (r *Registry) MissingRequired(typeName string, attrs map[string]string) []string {
	var missing []string
	for _, f := range r.fields[typeName] {
		if !f.Required {
			continue
		}
		if v, ok := attrs[f.Key]; !ok || normalize.Value(v) == "" {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// Filter keeps only the attributes typeName binds, dropping reserved and blank ones.
func (r *Registry) Filter(typeName string, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if IsReserved(k) || normalize.Value(v) == "" {
			continue
		}
		if _, ok := r.Resolve(typeName, k); ok {
			out[k] = v
		}
	}
	return out
}
