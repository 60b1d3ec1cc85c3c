// Package schema loads reference-type definitions and serves the runtime field registry.
//
// A definition file maps each type name to its ordered field list:
//
//	{
//	  "article": [
//	    {"key": "author", "type": "str", "input-type": "text", "required": true},
//	    {"key": "year", "type": "int", "input-type": "number", "required": true}
//	  ]
//	}
//
// The same document may be written as YAML. Type and field order is preserved.
package schema

import (
	"fmt"

	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/validation"
)

// ReservedKeys are request-level names that never become stored attributes.
var ReservedKeys = map[string]struct{}{
	"bib_key":     {},
	"key":         {},
	"old_bib_key": {},
	"old_key":     {},
	"is_public":   {},
}

// IsReserved reports whether key is consumed by the write path rather than stored.
func IsReserved(key string) bool {
	_, ok := ReservedKeys[key]
	return ok
}

// FieldSpec is one field descriptor as written in a definition file.
type FieldSpec struct {
	Key        string `json:"key" yaml:"key" validate:"required,fieldkey,max=50"`
	Type       string `json:"type" yaml:"type" validate:"required,max=20"`
	InputType  string `json:"input-type" yaml:"input-type" validate:"max=20"`
	Required   bool   `json:"required" yaml:"required"`
	Additional bool   `json:"additional" yaml:"additional"`
}

// TypeSpec is one reference type with its fields in display order.
type TypeSpec struct {
	Name   string      `json:"name" validate:"required,fieldkey,max=50"`
	Fields []FieldSpec `json:"fields" validate:"dive"`
}

// Definition is an ordered set of reference types.
type Definition struct {
	Types []TypeSpec `json:"types" validate:"required,min=1,dive"`
}

// Type returns the named type spec.
func (d *Definition) Type(name string) (TypeSpec, bool) {
	for _, t := range d.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeSpec{}, false
}

// Validate checks the definition before it is seeded.
// Beyond the struct tags it rejects duplicate type names, duplicate keys within a type,
// reserved keys and a key declared with different value kinds in different types
// (fields are shared across types by key).
func (d *Definition) Validate() error {
	if err := validation.New().Validate(d); err != nil {
		return domainerrors.ErrSchema.WithCause(err).WithDetails(detailsOf(err))
	}

	seenTypes := make(map[string]struct{}, len(d.Types))
	kinds := make(map[string]string)
	for _, t := range d.Types {
		if _, dup := seenTypes[t.Name]; dup {
			return domainerrors.Schemaf("reference type %q declared twice", t.Name)
		}
		seenTypes[t.Name] = struct{}{}

		seenKeys := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if IsReserved(f.Key) {
				return domainerrors.Schemaf("type %q: field key %q is reserved", t.Name, f.Key)
			}
			if _, dup := seenKeys[f.Key]; dup {
				return domainerrors.Schemaf("type %q: field %q declared twice", t.Name, f.Key)
			}
			seenKeys[f.Key] = struct{}{}

			if prev, ok := kinds[f.Key]; ok && prev != f.Type {
				return domainerrors.Schemaf("field %q declared as %q and %q", f.Key, prev, f.Type)
			}
			kinds[f.Key] = f.Type
		}
	}
	return nil
}

func detailsOf(err error) any {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		return domainErr.Details
	}
	return fmt.Sprint(err)
}
