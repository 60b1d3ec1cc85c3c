package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
)

// LoadDefinition reads a definition file. ".yaml" and ".yml" are parsed as YAML,
// anything else as JSON. The result is validated.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- schema path comes from operator config
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeSchema, "read schema %s", path)
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	default:
		def, err = ParseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// ParseJSON decodes a JSON definition, keeping the object's key order.
func ParseJSON(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	def := &Definition{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeSchema, "parse schema json")
		}
		name, ok := tok.(string)
		if !ok {
			return nil, domainerrors.Schemaf("parse schema json: unexpected token %v", tok)
		}

		var fields []FieldSpec
		if err := dec.Decode(&fields); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeSchema, "parse schema json: type %q", name)
		}
		def.Types = append(def.Types, TypeSpec{Name: name, Fields: fields})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return def, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeSchema, "parse schema json")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return domainerrors.Schemaf("parse schema json: expected %q, got %v", want, tok)
	}
	return nil
}

// ParseYAML decodes a YAML definition, keeping mapping order.
func ParseYAML(data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeSchema, "parse schema yaml")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, domainerrors.Schema("parse schema yaml: empty document")
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, domainerrors.Schemaf("parse schema yaml: top level must be a mapping (line %d)", mapping.Line)
	}

	def := &Definition{}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value

		var fields []FieldSpec
		if err := mapping.Content[i+1].Decode(&fields); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeSchema, "parse schema yaml: type %q", name)
		}
		def.Types = append(def.Types, TypeSpec{Name: name, Fields: fields})
	}
	return def, nil
}
