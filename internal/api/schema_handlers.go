package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerSchemaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/types",
		Summary:     "List reference types",
		Description: "Returns every reference type in the schema catalog",
		Tags:        []string{"Schema"},
	}, s.handleListTypes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTypeFields",
		Method:      http.MethodGet,
		Path:        "/api/v1/types/{name}/fields",
		Summary:     "List type fields",
		Description: "Returns the fields a reference type binds, in schema order",
		Tags:        []string{"Schema"},
	}, s.handleListTypeFields)
}

// === DTOs ===

// TypeResponse describes one reference type.
type TypeResponse struct {
	ID   int64  `json:"id" doc:"Catalog ID"`
	Name string `json:"name" doc:"Type name, e.g. article"`
}

// ListTypesResponse contains the catalog's types.
type ListTypesResponse struct {
	Types []TypeResponse `json:"types" doc:"Reference types"`
}

// ListTypesOutput wraps the list types response for Huma.
type ListTypesOutput struct {
	Body ListTypesResponse
}

// TypeFieldsInput names the type whose fields are listed.
type TypeFieldsInput struct {
	Name string `path:"name" maxLength:"50" doc:"Reference type name"`
}

// FieldResponse describes one field binding.
type FieldResponse struct {
	Key        string `json:"key" doc:"Field key"`
	Kind       string `json:"type" doc:"Declared value kind"`
	InputType  string `json:"input_type,omitempty" doc:"Form input hint"`
	Required   bool   `json:"required" doc:"Whether create requires a value"`
	Additional bool   `json:"additional" doc:"Whether the field is optional extra data"`
}

// TypeFieldsResponse lists a type's fields.
type TypeFieldsResponse struct {
	Type   string          `json:"type" doc:"Reference type name"`
	Fields []FieldResponse `json:"fields" doc:"Fields in schema order"`
}

// TypeFieldsOutput wraps the type fields response for Huma.
type TypeFieldsOutput struct {
	Body TypeFieldsResponse
}

// === Handlers ===

func (s *Server) handleListTypes(_ context.Context, _ *struct{}) (*ListTypesOutput, error) {
	types := s.services.References.Types()
	resp := ListTypesResponse{Types: make([]TypeResponse, len(types))}
	for i, t := range types {
		resp.Types[i] = TypeResponse{ID: t.ID, Name: t.Name}
	}
	return &ListTypesOutput{Body: resp}, nil
}

func (s *Server) handleListTypeFields(_ context.Context, input *TypeFieldsInput) (*TypeFieldsOutput, error) {
	fields, err := s.services.References.Fields(input.Name)
	if err != nil {
		return nil, err
	}

	resp := TypeFieldsResponse{Type: input.Name, Fields: make([]FieldResponse, len(fields))}
	for i, f := range fields {
		resp.Fields[i] = FieldResponse{
			Key:        f.Key,
			Kind:       f.Kind,
			InputType:  f.InputType,
			Required:   f.Required,
			Additional: f.Additional,
		}
	}
	return &TypeFieldsOutput{Body: resp}, nil
}
