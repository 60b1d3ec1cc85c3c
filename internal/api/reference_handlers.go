package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/query"
	"github.com/refshelf/refshelf-server/internal/service"
)

func (s *Server) registerReferenceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/references",
		Summary:     "List references",
		Description: "Returns the caller's references, or the public view for anonymous callers, filtered, searched and sorted",
		Tags:        []string{"References"},
		Security:    []map[string][]string{{"bearer": {}}, {}},
	}, s.handleListReferences)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReference",
		Method:        http.MethodPost,
		Path:          "/api/v1/references",
		Summary:       "Create reference",
		Description:   "Creates a reference owned by the caller",
		Tags:          []string{"References"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReference)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReference",
		Method:      http.MethodGet,
		Path:        "/api/v1/references/{key}",
		Summary:     "Get reference",
		Description: "Returns a reference the caller owns or that is public",
		Tags:        []string{"References"},
		Security:    []map[string][]string{{"bearer": {}}, {}},
	}, s.handleGetReference)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReference",
		Method:      http.MethodPut,
		Path:        "/api/v1/references/{key}",
		Summary:     "Update reference",
		Description: "Replaces a reference the caller owns. A different bib_key in the body renames it.",
		Tags:        []string{"References"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReference)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteReference",
		Method:        http.MethodDelete,
		Path:          "/api/v1/references/{key}",
		Summary:       "Delete reference",
		Description:   "Deletes a reference the caller owns. Deleting a missing key succeeds.",
		Tags:          []string{"References"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteReference)

	huma.Register(s.api, huma.Operation{
		OperationID:   "disownReference",
		Method:        http.MethodDelete,
		Path:          "/api/v1/references/{key}/owner",
		Summary:       "Disown reference",
		Description:   "Removes the caller as an owner without deleting the reference",
		Tags:          []string{"References"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDisownReference)

	huma.Register(s.api, huma.Operation{
		OperationID: "tagReference",
		Method:      http.MethodPut,
		Path:        "/api/v1/references/{key}/tag",
		Summary:     "Tag reference",
		Description: "Sets the reference's single tag, creating the tag when needed",
		Tags:        []string{"References"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleTagReference)

	huma.Register(s.api, huma.Operation{
		OperationID:   "untagReference",
		Method:        http.MethodDelete,
		Path:          "/api/v1/references/{key}/tag",
		Summary:       "Untag reference",
		Description:   "Removes the reference's tag",
		Tags:          []string{"References"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUntagReference)
}

// === DTOs ===

// ListReferencesInput contains filter, search and sort parameters.
type ListReferencesInput struct {
	Type string `query:"type" maxLength:"50" doc:"Only this reference type"`
	Tag  string `query:"tag" maxLength:"50" doc:"Only references carrying this tag"`
	Sort string `query:"sort" maxLength:"20" doc:"newest, oldest, bib_key, title or author (default newest)"`
	Q    string `query:"q" maxLength:"200" doc:"Case-insensitive substring over bib_key and field values"`
}

// ReferenceResponse contains reference data in API responses.
type ReferenceResponse struct {
	ID        string            `json:"id" doc:"Reference ID"`
	Key       string            `json:"bib_key" doc:"Citation key"`
	Type      string            `json:"reference_type" doc:"Reference type name"`
	IsPublic  bool              `json:"is_public" doc:"Whether the reference is in the public view"`
	Fields    map[string]string `json:"fields" doc:"Field values by key"`
	Tag       string            `json:"tag,omitempty" doc:"Tag name"`
	CreatedAt time.Time         `json:"created_at" doc:"Creation time"`
}

// ListReferencesResponse contains a list of references.
type ListReferencesResponse struct {
	References []ReferenceResponse `json:"references" doc:"Matching references"`
	Total      int                 `json:"total" doc:"Number of references returned"`
}

// ListReferencesOutput wraps the list response for Huma.
type ListReferencesOutput struct {
	Body ListReferencesResponse
}

// ReferenceOutput wraps a single reference for Huma.
type ReferenceOutput struct {
	Body ReferenceResponse
}

// ReferenceRequest is the body for creating or replacing a reference.
type ReferenceRequest struct {
	Type     string            `json:"reference_type" maxLength:"50" doc:"Reference type name"`
	Key      string            `json:"bib_key,omitempty" maxLength:"100" doc:"Citation key; on update, a new key renames the reference"`
	Fields   map[string]string `json:"fields,omitempty" doc:"Field values by key"`
	IsPublic *bool             `json:"is_public,omitempty" doc:"Public visibility (default true on create, unchanged on update)"`
}

// CreateReferenceInput wraps the create request for Huma.
type CreateReferenceInput struct {
	Body ReferenceRequest
}

// ReferenceKeyInput addresses one reference.
type ReferenceKeyInput struct {
	Key string `path:"key" maxLength:"100" doc:"Citation key"`
}

// UpdateReferenceInput wraps the update request for Huma.
type UpdateReferenceInput struct {
	Key  string `path:"key" maxLength:"100" doc:"Current citation key"`
	Body ReferenceRequest
}

// TagReferenceRequest names the tag to set.
type TagReferenceRequest struct {
	Name string `json:"name" maxLength:"50" doc:"Tag name"`
}

// TagReferenceInput wraps the tag request for Huma.
type TagReferenceInput struct {
	Key  string `path:"key" maxLength:"100" doc:"Citation key"`
	Body TagReferenceRequest
}

// === Handlers ===

func (s *Server) handleListReferences(ctx context.Context, input *ListReferencesInput) (*ListReferencesOutput, error) {
	opts := query.Options{
		Type: input.Type,
		Tag:  input.Tag,
		Sort: query.ParseSort(input.Sort),
	}

	refs, err := s.services.References.Search(ctx, input.Q, opts, viewerID(ctx))
	if err != nil {
		return nil, err
	}

	resp := ListReferencesResponse{
		References: make([]ReferenceResponse, len(refs)),
		Total:      len(refs),
	}
	for i, ref := range refs {
		resp.References[i] = mapReference(ref)
	}
	return &ListReferencesOutput{Body: resp}, nil
}

func (s *Server) handleCreateReference(ctx context.Context, input *CreateReferenceInput) (*ReferenceOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := s.services.References.Create(ctx, userID, service.SaveRequest{
		Type:     input.Body.Type,
		Key:      input.Body.Key,
		Fields:   input.Body.Fields,
		IsPublic: input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &ReferenceOutput{Body: mapReference(ref)}, nil
}

func (s *Server) handleGetReference(ctx context.Context, input *ReferenceKeyInput) (*ReferenceOutput, error) {
	ref, err := s.services.References.Get(ctx, input.Key, viewerID(ctx))
	if err != nil {
		return nil, err
	}
	return &ReferenceOutput{Body: mapReference(ref)}, nil
}

func (s *Server) handleUpdateReference(ctx context.Context, input *UpdateReferenceInput) (*ReferenceOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	key := input.Body.Key
	if key == "" {
		key = input.Key
	}

	ref, err := s.services.References.Update(ctx, userID, service.SaveRequest{
		Type:     input.Body.Type,
		Key:      key,
		OldKey:   input.Key,
		Fields:   input.Body.Fields,
		IsPublic: input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &ReferenceOutput{Body: mapReference(ref)}, nil
}

func (s *Server) handleDeleteReference(ctx context.Context, input *ReferenceKeyInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.References.Delete(ctx, userID, input.Key); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleDisownReference(ctx context.Context, input *ReferenceKeyInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.References.Disown(ctx, userID, input.Key); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleTagReference(ctx context.Context, input *TagReferenceInput) (*TagOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	tag, err := s.services.References.TagReference(ctx, userID, input.Key, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: mapTag(tag)}, nil
}

func (s *Server) handleUntagReference(ctx context.Context, input *ReferenceKeyInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.References.ClearTag(ctx, userID, input.Key); err != nil {
		return nil, err
	}
	return nil, nil
}

// === Helpers ===

func mapReference(ref *domain.Reference) ReferenceResponse {
	fields := ref.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return ReferenceResponse{
		ID:        ref.ID,
		Key:       ref.Key,
		Type:      ref.Type,
		IsPublic:  ref.IsPublic,
		Fields:    fields,
		Tag:       ref.TagName(),
		CreatedAt: ref.CreatedAt,
	}
}
