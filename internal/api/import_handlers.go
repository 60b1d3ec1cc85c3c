package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/refshelf/refshelf-server/internal/service"
)

func (s *Server) registerImportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "importDOI",
		Method:        http.MethodPost,
		Path:          "/api/v1/import/doi",
		Summary:       "Import from DOI",
		Description:   "Fetches DOI metadata and saves it as a reference owned by the caller. Fields the resolved type does not bind are dropped.",
		Tags:          []string{"Import"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleImportDOI)
}

// ImportDOIRequest is the request body for a DOI import.
type ImportDOIRequest struct {
	DOI      string `json:"doi" maxLength:"300" doc:"DOI, bare or as a doi.org URL"`
	Key      string `json:"bib_key,omitempty" maxLength:"100" doc:"Citation key; derived from author and year when omitted"`
	IsPublic *bool  `json:"is_public,omitempty" doc:"Public visibility (default true)"`
}

// ImportDOIInput wraps the import request for Huma.
type ImportDOIInput struct {
	Body ImportDOIRequest
}

func (s *Server) handleImportDOI(ctx context.Context, input *ImportDOIInput) (*ReferenceOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := s.services.References.ImportDOI(ctx, userID, service.ImportRequest{
		DOI:      input.Body.DOI,
		Key:      input.Body.Key,
		IsPublic: input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &ReferenceOutput{Body: mapReference(ref)}, nil
}
