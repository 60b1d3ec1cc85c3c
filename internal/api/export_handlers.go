package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/refshelf/refshelf-server/internal/bibtex"
	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/query"
)

const exportDisposition = `attachment; filename="references.bib"`

func (s *Server) registerExportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportReferences",
		Method:      http.MethodPost,
		Path:        "/api/v1/export",
		Summary:     "Export selected references",
		Description: "Renders the listed bib_keys as BibTeX, in list order. Keys the caller cannot see are skipped.",
		Tags:        []string{"Export"},
		Security:    []map[string][]string{{"bearer": {}}, {}},
	}, s.handleExportSelected)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportAll",
		Method:      http.MethodGet,
		Path:        "/api/v1/export",
		Summary:     "Export visible references",
		Description: "Renders every reference the caller can see as BibTeX, filtered and sorted like the list endpoint",
		Tags:        []string{"Export"},
		Security:    []map[string][]string{{"bearer": {}}, {}},
	}, s.handleExportAll)
}

// === DTOs ===

// ExportRequest lists the keys to export.
type ExportRequest struct {
	Keys []string `json:"keys" maxItems:"1000" doc:"bib_keys in export order; repeats are dropped"`
}

// ExportInput wraps the export request for Huma.
type ExportInput struct {
	Body ExportRequest
}

// ExportAllInput contains filter and sort parameters.
type ExportAllInput struct {
	Type string `query:"type" maxLength:"50" doc:"Only this reference type"`
	Tag  string `query:"tag" maxLength:"50" doc:"Only references carrying this tag"`
	Sort string `query:"sort" maxLength:"20" doc:"newest, oldest, bib_key, title or author (default newest)"`
}

// ExportOutput is a raw BibTeX document.
type ExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// === Handlers ===

func (s *Server) handleExportSelected(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	out, err := s.services.References.Export(ctx, domain.NewExportList(input.Body.Keys...), viewerID(ctx))
	if err != nil {
		return nil, err
	}
	return bibtexOutput(out), nil
}

func (s *Server) handleExportAll(ctx context.Context, input *ExportAllInput) (*ExportOutput, error) {
	opts := query.Options{
		Type: input.Type,
		Tag:  input.Tag,
		Sort: query.ParseSort(input.Sort),
	}
	out, err := s.services.References.ExportAll(ctx, opts, viewerID(ctx))
	if err != nil {
		return nil, err
	}
	return bibtexOutput(out), nil
}

func bibtexOutput(doc string) *ExportOutput {
	return &ExportOutput{
		ContentType:        bibtex.ContentType,
		ContentDisposition: exportDisposition,
		Body:               []byte(doc),
	}
}
