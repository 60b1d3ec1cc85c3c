package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/metadata/crossref"
)

// MetadataFetcher resolves a DOI to a reference type and field values.
// *crossref.Client satisfies it.
type MetadataFetcher interface {
	Fetch(ctx context.Context, doi string) (*crossref.Metadata, error)
}

// ImportRequest imports a reference from DOI metadata.
type ImportRequest struct {
	DOI      string `json:"doi" validate:"required,max=300"`
	Key      string `json:"bib_key,omitempty" validate:"omitempty,bibkey,max=100"`
	IsPublic *bool  `json:"is_public,omitempty"`
}

var nonKeyChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// ImportDOI fetches req.DOI and saves it as a reference owned by ownerID.
//
// Only fields the resolved type binds are kept. Required fields the record lacks
// are left empty rather than failing the import. Without req.Key a key is derived
// from the first author's last name and the year, e.g. "He2016".
func (s *ReferenceService) ImportDOI(ctx context.Context, ownerID string, req ImportRequest) (*domain.Reference, error) {
	if s.metadata == nil {
		return nil, domainerrors.Internal("DOI import is not configured")
	}
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to import references")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	m, err := s.metadata.Fetch(ctx, req.DOI)
	if err != nil {
		if domainerrors.Is(err, crossref.ErrNotFound) {
			return nil, domainerrors.NotFoundf("DOI %q not found", req.DOI)
		}
		if domainerrors.Is(err, crossref.ErrInvalidDOI) {
			return nil, domainerrors.Validationf("%q is not a DOI", req.DOI)
		}
		return nil, domainerrors.Upstream(err, "fetch DOI metadata")
	}

	reg := s.store.Registry()
	if _, ok := reg.TypeByName(m.Type); !ok {
		return nil, domainerrors.UnknownType(m.Type)
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = deriveKey(m)
	}

	s.logger.Info("importing DOI",
		"doi", m.DOI,
		"type", m.Type,
		"crossref_type", m.CrossrefType,
		"bib_key", key,
		"owner_id", ownerID,
	)

	return s.save(ctx, ownerID, SaveRequest{
		Type:     m.Type,
		Key:      key,
		Fields:   reg.Filter(m.Type, m.Fields),
		IsPublic: req.IsPublic,
	}, false, false)
}

// deriveKey builds "<LastName><Year>" from the metadata, falling back to the DOI.
func deriveKey(m *crossref.Metadata) string {
	var name string
	if author := m.Fields["author"]; author != "" {
		first, _, _ := strings.Cut(author, ",")
		words := strings.Fields(first)
		if len(words) > 0 {
			name = words[len(words)-1]
		}
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name)

	if name == "" {
		return "doi-" + strings.Trim(nonKeyChars.ReplaceAllString(m.DOI, "-"), "-")
	}
	return name + m.Fields["year"]
}
