package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/refshelf/refshelf-server/internal/bibtex"
	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/query"
	"github.com/refshelf/refshelf-server/internal/store"
	"github.com/refshelf/refshelf-server/internal/validation"
)

// ReferenceService is the operation surface over the reference store, the query
// engine and the BibTeX encoder. ownerID is the authenticated caller; an empty
// ownerID is an anonymous viewer and only ever sees the public view.
type ReferenceService struct {
	store     store.Store
	metadata  MetadataFetcher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewReferenceService creates a reference service. metadata may be nil, in which
// case ImportDOI is unavailable.
func NewReferenceService(st store.Store, metadata MetadataFetcher, logger *slog.Logger) *ReferenceService {
	return &ReferenceService{
		store:     st,
		metadata:  metadata,
		validator: validation.New(),
		logger:    logger,
	}
}

// SaveRequest creates or edits one reference.
type SaveRequest struct {
	Type     string            `json:"reference_type" validate:"required,fieldkey,max=50"`
	Key      string            `json:"bib_key" validate:"required,bibkey,max=100"`
	OldKey   string            `json:"old_bib_key,omitempty" validate:"omitempty,bibkey,max=100"`
	Fields   map[string]string `json:"fields" validate:"dive,keys,fieldkey,max=50,endkeys,max=10000"`
	IsPublic *bool             `json:"is_public,omitempty"`
}

// Types returns the reference types in catalog order.
func (s *ReferenceService) Types() []domain.ReferenceType {
	return s.store.Registry().Types()
}

// Fields returns the field definitions of typeName in schema order.
func (s *ReferenceService) Fields(typeName string) ([]domain.FieldDefinition, error) {
	reg := s.store.Registry()
	if _, ok := reg.TypeByName(typeName); !ok {
		return nil, domainerrors.UnknownType(typeName)
	}
	return reg.Lookup(typeName), nil
}

// Create stores a new reference owned by ownerID.
func (s *ReferenceService) Create(ctx context.Context, ownerID string, req SaveRequest) (*domain.Reference, error) {
	return s.save(ctx, ownerID, req, false, true)
}

// Update edits a reference ownerID owns. req.OldKey names the target when the key
// changes; otherwise req.Key does. A reference the caller does not own reads as missing.
func (s *ReferenceService) Update(ctx context.Context, ownerID string, req SaveRequest) (*domain.Reference, error) {
	return s.save(ctx, ownerID, req, true, true)
}

func (s *ReferenceService) save(ctx context.Context, ownerID string, req SaveRequest, editing, requireAll bool) (*domain.Reference, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to save references")
	}
	req.Key = strings.TrimSpace(req.Key)
	req.OldKey = strings.TrimSpace(req.OldKey)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reg := s.store.Registry()
	if _, ok := reg.TypeByName(req.Type); !ok {
		return nil, domainerrors.UnknownType(req.Type)
	}
	if requireAll {
		if missing := reg.MissingRequired(req.Type, req.Fields); len(missing) > 0 {
			details := make(map[string]string, len(missing))
			for _, key := range missing {
				details["fields."+key] = "is required"
			}
			return nil, domainerrors.ValidationWithDetails("required fields are missing", details)
		}
	}

	_, err := s.store.SaveReference(ctx, store.SaveParams{
		TypeName:   req.Type,
		Key:        req.Key,
		OldKey:     req.OldKey,
		Attributes: req.Fields,
		IsPublic:   req.IsPublic,
		Editing:    editing,
		OwnerID:    ownerID,
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, req.Key, ownerID)
}

// Delete removes key if ownerID owns it. Missing and not-owned keys are silent no-ops.
func (s *ReferenceService) Delete(ctx context.Context, ownerID, key string) error {
	if ownerID == "" {
		return domainerrors.Unauthorized("sign in to delete references")
	}
	return s.store.DeleteReference(ctx, strings.TrimSpace(key), ownerID)
}

// Disown drops ownerID's link to key without deleting the reference.
func (s *ReferenceService) Disown(ctx context.Context, ownerID, key string) error {
	ref, err := s.owned(ctx, ownerID, key)
	if err != nil {
		return err
	}
	return s.store.UnlinkOwner(ctx, ownerID, ref.ID)
}

// Get returns key as visible to viewerID: an owner sees it at any visibility,
// anyone else only when it is public.
func (s *ReferenceService) Get(ctx context.Context, key, viewerID string) (*domain.Reference, error) {
	key = strings.TrimSpace(key)
	ref, err := s.store.GetReference(ctx, key, viewerID)
	if err != nil {
		return nil, err
	}
	if ref == nil && viewerID != "" {
		// A signed-in caller still sees other users' public references.
		ref, err = s.store.GetReference(ctx, key, "")
		if err != nil {
			return nil, err
		}
	}
	if ref == nil {
		return nil, domainerrors.ReferenceNotFound(key)
	}
	return ref, nil
}

// FilterSort lists the references visible to ownerID, filtered and sorted by opts.
func (s *ReferenceService) FilterSort(ctx context.Context, opts query.Options, ownerID string) ([]*domain.Reference, error) {
	refs, err := s.store.ListReferences(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return query.Apply(refs, opts), nil
}

// Search narrows the visible set by substring q, then filters and sorts like FilterSort.
func (s *ReferenceService) Search(ctx context.Context, q string, opts query.Options, ownerID string) ([]*domain.Reference, error) {
	refs, err := s.store.SearchReferences(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	return query.Apply(refs, opts), nil
}

// TagReference sets the single tag on a reference ownerID owns, creating the tag
// by name when it does not exist yet.
func (s *ReferenceService) TagReference(ctx context.Context, ownerID, key, name string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.Var("name", name, "required,max=50"); err != nil {
		return nil, err
	}
	ref, err := s.owned(ctx, ownerID, key)
	if err != nil {
		return nil, err
	}

	tagID, err := s.tagID(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetReferenceTag(ctx, tagID, ref.ID); err != nil {
		return nil, err
	}

	s.logger.Info("reference tagged",
		"bib_key", ref.Key,
		"tag", name,
		"owner_id", ownerID,
	)
	return s.store.GetReferenceTag(ctx, ref.ID)
}

// tagID looks name up and creates it when absent. A concurrent create is
// resolved by looking the name up again.
func (s *ReferenceService) tagID(ctx context.Context, name string) (string, error) {
	tagID, ok, err := s.store.GetTagIDByName(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		return tagID, nil
	}

	tagID, err = s.store.CreateTag(ctx, name)
	if domainerrors.Is(err, domainerrors.ErrDuplicateTag) {
		tagID, ok, err = s.store.GetTagIDByName(ctx, name)
		if err == nil && !ok {
			err = domainerrors.Internal("tag vanished after duplicate insert")
		}
	}
	return tagID, err
}

// ClearTag removes the tag from a reference ownerID owns.
func (s *ReferenceService) ClearTag(ctx context.Context, ownerID, key string) error {
	ref, err := s.owned(ctx, ownerID, key)
	if err != nil {
		return err
	}
	return s.store.ClearReferenceTag(ctx, ref.ID)
}

// CreateTag adds a tag. Unlike TagReference it fails on an existing name.
func (s *ReferenceService) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.Var("name", name, "required,max=50"); err != nil {
		return nil, err
	}
	tagID, err := s.store.CreateTag(ctx, name)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if t.ID == tagID {
			return t, nil
		}
	}
	return nil, domainerrors.Internal("created tag not listed")
}

// ListTags returns every tag ordered by name.
func (s *ReferenceService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// Export renders the selected keys, in list order, as visible to viewerID.
// Keys that are missing or not visible are skipped.
func (s *ReferenceService) Export(ctx context.Context, list domain.ExportList, viewerID string) (string, error) {
	refs := make([]*domain.Reference, 0, list.Len())
	for _, key := range list.Keys() {
		ref, err := s.Get(ctx, key, viewerID)
		if domainerrors.Is(err, domainerrors.ErrReferenceNotFound) {
			s.logger.Debug("export skipping key", "bib_key", key)
			continue
		}
		if err != nil {
			return "", err
		}
		refs = append(refs, ref)
	}
	return s.encoder().RenderAll(refs), nil
}

// ExportAll renders every reference visible to viewerID, filtered and sorted by opts.
func (s *ReferenceService) ExportAll(ctx context.Context, opts query.Options, viewerID string) (string, error) {
	refs, err := s.FilterSort(ctx, opts, viewerID)
	if err != nil {
		return "", err
	}
	return s.encoder().RenderAll(refs), nil
}

func (s *ReferenceService) encoder() *bibtex.Encoder {
	return bibtex.NewEncoder(s.store.Registry())
}

// owned returns key only when ownerID owns it.
func (s *ReferenceService) owned(ctx context.Context, ownerID, key string) (*domain.Reference, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to change references")
	}
	key = strings.TrimSpace(key)
	ref, err := s.store.GetReference(ctx, key, ownerID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, domainerrors.ReferenceNotFound(key)
	}
	return ref, nil
}
