// Package store defines the persistence interface for references, ownership, tags and users.
package store

import (
	"context"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/schema"
)

// SaveParams describes one create or edit of a reference.
type SaveParams struct {
	TypeName string
	Key      string
	// OldKey locates the target when editing a reference whose key changes.
	OldKey     string
	Attributes map[string]string
	// IsPublic is optional: nil keeps the stored visibility on edit and means public on create.
	IsPublic *bool
	Editing  bool
	// OwnerID, when set, is linked as owner in the same transaction on create and
	// must already own the target on edit.
	OwnerID string
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Schema catalog
	Registry() *schema.Registry
	LoadRegistry(ctx context.Context) (*schema.Registry, error)
	SeedSchema(ctx context.Context, def *schema.Definition) error

	// References
	SaveReference(ctx context.Context, p SaveParams) (string, error)
	DeleteReference(ctx context.Context, key, ownerID string) error
	DeleteReferenceUnscoped(ctx context.Context, key string) error
	GetReference(ctx context.Context, key, ownerID string) (*domain.Reference, error)
	GetVisibility(ctx context.Context, key string) (bool, error)

	// Ownership and visibility-scoped reads
	LinkOwner(ctx context.Context, userID, referenceID string) error
	UnlinkOwner(ctx context.Context, userID, referenceID string) error
	ListReferences(ctx context.Context, ownerID string) ([]*domain.Reference, error)
	SearchReferences(ctx context.Context, query, ownerID string) ([]*domain.Reference, error)

	// Tags
	CreateTag(ctx context.Context, name string) (string, error)
	GetTagIDByName(ctx context.Context, name string) (string, bool, error)
	SetReferenceTag(ctx context.Context, tagID, referenceID string) error
	ClearReferenceTag(ctx context.Context, referenceID string) error
	GetReferenceTag(ctx context.Context, referenceID string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
