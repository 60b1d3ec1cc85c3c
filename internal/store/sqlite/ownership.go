package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/normalize"
)

// LinkOwner records userID as an owner of referenceID. Linking twice is a no-op.
func (s *Store) LinkOwner(ctx context.Context, userID, referenceID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domainerrors.UserNotFound(userID)
	}
	if err != nil {
		return storageErr(err, "check user")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_references (user_id, reference_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		userID, referenceID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domainerrors.ReferenceNotFound(referenceID)
		}
		return storageErr(err, "link owner")
	}
	return nil
}

// UnlinkOwner drops the ownership link. The reference itself is kept.
func (s *Store) UnlinkOwner(ctx context.Context, userID, referenceID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_references WHERE user_id = ? AND reference_id = ?`, userID, referenceID)
	if err != nil {
		return storageErr(err, "unlink owner")
	}
	return nil
}

// ListReferences returns the references visible to ownerID, newest first.
//
// An owner sees everything they own, private or not. With an empty ownerID the
// public view is returned: public references that have at least one owner.
func (s *Store) ListReferences(ctx context.Context, ownerID string) ([]*domain.Reference, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID != "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+referenceColumns+` `+referenceFrom+`
			JOIN user_references ur ON ur.reference_id = r.id AND ur.user_id = ?
			ORDER BY r.created_at DESC, r.seq DESC`, ownerID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+referenceColumns+` `+referenceFrom+`
			WHERE r.is_public = 1
			  AND EXISTS (SELECT 1 FROM user_references ur WHERE ur.reference_id = r.id)
			ORDER BY r.created_at DESC, r.seq DESC`)
	}
	if err != nil {
		return nil, storageErr(err, "list references")
	}

	refs, err := collectReferences(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachDetails(ctx, refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// SearchReferences narrows ListReferences to references whose bib_key or any
// field value contains query, compared case-insensitively. A blank query
// returns the full listing.
func (s *Store) SearchReferences(ctx context.Context, query, ownerID string) ([]*domain.Reference, error) {
	refs, err := s.ListReferences(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return refs, nil
	}

	matched := make([]*domain.Reference, 0, len(refs))
	for _, r := range refs {
		if matchesQuery(r, query) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func matchesQuery(r *domain.Reference, query string) bool {
	if normalize.Contains(r.Key, query) {
		return true
	}
	for _, v := range r.Fields {
		if normalize.Contains(v, query) {
			return true
		}
	}
	return false
}

func collectReferences(rows *sql.Rows) ([]*domain.Reference, error) {
	defer rows.Close()

	refs := []*domain.Reference{}
	for rows.Next() {
		r, err := scanReference(rows)
		if err != nil {
			return nil, storageErr(err, "scan reference")
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate references")
	}
	return refs, nil
}
