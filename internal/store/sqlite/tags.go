package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/id"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `t.id, t.name, t.created_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &t.Name, &createdAt); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTag inserts a tag and returns its id.
// Returns a DUPLICATE_TAG error when the name is taken.
func (s *Store) CreateTag(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domainerrors.Validation("tag name is required")
	}

	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return "", storageErr(err, "generate tag id")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		tagID, name, s.timestamp(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domainerrors.DuplicateTag(name)
		}
		return "", storageErr(err, "insert tag")
	}
	return tagID, nil
}

// GetTagIDByName looks a tag up by exact name.
func (s *Store) GetTagIDByName(ctx context.Context, name string) (string, bool, error) {
	var tagID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ?`, strings.TrimSpace(name)).Scan(&tagID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr(err, "get tag")
	}
	return tagID, true, nil
}

// SetReferenceTag replaces whatever tag referenceID carries with tagID.
func (s *Store) SetReferenceTag(ctx context.Context, tagID, referenceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin tag")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM bib_references WHERE id = ?`, referenceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domainerrors.ReferenceNotFound(referenceID)
	}
	if err != nil {
		return storageErr(err, "check reference")
	}

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domainerrors.NotFoundf("tag %q not found", tagID)
	}
	if err != nil {
		return storageErr(err, "check tag")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_tags WHERE reference_id = ?`, referenceID); err != nil {
		return storageErr(err, "clear tag link")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reference_tags (reference_id, tag_id, created_at) VALUES (?, ?, ?)`,
		referenceID, tagID, s.timestamp(),
	); err != nil {
		return storageErr(err, "insert tag link")
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit tag")
	}
	return nil
}

// ClearReferenceTag removes the tag link of referenceID, if any.
func (s *Store) ClearReferenceTag(ctx context.Context, referenceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reference_tags WHERE reference_id = ?`, referenceID); err != nil {
		return storageErr(err, "clear tag link")
	}
	return nil
}

// GetReferenceTag returns the tag on referenceID, or nil when it has none.
func (s *Store) GetReferenceTag(ctx context.Context, referenceID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tagColumns+`
		FROM reference_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.reference_id = ?`, referenceID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get reference tag")
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags t ORDER BY t.name ASC`)
	if err != nil {
		return nil, storageErr(err, "list tags")
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, storageErr(err, "scan tag")
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate tags")
	}
	return tags, nil
}
