package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/id"
	"github.com/refshelf/refshelf-server/internal/normalize"
	"github.com/refshelf/refshelf-server/internal/schema"
	"github.com/refshelf/refshelf-server/internal/store"
)

// referenceColumns is the ordered list of columns selected in reference queries.
// Must match the scan order in scanReference.
const referenceColumns = `r.seq, r.id, r.bib_key, t.name, r.is_public, r.created_at`

const referenceFrom = `FROM bib_references r JOIN reference_types t ON t.id = r.reference_type_id`

// scanReference scans a sql.Row (or sql.Rows via its Scan method) into a domain.Reference.
// Fields and Tag are attached separately by attachDetails.
func scanReference(scanner interface{ Scan(dest ...any) error }) (*domain.Reference, error) {
	var (
		r         domain.Reference
		isPublic  int
		createdAt string
	)
	if err := scanner.Scan(&r.Seq, &r.ID, &r.Key, &r.Type, &isPublic, &createdAt); err != nil {
		return nil, err
	}
	r.IsPublic = isPublic == 1

	var err error
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.Fields = map[string]string{}
	return &r, nil
}

// SaveReference creates or edits a reference and rewrites its attribute rows in one
// transaction. With p.OwnerID set, the owner link is part of that transaction.
//
// Attributes named by schema.ReservedKeys are ignored, blank values are skipped and
// keys the type does not bind are dropped.
func (s *Store) SaveReference(ctx context.Context, p store.SaveParams) (string, error) {
	reg := s.Registry()
	rt, ok := reg.TypeByName(p.TypeName)
	if !ok {
		return "", domainerrors.UnknownType(p.TypeName)
	}

	key := strings.TrimSpace(p.Key)
	if key == "" {
		return "", domainerrors.Validation("bib_key is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageErr(err, "begin save")
	}
	defer tx.Rollback()

	var refID string
	if p.Editing {
		refID, err = s.updateReference(ctx, tx, rt, key, p)
	} else {
		refID, err = s.insertReference(ctx, tx, rt, key, p)
	}
	if err != nil {
		return "", err
	}

	written, err := s.writeValues(ctx, tx, reg, refID, p)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", storageErr(err, "commit save")
	}

	s.logger.Info("reference saved",
		"bib_key", key,
		"type", rt.Name,
		"owner_id", p.OwnerID,
		"editing", p.Editing,
		"values", written,
	)
	return refID, nil
}

func (s *Store) insertReference(ctx context.Context, tx *sql.Tx, rt domain.ReferenceType, key string, p store.SaveParams) (string, error) {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT id FROM bib_references WHERE bib_key = ?`, key).Scan(&existing)
	switch {
	case err == nil:
		return "", domainerrors.DuplicateKey(key)
	case !errors.Is(err, sql.ErrNoRows):
		return "", storageErr(err, "check bib_key")
	}

	refID, err := id.Generate(id.PrefixReference)
	if err != nil {
		return "", storageErr(err, "generate reference id")
	}

	isPublic := true
	if p.IsPublic != nil {
		isPublic = *p.IsPublic
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bib_references (id, bib_key, reference_type_id, is_public, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		refID, key, rt.ID, boolToInt(isPublic), s.timestamp(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domainerrors.DuplicateKey(key)
		}
		return "", storageErr(err, "insert reference")
	}

	if p.OwnerID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_references (user_id, reference_id) VALUES (?, ?)`, p.OwnerID, refID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return "", domainerrors.UserNotFound(p.OwnerID)
			}
			return "", storageErr(err, "link owner")
		}
	}
	return refID, nil
}

func (s *Store) updateReference(ctx context.Context, tx *sql.Tx, rt domain.ReferenceType, key string, p store.SaveParams) (string, error) {
	target := strings.TrimSpace(p.OldKey)
	if target == "" {
		target = key
	}

	var (
		refID    string
		isPublic int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, is_public FROM bib_references WHERE bib_key = ?`, target).Scan(&refID, &isPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domainerrors.ReferenceNotFound(target)
	}
	if err != nil {
		return "", storageErr(err, "find reference")
	}

	if p.OwnerID != "" {
		var owned int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM user_references WHERE user_id = ? AND reference_id = ?`, p.OwnerID, refID).Scan(&owned)
		if errors.Is(err, sql.ErrNoRows) {
			// Not owned reads the same as missing.
			return "", domainerrors.ReferenceNotFound(target)
		}
		if err != nil {
			return "", storageErr(err, "check owner")
		}
	}

	if key != target {
		var other string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM bib_references WHERE bib_key = ? AND id <> ?`, key, refID).Scan(&other)
		if err == nil {
			return "", domainerrors.DuplicateKey(key)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", storageErr(err, "check bib_key")
		}
	}

	if p.IsPublic != nil {
		isPublic = boolToInt(*p.IsPublic)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bib_references SET bib_key = ?, reference_type_id = ?, is_public = ?
		WHERE id = ?`,
		key, rt.ID, isPublic, refID,
	); err != nil {
		if isUniqueViolation(err) {
			return "", domainerrors.DuplicateKey(key)
		}
		return "", storageErr(err, "update reference")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_values WHERE reference_id = ?`, refID); err != nil {
		return "", storageErr(err, "clear values")
	}
	return refID, nil
}

func (s *Store) writeValues(ctx context.Context, tx *sql.Tx, reg *schema.Registry, refID string, p store.SaveParams) (int, error) {
	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	written := 0
	for _, k := range keys {
		if schema.IsReserved(k) {
			continue
		}
		v := normalize.Value(p.Attributes[k])
		if v == "" {
			continue
		}
		fid, ok := reg.Resolve(p.TypeName, k)
		if !ok {
			s.logger.Debug("skipping unbound attribute", "type", p.TypeName, "key", k)
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference_values (reference_id, field_id, value) VALUES (?, ?, ?)`,
			refID, fid, v,
		); err != nil {
			return 0, storageErr(err, "insert value "+k)
		}
		written++
	}
	return written, nil
}

// DeleteReference deletes key only when ownerID owns it. A missing key, a key owned by
// someone else and an empty ownerID are all silent no-ops. Values, ownership links and
// the tag link go with it via ON DELETE CASCADE.
func (s *Store) DeleteReference(ctx context.Context, key, ownerID string) error {
	if ownerID == "" {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bib_references
		WHERE bib_key = ?
		  AND id IN (SELECT reference_id FROM user_references WHERE user_id = ?)`,
		key, ownerID,
	)
	if err != nil {
		return storageErr(err, "delete reference")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("reference deleted", "bib_key", key, "owner_id", ownerID)
	}
	return nil
}

// DeleteReferenceUnscoped deletes key regardless of ownership.
//
// This is a privileged operation. It must never be reachable from unauthenticated
// or user-supplied input; only operator tooling calls it.
func (s *Store) DeleteReferenceUnscoped(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bib_references WHERE bib_key = ?`, key)
	if err != nil {
		return storageErr(err, "delete reference")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Warn("reference deleted without owner scope", "bib_key", key)
	}
	return nil
}

// GetReference fetches key with its fields and tag. With an ownerID the reference
// must be linked to that owner (any visibility); without one it must be public.
// Returns (nil, nil) when nothing matches.
func (s *Store) GetReference(ctx context.Context, key, ownerID string) (*domain.Reference, error) {
	var row *sql.Row
	if ownerID != "" {
		row = s.db.QueryRowContext(ctx, `SELECT `+referenceColumns+` `+referenceFrom+`
			JOIN user_references ur ON ur.reference_id = r.id AND ur.user_id = ?
			WHERE r.bib_key = ?`, ownerID, key)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+referenceColumns+` `+referenceFrom+`
			WHERE r.bib_key = ? AND r.is_public = 1`, key)
	}

	ref, err := scanReference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get reference")
	}

	if err := s.attachDetails(ctx, []*domain.Reference{ref}); err != nil {
		return nil, err
	}
	return ref, nil
}

// GetVisibility reports whether key is public. A missing key reads as public.
func (s *Store) GetVisibility(ctx context.Context, key string) (bool, error) {
	var isPublic int
	err := s.db.QueryRowContext(ctx, `SELECT is_public FROM bib_references WHERE bib_key = ?`, key).Scan(&isPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, storageErr(err, "get visibility")
	}
	return isPublic == 1, nil
}

// maxInArgs keeps IN lists well under SQLite's bound-parameter limit.
const maxInArgs = 500

// attachDetails fills Fields and Tag for refs with two batched queries per chunk.
func (s *Store) attachDetails(ctx context.Context, refs []*domain.Reference) error {
	byID := make(map[string]*domain.Reference, len(refs))
	for _, r := range refs {
		byID[r.ID] = r
	}

	for start := 0; start < len(refs); start += maxInArgs {
		end := min(start+maxInArgs, len(refs))
		args := make([]any, 0, end-start)
		for _, r := range refs[start:end] {
			args = append(args, r.ID)
		}
		in := placeholders(len(args))

		if err := s.attachValues(ctx, byID, in, args); err != nil {
			return err
		}
		if err := s.attachTags(ctx, byID, in, args); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachValues(ctx context.Context, byID map[string]*domain.Reference, in string, args []any) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rv.reference_id, f.key_name, rv.value
		FROM reference_values rv
		JOIN fields f ON f.id = rv.field_id
		WHERE rv.reference_id IN (`+in+`)`, args...)
	if err != nil {
		return storageErr(err, "load values")
	}
	defer rows.Close()

	for rows.Next() {
		var refID, key, value string
		if err := rows.Scan(&refID, &key, &value); err != nil {
			return storageErr(err, "scan value")
		}
		if r, ok := byID[refID]; ok {
			r.Fields[key] = value
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr(err, "iterate values")
	}
	return nil
}

func (s *Store) attachTags(ctx context.Context, byID map[string]*domain.Reference, in string, args []any) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rt.reference_id, `+tagColumns+`
		FROM reference_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.reference_id IN (`+in+`)`, args...)
	if err != nil {
		return storageErr(err, "load tags")
	}
	defer rows.Close()

	for rows.Next() {
		var refID string
		tag, err := scanTag(prefixedScanner{rows: rows, prefix: []any{&refID}})
		if err != nil {
			return storageErr(err, "scan tag")
		}
		if r, ok := byID[refID]; ok {
			r.Tag = tag
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr(err, "iterate tags")
	}
	return nil
}

// prefixedScanner lets scanTag read rows that carry extra leading columns.
type prefixedScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixedScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(append([]any{}, p.prefix...), dest...)...)
}
