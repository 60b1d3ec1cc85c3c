package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/schema"
)

// LoadRegistry rebuilds the registry from the seeded catalog and installs it.
// The catalog, not the definition file, is authoritative at runtime.
func (s *Store) LoadRegistry(ctx context.Context) (*schema.Registry, error) {
	types, err := s.listTypes(ctx, s.db)
	if err != nil {
		return nil, storageErr(err, "load reference types")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, f.id, f.key_name, f.data_type, f.input_type, f.additional, b.required
		FROM reference_type_fields b
		JOIN reference_types t ON t.id = b.reference_type_id
		JOIN fields f ON f.id = b.field_id
		ORDER BY b.reference_type_id, b.position`)
	if err != nil {
		return nil, storageErr(err, "load field bindings")
	}
	defer rows.Close()

	fields := make(map[string][]domain.FieldDefinition)
	for rows.Next() {
		var (
			typeName             string
			f                    domain.FieldDefinition
			additional, required int
		)
		if err := rows.Scan(&typeName, &f.ID, &f.Key, &f.Kind, &f.InputType, &additional, &required); err != nil {
			return nil, storageErr(err, "scan field binding")
		}
		f.Additional = additional == 1
		f.Required = required == 1
		fields[typeName] = append(fields[typeName], f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate field bindings")
	}

	reg := schema.NewRegistry(types, fields)
	s.registry.Store(reg)
	return reg, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) listTypes(ctx context.Context, q queryer) ([]domain.ReferenceType, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM reference_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.ReferenceType
	for rows.Next() {
		var t domain.ReferenceType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// SeedSchema rewrites the catalog from def in one transaction and reloads the registry.
//
// Type and field ids are kept for names that survive, so existing references stay
// valid. Seeding fails with a SCHEMA error if it would drop a type that references
// still use. Values whose field is no longer bound to their reference's type are
// deleted, which keeps every stored value bound to its type.
func (s *Store) SeedSchema(ctx context.Context, def *schema.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin seed")
	}
	defer tx.Rollback()

	keep := make(map[string]struct{}, len(def.Types))
	for _, t := range def.Types {
		keep[t.Name] = struct{}{}
	}

	inUse, err := typesInUse(ctx, tx)
	if err != nil {
		return storageErr(err, "list types in use")
	}
	for _, name := range inUse {
		if _, ok := keep[name]; !ok {
			return domainerrors.Schemaf("type %q is still used by stored references", name)
		}
	}

	typeIDs := make(map[string]int64, len(def.Types))
	for _, t := range def.Types {
		tid, err := upsertID(ctx, tx,
			`INSERT INTO reference_types (name) VALUES (?) ON CONFLICT(name) DO NOTHING`,
			`SELECT id FROM reference_types WHERE name = ?`, t.Name)
		if err != nil {
			return storageErr(err, fmt.Sprintf("seed type %q", t.Name))
		}
		typeIDs[t.Name] = tid
	}

	fieldIDs := make(map[string]int64)
	for _, t := range def.Types {
		for _, f := range t.Fields {
			if _, done := fieldIDs[f.Key]; done {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO fields (key_name, data_type, input_type, additional)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(key_name) DO UPDATE SET
					data_type = excluded.data_type,
					input_type = excluded.input_type,
					additional = excluded.additional`,
				f.Key, f.Type, f.InputType, boolToInt(f.Additional),
			); err != nil {
				return storageErr(err, fmt.Sprintf("seed field %q", f.Key))
			}
			var fid int64
			if err := tx.QueryRowContext(ctx, `SELECT id FROM fields WHERE key_name = ?`, f.Key).Scan(&fid); err != nil {
				return storageErr(err, fmt.Sprintf("read field %q", f.Key))
			}
			fieldIDs[f.Key] = fid
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_type_fields`); err != nil {
		return storageErr(err, "clear bindings")
	}
	for _, t := range def.Types {
		for pos, f := range t.Fields {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reference_type_fields (reference_type_id, field_id, required, position)
				VALUES (?, ?, ?, ?)`,
				typeIDs[t.Name], fieldIDs[f.Key], boolToInt(f.Required), pos,
			); err != nil {
				return storageErr(err, fmt.Sprintf("bind %s.%s", t.Name, f.Key))
			}
		}
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM reference_values
		WHERE NOT EXISTS (
			SELECT 1 FROM bib_references r
			JOIN reference_type_fields b ON b.reference_type_id = r.reference_type_id
			WHERE r.id = reference_values.reference_id AND b.field_id = reference_values.field_id
		)`)
	if err != nil {
		return storageErr(err, "drop unbound values")
	}
	orphaned, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fields WHERE id NOT IN (SELECT field_id FROM reference_type_fields)`); err != nil {
		return storageErr(err, "drop unused fields")
	}

	stale := make([]any, 0, len(keep))
	for name := range keep {
		stale = append(stale, name)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reference_types WHERE name NOT IN (`+placeholders(len(stale))+`)`, stale...); err != nil {
		return storageErr(err, "drop unused types")
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit seed")
	}

	s.logger.Info("schema seeded",
		"types", len(def.Types),
		"fields", len(fieldIDs),
		"dropped_values", orphaned,
	)

	_, err = s.LoadRegistry(ctx)
	return err
}

func typesInUse(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT t.name FROM bib_references r
		JOIN reference_types t ON t.id = r.reference_type_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// upsertID inserts a row if missing and returns its id.
func upsertID(ctx context.Context, tx *sql.Tx, insert, lookup string, arg any) (int64, error) {
	if _, err := tx.ExecContext(ctx, insert, arg); err != nil {
		return 0, err
	}
	var rowID int64
	err := tx.QueryRowContext(ctx, lookup, arg).Scan(&rowID)
	return rowID, err
}
