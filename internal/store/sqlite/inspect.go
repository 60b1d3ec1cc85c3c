package sqlite

import (
	"context"
)

// TypeReport summarises one reference type in the catalog.
type TypeReport struct {
	Name       string
	Fields     []string
	Required   []string
	References int
}

// Report is a read-only snapshot of the catalog and row counts, used by operator tooling.
type Report struct {
	Types      []TypeReport
	FieldCount int
	Values     int
	Users      int
	Tags       int
	References int
	Public     int
}

// Inspect builds a Report from the live registry and table counts.
func (s *Store) Inspect(ctx context.Context) (*Report, error) {
	reg := s.Registry()

	perType := map[string]int{}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, COUNT(r.id)
		FROM reference_types t
		LEFT JOIN bib_references r ON r.reference_type_id = t.id
		GROUP BY t.id`)
	if err != nil {
		return nil, storageErr(err, "count references by type")
	}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			rows.Close()
			return nil, storageErr(err, "scan type count")
		}
		perType[name] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate type counts")
	}

	rep := &Report{}
	for _, t := range reg.Types() {
		tr := TypeReport{Name: t.Name, References: perType[t.Name]}
		for _, f := range reg.Lookup(t.Name) {
			tr.Fields = append(tr.Fields, f.Key)
			if f.Required {
				tr.Required = append(tr.Required, f.Key)
			}
		}
		rep.Types = append(rep.Types, tr)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM fields`, &rep.FieldCount},
		{`SELECT COUNT(*) FROM reference_values`, &rep.Values},
		{`SELECT COUNT(*) FROM users`, &rep.Users},
		{`SELECT COUNT(*) FROM tags`, &rep.Tags},
		{`SELECT COUNT(*) FROM bib_references`, &rep.References},
		{`SELECT COUNT(*) FROM bib_references WHERE is_public = 1`, &rep.Public},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, storageErr(err, "count rows")
		}
	}
	return rep, nil
}
