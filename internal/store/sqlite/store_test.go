package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/id"
	"github.com/refshelf/refshelf-server/internal/schema"
	"github.com/refshelf/refshelf-server/internal/store"
)

const testDefinition = `{
  "article": [
    {"key": "author", "type": "str", "input-type": "text", "required": true},
    {"key": "title", "type": "str", "input-type": "text", "required": true},
    {"key": "journal", "type": "str", "input-type": "text", "required": true},
    {"key": "year", "type": "int", "input-type": "number", "required": true},
    {"key": "volume", "type": "int", "input-type": "number"},
    {"key": "pages", "type": "str", "input-type": "text"},
    {"key": "doi", "type": "str", "input-type": "text", "additional": true}
  ],
  "book": [
    {"key": "author", "type": "str", "input-type": "text", "required": true},
    {"key": "title", "type": "str", "input-type": "text", "required": true},
    {"key": "publisher", "type": "str", "input-type": "text", "required": true},
    {"key": "year", "type": "int", "input-type": "number", "required": true}
  ]
}`

// tickingClock advances one second per call so created_at is strictly increasing.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if len(opts) == 0 {
		opts = []Option{WithClock(tickingClock())}
	}
	s, err := Open(dbPath, logger, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newSeededStore opens a store with the article/book catalog seeded.
func newSeededStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := newTestStore(t, opts...)
	def, err := schema.ParseJSON([]byte(testDefinition))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	if err := s.SeedSchema(context.Background(), def); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	return s
}

func createTestUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           id.MustGenerate(id.PrefixUser),
		Username:     username,
		PasswordHash: "$argon2id$test",
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return u
}

// saveOwned saves an article owned by owner and returns its id.
func saveOwned(t *testing.T, s *Store, owner *domain.User, key string, public bool, attrs map[string]string) string {
	t.Helper()
	ctx := context.Background()
	refID, err := s.SaveReference(ctx, store.SaveParams{
		TypeName:   "article",
		Key:        key,
		Attributes: attrs,
		IsPublic:   &public,
	})
	if err != nil {
		t.Fatalf("SaveReference %s: %v", key, err)
	}
	if owner != nil {
		if err := s.LinkOwner(ctx, owner.ID, refID); err != nil {
			t.Fatalf("LinkOwner %s: %v", key, err)
		}
	}
	return refID
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"reference_types", "fields", "reference_type_fields",
		"users", "bib_references", "reference_values",
		"tags", "reference_tags", "user_references",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	if got := len(s.Registry().Types()); got != 0 {
		t.Errorf("fresh registry has %d types, want 0", got)
	}
}

func TestOpen_ReloadsRegistry(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	def, err := schema.ParseJSON([]byte(testDefinition))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	if err := s.SeedSchema(context.Background(), def); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent) and see the seeded catalog.
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()

	if _, ok := s2.Registry().TypeByName("book"); !ok {
		t.Error("expected book type after re-open")
	}
	if got := s2.Registry().FieldKeys("book"); len(got) != 4 {
		t.Errorf("book fields: got %v", got)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
