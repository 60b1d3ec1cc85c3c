package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/refshelf/refshelf-server/internal/auth"
	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/schema"
	"github.com/refshelf/refshelf-server/internal/store/sqlite"
)

const testSchema = `{
  "article": [
    {"key": "author", "type": "str", "input-type": "text", "required": true},
    {"key": "title", "type": "str", "input-type": "text", "required": true},
    {"key": "journal", "type": "str", "input-type": "text", "required": true},
    {"key": "year", "type": "int", "input-type": "number", "required": true},
    {"key": "pages", "type": "str", "input-type": "text"},
    {"key": "doi", "type": "str", "input-type": "text", "additional": true}
  ],
  "inproceedings": [
    {"key": "author", "type": "str", "input-type": "text", "required": true},
    {"key": "title", "type": "str", "input-type": "text", "required": true},
    {"key": "booktitle", "type": "str", "input-type": "text", "required": true},
    {"key": "year", "type": "int", "input-type": "number", "required": true}
  ]
}`

type testEnv struct {
	store *sqlite.Store
	refs  *ReferenceService
	auth  *AuthService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTest opens a seeded store in a temp dir and wires both services to it.
func setupTest(t *testing.T, fetcher MetadataFetcher) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := discardLogger()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger, sqlite.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	def, err := schema.ParseJSON([]byte(testSchema))
	require.NoError(t, err)
	require.NoError(t, st.SeedSchema(context.Background(), def))

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	return &testEnv{
		store: st,
		refs:  NewReferenceService(st, fetcher, logger),
		auth:  NewAuthService(st, tokens, logger),
	}
}

func (e *testEnv) user(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterRequest{Username: username, Password: "password123"})
	require.NoError(t, err)
	return u
}

func smithRequest() SaveRequest {
	public := true
	return SaveRequest{
		Type: "article",
		Key:  "Smith2020",
		Fields: map[string]string{
			"author":  "John Smith",
			"title":   "A Great Paper",
			"journal": "Journal of Examples",
			"year":    "2020",
		},
		IsPublic: &public,
	}
}
