package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/store"
	"github.com/refshelf/refshelf-server/internal/store/sqlite"
)

const schemaFile = "../../configs/schema.json"

// run executes refctl against dataDir and returns stdout.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	for _, key := range []string{"ENV", "LOG_LEVEL", "DATA_PATH", "SCHEMA_PATH", "ACCESS_TOKEN_DURATION", "CROSSREF_RPS", "CROSSREF_ENABLED"} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--data-path", dataDir, "--env-file", filepath.Join(dataDir, "none.env")}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

// addReference writes one reference owned by a fresh user straight through the store.
func addReference(t *testing.T, dataDir, username, key string, public bool) {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(dataDir, "refshelf.db"), logger.Discard().Logger)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	if user == nil {
		user = &domain.User{ID: "user-" + username, Username: username, PasswordHash: "x"}
		require.NoError(t, st.CreateUser(ctx, user))
	}

	_, err = st.SaveReference(ctx, store.SaveParams{
		TypeName: "book",
		Key:      key,
		Attributes: map[string]string{
			"author":    "Donald Knuth",
			"title":     "The Art of Computer Programming",
			"publisher": "Addison-Wesley",
			"year":      "1968",
		},
		IsPublic: &public,
		OwnerID:  user.ID,
	})
	require.NoError(t, err)
}

func TestSeedAndInspect(t *testing.T) {
	dataDir := t.TempDir()

	out, err := run(t, dataDir, "seed", schemaFile)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 7 reference types")
	assert.Contains(t, out, "inproceedings")

	addReference(t, dataDir, "alice", "Knuth1968", true)

	out, err = run(t, dataDir, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "refshelf.db")
	assert.Contains(t, out, "reference types")
	assert.Contains(t, out, "publisher*")
	assert.Contains(t, out, "1 refs")
}

func TestSeed_IsRepeatable(t *testing.T) {
	dataDir := t.TempDir()

	_, err := run(t, dataDir, "seed", schemaFile)
	require.NoError(t, err)
	addReference(t, dataDir, "alice", "Knuth1968", true)

	_, err = run(t, dataDir, "seed", schemaFile)
	require.NoError(t, err)
}

func TestSeed_MissingFile(t *testing.T) {
	_, err := run(t, t.TempDir(), "seed", "does-not-exist.json")
	assert.Error(t, err)
}

func TestInspect_EmptyCatalog(t *testing.T) {
	out, err := run(t, t.TempDir(), "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog is empty")
}

func TestExport(t *testing.T) {
	dataDir := t.TempDir()
	_, err := run(t, dataDir, "seed", schemaFile)
	require.NoError(t, err)
	addReference(t, dataDir, "alice", "Knuth1968", true)
	addReference(t, dataDir, "alice", "Knuth1973", false)

	t.Run("public view", func(t *testing.T) {
		out, err := run(t, dataDir, "export")
		require.NoError(t, err)
		assert.Contains(t, out, "@book{Knuth1968,")
		assert.NotContains(t, out, "Knuth1973")
	})

	t.Run("owner view with keys", func(t *testing.T) {
		out, err := run(t, dataDir, "export", "--owner", "alice", "Knuth1973", "Missing2000")
		require.NoError(t, err)
		assert.Contains(t, out, "@book{Knuth1973,")
		assert.NotContains(t, out, "Knuth1968")
	})

	t.Run("to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "refs.bib")
		_, err := run(t, dataDir, "export", "--owner", "alice", "-o", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Knuth1968")
		assert.Contains(t, string(data), "Knuth1973")
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := run(t, dataDir, "export", "--owner", "nobody")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nobody")
	})
}

func TestDelete(t *testing.T) {
	dataDir := t.TempDir()
	_, err := run(t, dataDir, "seed", schemaFile)
	require.NoError(t, err)
	addReference(t, dataDir, "alice", "Knuth1968", true)

	_, err = run(t, dataDir, "delete", "Knuth1968")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := run(t, dataDir, "delete", "--yes", "Knuth1968")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted Knuth1968")

	out, err = run(t, dataDir, "export")
	require.NoError(t, err)
	assert.NotContains(t, out, "Knuth1968")
}

func TestMarkRequired(t *testing.T) {
	got := markRequired(sqlite.TypeReport{
		Fields:   []string{"author", "title", "pages"},
		Required: []string{"author", "title"},
	})
	assert.Equal(t, []string{"author*", "title*", "pages"}, got)
}
