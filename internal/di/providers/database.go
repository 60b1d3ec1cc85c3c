package providers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/samber/do/v2"

	"github.com/refshelf/refshelf-server/internal/config"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/schema"
	"github.com/refshelf/refshelf-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the database and seeds the catalog on first run.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := cfg.Data.DatabasePath()
	st, err := sqlite.Open(dbPath, log.Component("store").Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	if err := seedIfEmpty(context.Background(), st, cfg.Schema.Path, log); err != nil {
		st.Close()
		return nil, err
	}

	return &StoreHandle{Store: st}, nil
}

// seedIfEmpty seeds the catalog from path when nothing has been seeded yet.
// A missing schema file only warns; the server then runs with an empty catalog
// until refctl seed is run.
func seedIfEmpty(ctx context.Context, st *sqlite.Store, path string, log *logger.Logger) error {
	if len(st.Registry().Types()) > 0 {
		return nil
	}

	def, err := schema.LoadDefinition(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Catalog is empty and no schema file found", "schema_path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load schema %s: %w", path, err)
	}

	if err := st.SeedSchema(ctx, def); err != nil {
		return fmt.Errorf("seed schema: %w", err)
	}

	log.Info("Catalog seeded", "schema_path", path, "types", len(st.Registry().Types()))
	return nil
}
