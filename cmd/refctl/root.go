package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/refshelf/refshelf-server/internal/config"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/store/sqlite"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dataPath string
	envFile  string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "refctl",
		Short:        "Operate a refshelf data directory",
		Long:         `refctl works directly against the SQLite database in a refshelf data directory. Run it while the server is stopped, or accept that writes race with the server.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.dataPath, "data-path", "d", "",
		"data directory (default: $DATA_PATH or ~/Refshelf/data)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"path to .env file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log store activity to stderr")

	cmd.AddCommand(
		newSeedCmd(opts),
		newInspectCmd(opts),
		newExportCmd(opts),
		newDeleteCmd(opts),
	)

	return cmd
}

// load resolves configuration through the same flag > env > .env > default
// chain the server uses.
func (o *globalOptions) load() (*config.Config, error) {
	args := []string{"-env-file", o.envFile}
	if o.dataPath != "" {
		args = append(args, "-data-path", o.dataPath)
	}
	return config.Load(args)
}

// openStore opens the configured database. The caller closes it.
func (o *globalOptions) openStore(stderr io.Writer) (*sqlite.Store, *config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}

	log := logger.Discard()
	if o.verbose {
		log = logger.New(logger.Config{
			Writer:      stderr,
			Environment: cfg.App.Environment,
			Level:       logger.ParseLevel("debug"),
		})
	}

	if err := os.MkdirAll(cfg.Data.Path, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := sqlite.Open(cfg.Data.DatabasePath(), log.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Data.DatabasePath(), err)
	}
	return st, cfg, nil
}
