package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refshelf/refshelf-server/internal/schema"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [schema-file]",
		Short: "Load a schema definition into the catalog",
		Long: `Load reference types and their fields from a JSON or YAML definition.

Seeding is repeatable. Existing types and fields keep their ids, new ones are
added, and fields dropped from a type lose their stored values. A type that
still has references cannot be removed.

Examples:
  # Seed from SCHEMA_PATH (default configs/schema.json)
  refctl seed

  # Seed from an explicit YAML file
  refctl seed configs/schema.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			path := cfg.Schema.Path
			if len(args) == 1 {
				path = args[0]
			}

			def, err := schema.LoadDefinition(path)
			if err != nil {
				return err
			}
			if err := st.SeedSchema(cmd.Context(), def); err != nil {
				return err
			}

			reg := st.Registry()
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reference types from %s\n", len(reg.Types()), path)
			for _, t := range reg.Types() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d fields\n", t.Name, len(reg.Lookup(t.Name)))
			}
			return nil
		},
	}
}
