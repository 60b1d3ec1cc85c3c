package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete bib_key...",
		Short: "Delete references regardless of owner",
		Long: `Delete references by bib_key without an ownership check.

Fields, owner links and the tag link go with the reference. Missing keys are
ignored. Requires --yes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %d reference(s) without --yes", len(args))
			}

			st, _, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			for _, key := range args {
				if err := st.DeleteReferenceUnscoped(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
