package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/query"
	"github.com/refshelf/refshelf-server/internal/service"
)

type exportOptions struct {
	owner   string
	refType string
	tag     string
	sort    string
	output  string
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	eo := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export [bib_key...]",
		Short: "Write references as BibTeX",
		Long: `Write references as BibTeX to stdout or a file.

Without --owner only public references are exported. With keys, entries are
written in the order given and keys that are missing or not visible are skipped.
Without keys every visible reference is written, filtered by --type and --tag.

Examples:
  # Every public reference, newest first
  refctl export

  # Two entries from alice's view into a file
  refctl export --owner alice -o refs.bib Smith2020 He2016

  # Alice's articles tagged thesis, by author
  refctl export --owner alice --type article --tag thesis --sort author`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()

			var viewerID string
			if eo.owner != "" {
				user, err := st.GetUserByUsername(ctx, eo.owner)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("no user named %q", eo.owner)
				}
				viewerID = user.ID
			}

			refs := service.NewReferenceService(st, nil, logger.Discard().Logger)

			var bib string
			if len(args) > 0 {
				bib, err = refs.Export(ctx, domain.NewExportList(args...), viewerID)
			} else {
				bib, err = refs.ExportAll(ctx, query.Options{
					Type: eo.refType,
					Tag:  eo.tag,
					Sort: query.ParseSort(eo.sort),
				}, viewerID)
			}
			if err != nil {
				return err
			}

			if eo.output == "" || eo.output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), bib)
				return err
			}
			return os.WriteFile(eo.output, []byte(bib), 0o644) //#nosec G306 -- BibTeX output is meant to be shared
		},
	}

	cmd.Flags().StringVar(&eo.owner, "owner", "", "export as this username (default: public view)")
	cmd.Flags().StringVarP(&eo.refType, "type", "t", "", "only references of this type")
	cmd.Flags().StringVar(&eo.tag, "tag", "", "only references with this tag")
	cmd.Flags().StringVarP(&eo.sort, "sort", "s", "newest", "newest, oldest, bib_key, title or author")
	cmd.Flags().StringVarP(&eo.output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}
