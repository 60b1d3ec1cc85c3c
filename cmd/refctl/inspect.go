package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/refshelf/refshelf-server/internal/store/sqlite"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	typeStyle  = lipgloss.NewStyle().Bold(true).Width(16)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func newInspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the schema catalog and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := st.Inspect(cmd.Context())
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), cfg.Data.DatabasePath(), rep)
			return nil
		},
	}
}

func renderReport(w io.Writer, dbPath string, rep *sqlite.Report) {
	counts := []struct {
		label string
		n     int
	}{
		{"references", rep.References},
		{"public", rep.Public},
		{"values", rep.Values},
		{"fields", rep.FieldCount},
		{"tags", rep.Tags},
		{"users", rep.Users},
	}
	var summary []string
	for _, c := range counts {
		summary = append(summary, labelStyle.Render(c.label)+fmt.Sprint(c.n))
	}

	var types []string
	if len(rep.Types) == 0 {
		types = append(types, "catalog is empty; run refctl seed")
	}
	for _, t := range rep.Types {
		line := typeStyle.Render(t.Name) + fmt.Sprintf("%d refs  ", t.References) + strings.Join(markRequired(t), " ")
		types = append(types, line)
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(dbPath),
		boxStyle.Render(strings.Join(summary, "\n")),
		titleStyle.Render("reference types"),
		boxStyle.Render(strings.Join(types, "\n")),
	)
	fmt.Fprintln(w, out)
}

// markRequired lists t's fields in schema order, starring the required ones.
func markRequired(t sqlite.TypeReport) []string {
	required := make(map[string]bool, len(t.Required))
	for _, k := range t.Required {
		required[k] = true
	}
	out := make([]string, len(t.Fields))
	for i, k := range t.Fields {
		if required[k] {
			k += "*"
		}
		out[i] = k
	}
	return out
}
