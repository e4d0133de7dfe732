package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/dashgen/internal/codegen"
	"github.com/matthewbaird/dashgen/internal/generator"
)

func newPreviewCommand(a *app) *cobra.Command {
	var (
		format string
		kinds  []string
	)
	cmd := &cobra.Command{
		Use:   "preview <input|->",
		Short: "Render a template input without writing any files",
		Long: "Without --kind, preview lists the paths generate would write. With\n" +
			"--kind it prints the content of the selected artifacts.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range kinds {
				if _, err := codegen.ParseKind(k); err != nil {
					return err
				}
			}
			raw, f, err := readInput(cmd, args[0], format)
			if err != nil {
				return err
			}
			gen := generator.New(generator.Config{Schema: a.cfg.SchemaOptions(), Log: a.log})
			res, err := gen.Preview(cmd.Context(), raw, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, art := range res.Artifacts {
				if len(kinds) == 0 {
					fmt.Fprintf(out, "%-20s %s\n", art.Kind, art.Path)
					continue
				}
				if !slices.Contains(kinds, string(art.Kind)) {
					continue
				}
				fmt.Fprintf(out, "// %s\n%s\n", art.Path, art.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or cue (default from extension)")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "artifact kinds to print, e.g. model,page")
	return cmd
}
