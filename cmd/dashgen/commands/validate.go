package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
)

func newValidateCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate <input|->",
		Short: "Check a template input without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, f, err := readInput(cmd, args[0], format)
			if err != nil {
				return err
			}
			in, err := generator.New(generator.Config{Schema: a.cfg.SchemaOptions(), Log: a.log}).Decode(raw, f)
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					fmt.Fprintln(cmd.ErrOrStderr(), "  "+p.String())
				}
				if verr.UnknownTypes() {
					fmt.Fprintln(cmd.ErrOrStderr(), "rerun with --lenient to render unknown types as text inputs")
				}
				return fmt.Errorf("%s: %d problem(s)", args[0], len(verr.Problems))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, module %s with %d fields\n",
				args[0], naming.RouteSegment(in.NamingConvention.PluralLower), len(schema.Flatten(in.Schema)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or cue (default from extension)")
	return cmd
}

func newFmtCommand(*app) *cobra.Command {
	var (
		format string
		write  bool
	)
	cmd := &cobra.Command{
		Use:   "fmt <input|->",
		Short: "Print a template input as canonical JSON",
		Long: "fmt loads a JSON, YAML or CUE template input and prints it as indented\n" +
			"JSON with the schema keys in declaration order. With --write a JSON file\n" +
			"is rewritten in place.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, f, err := readInput(cmd, args[0], format)
			if err != nil {
				return err
			}
			in, err := schema.Load(raw, f)
			if err != nil {
				return err
			}
			out, err := schema.FormatInput(in)
			if err != nil {
				return err
			}
			out = append(out, '\n')
			if !write {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if args[0] == "-" || f != schema.FormatJSON {
				return errors.New("--write needs a JSON input file")
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], out, info.Mode().Perm())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or cue (default from extension)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the input file instead of printing")
	return cmd
}
