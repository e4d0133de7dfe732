// Package commands implements the dashgen command line.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/dashgen/internal/config"
	"github.com/matthewbaird/dashgen/internal/database"
	"github.com/matthewbaird/dashgen/internal/logging"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// app carries the settings shared by every subcommand. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	configPath string
	root       string
	lenient    bool

	cfg     *config.Config
	log     logrus.FieldLogger
	cleanup func()
}

// Execute runs the command line with args.
func Execute(ctx context.Context, args []string) error {
	cmd, a := newRootCommand()
	defer a.close()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "dashgen:", err)
	}
	return err
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "dashgen",
		Short:         "Generate Next.js admin CRUD modules from template inputs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file path (default ./dashgen.yaml)")
	pf.StringVar(&a.root, "root", "", "Next.js project root, overrides generator.root")
	pf.BoolVar(&a.lenient, "lenient", false, "accept unknown type tags and render them as text inputs")

	cmd.AddCommand(
		newGenerateCommand(a),
		newValidateCommand(a),
		newFmtCommand(a),
		newPreviewCommand(a),
		newDraftsCommand(a),
	)
	return cmd, a
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.root != "" {
		cfg.Generator.Root = a.root
	}
	if a.lenient {
		cfg.Generator.Strict = false
	}
	logger, cleanup, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	a.cfg = cfg
	a.log = logger.WithField("component", "dashgen")
	a.cleanup = cleanup
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

// openDB opens the configured SQLite database holding drafts and history.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	return database.Open(ctx, a.cfg.Database.DSN)
}

// readInput reads a template input from path, or from stdin when path is "-".
// An explicit format wins over the file extension.
func readInput(cmd *cobra.Command, path, format string) ([]byte, schema.Format, error) {
	f, err := parseFormat(format)
	if err != nil {
		return nil, "", err
	}
	var raw []byte
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
		if f == "" {
			f = schema.FormatJSON
		}
	} else {
		raw, err = os.ReadFile(path)
		if f == "" {
			f = schema.FormatFromPath(path)
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading input: %w", err)
	}
	return raw, f, nil
}

func parseFormat(s string) (schema.Format, error) {
	switch f := schema.Format(s); f {
	case "", schema.FormatJSON, schema.FormatYAML, schema.FormatCUE:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or cue)", s)
}
