package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/schema"
)

func newDraftsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage saved template inputs",
	}
	cmd.AddCommand(
		newDraftsListCommand(a),
		newDraftsSaveCommand(a),
		newDraftsShowCommand(a),
		newDraftsDeleteCommand(a),
	)
	return cmd
}

// withDrafts opens the draft store for the duration of fn.
func (a *app) withDrafts(ctx context.Context, fn func(*draft.Store) error) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	store := draft.NewStore(db)
	if err := store.CreateTable(ctx); err != nil {
		return err
	}
	return fn(store)
}

func newDraftsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved drafts, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDrafts(cmd.Context(), func(s *draft.Store) error {
				drafts, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tMODULE\tTEMPLATE\tUPDATED")
				for _, d := range drafts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Module, d.TemplateName, d.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func newDraftsSaveCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "save <input|->",
		Short: "Save a template input as a draft",
		Long:  "save stores the input without validating it. The draft id is the input uid, assigned when missing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, f, err := readInput(cmd, args[0], format)
			if err != nil {
				return err
			}
			in, err := schema.Load(raw, f)
			if err != nil {
				return err
			}
			return a.withDrafts(cmd.Context(), func(s *draft.Store) error {
				d, err := s.Save(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or cue (default from extension)")
	return cmd
}

func newDraftsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a draft as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDrafts(cmd.Context(), func(s *draft.Store) error {
				d, err := s.Get(cmd.Context(), args[0])
				if errors.Is(err, draft.ErrNotFound) {
					return fmt.Errorf("draft %s not found", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.Data)
				return nil
			})
		},
	}
}

func newDraftsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDrafts(cmd.Context(), func(s *draft.Store) error {
				err := s.Delete(cmd.Context(), args[0])
				if errors.Is(err, draft.ErrNotFound) {
					return fmt.Errorf("draft %s not found", args[0])
				}
				return err
			})
		},
	}
}
