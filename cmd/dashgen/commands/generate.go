package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/event"
	"github.com/matthewbaird/dashgen/internal/eventbus"
	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/history"
	"github.com/matthewbaird/dashgen/internal/worker"
	"github.com/matthewbaird/dashgen/internal/writer"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		format    string
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "generate <input|->",
		Short: "Render a template input and write the module under the project root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, f, err := readInput(cmd, args[0], format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			events := event.Discard
			if !noHistory {
				p, closeFn, err := a.recorder(ctx)
				if err != nil {
					return err
				}
				defer closeFn()
				events = p
			}

			gen := generator.New(generator.Config{
				Writer: writer.New(a.cfg.Generator.Root, a.log),
				Schema: a.cfg.SchemaOptions(),
				Events: events,
				Log:    a.log,
			})
			res, err := gen.Generate(ctx, raw, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range res.Paths {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "generated %d files for %s (uid %s)\n", len(res.Paths), res.Input.NamingConvention.PluralLower, res.Input.UID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or cue (default from extension)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the generation history")
	return cmd
}

// recorder returns a publisher that hands each event to the same consumers
// the server subscribes to its bus, synchronously.
func (a *app) recorder(ctx context.Context) (event.Publisher, func(), error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	runs := history.NewStore(db)
	drafts := draft.NewStore(db)
	for _, create := range []func(context.Context) error{runs.CreateTable, drafts.CreateTable} {
		if err := create(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	consumers := []struct {
		name string
		h    eventbus.Handler
	}{
		{"log", eventbus.NewLogConsumer(a.log)},
		{"history", runs},
		{"draft_sync", worker.NewDraftSyncWorker(drafts, a.log)},
	}
	pub := event.PublisherFunc(func(ctx context.Context, evt event.GenerationEvent) {
		for _, c := range consumers {
			if err := c.h.HandleEvent(ctx, evt); err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{"handler": c.name, "event": evt.EventType}).Warn("event handler failed")
			}
		}
	})
	return pub, func() { _ = db.Close() }, nil
}
