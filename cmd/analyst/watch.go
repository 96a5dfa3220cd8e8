package main

import (
	"context"
	"errors"

	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/render"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		server    string
		untilDone bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the runs of a console as they progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.consoleClient(server)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := render.New(out, opts.interactive(out))
			defer r.Close()

			// Only runs observed while in progress count for --until-done.
			running := make(map[string]bool)
			err = client.Watch(cmd.Context(), func(snap orchestrator.Snapshot) bool {
				r.Update(snap)
				switch {
				case snap.State.Phase == orchestrator.PhaseRunning:
					running[snap.RunID] = true
				case snap.State.Phase.IsTerminal() && running[snap.RunID]:
					return !untilDone
				}
				return true
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	addServerFlag(cmd, &server)
	cmd.Flags().BoolVar(&untilDone, "until-done", false, "exit after the first run that finishes")
	return cmd
}
