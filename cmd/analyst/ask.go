package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/analyst/internal/console"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/render"
	"github.com/spf13/cobra"
)

// errRunFailed is returned after a failed run has been rendered, so the
// process exits non-zero.
var errRunFailed = errors.New("run failed")

type askOptions struct {
	server string
	json   bool
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var ao askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one question through the pipeline",
		Long: `Run one question through intent resolution, SQL generation and result
fetching, showing each stage as it finishes.

With --server the question is submitted to a running console instead of a
local pipeline.`,
		Example: `  analyst ask "Show me revenue growth in Q1 2023"
  analyst ask --no-delay --json "top selling products"
  analyst ask --server http://127.0.0.1:8080 "stock levels"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			var r *render.Renderer
			if !ao.json {
				r = render.New(out, opts.interactive(out))
				defer r.Close()
			}
			onUpdate := func(snap orchestrator.Snapshot) {
				if r != nil {
					r.Update(snap)
				}
			}

			var (
				final orchestrator.Snapshot
				err   error
			)
			if ao.server != "" {
				final, err = askRemote(cmd, ao.server, text, onUpdate)
			} else {
				final, err = askLocal(cmd, opts, text, onUpdate)
			}
			if err != nil {
				return err
			}

			if ao.json {
				if err := writeJSON(out, final); err != nil {
					return err
				}
			}
			if final.State.Phase == orchestrator.PhaseFailed {
				return fmt.Errorf("%w: %s", errRunFailed, final.State.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ao.server, "server", "", "console base URL to submit to instead of running locally")
	cmd.Flags().BoolVar(&ao.json, "json", false, "print the finished run as JSON instead of rendering it")
	return cmd
}

// askLocal runs text on an in-process pipeline, feeding every published
// snapshot of the run to onUpdate.
func askLocal(cmd *cobra.Command, opts *rootOptions, text string, onUpdate func(orchestrator.Snapshot)) (orchestrator.Snapshot, error) {
	a, err := newApp(opts)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	defer a.Close()

	feed, unsubscribe := a.pipe.Subscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for snap := range feed {
			onUpdate(snap)
			if snap.State.Phase.IsTerminal() {
				return
			}
		}
	}()

	final, err := a.pipe.Run(cmd.Context(), text)
	if err != nil {
		unsubscribe()
		<-rendered
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			return orchestrator.Snapshot{}, errors.New("question is empty")
		}
		return orchestrator.Snapshot{}, err
	}
	<-rendered
	unsubscribe()
	return final, nil
}

func askRemote(cmd *cobra.Command, server, text string, onUpdate func(orchestrator.Snapshot)) (orchestrator.Snapshot, error) {
	client := console.NewClient(strings.TrimRight(server, "/"))
	final, err := client.Ask(cmd.Context(), text, onUpdate)
	if err != nil {
		var na *console.NotAcceptedError
		if errors.As(err, &na) {
			return orchestrator.Snapshot{}, fmt.Errorf("question not accepted: %s", na.Reason)
		}
		return orchestrator.Snapshot{}, err
	}
	return final, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
