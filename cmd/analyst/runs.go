package main

import (
	"fmt"
	"strconv"

	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var (
		server string
		json   bool
		req    history.ListRequest
		phase  string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the finished runs a console has recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.consoleClient(server)
			if err != nil {
				return err
			}
			req.Phase = orchestrator.Phase(phase)
			resp, err := client.ListRuns(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if json {
				return writeJSON(out, resp)
			}
			if len(resp.Runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			rendered, err := pterm.DefaultTable.WithHasHeader().WithData(runRows(resp.Runs)).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, rendered)
			fmt.Fprintf(out, "%d of %d runs\n", len(resp.Runs), resp.TotalSize)
			if resp.NextPageToken != "" {
				fmt.Fprintf(out, "More: --page-token %s\n", resp.NextPageToken)
			}
			return nil
		},
	}

	addServerFlag(cmd, &server)
	cmd.Flags().StringVar(&phase, "phase", "", "only list runs that ended in this phase (complete or failed)")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "maximum runs per page")
	cmd.Flags().StringVar(&req.PageToken, "page-token", "", "token from a previous page")
	cmd.Flags().BoolVar(&json, "json", false, "print the raw listing as JSON")
	return cmd
}

func runRows(runs []orchestrator.Snapshot) pterm.TableData {
	data := pterm.TableData{{"ID", "Phase", "Rows", "Question", "Error"}}
	for _, snap := range runs {
		rows := "-"
		if snap.Results != nil {
			rows = strconv.Itoa(snap.Results.Len())
		}
		data = append(data, []string{snap.RunID, string(snap.State.Phase), rows, snap.Query, snap.State.Message})
	}
	return data
}
