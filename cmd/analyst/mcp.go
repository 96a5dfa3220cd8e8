package main

import (
	"github.com/dusk-indust/analyst/internal/mcptools"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyst tools over MCP on stdio",
		Long: `Serve submit_query, get_state, get_run, list_runs and export_results to an
MCP client over stdin and stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			server := mcptools.NewAnalystMCPServer(mcptools.NewAnalystService(a.pipe, a.history))
			a.logger.Info("mcp server running on stdio")
			return mcptools.RunStdio(cmd.Context(), server)
		},
	}
}
