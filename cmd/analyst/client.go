package main

import (
	"strings"

	"github.com/dusk-indust/analyst/internal/console"
	"github.com/spf13/cobra"
)

// addServerFlag registers --server on cmd.
func addServerFlag(cmd *cobra.Command, server *string) {
	cmd.Flags().StringVar(server, "server", "", "console base URL (default http://<addr> from config)")
}

// consoleClient returns a client for server, or for the configured listen
// address when server is empty.
func (o *rootOptions) consoleClient(server string) (*console.Client, error) {
	if server == "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return nil, err
		}
		server = "http://" + cfg.Addr
	}
	return console.NewClient(strings.TrimRight(server, "/")), nil
}
