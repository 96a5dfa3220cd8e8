package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/analyst/internal/console"
	"github.com/dusk-indust/analyst/internal/mcptools"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser console",
		Long: `Serve the browser console and its JSON API. The MCP tools are mounted at
/mcp on the same listener unless --no-mcp is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			serverOpts := []console.Option{
				console.WithLogger(a.logger),
				console.WithHistory(a.history),
			}
			if !noMCP {
				mcpServer := mcptools.NewAnalystMCPServer(mcptools.NewAnalystService(a.pipe, a.history))
				serverOpts = append(serverOpts, console.WithMCPHandler(mcptools.HTTPHandler(mcpServer)))
			}
			srv := console.NewServer(a.pipe, serverOpts...)

			g, ctx := errgroup.WithContext(cmd.Context())
			if err := srv.Start(ctx, a.cfg.Addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Console ready at http://%s\n", srv.Addr())
			if !noMCP {
				fmt.Fprintf(cmd.OutOrStdout(), "MCP endpoint at http://%s/mcp\n", srv.Addr())
			}

			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Stop(shutdownCtx)
			})
			g.Go(func() error {
				logTransitions(ctx, a.pipe, a.logger)
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "do not mount the MCP endpoint")
	return cmd
}

// logTransitions logs every published progress line until ctx is done.
func logTransitions(ctx context.Context, pipe orchestrator.Orchestrator, logger *zap.Logger) {
	feed, cancel := pipe.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-feed:
			if !ok {
				return
			}
			logger.Debug(orchestrator.FormatProgress(snap),
				zap.String("run_id", snap.RunID),
				zap.String("phase", string(snap.State.Phase)),
			)
		}
	}
}
