//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dusk-indust/analyst/internal/console"
	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/mcptools"
	"github.com/dusk-indust/analyst/internal/mock"
	"github.com/dusk-indust/analyst/internal/orchestrator"
)

// stack is the full process wiring behind "analyst serve": pipeline, run
// history, console API and the MCP endpoint, served over HTTP.
type stack struct {
	url     string
	pipe    *orchestrator.Pipeline
	history *history.Store
	client  *console.Client
}

func newStack(t *testing.T, lat mock.Latencies) *stack {
	t.Helper()

	store := history.NewStore(history.DefaultLimit)
	pipe := orchestrator.NewPipeline(mock.NewExecutor(lat, nil), orchestrator.WithRecorder(store))
	t.Cleanup(pipe.Close)

	mcpServer := mcptools.NewAnalystMCPServer(mcptools.NewAnalystService(pipe, store))
	srv := console.NewServer(pipe,
		console.WithHistory(store),
		console.WithMCPHandler(mcptools.HTTPHandler(mcpServer)),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	return &stack{
		url:     ts.URL,
		pipe:    pipe,
		history: store,
		client:  console.NewClient(ts.URL),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
