package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewAnalystMCPServer creates an MCP server with the analyst tools
// registered.
func NewAnalystMCPServer(svc *AnalystService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "analyst",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_query",
		Description: "Ask a natural-language question about the sales data. Runs intent resolution, SQL generation and result fetching, then returns the finished run. Rejected while another run is in progress.",
	}, svc.SubmitQuery)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_state",
		Description: "Get the current pipeline state: phase, busy stage, intent, generated SQL, results and error.",
	}, svc.GetState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Get one finished run by ID.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List finished runs, oldest first. Optionally filter by phase (complete or failed) and paginate.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_results",
		Description: "Render the result table of a completed run as CSV, Markdown or JSON text.",
	}, svc.ExportResults)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the MCP server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}
